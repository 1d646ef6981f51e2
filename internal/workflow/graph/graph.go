// Package graph 实现代码生成工作流的有向图执行引擎。
// 节点以 Delta 形式产出结果，由引擎按拓扑顺序合并到共享上下文；
// 支持普通边、条件边以及一组并行扇出/汇聚。
package graph

import (
	"context"
	"fmt"

	"ai-code-generate-api/internal/workflow/model"
)

// 图的虚拟起止节点
const (
	Start = "__start__"
	End   = "__end__"
)

// Node 工作流节点：读取上下文快照，返回本步产出的 Delta
type Node func(ctx context.Context, wc *model.WorkflowContext) (model.Delta, error)

// Router 条件边的路由函数，返回路由标签
type Router func(ctx context.Context, wc *model.WorkflowContext) string

type conditional struct {
	router  Router
	targets map[string]string
}

type parallelGroup struct {
	source   string
	branches []string
	join     string
}

// Graph 工作流图构建器
type Graph struct {
	name        string
	nodes       map[string]Node
	descs       map[string]string
	order       []string
	edges       map[string]string
	conds       map[string]conditional
	parallel    *parallelGroup
	concurrency int
	errs        []error
}

// New 创建图构建器
func New(name string) *Graph {
	return &Graph{
		name:        name,
		nodes:       make(map[string]Node),
		descs:       make(map[string]string),
		edges:       make(map[string]string),
		conds:       make(map[string]conditional),
		concurrency: 10,
	}
}

// WithConcurrency 设置并行分支的最大并发数
func (g *Graph) WithConcurrency(n int) *Graph {
	if n > 0 {
		g.concurrency = n
	}
	return g
}

// AddNode 注册节点，desc 用于进度帧展示。注册顺序决定步骤编号。
func (g *Graph) AddNode(name, desc string, fn Node) *Graph {
	if name == Start || name == End {
		g.errs = append(g.errs, fmt.Errorf("node name %q is reserved", name))
		return g
	}
	if _, dup := g.nodes[name]; dup {
		g.errs = append(g.errs, fmt.Errorf("duplicate node %q", name))
		return g
	}
	g.nodes[name] = fn
	g.descs[name] = desc
	g.order = append(g.order, name)
	return g
}

// AddEdge 添加普通边
func (g *Graph) AddEdge(from, to string) *Graph {
	if _, dup := g.edges[from]; dup {
		g.errs = append(g.errs, fmt.Errorf("node %q already has an outgoing edge", from))
		return g
	}
	g.edges[from] = to
	return g
}

// AddConditional 添加条件边：router 返回的标签经 targets 映射到目标节点
func (g *Graph) AddConditional(from string, router Router, targets map[string]string) *Graph {
	if len(targets) == 0 {
		g.errs = append(g.errs, fmt.Errorf("conditional edge from %q has no targets", from))
		return g
	}
	if _, dup := g.conds[from]; dup {
		g.errs = append(g.errs, fmt.Errorf("node %q already has a conditional edge", from))
		return g
	}
	g.conds[from] = conditional{router: router, targets: targets}
	return g
}

// AddParallel 添加并行组：source 执行完后并发执行 branches，
// 全部完成后在 join 汇聚。整个图最多一个并行组。
func (g *Graph) AddParallel(source string, branches []string, join string) *Graph {
	if g.parallel != nil {
		g.errs = append(g.errs, fmt.Errorf("graph %q already has a parallel group", g.name))
		return g
	}
	if len(branches) == 0 {
		g.errs = append(g.errs, fmt.Errorf("parallel group from %q has no branches", source))
		return g
	}
	g.parallel = &parallelGroup{source: source, branches: append([]string(nil), branches...), join: join}
	return g
}

// Compile 校验图结构并返回可执行图
func (g *Graph) Compile() (*Compiled, error) {
	if len(g.errs) > 0 {
		return nil, fmt.Errorf("graph %q build errors: %w", g.name, g.errs[0])
	}

	exists := func(name string) bool {
		if name == Start || name == End {
			return true
		}
		_, ok := g.nodes[name]
		return ok
	}

	// 所有边引用的节点必须存在
	for from, to := range g.edges {
		if !exists(from) || !exists(to) {
			return nil, fmt.Errorf("graph %q: edge %s -> %s references unknown node", g.name, from, to)
		}
	}
	for from, c := range g.conds {
		if !exists(from) {
			return nil, fmt.Errorf("graph %q: conditional edge from unknown node %s", g.name, from)
		}
		for label, to := range c.targets {
			if !exists(to) {
				return nil, fmt.Errorf("graph %q: conditional label %q maps to unknown node %s", g.name, label, to)
			}
		}
		if _, both := g.edges[from]; both {
			return nil, fmt.Errorf("graph %q: node %s has both a plain edge and a conditional edge", g.name, from)
		}
	}
	if p := g.parallel; p != nil {
		if !exists(p.source) || !exists(p.join) {
			return nil, fmt.Errorf("graph %q: parallel group references unknown node", g.name)
		}
		for _, b := range p.branches {
			if _, ok := g.nodes[b]; !ok {
				return nil, fmt.Errorf("graph %q: parallel branch %s is not a registered node", g.name, b)
			}
			if _, out := g.edges[b]; out {
				return nil, fmt.Errorf("graph %q: parallel branch %s must rejoin at %s only", g.name, b, p.join)
			}
			if _, out := g.conds[b]; out {
				return nil, fmt.Errorf("graph %q: parallel branch %s cannot carry a conditional edge", g.name, b)
			}
		}
		if _, out := g.edges[p.source]; out {
			return nil, fmt.Errorf("graph %q: parallel source %s cannot also have a plain edge", g.name, p.source)
		}
	}

	// 起点必须有且仅有一条出边
	startTarget, ok := g.edges[Start]
	if !ok {
		return nil, fmt.Errorf("graph %q: no edge from start", g.name)
	}

	// 从起点做可达性遍历，同时确认终点可达
	reached := map[string]bool{}
	var visit func(name string)
	visit = func(name string) {
		if name == End || reached[name] {
			return
		}
		reached[name] = true
		if p := g.parallel; p != nil && p.source == name {
			for _, b := range p.branches {
				if !reached[b] {
					reached[b] = true
				}
			}
			visit(p.join)
			return
		}
		if c, ok := g.conds[name]; ok {
			for _, to := range c.targets {
				visit(to)
			}
			return
		}
		if to, ok := g.edges[name]; ok {
			visit(to)
		}
	}
	visit(startTarget)

	endReachable := false
	checkEnd := func(to string) {
		if to == End {
			endReachable = true
		}
	}
	for _, to := range g.edges {
		checkEnd(to)
	}
	for _, c := range g.conds {
		for _, to := range c.targets {
			checkEnd(to)
		}
	}
	if !endReachable {
		return nil, fmt.Errorf("graph %q: end is not reachable", g.name)
	}

	for _, name := range g.order {
		if !reached[name] {
			return nil, fmt.Errorf("graph %q: node %s is unreachable from start", g.name, name)
		}
	}

	// 除并行分支外，每个可达节点必须有后继
	for _, name := range g.order {
		if g.isParallelBranch(name) {
			continue
		}
		if p := g.parallel; p != nil && p.source == name {
			continue
		}
		_, hasEdge := g.edges[name]
		_, hasCond := g.conds[name]
		if !hasEdge && !hasCond {
			return nil, fmt.Errorf("graph %q: node %s has no outgoing edge", g.name, name)
		}
	}

	// 步骤编号按注册顺序，从 1 开始
	steps := make(map[string]int, len(g.order))
	for i, name := range g.order {
		steps[name] = i + 1
	}

	return &Compiled{
		name:        g.name,
		nodes:       g.nodes,
		descs:       g.descs,
		edges:       g.edges,
		conds:       g.conds,
		parallel:    g.parallel,
		concurrency: g.concurrency,
		startTarget: startTarget,
		steps:       steps,
	}, nil
}

func (g *Graph) isParallelBranch(name string) bool {
	if g.parallel == nil {
		return false
	}
	for _, b := range g.parallel.branches {
		if b == name {
			return true
		}
	}
	return false
}
