package assets

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"ai-code-generate-api/internal/config"
	"ai-code-generate-api/internal/workflow/port"

	wfmodel "ai-code-generate-api/internal/workflow/model"
)

// MermaidRenderer 通过 mermaid-cli（mmdc）将 Mermaid 代码渲染为 PNG 并上传
type MermaidRenderer struct {
	cliPath string
	tempDir string
	timeout time.Duration
	store   port.AssetStore
}

// NewMermaidRenderer 创建 Mermaid 渲染器
func NewMermaidRenderer(cfg *config.MermaidConfig, store port.AssetStore) *MermaidRenderer {
	cliPath := cfg.CLIPath
	if cliPath == "" {
		cliPath = "mmdc"
	}
	tempDir := cfg.TempDir
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &MermaidRenderer{
		cliPath: cliPath,
		tempDir: tempDir,
		timeout: timeout,
		store:   store,
	}
}

// Render 渲染图表并返回可访问的素材资源
func (r *MermaidRenderer) Render(ctx context.Context, task wfmodel.DiagramTask) (wfmodel.ImageResource, error) {
	ctx, span := tracer.Start(ctx, "mermaid.Render",
		trace.WithAttributes(attribute.Int("code_length", len(task.MermaidCode))))
	defer span.End()

	if err := os.MkdirAll(r.tempDir, 0o755); err != nil {
		return wfmodel.ImageResource{}, fmt.Errorf("failed to create temp dir: %w", err)
	}

	id := uuid.NewString()
	inputPath := filepath.Join(r.tempDir, id+".mmd")
	outputPath := filepath.Join(r.tempDir, id+".png")
	defer os.Remove(inputPath)
	defer os.Remove(outputPath)

	if err := os.WriteFile(inputPath, []byte(task.MermaidCode), 0o644); err != nil {
		return wfmodel.ImageResource{}, fmt.Errorf("failed to write mermaid source: %w", err)
	}

	cmdCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	cmd := exec.CommandContext(cmdCtx, r.cliPath,
		"-i", inputPath,
		"-o", outputPath,
		"-b", "transparent",
	)
	if output, err := cmd.CombinedOutput(); err != nil {
		span.RecordError(err)
		return wfmodel.ImageResource{}, fmt.Errorf("mmdc failed: %w, output: %s", err, string(output))
	}

	data, err := os.ReadFile(outputPath)
	if err != nil {
		return wfmodel.ImageResource{}, fmt.Errorf("failed to read rendered diagram: %w", err)
	}

	url, err := r.store.Upload(ctx, "diagrams/"+id+".png", data, "image/png")
	if err != nil {
		span.RecordError(err)
		return wfmodel.ImageResource{}, fmt.Errorf("failed to upload diagram: %w", err)
	}

	return wfmodel.ImageResource{
		Description: task.Description,
		URL:         url,
	}, nil
}
