package prompt

import (
	"embed"
	"fmt"
	"strings"
	"sync"

	einoprompt "github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"
)

//go:embed templates/*.txt
var templatesFS embed.FS

type PromptID string

const (
	PromptImagePlanV1     PromptID = "image_plan_v1"
	PromptRoutingV1       PromptID = "routing_v1"
	PromptQualityCheckV1  PromptID = "quality_check_v1"
	PromptGenHTMLV1       PromptID = "gen_html_v1"
	PromptGenMultiFileV1  PromptID = "gen_multi_file_v1"
	PromptGenVueProjectV1 PromptID = "gen_vue_project_v1"
)

type Registry struct {
	mu    sync.RWMutex
	cache map[PromptID]einoprompt.ChatTemplate
}

func NewRegistry() *Registry {
	return &Registry{
		cache: make(map[PromptID]einoprompt.ChatTemplate),
	}
}

func (r *Registry) ChatTemplate(id PromptID) (einoprompt.ChatTemplate, error) {
	if r == nil {
		return nil, fmt.Errorf("prompt registry is nil")
	}

	r.mu.RLock()
	if tpl, ok := r.cache[id]; ok {
		r.mu.RUnlock()
		return tpl, nil
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	if tpl, ok := r.cache[id]; ok {
		return tpl, nil
	}

	systemPath, userPath, err := resolvePromptFiles(id)
	if err != nil {
		return nil, err
	}
	system, err := readEmbeddedText(systemPath)
	if err != nil {
		return nil, err
	}
	user, err := readEmbeddedText(userPath)
	if err != nil {
		return nil, err
	}

	tpl := einoprompt.FromMessages(
		schema.FString,
		schema.SystemMessage(system),
		schema.UserMessage(user),
	)
	r.cache[id] = tpl
	return tpl, nil
}

// SystemText 返回某个提示词的 system 文本，供工具调用型生成直接拼接消息
func (r *Registry) SystemText(id PromptID) (string, error) {
	systemPath, _, err := resolvePromptFiles(id)
	if err != nil {
		return "", err
	}
	return readEmbeddedText(systemPath)
}

func resolvePromptFiles(id PromptID) (systemFile string, userFile string, err error) {
	switch id {
	case PromptImagePlanV1:
		return "templates/image_plan_v1.system.txt", "templates/image_plan_v1.user.txt", nil
	case PromptRoutingV1:
		return "templates/routing_v1.system.txt", "templates/routing_v1.user.txt", nil
	case PromptQualityCheckV1:
		return "templates/quality_check_v1.system.txt", "templates/quality_check_v1.user.txt", nil
	case PromptGenHTMLV1:
		return "templates/gen_html_v1.system.txt", "templates/gen_html_v1.user.txt", nil
	case PromptGenMultiFileV1:
		return "templates/gen_multi_file_v1.system.txt", "templates/gen_multi_file_v1.user.txt", nil
	case PromptGenVueProjectV1:
		return "templates/gen_vue_project_v1.system.txt", "templates/gen_vue_project_v1.user.txt", nil
	default:
		return "", "", fmt.Errorf("unknown prompt id: %s", id)
	}
}

func readEmbeddedText(path string) (string, error) {
	b, err := templatesFS.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}
