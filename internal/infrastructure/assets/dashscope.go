package assets

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"ai-code-generate-api/internal/config"
	"ai-code-generate-api/internal/workflow/port"

	wfmodel "ai-code-generate-api/internal/workflow/model"
)

// DashScopeClient 通过 DashScope 文生图接口生成 Logo。
// 接口为异步模式：提交任务后轮询直至 SUCCEEDED 或超时。
type DashScopeClient struct {
	apiKey     string
	baseURL    string
	model      string
	timeout    time.Duration
	store      port.AssetStore
	httpClient *http.Client
}

type dashScopeSubmitRequest struct {
	Model string `json:"model"`
	Input struct {
		Prompt string `json:"prompt"`
	} `json:"input"`
	Parameters struct {
		N    int    `json:"n"`
		Size string `json:"size"`
	} `json:"parameters"`
}

type dashScopeSubmitResponse struct {
	Output struct {
		TaskID     string `json:"task_id"`
		TaskStatus string `json:"task_status"`
	} `json:"output"`
	Message string `json:"message"`
}

type dashScopeTaskResponse struct {
	Output struct {
		TaskStatus string `json:"task_status"`
		Results    []struct {
			URL string `json:"url"`
		} `json:"results"`
		Message string `json:"message"`
	} `json:"output"`
}

// NewDashScopeClient 创建 DashScope 客户端
func NewDashScopeClient(cfg *config.DashScopeConfig, store port.AssetStore) *DashScopeClient {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://dashscope.aliyuncs.com"
	}
	model := cfg.Model
	if model == "" {
		model = "wanx2.1-t2i-turbo"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &DashScopeClient{
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		timeout: timeout,
		store:   store,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Generate 生成 Logo 图片并上传，返回素材资源
func (c *DashScopeClient) Generate(ctx context.Context, task wfmodel.LogoTask) (wfmodel.ImageResource, error) {
	ctx, span := tracer.Start(ctx, "dashscope.Generate",
		trace.WithAttributes(attribute.String("model", c.model)))
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	taskID, err := c.submit(ctx, task.Description)
	if err != nil {
		span.RecordError(err)
		return wfmodel.ImageResource{}, err
	}
	span.SetAttributes(attribute.String("task_id", taskID))

	imageURL, err := c.poll(ctx, taskID)
	if err != nil {
		span.RecordError(err)
		return wfmodel.ImageResource{}, err
	}

	data, contentType, err := c.download(ctx, imageURL)
	if err != nil {
		span.RecordError(err)
		return wfmodel.ImageResource{}, err
	}

	url, err := c.store.Upload(ctx, "logos/"+uuid.NewString()+".png", data, contentType)
	if err != nil {
		span.RecordError(err)
		return wfmodel.ImageResource{}, fmt.Errorf("failed to upload logo: %w", err)
	}

	return wfmodel.ImageResource{
		Description: task.Description,
		URL:         url,
	}, nil
}

// submit 提交异步文生图任务
func (c *DashScopeClient) submit(ctx context.Context, prompt string) (string, error) {
	var req dashScopeSubmitRequest
	req.Model = c.model
	req.Input.Prompt = prompt
	req.Parameters.N = 1
	req.Parameters.Size = "1024*1024"

	body, err := json.Marshal(&req)
	if err != nil {
		return "", fmt.Errorf("failed to marshal dashscope request: %w", err)
	}

	endpoint := c.baseURL + "/api/v1/services/aigc/text2image/image-synthesis"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create dashscope request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("X-DashScope-Async", "enable")

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("dashscope submit failed: %w", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return "", fmt.Errorf("dashscope submit failed: status=%d", httpResp.StatusCode)
	}

	var resp dashScopeSubmitResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return "", fmt.Errorf("failed to decode dashscope response: %w", err)
	}
	if resp.Output.TaskID == "" {
		return "", fmt.Errorf("dashscope submit returned no task id: %s", resp.Message)
	}
	return resp.Output.TaskID, nil
}

// poll 轮询任务直到完成
func (c *DashScopeClient) poll(ctx context.Context, taskID string) (string, error) {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	endpoint := c.baseURL + "/api/v1/tasks/" + taskID
	for {
		select {
		case <-ctx.Done():
			return "", fmt.Errorf("dashscope task %s timed out: %w", taskID, ctx.Err())
		case <-ticker.C:
		}

		httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return "", fmt.Errorf("failed to create dashscope task request: %w", err)
		}
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

		httpResp, err := c.httpClient.Do(httpReq)
		if err != nil {
			return "", fmt.Errorf("dashscope task query failed: %w", err)
		}

		var resp dashScopeTaskResponse
		decodeErr := json.NewDecoder(httpResp.Body).Decode(&resp)
		httpResp.Body.Close()
		if decodeErr != nil {
			return "", fmt.Errorf("failed to decode dashscope task response: %w", decodeErr)
		}

		switch resp.Output.TaskStatus {
		case "SUCCEEDED":
			if len(resp.Output.Results) == 0 || resp.Output.Results[0].URL == "" {
				return "", fmt.Errorf("dashscope task %s succeeded without results", taskID)
			}
			return resp.Output.Results[0].URL, nil
		case "FAILED", "CANCELED":
			return "", fmt.Errorf("dashscope task %s failed: %s", taskID, resp.Output.Message)
		}
	}
}

// download 下载生成的图片
func (c *DashScopeClient) download(ctx context.Context, imageURL string) ([]byte, string, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create download request: %w", err)
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, "", fmt.Errorf("failed to download image: %w", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return nil, "", fmt.Errorf("failed to download image: status=%d", httpResp.StatusCode)
	}

	data, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read image body: %w", err)
	}

	contentType := httpResp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "image/png"
	}
	return data, contentType, nil
}
