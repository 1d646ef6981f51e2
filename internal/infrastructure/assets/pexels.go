// Package assets 提供图片素材提供商客户端实现
package assets

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"ai-code-generate-api/internal/config"
	wfmodel "ai-code-generate-api/internal/workflow/model"
)

var tracer = otel.Tracer("assets")

// PexelsClient Pexels 图片搜索客户端
type PexelsClient struct {
	apiKey     string
	baseURL    string
	perQuery   int
	httpClient *http.Client
}

type pexelsResponse struct {
	Photos []struct {
		Alt string `json:"alt"`
		Src struct {
			Medium string `json:"medium"`
		} `json:"src"`
	} `json:"photos"`
}

// NewPexelsClient 创建 Pexels 客户端
func NewPexelsClient(cfg *config.PexelsConfig) *PexelsClient {
	perQuery := cfg.PerQuery
	if perQuery <= 0 {
		perQuery = 3
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.pexels.com"
	}
	return &PexelsClient{
		apiKey:   cfg.APIKey,
		baseURL:  strings.TrimRight(baseURL, "/"),
		perQuery: perQuery,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Search 按英文查询词搜索图片，描述取中文查询词
func (c *PexelsClient) Search(ctx context.Context, task wfmodel.ImageSearchTask) ([]wfmodel.ImageResource, error) {
	ctx, span := tracer.Start(ctx, "pexels.Search",
		trace.WithAttributes(attribute.String("query", task.QueryEn)))
	defer span.End()

	query := url.Values{}
	query.Set("query", task.QueryEn)
	query.Set("per_page", strconv.Itoa(c.perQuery))

	endpoint := c.baseURL + "/v1/search?" + query.Encode()
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create pexels request: %w", err)
	}
	httpReq.Header.Set("Authorization", c.apiKey)

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("pexels request failed: %w", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return nil, fmt.Errorf("pexels request failed: status=%d", httpResp.StatusCode)
	}

	var resp pexelsResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to decode pexels response: %w", err)
	}

	description := task.QueryZh
	if description == "" {
		description = task.QueryEn
	}

	images := make([]wfmodel.ImageResource, 0, len(resp.Photos))
	for _, photo := range resp.Photos {
		if photo.Src.Medium == "" {
			continue
		}
		desc := description
		if photo.Alt != "" {
			desc = fmt.Sprintf("%s（%s）", description, photo.Alt)
		}
		images = append(images, wfmodel.ImageResource{
			Description: desc,
			URL:         photo.Src.Medium,
		})
	}

	span.SetAttributes(attribute.Int("result_count", len(images)))
	return images, nil
}
