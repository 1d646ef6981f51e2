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

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"ai-code-generate-api/internal/config"
	wfmodel "ai-code-generate-api/internal/workflow/model"
)

// PixabayClient Pixabay 插画搜索客户端
type PixabayClient struct {
	apiKey     string
	baseURL    string
	perQuery   int
	httpClient *http.Client
}

type pixabayResponse struct {
	Hits []struct {
		Tags          string `json:"tags"`
		WebformatURL  string `json:"webformatURL"`
		LargeImageURL string `json:"largeImageURL"`
	} `json:"hits"`
}

// NewPixabayClient 创建 Pixabay 客户端
func NewPixabayClient(cfg *config.PixabayConfig) *PixabayClient {
	perQuery := cfg.PerQuery
	if perQuery <= 0 {
		perQuery = 3
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://pixabay.com"
	}
	return &PixabayClient{
		apiKey:   cfg.APIKey,
		baseURL:  strings.TrimRight(baseURL, "/"),
		perQuery: perQuery,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Search 按英文查询词搜索插画素材
func (c *PixabayClient) Search(ctx context.Context, task wfmodel.ImageSearchTask) ([]wfmodel.ImageResource, error) {
	ctx, span := tracer.Start(ctx, "pixabay.Search",
		trace.WithAttributes(attribute.String("query", task.QueryEn)))
	defer span.End()

	query := url.Values{}
	query.Set("key", c.apiKey)
	query.Set("q", task.QueryEn)
	query.Set("image_type", "illustration")
	query.Set("per_page", strconv.Itoa(c.perQuery))

	endpoint := c.baseURL + "/api/?" + query.Encode()
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create pixabay request: %w", err)
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("pixabay request failed: %w", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return nil, fmt.Errorf("pixabay request failed: status=%d", httpResp.StatusCode)
	}

	var resp pixabayResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to decode pixabay response: %w", err)
	}

	description := task.QueryZh
	if description == "" {
		description = task.QueryEn
	}

	images := make([]wfmodel.ImageResource, 0, len(resp.Hits))
	for _, hit := range resp.Hits {
		imageURL := hit.WebformatURL
		if imageURL == "" {
			imageURL = hit.LargeImageURL
		}
		if imageURL == "" {
			continue
		}
		images = append(images, wfmodel.ImageResource{
			Description: description,
			URL:         imageURL,
		})
	}

	span.SetAttributes(attribute.Int("result_count", len(images)))
	return images, nil
}
