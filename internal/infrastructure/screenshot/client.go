// Package screenshot 提供页面截图服务客户端
package screenshot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"ai-code-generate-api/internal/config"
)

var tracer = otel.Tracer("screenshot")

// Client 外部截图服务客户端
type Client struct {
	endpoint   string
	httpClient *http.Client
}

type captureRequest struct {
	URL string `json:"url"`
}

// NewClient 创建截图服务客户端
func NewClient(cfg *config.ScreenshotConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		endpoint: strings.TrimRight(cfg.Endpoint, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Capture 对目标页面截图，返回图片字节
func (c *Client) Capture(ctx context.Context, pageURL string) ([]byte, error) {
	ctx, span := tracer.Start(ctx, "screenshot.Capture",
		trace.WithAttributes(attribute.String("page_url", pageURL)))
	defer span.End()

	if c.endpoint == "" {
		return nil, fmt.Errorf("screenshot endpoint is empty")
	}

	body, err := json.Marshal(&captureRequest{URL: pageURL})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal capture request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/capture", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create capture request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("capture request failed: %w", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return nil, fmt.Errorf("capture request failed: status=%d", httpResp.StatusCode)
	}

	data, err := io.ReadAll(httpResp.Body)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to read capture response: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("capture returned empty image")
	}
	return data, nil
}
