package eino

import (
	"context"
)

type providerKey struct{}

// WithProvider 在 Context 中记录本次调用的 LLM Provider 名称
func WithProvider(ctx context.Context, provider string) context.Context {
	return context.WithValue(ctx, providerKey{}, provider)
}

// ProviderFromContext 读取 Context 中的 Provider 名称
func ProviderFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(providerKey{}).(string); ok && v != "" {
		return v
	}
	return "unknown"
}
