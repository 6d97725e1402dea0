package provider

import "context"

// ChatPayload 是一次聊天补全请求的输入。
type ChatPayload struct {
	System     string
	User       string
	ExpectJSON bool
}

// ModelProvider 屏蔽具体 LLM 服务商的差异。
type ModelProvider interface {
	ID() string
	Call(ctx context.Context, payload ChatPayload) (string, error)
}
