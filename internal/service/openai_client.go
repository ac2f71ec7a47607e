package service

import (
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// newOpenAIClient OpenAI 兼容接口客户端，baseURL 为空时使用官方地址
func newOpenAIClient(baseURL, apiKey string, timeout time.Duration) *openai.Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if timeout > 0 {
		cfg.HTTPClient = &http.Client{Timeout: timeout}
	}
	return openai.NewClientWithConfig(cfg)
}
