package service

import (
	"context"
	"solveit_backend/internal/model"
)

// Snippet 检索命中的文档片段，按相关度排序
type Snippet struct {
	Text  string  `json:"text"`
	Score float32 `json:"score"`
}

type GenerationRequest struct {
	Category string
	Query    string
	Context  string
}

// Transcription 语音转写结果
type Transcription struct {
	Text     string `json:"text"`
	Language string `json:"language"`
}

type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, filename string) (*Transcription, error)
}

type Retriever interface {
	Search(ctx context.Context, query string, scope model.ServiceScope, topK int) ([]Snippet, error)
}

// Generator 返回模型原始输出片段，不保证是 JSON
type Generator interface {
	Generate(ctx context.Context, req GenerationRequest) ([]string, error)
}
