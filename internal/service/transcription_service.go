package service

import (
	"bytes"
	"context"
	"fmt"
	"solveit_backend/internal/config"
	"solveit_backend/internal/util"
	"solveit_backend/pkg/logger"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// OpenAITranscriber whisper 兼容的转写接口
type OpenAITranscriber struct {
	client      *openai.Client
	model       string
	maxDuration float64
	probe       func(data []byte, ext string) (*util.AudioInfo, error)
}

func NewOpenAITranscriber(ai config.AIConfig, audio config.AudioConfig) *OpenAITranscriber {
	baseURL, key := ai.TranscriptionURL, ai.TranscriptionKey
	if baseURL == "" {
		baseURL = ai.BaseURL
	}
	if key == "" {
		key = ai.APIKey
	}

	t := &OpenAITranscriber{
		client:      newOpenAIClient(baseURL, key, ai.Timeout),
		model:       ai.TranscriptionModel,
		maxDuration: audio.MaxDurationSeconds,
	}
	if t.maxDuration > 0 && util.FFprobeAvailable() {
		t.probe = util.ProbeAudio
	}
	return t
}

// CheckDuration 超过上限返回 ErrValidation；探测失败只记日志
func (t *OpenAITranscriber) CheckDuration(audio []byte, filename string) error {
	if t.probe == nil {
		return nil
	}
	info, err := t.probe(audio, util.AudioExtension(filename))
	if err != nil {
		logger.Log.Warn("Audio probe failed", zap.Error(err))
		return nil
	}
	if info.Duration > t.maxDuration {
		return fmt.Errorf("%w: audio is %.1fs long, limit is %.0fs", util.ErrValidation, info.Duration, t.maxDuration)
	}
	return nil
}

func (t *OpenAITranscriber) Transcribe(ctx context.Context, audio []byte, filename string) (*Transcription, error) {
	if len(audio) == 0 {
		return nil, fmt.Errorf("%w: audio is empty", util.ErrValidation)
	}
	if err := t.CheckDuration(audio, filename); err != nil {
		return nil, err
	}

	// FilePath 仅用于 multipart 的文件名
	resp, err := t.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    t.model,
		FilePath: "audio" + util.AudioExtension(filename),
		Reader:   bytes.NewReader(audio),
		Format:   openai.AudioResponseFormatVerboseJSON,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: transcription: %v", util.ErrProvider, err)
	}

	return &Transcription{Text: strings.TrimSpace(resp.Text), Language: resp.Language}, nil
}
