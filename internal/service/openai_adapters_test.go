package service

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"solveit_backend/internal/config"
	"solveit_backend/internal/util"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func aiConfig(baseURL string) config.AIConfig {
	return config.AIConfig{
		BaseURL:            baseURL,
		APIKey:             "test-key",
		Model:              "mistralai/mistral-7b-instruct",
		TranscriptionModel: "whisper-1",
		EmbeddingURL:       baseURL,
		EmbeddingModel:     "text-embedding-3-small",
		Timeout:            5 * time.Second,
	}
}

func TestOpenAIGenerator_Generate(t *testing.T) {
	var captured struct {
		Model    string `json:"model"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"id":"c1","object":"chat.completion","model":"m","choices":[
			{"index":0,"message":{"role":"assistant","content":"{\"answer\": \"Open 9-5\"}"},"finish_reason":"stop"}
		]}`)
	}))
	defer srv.Close()

	gen := NewOpenAIGenerator(aiConfig(srv.URL))
	segments, err := gen.Generate(context.Background(), GenerationRequest{
		Category: "OPENING_HOURS",
		Query:    "When are you open?",
		Context:  "We are open 9-5",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{`{"answer": "Open 9-5"}`}, segments)

	assert.Equal(t, "mistralai/mistral-7b-instruct", captured.Model)
	require.Len(t, captured.Messages, 2)
	assert.Equal(t, "system", captured.Messages[0].Role)
	assert.Contains(t, captured.Messages[0].Content, "helpful assistant for OPENING HOURS")
	assert.Contains(t, captured.Messages[0].Content, `"answer"`)
	assert.Equal(t, "User Question: When are you open?\n\nCompany Documents:\nWe are open 9-5", captured.Messages[1].Content)
}

func TestOpenAIGenerator_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		io.WriteString(w, `{"error":{"message":"overloaded","type":"server_error"}}`)
	}))
	defer srv.Close()

	_, err := NewOpenAIGenerator(aiConfig(srv.URL)).Generate(context.Background(), GenerationRequest{Query: "q"})
	assert.Error(t, err)
}

func TestOpenAITranscriber_Transcribe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/audio/transcriptions", r.URL.Path)
		assert.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "whisper-1", r.FormValue("model"))
		assert.Equal(t, "verbose_json", r.FormValue("response_format"))

		file, header, err := r.FormFile("file")
		if !assert.NoError(t, err) {
			return
		}
		defer file.Close()
		body, _ := io.ReadAll(file)
		assert.Equal(t, "fake-audio", string(body))
		assert.True(t, strings.HasSuffix(header.Filename, ".m4a"))

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"task":"transcribe","language":"english","duration":1.5,"text":"  What are your hours?  "}`)
	}))
	defer srv.Close()

	tr := NewOpenAITranscriber(aiConfig(srv.URL), config.AudioConfig{})
	result, err := tr.Transcribe(context.Background(), []byte("fake-audio"), "voice.m4a")
	require.NoError(t, err)
	assert.Equal(t, "What are your hours?", result.Text)
	assert.Equal(t, "english", result.Language)
}

func TestOpenAITranscriber_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	tr := NewOpenAITranscriber(aiConfig(srv.URL), config.AudioConfig{})
	_, err := tr.Transcribe(context.Background(), []byte("fake-audio"), "voice.webm")
	assert.ErrorIs(t, err, util.ErrProvider)

	_, err = tr.Transcribe(context.Background(), nil, "voice.webm")
	assert.ErrorIs(t, err, util.ErrValidation)
}

func TestOpenAITranscriber_MaxDuration(t *testing.T) {
	tr := NewOpenAITranscriber(aiConfig("http://127.0.0.1:0"), config.AudioConfig{})
	tr.maxDuration = 30
	tr.probe = func(data []byte, ext string) (*util.AudioInfo, error) {
		assert.Equal(t, ".wav", ext)
		return &util.AudioInfo{Duration: 45}, nil
	}

	err := tr.CheckDuration([]byte("x"), "long.wav")
	assert.ErrorIs(t, err, util.ErrValidation)

	tr.probe = func(data []byte, ext string) (*util.AudioInfo, error) { return &util.AudioInfo{Duration: 10}, nil }
	assert.NoError(t, tr.CheckDuration([]byte("x"), "short.wav"))
}

func TestOpenAIEmbeddingFunc(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embeddings", r.URL.Path)
		var req struct {
			Input []string `json:"input"`
			Model string   `json:"model"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, []string{"hello"}, req.Input)
		assert.Equal(t, "text-embedding-3-small", req.Model)

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"object":"list","model":"text-embedding-3-small","data":[{"object":"embedding","index":0,"embedding":[0.6,0.8]}]}`)
	}))
	defer srv.Close()

	embed := NewOpenAIEmbeddingFunc(aiConfig(srv.URL))
	vec, err := embed(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.6, 0.8}, vec)
}
