package writer_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ytdigest/internal/domain/entity"
	"ytdigest/internal/infra/writer"
	"ytdigest/internal/resilience/circuitbreaker"
)

func TestOpenAI_Generate_Success(t *testing.T) {
	var captured struct {
		Model     string `json:"model"`
		MaxTokens int    `json:"max_tokens"`
		Messages  []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	var path string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&captured)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"created": 1700000000,
			"model": "gpt-4o",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "# Headline\n\nBody text"}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15}
		}`))
	}))
	defer srv.Close()

	rec := &fakeRecorder{}
	o := writer.NewOpenAI("sk-test", testConfig(writer.ProviderOpenAI, srv.URL+"/v1")).WithMetricsRecorder(rec)
	video := transcribedVideo()

	article, err := o.Generate(context.Background(), video)
	require.NoError(t, err)

	assert.Equal(t, "# Headline\n\nBody text", article)
	assert.Equal(t, "/v1/chat/completions", path)
	assert.Equal(t, "gpt-4o", captured.Model)
	assert.Equal(t, 8192, captured.MaxTokens)
	require.Len(t, captured.Messages, 1)
	assert.Equal(t, "user", captured.Messages[0].Role)
	assert.Equal(t, writer.BuildPrompt(video), captured.Messages[0].Content)
	assert.Equal(t, []int{4}, rec.words)
}

func TestOpenAI_Generate_APIError(t *testing.T) {
	tests := []struct {
		name   string
		status int
	}{
		{name: "unauthorized", status: http.StatusUnauthorized},
		{name: "rate limited", status: http.StatusTooManyRequests},
		{name: "server error", status: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"error": {"message": "nope", "type": "invalid_request_error"}}`))
			}))
			defer srv.Close()

			o := writer.NewOpenAI("sk-test", testConfig(writer.ProviderOpenAI, srv.URL+"/v1")).WithMetricsRecorder(&fakeRecorder{})

			_, err := o.Generate(context.Background(), transcribedVideo())
			require.Error(t, err)
			assert.ErrorIs(t, err, entity.ErrGeneration)

			var genErr *writer.GenerationError
			require.True(t, errors.As(err, &genErr))
			assert.Equal(t, "openai", genErr.Provider)
			assert.Equal(t, tt.status, genErr.StatusCode)
		})
	}
}

func TestOpenAI_Generate_CircuitOpens(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`{"error": {"message": "bad gateway", "type": "server_error"}}`))
	}))
	defer srv.Close()

	rec := &fakeRecorder{}
	o := writer.NewOpenAI("sk-test", testConfig(writer.ProviderOpenAI, srv.URL+"/v1")).WithMetricsRecorder(rec)
	minRequests := int(circuitbreaker.OpenAIAPIConfig().MinRequests)

	for i := 0; i < minRequests; i++ {
		_, err := o.Generate(context.Background(), transcribedVideo())
		require.Error(t, err)
	}

	// later videos are dropped without a request until the breaker half-opens
	_, err := o.Generate(context.Background(), transcribedVideo())
	require.Error(t, err)
	assert.ErrorIs(t, err, entity.ErrGeneration)
	assert.True(t, circuitbreaker.IsRejection(err))
	assert.Equal(t, int32(minRequests), atomic.LoadInt32(&hits))
	assert.Equal(t, "rejected", rec.failures[len(rec.failures)-1])
}

func TestOpenAI_Generate_EmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id": "c", "object": "chat.completion", "created": 1, "model": "gpt-4o", "choices": []}`))
	}))
	defer srv.Close()

	rec := &fakeRecorder{}
	o := writer.NewOpenAI("sk-test", testConfig(writer.ProviderOpenAI, srv.URL+"/v1")).WithMetricsRecorder(rec)

	_, err := o.Generate(context.Background(), transcribedVideo())
	assert.ErrorIs(t, err, entity.ErrGeneration)
	assert.Equal(t, []string{"empty"}, rec.failures)
}

func TestOpenAI_Generate_PanicsWithoutTranscript(t *testing.T) {
	o := writer.NewOpenAI("k", writer.DefaultConfig(writer.ProviderOpenAI))
	video := entity.NewVideo("abc", "t", "d", "c")
	video.AttachTranscript("   ")

	assert.Panics(t, func() {
		_, _ = o.Generate(context.Background(), video)
	})
}
