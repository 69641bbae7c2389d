package openai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/proposal-builder/internal/common"
	"github.com/joseph-ayodele/proposal-builder/internal/llm"
)

func chatBody(content string) string {
	b, _ := json.Marshal(map[string]any{
		"id":      "chatcmpl-test",
		"object":  "chat.completion",
		"created": 1,
		"model":   "gpt-4o-mini",
		"choices": []map[string]any{{
			"index":         0,
			"finish_reason": "stop",
			"message":       map[string]any{"role": "assistant", "content": content},
		}},
		"usage": map[string]any{"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15},
	})
	return string(b)
}

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(Config{
		APIKey:      "test-key",
		BaseURL:     srv.URL + "/v1/",
		Timeout:     5 * time.Second,
		BaseBackoff: time.Millisecond,
		MaxBackoff:  5 * time.Millisecond,
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestNewClientDefaults(t *testing.T) {
	c := NewClient(Config{APIKey: "k"}, nil)
	assert.Equal(t, DefaultModel, c.Model())
	assert.Equal(t, DefaultEmbeddingModel, c.EmbeddingModel())
	assert.Equal(t, DefaultVisionModel, c.cfg.VisionModel)
	assert.Equal(t, 3, c.cfg.MaxRetries)
	assert.Equal(t, 2*time.Second, c.cfg.BaseBackoff)
	assert.Equal(t, 32*time.Second, c.cfg.MaxBackoff)
}

func TestBackoff(t *testing.T) {
	base, ceiling := 2*time.Second, 32*time.Second
	assert.Equal(t, 2*time.Second, backoff(base, ceiling, 1))
	assert.Equal(t, 4*time.Second, backoff(base, ceiling, 2))
	assert.Equal(t, 16*time.Second, backoff(base, ceiling, 4))
	assert.Equal(t, 32*time.Second, backoff(base, ceiling, 7))
}

func TestComplete(t *testing.T) {
	var got map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.True(t, strings.HasSuffix(r.URL.Path, "/chat/completions"), r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, chatBody(`{"a":"• x"}`))
	})

	resp, err := c.Complete(context.Background(), llm.ChatRequest{
		Purpose:  "pain_points",
		System:   "be strict",
		Prompt:   "hello",
		JSONMode: true,
	})
	require.NoError(t, err)
	assert.Equal(t, `{"a":"• x"}`, resp.Content)
	assert.Equal(t, 15, resp.TokensUsed)

	assert.Equal(t, DefaultModel, got["model"])
	msgs, ok := got["messages"].([]any)
	require.True(t, ok)
	assert.Len(t, msgs, 2)
	rf, ok := got["response_format"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "json_object", rf["type"])
}

func TestCompleteRetriesRateLimit(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = io.WriteString(w, `{"error":{"message":"slow down","type":"rate_limit","code":"rate_limit_exceeded"}}`)
			return
		}
		_, _ = io.WriteString(w, chatBody("ok"))
	})

	resp, err := c.Complete(context.Background(), llm.ChatRequest{Prompt: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Content)
	assert.Equal(t, int32(2), calls.Load())
}

func TestCompleteServerErrorIsUpstream(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"error":{"message":"bad","type":"invalid_request_error"}}`)
	})

	_, err := c.Complete(context.Background(), llm.ChatRequest{Prompt: "hi"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrUpstream))
	assert.Equal(t, int32(1), calls.Load())
}

func TestCompleteNoChoices(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"x","object":"chat.completion","created":1,"model":"m","choices":[]}`)
	})

	_, err := c.Complete(context.Background(), llm.ChatRequest{Prompt: "hi"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrUpstream))
}

func TestEmbedBatchesAndOrders(t *testing.T) {
	var batches atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.True(t, strings.HasSuffix(r.URL.Path, "/embeddings"), r.URL.Path)
		batches.Add(1)
		var req struct {
			Input []string `json:"input"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		// answer in reverse order to exercise index placement
		data := make([]map[string]any, 0, len(req.Input))
		for i := len(req.Input) - 1; i >= 0; i-- {
			data = append(data, map[string]any{
				"object":    "embedding",
				"index":     i,
				"embedding": []float64{float64(len(req.Input[i])), 1},
			})
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"data":   data,
			"model":  DefaultEmbeddingModel,
			"usage":  map[string]any{"prompt_tokens": 1, "total_tokens": 1},
		})
	})

	texts := make([]string, MaxEmbeddingBatch+5)
	for i := range texts {
		texts[i] = strings.Repeat("x", i%7+1)
	}
	vecs, err := c.Embed(context.Background(), texts)
	require.NoError(t, err)
	require.Len(t, vecs, len(texts))
	assert.Equal(t, int32(2), batches.Load())
	for i, v := range vecs {
		assert.Equal(t, float32(len(texts[i])), v[0])
	}
}

func TestEmbedEmptyInput(t *testing.T) {
	c := NewClient(Config{APIKey: "k"}, nil)
	_, err := c.Embed(context.Background(), nil)
	assert.Error(t, err)
}

func TestCaption(t *testing.T) {
	var body string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		body = string(b)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, chatBody("A bar chart of quarterly revenue."))
	})

	img := filepath.Join(t.TempDir(), "chart.png")
	require.NoError(t, os.WriteFile(img, []byte("\x89PNG\r\n\x1a\nfake"), 0o644))

	caption, err := c.Caption(context.Background(), img)
	require.NoError(t, err)
	assert.Equal(t, "A bar chart of quarterly revenue.", caption)
	assert.Contains(t, body, "data:image/png;base64,")
	assert.Contains(t, body, DefaultVisionModel)
}

func TestCaptionMissingFile(t *testing.T) {
	c := NewClient(Config{APIKey: "k"}, nil)
	_, err := c.Caption(context.Background(), filepath.Join(t.TempDir(), "nope.png"))
	assert.Error(t, err)
}
