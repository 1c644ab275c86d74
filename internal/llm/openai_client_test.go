package llm

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/nbenliogludev/go-browser-agent-monitor/internal/config"
)

func testModelConfig(baseURL string) config.LLMModelConfig {
	return config.LLMModelConfig{
		Provider:   config.ProviderOpenAI,
		Model:      "gpt-4o-mini",
		APIKey:     "test-key",
		BaseURL:    baseURL,
		APITimeout: 5 * time.Second,
		MaxElapsed: 5 * time.Second,
		JSONMode:   true,
	}
}

const completionBody = `{
	"id": "chatcmpl-1",
	"object": "chat.completion",
	"model": "gpt-4o-mini",
	"choices": [{"index": 0, "message": {"role": "assistant", "content": "{\"ok\":true}"}, "finish_reason": "stop"}],
	"usage": {"prompt_tokens": 10, "completion_tokens": 3, "total_tokens": 13}
}`

func TestOpenAIClient_Complete(t *testing.T) {
	var body []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		body, _ = io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, completionBody)
	}))
	defer srv.Close()

	c, err := NewOpenAIClient(testModelConfig(srv.URL), zaptest.NewLogger(t))
	require.NoError(t, err)

	out, err := c.Complete(context.Background(), []Message{
		TextMessage(RoleSystem, "be brief"),
		{Role: RoleUser, Parts: []ContentPart{
			{Type: PartText, Text: "look"},
			{Type: PartImage, ImageURL: PNGDataURL([]byte("png"))},
		}},
	})
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, out)

	var req map[string]any
	require.NoError(t, json.Unmarshal(body, &req))
	assert.Equal(t, "gpt-4o-mini", req["model"])
	assert.Equal(t, map[string]any{"type": "json_object"}, req["response_format"])
	msgs := req["messages"].([]any)
	require.Len(t, msgs, 2)
	user := msgs[1].(map[string]any)
	parts := user["content"].([]any)
	assert.Len(t, parts, 2)
}

func TestOpenAIClient_RetriesTransientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = io.WriteString(w, `{"error": {"message": "overloaded", "type": "server_error"}}`)
			return
		}
		_, _ = io.WriteString(w, completionBody)
	}))
	defer srv.Close()

	c, err := NewOpenAIClient(testModelConfig(srv.URL), zaptest.NewLogger(t))
	require.NoError(t, err)

	out, err := c.Complete(context.Background(), []Message{TextMessage(RoleUser, "hi")})
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, out)
	assert.Equal(t, int32(2), calls.Load())
}

func TestOpenAIClient_PermanentErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"error": {"message": "bad key", "type": "invalid_request_error"}}`)
	}))
	defer srv.Close()

	c, err := NewOpenAIClient(testModelConfig(srv.URL), zaptest.NewLogger(t))
	require.NoError(t, err)

	_, err = c.Complete(context.Background(), []Message{TextMessage(RoleUser, "hi")})
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestRateLimitedClient_PassThrough(t *testing.T) {
	inner := clientFunc(func(ctx context.Context, m []Message) (string, error) { return "ok", nil })
	assert.IsType(t, clientFunc(nil), NewRateLimitedClient(inner, 0))

	limited := NewRateLimitedClient(inner, 600)
	out, err := limited.Complete(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
}

func TestRateLimitedClient_HonoursContext(t *testing.T) {
	inner := clientFunc(func(ctx context.Context, m []Message) (string, error) { return "ok", nil })
	limited := NewRateLimitedClient(inner, 1)

	_, err := limited.Complete(context.Background(), nil)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = limited.Complete(ctx, nil)
	assert.Error(t, err)
}

type clientFunc func(ctx context.Context, m []Message) (string, error)

func (f clientFunc) Complete(ctx context.Context, m []Message) (string, error) { return f(ctx, m) }

func TestDecodeDataURL(t *testing.T) {
	data, mime, err := decodeDataURL(PNGDataURL([]byte("abc")))
	require.NoError(t, err)
	assert.Equal(t, "image/png", mime)
	assert.Equal(t, []byte("abc"), data)

	_, _, err = decodeDataURL("https://example.com/a.png")
	assert.Error(t, err)
}
