package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/docintake/internal/common"
	"github.com/joseph-ayodele/docintake/internal/llm"
)

func chatResponse(content string) string {
	b, _ := json.Marshal(map[string]any{
		"choices": []map[string]any{{"message": map[string]any{"role": "assistant", "content": content}}},
	})
	return string(b)
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Config{APIKey: "sk-test", BaseURL: srv.URL + "/v1"}, nil)
}

func TestExtractDetails_Success(t *testing.T) {
	var body map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		_, _ = w.Write([]byte(chatResponse(`{"tipo_documento": "Nota Fiscal", "valor_total": 99.9}`)))
	})

	out, err := c.ExtractDetails(context.Background(), "NOTA FISCAL")
	require.NoError(t, err)
	assert.Equal(t, "Nota Fiscal", out["tipo_documento"])
	assert.Equal(t, 99.9, out["valor_total"])

	assert.Equal(t, DefaultModel, body["model"])
	assert.Equal(t, float64(0), body["temperature"])
	assert.Equal(t, map[string]any{"type": "json_object"}, body["response_format"])
	msgs, ok := body["messages"].([]any)
	require.True(t, ok)
	require.Len(t, msgs, 2)
	assert.Equal(t, llm.SystemPrompt, msgs[0].(map[string]any)["content"])
}

func TestExtractDetails_Failures(t *testing.T) {
	tests := map[string]http.HandlerFunc{
		"non-2xx": func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, `{"error":"boom"}`, http.StatusInternalServerError)
		},
		"not json": func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("<html>"))
		},
		"empty choices": func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"choices": []}`))
		},
		"content not json": func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(chatResponse("Claro! Aqui está")))
		},
		"content not object": func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(chatResponse(`["a"]`)))
		},
		"nested values": func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(chatResponse(`{"emitente": {"nome": "ACME"}}`)))
		},
	}
	for name, h := range tests {
		t.Run(name, func(t *testing.T) {
			c := newTestClient(t, h)
			out, err := c.ExtractDetails(context.Background(), "texto")
			require.Error(t, err)
			assert.Nil(t, out)
			assert.ErrorIs(t, err, common.ErrEnrichmentFailed)
		})
	}
}

func TestExtractDetails_StatusInError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "quota", http.StatusTooManyRequests)
	})
	_, err := c.ExtractDetails(context.Background(), "texto")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestExtractDetails_RateLimited(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(chatResponse(`{}`)))
	}))
	defer srv.Close()
	c := NewClient(Config{APIKey: "k", BaseURL: srv.URL, RateLimit: 1000}, nil)

	for i := 0; i < 3; i++ {
		_, err := c.ExtractDetails(context.Background(), "texto")
		require.NoError(t, err)
	}
	assert.Equal(t, int32(3), calls.Load())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.ExtractDetails(ctx, "texto")
	assert.ErrorIs(t, err, common.ErrEnrichmentFailed)
}
