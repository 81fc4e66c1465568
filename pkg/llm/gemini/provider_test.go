package gemini

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/legalens/pkg/llm"
	"github.com/kart-io/legalens/pkg/utils/json"
)

func newTestProvider(t *testing.T, handler http.HandlerFunc) *Provider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := DefaultConfig()
	cfg.BaseURL = srv.URL
	cfg.APIKey = "test-key"
	cfg.MaxRetries = 0
	cfg.Timeout = 5 * time.Second
	return NewProviderWithConfig(cfg)
}

func TestNewProviderRequiresAPIKey(t *testing.T) {
	_, err := NewProvider(map[string]any{})
	assert.Error(t, err)

	p, err := llm.NewProvider(ProviderName, map[string]any{"api_key": "k", "chat_model": "gemini-x"})
	require.NoError(t, err)
	assert.Equal(t, ProviderName, p.Name())
}

func TestGenerate(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models/gemini-2.5-pro:generateContent", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-goog-api-key"))

		var req map[string]any
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &req))
		assert.Contains(t, string(body), `"systemInstruction"`)
		assert.NotContains(t, string(body), `"tools"`)

		_, _ = w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"hello "},{"text":"world"}]}}],
			"usageMetadata":{"promptTokenCount":3,"candidatesTokenCount":2,"totalTokenCount":5}}`))
	})

	resp, err := p.Generate(context.Background(), "hi", "be brief")
	require.NoError(t, err)
	assert.Equal(t, "hello world", resp.Content)
	assert.Equal(t, 5, resp.TokenUsage.TotalTokens)
	assert.False(t, resp.HasToolCalls())
}

func TestGenerateWithToolsReturnsFunctionCall(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		assert.Contains(t, string(body), `"functionDeclarations"`)
		assert.Contains(t, string(body), `"search_web"`)

		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"functionCall":{"name":"search_web","args":{"query":"loan rates"}}}]}}]}`))
	})

	resp, err := p.GenerateWithTools(context.Background(), "compare", []llm.Tool{{
		Name:        "search_web",
		Description: "Searches the internet",
		Parameters:  []llm.ToolParameter{{Name: "query", Type: "string", Required: true}},
	}})
	require.NoError(t, err)
	require.True(t, resp.HasToolCalls())
	assert.Equal(t, "search_web", resp.ToolCalls[0].Name)
	assert.Equal(t, "loan rates", resp.ToolCalls[0].Arguments["query"])
}

func TestGenerateEmptyCandidates(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"candidates":[]}`))
	})

	_, err := p.Generate(context.Background(), "hi", "")
	assert.Error(t, err)
}

func TestEmbed(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models/text-embedding-004:batchEmbedContents", r.URL.Path)
		_, _ = w.Write([]byte(`{"embeddings":[{"values":[0.1,0.2]},{"values":[0.3,0.4]}]}`))
	})

	vecs, err := p.Embed(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{0.1, 0.2}, {0.3, 0.4}}, vecs)

	_, err = p.EmbedSingle(context.Background(), "a")
	assert.Error(t, err, "count mismatch must fail")
}

func TestHTTPErrorPropagates(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})

	_, err := p.Chat(context.Background(), []llm.Message{{Role: llm.RoleUser, Content: "x"}})
	assert.ErrorContains(t, err, "403")
}
