package ollama

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/legalens/pkg/llm"
)

func TestOllamaChatAndEmbed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/chat":
			_, _ = w.Write([]byte(`{"message":{"role":"assistant","content":"Loan"},"done":true,"prompt_eval_count":7,"eval_count":1}`))
		case "/api/embed":
			_, _ = w.Write([]byte(`{"embeddings":[[0.5,0.5]]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	p, err := llm.NewProvider(ProviderName, map[string]any{"base_url": srv.URL + "/", "max_retries": 0})
	require.NoError(t, err)

	resp, err := p.Generate(context.Background(), "classify", "")
	require.NoError(t, err)
	assert.Equal(t, "Loan", resp.Content)
	assert.Equal(t, 8, resp.TokenUsage.TotalTokens)

	vec, err := p.EmbedSingle(context.Background(), "clause")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.5, 0.5}, vec)
}

func TestOllamaDoesNotSupportTools(t *testing.T) {
	_, err := llm.NewToolCaller(ProviderName, nil)
	assert.Error(t, err)
}
