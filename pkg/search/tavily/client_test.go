package tavily

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	searchopts "github.com/kart-io/legalens/pkg/options/search"
	"github.com/kart-io/legalens/pkg/search"
	"github.com/kart-io/legalens/pkg/utils/json"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	opts := searchopts.NewOptions()
	opts.BaseURL = srv.URL
	opts.APIKey = "tvly-test"
	opts.MaxResults = 2
	opts.MaxRetries = 0
	c, err := NewClient(opts)
	require.NoError(t, err)
	return c
}

func TestNewClientRequiresKey(t *testing.T) {
	_, err := NewClient(searchopts.NewOptions())
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestSearchMapsResults(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "Bearer tvly-test", r.Header.Get("Authorization"))

		var req searchRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "personal loan rates", req.Query)
		assert.Equal(t, 2, req.MaxResults)

		_, _ = w.Write([]byte(`{"results":[
			{"title":"Bank A","url":"https://a.example","content":"10.5% p.a."},
			{"title":"Bank B","url":"https://b.example","content":"11% p.a."},
			{"title":"Bank C","url":"https://c.example","content":"12% p.a."}]}`))
	})

	results, err := c.Search(context.Background(), "personal loan rates")
	require.NoError(t, err)
	assert.Equal(t, []search.Result{
		{Title: "Bank A", Snippet: "10.5% p.a.", URL: "https://a.example"},
		{Title: "Bank B", Snippet: "11% p.a.", URL: "https://b.example"},
	}, results)
	assert.Equal(t, "tavily", c.Name())
}

func TestSearchErrors(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := c.Search(context.Background(), "q")
	assert.ErrorContains(t, err, "401")

	_, err = c.Search(context.Background(), "  ")
	assert.ErrorContains(t, err, "empty query")
}
