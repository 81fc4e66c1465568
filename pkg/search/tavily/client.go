// Package tavily 实现基于 Tavily Search API 的网页搜索。
package tavily

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	searchopts "github.com/kart-io/legalens/pkg/options/search"
	"github.com/kart-io/legalens/pkg/search"
	"github.com/kart-io/legalens/pkg/utils/httpclient"
)

// ErrMissingAPIKey 未配置 API key。
var ErrMissingAPIKey = errors.New("tavily: api key is required")

// Client Tavily 搜索客户端。
type Client struct {
	baseURL    string
	apiKey     string
	maxResults int
	http       *httpclient.Client
}

// NewClient 根据配置创建客户端。
func NewClient(opts *searchopts.Options) (*Client, error) {
	if opts == nil {
		opts = searchopts.NewOptions()
	}
	if opts.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	return &Client{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		apiKey:     opts.APIKey,
		maxResults: opts.MaxResults,
		http:       httpclient.NewClient(opts.Timeout, opts.MaxRetries, httpclient.WithBackoff(250*time.Millisecond)),
	}, nil
}

// Name 返回搜索后端名称。
func (c *Client) Name() string {
	return "tavily"
}

type searchRequest struct {
	Query       string `json:"query"`
	MaxResults  int    `json:"max_results"`
	SearchDepth string `json:"search_depth"`
}

type searchResponse struct {
	Results []struct {
		Title   string  `json:"title"`
		URL     string  `json:"url"`
		Content string  `json:"content"`
		Score   float64 `json:"score"`
	} `json:"results"`
}

// Search 执行查询，结果按返回顺序映射为 title/snippet/url。
func (c *Client) Search(ctx context.Context, query string) ([]search.Result, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("tavily: empty query")
	}

	req := searchRequest{
		Query:       query,
		MaxResults:  c.maxResults,
		SearchDepth: "basic",
	}
	headers := map[string]string{"Authorization": "Bearer " + c.apiKey}

	var resp searchResponse
	if err := c.http.PostJSON(ctx, c.baseURL+"/search", headers, req, &resp); err != nil {
		return nil, fmt.Errorf("tavily: %w", err)
	}

	results := make([]search.Result, 0, len(resp.Results))
	for _, r := range resp.Results {
		results = append(results, search.Result{
			Title:   r.Title,
			Snippet: r.Content,
			URL:     r.URL,
		})
		if len(results) == c.maxResults {
			break
		}
	}
	return results, nil
}

var _ search.Searcher = (*Client)(nil)
