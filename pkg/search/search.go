// Package search 定义网页搜索抽象。
package search

import "context"

// Result 单条搜索结果。
type Result struct {
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
	URL     string `json:"url"`
}

// Searcher 网页搜索接口。
type Searcher interface {
	// Search 执行查询并返回结果列表。
	Search(ctx context.Context, query string) ([]Result, error)

	// Name 返回搜索后端名称。
	Name() string
}
