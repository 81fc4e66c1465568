package biz

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kart-io/legalens/internal/legalens/metrics"
	"github.com/kart-io/legalens/internal/legalens/store"
	"github.com/kart-io/legalens/internal/model"
	"github.com/kart-io/legalens/pkg/llm"
)

// DefaultTopK 每个条款检索的参考条款数。
const DefaultTopK = 4

const missingMetadata = "N/A"

// RetrievalContextBuilder 检索相似参考条款并渲染为专家上下文。
type RetrievalContextBuilder struct {
	embedder llm.EmbeddingProvider
	store    store.ClauseStore
	topK     int
	timeout  time.Duration
	metrics  *metrics.AnalysisMetrics
}

// Build 返回条款的专家上下文，检索出错时原样返回错误。
func (b *RetrievalContextBuilder) Build(ctx context.Context, category model.Category, clause string) (string, error) {
	neighbors, err := b.Retrieve(ctx, category, clause)
	if err != nil {
		return "", err
	}
	return RenderNeighbors(neighbors), nil
}

// Retrieve 嵌入条款并在类型分区内检索 topK 个邻居。
func (b *RetrievalContextBuilder) Retrieve(ctx context.Context, category model.Category, clause string) ([]model.Neighbor, error) {
	if b.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.timeout)
		defer cancel()
	}

	start := time.Now()
	neighbors, err := b.retrieve(ctx, category, clause)
	b.metrics.RecordRetrieval(time.Since(start), err)
	return neighbors, err
}

func (b *RetrievalContextBuilder) retrieve(ctx context.Context, category model.Category, clause string) ([]model.Neighbor, error) {
	vector, err := b.embedder.EmbedSingle(ctx, clause)
	if err != nil {
		return nil, fmt.Errorf("embed clause: %w", err)
	}
	neighbors, err := b.store.Search(ctx, category, vector, b.topK)
	if err != nil {
		return nil, fmt.Errorf("query %s partition: %w", category, err)
	}
	if len(neighbors) > b.topK {
		neighbors = neighbors[:b.topK]
	}
	return neighbors, nil
}

// RenderNeighbors 将邻居渲染为三行模板，缺失的元数据写作 N/A。
func RenderNeighbors(neighbors []model.Neighbor) string {
	var sb strings.Builder
	for _, n := range neighbors {
		fmt.Fprintf(&sb, "- Context: '%s'\n  - Risk: %s\n  - Explanation: %s\n",
			orNA(n.ClauseText), orNA(n.RiskLevel), orNA(n.RiskExplanation))
	}
	return sb.String()
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return missingMetadata
	}
	return s
}
