package biz

import (
	"context"

	"github.com/kart-io/legalens/internal/model"
)

const (
	// SummaryFallback 摘要失败时的替代文本。
	SummaryFallback = "Could not generate a summary for this document."
	// EntitiesFallback 实体提取失败时的替代文本。
	EntitiesFallback = "Could not extract key entities from this document."
)

// SummaryStage 生成关键实体列表和叙述性摘要，两个调用互不影响。
type SummaryStage struct {
	gen *generator
}

// Entities 提取 `* Label: Value` 形式的关键实体。
func (s *SummaryStage) Entities(ctx context.Context, text string) Result[string] {
	return From(s.gen.generate(ctx, render(keyEntityPrompt, "document_text", text)))
}

// Summary 按合同类型生成叙述性摘要。
func (s *SummaryStage) Summary(ctx context.Context, category model.Category, text string) Result[string] {
	return From(s.gen.generate(ctx, summaryPromptFor(category, text)))
}
