package biz

import (
	"context"
	"strings"

	"github.com/kart-io/logger"

	"github.com/kart-io/legalens/internal/model"
)

// DefaultClassifyPrefix 分类时使用的文档前缀长度（字符数）。
const DefaultClassifyPrefix = 3000

// CategoryCache 缓存文档分类结果。
type CategoryCache interface {
	GetCategory(ctx context.Context, text string) (model.Category, bool)
	SetCategory(ctx context.Context, text string, category model.Category)
}

// Classifier 判断合同类型。
type Classifier struct {
	gen    *generator
	prefix int
	cache  CategoryCache
}

// Classify 返回文档类型，任何错误都映射为 unknown。
func (c *Classifier) Classify(ctx context.Context, text string) model.Category {
	if c.cache != nil {
		if cat, ok := c.cache.GetCategory(ctx, text); ok {
			return cat
		}
	}

	label, err := c.gen.generate(ctx, render(classificationPrompt, "document_text", truncateRunes(text, c.prefix)))
	if err != nil {
		logger.Warnw("contract classification failed", "error", err.Error())
		return model.CategoryUnknown
	}

	category := matchCategory(label)
	if c.cache != nil && category.Known() {
		c.cache.SetCategory(ctx, text, category)
	}
	return category
}

// matchCategory 按 rental、employment、loan 顺序做子串匹配。
func matchCategory(label string) model.Category {
	label = strings.ToLower(strings.TrimSpace(label))
	for _, c := range model.KnownCategories {
		if strings.Contains(label, string(c)) {
			return c
		}
	}
	return model.CategoryUnknown
}

func truncateRunes(s string, n int) string {
	if n <= 0 {
		return s
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
