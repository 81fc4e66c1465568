package biz

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/kart-io/logger"
	"gopkg.in/yaml.v3"

	"github.com/kart-io/legalens/internal/legalens/metrics"
	"github.com/kart-io/legalens/internal/legalens/store"
	"github.com/kart-io/legalens/internal/model"
	apierrors "github.com/kart-io/legalens/pkg/errors"
	"github.com/kart-io/legalens/pkg/llm"
)

// DefaultSeedBatchSize 每批嵌入的条款数。
const DefaultSeedBatchSize = 32

// seedFile 种子文件格式。
type seedFile struct {
	Clauses []model.ReferenceClause `yaml:"clauses"`
}

// LoadSeedFile 读取 YAML 种子文件。
func LoadSeedFile(path string) ([]model.ReferenceClause, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	var f seedFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse seed file %s: %w", path, err)
	}
	return f.Clauses, nil
}

// ValidateClauses 校验参考条款的类型、风险等级和文本。
func ValidateClauses(clauses []model.ReferenceClause) error {
	if len(clauses) == 0 {
		return apierrors.ErrInvalidKnowledge.WithMessage("clauses must not be empty")
	}
	for i, c := range clauses {
		if !c.Category.Known() {
			return apierrors.ErrInvalidKnowledge.WithMessagef("clause %d: unsupported category %q", i, c.Category)
		}
		if !c.RiskLevel.Valid() {
			return apierrors.ErrInvalidKnowledge.WithMessagef("clause %d: invalid risk_level %q", i, c.RiskLevel)
		}
		if strings.TrimSpace(c.ClauseText) == "" {
			return apierrors.ErrInvalidKnowledge.WithMessagef("clause %d: clause_text is required", i)
		}
	}
	return nil
}

// KnowledgeBase 将参考条款写入各类型分区。
type KnowledgeBase struct {
	embedder  llm.EmbeddingProvider
	store     store.ClauseStore
	batchSize int
	metrics   *metrics.AnalysisMetrics
}

// Seed 按类型分组、分批嵌入并写入，返回写入条数。
func (kb *KnowledgeBase) Seed(ctx context.Context, clauses []model.ReferenceClause) (int, error) {
	return kb.seed(ctx, clauses, false)
}

// SeedMissing 与 Seed 相同，但跳过已有条款的分区，重复启动不会写入重复数据。
func (kb *KnowledgeBase) SeedMissing(ctx context.Context, clauses []model.ReferenceClause) (int, error) {
	return kb.seed(ctx, clauses, true)
}

func (kb *KnowledgeBase) seed(ctx context.Context, clauses []model.ReferenceClause, skipPopulated bool) (int, error) {
	if err := ValidateClauses(clauses); err != nil {
		return 0, err
	}

	groups := make(map[model.Category][]model.ReferenceClause, len(model.KnownCategories))
	for _, c := range clauses {
		c.ClauseText = strings.TrimSpace(c.ClauseText)
		groups[c.Category] = append(groups[c.Category], c)
	}

	inserted := 0
	for _, category := range model.KnownCategories {
		if len(groups[category]) == 0 {
			continue
		}
		if skipPopulated {
			existing, err := kb.store.Count(ctx, category)
			if err != nil {
				kb.metrics.RecordIndexing(0, err)
				return inserted, fmt.Errorf("count %s clauses: %w", category, err)
			}
			if existing > 0 {
				logger.Infow("reference partition already populated, skipping seed", "category", category, "count", existing)
				continue
			}
		}
		n, err := kb.seedCategory(ctx, category, groups[category])
		inserted += n
		if err != nil {
			kb.metrics.RecordIndexing(0, err)
			return inserted, fmt.Errorf("seed %s clauses: %w", category, err)
		}
	}
	kb.metrics.RecordIndexing(inserted, nil)
	logger.Infow("reference clauses indexed", "count", inserted)
	return inserted, nil
}

func (kb *KnowledgeBase) seedCategory(ctx context.Context, category model.Category, clauses []model.ReferenceClause) (int, error) {
	inserted := 0
	for start := 0; start < len(clauses); start += kb.batchSize {
		end := min(start+kb.batchSize, len(clauses))
		batch := clauses[start:end]

		texts := make([]string, len(batch))
		for i, c := range batch {
			texts[i] = c.ClauseText
		}
		vectors, err := kb.embedder.Embed(ctx, texts)
		if err != nil {
			return inserted, fmt.Errorf("embed batch: %w", err)
		}
		if len(vectors) != len(batch) || len(vectors[0]) == 0 {
			return inserted, fmt.Errorf("embedder returned %d vectors for %d clauses", len(vectors), len(batch))
		}

		if start == 0 {
			if err := kb.store.EnsurePartition(ctx, category, len(vectors[0])); err != nil {
				return inserted, fmt.Errorf("ensure partition: %w", err)
			}
		}
		n, err := kb.store.Insert(ctx, category, batch, vectors)
		if err != nil {
			return inserted, err
		}
		inserted += n
		logger.Debugw("indexed clause batch", "category", category, "batch", len(batch))
	}
	return inserted, nil
}

// Counts 返回各分区的条款数。
func (kb *KnowledgeBase) Counts(ctx context.Context) map[string]int64 {
	counts := make(map[string]int64, len(model.KnownCategories))
	for _, c := range model.KnownCategories {
		n, err := kb.store.Count(ctx, c)
		if err != nil {
			logger.Warnw("failed to count reference clauses", "category", c, "error", err.Error())
			continue
		}
		counts[string(c)] = n
	}
	return counts
}
