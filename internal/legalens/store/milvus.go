package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/milvus-io/milvus/client/v2/entity"

	"github.com/kart-io/legalens/internal/model"
	"github.com/kart-io/legalens/pkg/component/milvus"
)

const (
	fieldClauseText      = "clause_text"
	fieldRiskLevel       = "risk_level"
	fieldRiskExplanation = "risk_explanation"
)

var outputFields = []string{fieldClauseText, fieldRiskLevel, fieldRiskExplanation}

// MilvusStore 实现基于 Milvus 的条款存储，每个类型一个集合。
type MilvusStore struct {
	client *milvus.Client
	prefix string

	// ready 记录已确认存在的集合。
	ready sync.Map
}

var _ ClauseStore = (*MilvusStore)(nil)

// NewMilvusStore 创建 Milvus 存储实例。
func NewMilvusStore(client *milvus.Client, collectionPrefix string) *MilvusStore {
	return &MilvusStore{client: client, prefix: collectionPrefix}
}

// CollectionName 返回类型对应的集合名。
func (s *MilvusStore) CollectionName(category model.Category) string {
	return s.prefix + string(category)
}

// EnsurePartition 创建集合（如不存在）。
func (s *MilvusStore) EnsurePartition(ctx context.Context, category model.Category, dim int) error {
	schema := &milvus.CollectionSchema{
		Name:        s.CollectionName(category),
		Description: fmt.Sprintf("reference %s clauses", category),
		Dimension:   dim,
		Metric:      entity.COSINE,
		MetaFields: []milvus.MetaField{
			{Name: fieldClauseText, MaxLen: 8192},
			{Name: fieldRiskLevel, MaxLen: 16},
			{Name: fieldRiskExplanation, MaxLen: 2048},
		},
	}
	if err := s.client.EnsureCollection(ctx, schema); err != nil {
		return err
	}
	s.ready.Store(category, true)
	return nil
}

// exists 检查集合是否存在，存在的结果会被记住。
func (s *MilvusStore) exists(ctx context.Context, category model.Category) (bool, error) {
	if _, ok := s.ready.Load(category); ok {
		return true, nil
	}
	ok, err := s.client.HasCollection(ctx, s.CollectionName(category))
	if err != nil {
		return false, err
	}
	if ok {
		s.ready.Store(category, true)
	}
	return ok, nil
}

// Insert 批量写入参考条款。
func (s *MilvusStore) Insert(ctx context.Context, category model.Category, clauses []model.ReferenceClause, vectors [][]float32) (int, error) {
	if err := checkBatch(clauses, vectors); err != nil {
		return 0, err
	}
	if len(clauses) == 0 {
		return 0, nil
	}

	meta := map[string][]string{
		fieldClauseText:      make([]string, len(clauses)),
		fieldRiskLevel:       make([]string, len(clauses)),
		fieldRiskExplanation: make([]string, len(clauses)),
	}
	for i, c := range clauses {
		meta[fieldClauseText][i] = c.ClauseText
		meta[fieldRiskLevel][i] = string(c.RiskLevel)
		meta[fieldRiskExplanation][i] = c.RiskExplanation
	}

	n, err := s.client.Insert(ctx, s.CollectionName(category), &milvus.InsertData{
		Embeddings: vectors,
		Metadata:   meta,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to insert into milvus: %w", err)
	}
	return n, nil
}

// Search 执行向量相似度搜索。COSINE 分数越大越相似，Milvus 已按降序返回。
// 分区尚未建立时返回空结果。
func (s *MilvusStore) Search(ctx context.Context, category model.Category, vector []float32, topK int) ([]model.Neighbor, error) {
	ok, err := s.exists(ctx, category)
	if err != nil {
		return nil, fmt.Errorf("failed to search milvus: %w", err)
	}
	if !ok {
		return []model.Neighbor{}, nil
	}

	hits, err := s.client.Search(ctx, s.CollectionName(category), vector, topK, outputFields)
	if err != nil {
		return nil, fmt.Errorf("failed to search milvus: %w", err)
	}

	neighbors := make([]model.Neighbor, 0, len(hits))
	for _, h := range hits {
		neighbors = append(neighbors, model.Neighbor{
			ClauseText:      h.Metadata[fieldClauseText],
			RiskLevel:       h.Metadata[fieldRiskLevel],
			RiskExplanation: h.Metadata[fieldRiskExplanation],
			Score:           h.Score,
		})
	}
	return neighbors, nil
}

// Count 获取集合条款数。
func (s *MilvusStore) Count(ctx context.Context, category model.Category) (int64, error) {
	ok, err := s.exists(ctx, category)
	if err != nil || !ok {
		return 0, err
	}
	return s.client.CountRows(ctx, s.CollectionName(category))
}

// Close 关闭 Milvus 连接。
func (s *MilvusStore) Close(ctx context.Context) error {
	return s.client.Close(ctx)
}
