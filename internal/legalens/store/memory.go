package store

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/kart-io/legalens/internal/model"
)

type memoryRecord struct {
	clause model.ReferenceClause
	vector []float32
	norm   float64
}

type memoryPartition struct {
	dim     int
	records []memoryRecord
}

// MemoryStore 是进程内的余弦相似度存储，用于开发和测试。
type MemoryStore struct {
	mu         sync.RWMutex
	partitions map[model.Category]*memoryPartition
}

var _ ClauseStore = (*MemoryStore)(nil)

// NewMemoryStore 创建内存存储。
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{partitions: make(map[model.Category]*memoryPartition)}
}

// EnsurePartition 创建分区（如不存在）。
func (s *MemoryStore) EnsurePartition(_ context.Context, category model.Category, dim int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p, ok := s.partitions[category]; ok {
		if p.dim != dim {
			return fmt.Errorf("%w: partition %s has %d, got %d", ErrDimensionMismatch, category, p.dim, dim)
		}
		return nil
	}
	s.partitions[category] = &memoryPartition{dim: dim}
	return nil
}

// Insert 写入参考条款。
func (s *MemoryStore) Insert(_ context.Context, category model.Category, clauses []model.ReferenceClause, vectors [][]float32) (int, error) {
	if err := checkBatch(clauses, vectors); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.partitions[category]
	if !ok {
		return 0, fmt.Errorf("partition %s does not exist", category)
	}
	// 先校验整批维度，失败时不写入任何记录。
	for _, v := range vectors {
		if len(v) != p.dim {
			return 0, fmt.Errorf("%w: partition %s has %d, got %d", ErrDimensionMismatch, category, p.dim, len(v))
		}
	}
	for i, v := range vectors {
		p.records = append(p.records, memoryRecord{clause: clauses[i], vector: v, norm: norm(v)})
	}
	return len(clauses), nil
}

// Search 返回余弦相似度最高的 topK 条。缺失分区返回空结果。
func (s *MemoryStore) Search(_ context.Context, category model.Category, vector []float32, topK int) ([]model.Neighbor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.partitions[category]
	if !ok || topK <= 0 {
		return []model.Neighbor{}, nil
	}
	if len(vector) != p.dim {
		return nil, fmt.Errorf("%w: partition %s has %d, got %d", ErrDimensionMismatch, category, p.dim, len(vector))
	}

	qn := norm(vector)
	neighbors := make([]model.Neighbor, 0, len(p.records))
	for _, r := range p.records {
		neighbors = append(neighbors, model.Neighbor{
			ClauseText:      r.clause.ClauseText,
			RiskLevel:       string(r.clause.RiskLevel),
			RiskExplanation: r.clause.RiskExplanation,
			Score:           cosine(vector, r.vector, qn, r.norm),
		})
	}
	sort.SliceStable(neighbors, func(i, j int) bool {
		return neighbors[i].Score > neighbors[j].Score
	})
	if len(neighbors) > topK {
		neighbors = neighbors[:topK]
	}
	return neighbors, nil
}

// Count 返回分区条款数。
func (s *MemoryStore) Count(_ context.Context, category model.Category) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if p, ok := s.partitions[category]; ok {
		return int64(len(p.records)), nil
	}
	return 0, nil
}

// Close is a no-op.
func (s *MemoryStore) Close(context.Context) error {
	return nil
}

func norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

func cosine(a, b []float32, na, nb float64) float32 {
	if na == 0 || nb == 0 {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return float32(dot / (na * nb))
}
