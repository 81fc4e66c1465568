package store

import (
	"context"
	"errors"

	"github.com/kart-io/legalens/internal/model"
)

// ErrDimensionMismatch 向量维度与分区不一致。
var ErrDimensionMismatch = errors.New("embedding dimension mismatch")

// ClauseStore 定义参考条款向量存储接口。
type ClauseStore interface {
	// EnsurePartition 确保类型分区存在。
	EnsurePartition(ctx context.Context, category model.Category, dim int) error

	// Insert 批量写入参考条款及其向量，返回写入条数。
	Insert(ctx context.Context, category model.Category, clauses []model.ReferenceClause, vectors [][]float32) (int, error)

	// Search 返回分区内最相似的 topK 条参考条款，按相似度降序。
	Search(ctx context.Context, category model.Category, vector []float32, topK int) ([]model.Neighbor, error)

	// Count 返回分区内条款数量。
	Count(ctx context.Context, category model.Category) (int64, error)

	// Close 关闭连接。
	Close(ctx context.Context) error
}

func checkBatch(clauses []model.ReferenceClause, vectors [][]float32) error {
	if len(clauses) != len(vectors) {
		return errors.New("clauses and vectors length mismatch")
	}
	return nil
}
