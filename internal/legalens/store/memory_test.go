package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/legalens/internal/model"
)

func seedMemory(t *testing.T) *MemoryStore {
	t.Helper()
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.EnsurePartition(ctx, model.CategoryRental, 2))

	clauses := []model.ReferenceClause{
		{Category: model.CategoryRental, ClauseText: "deposit", RiskLevel: model.RiskYellow, RiskExplanation: "high deposit"},
		{Category: model.CategoryRental, ClauseText: "rent", RiskLevel: model.RiskGreen, RiskExplanation: "fair rent"},
		{Category: model.CategoryRental, ClauseText: "eviction", RiskLevel: model.RiskRed, RiskExplanation: "no notice"},
	}
	vectors := [][]float32{{1, 0}, {0, 1}, {0.9, 0.1}}
	n, err := s.Insert(ctx, model.CategoryRental, clauses, vectors)
	require.NoError(t, err)
	require.Equal(t, 3, n)
	return s
}

func TestMemoryStore_SearchOrdersBySimilarity(t *testing.T) {
	s := seedMemory(t)

	got, err := s.Search(context.Background(), model.CategoryRental, []float32{1, 0}, 4)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "deposit", got[0].ClauseText)
	assert.Equal(t, "eviction", got[1].ClauseText)
	assert.Equal(t, "rent", got[2].ClauseText)
	assert.InDelta(t, 1.0, got[0].Score, 1e-6)
	assert.GreaterOrEqual(t, got[1].Score, got[2].Score)
}

func TestMemoryStore_SearchTopK(t *testing.T) {
	s := seedMemory(t)

	got, err := s.Search(context.Background(), model.CategoryRental, []float32{0, 1}, 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "rent", got[0].ClauseText)
	assert.Equal(t, "Green", got[0].RiskLevel)
}

func TestMemoryStore_PartitionsAreIsolated(t *testing.T) {
	s := seedMemory(t)
	ctx := context.Background()

	got, err := s.Search(ctx, model.CategoryLoan, []float32{1, 0}, 4)
	require.NoError(t, err)
	assert.Empty(t, got)

	n, err := s.Count(ctx, model.CategoryLoan)
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = s.Count(ctx, model.CategoryRental)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestMemoryStore_DimensionMismatch(t *testing.T) {
	s := seedMemory(t)
	ctx := context.Background()

	_, err := s.Search(ctx, model.CategoryRental, []float32{1, 0, 0}, 4)
	assert.ErrorIs(t, err, ErrDimensionMismatch)

	err = s.EnsurePartition(ctx, model.CategoryRental, 3)
	assert.ErrorIs(t, err, ErrDimensionMismatch)

	_, err = s.Insert(ctx, model.CategoryRental, []model.ReferenceClause{{}}, [][]float32{{1}})
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestMemoryStore_MixedBatchIsRejectedWhole(t *testing.T) {
	s := seedMemory(t)
	ctx := context.Background()

	clauses := []model.ReferenceClause{
		{Category: model.CategoryRental, ClauseText: "late fee"},
		{Category: model.CategoryRental, ClauseText: "pets"},
	}
	n, err := s.Insert(ctx, model.CategoryRental, clauses, [][]float32{{1, 1}, {1, 1, 1}})
	assert.ErrorIs(t, err, ErrDimensionMismatch)
	assert.Zero(t, n)

	count, err := s.Count(ctx, model.CategoryRental)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
}

func TestMemoryStore_InsertRequiresPartition(t *testing.T) {
	s := NewMemoryStore()
	_, err := s.Insert(context.Background(), model.CategoryLoan, []model.ReferenceClause{{}}, [][]float32{{1}})
	assert.Error(t, err)

	_, err = s.Insert(context.Background(), model.CategoryLoan, []model.ReferenceClause{{}}, nil)
	assert.Error(t, err)
}
