package biz

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/legalens/internal/legalens/metrics"
	"github.com/kart-io/legalens/internal/legalens/store"
	"github.com/kart-io/legalens/internal/model"
	apierrors "github.com/kart-io/legalens/pkg/errors"
)

func referenceClauses() []model.ReferenceClause {
	return []model.ReferenceClause{
		{Category: model.CategoryLoan, ClauseText: "Interest of 36% per annum compounded monthly.", RiskLevel: model.RiskRed, RiskExplanation: "Far above market."},
		{Category: model.CategoryRental, ClauseText: "  Deposit refundable within 30 days.  ", RiskLevel: model.RiskGreen, RiskExplanation: "Standard."},
		{Category: model.CategoryRental, ClauseText: "Rent increases 5% annually.", RiskLevel: model.RiskNeutral},
	}
}

func TestValidateClauses(t *testing.T) {
	assert.NoError(t, ValidateClauses(referenceClauses()))

	bad := [][]model.ReferenceClause{
		nil,
		{{Category: "partnership", ClauseText: "x", RiskLevel: model.RiskRed}},
		{{Category: model.CategoryLoan, ClauseText: "x", RiskLevel: "Amber"}},
		{{Category: model.CategoryLoan, ClauseText: "  ", RiskLevel: model.RiskRed}},
	}
	for _, clauses := range bad {
		assert.ErrorIs(t, ValidateClauses(clauses), apierrors.ErrInvalidKnowledge)
	}
}

func TestKnowledgeBase_Seed(t *testing.T) {
	s := store.NewMemoryStore()
	kb := &KnowledgeBase{embedder: &fakeEmbedder{}, store: s, batchSize: 1, metrics: metrics.New()}
	ctx := context.Background()

	n, err := kb.Seed(ctx, referenceClauses())
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, map[string]int64{"rental": 2, "employment": 0, "loan": 1}, kb.Counts(ctx))

	neighbors, err := s.Search(ctx, model.CategoryRental, letterVector("Deposit refundable within 30 days."), 1)
	require.NoError(t, err)
	require.Len(t, neighbors, 1)
	assert.Equal(t, "Deposit refundable within 30 days.", neighbors[0].ClauseText)
}

func TestKnowledgeBase_SeedMissingIsIdempotent(t *testing.T) {
	s := store.NewMemoryStore()
	embedder := &fakeEmbedder{}
	kb := &KnowledgeBase{embedder: embedder, store: s, batchSize: 4, metrics: metrics.New()}
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := kb.SeedMissing(ctx, referenceClauses())
		require.NoError(t, err)
	}
	assert.Equal(t, map[string]int64{"rental": 2, "employment": 0, "loan": 1}, kb.Counts(ctx))
	assert.Equal(t, int64(2), embedder.calls.Load())

	neighbors, err := s.Search(ctx, model.CategoryRental, letterVector("Deposit refundable within 30 days."), 4)
	require.NoError(t, err)
	require.Len(t, neighbors, 2)
	assert.NotEqual(t, neighbors[0].ClauseText, neighbors[1].ClauseText)

	// 新类型的条款仍会写入。
	n, err := kb.SeedMissing(ctx, []model.ReferenceClause{{
		Category:   model.CategoryEmployment,
		ClauseText: "Notice period of thirty days.",
		RiskLevel:  model.RiskGreen,
	}})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestKnowledgeBase_SeedEmbedFailure(t *testing.T) {
	kb := &KnowledgeBase{
		embedder:  &fakeEmbedder{err: errors.New("embedding quota")},
		store:     store.NewMemoryStore(),
		batchSize: 8,
		metrics:   metrics.New(),
	}
	_, err := kb.Seed(context.Background(), referenceClauses())
	assert.Error(t, err)
}

func TestLegalService_IndexClausesErrors(t *testing.T) {
	svc := newTestService(newFakeChat(), Dependencies{Embedder: &fakeEmbedder{err: errors.New("down")}}, nil)

	_, err := svc.IndexClauses(context.Background(), nil)
	assert.ErrorIs(t, err, apierrors.ErrInvalidKnowledge)

	_, err = svc.IndexClauses(context.Background(), referenceClauses())
	assert.ErrorIs(t, err, apierrors.ErrKnowledgeIndexFailed)
}

func TestLoadSeedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.yaml")
	content := `clauses:
  - category: rental
    clause_text: The tenant forfeits the whole deposit on early exit.
    risk_level: Red
    risk_explanation: Forfeiture of the full deposit is excessive.
  - category: employment
    clause_text: Notice period of thirty days.
    risk_level: Green
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	clauses, err := LoadSeedFile(path)
	require.NoError(t, err)
	require.Len(t, clauses, 2)
	assert.Equal(t, model.CategoryRental, clauses[0].Category)
	assert.Equal(t, model.RiskRed, clauses[0].RiskLevel)
	assert.Empty(t, clauses[1].RiskExplanation)

	_, err = LoadSeedFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLegalService_SeedFromFileAndStats(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`clauses:
  - category: loan
    clause_text: Prepayment penalty of 5%.
    risk_level: Yellow
`), 0o600))

	svc := newTestService(newFakeChat(), Dependencies{Searcher: &fakeSearcher{}}, nil)
	n, err := svc.SeedFromFile(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	stats := svc.GetStats(context.Background())
	assert.Equal(t, map[string]int64{"rental": 0, "employment": 0, "loan": 1}, stats["reference_clauses"])
	assert.Equal(t, "fake-chat", stats["chat_provider"])
	assert.Equal(t, "fake-embed", stats["embed_provider"])
	assert.Equal(t, "fake-search", stats["search_provider"])
	assert.Equal(t, map[string]any{"enabled": false}, stats["cache"])

	n, err = svc.SeedFromFile(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Equal(t, map[string]int64{"rental": 0, "employment": 0, "loan": 1}, svc.GetStats(context.Background())["reference_clauses"])
}
