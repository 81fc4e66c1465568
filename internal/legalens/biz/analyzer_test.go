package biz

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/legalens/internal/model"
)

func TestParseJudgment(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    model.RiskLevel
		wantErr bool
	}{
		{name: "plain", raw: validJudgment, want: model.RiskYellow},
		{name: "fenced", raw: "```json\n" + validJudgment + "\n```", want: model.RiskYellow},
		{
			name: "lowercase level",
			raw:  `{"risk_level": "red", "risk_explanation": "Forfeits the full deposit.", "actionable_advice": "Cap it.", "clause_category": "Security Deposit"}`,
			want: model.RiskRed,
		},
		{
			name:    "unknown level",
			raw:     `{"risk_level": "Orange", "risk_explanation": "a", "actionable_advice": "b", "clause_category": "c"}`,
			wantErr: true,
		},
		{
			name:    "missing advice",
			raw:     `{"risk_level": "Green", "risk_explanation": "a", "clause_category": "c"}`,
			wantErr: true,
		},
		{
			name:    "empty category",
			raw:     `{"risk_level": "Green", "risk_explanation": "a", "actionable_advice": "b", "clause_category": "  "}`,
			wantErr: true,
		},
		{
			name:    "non string field",
			raw:     `{"risk_level": "Green", "risk_explanation": 3, "actionable_advice": "b", "clause_category": "c"}`,
			wantErr: true,
		},
		{
			name:    "placeholder explanation",
			raw:     `{"risk_level": "Neutral", "risk_explanation": "N/A", "actionable_advice": "b", "clause_category": "c"}`,
			wantErr: true,
		},
		{
			name:    "no context explanation",
			raw:     `{"risk_level": "Neutral", "risk_explanation": "No context provided.", "actionable_advice": "b", "clause_category": "c"}`,
			wantErr: true,
		},
		{name: "not json", raw: "The clause looks risky.", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			j, err := ParseJudgment(tt.raw)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidJudgment)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, j.RiskLevel)
			assert.NotEmpty(t, j.RiskExplanation)
			assert.NotEmpty(t, j.ActionableAdvice)
			assert.NotEmpty(t, j.ClauseCategory)
		})
	}
}

func TestClauseAnalyzer_PromptCarriesContext(t *testing.T) {
	chat := newFakeChat().on("clause", validJudgment)
	a := &ClauseAnalyzer{gen: newGenerator(chat, 0, nil)}

	j, err := a.Analyze(context.Background(), model.CategoryLoan, "Interest of 24% per annum.", "- Context: 'x'\n")
	require.NoError(t, err)
	assert.Equal(t, "Termination", j.ClauseCategory)

	prompts := chat.promptsFor("clause")
	require.Len(t, prompts, 1)
	assert.Contains(t, prompts[0], "Indian loan agreements")
	assert.Contains(t, prompts[0], "RBI guidelines")
	assert.Contains(t, prompts[0], `"""Interest of 24% per annum."""`)
	assert.Contains(t, prompts[0], "- Context: 'x'")
}

func TestClauseAnalyzer_GenerationError(t *testing.T) {
	a := &ClauseAnalyzer{gen: newGenerator(newFakeChat(), 0, nil)}
	_, err := a.Analyze(context.Background(), model.CategoryRental, "clause", "")
	assert.ErrorIs(t, err, errModelDown)
}
