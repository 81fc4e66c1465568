package biz

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/legalens/internal/legalens/metrics"
	apierrors "github.com/kart-io/legalens/pkg/errors"
	"github.com/kart-io/legalens/pkg/llm"
	"github.com/kart-io/legalens/pkg/search"
)

const loanSummary = "Priya borrows Rs. 10,00,000 from Rajesh at an interest rate of 12% per annum, repayable over 24 months."

func newLoanAgent(chat *fakeChat, tools llm.ToolCaller, searcher search.Searcher) *LoanAgent {
	m := metrics.New()
	return &LoanAgent{
		gen:      newGenerator(chat, 0, m),
		tools:    tools,
		searcher: searcher,
		query:    DefaultLoanSearchQuery,
		metrics:  m,
	}
}

func TestExtractInterestRate(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"interest rate of 12% per annum", 12, true},
		{"Loan at 10.5% simple interest", 10.5, true},
		{"**Interest Rate:** 9 % per annum", 9, true},
		{"A processing fee of 2% applies.", 0, false},
		{"no numbers here", 0, false},
	}
	for _, tt := range tests {
		got, ok := ExtractInterestRate(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.InDelta(t, tt.want, got, 1e-9, tt.in)
	}
}

func TestLoanAgent_ToolRound(t *testing.T) {
	chat := newFakeChat().on("loan-followup", "SBI offers 10.5%, which is lower than your 12%.")
	tools := &fakeTools{resp: &llm.GenerateResponse{
		ToolCalls: []llm.ToolCall{{Name: SearchToolName, Arguments: map[string]any{"query": "personal loan rates India"}}},
	}}
	searcher := &fakeSearcher{results: []search.Result{
		{Title: "SBI", Snippet: "10.5% p.a.", URL: "https://sbi.example"},
	}}
	agent := newLoanAgent(chat, tools, searcher)

	resp, trace, err := agent.compare(context.Background(), loanSummary)
	require.NoError(t, err)
	assert.Equal(t, "SBI offers 10.5%, which is lower than your 12%.", resp.Comparison)
	assert.Empty(t, resp.Answer)
	assert.True(t, resp.Searched)
	assert.Equal(t, []LoanState{AwaitingToolDecision, ToolRequested, ExecuteTool, AwaitingFinalAnswer, Done}, trace)

	assert.Equal(t, []string{"personal loan rates India"}, searcher.queries)
	require.Len(t, tools.tools, 1)
	assert.Equal(t, SearchToolName, tools.tools[0].Name)

	followup := chat.promptsFor("loan-followup")
	require.Len(t, followup, 1)
	assert.Contains(t, followup[0], "The agreement interest rate is 12%.")
	assert.Contains(t, followup[0], `"snippet":"10.5% p.a."`)
}

func TestLoanAgent_DirectAnswer(t *testing.T) {
	tools := &fakeTools{resp: &llm.GenerateResponse{Content: "12% is about average."}}
	searcher := &fakeSearcher{}
	agent := newLoanAgent(newFakeChat(), tools, searcher)

	resp, trace, err := agent.compare(context.Background(), loanSummary)
	require.NoError(t, err)
	assert.Equal(t, "12% is about average.", resp.Answer)
	assert.Empty(t, resp.Comparison)
	assert.False(t, resp.Searched)
	assert.Equal(t, []LoanState{AwaitingToolDecision, DirectAnswer, Done}, trace)
	assert.Empty(t, searcher.queries)
}

func TestLoanAgent_UnknownToolIsDirectAnswer(t *testing.T) {
	tools := &fakeTools{resp: &llm.GenerateResponse{
		Content:   "Rates vary.",
		ToolCalls: []llm.ToolCall{{Name: "calculator"}},
	}}
	searcher := &fakeSearcher{}
	agent := newLoanAgent(newFakeChat(), tools, searcher)

	resp, err := agent.Compare(context.Background(), loanSummary)
	require.NoError(t, err)
	assert.Equal(t, "Rates vary.", resp.Answer)
	assert.Empty(t, searcher.queries)
}

func TestLoanAgent_DefaultQueryWhenArgumentMissing(t *testing.T) {
	chat := newFakeChat().on("loan-followup", "ok")
	tools := &fakeTools{resp: &llm.GenerateResponse{ToolCalls: []llm.ToolCall{{Name: SearchToolName}}}}
	searcher := &fakeSearcher{}
	agent := newLoanAgent(chat, tools, searcher)

	_, err := agent.Compare(context.Background(), loanSummary)
	require.NoError(t, err)
	assert.Equal(t, []string{DefaultLoanSearchQuery}, searcher.queries)
}

func TestLoanAgent_RateNotFound(t *testing.T) {
	tools := &fakeTools{}
	agent := newLoanAgent(newFakeChat(), tools, &fakeSearcher{})

	_, err := agent.Compare(context.Background(), "Priya borrows money from Rajesh.")
	assert.ErrorIs(t, err, apierrors.ErrRateNotFound)
	assert.Zero(t, tools.calls)

	_, err = agent.Compare(context.Background(), "  ")
	assert.ErrorIs(t, err, apierrors.ErrInvalidLoanRequest)
}

func TestLoanAgent_SearchFailure(t *testing.T) {
	tools := &fakeTools{resp: &llm.GenerateResponse{ToolCalls: []llm.ToolCall{{Name: SearchToolName}}}}
	searcher := &fakeSearcher{err: errors.New("quota exceeded")}
	agent := newLoanAgent(newFakeChat(), tools, searcher)

	_, err := agent.Compare(context.Background(), loanSummary)
	assert.ErrorIs(t, err, apierrors.ErrGenerationFailed)
}

func TestLoanAgent_WithoutToolCaller(t *testing.T) {
	agent := newLoanAgent(newFakeChat(), nil, &fakeSearcher{})
	_, err := agent.Compare(context.Background(), loanSummary)
	assert.ErrorIs(t, err, apierrors.ErrGenerationFailed)
}
