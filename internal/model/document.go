// Package model provides data models for the legalens service.
package model

import (
	"strings"

	"github.com/kart-io/legalens/pkg/utils/json"
)

// Category 合同类型。
type Category string

const (
	CategoryRental     Category = "rental"
	CategoryEmployment Category = "employment"
	CategoryLoan       Category = "loan"
	CategoryUnknown    Category = "unknown"
)

// KnownCategories lists the supported categories in classification order.
var KnownCategories = []Category{CategoryRental, CategoryEmployment, CategoryLoan}

// ParseCategory maps a label to a known category, or CategoryUnknown.
func ParseCategory(s string) Category {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, c := range KnownCategories {
		if s == string(c) {
			return c
		}
	}
	return CategoryUnknown
}

// Known reports whether c is one of the supported categories.
func (c Category) Known() bool {
	return c == CategoryRental || c == CategoryEmployment || c == CategoryLoan
}

func (c Category) String() string {
	return string(c)
}

// AnalyzeRequest is the body of an analysis request.
type AnalyzeRequest struct {
	Text string `json:"text"`
}

// ChatRequest is the body of a follow-up question.
// DetailedAnalysis is passed through to the prompt as received.
type ChatRequest struct {
	Summary          string          `json:"summary"`
	DetailedAnalysis json.RawMessage `json:"detailedAnalysis"`
	Question         string          `json:"question"`
}

// ChatResponse carries the chatbot answer.
type ChatResponse struct {
	Answer string `json:"answer"`
}

// LoanComparisonRequest is the body of a loan comparison request.
type LoanComparisonRequest struct {
	Summary string `json:"summary"`
}

// LoanComparisonResponse holds either a tool-backed comparison or a direct answer.
// Searched 为 true 时输出 comparison，否则输出 answer，空字符串也会输出。
type LoanComparisonResponse struct {
	Comparison string `json:"comparison,omitempty"`
	Answer     string `json:"answer,omitempty"`
	Searched   bool   `json:"-"`
}

// MarshalJSON 只输出 comparison 与 answer 中的一个。
func (r LoanComparisonResponse) MarshalJSON() ([]byte, error) {
	if r.Searched {
		return json.Marshal(map[string]string{"comparison": r.Comparison})
	}
	return json.Marshal(map[string]string{"answer": r.Answer})
}
