package model

import "github.com/kart-io/legalens/pkg/utils/json"

// RiskLevel 条款风险等级。
type RiskLevel string

const (
	RiskRed     RiskLevel = "Red"
	RiskYellow  RiskLevel = "Yellow"
	RiskGreen   RiskLevel = "Green"
	RiskNeutral RiskLevel = "Neutral"
)

// Valid reports whether r is one of the four risk levels.
func (r RiskLevel) Valid() bool {
	switch r {
	case RiskRed, RiskYellow, RiskGreen, RiskNeutral:
		return true
	}
	return false
}

// RiskJudgment is the structured verdict for a single clause.
type RiskJudgment struct {
	RiskLevel        RiskLevel `json:"risk_level"`
	RiskExplanation  string    `json:"risk_explanation"`
	ActionableAdvice string    `json:"actionable_advice"`
	ClauseCategory   string    `json:"clause_category"`
}

// ClauseAnalysis pairs a clause with its judgment.
type ClauseAnalysis struct {
	OriginalClause string       `json:"original_clause"`
	Analysis       RiskJudgment `json:"analysis"`
}

// SalaryDeductions 月度扣除项。
type SalaryDeductions struct {
	EmployeePF      int64 `json:"employee_pf"`
	ProfessionalTax int64 `json:"professional_tax"`
	EstimatedTDS    int64 `json:"estimated_tds"`
	TotalDeductions int64 `json:"total_deductions"`
}

// SalaryAnalysis is the in-hand salary breakdown, or an error message.
type SalaryAnalysis struct {
	EstimatedMonthlyInHand int64             `json:"estimated_monthly_in_hand"`
	GrossMonthlySalary     int64             `json:"gross_monthly_salary"`
	Deductions             *SalaryDeductions `json:"deductions"`
	Error                  string            `json:"error,omitempty"`
}

// MarshalJSON 输出错误信息或完整的薪资明细，明细中的 0 值照常输出。
func (s SalaryAnalysis) MarshalJSON() ([]byte, error) {
	if s.Error != "" {
		return json.Marshal(struct {
			Error string `json:"error"`
		}{s.Error})
	}
	type breakdown SalaryAnalysis
	return json.Marshal(breakdown(s))
}

// KeyDate is one entry of the document timeline.
type KeyDate struct {
	Date        string `json:"date"`
	Description string `json:"description"`
}

// AnalysisResult is the aggregate produced for a document.
type AnalysisResult struct {
	Category         Category         `json:"category"`
	KeyEntities      string           `json:"key_entities"`
	Summary          string           `json:"summary"`
	DetailedAnalysis []ClauseAnalysis `json:"detailed_analysis"`
	Flowchart        string           `json:"flowchart"`
	SalaryAnalysis   *SalaryAnalysis  `json:"salary_analysis,omitempty"`
	KeyDates         []KeyDate        `json:"key_dates,omitempty"`
}
