package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/legalens/pkg/utils/json"
)

func TestSalaryAnalysis_MarshalKeepsZeroAmounts(t *testing.T) {
	data, err := json.Marshal(SalaryAnalysis{
		GrossMonthlySalary: 1000,
		Deductions:         &SalaryDeductions{EmployeePF: 1000, TotalDeductions: 1000},
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"estimated_monthly_in_hand": 0,
		"gross_monthly_salary": 1000,
		"deductions": {"employee_pf": 1000, "professional_tax": 0, "estimated_tds": 0, "total_deductions": 1000}
	}`, string(data))

	var back SalaryAnalysis
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, int64(1000), back.Deductions.TotalDeductions)
}

func TestSalaryAnalysis_MarshalError(t *testing.T) {
	data, err := json.Marshal(&SalaryAnalysis{Error: "Could not perform salary analysis."})
	require.NoError(t, err)
	assert.JSONEq(t, `{"error": "Could not perform salary analysis."}`, string(data))
}

func TestLoanComparisonResponse_Marshal(t *testing.T) {
	data, err := json.Marshal(LoanComparisonResponse{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"answer": ""}`, string(data))

	data, err = json.Marshal(&LoanComparisonResponse{Comparison: "SBI is cheaper.", Searched: true})
	require.NoError(t, err)
	assert.JSONEq(t, `{"comparison": "SBI is cheaper."}`, string(data))
}
