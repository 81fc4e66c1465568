package biz

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/kart-io/legalens/internal/model"
	"github.com/kart-io/legalens/pkg/utils/json"
)

const (
	// SalaryFailedMessage 薪资提取失败。
	SalaryFailedMessage = "Could not perform salary analysis."
	// SalaryNoBasicMessage 基本工资为 0。
	SalaryNoBasicMessage = "Basic Salary could not be determined, cannot calculate in-hand salary."
)

const (
	pfRate               = 0.12
	professionalTax      = 200
	professionalTaxFloor = 15000
	standardDeduction    = 50000
)

// amount 接受数字或带千分位的数字字符串。
type amount float64

func (a *amount) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*a = 0
		return nil
	}
	s := strings.Trim(string(b), `"`)
	s = strings.NewReplacer(",", "", "₹", "", "Rs.", "", " ", "").Replace(s)
	if s == "" {
		*a = 0
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("invalid amount %s", string(b))
	}
	*a = amount(f)
	return nil
}

// SalaryComponents 月度薪资构成。
type SalaryComponents struct {
	BasicSalary      float64
	HRA              float64
	SpecialAllowance float64
}

// ParseSalaryComponents 解析模型返回的薪资 JSON。
func ParseSalaryComponents(raw string) (SalaryComponents, error) {
	var v struct {
		BasicSalary      amount `json:"basic_salary"`
		HRA              amount `json:"hra"`
		SpecialAllowance amount `json:"special_allowance"`
	}
	if err := json.Unmarshal([]byte(stripFences(raw)), &v); err != nil {
		return SalaryComponents{}, fmt.Errorf("decode salary components: %w", err)
	}
	return SalaryComponents{
		BasicSalary:      float64(v.BasicSalary),
		HRA:              float64(v.HRA),
		SpecialAllowance: float64(v.SpecialAllowance),
	}, nil
}

// taxSlab 表示 taxable > above 时的税额 base + rate*(taxable-above)。
type taxSlab struct {
	above float64
	base  float64
	rate  float64
}

// 从高到低排列，边界值归属较低的档位。
var taxSlabs = []taxSlab{
	{above: 1500000, base: 150000, rate: 0.30},
	{above: 1200000, base: 90000, rate: 0.20},
	{above: 900000, base: 45000, rate: 0.15},
	{above: 600000, base: 15000, rate: 0.10},
	{above: 300000, base: 0, rate: 0.05},
}

// AnnualTax 计算应税年收入的所得税。
func AnnualTax(taxable float64) float64 {
	for _, s := range taxSlabs {
		if taxable > s.above {
			return s.base + (taxable-s.above)*s.rate
		}
	}
	return 0
}

func roundRupees(v float64) int64 {
	return int64(math.RoundToEven(v))
}

// CalculateInHandSalary 计算月到手工资，基本工资为 0 时返回错误信息。
func CalculateInHandSalary(c SalaryComponents) model.SalaryAnalysis {
	if c.BasicSalary == 0 {
		return model.SalaryAnalysis{Error: SalaryNoBasicMessage}
	}

	gross := c.BasicSalary + c.HRA + c.SpecialAllowance
	annual := gross * 12

	pf := pfRate * c.BasicSalary
	pt := 0.0
	if gross > professionalTaxFloor {
		pt = professionalTax
	}

	tds := AnnualTax(annual-standardDeduction) / 12
	total := pf + pt + tds

	return model.SalaryAnalysis{
		EstimatedMonthlyInHand: roundRupees(gross - total),
		GrossMonthlySalary:     roundRupees(gross),
		Deductions: &model.SalaryDeductions{
			EmployeePF:      roundRupees(pf),
			ProfessionalTax: roundRupees(pt),
			EstimatedTDS:    roundRupees(tds),
			TotalDeductions: roundRupees(total),
		},
	}
}
