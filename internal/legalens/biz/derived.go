package biz

import (
	"context"
	"strings"
	"time"

	"github.com/kart-io/legalens/internal/model"
	"github.com/kart-io/legalens/pkg/utils/json"
)

// FlowchartFallback 流程图生成失败时的单节点图。
const FlowchartFallback = "graph TD;\n    A[Error generating flowchart];"

// DerivedStage 基于摘要或原文的派生产物：流程图、薪资、关键日期。
type DerivedStage struct {
	gen *generator
}

// Flowchart 由摘要生成 mermaid 流程图代码。
func (d *DerivedStage) Flowchart(ctx context.Context, summary string) Result[string] {
	raw, err := d.gen.generate(ctx, render(flowchartPrompt, "summary", summary))
	if err != nil {
		return Fail[string](err)
	}
	code := cleanMermaid(raw)
	if code == "" {
		return Fail[string](ErrEmptyResponse)
	}
	return Ok(code)
}

func cleanMermaid(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```mermaid")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// Salary 提取薪资构成并计算到手工资。
func (d *DerivedStage) Salary(ctx context.Context, text string) Result[model.SalaryAnalysis] {
	raw := From(d.gen.generate(ctx, render(salaryExtractionPrompt, "document_text", text)))
	return Map(raw, func(s string) (model.SalaryAnalysis, error) {
		components, err := ParseSalaryComponents(s)
		if err != nil {
			return model.SalaryAnalysis{}, err
		}
		return CalculateInHandSalary(components), nil
	})
}

// KeyDates 提取关键日期，丢弃无法解析的日期。
func (d *DerivedStage) KeyDates(ctx context.Context, text string) Result[[]model.KeyDate] {
	raw := From(d.gen.generate(ctx, render(dateExtractionPrompt, "document_text", text)))
	return Map(raw, ParseKeyDates)
}

// ParseKeyDates 解析日期数组，只保留 YYYY-MM-DD 格式且描述非空的项。
func ParseKeyDates(raw string) ([]model.KeyDate, error) {
	var items []model.KeyDate
	if err := json.Unmarshal([]byte(stripFences(raw)), &items); err != nil {
		return nil, err
	}
	dates := make([]model.KeyDate, 0, len(items))
	for _, it := range items {
		it.Date = strings.TrimSpace(it.Date)
		it.Description = strings.TrimSpace(it.Description)
		if _, err := time.Parse(time.DateOnly, it.Date); err != nil || it.Description == "" {
			continue
		}
		dates = append(dates, it)
	}
	return dates, nil
}
