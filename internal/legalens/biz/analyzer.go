package biz

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kart-io/legalens/internal/model"
	"github.com/kart-io/legalens/pkg/utils/json"
)

// ErrInvalidJudgment 模型输出不是合法的风险判断。
var ErrInvalidJudgment = errors.New("invalid risk judgment")

// ClauseAnalyzer 结合专家上下文生成条款风险判断。
type ClauseAnalyzer struct {
	gen *generator
}

// Analyze 生成并校验单个条款的风险判断。
func (a *ClauseAnalyzer) Analyze(ctx context.Context, category model.Category, clause, expertContext string) (model.RiskJudgment, error) {
	raw, err := a.gen.generate(ctx, clauseAnalysisPromptFor(category, clause, expertContext))
	if err != nil {
		return model.RiskJudgment{}, fmt.Errorf("generate judgment: %w", err)
	}
	return ParseJudgment(raw)
}

// ParseJudgment 解析模型输出并校验四个字段。
func ParseJudgment(raw string) (model.RiskJudgment, error) {
	var fields map[string]any
	if err := json.Unmarshal([]byte(stripFences(raw)), &fields); err != nil {
		return model.RiskJudgment{}, fmt.Errorf("%w: %v", ErrInvalidJudgment, err)
	}

	get := func(key string) (string, error) {
		v, ok := fields[key]
		if !ok {
			return "", fmt.Errorf("%w: missing %q", ErrInvalidJudgment, key)
		}
		s, ok := v.(string)
		if !ok || strings.TrimSpace(s) == "" {
			return "", fmt.Errorf("%w: empty %q", ErrInvalidJudgment, key)
		}
		return strings.TrimSpace(s), nil
	}

	var j model.RiskJudgment
	level, err := get("risk_level")
	if err != nil {
		return j, err
	}
	if j.RiskExplanation, err = get("risk_explanation"); err != nil {
		return j, err
	}
	if j.ActionableAdvice, err = get("actionable_advice"); err != nil {
		return j, err
	}
	if j.ClauseCategory, err = get("clause_category"); err != nil {
		return j, err
	}

	j.RiskLevel = normalizeRiskLevel(level)
	if !j.RiskLevel.Valid() {
		return j, fmt.Errorf("%w: risk_level %q", ErrInvalidJudgment, level)
	}
	if isPlaceholder(j.RiskExplanation) {
		return j, fmt.Errorf("%w: placeholder risk_explanation", ErrInvalidJudgment)
	}
	return j, nil
}

// normalizeRiskLevel 接受大小写不同的等级写法。
func normalizeRiskLevel(s string) model.RiskLevel {
	for _, l := range []model.RiskLevel{model.RiskRed, model.RiskYellow, model.RiskGreen, model.RiskNeutral} {
		if strings.EqualFold(s, string(l)) {
			return l
		}
	}
	return model.RiskLevel(s)
}

func isPlaceholder(s string) bool {
	s = strings.ToLower(strings.Trim(strings.TrimSpace(s), "."))
	return s == "n/a" || s == "na" || s == "no context" || strings.HasPrefix(s, "no context ")
}
