package biz

import (
	"bytes"
	"context"
	"regexp"
	"strings"

	"github.com/kart-io/logger"

	"github.com/kart-io/legalens/internal/legalens/metrics"
	"github.com/kart-io/legalens/internal/model"
	apierrors "github.com/kart-io/legalens/pkg/errors"
)

var boldKeyRe = regexp.MustCompile(`^\*\*(.*?)\*\*[:\-]*\s*(.*)`)

// ParseSummary 将 markdown 风格摘要整理为 "Key: value" 行，去掉空行。
func ParseSummary(summary string) string {
	lines := strings.Split(summary, "\n")
	parsed := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if m := boldKeyRe.FindStringSubmatch(line); m != nil {
			key := strings.TrimRight(strings.TrimSpace(m[1]), ":-")
			parsed = append(parsed, strings.TrimSpace(key)+": "+strings.TrimSpace(m[2]))
			continue
		}
		parsed = append(parsed, line)
	}
	return strings.Join(parsed, "\n")
}

// Chatbot 基于已有摘要和条款分析回答追问。
type Chatbot struct {
	gen     *generator
	metrics *metrics.AnalysisMetrics
}

// Answer 校验请求并生成回答。
func (c *Chatbot) Answer(ctx context.Context, req *model.ChatRequest) (string, error) {
	if req == nil || strings.TrimSpace(req.Summary) == "" || isMissingJSON(req.DetailedAnalysis) || strings.TrimSpace(req.Question) == "" {
		return "", apierrors.ErrInvalidChatRequest
	}

	prompt := render(chatPrompt,
		"summary", ParseSummary(req.Summary),
		"detailed_analysis", string(req.DetailedAnalysis),
		"question", strings.TrimSpace(req.Question),
	)
	answer, err := c.gen.generate(ctx, prompt)
	c.metrics.RecordChat(err)
	if err != nil {
		logger.Errorw("chatbot response failed", "error", err.Error())
		return "", apierrors.ErrGenerationFailed.WithCause(err)
	}
	return answer, nil
}

func isMissingJSON(raw []byte) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) == 0 || bytes.Equal(raw, []byte("null"))
}
