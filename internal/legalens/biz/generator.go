package biz

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/kart-io/legalens/internal/legalens/metrics"
	"github.com/kart-io/legalens/pkg/infra/tracing"
	"github.com/kart-io/legalens/pkg/llm"
)

// ErrEmptyResponse 模型返回空文本。
var ErrEmptyResponse = errors.New("model returned an empty response")

// generator 为每次模型调用附加超时与指标。
type generator struct {
	chat    llm.ChatProvider
	timeout time.Duration
	metrics *metrics.AnalysisMetrics
}

func newGenerator(chat llm.ChatProvider, timeout time.Duration, m *metrics.AnalysisMetrics) *generator {
	if m == nil {
		m = metrics.New()
	}
	return &generator{chat: chat, timeout: timeout, metrics: m}
}

func (g *generator) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if g.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, g.timeout)
}

// generate 发送单轮提示，返回去除首尾空白的文本。
func (g *generator) generate(ctx context.Context, prompt string) (text string, err error) {
	ctx, span := tracing.StartSpan(ctx, "llm.generate",
		tracing.String("llm.provider", g.chat.Name()),
		tracing.Int("prompt.bytes", len(prompt)),
	)
	defer func() { tracing.End(span, err) }()

	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	resp, err := g.chat.Generate(ctx, prompt, "")
	g.metrics.RecordLLMCall(time.Since(start), err)
	if err != nil {
		return "", err
	}
	if resp == nil {
		return "", ErrEmptyResponse
	}
	text = strings.TrimSpace(resp.Content)
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

// generateWithTools 发送绑定工具的提示。
func (g *generator) generateWithTools(ctx context.Context, tc llm.ToolCaller, prompt string, tools []llm.Tool) (resp *llm.GenerateResponse, err error) {
	ctx, span := tracing.StartSpan(ctx, "llm.generate_with_tools", tracing.Int("tools", len(tools)))
	defer func() { tracing.End(span, err) }()

	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	resp, err = tc.GenerateWithTools(ctx, prompt, tools)
	g.metrics.RecordLLMCall(time.Since(start), err)
	if err != nil {
		return nil, err
	}
	if resp == nil {
		return nil, ErrEmptyResponse
	}
	return resp, nil
}

// stripFences 去掉模型输出中的 markdown 代码块标记。
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```JSON", "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}
