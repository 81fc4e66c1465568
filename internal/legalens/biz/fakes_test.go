package biz

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kart-io/legalens/internal/legalens/metrics"
	"github.com/kart-io/legalens/internal/legalens/store"
	"github.com/kart-io/legalens/internal/model"
	"github.com/kart-io/legalens/pkg/llm"
	"github.com/kart-io/legalens/pkg/search"
)

var errModelDown = errors.New("model unavailable")

// promptKind 根据提示开头识别调用阶段。
func promptKind(prompt string) string {
	switch {
	case strings.HasPrefix(prompt, "You are a contract classifier."):
		return "classify"
	case strings.HasPrefix(prompt, "You are an expert legal analyst tasked with extracting"):
		return "entities"
	case strings.HasPrefix(prompt, "You are an expert legal analyst. Your task is to explain"):
		return "summary"
	case strings.HasPrefix(prompt, "You are a legal risk analyzer"):
		return "clause"
	case strings.Contains(prompt, "into a Mermaid.js flowchart"):
		return "flowchart"
	case strings.HasPrefix(prompt, "You are an expert financial analyst"):
		return "salary"
	case strings.HasPrefix(prompt, "You are an expert at identifying important dates"):
		return "dates"
	case strings.HasPrefix(prompt, "You are a legal assistant"):
		return "chat"
	case strings.HasPrefix(prompt, "The agreement interest rate is"):
		return "loan-followup"
	}
	return "other"
}

// fakeChat 按阶段返回预设响应，未设置的阶段返回 errModelDown。
type fakeChat struct {
	mu        sync.Mutex
	responses map[string]func(prompt string) (string, error)
	prompts   map[string][]string
	calls     atomic.Int64
	delay     time.Duration
	// slow 为特定提示追加延迟。
	slow func(kind, prompt string) time.Duration
}

func newFakeChat() *fakeChat {
	return &fakeChat{
		responses: make(map[string]func(string) (string, error)),
		prompts:   make(map[string][]string),
	}
}

func (f *fakeChat) on(kind, reply string) *fakeChat {
	f.responses[kind] = func(string) (string, error) { return reply, nil }
	return f
}

func (f *fakeChat) onFunc(kind string, fn func(prompt string) (string, error)) *fakeChat {
	f.responses[kind] = fn
	return f
}

func (f *fakeChat) fail(kind string) *fakeChat {
	f.responses[kind] = func(string) (string, error) { return "", errModelDown }
	return f
}

func (f *fakeChat) promptsFor(kind string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.prompts[kind]...)
}

func (f *fakeChat) Chat(ctx context.Context, messages []llm.Message) (string, error) {
	if len(messages) == 0 {
		return "", errModelDown
	}
	resp, err := f.Generate(ctx, messages[len(messages)-1].Content, "")
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}

func (f *fakeChat) Generate(ctx context.Context, prompt, _ string) (*llm.GenerateResponse, error) {
	f.calls.Add(1)
	kind := promptKind(prompt)
	delay := f.delay
	if f.slow != nil {
		delay += f.slow(kind, prompt)
	}
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.mu.Lock()
	f.prompts[kind] = append(f.prompts[kind], prompt)
	fn := f.responses[kind]
	f.mu.Unlock()
	if fn == nil {
		return nil, errModelDown
	}
	content, err := fn(prompt)
	if err != nil {
		return nil, err
	}
	return &llm.GenerateResponse{Content: content}, nil
}

func (f *fakeChat) Name() string { return "fake-chat" }

// fakeTools 返回预设的第一轮工具调用响应。
type fakeTools struct {
	resp  *llm.GenerateResponse
	err   error
	tools []llm.Tool
	calls int
}

func (f *fakeTools) GenerateWithTools(_ context.Context, _ string, tools []llm.Tool) (*llm.GenerateResponse, error) {
	f.calls++
	f.tools = tools
	return f.resp, f.err
}

func (f *fakeTools) Name() string { return "fake-tools" }

// fakeEmbedder 用字母频次生成确定性向量。
type fakeEmbedder struct {
	err   error
	calls atomic.Int64
}

func letterVector(text string) []float32 {
	v := make([]float32, 26)
	for _, r := range strings.ToLower(text) {
		if r >= 'a' && r <= 'z' {
			v[r-'a']++
		}
	}
	v[0] += 0.001
	return v
}

func (f *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = letterVector(t)
	}
	return out, nil
}

func (f *fakeEmbedder) EmbedSingle(_ context.Context, text string) ([]float32, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return letterVector(text), nil
}

func (f *fakeEmbedder) Name() string { return "fake-embed" }

// fakeSearcher 返回固定结果并记录查询。
type fakeSearcher struct {
	results []search.Result
	err     error
	queries []string
}

func (f *fakeSearcher) Search(_ context.Context, query string) ([]search.Result, error) {
	f.queries = append(f.queries, query)
	return f.results, f.err
}

func (f *fakeSearcher) Name() string { return "fake-search" }

// failingStore 所有检索都失败。
type failingStore struct {
	*store.MemoryStore
}

func (failingStore) Search(context.Context, model.Category, []float32, int) ([]model.Neighbor, error) {
	return nil, errors.New("index unreachable")
}

// rejectingPool 拒绝所有任务。
type rejectingPool struct{ rejected atomic.Int64 }

func (p *rejectingPool) Submit(func()) error {
	p.rejected.Add(1)
	return errors.New("pool overloaded")
}

// goPool 为每个任务启动一个协程。
type goPool struct{}

func (goPool) Submit(task func()) error {
	go task()
	return nil
}

const validJudgment = `{"risk_level": "Yellow", "risk_explanation": "The clause favours one party.", "actionable_advice": "Negotiate a cap.", "clause_category": "Termination"}`

func newTestService(chat *fakeChat, deps Dependencies, cfg *Config) *LegalService {
	deps.Chat = chat
	if deps.Embedder == nil {
		deps.Embedder = &fakeEmbedder{}
	}
	if deps.Store == nil {
		deps.Store = store.NewMemoryStore()
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.New()
	}
	return NewLegalService(deps, cfg)
}
