package biz

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/kart-io/logger"

	"github.com/kart-io/legalens/internal/legalens/metrics"
	"github.com/kart-io/legalens/internal/model"
	apierrors "github.com/kart-io/legalens/pkg/errors"
	"github.com/kart-io/legalens/pkg/llm"
	"github.com/kart-io/legalens/pkg/search"
	"github.com/kart-io/legalens/pkg/utils/json"
)

// SearchToolName 网络搜索工具名称。
const SearchToolName = "search_web"

// DefaultLoanSearchQuery 默认的利率搜索提示。
const DefaultLoanSearchQuery = "current personal loan interest rates India"

var interestRateRes = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*%.*interest`),
	regexp.MustCompile(`(?i)interest\D{0,40}?(\d+(?:\.\d+)?)\s*%`),
}

// ExtractInterestRate 提取 "12% ... interest" 或 "interest rate of 12%" 形式的利率。
func ExtractInterestRate(summary string) (float64, bool) {
	for _, re := range interestRateRes {
		m := re.FindStringSubmatch(summary)
		if m == nil {
			continue
		}
		if rate, err := strconv.ParseFloat(m[1], 64); err == nil {
			return rate, true
		}
	}
	return 0, false
}

// SearchTool 描述模型可调用的搜索工具。
var SearchTool = llm.Tool{
	Name:        SearchToolName,
	Description: "Searches the internet for current bank loan interest rates",
	Parameters: []llm.ToolParameter{
		{Name: "query", Type: "string", Description: "Search query for loan rates", Required: true},
	},
}

// LoanState 贷款比较协议状态。
type LoanState int

const (
	// AwaitingToolDecision 第一轮：模型决定是否调用工具。
	AwaitingToolDecision LoanState = iota
	// ToolRequested 模型请求了搜索。
	ToolRequested
	// ExecuteTool 正在执行搜索。
	ExecuteTool
	// AwaitingFinalAnswer 第二轮：模型基于搜索结果作答。
	AwaitingFinalAnswer
	// DirectAnswer 模型未调用工具直接作答。
	DirectAnswer
	// Done 结束。
	Done
)

func (s LoanState) String() string {
	switch s {
	case AwaitingToolDecision:
		return "awaiting-tool-decision"
	case ToolRequested:
		return "tool-requested"
	case ExecuteTool:
		return "execute-tool"
	case AwaitingFinalAnswer:
		return "awaiting-final-answer"
	case DirectAnswer:
		return "direct-answer"
	case Done:
		return "done"
	default:
		return "unknown"
	}
}

// loanSession 保存一次比较在各状态间传递的数据。
type loanSession struct {
	state   LoanState
	rate    float64
	call    *llm.ToolCall
	results []search.Result
	reply   string
	trace   []LoanState
}

func (s *loanSession) to(next LoanState) {
	s.state = next
	s.trace = append(s.trace, next)
}

// LoanAgent 以两轮工具调用比较合同利率与市场利率。
type LoanAgent struct {
	gen      *generator
	tools    llm.ToolCaller
	searcher search.Searcher
	query    string
	metrics  *metrics.AnalysisMetrics
}

// Compare 执行比较；模型调用搜索时返回 comparison，否则返回 answer。
func (a *LoanAgent) Compare(ctx context.Context, summary string) (*model.LoanComparisonResponse, error) {
	resp, _, err := a.compare(ctx, summary)
	return resp, err
}

func (a *LoanAgent) compare(ctx context.Context, summary string) (*model.LoanComparisonResponse, []LoanState, error) {
	if strings.TrimSpace(summary) == "" {
		return nil, nil, apierrors.ErrInvalidLoanRequest
	}
	rate, ok := ExtractInterestRate(ParseSummary(summary))
	if !ok {
		a.metrics.RecordRateNotFound()
		return nil, nil, apierrors.ErrRateNotFound
	}
	if a.tools == nil {
		return nil, nil, apierrors.ErrGenerationFailed.WithMessage("loan comparison requires a tool-calling model")
	}

	s := &loanSession{rate: rate}
	s.to(AwaitingToolDecision)
	for s.state != Done {
		if err := a.step(ctx, s); err != nil {
			logger.Errorw("loan comparison failed", "state", s.state.String(), "error", err.Error())
			return nil, s.trace, apierrors.ErrGenerationFailed.WithCause(err)
		}
	}

	resp := &model.LoanComparisonResponse{Searched: s.call != nil}
	if s.call != nil {
		resp.Comparison = s.reply
	} else {
		resp.Answer = s.reply
	}
	a.metrics.RecordLoanComparison(s.call != nil)
	return resp, s.trace, nil
}

// step 执行当前状态并迁移到下一状态。
func (a *LoanAgent) step(ctx context.Context, s *loanSession) error {
	switch s.state {
	case AwaitingToolDecision:
		prompt := render(loanToolPrompt, "rate", formatRate(s.rate), "query", a.query)
		resp, err := a.gen.generateWithTools(ctx, a.tools, prompt, []llm.Tool{SearchTool})
		if err != nil {
			return err
		}
		s.reply = strings.TrimSpace(resp.Content)
		for i := range resp.ToolCalls {
			if resp.ToolCalls[i].Name == SearchToolName {
				s.call = &resp.ToolCalls[i]
				s.to(ToolRequested)
				return nil
			}
		}
		s.to(DirectAnswer)

	case ToolRequested:
		s.to(ExecuteTool)

	case ExecuteTool:
		query := a.query
		if q, ok := s.call.Arguments["query"].(string); ok && strings.TrimSpace(q) != "" {
			query = q
		}
		if a.searcher == nil {
			return errors.New("web search is not configured")
		}
		sctx, cancel := a.gen.withTimeout(ctx)
		defer cancel()
		results, err := a.searcher.Search(sctx, query)
		a.metrics.RecordSearch(err)
		if err != nil {
			return fmt.Errorf("search %q: %w", query, err)
		}
		s.results = results
		s.to(AwaitingFinalAnswer)

	case AwaitingFinalAnswer:
		payload, err := json.Marshal(s.results)
		if err != nil {
			return err
		}
		prompt := render(loanFollowupPrompt, "rate", formatRate(s.rate), "results", string(payload))
		reply, err := a.gen.generate(ctx, prompt)
		if err != nil {
			return err
		}
		s.reply = reply
		s.to(Done)

	case DirectAnswer:
		s.to(Done)
	}
	return nil
}

func formatRate(rate float64) string {
	return strconv.FormatFloat(rate, 'f', -1, 64)
}
