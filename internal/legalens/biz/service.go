package biz

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/kart-io/logger"

	"github.com/kart-io/legalens/internal/legalens/metrics"
	"github.com/kart-io/legalens/internal/legalens/store"
	"github.com/kart-io/legalens/internal/model"
	apierrors "github.com/kart-io/legalens/pkg/errors"
	"github.com/kart-io/legalens/pkg/llm"
	"github.com/kart-io/legalens/pkg/search"
)

// Service 定义文档分析服务接口。
type Service interface {
	// Analyze 分析文档。
	Analyze(ctx context.Context, text string) (*model.AnalysisResult, error)
	// Chat 回答关于已分析文档的追问。
	Chat(ctx context.Context, req *model.ChatRequest) (string, error)
	// CompareLoan 比较合同利率与市场利率。
	CompareLoan(ctx context.Context, summary string) (*model.LoanComparisonResponse, error)
	// IndexClauses 写入参考条款。
	IndexClauses(ctx context.Context, clauses []model.ReferenceClause) (int, error)
	// GetStats 获取知识库和业务指标统计。
	GetStats(ctx context.Context) map[string]any
}

// Dependencies 外部协作方，均在启动时构建一次。
type Dependencies struct {
	Chat     llm.ChatProvider
	Tools    llm.ToolCaller
	Embedder llm.EmbeddingProvider
	Store    store.ClauseStore
	Searcher search.Searcher
	Cache    *AnalysisCache
	Pool     Submitter
	Metrics  *metrics.AnalysisMetrics
}

// Config 分析服务配置。
type Config struct {
	MinChunkLength int
	TopK           int
	ClassifyPrefix int
	CallTimeout    time.Duration
	RequestTimeout time.Duration
	ExtractDates   bool
	SearchQuery    string
	SeedBatchSize  int
}

// DefaultConfig 返回默认配置。
func DefaultConfig() *Config {
	return &Config{
		MinChunkLength: DefaultMinChunkLength,
		TopK:           DefaultTopK,
		ClassifyPrefix: DefaultClassifyPrefix,
		CallTimeout:    60 * time.Second,
		ExtractDates:   true,
		SearchQuery:    DefaultLoanSearchQuery,
		SeedBatchSize:  DefaultSeedBatchSize,
	}
}

// LegalService 组合流水线、对话、贷款比较和知识库。
type LegalService struct {
	pipeline  *Pipeline
	chatbot   *Chatbot
	loan      *LoanAgent
	knowledge *KnowledgeBase
	cache     *AnalysisCache
	deps      Dependencies

	requestTimeout time.Duration
}

var _ Service = (*LegalService)(nil)

// NewLegalService 创建分析服务实例。
func NewLegalService(deps Dependencies, cfg *Config) *LegalService {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.TopK <= 0 {
		cfg.TopK = DefaultTopK
	}
	if cfg.SeedBatchSize <= 0 {
		cfg.SeedBatchSize = DefaultSeedBatchSize
	}
	if cfg.SearchQuery == "" {
		cfg.SearchQuery = DefaultLoanSearchQuery
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.Get()
	}
	gen := newGenerator(deps.Chat, cfg.CallTimeout, deps.Metrics)

	var (
		categoryCache CategoryCache
		resultCache   ResultCache
	)
	if deps.Cache != nil {
		categoryCache = deps.Cache
		resultCache = deps.Cache
	}

	return &LegalService{
		pipeline: &Pipeline{
			classifier: &Classifier{gen: gen, prefix: cfg.ClassifyPrefix, cache: categoryCache},
			chunker:    NewChunker(cfg.MinChunkLength),
			retrieval: &RetrievalContextBuilder{
				embedder: deps.Embedder,
				store:    deps.Store,
				topK:     cfg.TopK,
				timeout:  cfg.CallTimeout,
				metrics:  deps.Metrics,
			},
			analyzer:     &ClauseAnalyzer{gen: gen},
			summary:      &SummaryStage{gen: gen},
			derived:      &DerivedStage{gen: gen},
			pool:         deps.Pool,
			cache:        resultCache,
			metrics:      deps.Metrics,
			extractDates: cfg.ExtractDates,
		},
		chatbot: &Chatbot{gen: gen, metrics: deps.Metrics},
		loan: &LoanAgent{
			gen:      gen,
			tools:    deps.Tools,
			searcher: deps.Searcher,
			query:    cfg.SearchQuery,
			metrics:  deps.Metrics,
		},
		knowledge: &KnowledgeBase{
			embedder:  deps.Embedder,
			store:     deps.Store,
			batchSize: cfg.SeedBatchSize,
			metrics:   deps.Metrics,
		},
		cache:          deps.Cache,
		deps:           deps,
		requestTimeout: cfg.RequestTimeout,
	}
}

// Analyze 分析文档，空文本直接拒绝。
func (s *LegalService) Analyze(ctx context.Context, text string) (*model.AnalysisResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, apierrors.ErrInvalidDocument
	}
	if s.requestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.requestTimeout)
		defer cancel()
	}
	return s.pipeline.Analyze(ctx, text)
}

// Chat 回答追问。
func (s *LegalService) Chat(ctx context.Context, req *model.ChatRequest) (string, error) {
	return s.chatbot.Answer(ctx, req)
}

// CompareLoan 比较贷款利率。
func (s *LegalService) CompareLoan(ctx context.Context, summary string) (*model.LoanComparisonResponse, error) {
	return s.loan.Compare(ctx, summary)
}

// IndexClauses 写入参考条款，校验失败返回 ErrInvalidKnowledge。
func (s *LegalService) IndexClauses(ctx context.Context, clauses []model.ReferenceClause) (int, error) {
	n, err := s.knowledge.Seed(ctx, clauses)
	s.knowledgeChanged(ctx, n)
	if err != nil {
		var errno *apierrors.Errno
		if errors.As(err, &errno) {
			return n, err
		}
		return n, apierrors.ErrKnowledgeIndexFailed.WithCause(err)
	}
	return n, nil
}

// SeedFromFile 从 YAML 文件写入参考条款，已有数据的分区不再重复写入。
func (s *LegalService) SeedFromFile(ctx context.Context, path string) (int, error) {
	clauses, err := LoadSeedFile(path)
	if err != nil {
		return 0, err
	}
	n, err := s.knowledge.SeedMissing(ctx, clauses)
	s.knowledgeChanged(ctx, n)
	return n, err
}

// knowledgeChanged 知识库有新条款写入后，使缓存的分析结果失效。
func (s *LegalService) knowledgeChanged(ctx context.Context, inserted int) {
	if inserted == 0 || s.cache == nil {
		return
	}
	deleted, err := s.cache.InvalidateAnalyses(ctx)
	if err != nil {
		logger.Warnw("failed to invalidate cached analyses", "error", err.Error())
		return
	}
	logger.Infow("cached analyses invalidated", "inserted", inserted, "deleted", deleted)
}

// GetStats 获取统计信息。
func (s *LegalService) GetStats(ctx context.Context) map[string]any {
	stats := map[string]any{
		"reference_clauses": s.knowledge.Counts(ctx),
		"metrics":           s.deps.Metrics.Stats(),
	}
	if s.deps.Chat != nil {
		stats["chat_provider"] = s.deps.Chat.Name()
	}
	if s.deps.Embedder != nil {
		stats["embed_provider"] = s.deps.Embedder.Name()
	}
	if s.deps.Searcher != nil {
		stats["search_provider"] = s.deps.Searcher.Name()
	}
	if s.cache != nil {
		if cs, err := s.cache.Stats(ctx); err == nil {
			stats["cache"] = cs
		}
	} else {
		stats["cache"] = map[string]any{"enabled": false}
	}
	return stats
}

// Metrics 返回服务使用的指标实例。
func (s *LegalService) Metrics() *metrics.AnalysisMetrics {
	return s.deps.Metrics
}
