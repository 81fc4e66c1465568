// Package legalens provides the legal document analysis server.
package legalens

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kart-io/logger"
	goredis "github.com/redis/go-redis/v9"

	"github.com/kart-io/legalens/internal/legalens/biz"
	"github.com/kart-io/legalens/internal/legalens/handler"
	"github.com/kart-io/legalens/internal/legalens/metrics"
	"github.com/kart-io/legalens/internal/legalens/router"
	"github.com/kart-io/legalens/internal/legalens/store"
	"github.com/kart-io/legalens/pkg/component/milvus"
	"github.com/kart-io/legalens/pkg/infra/app"
	"github.com/kart-io/legalens/pkg/infra/pool"
	httpserver "github.com/kart-io/legalens/pkg/infra/server/http"
	"github.com/kart-io/legalens/pkg/infra/tracing"
	"github.com/kart-io/legalens/pkg/llm"
	// 导入 LLM 供应商以自动注册
	_ "github.com/kart-io/legalens/pkg/llm/gemini"
	_ "github.com/kart-io/legalens/pkg/llm/ollama"
	_ "github.com/kart-io/legalens/pkg/llm/openai"
	"github.com/kart-io/legalens/pkg/llm/resilience"
	cacheopts "github.com/kart-io/legalens/pkg/options/cache"
	knowledgeopts "github.com/kart-io/legalens/pkg/options/knowledge"
	llmopts "github.com/kart-io/legalens/pkg/options/llm"
	logopts "github.com/kart-io/legalens/pkg/options/logger"
	middlewareopts "github.com/kart-io/legalens/pkg/options/middleware"
	milvusopts "github.com/kart-io/legalens/pkg/options/milvus"
	pipelineopts "github.com/kart-io/legalens/pkg/options/pipeline"
	poolopts "github.com/kart-io/legalens/pkg/options/pool"
	searchopts "github.com/kart-io/legalens/pkg/options/search"
	httpopts "github.com/kart-io/legalens/pkg/options/server/http"
	tracingopts "github.com/kart-io/legalens/pkg/options/tracing"
	"github.com/kart-io/legalens/pkg/search"
	"github.com/kart-io/legalens/pkg/search/tavily"
	"github.com/kart-io/legalens/pkg/utils/json"
)

// Name is the name of the application.
const Name = "legalens"

// Config contains application-related configurations.
type Config struct {
	HTTPOptions       *httpopts.Options
	LogOptions        *logopts.Options
	MiddlewareOptions *middlewareopts.Options
	MilvusOptions     *milvusopts.Options
	EmbeddingOptions  *llmopts.ProviderOptions
	ChatOptions       *llmopts.ProviderOptions
	ToolOptions       *llmopts.ProviderOptions
	SearchOptions     *searchopts.Options
	CacheOptions      *cacheopts.Options
	PipelineOptions   *pipelineopts.Options
	PoolOptions       *poolopts.Options
	KnowledgeOptions  *knowledgeopts.Options
	TracingOptions    *tracingopts.Options
	ShutdownTimeout   time.Duration
}

// Server represents the legalens server.
type Server struct {
	http            *httpserver.Server
	service         *biz.LegalService
	shutdownTimeout time.Duration
	closers         []func(context.Context)
}

// NewServer initializes and returns a new Server instance.
func (cfg *Config) NewServer(ctx context.Context) (*Server, error) {
	printBanner(cfg)

	// 1. 初始化日志
	if err := app.InitLogger(cfg.LogOptions, Name); err != nil {
		return nil, err
	}
	logger.Info("Starting legalens service...")

	s := &Server{shutdownTimeout: cfg.ShutdownTimeout}
	ok := false
	defer func() {
		if !ok {
			s.close(context.Background())
		}
	}()

	// 2. 初始化链路追踪
	tp, err := tracing.NewProvider(ctx, cfg.TracingOptions, Name, app.GetVersion())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}
	s.closers = append(s.closers, func(c context.Context) {
		if err := tp.Shutdown(c); err != nil {
			logger.Warnw("failed to flush traces", "error", err.Error())
		}
	})
	if tp.Enabled() {
		logger.Infow("Tracing initialized",
			"exporter", cfg.TracingOptions.ExporterType,
			"endpoint", cfg.TracingOptions.Endpoint,
		)
	}

	m := metrics.Get()

	// 3. 初始化 Redis（缓存不可用时降级）
	redisClient := cfg.newRedis(ctx)
	if redisClient != nil {
		s.closers = append(s.closers, func(context.Context) { _ = redisClient.Close() })
	}

	// 4. 初始化 LLM 供应商
	chatProvider, toolCaller, embedProvider, err := cfg.newProviders(m, redisClient)
	if err != nil {
		return nil, err
	}

	// 5. 初始化向量索引
	clauseStore, err := cfg.newStore(ctx)
	if err != nil {
		return nil, err
	}
	s.closers = append(s.closers, func(c context.Context) { _ = clauseStore.Close(c) })

	// 6. 初始化网络搜索
	var searcher search.Searcher
	if client, err := tavily.NewClient(cfg.SearchOptions); err != nil {
		logger.Warnw("web search disabled, loan comparison will fail on tool calls", "error", err.Error())
	} else {
		searcher = client
		logger.Infow("Web search initialized", "provider", client.Name())
	}

	// 7. 初始化协程池
	analysisPool, err := pool.NewPool("clause-analysis", pool.AnalysisPool, pool.ConfigFromOptions(cfg.PoolOptions))
	if err != nil {
		return nil, fmt.Errorf("failed to create analysis pool: %w", err)
	}
	s.closers = append(s.closers, func(context.Context) { analysisPool.Release() })

	backgroundPool, err := pool.NewPool("knowledge-seed", pool.BackgroundPool, pool.BackgroundPoolConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to create background pool: %w", err)
	}
	s.closers = append(s.closers, func(context.Context) { backgroundPool.Release() })

	// 8. 初始化 Biz 层
	var analysisCache *biz.AnalysisCache
	if redisClient != nil {
		analysisCache = biz.NewAnalysisCache(redisClient, &biz.AnalysisCacheConfig{
			TTL:       cfg.CacheOptions.TTL,
			KeyPrefix: cfg.CacheOptions.KeyPrefix,
		})
	}
	s.service = biz.NewLegalService(biz.Dependencies{
		Chat:     chatProvider,
		Tools:    toolCaller,
		Embedder: embedProvider,
		Store:    clauseStore,
		Searcher: searcher,
		Cache:    analysisCache,
		Pool:     analysisPool,
		Metrics:  m,
	}, &biz.Config{
		MinChunkLength: cfg.PipelineOptions.MinChunkLength,
		TopK:           cfg.PipelineOptions.TopK,
		ClassifyPrefix: cfg.PipelineOptions.ClassifyPrefix,
		CallTimeout:    cfg.PipelineOptions.CallTimeout,
		RequestTimeout: cfg.PipelineOptions.RequestTimeout,
		ExtractDates:   cfg.PipelineOptions.ExtractDates,
		SearchQuery:    cfg.PipelineOptions.SearchQuery,
		SeedBatchSize:  cfg.KnowledgeOptions.BatchSize,
	})
	logger.Infow("Legal service initialized",
		"cache.enabled", analysisCache != nil,
		"tools.enabled", toolCaller != nil,
		"search.enabled", searcher != nil,
		"store", cfg.KnowledgeOptions.Store,
	)

	// 9. 导入参考条款
	if cfg.KnowledgeOptions.SeedFile != "" {
		s.seed(backgroundPool, cfg.KnowledgeOptions.SeedFile)
	}

	// 10. 初始化 HTTP 服务器与路由
	handlers, err := cfg.MiddlewareOptions.Handlers()
	if err != nil {
		return nil, fmt.Errorf("failed to build middleware: %w", err)
	}
	s.http = httpserver.NewServer(cfg.HTTPOptions, handlers...)
	s.http.Register(router.New(handler.NewLegalHandler(s.service, m)))

	logger.Info("Legalens service is ready")
	ok = true
	return s, nil
}

// newRedis 连接 Redis，失败时返回 nil 并禁用缓存。
func (cfg *Config) newRedis(ctx context.Context) *goredis.Client {
	if cfg.CacheOptions == nil || !cfg.CacheOptions.Enabled || cfg.CacheOptions.Redis == nil {
		logger.Info("Cache is disabled")
		return nil
	}
	client := cfg.CacheOptions.Redis.NewClient()

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warnw("failed to connect to redis, cache will be disabled", "error", err.Error())
		_ = client.Close()
		return nil
	}
	logger.Infow("Redis cache initialized",
		"addr", cfg.CacheOptions.Redis.String(),
		"ttl", cfg.CacheOptions.TTL.String(),
	)
	return client
}

// newProviders 创建 chat、工具调用与 embedding 供应商，并按配置包装重试、熔断和缓存。
func (cfg *Config) newProviders(m *metrics.AnalysisMetrics, redisClient *goredis.Client) (llm.ChatProvider, llm.ToolCaller, llm.EmbeddingProvider, error) {
	breaker := func() *resilience.CircuitBreakerConfig {
		c := resilience.DefaultCircuitBreakerConfig()
		c.OnStateChange = func(from, to resilience.CircuitBreakerState) {
			m.RecordCircuitBreakerState(int32(to))
			logger.Warnw("circuit breaker state changed", "from", from.String(), "to", to.String())
		}
		return c
	}
	retry := func(o *llmopts.ProviderOptions) *resilience.RetryConfig {
		c := resilience.DefaultRetryConfig()
		c.MaxAttempts = o.MaxRetries + 1
		return c
	}

	chatProvider, err := llm.NewChatProvider(cfg.ChatOptions.Provider, cfg.ChatOptions.ToConfigMap())
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to initialize chat provider: %w", err)
	}
	if cfg.ChatOptions.Resilience {
		chatProvider = resilience.NewResilientChatProvider(chatProvider, retry(cfg.ChatOptions), breaker())
	}
	logger.Infow("Chat provider initialized",
		"provider", cfg.ChatOptions.Provider,
		"model", cfg.ChatOptions.Model,
	)

	var toolCaller llm.ToolCaller
	if tc, err := llm.NewToolCaller(cfg.ToolOptions.Provider, cfg.ToolOptions.ToConfigMap()); err != nil {
		logger.Warnw("tool calling disabled", "error", err.Error())
	} else {
		toolCaller = tc
		if cfg.ToolOptions.Resilience {
			if cp, ok := tc.(llm.ChatProvider); ok {
				toolCaller = resilience.NewResilientChatProvider(cp, retry(cfg.ToolOptions), breaker())
			}
		}
		logger.Infow("Tool provider initialized",
			"provider", cfg.ToolOptions.Provider,
			"model", cfg.ToolOptions.Model,
		)
	}

	embedProvider, err := llm.NewEmbeddingProvider(cfg.EmbeddingOptions.Provider, cfg.EmbeddingOptions.ToConfigMap())
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to initialize embedding provider: %w", err)
	}
	if cfg.EmbeddingOptions.Resilience {
		embedProvider = resilience.NewResilientEmbeddingProvider(embedProvider, retry(cfg.EmbeddingOptions), breaker())
	}
	if redisClient != nil {
		embedProvider = llm.NewCachedEmbeddingProvider(embedProvider, redisClient, &llm.EmbeddingCacheConfig{
			Enabled:   true,
			TTL:       cfg.CacheOptions.EmbeddingTTL,
			KeyPrefix: cfg.CacheOptions.KeyPrefix + "emb:",
			Namespace: cfg.EmbeddingOptions.Model,
		})
	}
	logger.Infow("Embedding provider initialized",
		"provider", cfg.EmbeddingOptions.Provider,
		"model", cfg.EmbeddingOptions.Model,
	)

	return chatProvider, toolCaller, embedProvider, nil
}

// newStore 创建向量索引。
func (cfg *Config) newStore(ctx context.Context) (store.ClauseStore, error) {
	if cfg.KnowledgeOptions.Store == "memory" {
		logger.Warn("Using in-memory clause store, reference clauses are lost on restart")
		return store.NewMemoryStore(), nil
	}
	client, err := milvus.New(ctx, cfg.MilvusOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize milvus: %w", err)
	}
	logger.Infow("Milvus client initialized", "address", cfg.MilvusOptions.Address)
	return store.NewMilvusStore(client, cfg.MilvusOptions.CollectionPrefix), nil
}

// seed 在后台导入种子文件，失败只记录日志。
func (s *Server) seed(p *pool.Pool, path string) {
	task := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()
		n, err := s.service.SeedFromFile(ctx, path)
		if err != nil {
			logger.Errorw("failed to seed reference clauses", "file", path, "error", err.Error())
			return
		}
		logger.Infow("reference clauses seeded", "file", path, "count", n)
	}
	if err := p.Submit(task); err != nil {
		logger.Warnw("background pool rejected seeding, running inline", "error", err.Error())
		task()
	}
}

// Run starts the server and blocks until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	defer app.FlushLogger()

	if err := s.http.Start(ctx); err != nil {
		s.close(context.Background())
		return fmt.Errorf("failed to start http server: %w", err)
	}

	<-ctx.Done()
	logger.Info("Shutting down legalens service...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()

	err := s.http.Stop(shutdownCtx)
	s.close(shutdownCtx)
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("failed to stop http server: %w", err)
	}
	logger.Info("Legalens service stopped")
	return nil
}

// close 按创建的逆序释放资源。
func (s *Server) close(ctx context.Context) {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i](ctx)
	}
	s.closers = nil
}

func printBanner(cfg *Config) {
	info := app.GetVersionInfo()
	fmt.Printf("Starting %s %s...\n", Name, info.GitVersion)
	fmt.Printf("  Chat: %s (%s)\n", cfg.ChatOptions.Provider, cfg.ChatOptions.Model)
	fmt.Printf("  Tools: %s (%s)\n", cfg.ToolOptions.Provider, cfg.ToolOptions.Model)
	fmt.Printf("  Embedding: %s (%s)\n", cfg.EmbeddingOptions.Provider, cfg.EmbeddingOptions.Model)
	fmt.Printf("  Knowledge store: %s\n", cfg.KnowledgeOptions.Store)
	if json.IsUsingSonic() {
		fmt.Println("  JSON codec: sonic")
	} else {
		fmt.Println("  JSON codec: encoding/json")
	}
}
