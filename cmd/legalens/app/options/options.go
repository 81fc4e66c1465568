// Package options contains flags and options for initializing the legalens server.
package options

import (
	"fmt"
	"time"

	utilerrors "k8s.io/apimachinery/pkg/util/errors"

	"github.com/kart-io/legalens/internal/legalens"
	"github.com/kart-io/legalens/pkg/infra/app"
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
)

var _ app.CliOptions = (*ServerOptions)(nil)

// ServerOptions contains the configuration options for the server.
type ServerOptions struct {
	// HTTPOptions contains HTTP server configuration.
	HTTPOptions *httpopts.Options `json:"http" mapstructure:"http"`

	// LogOptions contains logger configuration.
	LogOptions *logopts.Options `json:"log" mapstructure:"log"`

	// MiddlewareOptions contains middleware configuration.
	MiddlewareOptions *middlewareopts.Options `json:"middleware" mapstructure:"middleware"`

	// MilvusOptions contains Milvus database configuration.
	MilvusOptions *milvusopts.Options `json:"milvus" mapstructure:"milvus"`

	// EmbeddingOptions contains embedding provider configuration.
	EmbeddingOptions *llmopts.ProviderOptions `json:"embedding" mapstructure:"embedding"`

	// ChatOptions contains chat provider configuration.
	ChatOptions *llmopts.ProviderOptions `json:"chat" mapstructure:"chat"`

	// ToolOptions contains the tool-calling provider used by loan comparison.
	ToolOptions *llmopts.ProviderOptions `json:"tools" mapstructure:"tools"`

	// SearchOptions contains web search configuration.
	SearchOptions *searchopts.Options `json:"search" mapstructure:"search"`

	// CacheOptions contains cache configuration.
	CacheOptions *cacheopts.Options `json:"cache" mapstructure:"cache"`

	// PipelineOptions contains analysis pipeline configuration.
	PipelineOptions *pipelineopts.Options `json:"pipeline" mapstructure:"pipeline"`

	// PoolOptions contains clause analysis pool configuration.
	PoolOptions *poolopts.Options `json:"pool" mapstructure:"pool"`

	// KnowledgeOptions contains reference clause index configuration.
	KnowledgeOptions *knowledgeopts.Options `json:"knowledge" mapstructure:"knowledge"`

	// TracingOptions contains OpenTelemetry tracing configuration.
	TracingOptions *tracingopts.Options `json:"tracing" mapstructure:"tracing"`

	// ShutdownTimeout is the timeout for graceful shutdown.
	ShutdownTimeout time.Duration `json:"shutdown-timeout" mapstructure:"shutdown-timeout"`
}

// NewServerOptions creates a ServerOptions instance with default values.
func NewServerOptions() *ServerOptions {
	return &ServerOptions{
		HTTPOptions:       httpopts.NewOptions(),
		LogOptions:        logopts.NewOptions(),
		MiddlewareOptions: middlewareopts.NewOptions(),
		MilvusOptions:     milvusopts.NewOptions(),
		EmbeddingOptions:  llmopts.NewEmbeddingOptions(),
		ChatOptions:       llmopts.NewChatOptions(),
		ToolOptions:       llmopts.NewToolOptions(),
		SearchOptions:     searchopts.NewOptions(),
		CacheOptions:      cacheopts.NewOptions(),
		PipelineOptions:   pipelineopts.NewOptions(),
		PoolOptions:       poolopts.NewOptions(),
		KnowledgeOptions:  knowledgeopts.NewOptions(),
		TracingOptions:    tracingopts.NewOptions(),
		ShutdownTimeout:   30 * time.Second,
	}
}

// Flags returns flags for a specific server by section name.
func (o *ServerOptions) Flags() (fss app.NamedFlagSets) {
	o.HTTPOptions.AddFlags(fss.FlagSet("http"), "http.")
	o.LogOptions.AddFlags(fss.FlagSet("log"))
	o.MiddlewareOptions.AddFlags(fss.FlagSet("middleware"), "middleware.")
	o.MilvusOptions.AddFlags(fss.FlagSet("milvus"), "milvus.")
	o.EmbeddingOptions.AddFlags(fss.FlagSet("embedding"), "embedding.")
	o.ChatOptions.AddFlags(fss.FlagSet("chat"), "chat.")
	o.ToolOptions.AddFlags(fss.FlagSet("tools"), "tools.")
	o.SearchOptions.AddFlags(fss.FlagSet("search"), "search.")
	o.CacheOptions.AddFlags(fss.FlagSet("cache"), "cache.")
	o.PipelineOptions.AddFlags(fss.FlagSet("pipeline"), "pipeline.")
	o.PoolOptions.AddFlags(fss.FlagSet("pool"), "pool.")
	o.KnowledgeOptions.AddFlags(fss.FlagSet("knowledge"), "knowledge.")
	o.TracingOptions.AddFlags(fss.FlagSet("tracing"), "tracing.")

	// misc flags
	fs := fss.FlagSet("misc")
	fs.DurationVar(&o.ShutdownTimeout, "shutdown-timeout", o.ShutdownTimeout, "Graceful shutdown timeout")

	return fss
}

// Complete completes all the required options.
func (o *ServerOptions) Complete() error {
	if err := o.HTTPOptions.Complete(); err != nil {
		return err
	}
	if err := o.LogOptions.Complete(); err != nil {
		return fmt.Errorf("log: %w", err)
	}
	if err := o.EmbeddingOptions.Complete(); err != nil {
		return fmt.Errorf("embedding: %w", err)
	}
	if err := o.ChatOptions.Complete(); err != nil {
		return fmt.Errorf("chat: %w", err)
	}
	if err := o.ToolOptions.Complete(); err != nil {
		return fmt.Errorf("tools: %w", err)
	}
	if err := o.SearchOptions.Complete(); err != nil {
		return fmt.Errorf("search: %w", err)
	}
	if err := o.CacheOptions.Complete(); err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	if err := o.TracingOptions.Complete(); err != nil {
		return fmt.Errorf("tracing: %w", err)
	}
	return nil
}

// Validate checks whether the options in ServerOptions are valid.
func (o *ServerOptions) Validate() error {
	errs := []error{}

	errs = append(errs, o.HTTPOptions.Validate()...)
	errs = append(errs, o.LogOptions.Validate()...)
	errs = append(errs, o.MiddlewareOptions.Validate()...)
	errs = append(errs, o.MilvusOptions.Validate()...)
	errs = append(errs, o.EmbeddingOptions.Validate()...)
	errs = append(errs, o.ChatOptions.Validate()...)
	errs = append(errs, o.ToolOptions.Validate()...)
	errs = append(errs, o.SearchOptions.Validate()...)
	errs = append(errs, o.CacheOptions.Validate()...)
	errs = append(errs, o.PipelineOptions.Validate()...)
	errs = append(errs, o.PoolOptions.Validate()...)
	errs = append(errs, o.KnowledgeOptions.Validate()...)
	errs = append(errs, o.TracingOptions.Validate()...)

	return utilerrors.NewAggregate(errs)
}

// Config builds a legalens.Config based on ServerOptions.
func (o *ServerOptions) Config() (*legalens.Config, error) {
	return &legalens.Config{
		HTTPOptions:       o.HTTPOptions,
		LogOptions:        o.LogOptions,
		MiddlewareOptions: o.MiddlewareOptions,
		MilvusOptions:     o.MilvusOptions,
		EmbeddingOptions:  o.EmbeddingOptions,
		ChatOptions:       o.ChatOptions,
		ToolOptions:       o.ToolOptions,
		SearchOptions:     o.SearchOptions,
		CacheOptions:      o.CacheOptions,
		PipelineOptions:   o.PipelineOptions,
		PoolOptions:       o.PoolOptions,
		KnowledgeOptions:  o.KnowledgeOptions,
		TracingOptions:    o.TracingOptions,
		ShutdownTimeout:   o.ShutdownTimeout,
	}, nil
}
