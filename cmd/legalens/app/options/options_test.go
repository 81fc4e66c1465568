package options

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServerOptions_Flags(t *testing.T) {
	opts := NewServerOptions()
	fss := opts.Flags()

	assert.Equal(t, []string{
		"http", "log", "middleware", "milvus", "embedding", "chat", "tools",
		"search", "cache", "pipeline", "pool", "knowledge", "tracing", "misc",
	}, fss.Order)

	for name, flag := range map[string]string{
		"chat":      "chat.model",
		"tools":     "tools.provider",
		"cache":     "cache.redis.host",
		"pipeline":  "pipeline.min-chunk-length",
		"knowledge": "knowledge.seed-file",
		"misc":      "shutdown-timeout",
	} {
		assert.NotNil(t, fss.FlagSets[name].Lookup(flag), flag)
	}

	require.NoError(t, fss.FlagSets["chat"].Parse([]string{"--chat.model=gemini-2.5-flash"}))
	assert.Equal(t, "gemini-2.5-flash", opts.ChatOptions.Model)
}

func TestServerOptions_Validate(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "test-key")
	t.Setenv("TAVILY_API_KEY", "tvly-test")

	opts := NewServerOptions()
	require.NoError(t, opts.Complete())
	assert.NoError(t, opts.Validate())
	assert.Equal(t, "test-key", opts.ChatOptions.APIKey)
	assert.Equal(t, "tvly-test", opts.SearchOptions.APIKey)

	opts.PipelineOptions.TopK = 0
	opts.KnowledgeOptions.Store = "sqlite"
	err := opts.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "top-k")
	assert.Contains(t, err.Error(), "sqlite")
}

func TestServerOptions_Config(t *testing.T) {
	opts := NewServerOptions()
	cfg, err := opts.Config()
	require.NoError(t, err)

	assert.Same(t, opts.ChatOptions, cfg.ChatOptions)
	assert.Same(t, opts.ToolOptions, cfg.ToolOptions)
	assert.Same(t, opts.KnowledgeOptions, cfg.KnowledgeOptions)
	assert.Equal(t, opts.ShutdownTimeout, cfg.ShutdownTimeout)
}
