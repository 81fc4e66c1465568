package llm

import (
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateRequiresKeyForCloudProviders(t *testing.T) {
	o := NewChatOptions()
	errs := o.Validate()
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "api-key")

	o.APIKey = "k"
	assert.Empty(t, o.Validate())

	o.Provider = "ollama"
	o.APIKey = ""
	assert.Empty(t, o.Validate())
}

func TestAddFlagsUsesPrefix(t *testing.T) {
	o := NewEmbeddingOptions()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	o.AddFlags(fs, "embedding")

	require.NoError(t, fs.Parse([]string{
		"--embedding.provider=openai",
		"--embedding.model=text-embedding-3-small",
		"--embedding.timeout=5s",
	}))

	assert.Equal(t, "openai", o.Provider)
	assert.Equal(t, "text-embedding-3-small", o.Model)
	assert.Equal(t, 5*time.Second, o.Timeout)
}

func TestToConfigMap(t *testing.T) {
	o := NewToolOptions()
	o.APIKey = "secret"
	m := o.ToConfigMap()

	assert.Equal(t, "secret", m["api_key"])
	assert.Equal(t, "gemini-2.5-flash", m["chat_model"])
	assert.Equal(t, 3, m["max_retries"])
}
