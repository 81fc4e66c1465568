// Package search provides web search client options.
package search

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/kart-io/legalens/pkg/options"
)

var _ options.IOptions = (*Options)(nil)

// Options contains web search configuration.
type Options struct {
	// Provider is the search backend name.
	Provider string `json:"provider" mapstructure:"provider"`

	// BaseURL is the search API endpoint.
	BaseURL string `json:"base-url" mapstructure:"base-url"`

	// APIKey is the search API key. Falls back to TAVILY_API_KEY.
	APIKey string `json:"-" mapstructure:"api-key"`

	// MaxResults caps the number of results per query.
	MaxResults int `json:"max-results" mapstructure:"max-results"`

	// Timeout is the per-request timeout.
	Timeout time.Duration `json:"timeout" mapstructure:"timeout"`

	// MaxRetries is the retry count for 5xx responses.
	MaxRetries int `json:"max-retries" mapstructure:"max-retries"`
}

// NewOptions creates Options with defaults.
func NewOptions() *Options {
	return &Options{
		Provider:   "tavily",
		BaseURL:    "https://api.tavily.com",
		MaxResults: 5,
		Timeout:    30 * time.Second,
		MaxRetries: 2,
	}
}

// AddFlags adds flags for search options.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	p := options.Join(prefixes...)
	fs.StringVar(&o.Provider, p+"provider", o.Provider, "Web search provider (tavily).")
	fs.StringVar(&o.BaseURL, p+"base-url", o.BaseURL, "Web search API base URL.")
	fs.StringVar(&o.APIKey, p+"api-key", o.APIKey, "Web search API key (defaults to $TAVILY_API_KEY).")
	fs.IntVar(&o.MaxResults, p+"max-results", o.MaxResults, "Maximum results per search.")
	fs.DurationVar(&o.Timeout, p+"timeout", o.Timeout, "Web search request timeout.")
	fs.IntVar(&o.MaxRetries, p+"max-retries", o.MaxRetries, "Web search retries on server errors.")
}

// Validate validates the search options.
func (o *Options) Validate() []error {
	if o == nil {
		return nil
	}
	var errs []error
	if o.Provider != "tavily" {
		errs = append(errs, fmt.Errorf("unsupported search provider %q", o.Provider))
	}
	if o.MaxResults <= 0 || o.MaxResults > 20 {
		errs = append(errs, fmt.Errorf("search max-results must be within [1, 20]"))
	}
	if o.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("search timeout must be positive"))
	}
	return errs
}

// Complete fills the API key from the environment.
func (o *Options) Complete() error {
	if o.APIKey == "" {
		o.APIKey = os.Getenv("TAVILY_API_KEY")
	}
	return nil
}
