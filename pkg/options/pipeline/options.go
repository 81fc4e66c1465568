// Package pipeline provides document analysis pipeline options.
package pipeline

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"

	"github.com/kart-io/legalens/pkg/options"
)

var _ options.IOptions = (*Options)(nil)

// Options contains analysis pipeline configuration.
type Options struct {
	// MinChunkLength drops clauses shorter than this many characters.
	MinChunkLength int `json:"min-chunk-length" mapstructure:"min-chunk-length"`

	// TopK is the number of reference clauses retrieved per clause.
	TopK int `json:"top-k" mapstructure:"top-k"`

	// ClassifyPrefix is how many characters of the document the classifier sees.
	ClassifyPrefix int `json:"classify-prefix" mapstructure:"classify-prefix"`

	// CallTimeout bounds every single collaborator call.
	CallTimeout time.Duration `json:"call-timeout" mapstructure:"call-timeout"`

	// RequestTimeout bounds a whole analysis request.
	RequestTimeout time.Duration `json:"request-timeout" mapstructure:"request-timeout"`

	// ExtractDates enables the key-dates stage.
	ExtractDates bool `json:"extract-dates" mapstructure:"extract-dates"`

	// SearchQuery is the query hint given to the loan comparison agent.
	SearchQuery string `json:"search-query" mapstructure:"search-query"`
}

// NewOptions creates Options with defaults.
func NewOptions() *Options {
	return &Options{
		MinChunkLength: 50,
		TopK:           4,
		ClassifyPrefix: 3000,
		CallTimeout:    60 * time.Second,
		RequestTimeout: 5 * time.Minute,
		ExtractDates:   true,
		SearchQuery:    "current personal loan interest rates India",
	}
}

// AddFlags adds flags for pipeline options.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	p := options.Join(prefixes...)
	fs.IntVar(&o.MinChunkLength, p+"min-chunk-length", o.MinChunkLength, "Minimum clause length in characters.")
	fs.IntVar(&o.TopK, p+"top-k", o.TopK, "Reference clauses retrieved per clause.")
	fs.IntVar(&o.ClassifyPrefix, p+"classify-prefix", o.ClassifyPrefix, "Document prefix length used for classification.")
	fs.DurationVar(&o.CallTimeout, p+"call-timeout", o.CallTimeout, "Timeout of a single model, index or search call.")
	fs.DurationVar(&o.RequestTimeout, p+"request-timeout", o.RequestTimeout, "Timeout of a whole analysis request.")
	fs.BoolVar(&o.ExtractDates, p+"extract-dates", o.ExtractDates, "Extract a key-dates timeline.")
	fs.StringVar(&o.SearchQuery, p+"search-query", o.SearchQuery, "Search query hint for loan comparison.")
}

// Validate validates the pipeline options.
func (o *Options) Validate() []error {
	if o == nil {
		return nil
	}
	var errs []error
	if o.MinChunkLength < 1 || o.MinChunkLength > 1000 {
		errs = append(errs, fmt.Errorf("pipeline min-chunk-length must be within [1, 1000]"))
	}
	if o.TopK <= 0 {
		errs = append(errs, fmt.Errorf("pipeline top-k must be positive"))
	}
	if o.ClassifyPrefix <= 0 {
		errs = append(errs, fmt.Errorf("pipeline classify-prefix must be positive"))
	}
	if o.CallTimeout <= 0 || o.RequestTimeout <= 0 {
		errs = append(errs, fmt.Errorf("pipeline timeouts must be positive"))
	}
	if o.CallTimeout > o.RequestTimeout {
		errs = append(errs, fmt.Errorf("pipeline call-timeout must not exceed request-timeout"))
	}
	return errs
}
