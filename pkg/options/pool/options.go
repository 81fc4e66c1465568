// Package pool provides worker pool options.
package pool

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"

	"github.com/kart-io/legalens/pkg/options"
)

var _ options.IOptions = (*Options)(nil)

// Options contains the analysis worker pool configuration.
type Options struct {
	// Size is the maximum number of concurrent clause analyses.
	Size int `json:"size" mapstructure:"size"`

	// ExpiryDuration is how long an idle worker lives.
	ExpiryDuration time.Duration `json:"expiry-duration" mapstructure:"expiry-duration"`

	// MaxBlockingTasks limits queued submissions, 0 means unlimited.
	MaxBlockingTasks int `json:"max-blocking-tasks" mapstructure:"max-blocking-tasks"`
}

// NewOptions creates Options with defaults.
func NewOptions() *Options {
	return &Options{
		Size:             16,
		ExpiryDuration:   10 * time.Second,
		MaxBlockingTasks: 1024,
	}
}

// AddFlags adds flags for pool options.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	p := options.Join(prefixes...)
	fs.IntVar(&o.Size, p+"size", o.Size, "Analysis worker pool size.")
	fs.DurationVar(&o.ExpiryDuration, p+"expiry-duration", o.ExpiryDuration, "Idle worker expiry.")
	fs.IntVar(&o.MaxBlockingTasks, p+"max-blocking-tasks", o.MaxBlockingTasks, "Maximum queued tasks (0 = unlimited).")
}

// Validate validates the pool options.
func (o *Options) Validate() []error {
	if o == nil {
		return nil
	}
	var errs []error
	if o.Size <= 0 {
		errs = append(errs, fmt.Errorf("pool size must be positive"))
	}
	if o.MaxBlockingTasks < 0 {
		errs = append(errs, fmt.Errorf("pool max-blocking-tasks must not be negative"))
	}
	return errs
}
