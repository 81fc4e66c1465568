// Package knowledge provides reference knowledge base options.
package knowledge

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/kart-io/legalens/pkg/options"
)

var _ options.IOptions = (*Options)(nil)

// Options contains knowledge base configuration.
type Options struct {
	// Store selects the vector index backend (milvus, memory).
	Store string `json:"store" mapstructure:"store"`

	// SeedFile is a YAML file of reference clauses loaded at startup.
	SeedFile string `json:"seed-file" mapstructure:"seed-file"`

	// BatchSize is the number of clauses embedded per request while seeding.
	BatchSize int `json:"batch-size" mapstructure:"batch-size"`
}

// NewOptions creates Options with defaults.
func NewOptions() *Options {
	return &Options{
		Store:     "milvus",
		BatchSize: 32,
	}
}

// AddFlags adds flags for knowledge options.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	p := options.Join(prefixes...)
	fs.StringVar(&o.Store, p+"store", o.Store, "Vector index backend (milvus, memory).")
	fs.StringVar(&o.SeedFile, p+"seed-file", o.SeedFile, "YAML file of reference clauses indexed at startup.")
	fs.IntVar(&o.BatchSize, p+"batch-size", o.BatchSize, "Clauses embedded per batch while seeding.")
}

// Validate validates the knowledge options.
func (o *Options) Validate() []error {
	if o == nil {
		return nil
	}
	var errs []error
	if o.Store != "milvus" && o.Store != "memory" {
		errs = append(errs, fmt.Errorf("unsupported knowledge store %q", o.Store))
	}
	if o.BatchSize <= 0 {
		errs = append(errs, fmt.Errorf("knowledge batch-size must be positive"))
	}
	if o.SeedFile != "" {
		if _, err := os.Stat(o.SeedFile); err != nil {
			errs = append(errs, fmt.Errorf("knowledge seed-file: %w", err))
		}
	}
	return errs
}
