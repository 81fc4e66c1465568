// Package middleware provides HTTP middleware options.
package middleware

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/pflag"

	"github.com/kart-io/legalens/pkg/infra/middleware"
	"github.com/kart-io/legalens/pkg/options"
)

var _ options.IOptions = (*Options)(nil)

// Options contains the HTTP middleware configuration.
type Options struct {
	// CORSOrigins enables CORS for the listed origins. Empty disables CORS.
	CORSOrigins []string `json:"cors-origins" mapstructure:"cors-origins"`

	// CORSAllowCredentials allows credentialed CORS requests.
	CORSAllowCredentials bool `json:"cors-allow-credentials" mapstructure:"cors-allow-credentials"`

	// RequestTimeout is the deadline attached to each request. Zero disables it.
	RequestTimeout time.Duration `json:"request-timeout" mapstructure:"request-timeout"`

	// EnableStackTrace exposes panic stack traces in error responses.
	EnableStackTrace bool `json:"enable-stack-trace" mapstructure:"enable-stack-trace"`

	// LogSkipPaths are not logged by the request logger.
	LogSkipPaths []string `json:"log-skip-paths" mapstructure:"log-skip-paths"`
}

// NewOptions creates Options with defaults.
func NewOptions() *Options {
	return &Options{
		CORSOrigins:    []string{"*"},
		RequestTimeout: 5 * time.Minute,
		LogSkipPaths:   []string{"/healthz"},
	}
}

// AddFlags adds flags for middleware options.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	p := options.Join(prefixes...)
	fs.StringSliceVar(&o.CORSOrigins, p+"cors-origins", o.CORSOrigins, "Allowed CORS origins (empty disables CORS).")
	fs.BoolVar(&o.CORSAllowCredentials, p+"cors-allow-credentials", o.CORSAllowCredentials, "Allow credentialed CORS requests.")
	fs.DurationVar(&o.RequestTimeout, p+"request-timeout", o.RequestTimeout, "Deadline attached to each HTTP request.")
	fs.BoolVar(&o.EnableStackTrace, p+"enable-stack-trace", o.EnableStackTrace, "Expose panic stack traces in responses.")
	fs.StringSliceVar(&o.LogSkipPaths, p+"log-skip-paths", o.LogSkipPaths, "Paths excluded from request logging.")
}

// Validate validates the middleware options.
func (o *Options) Validate() []error {
	if o == nil {
		return nil
	}
	var errs []error
	if len(o.CORSOrigins) > 0 {
		if err := o.CORSConfig().Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	if o.RequestTimeout < 0 {
		errs = append(errs, fmt.Errorf("middleware request-timeout must not be negative"))
	}
	return errs
}

// CORSConfig converts the options into a middleware config.
func (o *Options) CORSConfig() middleware.CORSConfig {
	cfg := middleware.DefaultCORSConfig
	cfg.AllowOrigins = o.CORSOrigins
	cfg.AllowCredentials = o.CORSAllowCredentials
	return cfg
}

// Handlers builds the middleware chain in its fixed order:
// recovery, request id, logger, cors, timeout.
func (o *Options) Handlers() ([]gin.HandlerFunc, error) {
	handlers := []gin.HandlerFunc{
		middleware.Recovery(middleware.RecoveryConfig{EnableStackTrace: o.EnableStackTrace}),
		middleware.RequestID(),
		middleware.Logger(middleware.LoggerConfig{SkipPaths: o.LogSkipPaths}),
	}
	if len(o.CORSOrigins) > 0 {
		cors, err := middleware.CORS(o.CORSConfig())
		if err != nil {
			return nil, err
		}
		handlers = append(handlers, cors)
	}
	handlers = append(handlers, middleware.Timeout(middleware.TimeoutConfig{
		Timeout:   o.RequestTimeout,
		SkipPaths: o.LogSkipPaths,
	}))
	return handlers, nil
}
