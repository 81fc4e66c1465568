// Package http provides the gin based HTTP server.
package http

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"

	apierrors "github.com/kart-io/legalens/pkg/errors"
	"github.com/kart-io/legalens/pkg/infra/middleware"
	"github.com/kart-io/legalens/pkg/infra/server"
	options "github.com/kart-io/legalens/pkg/options/server/http"
	"github.com/kart-io/legalens/pkg/response"
)

// Re-export types from options package for convenience
type (
	// Options contains HTTP server configuration.
	Options = options.Options
	// Option is a function that configures Options.
	Option = options.Option
)

// Re-export option functions
var (
	NewOptions       = options.NewOptions
	WithAddr         = options.WithAddr
	WithWriteTimeout = options.WithWriteTimeout
)

// Registrar registers routes on the gin engine.
type Registrar interface {
	RegisterRoutes(engine *gin.Engine)
}

// Server is the HTTP server implementation.
type Server struct {
	opts   *options.Options
	engine *gin.Engine
	server *http.Server

	mu       sync.Mutex
	listener net.Listener
}

// NewServer creates a new HTTP server with the given options and middleware.
// 中间件在创建时注册，之后注册的路由组都会继承这些中间件。
func NewServer(opts *options.Options, handlers ...gin.HandlerFunc) *Server {
	if opts == nil {
		opts = options.NewOptions()
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(handlers...)
	if opts.MaxBodyBytes > 0 {
		engine.Use(limitBody(opts.MaxBodyBytes))
	}

	engine.NoRoute(func(c *gin.Context) {
		resp := response.Err(apierrors.ErrRouteNotFound).WithRequestID(middleware.GetRequestID(c))
		c.JSON(resp.HTTPStatus(), resp)
	})

	return &Server{
		opts:   opts,
		engine: engine,
	}
}

// Name returns the server name.
func (s *Server) Name() string {
	return "http[gin]"
}

// Engine returns the underlying gin.Engine.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// Register registers routes of each registrar.
func (s *Server) Register(registrars ...Registrar) {
	for _, r := range registrars {
		r.RegisterRoutes(s.engine)
	}
}

// Addr returns the bound address once the server is started.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return s.opts.Addr
	}
	return s.listener.Addr().String()
}

// Start starts the HTTP server. It returns once the listener is bound.
func (s *Server) Start(ctx context.Context) error {
	ln, err := (&net.ListenConfig{}).Listen(ctx, "tcp", s.opts.Addr)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.listener = ln
	s.server = &http.Server{
		Handler:      s.engine,
		ReadTimeout:  s.opts.ReadTimeout,
		WriteTimeout: s.opts.WriteTimeout,
		IdleTimeout:  s.opts.IdleTimeout,
	}
	srv := s.server
	s.mu.Unlock()

	logger.Infow("HTTP server listening", "addr", ln.Addr().String())

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorw("HTTP server stopped unexpectedly", "error", err)
		}
	}()

	return nil
}

// Stop stops the HTTP server gracefully.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	srv := s.server
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

// limitBody caps the request body size.
func limitBody(n int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, n)
		}
		c.Next()
	}
}

var _ server.Runnable = (*Server)(nil)
