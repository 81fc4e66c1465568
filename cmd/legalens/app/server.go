// Package app provides the legalens server application.
package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/kart-io/legalens/cmd/legalens/app/options"
	"github.com/kart-io/legalens/internal/legalens"
	"github.com/kart-io/legalens/pkg/infra/app"
)

// commandDesc is the description of the command.
const commandDesc = `Legalens Document Analysis Service

Analyzes legal documents (rental, employment and loan agreements) with LLMs.

This server provides:
  - Document classification, entity extraction and summarization
  - Clause-by-clause risk analysis grounded on reference clauses
  - Salary breakdown and key date extraction
  - Follow-up question answering over a finished analysis
  - Loan interest rate comparison using web search tool calls`

// NewApp creates and returns a new App object with default parameters.
func NewApp() *app.App {
	opts := options.NewServerOptions()
	return app.NewApp(
		app.WithName(legalens.Name),
		app.WithDescription(commandDesc),
		app.WithOptions(opts),
		app.WithRunFunc(run(opts)),
	)
}

// run contains the main logic for initializing and running the server.
func run(opts *options.ServerOptions) app.RunFunc {
	return func() error {
		cfg, err := opts.Config()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		ctx := setupSignalContext()

		server, err := cfg.NewServer(ctx)
		if err != nil {
			return fmt.Errorf("failed to create server: %w", err)
		}

		return server.Run(ctx)
	}
}

// setupSignalContext returns a context that is cancelled on SIGINT or SIGTERM.
// A second signal exits immediately.
func setupSignalContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	c := make(chan os.Signal, 2)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-c
		cancel()
		<-c
		os.Exit(1)
	}()
	return ctx
}
