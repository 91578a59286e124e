// Package server exposes the query pipeline over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"github.com/spektr-org/askdata/pipeline"
)

// Runner answers one query. *pipeline.Pipeline implements it.
type Runner interface {
	Run(ctx context.Context, query string) (*pipeline.Answer, error)
	Datasets() pipeline.Datasets
}

// Config holds configuration for the HTTP server.
type Config struct {
	Pipeline     Runner
	Addr         string
	IndexFile    string
	QueryTimeout time.Duration
	Logger       *slog.Logger
}

// Server serves the index page and the query endpoint.
type Server struct {
	runner       Runner
	addr         string
	indexFile    string
	queryTimeout time.Duration
	logger       *slog.Logger
	router       chi.Router
}

// New creates a Server and registers its routes.
func New(cfg Config) (*Server, error) {
	if cfg.Pipeline == nil {
		return nil, errors.New("server needs a pipeline")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		runner:       cfg.Pipeline,
		addr:         cfg.Addr,
		indexFile:    cfg.IndexFile,
		queryTimeout: cfg.QueryTimeout,
		logger:       logger,
	}
	s.router = s.routes()
	return s, nil
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.router }

// Serve starts the HTTP server and blocks until ctx is cancelled, then shuts
// down gracefully.
func (s *Server) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.addr, err)
	}
	return s.serve(ctx, ln)
}

func (s *Server) serve(ctx context.Context, ln net.Listener) error {
	eg, egctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Handler: s.router,
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.Info("starting server", "addr", ln.Addr().String())

	eg.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Info("shutting down server")
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}
