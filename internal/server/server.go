// Package server exposes the layout pipeline and the saved-layout store
// over HTTP.
//
// Routes:
//
//	POST   /v1/layout              graph → layout JSON
//	POST   /v1/render?format=svg   graph → rendered artifact
//	POST   /v1/layouts             save a layout (or compute and save)
//	GET    /v1/layouts?graph=hash  list saved layouts
//	GET    /v1/layouts/{id}        fetch a saved layout
//	GET    /v1/layouts/{id}/render render a saved layout
//	DELETE /v1/layouts/{id}        delete a saved layout
//	GET    /healthz
//	GET    /metrics                when a metrics handler is configured
//
// Errors are JSON objects {"code": ..., "message": ...} with the status
// from errors.HTTPStatus.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/sysmap/pkg/pipeline"
	"github.com/matzehuels/sysmap/pkg/store"
)

// DefaultMaxBodyBytes bounds request bodies.
const DefaultMaxBodyBytes = 8 << 20

// Options configures a Server.
type Options struct {
	Addr string
	// Defaults are the pipeline options every request starts from.
	// Request options override non-zero fields.
	Defaults pipeline.Options
	// Metrics is mounted on /metrics when set.
	Metrics         http.Handler
	MaxBodyBytes    int64
	ShutdownTimeout time.Duration
}

// Server serves the HTTP API.
type Server struct {
	runner *pipeline.Runner
	store  store.Store
	logger *log.Logger
	opts   Options
	router chi.Router
}

// New builds a server. st may be nil, in which case the /v1/layouts
// routes answer 501.
func New(runner *pipeline.Runner, st store.Store, logger *log.Logger, opts Options) *Server {
	if logger == nil {
		logger = log.Default()
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 10 * time.Second
	}
	s := &Server{
		runner: runner,
		store:  st,
		logger: logger,
		opts:   opts,
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)
	r.Use(secureHeaders)

	r.Get("/healthz", handleHealth)
	if s.opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.opts.Metrics)
	}

	r.Route("/v1", func(r chi.Router) {
		r.Use(s.limitBody)
		r.Post("/layout", s.handleLayout)
		r.Post("/render", s.handleRender)

		r.Route("/layouts", func(r chi.Router) {
			r.Use(s.requireStore)
			r.Post("/", s.handleSaveLayout)
			r.Get("/", s.handleListLayouts)
			r.Get("/{id}", s.handleGetLayout)
			r.Get("/{id}/render", s.handleRenderSaved)
			r.Delete("/{id}", s.handleDeleteLayout)
		})
	})
	return r
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on the configured address until ctx is cancelled, then shuts
// down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", "addr", ln.Addr().String())
		errc <- srv.Serve(ln)
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("server stopping")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
