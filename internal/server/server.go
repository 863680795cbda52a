// Package server exposes the conversion pipeline over HTTP.
//
// Routes:
//
//	GET  /api/health    liveness and version
//	POST /api/convert   upload a plan, download the converted plan
//	POST /api/aperture  upload a plan, get an aperture image
//	GET  /api/linacs    current linac configuration
//	PUT  /api/linacs    replace the linac configuration
//	GET  /api/history   recent conversion attempts
//
// Uploads are accepted either as multipart/form-data (field "file") or as
// the raw request body with the file name in the "name" query parameter.
// Error messages are localized from the Accept-Language header.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/matzehuels/leafshift/pkg/i18n"
	"github.com/matzehuels/leafshift/pkg/observability"
	"github.com/matzehuels/leafshift/pkg/pipeline"
)

// DefaultMaxUploadBytes limits uploads when Options leaves it unset.
const DefaultMaxUploadBytes = 50 << 20

// shutdownTimeout bounds graceful shutdown.
const shutdownTimeout = 10 * time.Second

// Options configures a Server.
type Options struct {
	MaxUploadBytes int64
	ReadTimeout    time.Duration
	Translator     *i18n.Translator
}

// Server serves the HTTP API.
type Server struct {
	runner    *pipeline.Runner
	logger    *log.Logger
	tr        *i18n.Translator
	maxUpload int64
	timeout   time.Duration
	router    chi.Router
}

// New creates a server backed by runner.
func New(runner *pipeline.Runner, logger *log.Logger, opts Options) *Server {
	if logger == nil {
		logger = log.Default()
	}
	if opts.Translator == nil {
		opts.Translator = i18n.Default()
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = DefaultMaxUploadBytes
	}
	s := &Server{
		runner:    runner,
		logger:    logger,
		tr:        opts.Translator,
		maxUpload: opts.MaxUploadBytes,
		timeout:   opts.ReadTimeout,
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(middleware.Recoverer)
	r.Use(observe)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Post("/convert", s.handleConvert)
		r.Post("/aperture", s.handleAperture)
		r.Get("/linacs", s.handleGetLinacs)
		r.Put("/linacs", s.handlePutLinacs)
		r.Get("/history", s.handleHistory)
	})
	return r
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadTimeout:       s.timeout,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		s.logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// =============================================================================
// Middleware
// =============================================================================

const requestIDHeader = "X-Request-ID"

// requestID tags each request with the caller's X-Request-ID or a new UUID.
// The ID is stored where middleware.GetReqID finds it.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		ctx := context.WithValue(r.Context(), middleware.RequestIDKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// observe reports requests and responses to the registered HTTP hooks.
func observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hooks := observability.HTTP()
		start := time.Now()
		hooks.OnRequest(r.Context(), r.Method, r.URL.Path)

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		hooks.OnResponse(r.Context(), r.Method, r.URL.Path, status, time.Since(start))
	})
}
