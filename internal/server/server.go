// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package server exposes the conversion pipeline and the feedback channel
// over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/pdiddy/pdf2md/internal/feedback"
	"github.com/pdiddy/pdf2md/pkg/types"
)

// ShutdownTimeout bounds graceful shutdown after the context is cancelled.
const ShutdownTimeout = 30 * time.Second

// Converter runs one conversion. *pipeline.Pipeline implements it.
type Converter interface {
	Convert(ctx context.Context, req types.ConversionRequest) types.Result
}

// FeedbackSubmitter queues a feedback entry. *feedback.Dispatcher implements it.
type FeedbackSubmitter interface {
	Submit(name, message string) (feedback.Entry, error)
}

// Server is the HTTP host.
type Server struct {
	cfg      types.ServerConfig
	conv     Converter
	feedback FeedbackSubmitter
	version  string
	log      zerolog.Logger
}

// New returns a Server. fb may be nil, in which case feedback is rejected
// with 503.
func New(cfg types.ServerConfig, conv Converter, fb FeedbackSubmitter, version string, log zerolog.Logger) *Server {
	defaults := types.DefaultConfig().Server
	if cfg.Addr == "" {
		cfg.Addr = defaults.Addr
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaults.RequestTimeout
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = defaults.MaxUploadBytes
	}
	return &Server{
		cfg:      cfg,
		conv:     conv,
		feedback: fb,
		version:  version,
		log:      log.With().Str("component", "server").Logger(),
	}
}

// Handler returns the router with all routes configured.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(s.accessLog)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(s.cfg.RequestTimeout))

	r.Get("/health", s.health)

	r.Route("/v1", func(r chi.Router) {
		r.Post("/convert", s.convert)
		r.Post("/feedback", s.submitFeedback)
	})

	return r
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", s.cfg.Addr).Msg("listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

// accessLog writes one structured line per request.
func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		defer func() {
			s.log.Info().
				Str("request_id", chimiddleware.GetReqID(r.Context())).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Str("remote", r.RemoteAddr).
				Int("status", ww.Status()).
				Int("bytes", ww.BytesWritten()).
				Dur("elapsed", time.Since(start)).
				Msg("request")
		}()
		next.ServeHTTP(ww, r)
	})
}
