// Package server exposes an Enforcer and Validator over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"permgate/internal/metrics"
	"permgate/internal/permission"
)

const maxBodySize = 1 << 20 // 1MB

type Config struct {
	Addr         string
	APIKey       string // empty disables auth on /v1
	MetricsPath  string // empty disables /metrics
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Server is the decision service.
type Server struct {
	config    Config
	router    *chi.Mux
	httpSrv   *http.Server
	enforcer  *permission.Enforcer
	validator *permission.Validator
	logger    *slog.Logger
}

func New(cfg Config, enforcer *permission.Enforcer, validator *permission.Validator, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if validator == nil {
		validator = permission.NewValidator(logger)
	}
	s := &Server{
		config:    cfg,
		router:    chi.NewRouter(),
		enforcer:  enforcer,
		validator: validator,
		logger:    logger,
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.requestLogger)
	s.router.Use(middleware.Recoverer)
}

func (s *Server) setupRoutes() {
	r := s.router

	r.Get("/healthz", s.health)
	if s.config.MetricsPath != "" {
		r.Get(s.config.MetricsPath, metrics.Collector.Handler())
	}

	r.Route("/v1", func(r chi.Router) {
		r.Use(s.authenticate)
		r.Use(limitBody)

		r.Post("/check", s.check)
		r.Post("/validate", s.validate)
		r.Get("/audit", s.audit)
		r.Delete("/audit", s.clearAudit)
		r.Get("/permissions", s.permissions)
		r.Put("/isolation", s.setIsolation)
	})
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	s.httpSrv = &http.Server{
		Addr:              s.config.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       s.config.ReadTimeout,
		WriteTimeout:      s.config.WriteTimeout,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.httpSrv.Shutdown(shutdownCtx)
	}()

	s.logger.Info("decision service started", "addr", s.config.Addr)
	if err := s.httpSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// authenticate requires "Authorization: Bearer <apiKey>" when a key is set.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.config.APIKey != "" {
			auth := r.Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") || strings.TrimPrefix(auth, "Bearer ") != s.config.APIKey {
				writeError(w, http.StatusUnauthorized, "unauthorized", "invalid API key")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func limitBody(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		level := slog.LevelDebug
		switch {
		case ww.Status() >= 500:
			level = slog.LevelError
		case ww.Status() >= 400:
			level = slog.LevelWarn
		}
		s.logger.Log(r.Context(), level, http.StatusText(ww.Status()),
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes_written", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
