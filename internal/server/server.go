// ============================================================================
// Ballsy - Voice Assistant Backend
// ============================================================================
//
// Package:     server
// Description: HTTP server hosting the REST API, the voice WebSocket
//              endpoint and the embedded web client
// License:     MIT
// ============================================================================

package server

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/ethicalzeus07/ballsy-voice-assistant/internal/assistant"
	"github.com/ethicalzeus07/ballsy-voice-assistant/internal/config"
	"github.com/ethicalzeus07/ballsy-voice-assistant/internal/store"
	"github.com/ethicalzeus07/ballsy-voice-assistant/pkg/core/health"
	"github.com/ethicalzeus07/ballsy-voice-assistant/pkg/core/logging"
)

// Server is the Ballsy HTTP server
type Server struct {
	httpServer *http.Server
	handler    *Handler
	ws         *WebSocketHandler
	health     *health.Registry
	logger     *logging.Logger
	config     Config
}

// Config holds server configuration
type Config struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	Version      string
	CORS         config.CORSConfig
}

// DefaultConfig returns default server configuration
func DefaultConfig() Config {
	return Config{
		Host:         "0.0.0.0",
		Port:         8000,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		Version:      "1.0.0",
		CORS: config.CORSConfig{
			Enabled:        true,
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		},
	}
}

// New creates a new Ballsy server
func New(cfg Config, svc *assistant.Service, st store.Store) (*Server, error) {
	if cfg.Port == 0 {
		cfg = DefaultConfig()
	}

	registry := health.NewRegistry("ballsy", cfg.Version)
	registry.RegisterFunc("database", func(ctx context.Context) health.CheckResult {
		if err := st.Ping(ctx); err != nil {
			return health.CheckResult{Status: health.StatusUnhealthy, Message: err.Error()}
		}
		return health.CheckResult{Status: health.StatusHealthy}
	})
	registry.RegisterFunc("providers", func(ctx context.Context) health.CheckResult {
		results := svc.ProviderHealth(ctx)
		failed := 0
		for _, err := range results {
			if err != nil {
				failed++
			}
		}
		switch {
		case len(results) == 0:
			return health.CheckResult{Status: health.StatusUnhealthy, Message: "no providers configured"}
		case failed == len(results):
			return health.CheckResult{Status: health.StatusUnhealthy, Message: "all providers unreachable"}
		case failed > 0:
			return health.CheckResult{Status: health.StatusDegraded, Message: fmt.Sprintf("%d of %d providers unreachable", failed, len(results))}
		default:
			return health.CheckResult{Status: health.StatusHealthy}
		}
	})

	h := NewHandler(cfg.Version, svc, registry, cfg.CORS)
	ws := NewWebSocketHandler(svc)

	srv := &Server{
		handler: h,
		ws:      ws,
		health:  registry,
		logger:  logging.New("server"),
		config:  cfg,
	}

	mux := http.NewServeMux()
	mux.Handle("/api/v1/voice/ws", ws)
	mux.Handle("/static/", staticHandler())
	mux.HandleFunc("/app", serveApp)
	mux.Handle("/", h)

	srv.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      srv.middleware(mux),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return srv, nil
}

// Start starts the HTTP server and blocks until it stops
func (s *Server) Start() error {
	s.logger.Info("Starting HTTP server", "address", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("HTTP server error: %w", err)
	}
	return nil
}

// StartAsync starts the server in a goroutine and reports startup errors
// on the returned channel
func (s *Server) StartAsync() <-chan error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.Start()
	}()
	return errCh
}

// Stop gracefully shuts down the server
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping HTTP server")
	s.ws.CloseAll()
	return s.httpServer.Shutdown(ctx)
}

// Address returns the server's listen address
func (s *Server) Address() string {
	return s.httpServer.Addr
}

// HealthRegistry returns the server's health registry
func (s *Server) HealthRegistry() *health.Registry {
	return s.health
}

// middleware wraps the mux with request logging and security headers
func (s *Server) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("X-XSS-Protection", "1; mode=block")
		w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		w.Header().Set("Content-Security-Policy", "default-src 'self'; script-src 'self' 'unsafe-inline'; style-src 'self' 'unsafe-inline'")

		wrapped := &responseWrapper{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		s.logger.Info("HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", wrapped.statusCode,
			"duration_ms", time.Since(start).Milliseconds(),
			"remote", r.RemoteAddr,
		)
	})
}

// responseWrapper captures the response status code
type responseWrapper struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWrapper) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWrapper) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Hijack lets the WebSocket upgrader take over the connection
func (rw *responseWrapper) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	return hj.Hijack()
}
