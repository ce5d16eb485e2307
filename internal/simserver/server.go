// Package simserver implements the simulated services the harness
// benchmarks: an upstream server that fakes slow IO, and two targets that
// relay to it, one servicing requests strictly in sequence and one fanning
// them out.
package simserver

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/net/netutil"
)

// Role selects which service a Server instance provides.
type Role string

const (
	// RoleUpstream serves /slow-io, the simulated IO-bound dependency.
	RoleUpstream Role = "upstream"
	// RoleSyncTarget serves /io-test with internally sequential upstream
	// calls, modeling a blocking worker.
	RoleSyncTarget Role = "sync"
	// RoleAsyncTarget serves /io-test with internally concurrent
	// upstream calls, modeling a multiplexing worker.
	RoleAsyncTarget Role = "async"
)

// Config holds simserver configuration.
type Config struct {
	Addr        string
	Role        Role
	UpstreamURL string // required for target roles
	// MaxConns bounds concurrently accepted connections, modeling a
	// bounded worker pool. 0 leaves the accept loop unbounded.
	MaxConns int
}

// Server is one simulated HTTP service.
type Server struct {
	cfg        Config
	router     chi.Router
	httpServer *http.Server
	upstream   *http.Client
}

// New creates a Server for the given role.
func New(cfg Config) *Server {
	s := &Server{
		cfg:      cfg,
		upstream: &http.Client{Timeout: 30 * time.Second},
	}
	s.router = s.buildRouter()
	s.httpServer = &http.Server{
		Addr:    cfg.Addr,
		Handler: s.router,
	}
	return s
}

func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	switch s.cfg.Role {
	case RoleUpstream:
		r.Get("/slow-io", s.handleSlowIO)
	default:
		r.Get("/io-test", s.handleIOTest)
	}

	return r
}

// Start begins listening for HTTP requests and blocks until the server is
// shut down.
func (s *Server) Start() error {
	lis, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	if s.cfg.MaxConns > 0 {
		lis = netutil.LimitListener(lis, s.cfg.MaxConns)
	}
	slog.Info("simserver starting", "role", s.cfg.Role, "addr", s.cfg.Addr, "max_conns", s.cfg.MaxConns)
	return s.httpServer.Serve(lis)
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	slog.Info("simserver shutting down", "role", s.cfg.Role)
	return s.httpServer.Shutdown(ctx)
}

// Close force-closes the server.
func (s *Server) Close() error {
	return s.httpServer.Close()
}

// Handler returns the http.Handler for testing.
func (s *Server) Handler() http.Handler {
	return s.router
}

// JSON response helpers

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// Middleware

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		slog.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}
