// Package rpc serves the registry operation surface as JSON-RPC 2.0 over
// HTTP, with token auth, per-client rate limiting, and prometheus metrics.
package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"prism/go-router/internal/platform/metrics"
	"prism/go-router/internal/platform/ratelimiter"
	"prism/go-router/internal/service"
)

const DefaultRPCAddr = "127.0.0.1:8877"

// Options configure a Server. Service is required; zero rate-limit fields
// disable the limiter.
type Options struct {
	Addr             string
	Service          *service.Router
	Logger           *slog.Logger
	RateLimitEnabled bool
	RateLimitRPS     float64
	RateLimitBurst   int
	RateLimitIdleTTL time.Duration
}

type Server struct {
	httpServer *http.Server
	svc        *service.Router
	log        *slog.Logger
	initErr    error
	token      string
	requireRPC bool
	limiter    *ratelimiter.ClientLimiter
}

// NewServer builds the server. Outside test/dev environments a token is
// mandatory; a missing one surfaces as the Run error rather than a panic so
// the daemon exits with a clear message.
func NewServer(opts Options) *Server {
	if opts.Service == nil {
		return &Server{initErr: errors.New("rpc: service is required")}
	}
	requireRPC := requiresRPCToken()
	token := strings.TrimSpace(os.Getenv("PRISM_RPC_TOKEN"))
	if requireRPC && token == "" {
		return &Server{
			initErr: errors.New("PRISM_RPC_TOKEN is required unless PRISM_REQUIRE_RPC_TOKEN=false or PRISM_ENV is test/development/local"),
		}
	}

	addr := opts.Addr
	if addr == "" {
		addr = DefaultRPCAddr
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	var limiter *ratelimiter.ClientLimiter
	if opts.RateLimitEnabled {
		limiter = ratelimiter.New(opts.RateLimitRPS, opts.RateLimitBurst, opts.RateLimitIdleTTL)
	}

	mux := http.NewServeMux()
	s := &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
		svc:        opts.Service,
		log:        log,
		token:      token,
		requireRPC: requireRPC,
		limiter:    limiter,
	}
	if s.token == "" && !s.requireRPC {
		log.Warn("PRISM_RPC_TOKEN is not set; RPC auth disabled")
	}
	metrics.RegisterMetrics()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/rpc", s.handleRPC)
	mux.Handle("/metrics", promhttp.Handler())
	return s
}

// Handler exposes the mux for httptest-driven tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

func (s *Server) Run(ctx context.Context) error {
	if s.initErr != nil {
		return s.initErr
	}
	select {
	case <-ctx.Done():
		return nil
	default:
	}

	errCh := make(chan error, 1)
	go func() {
		err := s.httpServer.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
			return
		}
		errCh <- err
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return <-errCh
	case err := <-errCh:
		return err
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) authorizeRPC(w http.ResponseWriter, r *http.Request) bool {
	if s.token == "" && !s.requireRPC {
		return true
	}
	if s.extractRPCToken(r) != s.token {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return false
	}
	return true
}

func (s *Server) extractRPCToken(r *http.Request) string {
	token := strings.TrimSpace(r.Header.Get("X-Prism-RPC-Token"))
	if token != "" {
		return token
	}
	auth := strings.TrimSpace(r.Header.Get("Authorization"))
	if strings.HasPrefix(strings.ToLower(auth), "bearer ") {
		return strings.TrimSpace(auth[len("bearer "):])
	}
	return ""
}

func (s *Server) rateLimitClient(r *http.Request) ratelimiter.Client {
	if token := s.extractRPCToken(r); token != "" {
		return ratelimiter.TokenClient(token)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return ratelimiter.AddrClient(r.RemoteAddr)
	}
	return ratelimiter.AddrClient(host)
}

func requiresRPCToken() bool {
	if v := strings.TrimSpace(os.Getenv("PRISM_REQUIRE_RPC_TOKEN")); v != "" {
		return !strings.EqualFold(v, "false")
	}
	switch strings.ToLower(strings.TrimSpace(os.Getenv("PRISM_ENV"))) {
	case "test", "testing", "development", "dev", "local":
		return false
	}
	return true
}
