// Package daemon composes the routerd process: config to logger, slot
// store, module host, service router, and the RPC server, in that order.
package daemon

import (
	"crypto/sha256"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"prism/go-router/internal/adapters/rpc"
	"prism/go-router/internal/config"
	"prism/go-router/internal/facets/counter"
	"prism/go-router/internal/identity"
	"prism/go-router/internal/invoke"
	"prism/go-router/internal/platform/privacylog"
	"prism/go-router/internal/registrystore"
	"prism/go-router/internal/service"
)

// counterModuleTag seeds the deterministic address the bundled counter
// facet is hosted under, so operators can register routes against it
// without an extra discovery step.
const counterModuleTag = "prism/facets/counter/v1"

// CounterModuleID is the address of the bundled counter facet.
func CounterModuleID() identity.ID {
	sum := sha256.Sum256([]byte(counterModuleTag))
	id, _ := identity.FromBytes(sum[:])
	return id
}

// BuildLogger constructs the daemon logger: json or text handler at the
// configured level, wrapped so secrets never reach the sink.
func BuildLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(strings.TrimSpace(cfg.Level)) {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if strings.EqualFold(strings.TrimSpace(cfg.Format), "text") {
		handler = slog.NewTextHandler(os.Stderr, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}
	return slog.New(privacylog.WrapHandler(handler))
}

// Build wires the full daemon. The returned server is ready to Run; the
// logger is also installed as slog's default so every package logs through
// the sanitizer.
func Build(cfg config.Config) (*rpc.Server, *slog.Logger, error) {
	log := BuildLogger(cfg.Log)
	slog.SetDefault(log)

	slots, err := registrystore.NewFileStore(cfg.Storage.DataDir, cfg.Storage.Passphrase)
	if err != nil {
		return nil, nil, fmt.Errorf("open slot store: %w", err)
	}
	store := registrystore.New(slots)

	host := invoke.NewHost()
	counterID := CounterModuleID()
	if err := host.Register(counterID, counter.New()); err != nil {
		return nil, nil, fmt.Errorf("register counter facet: %w", err)
	}

	svc, err := service.New(service.Options{
		Store:  store,
		Host:   host,
		Logger: log,
	})
	if err != nil {
		return nil, nil, err
	}

	server := rpc.NewServer(rpc.Options{
		Addr:             cfg.RPC.Addr,
		Service:          svc,
		Logger:           log,
		RateLimitEnabled: cfg.RPC.RateLimitEnabled,
		RateLimitRPS:     cfg.RPC.RateLimitRPS,
		RateLimitBurst:   cfg.RPC.RateLimitBurst,
		RateLimitIdleTTL: cfg.RPC.RateLimitIdleTTL,
	})

	log.Info("routerd composed",
		"rpc_addr", cfg.RPC.Addr,
		"data_dir", cfg.Storage.DataDir,
		"encrypted_at_rest", cfg.Storage.Passphrase != "",
		"counter_module", counterID)
	return server, log, nil
}
