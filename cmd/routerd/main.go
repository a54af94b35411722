package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"prism/go-router/internal/composition/daemon"
	"prism/go-router/internal/config"
)

var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	rpcAddr := flag.String("rpc-addr", "", "JSON-RPC listen address (default 127.0.0.1:8877)")
	configPath := flag.String("config", "", "Path to routerd.yaml (optional)")
	dataDir := flag.String("data-dir", "", "Directory for registry slots (optional)")
	rpcToken := flag.String("rpc-token", "", "RPC token for Authorization/X-Prism-RPC-Token (optional)")
	flag.Parse()
	if *showVersion {
		fmt.Printf("routerd version=%s commit=%s build_date=%s\n", version, commit, buildDate)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if *rpcToken != "" {
		_ = os.Setenv("PRISM_RPC_TOKEN", *rpcToken)
	}

	cfg := config.LoadFromPath(*configPath)
	if *rpcAddr != "" {
		cfg.RPC.Addr = *rpcAddr
	}
	if *dataDir != "" {
		cfg.Storage.DataDir = *dataDir
	}

	srv, logger, err := daemon.Build(cfg)
	if err != nil {
		log.Fatalf("routerd failed to initialize: %v", err)
	}

	logger.Info("routerd starting", "version", version)
	if err := srv.Run(ctx); err != nil {
		log.Fatalf("routerd failed: %v", err)
	}
	logger.Info("routerd stopped")
}
