package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"qtumor/internal/classify"
	"qtumor/internal/config"
	server "qtumor/internal/http"
	"qtumor/internal/jobs"
	"qtumor/internal/qpu"
	"qtumor/internal/store"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	role := flag.String("role", "all", "process role: api|worker|all")
	flag.Parse()

	cfg := config.Load(*configPath)

	// Set up logger
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{}))

	st, closeStore, err := store.Open(cfg)
	if err != nil {
		log.Fatalf("open job store failed: %v", err)
	}
	defer closeStore()

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runner := jobs.NewRunner(cfg, st, logger)

	switch *role {
	case "api":
		// API-only: retention runs elsewhere.
		serve(rootCtx, cfg, st, logger)
	case "worker":
		// Worker-only: run retention and block.
		runner.Start(rootCtx)
		<-rootCtx.Done()
	case "all":
		// Default: run both API and worker in one process.
		go runner.Start(rootCtx)
		serve(rootCtx, cfg, st, logger)
	default:
		log.Fatalf("invalid role: %s (expected api|worker|all)", *role)
	}
}

func serve(ctx context.Context, cfg *config.Config, st jobs.HandleStore, logger *slog.Logger) {
	svc, err := qpu.NewServiceFromConfig(cfg)
	if err != nil {
		log.Fatalf("runtime client failed: %v", err)
	}
	selector := qpu.NewSelector(svc, cfg.Runtime.Backend, qpu.BackendFilter{
		Operational: true,
		MinQubits:   cfg.Circuit.NumQubits,
	})
	cls := classify.NewService(cfg, svc, selector, st, logger)

	// Select eagerly so a misconfigured account shows up at startup.
	if name, err := selector.Current(ctx); err != nil {
		logger.Warn("backend_selection_failed", "error", err)
	} else {
		logger.Info("backend_selected", "backend", name)
	}

	s := server.NewServer(cfg, cls, logger)
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown_failed", "error", err)
		}
	}()

	if err := s.Listen(); err != nil {
		log.Fatalf("server failed: %v", err)
	}
}
