package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/tacyan/img-ex/internal/api"
	"github.com/tacyan/img-ex/internal/config"
	"github.com/tacyan/img-ex/internal/extract"
)

func main() {
	cfgPath := flag.String("config", "configs/config.yaml", "Path to base configuration")
	addr := flag.String("addr", "", "HTTP listen address (overrides config)")
	staticDir := flag.String("static", "", "Static assets directory (overrides config)")
	maxSessionsFlag := flag.Int("max-sessions", 0, "Maximum concurrent extraction sessions")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}
	if *staticDir != "" {
		cfg.Server.StaticDir = *staticDir
	}
	maxSessions := resolveMaxSessions(*maxSessionsFlag, cfg.Server.MaxSessions)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	engine, err := extract.NewEngine(*cfg)
	if err != nil {
		log.Fatalf("failed to initialise engine: %v", err)
	}
	logger := engine.Logger()

	manager := api.NewSessionManager(engine, maxSessions, ctx)
	server := api.NewServer(manager, engine, cfg.Server.StaticDir, logger)

	httpServer := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: server,
	}

	go func() {
		<-ctx.Done()
		grace := cfg.Server.ShutdownGrace.Duration
		if grace <= 0 {
			grace = 15 * time.Second
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), grace)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("http shutdown error", "error", err)
		}
		manager.Shutdown()
	}()

	logger.Info("api server listening", "addr", cfg.Server.Addr, "max_sessions", maxSessions)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server error: %v", err)
	}
	log.Println("API server stopped")
}

func resolveMaxSessions(flagValue, configValue int) int {
	if flagValue > 0 {
		return flagValue
	}
	if raw := os.Getenv("IMGEX_MAX_SESSIONS"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			return v
		}
	}
	if configValue > 0 {
		return configValue
	}
	return 16
}
