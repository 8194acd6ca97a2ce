package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"skyfall-dashboard/internal/api"
	"skyfall-dashboard/internal/audit"
	"skyfall-dashboard/internal/config"
	"skyfall-dashboard/internal/discord"
	"skyfall-dashboard/internal/identity"
	"skyfall-dashboard/internal/moderation"
	"skyfall-dashboard/internal/probe"
	"skyfall-dashboard/internal/stats"
	"skyfall-dashboard/internal/storage"

	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger, err := config.BuildLogger(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	store, err := storage.New(cfg.DatabasePath)
	if err != nil {
		logger.Fatal("storage init failed", zap.Error(err))
	}
	defer store.Close()
	if err := store.Migrate(); err != nil {
		logger.Fatal("migrations failed", zap.Error(err))
	}

	recorder := audit.NewRecorder(store, logger)
	discordClient := discord.NewClient(cfg.Discord, cfg.Timeouts, cfg.Retry, logger)
	resolver := identity.NewResolver(discordClient)
	dispatcher := moderation.NewDispatcher(discordClient, discordClient, resolver, recorder, logger)
	prober := probe.New(cfg.Companion, cfg.Timeouts, logger)
	statsService := stats.New(store)

	runCtx, stopBackground := context.WithCancel(context.Background())
	defer stopBackground()
	go prober.Run(runCtx, time.Duration(cfg.Companion.ProbeIntervalSeconds)*time.Second, cfg.Companion.Candidates)
	go runRetention(runCtx, store, cfg.RetentionDays, logger)

	server := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: api.NewServer(discordClient, dispatcher, statsService, prober, logger).Handler(),
	}
	go func() {
		logger.Info("dashboard api listening", zap.String("addr", cfg.ListenAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", zap.Error(err))
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	logger.Info("shutdown requested")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = server.Shutdown(ctx)
}

func runRetention(ctx context.Context, store *storage.Store, retentionDays int, logger *zap.Logger) {
	if retentionDays <= 0 {
		return
	}
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()
	for {
		if err := store.CleanupCases(ctx, retentionDays); err != nil {
			logger.Warn("case retention cleanup failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
