package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mlindner/flowsync/internal/api"
	"github.com/mlindner/flowsync/internal/browser"
	"github.com/mlindner/flowsync/internal/config"
	"github.com/mlindner/flowsync/internal/db"
	"github.com/mlindner/flowsync/internal/flowapi"
	"github.com/mlindner/flowsync/internal/jobs"
	"github.com/mlindner/flowsync/internal/logger"
	"github.com/mlindner/flowsync/internal/repository/sqlite"
	"github.com/mlindner/flowsync/internal/services"
	"github.com/mlindner/flowsync/internal/worker"
)

func main() {
	cfg := config.Load()

	// Initialize logger
	log := logger.New(
		logger.WithLevel(logger.ParseLevel(cfg.LogLevel)),
		logger.WithColors(true),
	)
	logger.SetDefault(log)

	log.Info("===========================================")
	log.Info("FlowSync Server Starting")
	log.Info("===========================================")

	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration: %v", err)
		os.Exit(1)
	}
	log.Info("configuration loaded")
	log.Debug("addr=%s", cfg.Addr)
	log.Debug("db_path=%s", cfg.DBPath)
	log.Debug("flow_api_url=%s", cfg.FlowAPIURL)
	log.Debug("refresh_interval_minutes=%d", cfg.RefreshIntervalMins)
	log.Debug("profiles_dir=%s", cfg.ProfilesDir)
	log.Debug("chrome_path=%s", cfg.ChromePath)
	log.Debug("browser_debug_port=%d", cfg.BrowserDebugPort)
	log.Debug("sync_queue_size=%d", cfg.SyncQueueSize)
	log.Debug("log_level=%s", cfg.LogLevel)
	if cfg.ConnectionToken == "" {
		log.Warn("CONNECTION_TOKEN not set, syncs will fail until it is configured")
	}

	// Open database
	database, err := db.Open(cfg.DBPath)
	if err != nil {
		log.Error("failed to open database: %v", err)
		os.Exit(1)
	}
	defer func() {
		log.Debug("closing database connection")
		database.Close()
	}()

	// Initialize repositories and services
	profileRepo := sqlite.NewProfileRepository(database.DB)
	flowClient := flowapi.New(cfg.FlowAPIURL, cfg.ConnectionToken)
	manager := browser.NewManager(cfg, profileRepo)
	syncService := services.NewSyncService(profileRepo, manager, flowClient, cfg)
	profileService := services.NewProfileService(profileRepo, manager)

	// Single worker: token extraction serializes on the browser anyway.
	syncPool := worker.NewPool(1, cfg.SyncQueueSize)
	queue := jobs.NewWorkerQueue(syncPool, syncService)

	srv := &api.Server{
		DB:             database,
		ProfileService: profileService,
		SyncService:    syncService,
		Queue:          queue,
		Browser:        manager,
	}

	ctx, cancel := context.WithCancel(context.Background())
	syncPool.Start(ctx)

	// Periodic batch sync scheduler. An interval of 0 disables it.
	if cfg.RefreshIntervalMins > 0 {
		interval := time.Duration(cfg.RefreshIntervalMins) * time.Minute
		log.Info("scheduling batch sync every %s", interval)
		go func() {
			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					if err := queue.EnqueueSyncAll(); err != nil {
						log.Warn("scheduled sync skipped: %v", err)
					}
				}
			}
		}()
	} else {
		log.Info("periodic sync disabled, trigger batches via POST /api/sync")
	}

	// Configure HTTP server
	httpServer := &http.Server{
		Addr:         cfg.Addr,
		Handler:      srv.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 5 * time.Minute, // /api/sync/now waits for the browser
		IdleTimeout:  60 * time.Second,
	}

	// Start HTTP server
	go func() {
		log.Info("HTTP server listening on %s", cfg.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server error: %v", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	sig := <-stop

	log.Info("received signal %v, initiating graceful shutdown", sig)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	// Cancel worker context
	log.Debug("stopping worker pool")
	cancel()

	// Shutdown HTTP server
	log.Debug("shutting down HTTP server")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error: %v", err)
	}

	// Wait for workers to finish
	syncPool.Stop()

	log.Info("===========================================")
	log.Info("FlowSync Server Stopped")
	log.Info("===========================================")
}
