package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lysyi3m/article-optimizer/app/api"
	"github.com/lysyi3m/article-optimizer/app/cache"
	"github.com/lysyi3m/article-optimizer/app/cfg"
	"github.com/lysyi3m/article-optimizer/app/content"
	"github.com/lysyi3m/article-optimizer/app/database"
	"github.com/lysyi3m/article-optimizer/app/llm"
	"github.com/lysyi3m/article-optimizer/app/pipeline"
	"github.com/lysyi3m/article-optimizer/app/search"
	"github.com/lysyi3m/article-optimizer/app/store"
	"github.com/lysyi3m/article-optimizer/app/tasks"
)

func main() {
	appCfg, err := cfg.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if appCfg == nil {
		// Help was shown
		return
	}

	logLevel := slog.LevelInfo
	if appCfg.Debug {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})))

	slog.Info("Starting Article Optimizer", "version", appCfg.Version, "port", appCfg.Port)

	db, err := database.NewConnection(appCfg.DBPath)
	if err != nil {
		slog.Error("Failed to connect to database", "path", appCfg.DBPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("Database ready", "path", appCfg.DBPath, "schema_version", version, "dirty", dirty)

	runRepo := database.NewRunRepository(db)
	leaseRepo := database.NewLeaseRepository(db)
	artifactRepo := database.NewArtifactRepository(db)

	var locker pipeline.Locker = leaseRepo
	var leaseHealth api.HealthChecker
	if appCfg.RedisAddr != "" {
		redisLocker, err := cache.NewRedisLocker(context.Background(), appCfg.RedisAddr, appCfg.RedisPassword)
		if err != nil {
			slog.Error("Failed to connect to Redis", "addr", appCfg.RedisAddr, "error", err)
			os.Exit(1)
		}
		defer redisLocker.Close()
		locker = redisLocker
		leaseHealth = redisLocker
		slog.Info("Using Redis for slug leases", "addr", appCfg.RedisAddr)
	}

	articleStore := store.NewClient(store.Config{
		BaseURL:     appCfg.StoreURL,
		ArticlePath: appCfg.StoreArticlePath,
		IndexPath:   appCfg.StoreIndexPath,
		Timeout:     appCfg.StoreTimeout,
	}, nil)

	generator, err := llm.NewGeminiClient(context.Background(), llm.Config{
		APIKey:  appCfg.GeminiAPIKey,
		Model:   appCfg.GeminiModel,
		Timeout: appCfg.LLMTimeout,
	})
	if err != nil {
		slog.Error("Failed to create LLM client", "error", err)
		os.Exit(1)
	}

	searchProvider, err := search.NewSerpAPIProvider(appCfg.SearchAPIKey, appCfg.SearchURL, appCfg.SearchTimeout)
	if err != nil {
		slog.Error("Failed to create search provider", "error", err)
		os.Exit(1)
	}

	profile, err := pipeline.LoadProfile(appCfg.ResearchProfile)
	if err != nil {
		slog.Error("Failed to load research profile", "path", appCfg.ResearchProfile, "error", err)
		os.Exit(1)
	}

	researcher := pipeline.NewResearcher(
		searchProvider,
		pipeline.NewHTTPFetcher(nil, profile),
		content.NewExtractor(),
		profile,
	)

	orchestrator := pipeline.NewOrchestrator(articleStore, generator, researcher, locker, artifactRepo, pipeline.Options{
		LeaseTTL:       appCfg.LeaseTTL,
		SaveRetryDelay: time.Second,
	})

	scheduler := tasks.NewScheduler(orchestrator, runRepo, leaseRepo, artifactRepo, tasks.Config{
		WorkerCount: appCfg.WorkerCount,
		Interval:    time.Duration(appCfg.SchedulerInterval) * time.Second,
		Retention:   time.Duration(appCfg.RunRetention) * 24 * time.Hour,
		TaskTimeout: appCfg.LeaseTTL,
	})
	scheduler.Start()
	slog.Info("Background scheduler started", "workers", appCfg.WorkerCount)

	handler := api.NewHandler(articleStore, orchestrator, runRepo, scheduler, db, leaseHealth)
	server := api.NewServer(handler, appCfg.APIAccessKey, appCfg.Version)

	// No write timeout: progress streams stay open for the whole pipeline run.
	httpServer := &http.Server{
		Addr:              ":" + appCfg.Port,
		Handler:           server,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig)
	case err := <-serverErrChan:
		slog.Error("Server error", "error", err)
	}

	slog.Info("Shutting down gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	scheduler.Stop()
	slog.Info("Article Optimizer stopped")
}
