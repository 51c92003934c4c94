package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/JonMunkholm/dealdesk/internal/config"
	"github.com/JonMunkholm/dealdesk/internal/core"
	_ "github.com/JonMunkholm/dealdesk/internal/core/tables" // Register built-in datasets
	"github.com/JonMunkholm/dealdesk/internal/database"
	"github.com/JonMunkholm/dealdesk/internal/logging"
	"github.com/JonMunkholm/dealdesk/internal/web"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("configuration loaded", "config", cfg.String())

	ctx := context.Background()

	if cfg.Data.DefinitionsFile != "" {
		defs, err := core.LoadDefinitions(cfg.Data.DefinitionsFile)
		if err != nil {
			slog.Error("failed to load dataset definitions", "file", cfg.Data.DefinitionsFile, "error", err)
			os.Exit(1)
		}
		slog.Info("dataset definitions loaded", "file", cfg.Data.DefinitionsFile, "count", len(defs))
	}

	var repo database.Repository
	if !cfg.Database.Disabled() {
		repo, err = database.Open(ctx, cfg.Database.URL, database.Options{
			MaxConns:        cfg.Database.MaxConns,
			MinConns:        cfg.Database.MinConns,
			MaxConnLifetime: cfg.Database.MaxConnLifetime,
			MaxConnIdleTime: cfg.Database.MaxConnIdleTime,
		})
		if err != nil {
			slog.Error("failed to open database", "backend", database.Kind(cfg.Database.URL), "error", err)
			os.Exit(1)
		}
		defer repo.Close()
		slog.Info("connected to database", "backend", database.Kind(cfg.Database.URL))
	} else {
		slog.Warn("persistence disabled, datasets live in memory only")
	}

	service := core.NewService(repo, core.ServiceOptions{
		MaxConcurrentImports: cfg.Upload.MaxConcurrent,
		ImportWait:           cfg.Upload.MaxWaitTime,
	})

	restored, err := service.Restore(ctx)
	if err != nil {
		slog.Error("failed to restore datasets", "error", err)
		os.Exit(1)
	}
	slog.Info("datasets ready", "registered", core.DatasetCount(), "restored", restored)

	server := web.NewServer(service, cfg)

	// Background jobs stop when jobCtx is cancelled on shutdown.
	jobCtx, cancelJobs := context.WithCancel(ctx)
	defer cancelJobs()

	if cfg.Data.WatchFile != "" {
		go func() {
			err := service.WatchImport(jobCtx, cfg.Data.WatchDataset, cfg.Data.WatchFile)
			if err != nil && !errors.Is(err, context.Canceled) {
				slog.Error("file watcher stopped", "file", cfg.Data.WatchFile, "error", err)
			}
		}()
	}

	if cfg.Backup.Dir != "" {
		go service.StartBackupScheduler(jobCtx, core.BackupConfig{
			Dir:      cfg.Backup.Dir,
			Interval: cfg.Backup.Interval,
			Keep:     cfg.Backup.Keep,
		})
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")
		cancelJobs()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if status := service.ImportStatus(); status.Active > 0 {
			slog.Info("waiting for imports to complete", "active", status.Active)
			if err := service.WaitForImports(shutdownCtx); err != nil {
				slog.Warn("imports did not complete in time", "error", err)
			}
		}

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}
