package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"troupe/internal/amqp"
	"troupe/internal/config"
	applog "troupe/internal/log"
	ports "troupe/internal/sheets"
	gsheet "troupe/internal/sheets/google"
	mem "troupe/internal/sheets/memory"
	"troupe/internal/storage"
	"troupe/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := applog.New(applog.Config{Component: "troupe-worker"})
	applog.SetDefault(logger)

	logger.Info("Starting troupe-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	repo, err := storage.NewRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	var report ports.ReportWriter
	switch cfg.ReportBackend {
	case "sheets":
		cli, err := gsheet.NewFromEnv(context.Background())
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", "error", err)
			os.Exit(1)
		}
		report = cli
		logger.Info("Initialized Google Sheets report backend", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	default:
		report = mem.New()
		logger.Info("Initialized memory report backend")
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reportWorker := worker.NewReportWorker(repo, report, cfg.SyncBatchSize)

	// Drain any backlog that accumulated while the worker was down.
	logger.Info("Performing startup report check...")
	if err := reportWorker.StartupCheck(ctx); err != nil {
		logger.Error("Failed startup report check", "error", err)
		// Don't exit - continue with normal operation
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return amqpClient.ConsumeFinanceSync(gctx, reportWorker.HandleSyncMessage)
	})

	// Periodic backup scan for payments whose sync message was lost.
	g.Go(func() error {
		ticker := time.NewTicker(cfg.SyncInterval)
		defer ticker.Stop()

		for {
			select {
			case <-gctx.Done():
				return gctx.Err()
			case <-ticker.C:
				if err := reportWorker.ProcessPending(gctx); err != nil {
					logger.Error("Periodic report check failed", "error", err)
				}
			}
		}
	})

	g.Go(func() error {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigChan)

		select {
		case sig := <-sigChan:
			logger.Info("Shutdown signal received", "signal", sig.String())
			cancel()
			return nil
		case <-gctx.Done():
			return gctx.Err()
		}
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker stopped with error", "error", err)
		os.Exit(1)
	}

	logger.Info("Worker shutdown complete")
}
