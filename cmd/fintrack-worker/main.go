package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"fintrack/internal/amqp"
	"fintrack/internal/config"
	"fintrack/internal/export/google"
	"fintrack/internal/log"
	"fintrack/internal/storage"
	"fintrack/internal/worker"
)

func main() {
	_ = godotenv.Load()

	logger := log.New(log.Config{
		Level:     slog.LevelInfo,
		Component: log.ComponentWorker,
	})
	log.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}

	if !cfg.SheetsExportEnabled() {
		logger.Info("sheets export disabled, nothing to do")
		return
	}

	repo, err := storage.NewRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("failed to initialize storage", log.FieldError, err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sheetsClient, err := google.NewClient(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize sheets client", log.FieldError, err)
		os.Exit(1)
	}

	exportWorker := worker.NewExportWorker(repo, sheetsClient, cfg.SyncBatchSize, logger)

	// Drain whatever piled up while the worker was down.
	logger.Info("performing startup sync check", log.FieldOperation, log.OpStartup)
	if err := exportWorker.StartupSyncCheck(ctx); err != nil {
		// Keep going; the periodic pass retries.
		logger.Error("startup sync check failed", log.FieldError, err)
	}

	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			logger.Error("failed to initialize amqp client", log.FieldError, err)
			os.Exit(1)
		}
		defer amqpClient.Close()

		go func() {
			handler := func(msg *amqp.TransactionSyncMessage) error {
				return exportWorker.HandleSyncMessage(ctx, msg)
			}
			if err := amqpClient.ConsumeTransactionSync(ctx, handler); err != nil {
				if !errors.Is(err, context.Canceled) {
					logger.Error("message consumption failed", log.FieldError, err)
				}
				cancel()
			}
		}()
	} else {
		logger.Info("amqp disabled, relying on periodic sync only")
	}

	// Periodic catch-up for rows whose messages were lost.
	go func() {
		ticker := time.NewTicker(cfg.SyncInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := exportWorker.ProcessPendingTransactions(ctx); err != nil {
					logger.Error("periodic sync failed", log.FieldError, err)
				}
			}
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
		logger.Info("context cancelled")
	}

	logger.Info("shutting down worker", log.FieldOperation, log.OpShutdown)
	cancel()
	time.Sleep(2 * time.Second)
	logger.Info("worker shutdown complete")
}
