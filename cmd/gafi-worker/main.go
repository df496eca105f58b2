package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gafi/internal/amqp"
	"gafi/internal/cli"
	"gafi/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger()

	logger.Info("Starting gafi-worker")

	cfg := cli.LoadAndValidateConfig(logger)

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	alertWorker := worker.NewAlertWorker(repo, worker.LogSink{}, cfg.AlertBatchSize)

	// On startup, deliver any events that might have been missed
	logger.Info("Performing startup delivery check...")
	if err := alertWorker.StartupCheck(ctx); err != nil {
		logger.Error("Failed startup delivery check", "error", err)
		// Don't exit - continue with normal operation
	}

	go func() {
		handler := func(msg *amqp.AlertEventMessage) error {
			return alertWorker.HandleAlertMessage(ctx, msg)
		}
		if err := amqpClient.ConsumeAlertEvents(ctx, handler); err != nil {
			if err != context.Canceled {
				logger.Error("Alert consumption failed", "error", err)
			}
			cancel()
		}
	}()

	// Periodic sweep for events whose AMQP message was lost
	ticker := time.NewTicker(cfg.AlertInterval)
	defer ticker.Stop()

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := alertWorker.ProcessPendingEvents(ctx); err != nil {
					logger.Error("Periodic delivery sweep failed", "error", err)
				}
			}
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("Shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
		logger.Info("Context cancelled")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	logger.Info("Shutting down worker...")
	cancel()

	select {
	case <-shutdownCtx.Done():
		logger.Warn("Shutdown timeout reached")
	case <-time.After(5 * time.Second):
		logger.Info("Worker shutdown complete")
	}
}
