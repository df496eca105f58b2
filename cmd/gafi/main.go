package main

import (
	"context"
	"net/http"
	"os"
	"strings"
	"time"

	"gafi/internal/alerts"
	"gafi/internal/amqp"
	"gafi/internal/cli"
	apphttp "gafi/internal/http"
	"gafi/internal/insights"
	"gafi/internal/llm"
	"gafi/internal/services"
	ports "gafi/internal/sheets"
	gsheet "gafi/internal/sheets/google"
	mem "gafi/internal/sheets/memory"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger()
	cfg := cli.LoadAndValidateConfig(logger)

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	// AMQP is optional for the API process; alerts are still stored and
	// the worker's recovery sweep picks them up.
	var publisher services.AlertPublisher
	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Warn("AMQP unavailable, alert events will not be published", "error", err)
	} else {
		defer amqpClient.Close()
		publisher = amqpClient
	}

	gateway := llm.NewGateway(llm.Config{
		BaseURL: completionURL(cfg.LLMBaseURL),
		APIKey:  cfg.LLMAPIKey,
		Model:   cfg.LLMModel,
		Timeout: cfg.LLMTimeout,
	}, insights.DegradedRecovery{})
	if gateway.Enabled() {
		logger.Info("Completion endpoint configured", "model", cfg.LLMModel)
	} else {
		logger.Info("No LLM API key configured, serving fallback insights only")
	}

	manager := alerts.NewManager()
	insightSvc := insights.NewService(gateway, manager, logger)
	expenseSvc := services.NewExpenseService(repo, manager, publisher)

	// Optional external read source for expenses.
	var source ports.ExpenseSource
	switch cfg.ExpenseSource {
	case "sheets":
		client, err := gsheet.NewFromEnv(context.Background())
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", "error", err)
			os.Exit(1)
		}
		source = client
		logger.Info("Reading expenses from Google Sheets", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	case "memory":
		source = mem.New()
		logger.Info("Reading expenses from in-memory store")
	default:
		logger.Info("Reading expenses from SQLite", "path", cfg.SQLiteDBPath)
	}

	srv := apphttp.NewServer(":"+cfg.Port, repo, expenseSvc, insightSvc, source)
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 30 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
	})

	logger.Info("Starting gafi server", "port", cfg.Port, "source", cfg.ExpenseSource)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}

// completionURL appends the chat-completions path to a bare API base.
func completionURL(base string) string {
	base = strings.TrimRight(base, "/")
	if strings.HasSuffix(base, "/chat/completions") {
		return base
	}
	return base + "/chat/completions"
}
