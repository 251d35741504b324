// The recurring-worker runs the occurrence generator on its own,
// without the HTTP server, for deployments where catch-up should keep
// happening while the API is down.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"duit/internal/config"
	"duit/internal/events"
	applog "duit/internal/log"
	"duit/internal/services"
	"duit/internal/store"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	// Setup structured logging
	logger := applog.New(applog.DefaultConfig()).WithComponent(applog.ComponentWorker)
	applog.SetDefault(logger)

	logger.Info("Starting recurring-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	kv, err := store.NewSQLiteKV(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite backend", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer kv.Close()

	var eventsClient *events.Client
	if cfg.AMQPURL != "" {
		eventsClient, err = events.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without change events", "error", err)
			eventsClient = nil
		} else {
			defer eventsClient.Close()
			logger.Info("AMQP client initialized", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	st := store.New(kv, eventsClient, nil)
	if err := st.Load(ctx); err != nil {
		logger.Error("Failed to load state", "error", err)
		os.Exit(1)
	}

	generator := services.NewGenerator(st)

	logger.Info("Recurring generator configured",
		"interval", cfg.GeneratorInterval,
		"sqlite_db", cfg.SQLiteDBPath)

	// Run initial catch-up on startup
	if count, err := generator.Run(ctx, time.Now()); err != nil {
		logger.Error("Initial generator run failed", "error", err)
	} else {
		logger.Info("Initial generator run complete", "expenses_created", count)
	}

	ticker := time.NewTicker(cfg.GeneratorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("Recurring-worker shutdown complete")
			return
		case now := <-ticker.C:
			count, err := generator.Run(ctx, now)
			if err != nil {
				logger.Error("Periodic generator run failed", "error", err)
				continue
			}
			logger.Info("Periodic generator run complete",
				"expenses_created", count,
				"next_check", now.Add(cfg.GeneratorInterval).Format("15:04:05"))
		}
	}
}
