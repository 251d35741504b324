package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"duit/internal/config"
	"duit/internal/events"
	apphttp "duit/internal/http"
	applog "duit/internal/log"
	"duit/internal/services"
	"duit/internal/store"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	// Setup structured logging
	logger := applog.New(applog.DefaultConfig())
	applog.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Choose persistence backend
	var kv store.KV
	switch cfg.DataBackend {
	case "sqlite":
		sqliteKV, err := store.NewSQLiteKV(cfg.SQLiteDBPath)
		if err != nil {
			logger.Error("Failed to initialize SQLite backend", "error", err, "path", cfg.SQLiteDBPath)
			os.Exit(1)
		}
		defer sqliteKV.Close()
		kv = sqliteKV
		logger.Info("Initialized SQLite backend", "path", cfg.SQLiteDBPath)
	default:
		kv = store.NewMemoryKV()
		logger.Info("Initialized memory backend")
	}

	// AMQP is optional; without it change events are dropped.
	var eventsClient *events.Client
	if cfg.AMQPURL != "" {
		var err error
		eventsClient, err = events.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without change events", "error", err)
			eventsClient = nil
		} else {
			defer eventsClient.Close()
			logger.Info("AMQP client initialized", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	}

	st := store.New(kv, eventsClient, nil)
	if err := st.Load(ctx); err != nil {
		logger.Error("Failed to load state", "error", err)
		os.Exit(1)
	}

	generator := services.NewGenerator(st)

	// Catch up recurring expenses before serving requests.
	if count, err := generator.Run(ctx, time.Now()); err != nil {
		logger.Error("Initial generator run failed", "error", err)
	} else {
		logger.Info("Initial generator run complete", "expenses_created", count)
	}

	srv := apphttp.NewServer(":"+cfg.Port, st, generator, nil)
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Starting duit server", "port", cfg.Port, "backend", cfg.DataBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		ticker := time.NewTicker(cfg.GeneratorInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case now := <-ticker.C:
				count, err := generator.Run(gctx, now)
				if err != nil {
					logger.Error("Periodic generator run failed", "error", err)
					continue
				}
				if count > 0 {
					logger.Info("Periodic generator run complete", "expenses_created", count)
				}
			}
		}
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", "error", err)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}
