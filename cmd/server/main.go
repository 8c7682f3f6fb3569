/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the leave request engine server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (file + LEAVE_* environment)
  2. Build the zap logger
  3. Open the store (memory or SQLite)
  4. Create API handler, optionally seed a demo scenario
  5. Start the monthly rollup scheduler
  6. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -config  Path to a YAML config file (optional)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Stop the rollup scheduler
  4. Close database connection
  5. Exit

EXAMPLES:
  # Defaults: in-memory store on :8080
  ./server

  # SQLite store with a config file
  ./server -config=./config.yaml

  # Override from the environment
  LEAVE_STORAGE_DRIVER=sqlite LEAVE_DB_PATH=./data/leave.db PORT=3000 ./server

SEE ALSO:
  - config/config.go: Settings and defaults
  - api/server.go: Router configuration
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/warp/leave-engine/api"
	"github.com/warp/leave-engine/config"
	"github.com/warp/leave-engine/leave"
	"github.com/warp/leave-engine/leave/store"
	"github.com/warp/leave-engine/store/sqlite"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := config.NewLogger(cfg.Logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server failed", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	// Initialize store
	txStore, closeStore, err := openStore(cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}
	defer closeStore()
	logger.Info("store ready", zap.String("driver", cfg.Storage.Driver))

	// Initialize handler
	history := leave.NewHistory(cfg.Analytics.History)
	handler := api.NewHandler(txStore, history, logger)

	if cfg.Seed.Scenario != "" {
		if err := handler.ApplyScenario(context.Background(), cfg.Seed.Scenario); err != nil {
			return fmt.Errorf("failed to seed scenario %q: %w", cfg.Seed.Scenario, err)
		}
	}

	// Start rollup scheduler
	rollup := api.NewRollupScheduler(handler.Service, history, logger)
	rollup.CheckInterval = cfg.Rollup.Interval
	rollup.Enabled = cfg.Rollup.Enabled
	rollup.Start()
	defer rollup.Stop()

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      api.NewRouter(handler, cfg.CORS.AllowedOrigins),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in goroutine
	serverErr := make(chan error, 1)
	go func() {
		logger.Info("server starting", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		return err
	case sig := <-quit:
		logger.Info("shutting down server", zap.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info("server stopped")
	return nil
}

func openStore(cfg config.StorageConfig) (leave.TxStore, func() error, error) {
	switch cfg.Driver {
	case config.DriverSQLite:
		if dir := filepath.Dir(cfg.SQLitePath); cfg.SQLitePath != ":memory:" && dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, nil, err
			}
		}
		s, err := sqlite.New(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	default:
		return store.NewTxMemory(), func() error { return nil }, nil
	}
}
