/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the branch inquiry desk server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (.env, environment, flags)
  2. Build the zap logger
  3. Open the CSV period stores and identity file
  4. Open the SQLite audit log
  5. Load (and on first run seed) the identity set
  6. Create desk service, session manager and API handler
  7. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port       HTTP server port (default: 8080)
  -data       Directory holding one CSV per period (default: data)
  -users      Identity file (default: <data>/users.csv)
  -audit      SQLite audit log path (default: audit.db)
              Use ":memory:" for an in-process log
  -log-level  debug, info, warn or error

ENVIRONMENT:
  DESK_PORT, DESK_DATA_DIR, DESK_IDENTITY_FILE, DESK_AUDIT_DB, DESK_YEARS,
  DESK_LOG_LEVEL, DESK_LOG_FORMAT, DESK_ALLOWED_ORIGINS, DESK_BRANCH.
  A .env file in the working directory is read first.

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close the audit database
  4. Exit

EXAMPLES:
  # Run with a dedicated data directory
  ./server -data="/srv/desk"

  # Keep the audit log in memory
  ./server -audit=":memory:"

SEE ALSO:
  - api/server.go: Router configuration
  - desk/service.go: Operations
  - config/config.go: Configuration sources
*/
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/warp/inquiry-desk/api"
	"github.com/warp/inquiry-desk/config"
	"github.com/warp/inquiry-desk/credential"
	"github.com/warp/inquiry-desk/desk"
	"github.com/warp/inquiry-desk/inquiry"
	"github.com/warp/inquiry-desk/session"
	"github.com/warp/inquiry-desk/store/csvfile"
	"github.com/warp/inquiry-desk/store/sqlite"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(2)
	}

	logger, err := config.NewLogger(cfg.Log.Level, cfg.Log.Format)
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
	// Initialize stores
	records, err := csvfile.NewRecordFiles(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("failed to open data directory: %w", err)
	}
	identities := csvfile.NewIdentityFile(cfg.IdentityFile)

	audit, err := sqlite.New(cfg.AuditDB)
	if err != nil {
		return fmt.Errorf("failed to initialize audit log: %w", err)
	}
	defer audit.Close()

	creds := credential.NewService(identities, logger.Named("credential"))
	known, err := creds.Load(context.Background())
	if err != nil {
		return fmt.Errorf("failed to load identities: %w", err)
	}

	deskSvc := desk.NewService(records, creds, inquiry.NewLocator(cfg.Years), logger.Named("desk"),
		desk.WithAudit(audit))
	handler := api.NewHandler(deskSvc, session.NewManager(), logger.Named("api"))
	router := api.NewRouter(handler, cfg.HTTP.AllowedOrigins)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting",
			zap.String("branch", cfg.Branch),
			zap.Int("port", cfg.HTTP.Port),
			zap.String("data_dir", cfg.DataDir),
			zap.Ints("years", cfg.Years),
			zap.Int("identities", len(known)))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errCh:
		return err
	}

	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info("server stopped")
	return nil
}
