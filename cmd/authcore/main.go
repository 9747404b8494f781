// Authcore - credential and session service
//
// This is the main entry point for the authcore application: a standalone
// HTTP service providing registration, login, JWT session refresh, and
// role-gated user administration over a SQLite store.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/jmorren/authcore/migrations"

	"github.com/jmorren/authcore/internal/api"
	"github.com/jmorren/authcore/internal/audit"
	"github.com/jmorren/authcore/internal/auth"
	"github.com/jmorren/authcore/internal/infrastructure/config"
	"github.com/jmorren/authcore/internal/infrastructure/database"
	"github.com/jmorren/authcore/internal/infrastructure/logging"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	// Create a context that cancels on interrupt signals (Ctrl+C, SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	configPath := flag.String("config", getConfigPath(), "path to configuration file")
	seedAdmin := flag.Bool("seed-admin", false, "ensure an admin account exists, print its password if created, then exit")
	flag.Parse()

	if err := run(ctx, *configPath, *seedAdmin); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
func run(ctx context.Context, configPath string, seedOnly bool) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting authcore",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Open database
	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	// Run migrations
	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	userRepo := auth.NewUserRepository(db.DB)

	if seedOnly {
		password, seedErr := auth.SeedAdmin(ctx, userRepo, log.Logger)
		if seedErr != nil {
			return fmt.Errorf("seeding admin: %w", seedErr)
		}
		if password == "" {
			log.Info("admin account already exists, nothing to do")
		}
		return nil
	}

	tokens := auth.NewTokenService(auth.TokenConfig{
		AccessSecret:  cfg.Security.JWT.AccessSecret,
		RefreshSecret: cfg.Security.JWT.RefreshSecret,
		AccessTTL:     cfg.Security.JWT.AccessTokenDuration(),
		RefreshTTL:    cfg.Security.JWT.RefreshTokenDuration(),
	})

	// Start the API server
	server, err := api.New(api.Deps{
		Config:     cfg.Server,
		Security:   cfg.Security,
		Logger:     log.With("component", "api"),
		UserRepo:   userRepo,
		Tokens:     tokens,
		Audit:      audit.NewSQLiteRepository(db.DB),
		Production: cfg.IsProduction(),
		Version:    version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}

	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()
	log.Info("API server started",
		"address", fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
	)

	// Verify all components are healthy
	if err := healthCheck(ctx, db, server); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls will run in reverse order:
	// 1. API server
	// 2. Database

	log.Info("authcore stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses AUTHCORE_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("AUTHCORE_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies all components are healthy.
func healthCheck(ctx context.Context, db *database.DB, server *api.Server) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := server.HealthCheck(ctx); err != nil {
		return fmt.Errorf("api: %w", err)
	}
	return nil
}
