package main

import (
	"flag"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/satground/tourflow/internal/api"
	"github.com/satground/tourflow/internal/lockfile"
	"github.com/satground/tourflow/internal/store"
	"github.com/satground/tourflow/internal/util"
)

// Default configuration constants
const (
	// DefaultStateDir is the default directory for TourFlow state data
	DefaultStateDir = "/var/lib/tourflow"
	// DefaultDBFileName is the default SQLite database filename
	DefaultDBFileName = "tourflow.db"
)

func main() {
	// Initialize structured logger
	initializeLogger()

	// Load environment configuration
	config := loadEnvironmentConfig()

	// Parse command line flags
	flags := parseCommandLineFlags(config)

	// Hold the state directory lock for the lifetime of the process when
	// using file-based storage.
	if *flags.dbDSN != "" && store.DetectDSNType(*flags.dbDSN) == "sqlite" {
		lock, err := lockfile.AcquireLock(filepath.Dir(*flags.dbDSN))
		if err != nil {
			slog.Error("Failed to acquire state directory lock", "error", err)
			os.Exit(1)
		}
		defer lock.Release()
	}

	// Build module options
	storeOpts := buildStoreOptions(flags)
	apiOpts := buildAPIOptions(flags)

	// Start the service
	slog.Info("Bootstrapping TourFlow with configured modules")
	slog.Debug("Final configuration", "dsn_set", *flags.dbDSN != "", "api_addr", *flags.apiAddr,
		"catalog_path", *flags.catalogPath, "auto_start", *flags.autoStart)
	if err := api.Run(storeOpts, apiOpts); err != nil {
		slog.Error("TourFlow failed to run", "error", err)
		os.Exit(1)
	}
	slog.Info("TourFlow exited successfully")
}

// Config holds environment configuration
type Config struct {
	DatabaseURL string `env:"DATABASE_URL"`
	StateDir    string `env:"TOURFLOW_STATE_DIR"`
	APIAddr     string `env:"API_ADDR"`
	CatalogPath string `env:"TOURFLOW_CATALOG"`
	AutoStart   bool
}

// Flags holds command line flag values
type Flags struct {
	dbDSN       *string
	apiAddr     *string
	catalogPath *string
	autoStart   *bool
}

// initializeLogger sets up structured logging with debug level
func initializeLogger() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	slog.SetDefault(logger)
}

// loadEnvironmentConfig loads configuration from environment variables and .env file
func loadEnvironmentConfig() Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	} else {
		slog.Debug("successfully loaded .env file")
	}

	var config Config
	if err := env.Parse(&config); err != nil {
		slog.Warn("failed to parse environment configuration", "error", err)
	}
	// Parsed separately for the lenient yes/on forms.
	config.AutoStart = util.ParseBoolEnv("TOURFLOW_AUTO_START", false)

	// Set default state directory if not specified
	if config.StateDir == "" {
		config.StateDir = DefaultStateDir
		slog.Debug("No TOURFLOW_STATE_DIR set, using default", "default_state_dir", config.StateDir)
	} else {
		slog.Debug("TOURFLOW_STATE_DIR found in environment", "state_dir", config.StateDir)
	}

	// If no database URL is provided, default to SQLite in the state directory
	if config.DatabaseURL == "" {
		config.DatabaseURL = filepath.Join(config.StateDir, DefaultDBFileName)
		slog.Debug("No database DSN provided, defaulting to SQLite", "sqlite_path", config.DatabaseURL)
	}

	slog.Debug("environment variables loaded",
		"DATABASE_URL_SET", config.DatabaseURL != "",
		"TOURFLOW_STATE_DIR", config.StateDir,
		"API_ADDR", config.APIAddr,
		"TOURFLOW_CATALOG", config.CatalogPath,
		"TOURFLOW_AUTO_START", config.AutoStart)

	return config
}

// parseCommandLineFlags parses command line arguments with environment defaults
func parseCommandLineFlags(config Config) Flags {
	flags := Flags{
		dbDSN:       flag.String("db-dsn", config.DatabaseURL, "database DSN for the tour state store (overrides $DATABASE_URL)"),
		apiAddr:     flag.String("api-addr", config.APIAddr, "API server address (overrides $API_ADDR)"),
		catalogPath: flag.String("catalog", config.CatalogPath, "path to the flow catalog file (overrides $TOURFLOW_CATALOG)"),
		autoStart:   flag.Bool("auto-start", config.AutoStart, "auto-start the global intro flow for new learners (overrides $TOURFLOW_AUTO_START)"),
	}

	flag.Parse()

	slog.Debug("flags parsed",
		"dbDSN_set", *flags.dbDSN != "",
		"apiAddr", *flags.apiAddr,
		"catalogPath", *flags.catalogPath,
		"autoStart", *flags.autoStart)

	return flags
}

// buildStoreOptions constructs store configuration options
func buildStoreOptions(flags Flags) []store.Option {
	var storeOpts []store.Option
	if *flags.dbDSN != "" {
		if store.DetectDSNType(*flags.dbDSN) == "postgres" {
			slog.Debug("Detected PostgreSQL DSN, configuring PostgreSQL store", "dsn_type", "postgresql", "dsn_set", true)
			storeOpts = append(storeOpts, store.WithPostgresDSN(*flags.dbDSN))
		} else {
			slog.Debug("Detected SQLite DSN, configuring SQLite store", "dsn_type", "sqlite", "db_path", *flags.dbDSN)
			storeOpts = append(storeOpts, store.WithSQLiteDSN(*flags.dbDSN))
		}
	} else {
		slog.Debug("No database DSN provided, will use in-memory store")
	}
	return storeOpts
}

// buildAPIOptions constructs API server configuration options
func buildAPIOptions(flags Flags) []api.Option {
	var apiOpts []api.Option
	if *flags.apiAddr != "" {
		apiOpts = append(apiOpts, api.WithAddr(*flags.apiAddr))
	}
	if *flags.catalogPath != "" {
		apiOpts = append(apiOpts, api.WithCatalogPath(*flags.catalogPath))
	}
	apiOpts = append(apiOpts, api.WithAutoStart(*flags.autoStart))
	return apiOpts
}
