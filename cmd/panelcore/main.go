// Panel Core - Embedded Panel State Engine
//
// This is the main entry point for the panel-core service. It keeps a
// panel of three LEDs, three pushbuttons and a distance sensor in sync
// with its microcontroller over a serial line, persists every state
// change, and exposes a REST and WebSocket API for operators.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	_ "github.com/dmoralesv/panel-core/migrations"

	"github.com/dmoralesv/panel-core/internal/api"
	"github.com/dmoralesv/panel-core/internal/audit"
	"github.com/dmoralesv/panel-core/internal/auth"
	"github.com/dmoralesv/panel-core/internal/infrastructure/config"
	"github.com/dmoralesv/panel-core/internal/infrastructure/database"
	"github.com/dmoralesv/panel-core/internal/infrastructure/logging"
	"github.com/dmoralesv/panel-core/internal/infrastructure/tsdb"
	"github.com/dmoralesv/panel-core/internal/panel"
	"github.com/dmoralesv/panel-core/internal/wire"
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
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
func run(ctx context.Context) error { //nolint:gocognit,gocyclo // linear startup sequence, one block per subsystem
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting panel-core",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)

	// Open database and apply migrations
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

	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	// Seed the initial admin account on an empty user table. The
	// generated password is logged once; change it after first login.
	users := auth.NewUserRepository(db.DB)
	if _, seedErr := auth.SeedAdmin(ctx, users, log.Logger); seedErr != nil {
		return fmt.Errorf("seeding admin user: %w", seedErr)
	}

	// Repositories and in-memory state
	transitions := panel.NewSQLiteTransitionRepository(db.DB)
	readings := panel.NewSQLiteReadingRepository(db.DB)
	auditRepo := audit.NewSQLiteRepository(db.DB)

	store := panel.NewStore(panel.NewSQLiteStateRepository(db.DB))
	if loadErr := store.Load(ctx); loadErr != nil {
		return fmt.Errorf("loading panel state: %w", loadErr)
	}
	log.Info("panel state loaded", "snapshot", store.Snapshot())

	// Connect to InfluxDB (optional)
	var telemetry panel.Telemetry
	tsClient, err := tsdb.Connect(cfg.InfluxDB)
	switch {
	case errors.Is(err, tsdb.ErrDisabled):
		log.Info("InfluxDB disabled")
	case err != nil:
		return fmt.Errorf("connecting to InfluxDB: %w", err)
	default:
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := tsClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		tsClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		telemetry = tsClient
		log.Info("InfluxDB connected", "url", cfg.InfluxDB.URL, "bucket", cfg.InfluxDB.Bucket)
	}

	hub := api.NewHub(cfg.WebSocket, log)

	// Open the serial port. Failure is not fatal: the panel degrades to
	// manual mode where API commands apply locally without an outbound
	// write.
	var transportUp atomic.Bool
	var sender panel.CommandSender
	port, err := wire.OpenPort(cfg.Serial)
	if err != nil {
		log.Warn("serial port unavailable, running in manual mode",
			"device", cfg.Serial.Device, "error", err)
	} else {
		defer func() {
			log.Info("closing serial port")
			if closeErr := port.Close(); closeErr != nil {
				log.Error("error closing serial port", "error", closeErr)
			}
		}()
		sender = port
		transportUp.Store(true)
		log.Info("serial port open", "device", cfg.Serial.Device, "baud_rate", cfg.Serial.BaudRate)
	}

	// Synchronizer: the single consumer of hardware frames and user commands
	sync, err := panel.NewSynchronizer(panel.Deps{
		Store:       store,
		Transitions: transitions,
		Readings:    readings,
		Audit:       auditRepo,
		Logger:      log,
		Sender:      sender,
		Broadcaster: hub,
		Telemetry:   telemetry,
	})
	if err != nil {
		return fmt.Errorf("creating synchronizer: %w", err)
	}
	sync.Start()
	defer func() {
		log.Info("stopping synchronizer")
		if closeErr := sync.Close(); closeErr != nil {
			log.Error("error stopping synchronizer", "error", closeErr)
		}
	}()

	// Reader: splits the serial stream into frames for the synchronizer
	if port != nil {
		reader := wire.NewReader(port)
		reader.SetLogger(log)
		reader.SetOnFrame(sync.HandleFrame)
		reader.Start()
		defer reader.Close()

		go func() {
			<-reader.Exited()
			if transportUp.CompareAndSwap(true, false) {
				log.Warn("serial reader exited, continuing in manual mode",
					"stats", reader.Stats())
			}
		}()
	}

	// HTTP API and WebSocket server
	server, err := api.New(api.Deps{
		Config:      cfg.API,
		WSConfig:    cfg.WebSocket,
		Security:    cfg.Security,
		Logger:      log,
		Store:       store,
		Sync:        sync,
		Users:       users,
		Transitions: transitions,
		Readings:    readings,
		Audit:       auditRepo,
		Hub:         hub,
		TransportUp: transportUp.Load,
		Version:     version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if startErr := server.Start(); startErr != nil {
		return fmt.Errorf("starting API server: %w", startErr)
	}
	defer func() {
		log.Info("stopping API server")
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error stopping API server", "error", closeErr)
		}
	}()

	log.Info("initialisation complete, waiting for shutdown signal")
	<-ctx.Done()
	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls run in reverse order:
	// API server, reader, synchronizer, serial port, InfluxDB, database.

	return nil
}

// getConfigPath returns the configuration file path.
// Uses PANELCORE_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("PANELCORE_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}
