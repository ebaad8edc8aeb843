// thingsd - a single-resource HTTP API with live notifications.
//
// thingsd serves authenticated CRUD on generic "thing" records, an
// administrative user sub-API, and a notification hub that pushes the
// full current record list to subscribers after every mutation.
// Storage is pluggable: in-memory, JSON file, embedded document
// collections, or SQLite, selected in configs/config.yaml.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/nerrad567/thingsd/migrations"

	"github.com/nerrad567/thingsd/internal/api"
	"github.com/nerrad567/thingsd/internal/auth"
	"github.com/nerrad567/thingsd/internal/credstore"
	"github.com/nerrad567/thingsd/internal/docstore"
	"github.com/nerrad567/thingsd/internal/infrastructure/config"
	"github.com/nerrad567/thingsd/internal/infrastructure/database"
	"github.com/nerrad567/thingsd/internal/infrastructure/logging"
	"github.com/nerrad567/thingsd/internal/infrastructure/mqtt"
	"github.com/nerrad567/thingsd/internal/thing"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
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
func run(ctx context.Context) error {
	log := logging.Default()
	log.Info("starting thingsd",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	cfg, err := loadConfig(log)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)

	things, users, closeStores, err := openStores(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("opening stores: %w", err)
	}
	defer closeStores()
	log.Info("storage initialised", "backend", cfg.Storage.Backend)

	// Bootstrap admin if the credential store is empty
	seeded, err := auth.SeedAdmin(ctx, users, cfg.Auth.BootstrapUsername, cfg.Auth.BootstrapPassword, log.Logger)
	if err != nil {
		return fmt.Errorf("seeding bootstrap admin: %w", err)
	}
	if seeded {
		if err := users.Persist(ctx); err != nil {
			return fmt.Errorf("persisting bootstrap admin: %w", err)
		}
	}

	// Connect to MQTT broker (optional)
	var relay *mqtt.Client
	if cfg.MQTT.Enabled {
		relay, err = mqtt.Connect(cfg.MQTT)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := relay.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		log.Info("MQTT relay connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)
	} else {
		log.Info("MQTT relay disabled")
	}

	server, err := api.New(api.Deps{
		Config:  cfg,
		Logger:  log,
		Things:  things,
		Users:   users,
		Relay:   relay,
		Version: version,
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

	log.Info("initialisation complete, waiting for shutdown signal")
	<-ctx.Done()
	log.Info("shutdown signal received, cleaning up")

	return nil
}

// loadConfig reads the config file named by THINGSD_CONFIG (falling
// back to configs/config.yaml). A missing file is not fatal: defaults
// plus environment overrides keep the server runnable out of the box.
func loadConfig(log *logging.Logger) (*config.Config, error) {
	path := os.Getenv("THINGSD_CONFIG")
	if path == "" {
		path = defaultConfigPath
	}

	cfg, err := config.Load(path)
	if err != nil {
		if os.IsNotExist(err) || (path == defaultConfigPath && !fileExists(path)) {
			log.Warn("config file not found, using defaults", "path", path)
			cfg = config.Default()
			if validateErr := cfg.Validate(); validateErr != nil {
				return nil, validateErr
			}
			return cfg, nil
		}
		return nil, err
	}

	log.Info("configuration loaded", "path", path)
	return cfg, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// openStores builds the thing and credential stores for the configured
// backend. Both stores always use the same backend. The returned
// closer releases any underlying resources.
func openStores(ctx context.Context, cfg *config.Config, log *logging.Logger) (thing.Store, credstore.Store, func(), error) {
	noop := func() {}

	switch cfg.Storage.Backend {
	case config.BackendMemory:
		return thing.NewMemoryStore(), credstore.NewMemoryStore(), noop, nil

	case config.BackendFile:
		things, err := thing.OpenFileStore(cfg.Storage.File.ThingsPath)
		if err != nil {
			return nil, nil, nil, err
		}
		users, err := credstore.OpenFileStore(cfg.Storage.File.UsersPath)
		if err != nil {
			return nil, nil, nil, err
		}
		return things, users, noop, nil

	case config.BackendDocstore:
		db, err := docstore.Open(cfg.Storage.Docstore.Path)
		if err != nil {
			return nil, nil, nil, err
		}
		return thing.NewDocStore(db), credstore.NewDocStore(db), noop, nil

	case config.BackendSQLite:
		db, err := database.Open(cfg.Storage.Database)
		if err != nil {
			return nil, nil, nil, err
		}
		if err := db.Migrate(ctx); err != nil {
			db.Close()
			return nil, nil, nil, fmt.Errorf("running migrations: %w", err)
		}
		log.Info("database migrations complete")
		closer := func() {
			if err := db.Close(); err != nil {
				log.Error("error closing database", "error", err)
			}
		}
		return thing.NewSQLiteStore(db.DB), credstore.NewSQLiteStore(db.DB), closer, nil

	default:
		return nil, nil, nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}
