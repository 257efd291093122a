// panel.sh device API
//
// This is the main entry point for the panel.sh device-side management
// service. It owns the playlist database, the device settings file, the
// background job worker, and the HTTP management API consumed by the
// web UI and the playback engine.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/sqoia-dev/panel.sh/migrations"

	"github.com/sqoia-dev/panel.sh/internal/api"
	"github.com/sqoia-dev/panel.sh/internal/asset"
	"github.com/sqoia-dev/panel.sh/internal/auth"
	"github.com/sqoia-dev/panel.sh/internal/infrastructure/config"
	"github.com/sqoia-dev/panel.sh/internal/infrastructure/database"
	"github.com/sqoia-dev/panel.sh/internal/infrastructure/influxdb"
	"github.com/sqoia-dev/panel.sh/internal/infrastructure/logging"
	"github.com/sqoia-dev/panel.sh/internal/infrastructure/mqtt"
	"github.com/sqoia-dev/panel.sh/internal/jobs"
	"github.com/sqoia-dev/panel.sh/internal/settings"
	"github.com/sqoia-dev/panel.sh/internal/sysinfo"
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
	// Cancel on interrupt signals (Ctrl+C, SIGTERM) for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting panel.sh",
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

	// Device settings file
	store := settings.NewStore(cfg.Settings.Path)
	if loadErr := store.Load(); loadErr != nil {
		return fmt.Errorf("loading device settings: %w", loadErr)
	}
	log.Info("device settings loaded", "path", cfg.Settings.Path)

	// The debug_logging device setting survives reboots.
	if store.Get().DebugLogging {
		log.SetDebug(true)
		log.Debug("debug logging enabled by device settings")
	}

	// Playlist coordinator over the assets table
	coordinator := asset.NewCoordinator(asset.NewSQLiteRepository(db.DB), nil)

	// Session manager for the management UI
	sessions := auth.NewSessionManager(cfg.Security.JWT.Secret, cfg.Security.JWT.SessionTTL)

	// Connect to MQTT broker (task bus + playback engine link)
	mqttClient, err := mqtt.Connect(cfg.MQTT)
	if err != nil {
		return fmt.Errorf("connecting to MQTT: %w", err)
	}
	defer func() {
		log.Info("disconnecting from MQTT")
		if closeErr := mqttClient.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	}()
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)

	mqttClient.SetOnConnect(func() {
		log.Info("MQTT reconnected")
	})
	mqttClient.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})
	mqttClient.SetLogger(log.With("component", "mqtt"))

	// Connect to InfluxDB (optional telemetry sink)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"bucket", cfg.InfluxDB.Bucket,
		)

		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
	} else {
		log.Info("InfluxDB disabled")
	}

	// Background job worker (task queue + periodic jobs)
	var telemetry jobs.Telemetry
	if influxClient != nil {
		telemetry = influxClient
	}
	worker := jobs.NewWorker(jobs.Options{
		Bus:                  mqttClient,
		Assets:               coordinator,
		Settings:             store,
		Logger:               log,
		Telemetry:            telemetry,
		DeviceID:             cfg.Device.ID,
		DefaultAssetsPath:    cfg.Settings.DefaultAssetsPath,
		AssetsDir:            cfg.Settings.AssetsDir,
		DisplayPowerInterval: time.Duration(cfg.Jobs.DisplayPowerInterval) * time.Second,
		CleanupInterval:      time.Duration(cfg.Jobs.CleanupInterval) * time.Second,
	})
	if startErr := worker.Start(ctx); startErr != nil {
		return fmt.Errorf("starting jobs worker: %w", startErr)
	}

	// HTTP management API
	server, err := api.New(api.Deps{
		Config:       cfg.API,
		WS:           cfg.WebSocket,
		Security:     cfg.Security,
		Logger:       log,
		Assets:       coordinator,
		Settings:     store,
		Sessions:     sessions,
		Bus:          mqttClient,
		StoreHealth:  db,
		BrokerHealth: mqttClient,
		SysInfo:      sysinfo.NewReader(),
		Power:        worker,
		Version:      version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if startErr := server.Start(ctx); startErr != nil {
		return fmt.Errorf("starting API server: %w", startErr)
	}
	defer func() {
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	// Verify all connections are healthy
	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")

	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls run in reverse order:
	// 1. API server
	// 2. InfluxDB (if enabled)
	// 3. MQTT
	// 4. Database

	log.Info("panel.sh stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses PANELSH_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("PANELSH_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies all infrastructure connections are healthy.
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if err := mqttClient.HealthCheck(ctx); err != nil {
		return fmt.Errorf("mqtt: %w", err)
	}

	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	return nil
}
