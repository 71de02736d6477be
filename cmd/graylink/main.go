// Gray Logic Link - channel/item profile service
//
// Gray Logic Link sits between protocol bindings and the item layer of a
// Gray Logic hub. For every channel linked to an item it resolves a
// profile and routes channel events and item commands through it over
// MQTT.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/nerrad567/gray-logic-link/migrations"

	"github.com/nerrad567/gray-logic-link/internal/bus"
	"github.com/nerrad567/gray-logic-link/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-link/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-link/internal/infrastructure/influxdb"
	"github.com/nerrad567/gray-logic-link/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-link/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-link/internal/link"
	"github.com/nerrad567/gray-logic-link/internal/profile"
)

// Set at build time:
//
//	go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

const defaultConfigPath = "configs/config.yaml"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run wires the service and blocks until ctx is cancelled. Deferred
// closes run in reverse order of startup.
func run(ctx context.Context) error {
	log := logging.Default()
	log.Info("starting Gray Logic Link",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log = logging.New(cfg.Logging, version)
	log.Info("configuration loaded",
		"path", configPath,
		"hub_id", cfg.Hub.ID,
		"level", cfg.Logging.Level,
	)

	// Database
	db, err := database.Open(cfg.Database)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database ready", "path", db.Path())

	repo := link.NewSQLiteRepository(db.DB)
	if cfg.Profiles.LinksFile != "" {
		n, seedErr := seedLinks(ctx, repo, cfg.Profiles.LinksFile)
		if seedErr != nil {
			return seedErr
		}
		log.Info("links file applied", "path", cfg.Profiles.LinksFile, "created", n)
	}

	// Profile registry
	registry := newRegistry(cfg.Profiles)
	registry.SetLogger(log.Component("profile"))
	for _, p := range registry.System().Pairings() {
		log.Info("trigger pairing active",
			"channel_type", p.ChannelType,
			"item_type", p.ItemType,
			"profile", p.Profile,
		)
	}
	for _, t := range registry.ProfileTypes(cfg.Profiles.LocaleTag()) {
		log.Debug("profile type available", "uid", t.UID, "label", t.Label, "kind", t.Kind)
	}

	// MQTT
	mqttClient, err := mqtt.ConnectWithLogger(cfg.MQTT, log.Component("mqtt"))
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
		"prefix", mqttClient.Topics().Prefix,
	)

	publisher := bus.NewPublisher(mqttClient, mqttClient.Topics())
	publisher.SetLogger(log.Component("bus"))

	manager := link.NewManager(repo, registry, publisher)
	manager.SetLogger(log.Component("link"))
	manager.SetActivationWorkers(cfg.Profiles.ActivationWorkers)

	// InfluxDB (optional)
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
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		manager.SetRecorder(newInfluxRecorder(influxClient))
		log.Info("InfluxDB recording enabled", "url", cfg.InfluxDB.URL, "bucket", cfg.InfluxDB.Bucket)
	} else {
		log.Info("InfluxDB disabled")
	}

	if err := manager.ActivateAll(ctx); err != nil {
		return fmt.Errorf("activating links: %w", err)
	}
	for _, u := range manager.Unresolved() {
		log.Warn("link inactive until reconfigured",
			"link_id", u.Link.ID,
			"channel", u.Link.ChannelUID,
			"item", u.Link.ItemName,
			"error", u.Err,
		)
	}

	dispatcher := bus.NewDispatcher(mqttClient, mqttClient.Topics(), manager)
	dispatcher.SetLogger(log.Component("bus"))
	if err := dispatcher.Start(ctx); err != nil {
		return fmt.Errorf("starting dispatcher: %w", err)
	}
	defer func() {
		stats := dispatcher.Stats()
		log.Info("stopping dispatcher",
			"received", stats.Received,
			"delivered", stats.Delivered,
			"dropped", stats.Dropped,
		)
		if stopErr := dispatcher.Stop(); stopErr != nil {
			log.Error("error stopping dispatcher", "error", stopErr)
		}
	}()

	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}

	log.Info("initialisation complete, waiting for shutdown signal",
		"bound", manager.Count(),
		"unresolved", len(manager.Unresolved()),
	)

	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")
	return nil
}

// getConfigPath returns GRAYLINK_CONFIG or the default path.
func getConfigPath() string {
	if path := os.Getenv("GRAYLINK_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

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

// newRegistry builds the profile registry. Configured trigger pairings
// replace the built-in table.
func newRegistry(cfg config.ProfilesConfig) *profile.Registry {
	pairings := triggerPairings(cfg.TriggerPairings)
	if len(pairings) == 0 {
		return profile.NewRegistry()
	}
	return profile.NewRegistry(profile.WithSystemFactory(profile.NewSystemFactory(pairings...)))
}

func triggerPairings(in []config.TriggerPairingConfig) []profile.TriggerPairing {
	if len(in) == 0 {
		return nil
	}
	out := make([]profile.TriggerPairing, 0, len(in))
	for _, p := range in {
		out = append(out, profile.TriggerPairing{
			ChannelType: profile.ChannelTypeUID(p.ChannelType),
			ItemType:    p.ItemType,
			Profile:     profile.TypeUID(p.Profile),
		})
	}
	return out
}

// seedLinks loads the links file into the store. Links already present
// are left untouched.
func seedLinks(ctx context.Context, repo link.Repository, path string) (int, error) {
	links, err := link.LoadSeedFile(path)
	if err != nil {
		return 0, fmt.Errorf("loading links file: %w", err)
	}
	n, err := link.SeedRepository(ctx, repo, links)
	if err != nil {
		return n, fmt.Errorf("seeding links: %w", err)
	}
	return n, nil
}
