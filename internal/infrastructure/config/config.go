package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for Gray Logic Link.
type Config struct {
	Hub      HubConfig      `yaml:"hub"`
	Database DatabaseConfig `yaml:"database"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
	InfluxDB InfluxDBConfig `yaml:"influxdb"`
	Logging  LoggingConfig  `yaml:"logging"`
	Profiles ProfilesConfig `yaml:"profiles"`
}

// HubConfig identifies this hub instance.
type HubConfig struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Broker      MQTTBrokerConfig    `yaml:"broker"`
	Auth        MQTTAuthConfig      `yaml:"auth"`
	QoS         int                 `yaml:"qos"`
	TopicPrefix string              `yaml:"topic_prefix"`
	Reconnect   MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings in seconds.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// ProfilesConfig controls profile resolution and link loading.
type ProfilesConfig struct {
	// Locale selects the language of profile type labels (BCP 47, e.g. "de").
	Locale string `yaml:"locale"`

	// LinksFile is an optional YAML file of links seeded into the store at startup.
	LinksFile string `yaml:"links_file"`

	// ActivationWorkers bounds concurrent resolutions during startup.
	ActivationWorkers int `yaml:"activation_workers"`

	// TriggerPairings replaces the built-in table the fallback advisor
	// consults for trigger channels. Empty keeps the built-in table.
	TriggerPairings []TriggerPairingConfig `yaml:"trigger_pairings"`
}

// TriggerPairingConfig maps a trigger channel type and item type to a profile.
type TriggerPairingConfig struct {
	ChannelType string `yaml:"channel_type"`
	ItemType    string `yaml:"item_type"`
	Profile     string `yaml:"profile"`
}

// uidPattern matches namespaced UIDs such as "system:rawbutton".
var uidPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+:[A-Za-z0-9_-]+$`)

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern GRAYLINK_SECTION_KEY,
// for example GRAYLINK_DATABASE_PATH or GRAYLINK_MQTT_HOST.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path) //nolint:gosec // path comes from the command line
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Default returns the built-in configuration, with environment overrides
// applied. Used when no config file exists.
func Default() *Config {
	cfg := defaultConfig()
	applyEnvOverrides(cfg)
	return cfg
}

func defaultConfig() *Config {
	return &Config{
		Hub: HubConfig{
			ID:   "hub-001",
			Name: "Gray Logic Link",
		},
		Database: DatabaseConfig{
			Path:        "./data/graylink.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "graylink",
			},
			QoS:         1,
			TopicPrefix: "graylink",
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		InfluxDB: InfluxDBConfig{
			URL:           "http://localhost:8086",
			Org:           "graylogic",
			Bucket:        "profiles",
			BatchSize:     100,
			FlushInterval: 10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Profiles: ProfilesConfig{
			Locale:            "en",
			ActivationWorkers: 4,
		},
	}
}

// applyEnvOverrides applies GRAYLINK_* environment variables.
func applyEnvOverrides(cfg *Config) {
	// Database
	if v := os.Getenv("GRAYLINK_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// MQTT
	if v := os.Getenv("GRAYLINK_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("GRAYLINK_MQTT_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.MQTT.Broker.Port = port
		}
	}
	if v := os.Getenv("GRAYLINK_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("GRAYLINK_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// InfluxDB
	if v := os.Getenv("GRAYLINK_INFLUXDB_URL"); v != "" {
		cfg.InfluxDB.URL = v
	}
	if v := os.Getenv("GRAYLINK_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	// Logging
	if v := os.Getenv("GRAYLINK_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	// Profiles
	if v := os.Getenv("GRAYLINK_PROFILES_LOCALE"); v != "" {
		cfg.Profiles.Locale = v
	}
	if v := os.Getenv("GRAYLINK_LINKS_FILE"); v != "" {
		cfg.Profiles.LinksFile = v
	}
}

// Validate checks the configuration and reports every problem found.
func (c *Config) Validate() error {
	var errs []string

	if c.Hub.ID == "" {
		errs = append(errs, "hub.id is required")
	}

	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}
	if c.MQTT.Broker.Port < 1 || c.MQTT.Broker.Port > 65535 {
		errs = append(errs, "mqtt.broker.port must be between 1 and 65535")
	}
	if c.MQTT.TopicPrefix == "" || strings.ContainsAny(c.MQTT.TopicPrefix, "+# ") {
		errs = append(errs, "mqtt.topic_prefix must be non-empty and contain no wildcards or spaces")
	}

	if c.InfluxDB.Enabled {
		if c.InfluxDB.URL == "" {
			errs = append(errs, "influxdb.url is required when influxdb is enabled")
		}
		if c.InfluxDB.Bucket == "" {
			errs = append(errs, "influxdb.bucket is required when influxdb is enabled")
		}
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error", "":
	default:
		errs = append(errs, fmt.Sprintf("logging.level %q must be debug, info, warn or error", c.Logging.Level))
	}

	errs = append(errs, c.Profiles.validate()...)

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

func (p *ProfilesConfig) validate() []string {
	var errs []string

	if p.Locale != "" {
		if _, err := language.Parse(p.Locale); err != nil {
			errs = append(errs, fmt.Sprintf("profiles.locale %q is not a valid language tag", p.Locale))
		}
	}

	if p.ActivationWorkers < 1 {
		errs = append(errs, "profiles.activation_workers must be at least 1")
	}

	for i, tp := range p.TriggerPairings {
		if !uidPattern.MatchString(tp.ChannelType) {
			errs = append(errs, fmt.Sprintf("profiles.trigger_pairings[%d].channel_type %q must be namespace:id", i, tp.ChannelType))
		}
		if tp.ItemType == "" {
			errs = append(errs, fmt.Sprintf("profiles.trigger_pairings[%d].item_type is required", i))
		}
		if !uidPattern.MatchString(tp.Profile) {
			errs = append(errs, fmt.Sprintf("profiles.trigger_pairings[%d].profile %q must be namespace:id", i, tp.Profile))
		}
	}

	return errs
}

// LocaleTag returns the parsed profile label locale, falling back to English.
func (p *ProfilesConfig) LocaleTag() language.Tag {
	tag, err := language.Parse(p.Locale)
	if err != nil {
		return language.English
	}
	return tag
}

// GetFlushInterval returns the InfluxDB flush interval as a Duration.
func (c *Config) GetFlushInterval() time.Duration {
	return time.Duration(c.InfluxDB.FlushInterval) * time.Second
}
