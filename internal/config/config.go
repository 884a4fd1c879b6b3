package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config captures the settings required to boot the incident engine.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Database      DatabaseConfig      `yaml:"database"`
	NATS          NATSConfig          `yaml:"nats"`
	Notifications NotificationsConfig `yaml:"notifications"`
	Incidents     IncidentsConfig     `yaml:"incidents"`
	MetricsReport MetricsReportConfig `yaml:"metricsReport"`
	Cache         CacheConfig         `yaml:"cache"`
	Logging       LoggingConfig       `yaml:"logging"`
}

// ServerConfig controls the listeners.
type ServerConfig struct {
	Address         string        `yaml:"address"`
	HealthAddress   string        `yaml:"healthAddress"`
	MetricsAddress  string        `yaml:"metricsAddress"`
	GracefulTimeout time.Duration `yaml:"gracefulTimeout"`
}

// DatabaseConfig configures the Postgres incident store.
type DatabaseConfig struct {
	DSN          string `yaml:"dsn"`
	MaxOpenConns int    `yaml:"maxOpenConns"`
	MaxIdleConns int    `yaml:"maxIdleConns"`
}

// NATSConfig configures the event ingestion channel. An empty URL disables
// NATS entirely; ingestion then happens over HTTP only.
type NATSConfig struct {
	URL           string `yaml:"url"`
	EventsSubject string `yaml:"eventsSubject"`
	Queue         string `yaml:"queue"`
}

// NotificationsConfig controls the alert publish channel.
type NotificationsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Subject string `yaml:"subject"`
}

// IncidentsConfig controls identifier generation and custom severity rules.
type IncidentsConfig struct {
	IDStrategy string `yaml:"idStrategy"`
	RulesPath  string `yaml:"rulesPath"`
}

// MetricsReportConfig controls the dashboard rollup window and caching.
type MetricsReportConfig struct {
	Window   time.Duration `yaml:"window"`
	CacheTTL time.Duration `yaml:"cacheTTL"`
}

// LoggingConfig controls structured logging.
type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// CacheConfig controls Valkey-backed caching of the metrics report.
type CacheConfig struct {
	Enabled      bool          `yaml:"enabled"`
	Addr         string        `yaml:"addr"`
	Username     string        `yaml:"username"`
	Password     string        `yaml:"password"`
	DB           int           `yaml:"db"`
	DialTimeout  time.Duration `yaml:"dialTimeout"`
	ReadTimeout  time.Duration `yaml:"readTimeout"`
	WriteTimeout time.Duration `yaml:"writeTimeout"`
	MaxRetries   int           `yaml:"maxRetries"`
	TLS          bool          `yaml:"tls"`
}

// Load initialises Config from a YAML file and optional environment
// overrides.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("CLOUDOPS_CONFIG")
	}

	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("config file %s not found: %w", path, err)
			}
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	return &cfg, nil
}

func defaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Address:         ":8080",
			HealthAddress:   ":50051",
			MetricsAddress:  ":2112",
			GracefulTimeout: 10 * time.Second,
		},
		Database: DatabaseConfig{
			MaxOpenConns: 10,
			MaxIdleConns: 5,
		},
		NATS: NATSConfig{
			EventsSubject: "cloudops.events",
			Queue:         "cloudops-engine",
		},
		Notifications: NotificationsConfig{
			Enabled: true,
			Subject: "cloudops.alerts",
		},
		Incidents: IncidentsConfig{IDStrategy: "uuid"},
		MetricsReport: MetricsReportConfig{
			Window:   24 * time.Hour,
			CacheTTL: time.Minute,
		},
		Cache: CacheConfig{
			Enabled:      false,
			DialTimeout:  2 * time.Second,
			ReadTimeout:  500 * time.Millisecond,
			WriteTimeout: 500 * time.Millisecond,
			MaxRetries:   2,
		},
		Logging: LoggingConfig{Level: "info", JSON: false},
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("CLOUDOPS_SERVER_ADDRESS"); v != "" {
		cfg.Server.Address = v
	}
	if v := os.Getenv("CLOUDOPS_HEALTH_ADDRESS"); v != "" {
		cfg.Server.HealthAddress = v
	}
	if v := os.Getenv("CLOUDOPS_METRICS_ADDRESS"); v != "" {
		cfg.Server.MetricsAddress = v
	}
	if v := os.Getenv("CLOUDOPS_DATABASE_DSN"); v != "" {
		cfg.Database.DSN = v
	}
	if v := os.Getenv("CLOUDOPS_DATABASE_MAX_OPEN"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Database.MaxOpenConns = n
		}
	}
	if v := os.Getenv("CLOUDOPS_DATABASE_MAX_IDLE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Database.MaxIdleConns = n
		}
	}
	if v := os.Getenv("CLOUDOPS_NATS_URL"); v != "" {
		cfg.NATS.URL = v
	}
	if v := os.Getenv("CLOUDOPS_NATS_EVENTS_SUBJECT"); v != "" {
		cfg.NATS.EventsSubject = v
	}
	if v := os.Getenv("CLOUDOPS_NATS_QUEUE"); v != "" {
		cfg.NATS.Queue = v
	}
	if v := os.Getenv("CLOUDOPS_NOTIFICATIONS_ENABLED"); v != "" {
		cfg.Notifications.Enabled = strings.EqualFold(v, "true") || v == "1"
	}
	if v := os.Getenv("CLOUDOPS_NOTIFICATIONS_SUBJECT"); v != "" {
		cfg.Notifications.Subject = v
	}
	if v := os.Getenv("CLOUDOPS_ID_STRATEGY"); v != "" {
		cfg.Incidents.IDStrategy = v
	}
	if v := os.Getenv("CLOUDOPS_RULES_PATH"); v != "" {
		cfg.Incidents.RulesPath = v
	}
	if v := os.Getenv("CLOUDOPS_METRICS_WINDOW"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.MetricsReport.Window = d
		}
	}
	if v := os.Getenv("CLOUDOPS_METRICS_CACHE_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.MetricsReport.CacheTTL = d
		}
	}
	if v := os.Getenv("CLOUDOPS_CACHE_ENABLED"); v != "" {
		cfg.Cache.Enabled = strings.EqualFold(v, "true") || v == "1"
	}
	if v := os.Getenv("CLOUDOPS_CACHE_ADDR"); v != "" {
		cfg.Cache.Addr = v
	}
	if v := os.Getenv("CLOUDOPS_CACHE_USERNAME"); v != "" {
		cfg.Cache.Username = v
	}
	if v := os.Getenv("CLOUDOPS_CACHE_PASSWORD"); v != "" {
		cfg.Cache.Password = v
	}
	if v := os.Getenv("CLOUDOPS_CACHE_DB"); v != "" {
		if db, err := strconv.Atoi(v); err == nil {
			cfg.Cache.DB = db
		}
	}
	if v := os.Getenv("CLOUDOPS_CACHE_TLS"); strings.EqualFold(v, "true") || v == "1" {
		cfg.Cache.TLS = true
	}
	if v := os.Getenv("CLOUDOPS_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("CLOUDOPS_LOG_FORMAT"); v == "json" {
		cfg.Logging.JSON = true
	}
}
