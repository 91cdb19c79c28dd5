// Package config loads service settings from environment variables.
package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// RunMode selects what the process does after wiring: the timer-driven
// service, or a single immediate run of one family.
type RunMode string

const (
	ModeServe    RunMode = "serve"
	ModeStation  RunMode = "station"
	ModeMaxSurge RunMode = "max-surge"
	ModeWind     RunMode = "wind"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`

	HTTPAddr        string        `envconfig:"HTTP_ADDR" default:":8080"`
	LogLevel        string        `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat       string        `envconfig:"LOG_FORMAT" default:"json"`
	RunMode         RunMode       `envconfig:"RUN_MODE" default:"serve"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`

	// Station and max-surge files arrive on a mounted remote directory.
	SurgeSourceRoot string `envconfig:"SURGE_SOURCE_ROOT" required:"true"`
	SurgeLocalRoot  string `envconfig:"SURGE_LOCAL_ROOT" required:"true"`

	// Wind fields arrive over FTP.
	WindLocalRoot  string `envconfig:"WIND_LOCAL_ROOT" required:"true"`
	WindFieldName  string `envconfig:"WIND_FIELD_NAME" default:"ws"`
	FTPAddr        string `envconfig:"FTP_ADDR"`
	FTPUser        string `envconfig:"FTP_USER" default:"anonymous"`
	FTPPassword    string `envconfig:"FTP_PASSWORD"`
	FTPRemotePath  string `envconfig:"FTP_REMOTE_PATH" default:"/"`

	StationInterval time.Duration `envconfig:"STATION_INTERVAL" default:"10m"`
	WindInterval    time.Duration `envconfig:"WIND_INTERVAL" default:"10m"`

	// Optional artifact-event notifications; disabled when no brokers.
	KafkaBrokers []string `envconfig:"KAFKA_BROKERS"`
	KafkaTopic   string   `envconfig:"KAFKA_TOPIC" default:"coverage-artifacts"`
}

// Load reads configuration from the environment and validates it.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate enforces constraints envconfig cannot express, including
// required variables that were set but empty.
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.SurgeSourceRoot == "" || c.SurgeLocalRoot == "" || c.WindLocalRoot == "" {
		return fmt.Errorf("storage roots are required")
	}
	switch c.RunMode {
	case ModeServe, ModeStation, ModeMaxSurge, ModeWind:
	default:
		return fmt.Errorf("invalid RUN_MODE %q", c.RunMode)
	}
	switch c.LogFormat {
	case "json", "text":
	default:
		return fmt.Errorf("invalid LOG_FORMAT %q", c.LogFormat)
	}
	if c.StationInterval <= 0 || c.WindInterval <= 0 {
		return fmt.Errorf("schedule intervals must be positive")
	}
	if (c.RunMode == ModeServe || c.RunMode == ModeWind) && c.FTPAddr == "" {
		return fmt.Errorf("FTP_ADDR is required for the wind family")
	}
	return nil
}

// KafkaEnabled reports whether artifact-event publishing is configured.
func (c *Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0
}
