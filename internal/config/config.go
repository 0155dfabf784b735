// Package config loads carbonshiftd's configuration from a YAML file, env
// vars, and flags via viper, directly modeled on
// internal/config/config.go's nested-struct-plus-viper pattern (trimmed to
// this system's own concerns: catalog, horizon, solver budget, bus
// transport, API, recorder sink, logging).
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config is the complete configuration for a carbonshiftd process.
type Config struct {
	Horizon  int            `yaml:"horizon" mapstructure:"horizon"`
	Catalog  CatalogConfig  `yaml:"catalog" mapstructure:"catalog"`
	Solver   SolverConfig   `yaml:"solver" mapstructure:"solver"`
	Bus      BusConfig      `yaml:"bus" mapstructure:"bus"`
	API      APIConfig      `yaml:"api" mapstructure:"api"`
	Recorder RecorderConfig `yaml:"recorder" mapstructure:"recorder"`
	Logging  LoggingConfig  `yaml:"logging" mapstructure:"logging"`
}

// CatalogConfig points at the strategy table CSV and carbon-intensity
// sequence files.
type CatalogConfig struct {
	StrategiesFile string `yaml:"strategies_file" mapstructure:"strategies_file"`
	IntensityFile  string `yaml:"intensity_file" mapstructure:"intensity_file"`
}

// SolverConfig holds the block budget, error budget, and wall-clock limit.
type SolverConfig struct {
	Beta           int           `yaml:"beta" mapstructure:"beta"`
	Epsilon        float64       `yaml:"epsilon" mapstructure:"epsilon"`
	WallClockLimit time.Duration `yaml:"wall_clock_limit" mapstructure:"wall_clock_limit"`
	CycleInterval  time.Duration `yaml:"cycle_interval" mapstructure:"cycle_interval"`
}

// BusConfig selects the tick/slot bus transport.
type BusConfig struct {
	Driver   string `yaml:"driver" mapstructure:"driver"` // "memory" or "redis"
	RedisURL string `yaml:"redis_url" mapstructure:"redis_url"`
}

// APIConfig holds the HTTP ingress/admin server configuration.
type APIConfig struct {
	Listen         string        `yaml:"listen" mapstructure:"listen"`
	JWTSecret      string        `yaml:"jwt_secret" mapstructure:"jwt_secret"`
	RateLimitRPS   float64       `yaml:"rate_limit_rps" mapstructure:"rate_limit_rps"`
	RateLimitBurst int           `yaml:"rate_limit_burst" mapstructure:"rate_limit_burst"`
	ShutdownGrace  time.Duration `yaml:"shutdown_grace" mapstructure:"shutdown_grace"`
}

// RecorderConfig selects and configures the assignment log sink.
type RecorderConfig struct {
	Driver   string         `yaml:"driver" mapstructure:"driver"` // "csv" or "postgres"
	CSVPath  string         `yaml:"csv_path" mapstructure:"csv_path"`
	Postgres PostgresConfig `yaml:"postgres" mapstructure:"postgres"`
}

// PostgresConfig mirrors recorder.PostgresConfig for YAML/env binding.
type PostgresConfig struct {
	Host     string `yaml:"host" mapstructure:"host"`
	Port     int    `yaml:"port" mapstructure:"port"`
	Database string `yaml:"database" mapstructure:"database"`
	Username string `yaml:"username" mapstructure:"username"`
	Password string `yaml:"password" mapstructure:"password"`
	SSLMode  string `yaml:"ssl_mode" mapstructure:"ssl_mode"`
}

// LoggingConfig selects level/format for the process logger.
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Default returns the configuration a fresh checkout runs with: in-memory
// bus, CSV recorder at ./assignment_log.csv, 48-slot horizon (24h at
// 30-minute slots, matching the original system's own worked example).
func Default() *Config {
	return &Config{
		Horizon: 48,
		Catalog: CatalogConfig{StrategiesFile: "strategies.csv", IntensityFile: "carbon_intensity.json"},
		Solver: SolverConfig{
			Beta:           1000,
			Epsilon:        0,
			WallClockLimit: 300 * time.Second,
			CycleInterval:  30 * time.Second,
		},
		Bus: BusConfig{Driver: "memory"},
		API: APIConfig{
			Listen:         "0.0.0.0:8080",
			RateLimitRPS:   50,
			RateLimitBurst: 100,
			ShutdownGrace:  10 * time.Second,
		},
		Recorder: RecorderConfig{Driver: "csv", CSVPath: "assignment_log.csv"},
		Logging:  LoggingConfig{Level: "info", Format: "json"},
	}
}

// Load reads configuration from configFile (or the standard search paths
// if empty), overlays environment variables prefixed CARBONSHIFT_, and
// unmarshals into a Config seeded with Default()'s values.
func Load(configFile string) (*Config, error) {
	cfg := Default()

	v := viper.New()
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("carbonshift")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/carbonshift")
	}

	v.SetEnvPrefix("CARBONSHIFT")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks cross-field invariants Default() alone cannot guarantee
// once a config file has overridden fields.
func (c *Config) Validate() error {
	if c.Horizon <= 0 {
		return fmt.Errorf("horizon must be positive, got %d", c.Horizon)
	}
	if c.Solver.Epsilon < 0 {
		return fmt.Errorf("solver.epsilon must be non-negative, got %v", c.Solver.Epsilon)
	}
	switch c.Bus.Driver {
	case "memory", "redis":
	default:
		return fmt.Errorf("bus.driver must be \"memory\" or \"redis\", got %q", c.Bus.Driver)
	}
	switch c.Recorder.Driver {
	case "csv", "postgres":
	default:
		return fmt.Errorf("recorder.driver must be \"csv\" or \"postgres\", got %q", c.Recorder.Driver)
	}
	return nil
}
