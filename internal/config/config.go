package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/ilyakaznacheev/cleanenv"
	"gopkg.in/yaml.v3"
)

// DatabaseConfig configures the PostgreSQL store
type DatabaseConfig struct {
	URL          string `yaml:"url" env:"DATABASE_URL" validate:"required"`
	MaxTxRetries int    `yaml:"maxTxRetries" env:"DATABASE_MAX_TX_RETRIES" env-default:"3" validate:"min=1,max=20"`
}

// RedisConfig configures the optional distributed lock. An empty address disables it.
type RedisConfig struct {
	Addr string `yaml:"addr" env:"REDIS_ADDR" validate:"omitempty,hostname_port"`
}

// HTTPConfig configures the serve command
type HTTPConfig struct {
	Address         string        `yaml:"address" env:"HTTP_ADDRESS" env-default:"localhost:8080" validate:"required,hostname_port"`
	Timeout         time.Duration `yaml:"timeout" env:"HTTP_TIMEOUT" env-default:"4s"`
	IdleTimeout     time.Duration `yaml:"idleTimeout" env:"HTTP_IDLE_TIMEOUT" env-default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout" env:"HTTP_SHUTDOWN_TIMEOUT" env-default:"15s"`
}

// SheetsConfig configures roster publishing
type SheetsConfig struct {
	RosterSheetID string `yaml:"rosterSheetID" env:"ROSTER_SHEET_ID"`
}

// Config represents the application configuration
type Config struct {
	// Timezone is used to interpret times given on the command line
	Timezone string         `yaml:"timezone" env:"DAYCARE_TIMEZONE" env-default:"UTC" validate:"required"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	HTTP     HTTPConfig     `yaml:"http"`
	Sheets   SheetsConfig   `yaml:"sheets"`
}

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Location returns the configured timezone
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// LoadWithEnv loads daycare_config.<env>.yaml (or daycare_config.yaml when env is empty)
// from the current directory or the user's home directory
func LoadWithEnv(env string) (*Config, error) {
	configPath, err := findConfigFile(env)
	if err != nil {
		return nil, fmt.Errorf("failed to find config file: %w", err)
	}

	return LoadFromPath(configPath)
}

// LoadFromPath loads the configuration from a specific path, applies
// environment overrides and defaults, then validates it
func LoadFromPath(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Environment variables win over the file; defaults fill what both leave empty
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment overrides: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate validates the configuration struct and the timezone name
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	if _, err := time.LoadLocation(cfg.Timezone); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", cfg.Timezone, err)
	}

	return nil
}

// findConfigFile searches for the environment's config file
func findConfigFile(env string) (string, error) {
	configFileName := "daycare_config.yaml"
	if env != "" {
		configFileName = "daycare_config." + env + ".yaml"
	}
	return findFile(configFileName)
}

// findFile looks for name in the current directory, then in the user's home directory
func findFile(name string) (string, error) {
	if _, err := os.Stat(name); err == nil {
		return name, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	homePath := filepath.Join(homeDir, name)
	if _, err := os.Stat(homePath); err == nil {
		return homePath, nil
	}

	return "", fmt.Errorf("%s not found in current directory or home directory", name)
}
