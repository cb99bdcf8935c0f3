package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	envPrefix = "CHORECAL_"
	// FileEnv names the variable holding an optional YAML config path.
	FileEnv = envPrefix + "CONFIG"
)

type Config struct {
	Port      string `yaml:"port" env:"PORT"`
	DBPath    string `yaml:"db_path" env:"DB_PATH"`
	LogLevel  string `yaml:"log_level" env:"LOG_LEVEL"`
	LogFormat string `yaml:"log_format" env:"LOG_FORMAT"`

	// DigestCron schedules the daily digest. "" or "off" disables it.
	DigestCron string `yaml:"digest_cron" env:"DIGEST_CRON"`

	// Basic auth is enabled only when both are set. The hash is bcrypt.
	AuthUsername     string `yaml:"auth_username" env:"AUTH_USERNAME"`
	AuthPasswordHash string `yaml:"auth_password_hash" env:"AUTH_PASSWORD_HASH"`

	// MaxQueryDays bounds the length of an events window.
	MaxQueryDays int `yaml:"max_query_days" env:"MAX_QUERY_DAYS"`
	// MaxOccurrences caps one chore's occurrences in a single query.
	MaxOccurrences int `yaml:"max_occurrences" env:"MAX_OCCURRENCES"`

	// RateLimit is the number of API requests one client IP may make per
	// minute. Zero disables the limit.
	RateLimit int `yaml:"rate_limit" env:"RATE_LIMIT"`

	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
}

func Default() *Config {
	return &Config{
		Port:            "8080",
		DBPath:          "chorecal.db",
		LogLevel:        "info",
		LogFormat:       "text",
		DigestCron:      "0 6 * * *",
		MaxQueryDays:    732,
		MaxOccurrences:  10000,
		RateLimit:       600,
		ShutdownTimeout: 10 * time.Second,
	}
}

// Load builds the configuration from defaults, then the YAML file named by
// CHORECAL_CONFIG, then CHORECAL_* environment variables. dotenvPath is
// loaded into the environment first; a missing file is not an error.
func Load(dotenvPath string) (*Config, error) {
	if dotenvPath != "" {
		if err := godotenv.Load(dotenvPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", dotenvPath, err)
		}
	}

	cfg := Default()
	if path := os.Getenv(FileEnv); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	if err := env.ParseWithOptions(cfg, env.Options{Prefix: envPrefix}); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Port) == "" {
		errs = append(errs, errors.New("port is required"))
	}
	if strings.TrimSpace(c.DBPath) == "" {
		errs = append(errs, errors.New("db_path is required"))
	}
	if c.MaxQueryDays <= 0 {
		errs = append(errs, fmt.Errorf("max_query_days must be positive, got %d", c.MaxQueryDays))
	}
	if c.MaxOccurrences <= 0 {
		errs = append(errs, fmt.Errorf("max_occurrences must be positive, got %d", c.MaxOccurrences))
	}
	if c.RateLimit < 0 {
		errs = append(errs, fmt.Errorf("rate_limit must not be negative, got %d", c.RateLimit))
	}
	if (c.AuthUsername == "") != (c.AuthPasswordHash == "") {
		errs = append(errs, errors.New("auth_username and auth_password_hash must be set together"))
	}
	if c.ShutdownTimeout <= 0 {
		errs = append(errs, errors.New("shutdown_timeout must be positive"))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// DigestEnabled reports whether a digest schedule is configured.
func (c *Config) DigestEnabled() bool {
	s := strings.TrimSpace(c.DigestCron)
	return s != "" && !strings.EqualFold(s, "off")
}

func (c *Config) Addr() string {
	return ":" + c.Port
}
