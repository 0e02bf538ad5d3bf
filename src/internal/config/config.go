// Package config loads service configuration from an optional YAML file with
// environment-variable overrides. Env vars always win, so container
// deployments can run without a config file at all.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so YAML values like "5m" parse naturally.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", value.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) Std() time.Duration { return time.Duration(d) }

type ServerConfig struct {
	Port         string   `yaml:"port"`
	ReadTimeout  Duration `yaml:"read_timeout"`
	WriteTimeout Duration `yaml:"write_timeout"`
	IdleTimeout  Duration `yaml:"idle_timeout"`
}

type DBConfig struct {
	DSN             string   `yaml:"dsn"`
	MigrationsDir   string   `yaml:"migrations_dir"`
	ConnectAttempts int      `yaml:"connect_attempts"`
	BackoffBase     Duration `yaml:"backoff_base"`
	BackoffCap      Duration `yaml:"backoff_cap"`
}

type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
}

type CacheConfig struct {
	AnalyticsTTL  Duration `yaml:"analytics_ttl"`
	AlertsTTL     Duration `yaml:"alerts_ttl"`
	StaleAfter    Duration `yaml:"stale_after"`
	SweepInterval Duration `yaml:"sweep_interval"`
}

type Config struct {
	Server ServerConfig `yaml:"server"`
	DB     DBConfig     `yaml:"db"`
	Auth   AuthConfig   `yaml:"auth"`
	Cache  CacheConfig  `yaml:"cache"`
}

// Default is the configuration used when no file and no env overrides exist.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Port:         "8080",
			ReadTimeout:  Duration(5 * time.Second),
			WriteTimeout: Duration(10 * time.Second),
			IdleTimeout:  Duration(60 * time.Second),
		},
		DB: DBConfig{
			DSN:             "postgres://pguser:pgpass@db:5432/availability?sslmode=disable",
			MigrationsDir:   "./migrations",
			ConnectAttempts: 10,
			BackoffBase:     Duration(500 * time.Millisecond),
			BackoffCap:      Duration(8 * time.Second),
		},
		Auth: AuthConfig{
			JWTSecret: "dev-only-secret",
		},
		Cache: CacheConfig{
			AnalyticsTTL:  Duration(5 * time.Minute),
			AlertsTTL:     Duration(30 * time.Second),
			StaleAfter:    Duration(1 * time.Minute),
			SweepInterval: Duration(5 * time.Minute),
		},
	}
}

// Load reads the YAML file at path when it exists, then applies env
// overrides. An empty path skips the file step entirely.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err == nil {
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse config %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	overrideFromEnv(&cfg)

	if cfg.DB.ConnectAttempts < 1 {
		return Config{}, fmt.Errorf("db.connect_attempts must be positive, got %d", cfg.DB.ConnectAttempts)
	}
	return cfg, nil
}

func overrideFromEnv(cfg *Config) {
	if v := os.Getenv("PORT"); v != "" {
		cfg.Server.Port = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.DB.DSN = v
	}
	if v := os.Getenv("MIGRATIONS_DIR"); v != "" {
		cfg.DB.MigrationsDir = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		cfg.Auth.JWTSecret = v
	}
}

// Getenv returns the env var value or def when unset.
func Getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
