// Package config loads the engine's runtime configuration from an optional
// YAML file with environment-variable overrides. A .env file is honored if
// present so local development matches the deployed environment shape.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds the HTTP and storage settings for the history engine.
type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Redis    RedisConfig    `yaml:"redis"`
	Postgres PostgresConfig `yaml:"postgres"`
	Timezone string         `yaml:"timezone"`
}

type HTTPConfig struct {
	Port            string        `yaml:"port"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type RedisConfig struct {
	URL string `yaml:"url"`
}

type PostgresConfig struct {
	DSN string `yaml:"dsn"`
}

// Load reads configuration from path (skipped when empty or missing) and
// then applies environment overrides: PORT, REDIS_URL, DATABASE_URL, TZ_NAME.
func Load(path string) (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		HTTP: HTTPConfig{
			Port:            "8080",
			RequestTimeout:  30 * time.Second,
			ShutdownTimeout: 5 * time.Second,
		},
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		}
		if err == nil {
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	if v := os.Getenv("PORT"); v != "" {
		cfg.HTTP.Port = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.Redis.URL = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Postgres.DSN = v
	}
	if v := os.Getenv("TZ_NAME"); v != "" {
		cfg.Timezone = v
	}

	if cfg.HTTP.RequestTimeout <= 0 {
		cfg.HTTP.RequestTimeout = 30 * time.Second
	}
	if cfg.HTTP.ShutdownTimeout <= 0 {
		cfg.HTTP.ShutdownTimeout = 5 * time.Second
	}

	return cfg, nil
}

// Location resolves the configured timezone, defaulting to UTC. "Today" for
// future-date exclusion is evaluated in this location.
func (c Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}
