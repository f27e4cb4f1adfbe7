// Package config loads service configuration from an optional YAML file
// merged with environment variables. Environment values win so deployments
// can override the checked-in defaults without editing the file.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure. Read-only after Load returns.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Cors     CorsConfig     `yaml:"cors"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port string `yaml:"port"`
}

// DatabaseConfig contains Postgres connection settings.
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"-"` // env-only, never in YAML
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"sslmode"`
}

// CorsConfig contains allowed browser origins.
type CorsConfig struct {
	AllowOrigins []string `yaml:"allow_origins"`
}

// DSN assembles the Postgres connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode)
}

// Load reads the YAML file at path (missing file is fine — defaults apply)
// and overlays environment variables.
func Load(path string) (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{Port: "8080"},
		Database: DatabaseConfig{
			Host:     "localhost",
			Port:     "5432",
			User:     "postgres",
			Password: "postgres",
			Name:     "postgres",
			SSLMode:  "disable",
		},
		Cors: CorsConfig{AllowOrigins: []string{"http://localhost:5173", "http://127.0.0.1:5173"}},
	}

	if path != "" {
		raw, err := os.ReadFile(path)
		if err == nil {
			if err := yaml.Unmarshal(raw, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	overlay(&cfg.Server.Port, "PORT")
	overlay(&cfg.Database.Host, "DB_HOST")
	overlay(&cfg.Database.Port, "DB_PORT")
	overlay(&cfg.Database.User, "DB_USER")
	overlay(&cfg.Database.Password, "DB_PASSWORD")
	overlay(&cfg.Database.Name, "DB_NAME")
	overlay(&cfg.Database.SSLMode, "DB_SSLMODE")

	return cfg, nil
}

func overlay(dst *string, env string) {
	if v := os.Getenv(env); v != "" {
		*dst = v
	}
}
