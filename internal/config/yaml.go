// Package config loads the floodgate YAML configuration file and provides
// defaults for everything the file leaves out.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// YAMLConfig represents the top-level floodgate configuration file.
type YAMLConfig struct {
	Server  ServerConfig  `yaml:"server"`
	Auth    AuthConfig    `yaml:"auth"`
	Store   StoreConfig   `yaml:"store"`
	Logging LoggingConfig `yaml:"logging"`
}

// ServerConfig controls the HTTP server behavior.
type ServerConfig struct {
	Host            string     `yaml:"host"`
	Port            int        `yaml:"port"`
	ShutdownTimeout string     `yaml:"shutdown_timeout"`
	CORS            CORSConfig `yaml:"cors"`
}

// CORSConfig controls cross-origin resource sharing settings.
type CORSConfig struct {
	Origins []string `yaml:"origins"`
}

// AuthConfig controls authentication settings.
type AuthConfig struct {
	// JWTSecret signs access and refresh tokens. Required in production;
	// `serve --dev` generates an ephemeral one.
	JWTSecret     string `yaml:"jwt_secret"`
	AccessExpiry  string `yaml:"access_expiry"`
	RefreshExpiry string `yaml:"refresh_expiry"`
	// RateLimit is the per-IP requests-per-minute ceiling on the
	// register/login/refresh endpoints. Zero disables it.
	RateLimit int `yaml:"rate_limit"`
}

// StoreConfig controls the backing database.
type StoreConfig struct {
	// Driver is "sqlite" or "postgres".
	Driver string `yaml:"driver"`
	// DataDir holds the sqlite database file. Ignored for postgres.
	DataDir string `yaml:"data_dir"`
	// DSN is the postgres connection string. Ignored for sqlite.
	DSN string `yaml:"dsn"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// LoadYAMLConfig reads and parses a YAML configuration file. Environment
// variables referenced as ${VAR_NAME} in the file are expanded before parsing.
func LoadYAMLConfig(path string) (*YAMLConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	// Expand environment variables: ${VAR_NAME}
	content := os.ExpandEnv(string(data))

	cfg := DefaultYAMLConfig()
	if err := yaml.Unmarshal([]byte(content), cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}
	return cfg, nil
}

// DefaultYAMLConfig returns a YAMLConfig pre-filled with sensible defaults.
func DefaultYAMLConfig() *YAMLConfig {
	return &YAMLConfig{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ShutdownTimeout: "30s",
			CORS: CORSConfig{
				Origins: []string{"*"},
			},
		},
		Auth: AuthConfig{
			AccessExpiry:  "24h",
			RefreshExpiry: "168h",
			RateLimit:     30,
		},
		Store: StoreConfig{
			Driver:  "sqlite",
			DataDir: "",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// WriteDefaultConfig writes the default configuration to a YAML file.
func WriteDefaultConfig(path string) error {
	cfg := DefaultYAMLConfig()
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}
