package cli

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"

	"github.com/floodgatehq/floodgate/internal/config"
	"github.com/floodgatehq/floodgate/internal/store"
)

// dataDir holds the --data-dir persistent flag value (set on root command).
var dataDir string

// resolveDataDir returns the data directory from the --data-dir flag,
// FLOODGATE_DATA_DIR env var, or ~/.floodgate as fallback.
func resolveDataDir() string {
	if dataDir != "" {
		return dataDir
	}
	if envDir := os.Getenv("FLOODGATE_DATA_DIR"); envDir != "" {
		return envDir
	}
	home, _ := os.UserHomeDir()
	return home + "/.floodgate"
}

// loadConfig reads the YAML config file if one exists, falling back to the
// built-in defaults otherwise.
func loadConfig() (*config.YAMLConfig, error) {
	path := cfgFile
	if path == "" {
		if _, err := os.Stat("floodgate.yaml"); err == nil {
			path = "floodgate.yaml"
		}
	}
	if path == "" {
		return config.DefaultYAMLConfig(), nil
	}
	return config.LoadYAMLConfig(path)
}

// openStore opens the backing store described by cfg, defaulting the SQLite
// data directory from the flags and environment.
func openStore(cfg *config.YAMLConfig) (*store.Store, error) {
	sc := store.Config{
		Driver:  cfg.Store.Driver,
		DataDir: cfg.Store.DataDir,
		DSN:     cfg.Store.DSN,
	}
	if sc.Driver == "" {
		sc.Driver = "sqlite"
	}
	if sc.Driver == "sqlite" && sc.DataDir == "" {
		sc.DataDir = resolveDataDir()
	}
	return store.Open(sc)
}

// newLogger builds a slog.Logger per the logging config. Dev mode forces
// debug level with the colorized tint handler.
func newLogger(cfg config.LoggingConfig, dev bool) *slog.Logger {
	if dev {
		return slog.New(tint.NewHandler(os.Stderr, &tint.Options{
			Level:      slog.LevelDebug,
			TimeFormat: time.Kitchen,
		}))
	}

	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

// parseDuration parses a config duration string, returning fallback when the
// string is empty or malformed.
func parseDuration(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: invalid duration %q, using %s\n", s, fallback)
		return fallback
	}
	return d
}
