// Package config loads the command-line tool's settings from GRADSTATE_*
// environment variables and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/born-ml/gradstate/internal/optim"
)

// Environment variable names.
const (
	EnvUpdater  = "GRADSTATE_UPDATER"
	EnvLR       = "GRADSTATE_LR"
	EnvMomentum = "GRADSTATE_MOMENTUM"
	EnvSteps    = "GRADSTATE_STEPS"
	EnvScale    = "GRADSTATE_SCALE"
	EnvDBDriver = "GRADSTATE_DB_DRIVER"
	EnvDB       = "GRADSTATE_DB"
	EnvPort     = "GRADSTATE_PORT"
	EnvLogLevel = "GRADSTATE_LOG_LEVEL"
	EnvSeed     = "GRADSTATE_SEED"
)

// DefaultEnvFile is read by Load when no file is named.
const DefaultEnvFile = ".env"

// Config holds the settings shared by the gradstate commands.
type Config struct {
	Updater  string     // Update rule name (default: nesterovs)
	LR       float32    // Learning rate (default: 0.01)
	Momentum float32    // Momentum coefficient (default: 0.9)
	Steps    int        // Synthetic steps to run (default: 1)
	Scale    int        // Divides channel and unit counts (default: 1)
	DBDriver string     // "sqlite3" or "mysql" (default: sqlite3)
	DB       string     // Checkpoint path or DSN; empty disables saving
	Port     int        // Monitor port; 0 picks a free one
	LogLevel slog.Level // Minimum log level (default: info)
	Seed     int64      // Seed for synthetic gradients (default: 42)
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Updater:  "nesterovs",
		LR:       0.01,
		Momentum: 0.9,
		Steps:    1,
		Scale:    1,
		DBDriver: "sqlite3",
		LogLevel: slog.LevelInfo,
		Seed:     42,
	}
}

// Load starts from Default, applies the variables in envFile and then the
// process environment. Process variables win over the file.
//
// An empty envFile reads DefaultEnvFile if it exists. A named file must
// exist.
func Load(envFile string) (Config, error) {
	name := envFile
	if name == "" {
		name = DefaultEnvFile
	}

	fileVars, err := godotenv.Read(name)
	if err != nil {
		if envFile != "" || !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("config: read %s: %w", name, err)
		}
		fileVars = map[string]string{}
	}

	lookup := func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := fileVars[key]
		return v, ok
	}

	c := Default()
	var errs []error
	if v, ok := lookup(EnvUpdater); ok {
		c.Updater = v
	}
	if v, ok := lookup(EnvLR); ok {
		c.LR, err = parseFloat32(v)
		errs = append(errs, wrap(EnvLR, err))
	}
	if v, ok := lookup(EnvMomentum); ok {
		c.Momentum, err = parseFloat32(v)
		errs = append(errs, wrap(EnvMomentum, err))
	}
	if v, ok := lookup(EnvSteps); ok {
		c.Steps, err = strconv.Atoi(v)
		errs = append(errs, wrap(EnvSteps, err))
	}
	if v, ok := lookup(EnvScale); ok {
		c.Scale, err = strconv.Atoi(v)
		errs = append(errs, wrap(EnvScale, err))
	}
	if v, ok := lookup(EnvDBDriver); ok {
		c.DBDriver = v
	}
	if v, ok := lookup(EnvDB); ok {
		c.DB = v
	}
	if v, ok := lookup(EnvPort); ok {
		c.Port, err = strconv.Atoi(v)
		errs = append(errs, wrap(EnvPort, err))
	}
	if v, ok := lookup(EnvLogLevel); ok {
		errs = append(errs, wrap(EnvLogLevel, c.LogLevel.UnmarshalText([]byte(v))))
	}
	if v, ok := lookup(EnvSeed); ok {
		c.Seed, err = strconv.ParseInt(v, 10, 64)
		errs = append(errs, wrap(EnvSeed, err))
	}

	if err := errors.Join(errs...); err != nil {
		return Config{}, err
	}
	return c, c.Validate()
}

// Validate checks value ranges.
func (c Config) Validate() error {
	if _, err := optim.ParseKind(c.Updater); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	switch {
	case c.LR <= 0:
		return fmt.Errorf("config: learning rate must be positive, got %v", c.LR)
	case c.Momentum < 0 || c.Momentum >= 1:
		return fmt.Errorf("config: momentum must be in [0, 1), got %v", c.Momentum)
	case c.Steps < 0:
		return fmt.Errorf("config: steps must not be negative, got %d", c.Steps)
	case c.Scale < 1:
		return fmt.Errorf("config: scale must be at least 1, got %d", c.Scale)
	case c.Port < 0 || c.Port > 65535:
		return fmt.Errorf("config: invalid port %d", c.Port)
	}
	switch c.DBDriver {
	case "sqlite3", "mysql":
	default:
		return fmt.Errorf("config: unsupported database driver %q", c.DBDriver)
	}
	return nil
}

// OptimConfig converts the settings to an updater configuration.
func (c Config) OptimConfig() (optim.Config, error) {
	kind, err := optim.ParseKind(c.Updater)
	if err != nil {
		return optim.Config{}, fmt.Errorf("config: %w", err)
	}
	return optim.Config{Updater: kind, LR: c.LR, Momentum: c.Momentum}, nil
}

// Logger returns a text logger writing to w at the configured level.
func (c Config) Logger(w io.Writer) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: c.LogLevel}))
}

func parseFloat32(s string) (float32, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 32)
	return float32(f), err
}

func wrap(key string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("config: %s: %w", key, err)
}
