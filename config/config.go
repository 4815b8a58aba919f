// Package config loads the settings of the wlwin command from TOML or
// YAML files.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"deedles.dev/wlwin/internal/logging"
	"deedles.dev/wlwin/window"
)

type Config struct {
	// Title and AppID are set on the toplevel.
	Title string
	AppID string

	// Display is the name or path of the Wayland socket. If empty, the
	// environment decides.
	Display string

	// RoundTripTimeout bounds each round trip. Zero means no bound.
	RoundTripTimeout time.Duration

	LogLevel zerolog.Level
}

func Default() Config {
	return Config{
		Title:    window.DefaultTitle,
		AppID:    window.DefaultAppID,
		LogLevel: zerolog.InfoLevel,
	}
}

// fileConfig is the on-disk representation. Pointers distinguish
// missing keys from empty values.
type fileConfig struct {
	Title            *string `toml:"title" yaml:"title"`
	AppID            *string `toml:"app_id" yaml:"app_id"`
	Display          *string `toml:"display" yaml:"display"`
	RoundTripTimeout *string `toml:"round_trip_timeout" yaml:"round_trip_timeout"`
	LogLevel         *string `toml:"log_level" yaml:"log_level"`
}

// Load reads the file at path over the defaults. The format is chosen
// by the file's extension.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %v: %w", path, err)
	}

	var raw fileConfig
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		_, err = toml.Decode(string(data), &raw)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &raw)
	default:
		return Config{}, fmt.Errorf("unsupported config format %q", ext)
	}
	if err != nil {
		return Config{}, fmt.Errorf("parse config %v: %w", path, err)
	}

	cfg, err := raw.apply(Default())
	if err != nil {
		return Config{}, fmt.Errorf("config %v: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config %v: %w", path, err)
	}
	return cfg, nil
}

func (raw fileConfig) apply(cfg Config) (Config, error) {
	if raw.Title != nil {
		cfg.Title = *raw.Title
	}
	if raw.AppID != nil {
		cfg.AppID = *raw.AppID
	}
	if raw.Display != nil {
		cfg.Display = strings.TrimSpace(*raw.Display)
	}
	if raw.RoundTripTimeout != nil {
		d, err := time.ParseDuration(strings.TrimSpace(*raw.RoundTripTimeout))
		if err != nil {
			return cfg, fmt.Errorf("parse round_trip_timeout: %w", err)
		}
		cfg.RoundTripTimeout = d
	}
	if raw.LogLevel != nil {
		level, err := logging.ParseLevel(strings.TrimSpace(*raw.LogLevel))
		if err != nil {
			return cfg, fmt.Errorf("parse log_level: %w", err)
		}
		cfg.LogLevel = level
	}
	return cfg, nil
}

func (cfg Config) Validate() error {
	var errs []error
	if cfg.Title == "" {
		errs = append(errs, errors.New("title must not be empty"))
	}
	if cfg.AppID == "" {
		errs = append(errs, errors.New("app_id must not be empty"))
	}
	if cfg.RoundTripTimeout < 0 {
		errs = append(errs, errors.New("round_trip_timeout must not be negative"))
	}
	return errors.Join(errs...)
}

// Options converts cfg into options for window.New.
func (cfg Config) Options() []window.Option {
	opts := []window.Option{
		window.WithTitle(cfg.Title),
		window.WithAppID(cfg.AppID),
		window.WithRoundTripTimeout(cfg.RoundTripTimeout),
	}
	if cfg.Display != "" {
		opts = append(opts, window.WithSocket(cfg.Display))
	}
	return opts
}
