// wlwin opens an empty toplevel window and keeps it responsive until
// the compositor asks for it to be closed or the process is
// interrupted.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"time"

	"deedles.dev/wlwin/config"
	"deedles.dev/wlwin/internal/debug"
	"deedles.dev/wlwin/internal/logging"
	"deedles.dev/wlwin/window"
	"deedles.dev/wlwin/xdg"
	"github.com/rs/zerolog"
)

func loadConfig(path, title, appID string, timeout time.Duration) (config.Config, error) {
	cfg := config.Default()
	if path != "" {
		c, err := config.Load(path)
		if err != nil {
			return cfg, err
		}
		cfg = c
	}

	if title != "" {
		cfg.Title = title
	}
	if appID != "" {
		cfg.AppID = appID
	}
	if timeout != 0 {
		cfg.RoundTripTimeout = timeout
	}
	return cfg, cfg.Validate()
}

func run(ctx context.Context, logger zerolog.Logger, cfg config.Config) error {
	opts := append(
		cfg.Options(),
		window.WithLogger(logger),
		window.WithResizeHandler(func(w, h int32, states []xdg.ToplevelState) {
			logger.Info().Int32("width", w).Int32("height", h).Msg("resize suggested")
		}),
	)

	s := window.New(opts...)
	defer func() {
		if err := s.Cleanup(); err != nil {
			logger.Error().Err(err).Msg("cleanup")
		}
	}()

	err := s.Init(ctx)
	if err != nil {
		return fmt.Errorf("init: %w", err)
	}

	tick := time.NewTicker(time.Second / 60)
	defer tick.Stop()

	for !s.ShouldQuit() {
		select {
		case <-ctx.Done():
			return nil
		case <-tick.C:
			err := s.PollEvents(ctx)
			if err != nil {
				if errors.Is(err, context.Canceled) {
					return nil
				}
				return fmt.Errorf("poll events: %w", err)
			}
		}
	}

	logger.Info().Msg("window closed")
	return nil
}

func main() {
	configPath := flag.String("config", "", "path to a TOML or YAML config file")
	title := flag.String("title", "", "window title (overrides config)")
	appID := flag.String("app-id", "", "application ID (overrides config)")
	timeout := flag.Duration("timeout", 0, "round trip timeout, 0 for none (overrides config)")
	flag.Parse()

	cfg, err := loadConfig(*configPath, *title, *appID, *timeout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(2)
	}

	logger := logging.New("wlwin", cfg.LogLevel)
	debug.SetLogger(logger.Level(zerolog.DebugLevel))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	err = run(ctx, logger, cfg)
	if err != nil {
		logger.Error().Err(err).Msg("wlwin failed")
		os.Exit(1)
	}
}
