package config

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// WatchRoster loads the roster, calls onUpdate, then polls the file's mtime and calls
// onUpdate again after every change that still validates. Invalid edits are logged and skipped.
func WatchRoster(ctx context.Context, path string, interval time.Duration, logger *zerolog.Logger, onUpdate func(*Roster)) error {
	if path == "" {
		path = "configs/roster.yaml"
	}
	if interval <= 0 {
		interval = 30 * time.Second
	}
	log := zerolog.Nop()
	if logger != nil {
		log = logger.With().Str("component", "roster").Logger()
	}

	r, err := LoadRoster(path)
	if err != nil {
		return err
	}
	if onUpdate != nil {
		onUpdate(r)
	}

	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	lastMod := info.ModTime()

	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				info, err := os.Stat(path)
				if err != nil {
					continue // transient errors
				}
				if !info.ModTime().After(lastMod) {
					continue
				}
				lastMod = info.ModTime()
				r, err := LoadRoster(path)
				if err != nil {
					log.Warn().Err(err).Str("path", path).Msg("roster reload skipped")
					continue
				}
				log.Info().Str("roster", r.String()).Msg("roster reloaded")
				if onUpdate != nil {
					onUpdate(r)
				}
			}
		}
	}()

	return nil
}
