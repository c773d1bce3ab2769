package config

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// WatchAssets reloads assets.yaml on change and calls onUpdate with the latest config.
// It performs an initial load before entering the watch loop. An invalid edit
// keeps the previous config and is retried on every tick until it loads.
func WatchAssets(ctx context.Context, path string, interval time.Duration, logger *zerolog.Logger, onUpdate func(*AssetsConfig)) error {
	if path == "" {
		path = "configs/assets.yaml"
	}
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	cfg, err := LoadAssetsConfig(path)
	if err != nil {
		return err
	}
	if onUpdate != nil {
		onUpdate(cfg)
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
				cfg, err := LoadAssetsConfig(path)
				if err != nil {
					logger.Error().Err(err).Str("path", path).Msg("assets config reload rejected")
					continue
				}
				lastMod = info.ModTime()
				if onUpdate != nil {
					onUpdate(cfg)
				}
			}
		}
	}()

	return nil
}
