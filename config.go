package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/pflag"

	"github.com/udaykr117/smartsched/internal/config"
	"github.com/udaykr117/smartsched/internal/store"
)

// flagKeys maps command flags onto config keys.
var flagKeys = map[string]string{
	"port":          "port",
	"interval":      "reconcile-interval",
	"log-level":     "log-level",
	"auto-generate": "auto-generate",
}

// ConfigStore is the persisted key/value override table.
type ConfigStore interface {
	GetAllConfig(ctx context.Context) (map[string]string, error)
}

// loadSettings resolves the effective configuration: defaults, then the YAML
// file, then keys saved with `config set`, then flags given on the command line.
func loadSettings(ctx context.Context, path string, overrides ConfigStore, flags *pflag.FlagSet) (config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, err
	}
	if overrides != nil {
		saved, err := overrides.GetAllConfig(ctx)
		if err != nil {
			return config.Config{}, err
		}
		if err := cfg.Apply(saved); err != nil {
			return config.Config{}, fmt.Errorf("saved config: %w", err)
		}
	}
	if flags != nil {
		if err := applyFlags(&cfg, flags); err != nil {
			return config.Config{}, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func applyFlags(cfg *config.Config, flags *pflag.FlagSet) error {
	var firstErr error
	flags.Visit(func(f *pflag.Flag) {
		key, ok := flagKeys[f.Name]
		if !ok || firstErr != nil {
			return
		}
		if err := cfg.Set(key, f.Value.String()); err != nil {
			firstErr = fmt.Errorf("--%s: %w", f.Name, err)
		}
	})
	return firstErr
}

func configPath(dataDir, flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	return filepath.Join(dataDir, configFileName)
}

// setConfig validates key and value before persisting them.
func setConfig(ctx context.Context, st *store.Store, key, value string) error {
	check := config.Default()
	if err := check.Set(key, value); err != nil {
		return err
	}
	return st.SetConfig(ctx, key, value)
}
