// Package config loads smartsched settings from a YAML file and applies
// key/value overrides on top.
package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/udaykr117/smartsched/internal/logging"
)

var ErrUnknownKey = errors.New("unknown config key")

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Reconcile  ReconcileConfig  `yaml:"reconcile"`
	Scheduling SchedulingConfig `yaml:"scheduling"`
	Inbox      InboxConfig      `yaml:"inbox"`
	Logging    LoggingConfig    `yaml:"logging"`
}

type ServerConfig struct {
	Port int `yaml:"port"`
}

type ReconcileConfig struct {
	IntervalSec int `yaml:"interval_sec"`
}

type SchedulingConfig struct {
	// AutoGenerate runs a generation pass whenever new jobs arrive.
	AutoGenerate bool `yaml:"auto_generate"`
	// SkipScheduled leaves jobs that already hold a Scheduled entry out of generation.
	SkipScheduled bool `yaml:"skip_scheduled"`
}

type InboxConfig struct {
	Enabled bool   `yaml:"enabled"`
	Dir     string `yaml:"dir"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

func Default() Config {
	return Config{
		Server:     ServerConfig{Port: 7000},
		Reconcile:  ReconcileConfig{IntervalSec: 5},
		Scheduling: SchedulingConfig{AutoGenerate: true, SkipScheduled: true},
		Inbox:      InboxConfig{Enabled: true},
		Logging:    LoggingConfig{Level: "info"},
	}
}

// Load reads path over the defaults. A missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Server.Port)
	}
	if c.Reconcile.IntervalSec < 1 {
		return fmt.Errorf("reconcile interval must be at least 1 second, got %d", c.Reconcile.IntervalSec)
	}
	return nil
}

// ReconcileSpec is the cron schedule for the status reconciler.
func (c Config) ReconcileSpec() string {
	return fmt.Sprintf("@every %ds", c.Reconcile.IntervalSec)
}

func (c Config) LogLevel() logging.Level {
	return logging.ParseLevel(c.Logging.Level)
}

type setter func(c *Config, value string) error

var setters = map[string]setter{
	"port": func(c *Config, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 65535 {
			return fmt.Errorf("invalid value for port: %s (must be 1-65535)", v)
		}
		c.Server.Port = n
		return nil
	},
	"reconcile-interval": func(c *Config, v string) error {
		n, err := strconv.Atoi(strings.TrimSuffix(v, "s"))
		if err != nil || n < 1 {
			return fmt.Errorf("invalid value for reconcile-interval: %s (must be a positive number of seconds)", v)
		}
		c.Reconcile.IntervalSec = n
		return nil
	},
	"auto-generate": func(c *Config, v string) error {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid value for auto-generate: %s (must be true or false)", v)
		}
		c.Scheduling.AutoGenerate = b
		return nil
	},
	"skip-scheduled": func(c *Config, v string) error {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid value for skip-scheduled: %s (must be true or false)", v)
		}
		c.Scheduling.SkipScheduled = b
		return nil
	},
	"inbox": func(c *Config, v string) error {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid value for inbox: %s (must be true or false)", v)
		}
		c.Inbox.Enabled = b
		return nil
	},
	"log-level": func(c *Config, v string) error {
		switch strings.ToLower(v) {
		case "debug", "info", "warn", "warning", "error":
			c.Logging.Level = strings.ToLower(v)
			return nil
		}
		return fmt.Errorf("invalid value for log-level: %s (must be debug, info, warn or error)", v)
	},
}

// Keys lists the keys accepted by Set, sorted.
func Keys() []string {
	keys := make([]string, 0, len(setters))
	for k := range setters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Set applies one override. Unknown keys fail with ErrUnknownKey.
func (c *Config) Set(key, value string) error {
	set, ok := setters[key]
	if !ok {
		return fmt.Errorf("%w: %s (known keys: %s)", ErrUnknownKey, key, strings.Join(Keys(), ", "))
	}
	return set(c, strings.TrimSpace(value))
}

// Apply sets every override in order, stopping at the first invalid one.
func (c *Config) Apply(overrides map[string]string) error {
	keys := make([]string, 0, len(overrides))
	for k := range overrides {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := c.Set(k, overrides[k]); err != nil {
			return err
		}
	}
	return nil
}
