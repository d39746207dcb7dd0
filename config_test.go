package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"unicode/utf8"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udaykr117/smartsched/internal/config"
	"github.com/udaykr117/smartsched/internal/store"
)

func serveFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	flags := pflag.NewFlagSet("serve", pflag.ContinueOnError)
	flags.IntP("port", "p", 7000, "")
	flags.Int("interval", 5, "")
	flags.Bool("auto-generate", true, "")
	flags.String("log-level", "", "")
	flags.String("status", "", "")
	require.NoError(t, flags.Parse(args))
	return flags
}

func TestLoadSettingsLayers(t *testing.T) {
	dataDir := t.TempDir()
	st, err := store.Open(dataDir)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	ctx := context.Background()

	path := filepath.Join(dataDir, configFileName)
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 8000\nreconcile:\n  interval_sec: 10\nlogging:\n  level: warn\n"), 0644))
	require.NoError(t, setConfig(ctx, st, "reconcile-interval", "3"))
	require.NoError(t, setConfig(ctx, st, "skip-scheduled", "false"))

	cfg, err := loadSettings(ctx, path, st, serveFlags(t, "--port", "9100"))
	require.NoError(t, err)
	assert.Equal(t, 9100, cfg.Server.Port, "flag beats file")
	assert.Equal(t, 3, cfg.Reconcile.IntervalSec, "saved key beats file")
	assert.False(t, cfg.Scheduling.SkipScheduled)
	assert.Equal(t, "warn", cfg.Logging.Level, "file beats default")
	assert.True(t, cfg.Scheduling.AutoGenerate, "unset flag keeps lower layers")

	cfg, err = loadSettings(ctx, path, st, serveFlags(t, "--interval", "1", "--status", "Busy"))
	require.NoError(t, err)
	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Equal(t, 1, cfg.Reconcile.IntervalSec)
}

func TestLoadSettingsDefaults(t *testing.T) {
	cfg, err := loadSettings(context.Background(), filepath.Join(t.TempDir(), "missing.yaml"), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
}

func TestLoadSettingsRejectsBadFlag(t *testing.T) {
	_, err := loadSettings(context.Background(), "", nil, serveFlags(t, "--interval", "0"))
	assert.ErrorContains(t, err, "--interval")
}

func TestSetConfigValidates(t *testing.T) {
	st, err := store.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	ctx := context.Background()

	assert.ErrorIs(t, setConfig(ctx, st, "max-retries", "3"), config.ErrUnknownKey)
	assert.Error(t, setConfig(ctx, st, "port", "http"))

	_, err = st.GetConfig(ctx, "port")
	assert.ErrorIs(t, err, store.ErrNotFound, "invalid values are never saved")

	require.NoError(t, setConfig(ctx, st, "port", "7100"))
	v, err := st.GetConfig(ctx, "port")
	require.NoError(t, err)
	assert.Equal(t, "7100", v)
}

func TestConfigPath(t *testing.T) {
	assert.Equal(t, filepath.Join("data", configFileName), configPath("data", ""))
	assert.Equal(t, "/etc/smartsched.yaml", configPath("data", "/etc/smartsched.yaml"))
}

func TestPIDFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), pidFileName)
	require.NoError(t, writePIDFile(path, 7300))

	pid, port, err := readPIDFile(path)
	require.NoError(t, err)
	assert.Equal(t, os.Getpid(), pid)
	assert.Equal(t, 7300, port)
	assert.True(t, processAlive(pid))

	_, _, err = readPIDFile(filepath.Join(t.TempDir(), "missing.pid"))
	assert.True(t, os.IsNotExist(err))
}

func TestGetDataDirFromEnv(t *testing.T) {
	t.Setenv("SMARTSCHED_DATA_DIR", "/var/lib/smartsched")
	dir, err := GetDataDir()
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/smartsched", dir)
}

func TestTruncateCountsRunes(t *testing.T) {
	assert.Equal(t, "Bracket", truncate("Bracket", 10))
	assert.Equal(t, "Schweiß...", truncate("Schweißgerät Süd", 10))
	assert.Equal(t, "車床加工...", truncate("車床加工ステーション", 7))

	got := truncate("Fräsmaschine", 6)
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, "Frä...", got)
}
