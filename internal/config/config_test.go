package config

import (
	"flag"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newFlagSet() *flag.FlagSet {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func TestParseConfig_Defaults(t *testing.T) {
	cfg, err := ParseConfig(newFlagSet(), nil)
	require.NoError(t, err)

	require.Equal(t, "localhost:4001", cfg.SidecarAddr)
	require.Equal(t, 100, cfg.MaxConcurrentWorkItems)
	require.Equal(t, 1, cfg.DeliveryMaxAttempts)
	require.Equal(t, 200*time.Millisecond, cfg.DeliveryBackoff)
	require.Equal(t, 5*time.Second, cfg.DeliveryMaxBackoff)
	require.Empty(t, cfg.DeadLetterDSN)
	require.Equal(t, ":9464", cfg.AdminAddr)
	require.True(t, cfg.OTelEnabled)
	require.Equal(t, slog.LevelInfo, cfg.LogLevel)
}

func TestParseConfig_EnvThenFlags(t *testing.T) {
	t.Setenv("TASKHUB_SIDECAR_ADDR", "sidecar:4001")
	t.Setenv("TASKHUB_DELIVERY_MAX_ATTEMPTS", "4")
	t.Setenv("TASKHUB_LOG_LEVEL", "debug")
	t.Setenv("TASKHUB_DEAD_LETTER_DSN", "memory://")

	cfg, err := ParseConfig(newFlagSet(), []string{"-sidecar-addr", "flag:5000", "-log-level", "warn"})
	require.NoError(t, err)

	require.Equal(t, "flag:5000", cfg.SidecarAddr)
	require.Equal(t, 4, cfg.DeliveryMaxAttempts)
	require.Equal(t, slog.LevelWarn, cfg.LogLevel)
	require.Equal(t, "memory://", cfg.DeadLetterDSN)
}

func TestParseConfig_RejectsBadEnv(t *testing.T) {
	t.Setenv("TASKHUB_DELIVERY_BACKOFF", "soon")

	_, err := ParseConfig(newFlagSet(), nil)
	require.ErrorContains(t, err, "parse env")
}

func TestParseConfig_Validates(t *testing.T) {
	_, err := ParseConfig(newFlagSet(), []string{"-delivery-max-attempts", "0"})
	require.ErrorContains(t, err, "delivery max attempts")

	_, err = ParseConfig(newFlagSet(), []string{"-sidecar-addr", ""})
	require.ErrorContains(t, err, "sidecar address")

	_, err = ParseConfig(newFlagSet(), []string{"-max-concurrent", "-1"})
	require.ErrorContains(t, err, "must not be negative")
}

func TestDeliveryRetry(t *testing.T) {
	cfg := Config{DeliveryMaxAttempts: 3, DeliveryBackoff: time.Second, DeliveryMaxBackoff: 10 * time.Second}
	p := cfg.DeliveryRetry()

	require.Equal(t, 3, p.MaxAttempts)
	require.Equal(t, time.Second, p.InitialBackoff)
	require.Equal(t, 10*time.Second, p.MaxBackoff)
	require.Equal(t, 2.0, p.BackoffMultiplier)
}
