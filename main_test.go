package litepool

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseConfig_FlagsOverrideFile(t *testing.T) {
	path := writeFile(t, t.TempDir(), "litepool.yaml", `
workers: 8
sleep_delay: 2s
db_path: access.db
`)

	cfg, err := parseConfig([]string{"-config", path, "-sleep-delay", "0", "-db", ""})
	require.NoError(t, err)

	// explicit zero values still win over the file
	require.Equal(t, time.Duration(0), cfg.SleepDelay)
	require.Equal(t, "", cfg.DBPath)

	// flags that were not given leave the file values alone
	require.Equal(t, uint(8), cfg.Workers)
	require.Equal(t, DefaultConfig().Addr, cfg.Addr)
}

func TestParseConfig_Defaults(t *testing.T) {
	cfg, err := parseConfig(nil)
	require.NoError(t, err)
	require.Equal(t, DefaultConfig(), cfg)

	cfg, err = parseConfig([]string{"-workers", "3", "-log-level", "debug"})
	require.NoError(t, err)
	require.Equal(t, uint(3), cfg.Workers)
	require.Equal(t, "debug", cfg.LogLevel)
}

func TestParseConfig_Invalid(t *testing.T) {
	_, err := parseConfig([]string{"-workers", "0"})
	require.ErrorIs(t, err, ErrInvalidConfig)

	_, err = parseConfig([]string{"-no-such-flag"})
	require.Error(t, err)
}
