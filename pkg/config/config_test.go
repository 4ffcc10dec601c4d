// Copyright (c) 2025 Sealbox Authors
// See the file LICENSE for licensing terms.

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseDefaults(t *testing.T) {
	require := require.New(t)
	cfg, err := Parse(nil)
	require.NoError(err)
	require.Equal(":8443", cfg.Addr)
	require.Equal("development", cfg.Env)
	require.Equal(12*time.Hour, cfg.SessionTTL)
}

func TestParseOverridesFromFlags(t *testing.T) {
	require := require.New(t)
	cfg, err := Parse([]string{"-addr", ":9000", "-env", "production", "-rate-limit-max", "3"})
	require.NoError(err)
	require.Equal(":9000", cfg.Addr)
	require.Equal("production", cfg.Env)
	require.Equal(3, cfg.RateLimitMax)
}

func TestParseFromEnv(t *testing.T) {
	require := require.New(t)
	t.Setenv("SEALBOX_ADDR", ":7000")
	cfg, err := Parse(nil)
	require.NoError(err)
	require.Equal(":7000", cfg.Addr)
}
