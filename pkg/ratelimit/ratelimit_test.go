// Copyright (c) 2025 Sealbox Authors
// See the file LICENSE for licensing terms.

package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestAllowAfterFailuresWithinWindow(t *testing.T) {
	require := require.New(t)
	l := New(3, time.Minute)
	now := time.Now()

	require.True(l.Allow("acc-1", now))
	l.RecordFailure("acc-1", now)
	l.RecordFailure("acc-1", now)
	require.True(l.Allow("acc-1", now))
	l.RecordFailure("acc-1", now)
	require.False(l.Allow("acc-1", now))
}

func TestWindowExpiresOldFailures(t *testing.T) {
	require := require.New(t)
	l := New(1, time.Minute)
	now := time.Now()

	l.RecordFailure("acc-1", now)
	require.False(l.Allow("acc-1", now))
	require.True(l.Allow("acc-1", now.Add(2*time.Minute)))
}

func TestResetClearsHistory(t *testing.T) {
	require := require.New(t)
	l := New(1, time.Minute)
	now := time.Now()

	l.RecordFailure("acc-1", now)
	require.False(l.Allow("acc-1", now))
	l.Reset("acc-1")
	require.True(l.Allow("acc-1", now))
}
