// Copyright (c) 2025 Sealbox Authors
// See the file LICENSE for licensing terms.

// Package config collects cmd/sealboxd's runtime configuration: flags with
// environment-variable overrides, following the flag-based style the
// daemon entrypoints in the retrieval pack use (no separate config-file
// format or library — the surface is small enough that flags suffice).
package config

import (
	"flag"
	"os"
	"strconv"
	"time"
)

// Config is every tunable cmd/sealboxd needs at startup.
type Config struct {
	Addr          string
	Env           string // "development" or "production"
	DataDir       string // badger storage path; "" selects in-memory
	LogLevel      string
	SessionTTL    time.Duration
	RateLimitMax  int
	RateLimitWindow time.Duration
	CORSOrigins   []string
	ServerSecret  string // seeds simulated-auth HMAC; required in production
}

// Parse builds a Config from command-line flags, with SEALBOX_*
// environment variables overriding the flag defaults before parsing so
// either mechanism works in a container deployment.
func Parse(args []string) (*Config, error) {
	fs := flag.NewFlagSet("sealboxd", flag.ContinueOnError)

	addr := fs.String("addr", envOr("SEALBOX_ADDR", ":8443"), "HTTP listen address")
	env := fs.String("env", envOr("SEALBOX_ENV", "development"), "environment: development or production")
	dataDir := fs.String("data-dir", envOr("SEALBOX_DATA_DIR", ""), "badger data directory; empty runs in-memory")
	logLevel := fs.String("log-level", envOr("SEALBOX_LOG_LEVEL", "info"), "log level")
	sessionTTL := fs.Duration("session-ttl", envDurationOr("SEALBOX_SESSION_TTL", 12*time.Hour), "session lifetime")
	rateLimitMax := fs.Int("rate-limit-max", envIntOr("SEALBOX_RATE_LIMIT_MAX", 5), "failed auth attempts allowed per window")
	rateLimitWindow := fs.Duration("rate-limit-window", envDurationOr("SEALBOX_RATE_LIMIT_WINDOW", 15*time.Minute), "rate-limit sliding window")
	serverSecret := fs.String("server-secret", os.Getenv("SEALBOX_SERVER_SECRET"), "HMAC seed for simulated initAuth responses")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	return &Config{
		Addr:            *addr,
		Env:             *env,
		DataDir:         *dataDir,
		LogLevel:        *logLevel,
		SessionTTL:      *sessionTTL,
		RateLimitMax:    *rateLimitMax,
		RateLimitWindow: *rateLimitWindow,
		CORSOrigins:     []string{"http://localhost:3000", "http://localhost:3001"},
		ServerSecret:    *serverSecret,
	}, nil
}

func envOr(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
