// Copyright (c) 2025 Sealbox Authors
// See the file LICENSE for licensing terms.

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sealbox/sealbox/internal/api"
	"github.com/sealbox/sealbox/pkg/auth"
	"github.com/sealbox/sealbox/pkg/config"
	"github.com/sealbox/sealbox/pkg/crypto"
	"github.com/sealbox/sealbox/pkg/invite"
	"github.com/sealbox/sealbox/pkg/log"
	"github.com/sealbox/sealbox/pkg/metric"
	"github.com/sealbox/sealbox/pkg/ratelimit"
	"github.com/sealbox/sealbox/pkg/repo"
	"github.com/sealbox/sealbox/pkg/session"
	"github.com/sealbox/sealbox/pkg/storage"
)

func main() {
	cfg, err := config.Parse(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "sealboxd: %v\n", err)
		os.Exit(1)
	}

	logger := log.NewDevelopment("sealboxd")
	if cfg.Env == "production" {
		logger = log.New("sealboxd")
	}
	defer logger.Sync()

	if cfg.Env == "production" && cfg.ServerSecret == "" {
		logger.Error("server-secret is required in production")
		os.Exit(1)
	}

	backend, err := storage.NewBadger(cfg.DataDir)
	if err != nil {
		logger.Error("open storage backend", log.Err(err))
		os.Exit(1)
	}
	defer backend.Close()

	cp := crypto.New()
	accounts := repo.NewAccounts(backend)
	orgs := repo.NewOrgs(cp, backend)
	vaults := repo.NewVaults(cp, backend)
	sessions := session.NewStore(cfg.SessionTTL)
	invites := invite.NewStore()
	metrics := metric.New()

	authSvc := auth.New(auth.Config{
		Provider:     cp,
		Accounts:     accounts,
		Sessions:     sessions,
		Limiter:      ratelimit.New(cfg.RateLimitMax, cfg.RateLimitWindow),
		Metrics:      metrics,
		Log:          logger,
		ServerSecret: []byte(cfg.ServerSecret),
	})

	srv := api.NewServer(api.Config{
		Provider:    cp,
		Accounts:    accounts,
		Orgs:        orgs,
		Vaults:      vaults,
		Sessions:    sessions,
		Auth:        authSvc,
		Invites:     invites,
		Metrics:     metrics,
		Log:         logger,
		Env:         cfg.Env,
		CORSOrigins: cfg.CORSOrigins,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("sealboxd starting", log.String("addr", cfg.Addr), log.String("env", cfg.Env))
	if err := srv.Run(ctx, cfg.Addr); err != nil {
		logger.Error("server stopped", log.Err(err))
		os.Exit(1)
	}
	logger.Info("sealboxd stopped")
}
