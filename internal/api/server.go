// Copyright (c) 2025 Sealbox Authors
// See the file LICENSE for licensing terms.

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sealbox/sealbox/pkg/auth"
	"github.com/sealbox/sealbox/pkg/crypto"
	"github.com/sealbox/sealbox/pkg/invite"
	"github.com/sealbox/sealbox/pkg/log"
	"github.com/sealbox/sealbox/pkg/metric"
	"github.com/sealbox/sealbox/pkg/repo"
	"github.com/sealbox/sealbox/pkg/session"
)

// Config collects Server's dependencies, analogous to auth.Config: built
// once at startup in cmd/sealboxd and passed in, never reached for via a
// package-level global (spec §9 "no monkey-patching").
type Config struct {
	Provider    crypto.Provider
	Accounts    *repo.Accounts
	Orgs        *repo.Orgs
	Vaults      *repo.Vaults
	Sessions    *session.Store
	Auth        *auth.Service
	Invites     *invite.Store
	Metrics     *metric.Metrics
	Log         log.Logger
	Env         string
	CORSOrigins []string
}

// Server wires every handler group onto a gin.Engine and exposes the
// external API surface named in spec §6.
type Server struct {
	engine *gin.Engine

	cp       crypto.Provider
	accounts *repo.Accounts
	orgsRepo *repo.Orgs
	vaults   *repo.Vaults
	sessions *session.Store
	auth     *auth.Service
	invites  *invite.Store
	metrics  *metric.Metrics
	log      log.Logger
	env      string

	registry      *liveRegistry
	verifications *verificationStore
}

// NewServer builds a Server and registers every route.
func NewServer(cfg Config) *Server {
	l := cfg.Log
	if l == nil {
		l = log.NoOp()
	}
	s := &Server{
		cp:            cfg.Provider,
		accounts:      cfg.Accounts,
		orgsRepo:      cfg.Orgs,
		vaults:        cfg.Vaults,
		sessions:      cfg.Sessions,
		auth:          cfg.Auth,
		invites:       cfg.Invites,
		metrics:       cfg.Metrics,
		log:           l,
		env:           cfg.Env,
		registry:      newLiveRegistry(),
		verifications: newVerificationStore(),
	}

	if s.env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery(), s.requestLogger())

	corsCfg := cors.DefaultConfig()
	if len(cfg.CORSOrigins) > 0 {
		corsCfg.AllowOrigins = cfg.CORSOrigins
	} else {
		corsCfg.AllowOrigins = []string{"http://localhost:3000"}
	}
	corsCfg.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsCfg.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}
	engine.Use(cors.New(corsCfg))

	engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if s.metrics != nil {
		engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.metrics.Gatherer(), promhttp.HandlerOpts{})))
	}

	s.engine = engine
	s.routes()
	return s
}

// requestLogger mirrors the teacher's structured-logging middleware style:
// one Info line per request with method/path/status/latency.
func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Info("request",
			log.String("method", c.Request.Method),
			log.String("path", c.Request.URL.Path),
			log.Int("status", c.Writer.Status()),
			log.String("latency", time.Since(start).String()),
		)
	}
}

func (s *Server) routes() {
	authGroup := s.engine.Group("/auth")
	authGroup.POST("/verify-email", s.handleVerifyEmail)
	authGroup.POST("/init", s.handleInitAuth)
	authGroup.POST("/update", s.requireSession(), s.handleUpdateAuth)

	s.engine.POST("/sessions", s.handleCreateSession)
	s.engine.DELETE("/sessions/:id", s.requireSession(), s.handleRevokeSession)

	accounts := s.engine.Group("/accounts")
	accounts.POST("", s.handleCreateAccount)
	accounts.GET("/:id", s.requireSession(), s.handleGetAccount)
	accounts.PUT("/:id", s.requireSession(), s.handleUpdateAccount)
	accounts.POST("/recover", s.handleRecoverAccount)

	vaults := s.engine.Group("/vaults")
	vaults.Use(s.requireSession())
	vaults.POST("", s.handleCreateVault)
	vaults.GET("/:id", s.handleGetVault)
	vaults.PUT("/:id", s.handleUpdateVault)
	vaults.DELETE("/:id", s.handleDeleteVault)
	vaults.POST("/:id/accessors", s.handleUpdateVaultAccessors)

	orgs := s.engine.Group("/orgs")
	orgs.Use(s.requireSession())
	orgs.POST("", s.handleCreateOrg)
	orgs.GET("/:id/members", s.handleListMembers)
	orgs.DELETE("/:id/members/:memberId", s.handleRemoveMember)

	invites := s.engine.Group("/invites")
	invites.GET("/:id", s.requireSession(), s.handleGetInvite)
	invites.POST("/:id/accept", s.handleAcceptInvite)
	invites.POST("", s.requireSession(), s.handleCreateInvite)
}

// Handler returns the underlying http.Handler, for httptest or a custom
// http.Server wrapper.
func (s *Server) Handler() http.Handler { return s.engine }

// Run starts an http.Server on addr and blocks until ctx is cancelled,
// then shuts down gracefully, the way cmd/adxd's node lifecycle does.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.engine}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("http server listening", log.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.log.Info("http server shutting down")
	return srv.Shutdown(shutdownCtx)
}
