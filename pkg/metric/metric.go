// Copyright (c) 2025 Sealbox Authors
// See the file LICENSE for licensing terms.

// Package metric holds the Prometheus instrumentation for the vault core.
package metric

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds every counter/histogram the core emits.
type Metrics struct {
	registry *prometheus.Registry

	AuthAttempts      *prometheus.CounterVec
	SessionsIssued    prometheus.Counter
	SessionsRevoked   prometheus.Counter
	ContainerRewraps  prometheus.Counter
	ContainerRotates  prometheus.Counter
	InvitesAccepted   prometheus.Counter
	InvitesExpired    prometheus.Counter
	HandshakeDuration prometheus.Histogram
}

// New builds a Metrics instance registered on a fresh registry, so tests
// can construct as many independent instances as they like.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		AuthAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sealbox_auth_attempts_total",
			Help: "Number of createSession attempts by outcome.",
		}, []string{"outcome"}),
		SessionsIssued: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sealbox_sessions_issued_total",
			Help: "Number of sessions issued.",
		}),
		SessionsRevoked: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sealbox_sessions_revoked_total",
			Help: "Number of sessions revoked.",
		}),
		ContainerRewraps: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sealbox_container_rewraps_total",
			Help: "Number of accessor-table updates across all containers.",
		}),
		ContainerRotates: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sealbox_container_rotates_total",
			Help: "Number of data-key rotations across all containers.",
		}),
		InvitesAccepted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sealbox_invites_accepted_total",
			Help: "Number of invites successfully accepted.",
		}),
		InvitesExpired: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sealbox_invites_expired_total",
			Help: "Number of invite accept attempts rejected as expired or replayed.",
		}),
		HandshakeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "sealbox_handshake_duration_seconds",
			Help:    "Time to complete the PAKE handshake in createSession.",
			Buckets: prometheus.DefBuckets,
		}),
	}
	reg.MustRegister(
		m.AuthAttempts, m.SessionsIssued, m.SessionsRevoked,
		m.ContainerRewraps, m.ContainerRotates,
		m.InvitesAccepted, m.InvitesExpired, m.HandshakeDuration,
	)
	return m
}

// Gatherer exposes the underlying registry for a /metrics handler.
func (m *Metrics) Gatherer() prometheus.Gatherer { return m.registry }
