// Package metrics holds the Prometheus collectors for the auth core.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "tenant_auth"

var (
	LoginTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "login_total",
		Help:      "Login attempts by principal kind and result",
	}, []string{"kind", "result"})

	RefreshTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "refresh_total",
		Help:      "Refresh attempts by result",
	}, []string{"result"})

	TokenVerifyFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "token_verify_failures_total",
		Help:      "Bearer token verification failures by reason",
	}, []string{"reason"})

	AuthorizationDenied = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "authorization_denied_total",
		Help:      "Tenant or owner authorization denials by check",
	}, []string{"check"})

	DecryptFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "field_decrypt_failures_total",
		Help:      "Encrypted field reads that failed authentication",
	})

	ActionTokens = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "action_tokens_total",
		Help:      "Action token operations by purpose and outcome",
	}, []string{"purpose", "outcome"})

	RateLimited = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ratelimit_exceeded_total",
		Help:      "Requests rejected by the per-client rate limiter",
	}, []string{"limit_type"})

	EventsDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "security_events_dropped_total",
		Help:      "Security events a slow subscriber missed, by event type",
	}, []string{"type"})
)
