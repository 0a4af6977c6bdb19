// Package metrics registers the domain Prometheus collectors. HTTP request
// metrics come from the echoprometheus middleware wired in the router.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "climatrack"

// LoginAttemptsTotal counts login attempts.
// Labels:
//   - result: "success", "failure" or "blocked"
var LoginAttemptsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "login_attempts_total",
		Help:      "Total number of login attempts by result.",
	},
	[]string{"result"},
)

// PasswordResetsTotal counts password reset flow events.
// Labels:
//   - stage: "requested", "consumed"
//   - result: "ok", "unknown_email", "invalid", "expired", "rejected", "error"
var PasswordResetsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "password_resets_total",
		Help:      "Password reset requests and consumptions by result.",
	},
	[]string{"stage", "result"},
)

// NotificationsTotal counts reset notifications handed to the notifier.
var NotificationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notifications_total",
		Help:      "Notifications published, by channel and result.",
	},
	[]string{"channel", "result"},
)

// RateLimitedTotal counts requests rejected by the rate limiter, by route.
var RateLimitedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rate_limited_total",
		Help:      "Requests rejected by the rate limiter.",
	},
	[]string{"route"},
)

// SweptRowsTotal counts rows removed by the background sweeper.
var SweptRowsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "swept_rows_total",
		Help:      "Rows deleted by the periodic sweeper, by table.",
	},
	[]string{"table"},
)
