package auth

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// gateDecisions counts authorization gate outcomes by mode.
	gateDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "conduit_auth_gate_decisions_total",
		Help: "Total number of authorization gate decisions",
	}, []string{"mode", "outcome", "reason"})

	// loginAttempts counts logins by result.
	loginAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "conduit_auth_login_attempts_total",
		Help: "Total number of login attempts",
	}, []string{"result"})

	// slugCollisions counts slug unique index hits on article insert.
	slugCollisions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "conduit_auth_slug_collisions_total",
		Help: "Total number of article slug collisions detected at insert",
	})
)

func tokenErrorReason(err error) string {
	switch {
	case err == nil:
		return "none"
	case IsTokenExpiredError(err):
		return "expired"
	case IsSignatureInvalidError(err):
		return "signature"
	case IsMalformedError(err):
		return "malformed"
	default:
		return "other"
	}
}
