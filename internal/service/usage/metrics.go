package usage

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Gate decision outcomes.
const (
	outcomeAllowed = "allowed"
	outcomeDenied  = "denied"
	outcomePremium = "premium"
)

var (
	gateDecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "studykit",
			Subsystem: "usage",
			Name:      "gate_decisions_total",
			Help:      "Entitlement checks made before running a metered feature.",
		},
		[]string{"feature", "outcome"},
	)

	recordedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "studykit",
			Subsystem: "usage",
			Name:      "recorded_total",
			Help:      "Successful feature invocations counted against a quota.",
		},
		[]string{"feature"},
	)

	trackingFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "studykit",
			Subsystem: "usage",
			Name:      "tracking_failures_total",
			Help:      "Successful invocations whose usage could not be recorded.",
		},
		[]string{"feature"},
	)
)
