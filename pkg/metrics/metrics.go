package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "daycare"

var (
	once sync.Once

	shiftDecision = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "shift_decision_total",
			Help:      "Count of proposed shifts by outcome (accepted or rejection kind).",
		},
		[]string{"outcome"},
	)

	bookingDecision = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "booking_decision_total",
			Help:      "Count of proposed bookings by outcome (admitted, waitlisted or rejection kind).",
		},
		[]string{"outcome"},
	)

	waitlistTransition = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "waitlist_transition_total",
			Help:      "Count of waitlist actions by action and result.",
		},
		[]string{"action", "result"},
	)

	conflicts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tx_conflict_total",
			Help:      "Count of requests that failed to obtain a lock or lost a serialization race.",
		},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(shiftDecision, bookingDecision, waitlistTransition, conflicts)
	})
}

func IncShiftDecision(outcome string) {
	shiftDecision.WithLabelValues(outcome).Inc()
}

func IncBookingDecision(outcome string) {
	bookingDecision.WithLabelValues(outcome).Inc()
}

func IncWaitlistTransition(action, result string) {
	waitlistTransition.WithLabelValues(action, result).Inc()
}

func IncConflict() {
	conflicts.Inc()
}
