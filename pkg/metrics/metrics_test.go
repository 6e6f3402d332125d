package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCounters(t *testing.T) {
	Register()
	Register()

	before := testutil.ToFloat64(bookingDecision.WithLabelValues("waitlisted"))
	IncBookingDecision("waitlisted")
	assert.Equal(t, before+1, testutil.ToFloat64(bookingDecision.WithLabelValues("waitlisted")))

	before = testutil.ToFloat64(waitlistTransition.WithLabelValues("accept", "precondition"))
	IncWaitlistTransition("accept", "precondition")
	assert.Equal(t, before+1, testutil.ToFloat64(waitlistTransition.WithLabelValues("accept", "precondition")))

	before = testutil.ToFloat64(shiftDecision.WithLabelValues("overlap"))
	IncShiftDecision("overlap")
	assert.Equal(t, before+1, testutil.ToFloat64(shiftDecision.WithLabelValues("overlap")))

	before = testutil.ToFloat64(conflicts)
	IncConflict()
	assert.Equal(t, before+1, testutil.ToFloat64(conflicts))
}
