package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRegisterIsIdempotent(t *testing.T) {
	assert.NotPanics(t, func() {
		Register()
		Register()
	})
}

func TestCounters(t *testing.T) {
	before := testutil.ToFloat64(slotQueries.WithLabelValues("end_slots", "ok"))
	IncSlotQuery("end_slots", "ok")
	assert.Equal(t, before+1, testutil.ToFloat64(slotQueries.WithLabelValues("end_slots", "ok")))

	before = testutil.ToFloat64(occupancyWrites.WithLabelValues("create", "conflict"))
	IncOccupancyWrite("create", "conflict")
	assert.Equal(t, before+1, testutil.ToFloat64(occupancyWrites.WithLabelValues("create", "conflict")))

	before = testutil.ToFloat64(httpRequests.WithLabelValues("slots"))
	IncHTTP("slots")
	assert.Equal(t, before+1, testutil.ToFloat64(httpRequests.WithLabelValues("slots")))
}
