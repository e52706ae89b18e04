package client

import (
	"context"
	"net/http"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cartable-app/cartable/internal/monitoring"
)

func TestMetrics_ObserveDataCall(t *testing.T) {
	m := monitoring.NewMetrics(prometheus.NewRegistry())

	var inFlight float64
	mux := http.NewServeMux()
	mux.HandleFunc("/E/101/emploidutemps.awp", func(w http.ResponseWriter, r *http.Request) {
		inFlight = testutil.ToFloat64(m.GateInFlight)
		w.Write([]byte(`{"code":200,"token":"tok-rotated","data":[]}`))
	})

	c := newTestClient(t, mux, WithMetrics(m))
	authenticate(c, studentAccount())

	entries, err := c.GetSchedule(context.Background(), "2025-01-06", "2025-01-10")
	require.NoError(t, err)
	assert.Empty(t, entries)

	got := testutil.ToFloat64(m.UpstreamRequests.WithLabelValues("/E/101/emploidutemps.awp", "200"))
	assert.Equal(t, float64(1), got)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.TokenRotations))

	// The gauge holds the slot for the duration of the call, then drops back.
	assert.Equal(t, float64(1), inFlight)
	assert.Zero(t, testutil.ToFloat64(m.GateInFlight))
}

func TestMetrics_ObserveUpstreamFailure(t *testing.T) {
	m := monitoring.NewMetrics(prometheus.NewRegistry())

	mux := http.NewServeMux()
	mux.HandleFunc("/E/101/emploidutemps.awp", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code":520}`))
	})

	c := newTestClient(t, mux, WithMetrics(m))
	authenticate(c, studentAccount())

	_, err := c.GetSchedule(context.Background(), "2025-01-06", "2025-01-10")
	require.Error(t, err)

	got := testutil.ToFloat64(m.UpstreamRequests.WithLabelValues("/E/101/emploidutemps.awp", "520"))
	assert.Equal(t, float64(1), got)
}
