package jobmetrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestTrackerRecordsSuccess(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	require.NoError(t, m.Track("payroll:slip_created").End(nil))

	require.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("payroll:slip_created", "success")))
	require.Equal(t, 0.0, testutil.ToFloat64(m.failures.WithLabelValues("payroll:slip_created")))
}

func TestTrackerRecordsFailure(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	boom := errors.New("smtp down")

	require.ErrorIs(t, m.Track("inventory:low_stock_scan").End(boom), boom)

	require.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("inventory:low_stock_scan", "failure")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.failures.WithLabelValues("inventory:low_stock_scan")))
}

func TestNilMetricsTrackerPassesErrorThrough(t *testing.T) {
	var m *Metrics
	boom := errors.New("boom")

	require.ErrorIs(t, m.Track("x").End(boom), boom)
	require.NoError(t, m.Track("x").End(nil))
}
