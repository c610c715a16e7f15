package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorderCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := New(reg)

	r.RecordUpstreamCall("spot", "ok")
	r.RecordUpstreamCall("spot", "ok")
	r.RecordUpstreamCall("spot", "unauthorized")
	r.RecordCacheLookup("quote", true)
	r.RecordCacheLookup("quote", false)
	r.RecordTokenRefresh("ok")
	r.RecordNote("invalid_ticker")
	r.RecordError("worker_panic")
	r.RecordLatency("fetch_all", 0.2)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.upstreamCalls.WithLabelValues("spot", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.upstreamCalls.WithLabelValues("spot", "unauthorized")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.cacheLookups.WithLabelValues("quote", "hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.cacheLookups.WithLabelValues("quote", "miss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.tokenRefreshes.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.notes.WithLabelValues("invalid_ticker")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.errorsTotal.WithLabelValues("worker_panic")))

	n, err := testutil.GatherAndCount(reg, "stockpull_operation_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestRecordersOnSeparateRegistries(t *testing.T) {
	assert.NotPanics(t, func() {
		New(prometheus.NewRegistry())
		New(prometheus.NewRegistry())
	})
}
