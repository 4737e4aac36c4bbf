package observability

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMetricsSnapshot(t *testing.T) {
	m := NewMetrics()
	m.RecordRequest("/buy-ticket", "POST", 200, 15*time.Millisecond)
	m.RecordRequest("/buy-ticket", "POST", 200, 5*time.Millisecond)
	m.RecordError("/list-ticket", "POST", "MARKUP_EXCEEDED")
	m.RecordLedgerCall("mint", "ok")
	m.RecordFallback("create_ticket")

	snap := m.Snapshot()
	require.Equal(t, int64(2), snap.Requests["/buy-ticket|POST|200"])
	require.Equal(t, int64(20), snap.LatencyMS["/buy-ticket|POST|200"])
	require.Equal(t, int64(1), snap.Errors["/list-ticket|POST|MARKUP_EXCEEDED"])
	require.Equal(t, int64(1), snap.LedgerCalls["mint|ok"])
	require.Equal(t, int64(1), snap.Fallbacks["create_ticket"])
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.RecordRequest("/", "GET", 200, time.Millisecond)
	m.RecordError("/", "GET", "X")
	m.RecordLedgerCall("mint", "ok")
	m.RecordFallback("op")
	require.Empty(t, m.Snapshot().Requests)
}
