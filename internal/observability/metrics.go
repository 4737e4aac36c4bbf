package observability

import (
	"strconv"
	"sync"
	"time"
)

// Metrics provides basic in-memory counters.
type Metrics struct {
	mu             sync.Mutex
	requestCount   map[string]int64
	errorCount     map[string]int64
	ledgerCalls    map[string]int64
	fallbackCount  map[string]int64
	requestLatency map[string]time.Duration
}

// MetricsSnapshot is a point-in-time copy of all counters.
type MetricsSnapshot struct {
	Requests    map[string]int64 `json:"requests"`
	Errors      map[string]int64 `json:"errors"`
	LedgerCalls map[string]int64 `json:"ledger_calls"`
	Fallbacks   map[string]int64 `json:"registry_fallbacks"`
	LatencyMS   map[string]int64 `json:"request_latency_ms_total"`
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{
		requestCount:   make(map[string]int64),
		errorCount:     make(map[string]int64),
		ledgerCalls:    make(map[string]int64),
		fallbackCount:  make(map[string]int64),
		requestLatency: make(map[string]time.Duration),
	}
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	key := pathKey(path, method, status)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount[key]++
	m.requestLatency[key] += duration
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	key := path + "|" + method + "|" + code
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorCount[key]++
}

// RecordLedgerCall counts a ledger gateway call by operation and outcome.
func (m *Metrics) RecordLedgerCall(op, outcome string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ledgerCalls[op+"|"+outcome]++
}

// RecordFallback counts registry operations rerouted to the fallback store.
func (m *Metrics) RecordFallback(op string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fallbackCount[op]++
}

// Snapshot copies the current counters.
func (m *Metrics) Snapshot() MetricsSnapshot {
	snap := MetricsSnapshot{
		Requests:    map[string]int64{},
		Errors:      map[string]int64{},
		LedgerCalls: map[string]int64{},
		Fallbacks:   map[string]int64{},
		LatencyMS:   map[string]int64{},
	}
	if m == nil {
		return snap
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, v := range m.requestCount {
		snap.Requests[k] = v
	}
	for k, v := range m.errorCount {
		snap.Errors[k] = v
	}
	for k, v := range m.ledgerCalls {
		snap.LedgerCalls[k] = v
	}
	for k, v := range m.fallbackCount {
		snap.Fallbacks[k] = v
	}
	for k, v := range m.requestLatency {
		snap.LatencyMS[k] = v.Milliseconds()
	}
	return snap
}

func pathKey(path, method string, status int) string {
	return path + "|" + method + "|" + strconv.Itoa(status)
}
