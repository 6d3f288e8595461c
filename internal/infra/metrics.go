package infra

import (
	"sync/atomic"
	"time"
)

// Metrics provides lightweight observability without external dependencies.
// Uses atomic operations for thread-safety.
type Metrics struct {
	// Counters
	listings  atomic.Uint64
	sales     atomic.Uint64
	reprices  atomic.Uint64
	cancels   atomic.Uint64
	failures  atomic.Uint64
	rollbacks atomic.Uint64

	// Settlement latency tracking
	latencySumNs atomic.Int64
	latencyCount atomic.Uint64

	// Gauges
	activeListings atomic.Int64
	activeFeeds    atomic.Int32
}

// GlobalMetrics is the singleton metrics instance.
var GlobalMetrics = &Metrics{}

// RecordSettlement records the latency of one settlement attempt.
func (m *Metrics) RecordSettlement(latency time.Duration) {
	m.latencySumNs.Add(latency.Nanoseconds())
	m.latencyCount.Add(1)
}

// RecordListing records a committed listing.
func (m *Metrics) RecordListing() {
	m.listings.Add(1)
	m.activeListings.Add(1)
}

// RecordSale records a committed sale.
func (m *Metrics) RecordSale() {
	m.sales.Add(1)
	m.activeListings.Add(-1)
}

func (m *Metrics) RecordReprice() {
	m.reprices.Add(1)
}

// RecordCancel records a committed cancellation.
func (m *Metrics) RecordCancel() {
	m.cancels.Add(1)
	m.activeListings.Add(-1)
}

// RecordFailure records a rejected or failed operation.
func (m *Metrics) RecordFailure() {
	m.failures.Add(1)
}

// RecordRollback records a settlement that had to be reverted.
func (m *Metrics) RecordRollback() {
	m.rollbacks.Add(1)
}

// SetActiveListings sets the listing gauge (after a restore).
func (m *Metrics) SetActiveListings(n int64) {
	m.activeListings.Store(n)
}

// IncrementFeeds increments connected feed subscribers by 1.
func (m *Metrics) IncrementFeeds() {
	m.activeFeeds.Add(1)
}

// DecrementFeeds decrements connected feed subscribers by 1.
func (m *Metrics) DecrementFeeds() {
	m.activeFeeds.Add(-1)
}

// MetricsSnapshot is a point-in-time view of all metrics.
type MetricsSnapshot struct {
	Listings       uint64    `json:"listings"`
	Sales          uint64    `json:"sales"`
	Reprices       uint64    `json:"reprices"`
	Cancels        uint64    `json:"cancels"`
	Failures       uint64    `json:"failures"`
	Rollbacks      uint64    `json:"rollbacks"`
	AvgLatencyNs   int64     `json:"avg_settlement_latency_ns"`
	ActiveListings int64     `json:"active_listings"`
	ActiveFeeds    int32     `json:"active_feeds"`
	Timestamp      time.Time `json:"timestamp"`
}

// Snapshot returns current metrics as a snapshot.
func (m *Metrics) Snapshot() MetricsSnapshot {
	var avgLatency int64
	count := m.latencyCount.Load()
	if count > 0 {
		avgLatency = m.latencySumNs.Load() / int64(count)
	}

	return MetricsSnapshot{
		Listings:       m.listings.Load(),
		Sales:          m.sales.Load(),
		Reprices:       m.reprices.Load(),
		Cancels:        m.cancels.Load(),
		Failures:       m.failures.Load(),
		Rollbacks:      m.rollbacks.Load(),
		AvgLatencyNs:   avgLatency,
		ActiveListings: m.activeListings.Load(),
		ActiveFeeds:    m.activeFeeds.Load(),
		Timestamp:      time.Now(),
	}
}

// Reset clears all metrics (for testing).
func (m *Metrics) Reset() {
	m.listings.Store(0)
	m.sales.Store(0)
	m.reprices.Store(0)
	m.cancels.Store(0)
	m.failures.Store(0)
	m.rollbacks.Store(0)
	m.latencySumNs.Store(0)
	m.latencyCount.Store(0)
	m.activeListings.Store(0)
	m.activeFeeds.Store(0)
}
