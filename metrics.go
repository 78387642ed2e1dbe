package admission

import (
	"sync/atomic"
)

// MetricsPolicy defines hooks used by the scheduler to report
// admission and execution activity.
//
// Implementations must be safe for concurrent use.
// All methods are expected to be lightweight and non-blocking.
type MetricsPolicy interface {
	// IncAdmitted is called once per accepted admission.
	IncAdmitted()

	// IncDispatched is called for every attempt, retries included.
	IncDispatched()

	IncSucceeded()

	// IncRetried is called when a failed record is scheduled for retry.
	IncRetried()

	// IncFailed is called when a record settles with an error.
	IncFailed()

	// AddCleared is called with the number of records dropped by Clear.
	AddCleared(n int64)
}

// AtomicMetrics is a lock-free MetricsPolicy backed by atomics.
//
// Writes are optimized for hot paths.
// Reads are intended for cold-path observation.
type AtomicMetrics struct {
	admitted   atomic.Uint64
	dispatched atomic.Uint64
	succeeded  atomic.Uint64
	retried    atomic.Uint64
	failed     atomic.Uint64
	cleared    atomic.Int64
}

func (m *AtomicMetrics) Admitted() uint64   { return m.admitted.Load() }
func (m *AtomicMetrics) Dispatched() uint64 { return m.dispatched.Load() }
func (m *AtomicMetrics) Succeeded() uint64  { return m.succeeded.Load() }
func (m *AtomicMetrics) Retried() uint64    { return m.retried.Load() }
func (m *AtomicMetrics) Failed() uint64     { return m.failed.Load() }
func (m *AtomicMetrics) Cleared() int64     { return m.cleared.Load() }

func (m *AtomicMetrics) IncAdmitted()       { m.admitted.Add(1) }
func (m *AtomicMetrics) IncDispatched()     { m.dispatched.Add(1) }
func (m *AtomicMetrics) IncSucceeded()      { m.succeeded.Add(1) }
func (m *AtomicMetrics) IncRetried()        { m.retried.Add(1) }
func (m *AtomicMetrics) IncFailed()         { m.failed.Add(1) }
func (m *AtomicMetrics) AddCleared(n int64) { m.cleared.Add(n) }

//------------- NoopMetrics ----------------------------------

// NoopMetrics is a MetricsPolicy implementation that discards
// all metric updates.
type NoopMetrics struct{}

func (m *NoopMetrics) IncAdmitted()       {}
func (m *NoopMetrics) IncDispatched()     {}
func (m *NoopMetrics) IncSucceeded()      {}
func (m *NoopMetrics) IncRetried()        {}
func (m *NoopMetrics) IncFailed()         {}
func (m *NoopMetrics) AddCleared(n int64) {}
