package admission

import (
	"time"
)

const (
	DefaultMaxConcurrent = 2
	DefaultPacingDelay   = 200 * time.Millisecond
)

// RequeuePolicy defines where a retried record re-enters the pending set.
type RequeuePolicy int

const (
	// RequeueByPriority re-inserts a record at its original priority and
	// admission position.
	RequeueByPriority RequeuePolicy = iota

	// RequeueAtTail re-inserts a record behind every record that has not
	// been retried, regardless of priority.
	RequeueAtTail
)

func (r RequeuePolicy) String() string {
	switch r {
	case RequeueByPriority:
		return "RequeueByPriority"
	case RequeueAtTail:
		return "RequeueAtTail"
	default:
		return "Unknown"
	}
}

// SettlementPolicy defines which attempt settles the caller's Future.
type SettlementPolicy int

const (
	// SettleOnFinal settles on the outcome that is not retried.
	SettleOnFinal SettlementPolicy = iota

	// SettleOnFirstAttempt settles on the first attempt's outcome.
	// Retries still run but are invisible to the caller.
	SettleOnFirstAttempt
)

func (s SettlementPolicy) String() string {
	switch s {
	case SettleOnFinal:
		return "SettleOnFinal"
	case SettleOnFirstAttempt:
		return "SettleOnFirstAttempt"
	default:
		return "Unknown"
	}
}

// Options configure a Scheduler.
//
// All zero values are replaced with defaults in FillDefaults.
type Options struct {
	// MaxConcurrent is the concurrency ceiling.
	MaxConcurrent int

	// PacingDelay is how long a slot stays held after a successful
	// operation. A negative value disables pacing.
	PacingDelay time.Duration

	Retry      RetryPolicy
	Requeue    RequeuePolicy
	Settlement SettlementPolicy

	// DispatchRate limits dispatches per second. Zero means unlimited.
	DispatchRate  float64
	DispatchBurst int

	Metrics MetricsPolicy

	// OnTaskError, if set, is called with the id and final error of
	// every record that settles with an error, cleared records included.
	// It runs on scheduler goroutines and must not block.
	OnTaskError func(id string, err error)
}

func (o *Options) FillDefaults() {
	if o.MaxConcurrent <= 0 {
		o.MaxConcurrent = DefaultMaxConcurrent
	}
	if o.PacingDelay == 0 {
		o.PacingDelay = DefaultPacingDelay
	}
	o.Retry.fillDefaults()
	if o.DispatchRate > 0 && o.DispatchBurst <= 0 {
		o.DispatchBurst = 1
	}
	if o.Metrics == nil {
		o.Metrics = &NoopMetrics{}
	}
}
