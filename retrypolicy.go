package admission

import (
	"time"

	boff "github.com/Andrej220/go-utils/backoff"
)

const (
	defaultMaxRetries  = 3
	defaultBackoffUnit = time.Second
)

// Backoff computes how long a record waits before its retry-th
// re-insertion. retry starts at 1.
type Backoff interface {
	Delay(retry int) time.Duration
}

// ExponentialBackoff waits Unit * 2^retry: 2s, 4s, 8s for a 1s unit.
// A positive Max caps the delay.
type ExponentialBackoff struct {
	Unit time.Duration
	Max  time.Duration
}

func (b ExponentialBackoff) Delay(retry int) time.Duration {
	unit := b.Unit
	if unit <= 0 {
		unit = defaultBackoffUnit
	}
	if retry < 0 {
		retry = 0
	}
	// overflow guard
	if retry > 30 {
		retry = 30
	}
	d := unit << uint(retry)
	if b.Max > 0 && (d > b.Max || d <= 0) {
		d = b.Max
	}
	return d
}

// JitterBackoff spreads retries with the randomized capped exponential
// sequence from the backoff package. Use it when many clients share one
// backend and synchronized retries would collide.
type JitterBackoff struct {
	Initial time.Duration
	Max     time.Duration
}

func (b JitterBackoff) Delay(retry int) time.Duration {
	initial, maxDelay := b.Initial, b.Max
	if initial <= 0 {
		initial = defaultBackoffUnit
	}
	if maxDelay <= 0 {
		maxDelay = ExponentialBackoff{Unit: initial}.Delay(defaultMaxRetries)
	}
	seq := boff.New(initial, maxDelay, time.Now().UnixNano())
	d := seq.Next()
	for i := 1; i < retry; i++ {
		d = seq.Next()
	}
	return d
}

// RetryPolicy decides what happens to a failed record.
// Zero values are replaced with defaults by Options.FillDefaults.
type RetryPolicy struct {
	// MaxRetries is the retry ceiling. A negative value disables retries.
	MaxRetries int

	// Backoff computes re-insertion delays.
	Backoff Backoff

	// RetryIf reports whether an error is retryable.
	// Defaults to IsRateLimited.
	RetryIf func(error) bool
}

// GetDefaultRP returns the retry policy used when none is configured.
func GetDefaultRP() RetryPolicy {
	return RetryPolicy{
		MaxRetries: defaultMaxRetries,
		Backoff:    ExponentialBackoff{Unit: defaultBackoffUnit},
		RetryIf:    IsRateLimited,
	}
}

func (rp *RetryPolicy) fillDefaults() {
	if rp.MaxRetries == 0 {
		rp.MaxRetries = defaultMaxRetries
	}
	if rp.Backoff == nil {
		rp.Backoff = ExponentialBackoff{Unit: defaultBackoffUnit}
	}
	if rp.RetryIf == nil {
		rp.RetryIf = IsRateLimited
	}
}

// shouldRetry reports whether a record that has already been retried
// retryCount times gets another attempt after failing with err.
func (rp RetryPolicy) shouldRetry(err error, retryCount int) bool {
	return rp.RetryIf(err) && retryCount < rp.MaxRetries
}
