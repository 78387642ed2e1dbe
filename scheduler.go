package admission

import (
	"context"
	"fmt"
	"sync"
	"time"

	lg "github.com/Andrej220/go-utils/zlog"
	"golang.org/x/time/rate"
)

// Scheduler admits operations, runs at most Options.MaxConcurrent of
// them at once in priority order and retries rate-limited failures.
//
// A Scheduler is safe for concurrent use. It owns no goroutines while
// idle, so it needs no teardown.
type Scheduler struct {
	opts    Options
	limiter *rate.Limiter

	mu         sync.Mutex
	pending    pendingSet
	active     int
	backingOff int
	running    bool
	closed     bool
	seq        uint64

	// wake is signalled on admissions and completions.
	wake chan struct{}

	// idle is closed while nothing is pending, active or backing off.
	idle       chan struct{}
	idleClosed bool
}

// New creates a Scheduler. Zero option values take defaults.
func New(opts Options) *Scheduler {
	opts.FillDefaults()

	s := &Scheduler{
		opts:       opts,
		pending:    newPendingSet(),
		wake:       make(chan struct{}, 1),
		idle:       make(chan struct{}),
		idleClosed: true,
	}
	close(s.idle)
	if opts.DispatchRate > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(opts.DispatchRate), opts.DispatchBurst)
	}
	return s
}

// Options returns the effective options after defaults were applied.
func (s *Scheduler) Options() Options { return s.opts }

// Admit queues op for execution with the given priority and returns a
// Future that settles with its outcome. Higher priorities run first.
// Admission does not wait for op and never fails because of load.
//
// ctx is handed to op on every attempt and supplies the logger. The
// scheduler itself never cancels records.
func Admit[T any](ctx context.Context, s *Scheduler, id string, op func(context.Context) (T, error), priority int) *Future[T] {
	fut := newFuture[T]()
	if op == nil {
		var zero T
		fut.resolve(zero, ErrNilOperation)
		return fut
	}

	rec := newTaskRecord(ctx, id, priority,
		func(c context.Context) (any, error) { return op(c) },
		func(v any, err error) {
			t, _ := v.(T)
			fut.resolve(t, err)
		},
	)

	if err := s.admit(rec); err != nil {
		var zero T
		fut.resolve(zero, err)
	}
	return fut
}

func (s *Scheduler) admit(rec *taskRecord) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.seq++
	rec.seq = s.seq
	s.pending.push(rec)
	queued := s.pending.len()
	s.kickLocked()
	s.mu.Unlock()

	s.opts.Metrics.IncAdmitted()
	lg.FromContext(rec.ctx).Info("Task admitted",
		lg.String("task", rec.id),
		lg.Int("priority", rec.priority),
		lg.Int("queued", queued),
	)
	return nil
}

// kickLocked starts the dispatch loop or wakes the running one.
func (s *Scheduler) kickLocked() {
	s.busyLocked()
	if !s.running {
		s.running = true
		go s.run()
		return
	}
	s.signal()
}

func (s *Scheduler) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Scheduler) busyLocked() {
	if s.idleClosed {
		s.idle = make(chan struct{})
		s.idleClosed = false
	}
}

func (s *Scheduler) maybeIdleLocked() {
	if !s.idleClosed && s.pending.len() == 0 && s.active == 0 && s.backingOff == 0 {
		close(s.idle)
		s.idleClosed = true
	}
}

// run is the dispatch loop. It fills free capacity from the head of
// the pending set and exits once nothing is pending or active.
func (s *Scheduler) run() {
	for {
		s.mu.Lock()
		if s.pending.len() == 0 && s.active == 0 {
			s.running = false
			s.maybeIdleLocked()
			s.mu.Unlock()
			return
		}
		if s.pending.len() == 0 || s.active >= s.opts.MaxConcurrent {
			s.mu.Unlock()
			<-s.wake
			continue
		}
		s.mu.Unlock()

		s.throttle()

		// Only this loop dispatches, so capacity cannot shrink while
		// throttled. Clear may have emptied the set.
		s.mu.Lock()
		rec, ok := s.pending.pop()
		if ok {
			s.active++
		}
		s.mu.Unlock()

		if ok {
			s.opts.Metrics.IncDispatched()
			go s.execute(rec)
		}
	}
}

func (s *Scheduler) throttle() {
	if s.limiter == nil {
		return
	}
	_ = s.limiter.Wait(context.Background())
}

// execute runs one attempt of rec and applies the retry policy.
func (s *Scheduler) execute(rec *taskRecord) {
	logger := lg.FromContext(rec.ctx).With(
		lg.String("task", rec.id),
		lg.Int("priority", rec.priority),
		lg.Int("retry", rec.retryCount),
	)
	logger.Info("Task dispatched", lg.Int("active", s.Status().Active))

	v, err := invoke(rec)
	if err == nil {
		rec.settle(v, nil)
		s.opts.Metrics.IncSucceeded()
		logger.Info("Task succeeded", lg.String("elapsed", time.Since(rec.admittedAt).String()))
		s.pace()
		s.release()
		return
	}

	if s.opts.Retry.shouldRetry(err, rec.retryCount) {
		rec.retryCount++
		delay := s.opts.Retry.Backoff.Delay(rec.retryCount)
		if s.opts.Settlement == SettleOnFirstAttempt {
			rec.settle(nil, err)
		}
		s.opts.Metrics.IncRetried()
		logger.Warn("Task rate limited; backing off",
			lg.Int("attempt", rec.retryCount),
			lg.String("sleep", delay.String()),
			lg.Any("error", err),
		)
		s.backoff(rec, delay)
		return
	}

	if s.opts.Retry.RetryIf(err) {
		err = fmt.Errorf("%w: %w", ErrRetriesExhausted, err)
	}
	logger.Error("Task failed", lg.Int("attempts", rec.retryCount+1), lg.Any("error", err))
	rec.settle(nil, err)
	s.opts.Metrics.IncFailed()
	s.reportTaskError(rec, err)
	s.release()
}

// invoke calls the operation, turning a panic into an error.
func invoke(rec *taskRecord) (v any, err error) {
	defer func() {
		if r := recover(); r != nil {
			lg.FromContext(rec.ctx).Error("Task panicked", lg.String("task", rec.id), lg.Any("panic", r))
			err = fmt.Errorf("%w: %v", ErrPanic, r)
		}
	}()
	return rec.op(rec.ctx)
}

// pace holds the caller's slot after a success.
func (s *Scheduler) pace() {
	if s.opts.PacingDelay > 0 {
		time.Sleep(s.opts.PacingDelay)
	}
}

// release frees a slot and wakes the dispatch loop.
func (s *Scheduler) release() {
	s.mu.Lock()
	s.active--
	s.maybeIdleLocked()
	s.mu.Unlock()
	s.signal()
}

// backoff moves rec out of the active set and re-inserts it after delay.
// The slot is free while the record sleeps.
func (s *Scheduler) backoff(rec *taskRecord, delay time.Duration) {
	s.mu.Lock()
	s.active--
	s.backingOff++
	s.mu.Unlock()
	s.signal()

	time.AfterFunc(delay, func() { s.requeue(rec) })
}

func (s *Scheduler) requeue(rec *taskRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.backingOff--
	if s.opts.Requeue == RequeueAtTail {
		s.seq++
		rec.seq = s.seq
		rec.tail = true
	}
	s.pending.push(rec)
	s.kickLocked()
}

// Clear drops every record that has not been dispatched yet and rejects
// their futures with ErrCleared. Running records and records waiting
// to be retried are not affected. It returns the number dropped.
func (s *Scheduler) Clear() int {
	s.mu.Lock()
	dropped := s.pending.drain()
	s.maybeIdleLocked()
	s.mu.Unlock()

	for _, rec := range dropped {
		rec.settle(nil, ErrCleared)
		s.reportTaskError(rec, ErrCleared)
	}
	if n := len(dropped); n > 0 {
		s.opts.Metrics.AddCleared(int64(n))
		lg.FromContext(context.Background()).Info("Pending tasks cleared", lg.Int("count", n))
	}
	return len(dropped)
}

// Close rejects further admissions with ErrClosed. Records already
// admitted still run to settlement, retries included.
func (s *Scheduler) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

// Wait blocks until nothing is pending, active or backing off, or until
// ctx is done.
func (s *Scheduler) Wait(ctx context.Context) error {
	s.mu.Lock()
	idle := s.idle
	s.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Do admits op at DefaultPriority and waits for its result.
func Do[T any](ctx context.Context, s *Scheduler, id string, op func(context.Context) (T, error)) (T, error) {
	return Admit(ctx, s, id, op, DefaultPriority).Wait(ctx)
}
