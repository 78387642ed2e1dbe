package admission_test

import (
	"context"
	"errors"
	"net/http"
	"runtime"
	"sync"
	"testing"
	"time"

	adm "github.com/Andrej220/go-utils/admission"
)

const testBackoffUnit = 5 * time.Millisecond

var errTooMany = &adm.StatusError{Code: http.StatusTooManyRequests, Err: errors.New("slow down")}

func newTestOptions(ceiling int) adm.Options {
	return adm.Options{
		MaxConcurrent: ceiling,
		PacingDelay:   -1,
		Retry: adm.RetryPolicy{
			MaxRetries: 3,
			Backoff:    adm.ExponentialBackoff{Unit: testBackoffUnit},
		},
	}
}

func newTestScheduler(t *testing.T, ceiling int) *adm.Scheduler {
	t.Helper()
	return adm.New(newTestOptions(ceiling))
}

func waitUntil(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		runtime.Gosched()
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not satisfied before timeout")
}

func waitIdle(t *testing.T, s *adm.Scheduler, timeout time.Duration) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := s.Wait(ctx); err != nil {
		t.Fatalf("scheduler did not become idle: %v (%s)", err, s.Status())
	}
}

// recorder collects the order in which operations start.
type recorder struct {
	mu    sync.Mutex
	order []string
	at    []time.Time
}

func (r *recorder) mark(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.order = append(r.order, id)
	r.at = append(r.at, time.Now())
}

func (r *recorder) snapshot() ([]string, []time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.order...), append([]time.Time(nil), r.at...)
}

func (r *recorder) op(id string) func(context.Context) (string, error) {
	return func(context.Context) (string, error) {
		r.mark(id)
		return id, nil
	}
}

// gate occupies a slot until opened.
type gate struct {
	started chan struct{}
	open    chan struct{}
}

func newGate() *gate {
	return &gate{started: make(chan struct{}), open: make(chan struct{})}
}

func (g *gate) op(context.Context) (string, error) {
	close(g.started)
	<-g.open
	return "gate", nil
}

// block admits g at a priority above everything else and waits for it
// to start, so later admissions pile up in the pending set.
func (g *gate) block(t *testing.T, s *adm.Scheduler) *adm.Future[string] {
	t.Helper()

	f := adm.Admit(context.Background(), s, "gate", g.op, 1<<20)
	select {
	case <-g.started:
	case <-time.After(time.Second):
		t.Fatal("gate did not start")
	}
	return f
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
