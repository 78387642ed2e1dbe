package admission

import (
	"context"
	"sync"
)

// Future is the deferred result of an admitted operation.
//
// It settles exactly once; later settlement attempts are ignored.
type Future[T any] struct {
	done chan struct{}
	once sync.Once
	val  T
	err  error
}

func newFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

// resolve settles the future. It reports whether this call won.
func (f *Future[T]) resolve(v T, err error) bool {
	won := false
	f.once.Do(func() {
		f.val, f.err = v, err
		close(f.done)
		won = true
	})
	return won
}

// Done is closed once the future has settled.
func (f *Future[T]) Done() <-chan struct{} { return f.done }

// Wait blocks until the future settles or ctx is done.
// In the latter case it returns ctx.Err(); the operation keeps running.
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
