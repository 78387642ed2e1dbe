package admission

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// DefaultPriority is the priority callers use when they have no preference.
const DefaultPriority = 1

// Operation is the untyped form of an admitted operation.
type Operation func(context.Context) (any, error)

// taskRecord is one admitted unit of work, stored in the pending set
// while waiting and carried by the executing goroutine while running.
type taskRecord struct {
	// id is caller supplied and used for diagnostics only.
	id string

	priority int

	// seq orders records of equal priority by admission.
	seq uint64

	// tail marks a record re-inserted at the back of the pending set.
	tail bool

	// index is maintained by container/heap.
	index int

	retryCount int

	ctx context.Context
	op  Operation

	// settle forwards an outcome to the caller's Future.
	settle func(v any, err error)

	admittedAt time.Time
}

func newTaskRecord(ctx context.Context, id string, priority int, op Operation, settle func(any, error)) *taskRecord {
	if ctx == nil {
		ctx = context.Background()
	}
	if id == "" {
		id = uuid.NewString()
	}
	return &taskRecord{
		id:         id,
		priority:   priority,
		ctx:        ctx,
		op:         op,
		settle:     settle,
		index:      -1,
		admittedAt: time.Now(),
	}
}
