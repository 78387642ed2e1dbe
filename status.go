package admission

import "fmt"

// Status is a point-in-time snapshot of scheduler load.
type Status struct {
	// QueueLength is the number of records waiting for dispatch.
	QueueLength int

	// Active is the number of records holding a slot, including
	// records inside their pacing delay.
	Active int

	// Retrying is the number of records sleeping before re-insertion.
	Retrying int
}

func (st Status) String() string {
	return fmt.Sprintf("queued=%d active=%d retrying=%d", st.QueueLength, st.Active, st.Retrying)
}

// Status reports the current load. It never mutates state.
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Status{
		QueueLength: s.pending.len(),
		Active:      s.active,
		Retrying:    s.backingOff,
	}
}
