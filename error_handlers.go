package admission

// reportTaskError reports a record that settled with an error.
//
// Task errors never stop the scheduler. If no handler is registered,
// the error is only logged.
func (s *Scheduler) reportTaskError(rec *taskRecord, err error) {
	if s.opts.OnTaskError != nil {
		s.opts.OnTaskError(rec.id, err)
	}
}
