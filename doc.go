// Package admission provides a client-side request admission scheduler
// for talking to rate-limited HTTP backends.
//
// Design goals
//
// The scheduler sits between callers and a remote API and is designed
// around the following principles:
//
//   - Higher-priority work is dispatched first
//   - Equal-priority work is dispatched in admission order
//   - No more than a fixed number of operations run at once
//   - Rate-limited operations (HTTP 429) are retried with backoff
//
// Admission never blocks and never fails because of load. The pending
// set is unbounded.
//
// Architecture overview
//
// The scheduler is composed of four small layers:
//
//  1. Admission (Admit)
//     Wraps a typed operation into a task record, inserts it into the
//     pending set and returns a Future that settles with the outcome.
//
//  2. Pending set
//     A heap ordered by descending priority. Ties are broken by an
//     admission sequence number, which keeps ordering stable.
//
//  3. Execution controller
//     A dispatch loop that lives only while there is work. It pops the
//     head of the pending set while capacity remains and launches each
//     record in its own goroutine. Completions wake the loop so freed
//     capacity is reused immediately.
//
//  4. Retry policy
//     Decides after each failure whether a record goes back into the
//     pending set after a backoff delay, or is settled with the error.
//
// Pacing
//
// After a successful operation its slot is held for Options.PacingDelay
// before being released. This spaces out requests to the backend even
// when the pending set is deep. Options.DispatchRate adds an optional
// token bucket on top of that.
//
// Error handling
//
// Failures never escape the dispatch loop. They are observable only
// through the Future returned by Admit, through logging and through
// MetricsPolicy hooks. Panics inside operations are recovered and
// reported as errors wrapping ErrPanic.
//
// Logging
//
// Log records are written through zlog using the logger stored in the
// context passed to Admit.
package admission
