// Package promadmission exports scheduler activity to Prometheus.
//
// Metrics implements admission.MetricsPolicy with counters, and Collector
// turns Scheduler.Status snapshots into gauges at scrape time.
package promadmission

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	adm "github.com/Andrej220/go-utils/admission"
)

// Metrics is a MetricsPolicy backed by Prometheus counters.
type Metrics struct {
	admitted   prometheus.Counter
	dispatched prometheus.Counter
	succeeded  prometheus.Counter
	retried    prometheus.Counter
	failed     prometheus.Counter
	cleared    prometheus.Counter
}

var _ adm.MetricsPolicy = (*Metrics)(nil)

// NewMetrics registers the scheduler counters with reg under namespace.
func NewMetrics(reg prometheus.Registerer, namespace string) *Metrics {
	f := promauto.With(reg)
	counter := func(name, help string) prometheus.Counter {
		return f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      name,
			Help:      help,
		})
	}
	return &Metrics{
		admitted:   counter("admitted_total", "Operations accepted by the scheduler."),
		dispatched: counter("dispatched_total", "Attempts started, retries included."),
		succeeded:  counter("succeeded_total", "Operations that settled successfully."),
		retried:    counter("retried_total", "Rate-limited attempts scheduled for retry."),
		failed:     counter("failed_total", "Operations that settled with an error."),
		cleared:    counter("cleared_total", "Pending operations dropped by Clear."),
	}
}

func (m *Metrics) IncAdmitted()       { m.admitted.Inc() }
func (m *Metrics) IncDispatched()     { m.dispatched.Inc() }
func (m *Metrics) IncSucceeded()      { m.succeeded.Inc() }
func (m *Metrics) IncRetried()        { m.retried.Inc() }
func (m *Metrics) IncFailed()         { m.failed.Inc() }
func (m *Metrics) AddCleared(n int64) { m.cleared.Add(float64(n)) }
