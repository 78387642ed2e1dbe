package promadmission

import (
	"github.com/prometheus/client_golang/prometheus"

	adm "github.com/Andrej220/go-utils/admission"
)

// StatusSource is anything that reports scheduler load.
type StatusSource interface {
	Status() adm.Status
}

// Collector exposes queue length, active and retrying counts as gauges.
type Collector struct {
	src      StatusSource
	queued   *prometheus.Desc
	active   *prometheus.Desc
	retrying *prometheus.Desc
}

var _ prometheus.Collector = (*Collector)(nil)

func NewCollector(namespace string, src StatusSource) *Collector {
	return &Collector{
		src: src,
		queued: prometheus.NewDesc(prometheus.BuildFQName(namespace, "", "queue_length"),
			"Operations waiting for dispatch.", nil, nil),
		active: prometheus.NewDesc(prometheus.BuildFQName(namespace, "", "active"),
			"Operations holding a concurrency slot.", nil, nil),
		retrying: prometheus.NewDesc(prometheus.BuildFQName(namespace, "", "retrying"),
			"Operations waiting out a retry backoff.", nil, nil),
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.queued
	ch <- c.active
	ch <- c.retrying
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	st := c.src.Status()
	ch <- prometheus.MustNewConstMetric(c.queued, prometheus.GaugeValue, float64(st.QueueLength))
	ch <- prometheus.MustNewConstMetric(c.active, prometheus.GaugeValue, float64(st.Active))
	ch <- prometheus.MustNewConstMetric(c.retrying, prometheus.GaugeValue, float64(st.Retrying))
}
