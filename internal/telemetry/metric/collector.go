package metric

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/yndnr/respkv-go/internal/core/store"
)

// StatsSource is implemented by *store.Store.
type StatsSource interface {
	Stats() store.Stats
}

// Collector samples store counters at scrape time.
type Collector struct {
	src      StatsSource
	capacity int

	queueDepth *prometheus.Desc
	queueCap   *prometheus.Desc
	applied    *prometheus.Desc
}

// NewCollector creates a collector reading from src. queueSize is the
// configured queue capacity.
func NewCollector(src StatsSource, queueSize int) *Collector {
	return &Collector{
		src:      src,
		capacity: queueSize,
		queueDepth: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "store", "queue_depth"),
			"Commands waiting for the store actor.",
			nil, nil,
		),
		queueCap: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "store", "queue_capacity"),
			"Capacity of the store command queue.",
			nil, nil,
		),
		applied: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "store", "applied_commands_total"),
			"Commands applied since startup.",
			nil, nil,
		),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.queueDepth
	ch <- c.queueCap
	ch <- c.applied
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	s := c.src.Stats()
	ch <- prometheus.MustNewConstMetric(c.queueDepth, prometheus.GaugeValue, float64(s.QueueDepth))
	ch <- prometheus.MustNewConstMetric(c.queueCap, prometheus.GaugeValue, float64(c.capacity))
	ch <- prometheus.MustNewConstMetric(c.applied, prometheus.CounterValue, float64(s.Applied))
}
