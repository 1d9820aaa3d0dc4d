// Package prommetrics exports fastset events as Prometheus metrics.
package prommetrics

import (
	"fmt"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jcalabro/fastset"
)

// Collector implements fastset.MetricsCollector.
type Collector struct {
	grows      *prometheus.CounterVec
	buckets    *prometheus.GaugeVec
	exclusive  *prometheus.CounterVec
	erased     prometheus.Counter
	erasePulls prometheus.Histogram
	clears     prometheus.Counter
}

var _ fastset.MetricsCollector = (*Collector)(nil)

// New creates a Collector and registers its metrics with reg under
// namespace. If reg is nil, prometheus.DefaultRegisterer is used.
// Registering twice with the same registry and namespace fails with an
// error wrapping prometheus.AlreadyRegisteredError.
func New(reg prometheus.Registerer, namespace string) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	c := &Collector{
		grows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "fastset",
			Name:      "partition_grows_total",
			Help:      "Number of bucket table doublings per partition.",
		}, []string{"partition"}),
		buckets: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "fastset",
			Name:      "partition_buckets",
			Help:      "Bucket count of each partition after its last growth.",
		}, []string{"partition"}),
		exclusive: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "fastset",
			Name:      "add_exclusive_total",
			Help:      "AddExclusive calls by outcome.",
		}, []string{"result"}),
		erased: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "fastset",
			Name:      "erased_keys_total",
			Help:      "Keys removed through Erase.",
		}),
		erasePulls: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "fastset",
			Name:      "erase_batch_size",
			Help:      "Keys removed per Erase call.",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 10),
		}),
		clears: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "fastset",
			Name:      "clears_total",
			Help:      "Number of Clear calls.",
		}),
	}

	for _, col := range []prometheus.Collector{c.grows, c.buckets, c.exclusive, c.erased, c.erasePulls, c.clears} {
		if err := reg.Register(col); err != nil {
			return nil, fmt.Errorf("prommetrics: register: %w", err)
		}
	}
	return c, nil
}

// RecordGrow implements fastset.MetricsCollector.
func (c *Collector) RecordGrow(partition, buckets int) {
	label := strconv.Itoa(partition)
	c.grows.WithLabelValues(label).Inc()
	c.buckets.WithLabelValues(label).Set(float64(buckets))
}

// RecordAddExclusive implements fastset.MetricsCollector.
func (c *Collector) RecordAddExclusive(inserted bool) {
	if inserted {
		c.exclusive.WithLabelValues("inserted").Inc()
	} else {
		c.exclusive.WithLabelValues("rejected").Inc()
	}
}

// RecordErase implements fastset.MetricsCollector.
func (c *Collector) RecordErase(n int) {
	c.erased.Add(float64(n))
	c.erasePulls.Observe(float64(n))
}

// RecordClear implements fastset.MetricsCollector.
func (c *Collector) RecordClear() {
	c.clears.Inc()
}
