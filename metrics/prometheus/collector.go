package prommetrics

import (
	"time"

	"github.com/hupe1980/replay"
	"github.com/prometheus/client_golang/prometheus"
)

type options struct {
	namespace   string
	constLabels prometheus.Labels
	buckets     []float64
}

// Option configures a Collector.
type Option func(*options)

// WithNamespace sets the metric name prefix. Default "replay".
func WithNamespace(ns string) Option {
	return func(o *options) {
		o.namespace = ns
	}
}

// WithConstLabels attaches labels to every metric, e.g. a table name.
func WithConstLabels(labels prometheus.Labels) Option {
	return func(o *options) {
		o.constLabels = labels
	}
}

// WithBuckets sets the latency histogram buckets in seconds.
func WithBuckets(buckets []float64) Option {
	return func(o *options) {
		o.buckets = buckets
	}
}

// Collector implements replay.MetricsCollector on top of Prometheus.
type Collector struct {
	opLatency  *prometheus.HistogramVec
	ops        *prometheus.CounterVec
	evictions  prometheus.Counter
	sampled    prometheus.Counter
	priorities *prometheus.CounterVec

	size          prometheus.Gauge
	capacity      prometheus.Gauge
	memoryBytes   prometheus.Gauge
	totalPriority prometheus.Gauge
	maxPriority   prometheus.Gauge
}

var _ replay.MetricsCollector = (*Collector)(nil)

// New creates a Collector and registers its metrics with reg.
func New(reg prometheus.Registerer, optFns ...Option) (*Collector, error) {
	o := options{
		namespace: "replay",
		buckets:   prometheus.ExponentialBuckets(1e-6, 4, 10), // 1µs .. ~262ms
	}
	for _, fn := range optFns {
		fn(&o)
	}

	c := &Collector{
		opLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   o.namespace,
			Name:        "operation_latency_seconds",
			Help:        "Latency of table operations",
			ConstLabels: o.constLabels,
			Buckets:     o.buckets,
		}, []string{"op", "status"}),
		ops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   o.namespace,
			Name:        "operations_total",
			Help:        "Total table operations",
			ConstLabels: o.constLabels,
		}, []string{"op", "status"}),
		evictions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   o.namespace,
			Name:        "evictions_total",
			Help:        "Records overwritten by the ring buffer",
			ConstLabels: o.constLabels,
		}),
		sampled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   o.namespace,
			Name:        "sampled_records_total",
			Help:        "Records returned by Sample",
			ConstLabels: o.constLabels,
		}),
		priorities: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   o.namespace,
			Name:        "priority_updates_total",
			Help:        "Priority updates by outcome",
			ConstLabels: o.constLabels,
		}, []string{"result"}),
		size: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   o.namespace,
			Name:        "records",
			Help:        "Records currently stored",
			ConstLabels: o.constLabels,
		}),
		capacity: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   o.namespace,
			Name:        "capacity",
			Help:        "Table capacity",
			ConstLabels: o.constLabels,
		}),
		memoryBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   o.namespace,
			Name:        "memory_bytes",
			Help:        "Accounted payload bytes",
			ConstLabels: o.constLabels,
		}),
		totalPriority: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   o.namespace,
			Name:        "priority_total",
			Help:        "Sum of priority^alpha over stored records",
			ConstLabels: o.constLabels,
		}),
		maxPriority: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   o.namespace,
			Name:        "priority_max",
			Help:        "Largest priority seen",
			ConstLabels: o.constLabels,
		}),
	}

	for _, m := range []prometheus.Collector{
		c.opLatency, c.ops, c.evictions, c.sampled, c.priorities,
		c.size, c.capacity, c.memoryBytes, c.totalPriority, c.maxPriority,
	} {
		if err := reg.Register(m); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

func (c *Collector) observe(op string, d time.Duration, err error) {
	s := status(err)
	c.opLatency.WithLabelValues(op, s).Observe(d.Seconds())
	c.ops.WithLabelValues(op, s).Inc()
}

// RecordAdd implements replay.MetricsCollector.
func (c *Collector) RecordAdd(d time.Duration, err error) {
	c.observe("add", d, err)
}

// RecordEviction implements replay.MetricsCollector.
func (c *Collector) RecordEviction() {
	c.evictions.Inc()
}

// RecordSample implements replay.MetricsCollector.
func (c *Collector) RecordSample(batchSize int, d time.Duration, err error) {
	c.observe("sample", d, err)
	if err == nil {
		c.sampled.Add(float64(batchSize))
	}
}

// RecordUpdatePriorities implements replay.MetricsCollector.
func (c *Collector) RecordUpdatePriorities(count, skipped int, d time.Duration) {
	c.observe("update_priorities", d, nil)
	c.priorities.WithLabelValues("applied").Add(float64(count - skipped))
	c.priorities.WithLabelValues("stale").Add(float64(skipped))
}

// RecordDelete implements replay.MetricsCollector.
func (c *Collector) RecordDelete(d time.Duration, err error) {
	c.observe("delete", d, err)
}

// ObserveStats refreshes the table state gauges.
func (c *Collector) ObserveStats(s replay.Stats) {
	c.size.Set(float64(s.Len))
	c.capacity.Set(float64(s.Cap))
	c.memoryBytes.Set(float64(s.MemoryBytes))
	c.totalPriority.Set(s.TotalPriority)
	c.maxPriority.Set(s.MaxPriority)
}
