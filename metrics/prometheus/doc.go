// Package prommetrics exports replay table metrics to Prometheus.
//
//	reg := prometheus.NewRegistry()
//	c, _ := prommetrics.New(reg, prommetrics.WithNamespace("learner"))
//	t, _ := replay.New(1<<20, replay.WithMetricsCollector(c))
//	http.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
//
// Operation counters and latencies are fed by the table itself. Table state
// gauges (size, memory, priority mass) are refreshed by calling ObserveStats.
package prommetrics
