/*
Package metrics exposes bridge activity as Prometheus metrics.

A Metrics value is a handle.Observer, so subscribing it to a handle
registry keeps the live-handle gauges current:

	m := metrics.New(prometheus.NewRegistry())
	registry.Subscribe(m)
	batch.OnFlush(m.ObserveFlush)
	http.Handle("/metrics", m.Handler())
*/
package metrics
