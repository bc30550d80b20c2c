// Package metric provides Prometheus metrics for the streamkit runtime and an
// HTTP server exposing them.
//
// A MetricsRegistry owns a private prometheus.Registry with the core runtime
// metrics (loop, stream and socket counters) already registered, plus Go runtime
// and process collectors. Components register their own collectors through the
// MetricsRegistrar methods, keyed by owner and name so duplicates are rejected
// with an Invalid error.
//
//	registry := metric.NewMetricsRegistry()
//	lp := loop.New(loop.WithMetrics(registry.CoreMetrics()))
//
//	server := metric.NewServer(":9090", "/metrics", registry)
//	if err := server.Start(); err != nil {
//	    return err
//	}
//	defer server.Stop(5 * time.Second)
//
// The Record methods on *Metrics are no-ops on a nil receiver, so code paths
// built without a registry need no conditionals.
package metric
