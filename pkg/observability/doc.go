/*
Package observability turns engine lifecycle callbacks into Prometheus metrics
and structured log records.

Both are delivered as domain.LifecycleHooks, so they compose with host hooks
through drip.WithLifecycleHooks:

	metrics := observability.NewMetrics(prometheus.NewRegistry())
	sess, _ := drip.New(
		drip.WithLifecycleHooks(metrics.Hooks()),
		drip.WithLifecycleHooks(observability.LogHooks(logger)),
	)
	http.Handle("/metrics", metrics.Handler())
*/
package observability
