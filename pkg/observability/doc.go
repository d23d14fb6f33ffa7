/*
Package observability binds the engine's lifecycle hooks to Prometheus metrics
and structured logs.

	metrics := observability.NewMetrics(prometheus.NewRegistry())
	eng, err := lessonweave.New(dir,
		lessonweave.WithLifecycleHooks(metrics.Hooks()),
		lessonweave.WithLifecycleHooks(observability.LogHooks(logger)),
	)
*/
package observability
