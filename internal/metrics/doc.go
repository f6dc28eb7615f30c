// Package metrics provides build observability for the bundler.
//
// The package follows the Null Object pattern: components receive a Recorder
// through dependency injection and default to NoopRecorder, so metrics can
// be enabled by swapping in NewPrometheusRecorder without code changes and
// carry no overhead when disabled.
//
//	recorder := metrics.NewPrometheusRecorder(registry)
//	c, _ := compiler.New(compiler.Config{Metrics: recorder})
//
// HTTPHandler exposes the registry for scraping; the CLI serves it in watch
// mode when a listen address is configured.
package metrics
