// ABOUTME: Observability package for the playout CLI
// ABOUTME: OpenTelemetry instruments for the mixer and negotiation plus a Prometheus bridge
// Package observe records playout metrics through the OpenTelemetry API.
//
// [InitProvider] sets up an SDK meter provider backed by a Prometheus
// exporter and returns the /metrics handler. [NewMetrics] takes any
// [metric.MeterProvider], so tests can use a manual reader instead.
package observe
