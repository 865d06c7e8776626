// Package prometheus exposes adminauth engine metrics through
// client_golang.
//
// [Collector] implements prometheus.Collector over
// [adminauth.Engine.MetricsSnapshot]; register it in any registry.
// [Handler] is a shortcut serving a private registry. Counters are named
// adminauth_*_total; the single histogram is
// adminauth_authenticate_latency_seconds.
//
// # What this package must NOT do
//
//   - Register in the global Prometheus registry.
//   - Mutate engine state.
package prometheus
