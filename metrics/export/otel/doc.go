// Package otel publishes adminauth engine metrics through OpenTelemetry
// asynchronous instruments.
//
// [NewExporter] creates one Int64ObservableCounter per engine counter and
// represents each latency histogram as a cumulative bucket gauge with an
// "le" attribute plus _count and _sum counters. A single callback reads
// [adminauth.Engine.MetricsSnapshot] on each collection cycle.
//
// # What this package must NOT do
//
//   - Own the MeterProvider. Callers supply the Meter.
//   - Mutate engine state.
package otel
