// Package observe provides observability primitives for pooled model
// clients: structured logging, OpenTelemetry tracing, and metrics.
//
// It is a pure instrumentation library. The pool and service packages
// accept an Observer and record acquire, build, eviction, and invocation
// telemetry through it; a nil or disabled Observer costs nothing.
package observe
