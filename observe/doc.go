// Package observe provides telemetry for the spbridge server: structured
// logging with credential redaction, OpenTelemetry metrics, and tracing.
//
// The entry point is NewObserver, which builds providers from a single
// Config. Admission decisions and tool executions are recorded through the
// Metrics type; the Logger never emits fields whose keys look like secrets.
package observe
