// Package tools defines the callable tool surface of the bridge.
//
// Each tool has a name, a JSON Schema for its arguments, and a handler that
// returns a JSON text payload. The Registry dispatches calls by name,
// caches results, and records per-tool metrics and spans.
package tools
