package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics records admission decisions and tool executions.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: implementations must not panic.
type Metrics interface {
	// RecordAdmission records one admission decision. outcome is one of
	// "allowed", "unauthenticated", or "rate_limited"; method is the
	// authentication method that produced the identity, if any.
	RecordAdmission(ctx context.Context, outcome, method, tier string)

	// RecordToolCall records a tool execution with duration and error status.
	RecordToolCall(ctx context.Context, tool string, duration time.Duration, err error)

	// RecordUpstreamFetch records one request against the marketplace API.
	RecordUpstreamFetch(ctx context.Context, operation string, duration time.Duration, err error)
}

// Admission outcomes recorded by Metrics.
const (
	OutcomeAllowed         = "allowed"
	OutcomeUnauthenticated = "unauthenticated"
	OutcomeRateLimited     = "rate_limited"
)

// metricsImpl is the concrete implementation of Metrics.
type metricsImpl struct {
	admissionCount metric.Int64Counter
	toolCount      metric.Int64Counter
	toolErrors     metric.Int64Counter
	toolDuration   metric.Float64Histogram
	fetchCount     metric.Int64Counter
	fetchDuration  metric.Float64Histogram
}

// NewMetrics creates a Metrics instance backed by the given meter.
func NewMetrics(meter metric.Meter) (Metrics, error) {
	admissionCount, err := meter.Int64Counter(
		"gate.admission.total",
		metric.WithDescription("Total number of admission decisions"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	toolCount, err := meter.Int64Counter(
		"tool.call.total",
		metric.WithDescription("Total number of tool calls"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, err
	}

	toolErrors, err := meter.Int64Counter(
		"tool.call.errors",
		metric.WithDescription("Total number of failed tool calls"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	toolDuration, err := meter.Float64Histogram(
		"tool.call.duration_ms",
		metric.WithDescription("Tool call duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	fetchCount, err := meter.Int64Counter(
		"upstream.fetch.total",
		metric.WithDescription("Total number of marketplace API requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	fetchDuration, err := meter.Float64Histogram(
		"upstream.fetch.duration_ms",
		metric.WithDescription("Marketplace API request duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	return &metricsImpl{
		admissionCount: admissionCount,
		toolCount:      toolCount,
		toolErrors:     toolErrors,
		toolDuration:   toolDuration,
		fetchCount:     fetchCount,
		fetchDuration:  fetchDuration,
	}, nil
}

func (m *metricsImpl) RecordAdmission(ctx context.Context, outcome, method, tier string) {
	attrs := []attribute.KeyValue{
		attribute.String("outcome", outcome),
	}
	if method != "" {
		attrs = append(attrs, attribute.String("auth.method", method))
	}
	if tier != "" {
		attrs = append(attrs, attribute.String("tier", tier))
	}
	m.admissionCount.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func (m *metricsImpl) RecordToolCall(ctx context.Context, tool string, duration time.Duration, err error) {
	opt := metric.WithAttributes(attribute.String("tool.name", tool))

	m.toolCount.Add(ctx, 1, opt)
	if err != nil {
		m.toolErrors.Add(ctx, 1, opt)
	}
	m.toolDuration.Record(ctx, float64(duration.Milliseconds()), opt)
}

func (m *metricsImpl) RecordUpstreamFetch(ctx context.Context, operation string, duration time.Duration, err error) {
	attrs := []attribute.KeyValue{
		attribute.String("operation", operation),
		attribute.Bool("error", err != nil),
	}
	opt := metric.WithAttributes(attrs...)

	m.fetchCount.Add(ctx, 1, opt)
	m.fetchDuration.Record(ctx, float64(duration.Milliseconds()), opt)
}

// nopMetrics discards all measurements.
type nopMetrics struct{}

// NopMetrics returns a Metrics that discards everything.
func NopMetrics() Metrics {
	return nopMetrics{}
}

func (nopMetrics) RecordAdmission(context.Context, string, string, string)             {}
func (nopMetrics) RecordToolCall(context.Context, string, time.Duration, error)        {}
func (nopMetrics) RecordUpstreamFetch(context.Context, string, time.Duration, error)   {}

// Ensure implementations satisfy Metrics.
var (
	_ Metrics = (*metricsImpl)(nil)
	_ Metrics = nopMetrics{}
)
