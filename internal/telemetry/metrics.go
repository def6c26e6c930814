package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/edasaruhan/FTL-Ethiopia-ML2-Gr16"

// Metrics holds all custom metrics for the service. A nil *Metrics records nothing.
type Metrics struct {
	HTTPRequestsTotal metric.Int64Counter
	HTTPDurationMs    metric.Float64Histogram

	PatientTotal           metric.Int64Counter
	ScreeningTotal         metric.Int64Counter
	InferenceDurationMs    metric.Float64Histogram
	InferenceFailuresTotal metric.Int64Counter
	ChatRequestsTotal      metric.Int64Counter
	AccountTotal           metric.Int64Counter

	AuthFailuresTotal       metric.Int64Counter
	PermissionCheckDuration metric.Float64Histogram
}

// InitMetrics registers metrics on the global meter provider.
func InitMetrics() (*Metrics, error) {
	return NewMetrics(otel.Meter(meterName))
}

// NewMetrics registers metrics on meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	var (
		m   Metrics
		err error
	)
	counters := []struct {
		dst  *metric.Int64Counter
		name string
		desc string
		unit string
	}{
		{&m.HTTPRequestsTotal, "http_server_requests_total", "Total number of HTTP requests", "{request}"},
		{&m.PatientTotal, "patient_total", "Total number of patient operations", "{operation}"},
		{&m.ScreeningTotal, "screening_total", "Screenings created, by derived result", "{screening}"},
		{&m.InferenceFailuresTotal, "inference_failures_total", "Failed classifications, by reason", "{failure}"},
		{&m.ChatRequestsTotal, "chat_requests_total", "Chatbot requests, by outcome", "{request}"},
		{&m.AccountTotal, "account_total", "Total number of account operations", "{operation}"},
		{&m.AuthFailuresTotal, "auth_failures_total", "Total number of authentication failures", "{failure}"},
	}
	for _, c := range counters {
		if *c.dst, err = meter.Int64Counter(c.name, metric.WithDescription(c.desc), metric.WithUnit(c.unit)); err != nil {
			return nil, err
		}
	}

	histograms := []struct {
		dst  *metric.Float64Histogram
		name string
		desc string
	}{
		{&m.HTTPDurationMs, "http_server_duration_milliseconds", "HTTP request duration in milliseconds"},
		{&m.InferenceDurationMs, "inference_duration_milliseconds", "Model forward pass duration in milliseconds"},
		{&m.PermissionCheckDuration, "permission_check_duration_ms", "Permission check duration in milliseconds"},
	}
	for _, h := range histograms {
		if *h.dst, err = meter.Float64Histogram(h.name, metric.WithDescription(h.desc), metric.WithUnit("ms")); err != nil {
			return nil, err
		}
	}
	return &m, nil
}

// RecordHTTPRequest records an HTTP request metric
func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, route string, statusCode int, durationMs float64) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("http_method", method),
		attribute.String("http_route", route),
		attribute.Int("http_status_code", statusCode),
	)
	m.HTTPRequestsTotal.Add(ctx, 1, attrs)
	m.HTTPDurationMs.Record(ctx, durationMs, attrs)
}

func (m *Metrics) RecordPatientOperation(ctx context.Context, operation string) {
	if m == nil {
		return
	}
	m.PatientTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("operation", operation)))
}

func (m *Metrics) RecordAccountOperation(ctx context.Context, operation string) {
	if m == nil {
		return
	}
	m.AccountTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("operation", operation)))
}

// RecordScreening counts a committed screening by its derived result.
func (m *Metrics) RecordScreening(ctx context.Context, result string) {
	if m == nil {
		return
	}
	m.ScreeningTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}

func (m *Metrics) RecordInference(ctx context.Context, durationMs float64) {
	if m == nil {
		return
	}
	m.InferenceDurationMs.Record(ctx, durationMs)
}

func (m *Metrics) RecordInferenceFailure(ctx context.Context, reason string) {
	if m == nil {
		return
	}
	m.InferenceFailuresTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}

func (m *Metrics) RecordChatRequest(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	m.ChatRequestsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

// RecordAuthFailure records an authentication failure metric
func (m *Metrics) RecordAuthFailure(ctx context.Context, reason string) {
	if m == nil {
		return
	}
	m.AuthFailuresTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}

// RecordPermissionCheck records permission check duration and outcome.
func (m *Metrics) RecordPermissionCheck(ctx context.Context, permission string, durationMs float64, allowed bool) {
	if m == nil {
		return
	}
	m.PermissionCheckDuration.Record(ctx, durationMs, metric.WithAttributes(
		attribute.String("permission", permission),
		attribute.Bool("allowed", allowed),
	))
}
