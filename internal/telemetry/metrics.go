package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/relaytranslate/relaytranslate/internal/telemetry"

// TranslationMetrics records completion API calls and dispatch outcomes.
// A nil *TranslationMetrics is valid and records nothing.
type TranslationMetrics struct {
	requestDuration metric.Float64Histogram
	requestTotal    metric.Int64Counter
	outcomeTotal    metric.Int64Counter
	healthFailures  metric.Int64Gauge
}

// NewTranslationMetrics creates the instruments on the global meter provider.
func NewTranslationMetrics() (*TranslationMetrics, error) {
	meter := otel.Meter(meterName)

	requestDuration, err := meter.Float64Histogram(
		"translation.request.duration",
		metric.WithDescription("Duration of completion API requests in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	requestTotal, err := meter.Int64Counter(
		"translation.request.total",
		metric.WithDescription("Total number of completion API requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	outcomeTotal, err := meter.Int64Counter(
		"dispatch.message.total",
		metric.WithDescription("Messages handled by the dispatch pipeline, by outcome"),
		metric.WithUnit("{message}"),
	)
	if err != nil {
		return nil, err
	}

	healthFailures, err := meter.Int64Gauge(
		"health.consecutive_failures",
		metric.WithDescription("Consecutive unhealthy health check cycles"),
		metric.WithUnit("{cycle}"),
	)
	if err != nil {
		return nil, err
	}

	return &TranslationMetrics{
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		outcomeTotal:    outcomeTotal,
		healthFailures:  healthFailures,
	}, nil
}

// RecordRequest records one completion API call. errorKind is empty on success.
func (m *TranslationMetrics) RecordRequest(source, target string, duration time.Duration, errorKind string) {
	if m == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("translation.source", source),
		attribute.String("translation.target", target),
	}
	if errorKind != "" {
		attrs = append(attrs, attribute.String("error.kind", errorKind))
	}

	ctx := context.TODO()
	m.requestDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
	m.requestTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordOutcome records the terminal state of one dispatched message.
func (m *TranslationMetrics) RecordOutcome(outcome string) {
	if m == nil {
		return
	}
	m.outcomeTotal.Add(context.TODO(), 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

// RecordHealth records the consecutive failure count after a health check.
func (m *TranslationMetrics) RecordHealth(status string, failures int64) {
	if m == nil {
		return
	}
	m.healthFailures.Record(context.TODO(), failures, metric.WithAttributes(attribute.String("status", status)))
}
