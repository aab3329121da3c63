// Package observe provides observability primitives for hartstem:
// OpenTelemetry metrics with a Prometheus exporter bridge so the
// standard /metrics endpoint keeps working.
//
// A package-level default [Metrics] instance ([DefaultMetrics]) is
// provided for convenience; tests should use [NewMetrics] with a custom
// [metric.MeterProvider] to avoid cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all metrics.
const meterName = "github.com/jmolenaar/hartstem"

// Metrics holds all OpenTelemetry metric instruments for the engine.
// All fields are safe for concurrent use — the underlying OTel types
// handle their own synchronisation.
type Metrics struct {
	// ResponseLatency tracks time from user turn to completed model
	// response.
	ResponseLatency metric.Float64Histogram

	// MessagesIn counts inbound server events. Use with attribute:
	//   attribute.String("kind", ...)
	MessagesIn metric.Int64Counter

	// MessagesOut counts outbound client events. Use with attribute:
	//   attribute.String("kind", ...)
	MessagesOut metric.Int64Counter

	// QuestionsAsked counts distinct questions recorded per phase.
	QuestionsAsked metric.Int64Counter

	// ExtractionHits counts patient-data extractions by bucket.
	ExtractionHits metric.Int64Counter

	// AudioChunksIn counts captured microphone chunks streamed out.
	AudioChunksIn metric.Int64Counter

	// AudioChunksOut counts assistant speech chunks received.
	AudioChunksOut metric.Int64Counter

	// EngineErrors counts engine errors by class.
	EngineErrors metric.Int64Counter

	// ActiveSessions tracks the number of live realtime sessions.
	ActiveSessions metric.Int64UpDownCounter
}

// latencyBuckets defines histogram bucket boundaries (in seconds)
// sized for conversational response latencies.
var latencyBuckets = []float64{
	0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 45,
}

// NewMetrics creates a fully initialised [Metrics] struct using the
// given [metric.MeterProvider]. Returns an error if any instrument
// creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.ResponseLatency, err = m.Float64Histogram("hartstem.response.latency",
		metric.WithDescription("Time from user turn to completed model response."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.MessagesIn, err = m.Int64Counter("hartstem.messages.in",
		metric.WithDescription("Inbound server events by kind."),
	); err != nil {
		return nil, err
	}
	if met.MessagesOut, err = m.Int64Counter("hartstem.messages.out",
		metric.WithDescription("Outbound client events by kind."),
	); err != nil {
		return nil, err
	}
	if met.QuestionsAsked, err = m.Int64Counter("hartstem.questions.asked",
		metric.WithDescription("Distinct interview questions recorded by phase."),
	); err != nil {
		return nil, err
	}
	if met.ExtractionHits, err = m.Int64Counter("hartstem.extraction.hits",
		metric.WithDescription("Patient data extractions by bucket."),
	); err != nil {
		return nil, err
	}
	if met.AudioChunksIn, err = m.Int64Counter("hartstem.audio.chunks.in",
		metric.WithDescription("Captured microphone chunks streamed to the model."),
	); err != nil {
		return nil, err
	}
	if met.AudioChunksOut, err = m.Int64Counter("hartstem.audio.chunks.out",
		metric.WithDescription("Assistant speech chunks received from the model."),
	); err != nil {
		return nil, err
	}
	if met.EngineErrors, err = m.Int64Counter("hartstem.engine.errors",
		metric.WithDescription("Engine errors by class."),
	); err != nil {
		return nil, err
	}
	if met.ActiveSessions, err = m.Int64UpDownCounter("hartstem.active_sessions",
		metric.WithDescription("Number of live realtime sessions."),
	); err != nil {
		return nil, err
	}

	return met, nil
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating
// it on first call using [otel.GetMeterProvider]. Subsequent calls
// return the same pointer. Panics if instrument creation fails (should
// not happen with the global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// RecordMessageIn increments the inbound message counter for kind.
func (m *Metrics) RecordMessageIn(ctx context.Context, kind string) {
	m.MessagesIn.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
}

// RecordMessageOut increments the outbound message counter for kind.
func (m *Metrics) RecordMessageOut(ctx context.Context, kind string) {
	m.MessagesOut.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
}

// RecordQuestionAsked increments the asked-question counter for phase.
func (m *Metrics) RecordQuestionAsked(ctx context.Context, phase string) {
	m.QuestionsAsked.Add(ctx, 1, metric.WithAttributes(attribute.String("phase", phase)))
}

// RecordExtractionHit increments the extraction counter for bucket.
func (m *Metrics) RecordExtractionHit(ctx context.Context, bucket string) {
	m.ExtractionHits.Add(ctx, 1, metric.WithAttributes(attribute.String("bucket", bucket)))
}

// RecordEngineError increments the error counter for class.
func (m *Metrics) RecordEngineError(ctx context.Context, class string) {
	m.EngineErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("class", class)))
}
