// Package observe provides OpenTelemetry metrics for the transcription
// session.
//
// Metrics are recorded through the OTel Metrics API and exported through a
// Prometheus bridge set up by [InitProvider], so the ops HTTP listener can
// serve them on the standard /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all metrics.
const meterName = "github.com/MrWong99/kalamu"

// Metrics holds all OTel metric instruments for the application. All fields
// are safe for concurrent use.
type Metrics struct {
	// --- Latency histograms per pipeline stage ---

	// DownloadDuration tracks clip audio download latency.
	DownloadDuration metric.Float64Histogram

	// TranscribeDuration tracks transcription backend latency.
	TranscribeDuration metric.Float64Histogram

	// ReviewDuration tracks how long the human took from draft write to
	// submission.
	ReviewDuration metric.Float64Histogram

	// --- Counters ---

	// ClipsProcessed counts completed clip cycles. Use with attribute:
	//   attribute.String("status", "submitted"|"skipped")
	ClipsProcessed metric.Int64Counter

	// BackendRequests counts transcription backend calls. Use with attributes:
	//   attribute.String("backend", ...), attribute.String("status", ...)
	BackendRequests metric.Int64Counter

	// BackendErrors counts transcription backend errors by backend name.
	BackendErrors metric.Int64Counter

	// CodeSwitchSpans counts marked code-switch spans across all clips.
	CodeSwitchSpans metric.Int64Counter

	// --- Gauges ---

	// ClipsInFlight tracks clips between fetch and submission; by design it
	// never exceeds 1.
	ClipsInFlight metric.Int64UpDownCounter
}

// downloadBuckets and transcribeBuckets define histogram boundaries in
// seconds. Downloads are quick; transcription and human review run much
// longer.
var (
	downloadBuckets   = []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30}
	transcribeBuckets = []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300}
	reviewBuckets     = []float64{5, 15, 30, 60, 120, 300, 600}
)

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.DownloadDuration, err = m.Float64Histogram("kalamu.download.duration",
		metric.WithDescription("Latency of clip audio downloads."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(downloadBuckets...),
	); err != nil {
		return nil, err
	}
	if met.TranscribeDuration, err = m.Float64Histogram("kalamu.transcribe.duration",
		metric.WithDescription("Latency of transcription backend calls."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(transcribeBuckets...),
	); err != nil {
		return nil, err
	}
	if met.ReviewDuration, err = m.Float64Histogram("kalamu.review.duration",
		metric.WithDescription("Time from draft write to human submission."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(reviewBuckets...),
	); err != nil {
		return nil, err
	}

	if met.ClipsProcessed, err = m.Int64Counter("kalamu.clips.processed",
		metric.WithDescription("Completed clip cycles by status."),
	); err != nil {
		return nil, err
	}
	if met.BackendRequests, err = m.Int64Counter("kalamu.backend.requests",
		metric.WithDescription("Transcription backend calls by backend and status."),
	); err != nil {
		return nil, err
	}
	if met.BackendErrors, err = m.Int64Counter("kalamu.backend.errors",
		metric.WithDescription("Transcription backend errors by backend."),
	); err != nil {
		return nil, err
	}
	if met.CodeSwitchSpans, err = m.Int64Counter("kalamu.codeswitch.spans",
		metric.WithDescription("Marked code-switch spans across all clips."),
	); err != nil {
		return nil, err
	}

	if met.ClipsInFlight, err = m.Int64UpDownCounter("kalamu.clips.in_flight",
		metric.WithDescription("Clips between fetch and submission."),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it
// on first call using [otel.GetMeterProvider]. Panics if instrument creation
// fails (should not happen with the global provider).
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

// RecordClipProcessed records one completed clip cycle with its outcome.
func (m *Metrics) RecordClipProcessed(ctx context.Context, status string) {
	m.ClipsProcessed.Add(ctx, 1,
		metric.WithAttributes(attribute.String("status", status)),
	)
}

// RecordBackendRequest records one transcription backend call.
func (m *Metrics) RecordBackendRequest(ctx context.Context, backend, status string) {
	m.BackendRequests.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("backend", backend),
			attribute.String("status", status),
		),
	)
}

// RecordBackendError records one transcription backend error.
func (m *Metrics) RecordBackendError(ctx context.Context, backend string) {
	m.BackendErrors.Add(ctx, 1,
		metric.WithAttributes(attribute.String("backend", backend)),
	)
}
