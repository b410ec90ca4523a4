// Package metrics exposes application metrics through OpenTelemetry with a Prometheus exporter.
package metrics

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// DefaultBuckets provides a common set of histogram buckets in seconds that can
// be reused across the application for latency metrics.
var DefaultBuckets = []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30}

// Metrics records application metrics. A nil *Metrics is a no-op.
type Metrics struct {
	provider *sdkmetric.MeterProvider
	gatherer prometheus.Gatherer

	httpDuration        metric.Float64Histogram
	llmDuration         metric.Float64Histogram
	interviewsCompleted metric.Int64Counter
	questionsGenerated  metric.Int64Counter
	webhookDeliveries   metric.Int64Counter
	uploadsRejected     metric.Int64Counter
}

// New registers the exporter with reg. A nil reg uses the default registry.
func New(reg *prometheus.Registry) (*Metrics, error) {
	var (
		registerer prometheus.Registerer = prometheus.DefaultRegisterer
		gatherer   prometheus.Gatherer   = prometheus.DefaultGatherer
	)
	if reg != nil {
		registerer, gatherer = reg, reg
	}

	exp, err := otelprom.New(otelprom.WithRegisterer(registerer))
	if err != nil {
		return nil, fmt.Errorf("could not create otel exporter: %w", err)
	}
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exp))
	meter := mp.Meter("github.com/Gradiiai/gradii-sub007")

	m := &Metrics{provider: mp, gatherer: gatherer}
	if m.httpDuration, err = meter.Float64Histogram("http.server.request.duration",
		metric.WithUnit("s"),
		metric.WithDescription("Duration of HTTP requests."),
		metric.WithExplicitBucketBoundaries(DefaultBuckets...)); err != nil {
		return nil, err
	}
	if m.llmDuration, err = meter.Float64Histogram("gradii.llm.duration",
		metric.WithUnit("s"),
		metric.WithDescription("Duration of LLM calls."),
		metric.WithExplicitBucketBoundaries(DefaultBuckets...)); err != nil {
		return nil, err
	}
	if m.interviewsCompleted, err = meter.Int64Counter("gradii.interviews.completed",
		metric.WithDescription("Interviews completed by candidates.")); err != nil {
		return nil, err
	}
	if m.questionsGenerated, err = meter.Int64Counter("gradii.questions.generated",
		metric.WithDescription("Questions generated by the LLM.")); err != nil {
		return nil, err
	}
	if m.webhookDeliveries, err = meter.Int64Counter("gradii.webhook.deliveries",
		metric.WithDescription("Webhook delivery attempts by outcome.")); err != nil {
		return nil, err
	}
	if m.uploadsRejected, err = meter.Int64Counter("gradii.uploads.rejected",
		metric.WithDescription("Uploads rejected by validation, rate limit or antivirus.")); err != nil {
		return nil, err
	}
	return m, nil
}

// Handler serves the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

func (m *Metrics) Shutdown(ctx context.Context) error {
	if m == nil {
		return nil
	}
	return m.provider.Shutdown(ctx)
}

func (m *Metrics) ObserveHTTP(ctx context.Context, method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.httpDuration.Record(ctx, d.Seconds(), metric.WithAttributes(
		attribute.String("http.request.method", method),
		attribute.String("http.route", route),
		attribute.String("http.response.status_code", strconv.Itoa(status)),
	))
}

func (m *Metrics) ObserveLLM(ctx context.Context, operation string, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.llmDuration.Record(ctx, d.Seconds(), metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.Bool("error", err != nil),
	))
}

func (m *Metrics) InterviewCompleted(ctx context.Context) {
	if m == nil {
		return
	}
	m.interviewsCompleted.Add(ctx, 1)
}

func (m *Metrics) QuestionsGenerated(ctx context.Context, questionType string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.questionsGenerated.Add(ctx, int64(n), metric.WithAttributes(attribute.String("type", questionType)))
}

func (m *Metrics) WebhookDelivery(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	m.webhookDeliveries.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func (m *Metrics) UploadRejected(ctx context.Context, kind, reason string) {
	if m == nil {
		return
	}
	m.uploadsRejected.Add(ctx, 1, metric.WithAttributes(
		attribute.String("kind", kind),
		attribute.String("reason", reason),
	))
}
