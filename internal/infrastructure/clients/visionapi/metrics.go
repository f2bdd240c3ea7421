package visionapi

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type visionMetrics struct {
	requestCount    metric.Int64Counter
	requestDuration metric.Float64Histogram
	requestErrors   metric.Int64Counter
	rateLimitWait   metric.Float64Histogram
}

var visionMetricsOnce sync.Once
var visionMetricsInit = false
var metrics visionMetrics

// ensureVisionMetrics is called from concurrent detection fan-out, so
// instrument registration runs under a Once.
func ensureVisionMetrics() {
	visionMetricsOnce.Do(initVisionMetrics)
}

func initVisionMetrics() {
	meter := otel.Meter("github.com/snapdish/core/internal/infrastructure/clients/visionapi")

	requestCount, err := meter.Int64Counter(
		"ai.vision.request.count",
		metric.WithDescription("Number of vision API requests"),
	)
	if err != nil {
		return
	}
	requestDuration, err := meter.Float64Histogram(
		"ai.vision.request.duration",
		metric.WithDescription("Vision API request duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return
	}
	requestErrors, err := meter.Int64Counter(
		"ai.vision.request.errors",
		metric.WithDescription("Number of vision API request errors"),
	)
	if err != nil {
		return
	}
	rateLimitWait, err := meter.Float64Histogram(
		"ai.vision.rate_limit.wait",
		metric.WithDescription("Time spent waiting for the client rate limiter in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return
	}

	metrics = visionMetrics{
		requestCount:    requestCount,
		requestDuration: requestDuration,
		requestErrors:   requestErrors,
		rateLimitWait:   rateLimitWait,
	}
	visionMetricsInit = true
}

func recordRequestMetric(ctx context.Context, operation string, statusCode int, duration time.Duration, err error) {
	ensureVisionMetrics()
	if !visionMetricsInit {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("ai.operation", operation),
	}
	if statusCode > 0 {
		attrs = append(attrs, attribute.Int("http.status_code", statusCode))
	}

	metrics.requestCount.Add(ctx, 1, metric.WithAttributes(attrs...))
	metrics.requestDuration.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))
	if err != nil {
		metrics.requestErrors.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
}

func recordRateLimitWait(ctx context.Context, operation string, wait time.Duration) {
	ensureVisionMetrics()
	if !visionMetricsInit {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String("ai.operation", operation),
	}
	metrics.rateLimitWait.Record(ctx, float64(wait.Milliseconds()), metric.WithAttributes(attrs...))
}
