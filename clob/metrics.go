package clob

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/soleret/polyclob/errs"
)

// clientMetrics counts REST traffic per operation. Counters are no-ops
// until a meter provider is installed.
type clientMetrics struct {
	requests  metric.Int64Counter
	failures  metric.Int64Counter
	cacheHits metric.Int64Counter
}

func newClientMetrics() *clientMetrics {
	meter := otel.Meter("polyclob.clob")
	m := &clientMetrics{}
	m.requests, _ = meter.Int64Counter("polyclob_requests",
		metric.WithDescription("REST requests issued to the venue"),
		metric.WithUnit("{request}"))
	m.failures, _ = meter.Int64Counter("polyclob_request_failures",
		metric.WithDescription("REST requests that ended in a transport, venue or decode error"),
		metric.WithUnit("{request}"))
	m.cacheHits, _ = meter.Int64Counter("polyclob_cache_hits",
		metric.WithDescription("Per-token lookups served from the local cache"),
		metric.WithUnit("{lookup}"))
	return m
}

func (m *clientMetrics) request(ctx context.Context, op string) {
	m.requests.Add(ctx, 1, metric.WithAttributes(attribute.String("op", op)))
}

func (m *clientMetrics) failure(ctx context.Context, op string, code errs.Code) {
	m.failures.Add(ctx, 1, metric.WithAttributes(
		attribute.String("op", op),
		attribute.String("code", string(code))))
}

func (m *clientMetrics) cacheHit(ctx context.Context, cache string) {
	m.cacheHits.Add(ctx, 1, metric.WithAttributes(attribute.String("cache", cache)))
}
