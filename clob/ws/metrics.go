package ws

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type streamMetrics struct {
	channel string

	reconnects    metric.Int64Counter
	messages      metric.Int64Counter
	messageBytes  metric.Int64Histogram
	dropped       metric.Int64Counter
	subscriptions metric.Int64UpDownCounter
}

func newStreamMetrics(channel string) *streamMetrics {
	meter := otel.Meter("polyclob.ws")

	sm := &streamMetrics{channel: channel}

	sm.reconnects, _ = meter.Int64Counter("polyclob_ws_reconnects",
		metric.WithDescription("Websocket connect and reconnect attempts"),
		metric.WithUnit("{reconnect}"))

	sm.messages, _ = meter.Int64Counter("polyclob_ws_messages",
		metric.WithDescription("Event frames received from the venue"),
		metric.WithUnit("{message}"))

	sm.messageBytes, _ = meter.Int64Histogram("polyclob_ws_message_bytes",
		metric.WithDescription("Size of received event frames"),
		metric.WithUnit("By"))

	sm.dropped, _ = meter.Int64Counter("polyclob_ws_dropped_messages",
		metric.WithDescription("Messages dropped because a subscriber lagged"),
		metric.WithUnit("{message}"))

	sm.subscriptions, _ = meter.Int64UpDownCounter("polyclob_ws_active_subscriptions",
		metric.WithDescription("Subscriptions currently attached to websocket channels"),
		metric.WithUnit("{subscription}"))

	return sm
}

func (sm *streamMetrics) baseAttrs() []attribute.KeyValue {
	if sm == nil {
		return nil
	}
	return []attribute.KeyValue{attribute.String("channel", sm.channel)}
}

func (sm *streamMetrics) recordReconnect(ctx context.Context, result string) {
	if sm == nil || sm.reconnects == nil {
		return
	}
	ctx = ensureContext(ctx)
	attrs := sm.baseAttrs()
	if result != "" {
		attrs = append(attrs, attribute.String("result", result))
	}
	sm.reconnects.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func (sm *streamMetrics) recordMessage(ctx context.Context, bytes int) {
	if sm == nil || sm.messages == nil || sm.messageBytes == nil || bytes <= 0 {
		return
	}
	ctx = ensureContext(ctx)
	attrs := sm.baseAttrs()
	sm.messages.Add(ctx, 1, metric.WithAttributes(attrs...))
	sm.messageBytes.Record(ctx, int64(bytes), metric.WithAttributes(attrs...))
}

func (sm *streamMetrics) recordDrop(ctx context.Context) {
	if sm == nil || sm.dropped == nil {
		return
	}
	sm.dropped.Add(ensureContext(ctx), 1, metric.WithAttributes(sm.baseAttrs()...))
}

func (sm *streamMetrics) adjustSubscriptions(ctx context.Context, delta int) {
	if sm == nil || sm.subscriptions == nil || delta == 0 {
		return
	}
	sm.subscriptions.Add(ensureContext(ctx), int64(delta), metric.WithAttributes(sm.baseAttrs()...))
}

func ensureContext(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
