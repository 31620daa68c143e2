package order

import (
	"context"
	"encoding/json"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/bistro/internal/config"
	"github.com/Additional-Code/bistro/internal/messaging"
	ordersvc "github.com/Additional-Code/bistro/internal/service/order"
	"github.com/Additional-Code/bistro/internal/worker"
)

const instrumentationName = "github.com/Additional-Code/bistro/worker/order"

var workerTracer = otel.Tracer(instrumentationName)

// Module registers order-related worker handlers.
var Module = fx.Module("worker_order",
	fx.Provide(
		fx.Annotate(
			NewEventHandler,
			fx.ResultTags(`group:"worker.handlers"`),
		),
	),
)

// NewEventHandler sets up a worker handler that records order lifecycle events.
func NewEventHandler(logger *zap.Logger, cfg config.Config) (worker.HandlerRegistration, error) {
	counter, err := otel.Meter(instrumentationName).Int64Counter(
		"bistro.order.events",
		metric.WithDescription("Order lifecycle events consumed by type."),
	)
	if err != nil {
		return worker.HandlerRegistration{}, err
	}
	logger = logger.Named("worker.orders")

	handler := func(ctx context.Context, msg messaging.Message) error {
		ctx, span := workerTracer.Start(ctx, "worker.orders.process", trace.WithAttributes(
			attribute.String("messaging.topic", msg.Topic),
			attribute.Int64("messaging.offset", msg.Offset),
		))
		defer span.End()

		var event ordersvc.Event
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			// Poison messages are dropped so the partition keeps moving.
			logger.Error("failed to decode order event", zap.Int64("offset", msg.Offset), zap.Error(err))
			span.RecordError(err)
			span.SetStatus(codes.Error, "decode error")
			return nil
		}

		span.SetAttributes(
			attribute.String("order.id", event.ID),
			attribute.String("order.event", string(event.Type)),
		)
		counter.Add(ctx, 1, metric.WithAttributes(attribute.String("type", string(event.Type))))

		fields := []zap.Field{
			zap.String("type", string(event.Type)),
			zap.String("id", event.ID),
			zap.String("user", event.User),
			zap.String("status", string(event.Status)),
			zap.String("total_amount", event.TotalAmount),
			zap.Time("occurred_at", event.OccurredAt),
		}
		if event.PreviousStatus != "" {
			fields = append(fields, zap.String("previous_status", string(event.PreviousStatus)))
		}
		logger.Info("order event processed", fields...)

		return nil
	}

	return worker.HandlerRegistration{
		Topic:   cfg.Messaging.Kafka.Topic,
		Handler: handler,
	}, nil
}
