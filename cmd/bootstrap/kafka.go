package bootstrap

import (
	"context"
	"log/slog"

	"tourops-engine/internal/infra/broker/kafka"
	"tourops-engine/internal/pkg/config"
	"tourops-engine/internal/usecase/shared"

	"go.uber.org/fx"
)

var KafkaModule = fx.Module("kafka",
	fx.Provide(
		NewEventPublisher,
	),
)

// NewEventPublisher wires the booking event stream. A disabled or unreachable
// broker falls back to a no-op publisher; bookings never fail because the
// event stream is down.
func NewEventPublisher(lc fx.Lifecycle, cfg config.Config) shared.EventPublisher {
	if !cfg.Kafka.Enabled {
		return kafka.NoopPublisher{}
	}

	producer, err := kafka.NewProducer(cfg.Kafka.Brokers, nil)
	if err != nil {
		slog.Warn("kafka unavailable, booking events disabled", "brokers", cfg.Kafka.Brokers, "error", err.Error())
		return kafka.NoopPublisher{}
	}

	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			return producer.Close()
		},
	})
	return kafka.NewEventPublisher(producer, cfg.Kafka.Topic)
}
