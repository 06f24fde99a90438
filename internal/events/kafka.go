package events

import (
	"context"
	"fmt"
	"medbook/pkg/config"
	"medbook/pkg/kafka"
	kafka_config "medbook/pkg/kafka/config"
	kafka_middleware "medbook/pkg/kafka/middleware"
	"medbook/pkg/logger"
	"medbook/pkg/middleware"
)

// KafkaPublisher writes events to one topic through the shared producer.
type KafkaPublisher struct {
	producer *kafka.Producer
	source   string
	stats    *kafka_middleware.PublishStats
	log      *logger.Logger
}

func NewKafkaPublisher(producer *kafka.Producer, source string) *KafkaPublisher {
	return &KafkaPublisher{
		producer: producer,
		source:   source,
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, event Event) error {
	msg, err := kafka.NewMessage().
		WithKey(event.Key).
		WithValue(event.Payload).
		WithEventType(string(event.Type)).
		WithCorrelationID(middleware.RequestIDFromContext(ctx)).
		WithSchemaVersion(SchemaVersion).
		WithSource(p.source).
		Build()
	if err != nil {
		return fmt.Errorf("failed to build %s event: %w", event.Type, err)
	}
	return p.producer.Publish(ctx, msg)
}

// Close flushes the producer. Publish counts are logged when stats were attached.
func (p *KafkaPublisher) Close() error {
	if p.stats != nil && p.log != nil {
		snap := p.stats.Snapshot()
		p.log.Info("Event publisher closing",
			"published", snap.Published,
			"failed", snap.Failed,
			"avg_publish_duration", snap.AvgDuration,
		)
	}
	return p.producer.Close()
}

// FromConfig returns a Kafka publisher when EVENTS_ENABLED is set and a no-op
// publisher otherwise.
func FromConfig(cfg *config.Config, source string) (Publisher, error) {
	if !cfg.EventsEnabled {
		cfg.Log.Info("Domain events disabled")
		return Nop(), nil
	}

	kafkaCfg, err := kafka_config.Load(cfg.EventsTopic)
	if err != nil {
		return nil, err
	}
	kafkaCfg.LogConfiguration(cfg.Log)

	producer, err := kafka.NewProducer(kafkaCfg, cfg.EventsTopic, kafkaCfg.DLQTopic, cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}
	stats := &kafka_middleware.PublishStats{}
	producer.Use(kafka_middleware.MetricsProducerMiddleware(stats))
	if kafkaCfg.EnableMiddleware {
		producer.Use(kafka_middleware.LoggingProducerMiddleware(cfg.Log))
	}

	cfg.Log.Info("Domain events enabled",
		"topic", cfg.EventsTopic,
		"brokers", kafkaCfg.Brokers,
	)
	publisher := NewKafkaPublisher(producer, source)
	publisher.stats = stats
	publisher.log = cfg.Log
	return publisher, nil
}
