// Package producers writes ledger events to Kafka: completed entries to the
// entry topic and unprocessable messages to the dead letter topic.
package producers

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/noblepay-ledger/internal/config"
	"github.com/segmentio/kafka-go"
)

// MessagePublisher writes one keyed message to the entry topic
type MessagePublisher interface {
	Publish(ctx context.Context, key string, value interface{}) error
	Close() error
}

// DeadLetterPublisher parks a message the projector gave up on
type DeadLetterPublisher interface {
	PublishToDLQ(ctx context.Context, key string, originalMessageValue []byte, reason string) error
	Close() error
}

// KafkaWriter is the part of *kafka.Writer the producers use
type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// provisionWriter makes sure topic exists and returns a synchronous writer
// that waits for every in-sync replica.
func provisionWriter(ctx context.Context, logger *slog.Logger, cfg *config.KafkaConfig, topic string, balancer kafka.Balancer) (*kafka.Writer, error) {
	conn, err := kafka.DialContext(ctx, "tcp", cfg.Brokers)
	if err != nil {
		return nil, fmt.Errorf("failed to dial kafka: %w", err)
	}
	defer conn.Close()

	if err := createKafkaTopicIfNotExists(conn, topicConfig(topic, cfg), logger, topicReadAttempts); err != nil {
		return nil, fmt.Errorf("failed to ensure topic %s exists: %w", topic, err)
	}

	return &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers),
		Topic:        topic,
		Balancer:     balancer,
		RequiredAcks: kafka.RequireAll,
		Async:        false,
		WriteTimeout: cfg.MaxWait,
	}, nil
}
