package producers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/noblepay-ledger/internal/config"
	"github.com/segmentio/kafka-go"
)

// EntryEventType is the header value carried by every completed-entry event
const EntryEventType = "ledger.entry.completed"

// EntryEventProducer relays completed ledger entries to the entry topic.
// Writes are synchronous so the outbox relay only marks a row processed once the broker acknowledged it.
type EntryEventProducer struct {
	logger *slog.Logger
	writer KafkaWriter // Interface for testability
	topic  string
}

// NewEntryEventProducer creates the producer and ensures the entry topic exists
func NewEntryEventProducer(ctx context.Context, logger *slog.Logger, cfg *config.KafkaConfig) (*EntryEventProducer, error) {
	if cfg.EntryTopic == "" {
		return nil, fmt.Errorf("kafka entry topic is not configured")
	}

	// Keyed by account so one account's entries stay ordered within a partition
	writer, err := provisionWriter(ctx, logger, cfg, cfg.EntryTopic, &kafka.Hash{})
	if err != nil {
		return nil, fmt.Errorf("entry producer: %w", err)
	}

	return newEntryEventProducer(logger, writer, cfg.EntryTopic), nil
}

func newEntryEventProducer(logger *slog.Logger, writer KafkaWriter, topic string) *EntryEventProducer {
	return &EntryEventProducer{
		logger: logger,
		writer: writer,
		topic:  topic,
	}
}

// Publish encodes value as JSON and writes it under key
func (p *EntryEventProducer) Publish(ctx context.Context, key string, value interface{}) error {
	var payload []byte
	switch v := value.(type) {
	case json.RawMessage:
		payload = v
	case []byte:
		payload = v
	default:
		encoded, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("failed to marshal entry event: %w", err)
		}
		payload = encoded
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(EntryEventType)},
			{Key: "content-type", Value: []byte("application/json")},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("Failed to publish entry event",
			"topic", p.topic,
			"key", key,
			"error", err,
		)
		return fmt.Errorf("failed to publish entry event to %s: %w", p.topic, err)
	}

	p.logger.Debug("Published entry event",
		"topic", p.topic,
		"key", key,
	)
	return nil
}

// Close flushes and closes the underlying writer
func (p *EntryEventProducer) Close() error {
	p.logger.Info("Closing entry event producer", "topic", p.topic)
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("failed to close entry kafka writer for topic %s: %w", p.topic, err)
	}
	return nil
}
