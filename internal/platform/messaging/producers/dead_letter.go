package producers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/noblepay-ledger/internal/config"
	"github.com/segmentio/kafka-go"
)

// ErrDLQDisabled is returned when publishing through a producer built without a DLQ topic
var ErrDLQDisabled = errors.New("DLQ producer not initialized")

// DeadLetter is what lands on the dead letter topic: the raw event the
// projector refused plus why and when.
type DeadLetter struct {
	Key      string    `json:"key"`
	Value    string    `json:"value"`
	Reason   string    `json:"reason"`
	FailedAt time.Time `json:"failed_at"`
}

// DLQProducer parks unprocessable entry events on the dead letter topic
type DLQProducer struct {
	logger   *slog.Logger
	writer   KafkaWriter
	dlqTopic string
}

// NewDLQProducer returns a nil producer if cfg.DLQTopic is empty (DLQ disabled)
func NewDLQProducer(ctx context.Context, logger *slog.Logger, cfg *config.KafkaConfig) (*DLQProducer, error) {
	if cfg.DLQTopic == "" {
		logger.Info("DLQ topic is not configured. DLQProducer will not be initialized.")
		return nil, nil
	}

	writer, err := provisionWriter(ctx, logger, cfg, cfg.DLQTopic, &kafka.LeastBytes{})
	if err != nil {
		return nil, fmt.Errorf("dlq producer: %w", err)
	}

	return &DLQProducer{
		logger:   logger,
		writer:   writer,
		dlqTopic: cfg.DLQTopic,
	}, nil
}

// PublishToDLQ parks the event under its original key so an operator can replay it onto the entry topic
func (p *DLQProducer) PublishToDLQ(ctx context.Context, key string, originalMessageValue []byte, reason string) error {
	if p == nil || p.writer == nil {
		return ErrDLQDisabled
	}

	letter := DeadLetter{
		Key:      key,
		Value:    string(originalMessageValue),
		Reason:   reason,
		FailedAt: time.Now().UTC(),
	}
	payload, err := json.Marshal(letter)
	if err != nil {
		return fmt.Errorf("failed to marshal dead letter: %w", err)
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(key),
		Value: payload,
		Time:  letter.FailedAt,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(EntryEventType)},
			{Key: "dlq-reason", Value: []byte(reason)},
		},
	})
	if err != nil {
		p.logger.Error("Failed to park entry event on DLQ", "topic", p.dlqTopic, "key", key, "error", err)
		return fmt.Errorf("failed to publish message to DLQ %s: %w", p.dlqTopic, err)
	}

	p.logger.Warn("Parked entry event on DLQ", "topic", p.dlqTopic, "key", key, "reason", reason)
	return nil
}

// Close is safe on a nil or disabled producer
func (p *DLQProducer) Close() error {
	if p == nil || p.writer == nil {
		return nil
	}
	p.logger.Info("Closing DLQ producer", "topic", p.dlqTopic)
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("failed to close dlq kafka writer for topic %s: %w", p.dlqTopic, err)
	}
	return nil
}
