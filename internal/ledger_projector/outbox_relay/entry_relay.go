package outbox_relay

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/noblepay-ledger/internal/domain/outbox"
	"github.com/noblepay-ledger/internal/domain/shared"
	"github.com/noblepay-ledger/internal/platform/messaging/producers"
)

// EntryRelay moves one outbox message onto the entry topic
type EntryRelay interface {
	Relay(ctx context.Context, message *outbox.Message) error
}

// KafkaEntryRelay implements EntryRelay with a Kafka publisher
type KafkaEntryRelay struct {
	outboxRepo outbox.Repository
	publisher  producers.MessagePublisher
	logger     *slog.Logger
}

// NewKafkaEntryRelay creates a new relay
func NewKafkaEntryRelay(
	outboxRepo outbox.Repository,
	publisher producers.MessagePublisher,
	logger *slog.Logger,
) *KafkaEntryRelay {
	return &KafkaEntryRelay{
		outboxRepo: outboxRepo,
		publisher:  publisher,
		logger:     logger,
	}
}

// Relay publishes the stored entry keyed by account and marks the message processed.
// A payload that does not decode is marked FAILED_TO_PUBLISH immediately.
func (r *KafkaEntryRelay) Relay(ctx context.Context, message *outbox.Message) error {
	entry, err := message.GetLedgerEntry()
	if err != nil {
		r.logger.Error("Failed to decode ledger entry from outbox payload",
			"outbox_id", message.ID, "entry_id", message.EntryID, "error", err,
		)
		if updateErr := r.outboxRepo.UpdateStatus(ctx, message.ID, shared.OutboxStatusFailedToPublish); updateErr != nil {
			r.logger.Error("Also failed to update outbox status to FAILED_TO_PUBLISH after decode error", "outbox_id", message.ID, "update_error", updateErr)
		}
		return fmt.Errorf("decode payload for outbox %d failed: %w", message.ID, err)
	}

	logger := r.logger.With("reference", entry.Reference)

	if err := r.publisher.Publish(ctx, message.Key(), message.Payload); err != nil {
		return fmt.Errorf("failed to publish entry %s: %w", entry.Reference, err)
	}

	if err := r.outboxRepo.UpdateStatus(ctx, message.ID, shared.OutboxStatusProcessed); err != nil {
		// The event is out; the next poll republishes it and the projection upsert absorbs the duplicate
		logger.Error("Failed to update outbox message status to PROCESSED",
			"outbox_id", message.ID, "error", err,
		)
		return fmt.Errorf("entry %s published, but failed to mark outbox %d as PROCESSED: %w", entry.Reference, message.ID, err)
	}

	logger.Debug("Relayed outbox message", "outbox_id", message.ID, "entry_id", message.EntryID)
	return nil
}
