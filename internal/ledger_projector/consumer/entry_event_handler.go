package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/noblepay-ledger/internal/domain/ledger"
	"github.com/noblepay-ledger/internal/ledger_projector/service"
	"github.com/noblepay-ledger/internal/platform/messaging/producers"
	"github.com/noblepay-ledger/internal/platform/metrics"
)

// EntryEventHandler handles completed-entry messages from Kafka
type EntryEventHandler struct {
	projectionService service.ProjectionService
	producer          producers.DeadLetterPublisher
	logger            *slog.Logger
}

// NewEntryEventHandler creates a new handler. producer may be nil when no DLQ is configured.
func NewEntryEventHandler(
	logger *slog.Logger,
	projectionService service.ProjectionService,
	producer producers.DeadLetterPublisher,
) *EntryEventHandler {
	return &EntryEventHandler{
		projectionService: projectionService,
		producer:          producer,
		logger:            logger,
	}
}

// HandleMessage projects one entry event. Messages that can never be projected
// go to the DLQ; a projection failure returns an error so the offset stays uncommitted.
func (h *EntryEventHandler) HandleMessage(ctx context.Context, key []byte, value []byte) error {
	var entry ledger.Entry
	if err := json.Unmarshal(value, &entry); err != nil {
		return h.deadLetter(ctx, key, value, "unmarshal", fmt.Errorf("failed to unmarshal entry event: %w", err))
	}
	if entry.Reference == "" || entry.Status != ledger.StatusCompleted {
		return h.deadLetter(ctx, key, value, "invalid", fmt.Errorf("entry event %q is not a completed entry", entry.Reference))
	}

	logger := h.logger.With("reference", entry.Reference)

	if err := h.projectionService.Project(ctx, &entry); err != nil {
		metrics.EntriesProjected.WithLabelValues("failed").Inc()
		logger.Error("Failed to project entry",
			"account_id", entry.AccountID.String(),
			"error", err,
		)
		return fmt.Errorf("projecting entry %s failed: %w", entry.Reference, err)
	}

	metrics.EntriesProjected.WithLabelValues("projected").Inc()
	logger.Info("Projected entry",
		"account_id", entry.AccountID.String(),
		"kind", entry.Kind,
		"direction", entry.Direction,
		"amount", entry.Amount,
	)
	return nil
}

func (h *EntryEventHandler) deadLetter(ctx context.Context, key, value []byte, reason string, cause error) error {
	h.logger.Error("Unprocessable entry event", "error", cause, "message_key", string(key))

	if h.producer == nil {
		// Allow Kafka retries
		return cause
	}

	if err := h.producer.PublishToDLQ(ctx, string(key), value, cause.Error()); err != nil {
		h.logger.Error("Failed to publish message to DLQ",
			"dlq_error", err,
			"original_error", cause,
			"message_key", string(key),
		)
		return cause
	}

	metrics.DLQPublished.WithLabelValues(reason).Inc()
	h.logger.Info("Published unprocessable message to DLQ", "message_key", string(key), "reason", reason)
	return nil
}
