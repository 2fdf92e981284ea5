package movement

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/noblepay-ledger/internal/domain/ledger"
	"github.com/noblepay-ledger/internal/domain/shared"
)

// failureRecorder keeps refused attempts for audit. They never reach the
// ledger, and recording is best effort: a failure here is logged, never returned.
type failureRecorder struct {
	log    ledger.FailureLog
	logger *slog.Logger
}

func newFailureRecorder(log ledger.FailureLog, logger *slog.Logger) *failureRecorder {
	return &failureRecorder{log: log, logger: logger}
}

func (r *failureRecorder) recordFailure(ctx context.Context, m *movement, reference string, reason shared.FailureReason) {
	if r.log == nil {
		return
	}

	entry := &ledger.Entry{
		ID:             uuid.New(),
		AccountID:      m.accountID,
		OwnerID:        m.ownerID,
		Kind:           m.kind,
		Direction:      m.direction,
		Amount:         m.amount,
		Fee:            m.fee,
		Currency:       m.currency,
		Reference:      reference,
		IdempotencyKey: m.idempotencyKey,
		Description:    m.description,
		Status:         ledger.StatusPending,
		Metadata:       map[string]interface{}{"operation": string(m.operation)},
		CreatedAt:      time.Now().UTC(),
	}
	if err := entry.Fail(string(reason)); err != nil {
		r.logger.Error("Failed to mark entry as failed", "reference", reference, "error", err)
		return
	}

	if err := r.log.Record(ctx, entry); err != nil {
		r.logger.Error("Failed to record movement failure", "reference", reference, "reason", reason, "error", err)
		return
	}
	r.logger.Info("Recorded movement failure", "reference", reference, "reason", reason)
}
