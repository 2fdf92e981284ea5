package movement

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/noblepay-ledger/internal/domain/ledger"
	"github.com/noblepay-ledger/internal/domain/outbox"
)

// entryRecorder writes completed entries and their outbox messages through
// the repositories of the current unit
type entryRecorder struct {
	logger *slog.Logger
}

func newEntryRecorder(logger *slog.Logger) *entryRecorder {
	return &entryRecorder{logger: logger}
}

// record turns each draft into a completed entry stamped at, inserts it and
// queues it for the projector
func (r *entryRecorder) record(ctx context.Context, u *unit, at time.Time, drafts ...ledger.Draft) ([]*ledger.Entry, error) {
	entries := make([]*ledger.Entry, 0, len(drafts))
	for _, draft := range drafts {
		entry, err := ledger.Record(draft)
		if err != nil {
			return nil, err
		}
		if err := entry.Complete(at); err != nil {
			return nil, err
		}

		if err := u.entries.Create(ctx, entry); err != nil {
			return nil, err
		}

		message, err := outbox.NewMessage(entry)
		if err != nil {
			r.logger.Error("Failed to create new outbox message (marshal payload)",
				"reference", entry.Reference,
				"error", err,
			)
			return nil, fmt.Errorf("failed to create outbox message payload for %s: %w", entry.Reference, err)
		}

		if err := u.outbox.Create(ctx, message); err != nil {
			r.logger.Error("Failed to create outbox message",
				"reference", entry.Reference,
				"acc_id", entry.AccountID.String(),
				"error", err,
			)
			return nil, fmt.Errorf("failed to create outbox message for %s: %w", entry.Reference, err)
		}
		r.logger.Debug("Entry recorded",
			"reference", entry.Reference,
			"outbox_id", message.ID,
		)

		entries = append(entries, entry)
	}
	return entries, nil
}
