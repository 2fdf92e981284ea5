package outbox

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/noblepay-ledger/internal/domain/shared"
)

// Repository stores the entry events waiting for the relay. Create is only
// meaningful inside the movement transaction, so callers bind it with WithTx.
type Repository interface {
	Create(ctx context.Context, message *Message) error
	// GetPending returns up to limit PENDING messages, oldest first
	GetPending(ctx context.Context, limit int) ([]*Message, error)
	// CountPending reports the relay backlog
	CountPending(ctx context.Context) (int64, error)
	UpdateStatus(ctx context.Context, id int64, status shared.OutboxStatus) error
	IncrementAttempts(ctx context.Context, id int64) error
	WithTx(tx pgx.Tx) Repository
}

type ErrMessageNotFound struct {
	ID int64
}

func (e ErrMessageNotFound) Error() string {
	return fmt.Sprintf("outbox message %d not found", e.ID)
}
