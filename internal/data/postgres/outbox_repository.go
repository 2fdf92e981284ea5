package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/noblepay-ledger/internal/domain/outbox"
	"github.com/noblepay-ledger/internal/domain/shared"
	"github.com/noblepay-ledger/internal/platform/persistence"
)

const (
	outboxColumnList = `id, entry_id, account_id, payload, status, attempts, created_at, last_attempt_at`

	insertOutboxSQL = `
		INSERT INTO ledger_outbox (entry_id, account_id, payload, status, attempts, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`

	// SKIP LOCKED lets several relays drain the table without double publishing
	pendingOutboxSQL = `
		SELECT ` + outboxColumnList + `
		FROM ledger_outbox
		WHERE status = $1
		ORDER BY created_at ASC, id ASC
		LIMIT $2
		FOR UPDATE SKIP LOCKED`

	countPendingOutboxSQL = `SELECT COUNT(*) FROM ledger_outbox WHERE status = $1`

	setOutboxStatusSQL = `
		UPDATE ledger_outbox
		SET status = $1, last_attempt_at = $2
		WHERE id = $3`

	bumpOutboxAttemptsSQL = `
		UPDATE ledger_outbox
		SET attempts = attempts + 1, last_attempt_at = $1
		WHERE id = $2`
)

// OutboxRepository keeps entry events in ledger_outbox until the relay publishes them
type OutboxRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

func NewOutboxRepository(logger *slog.Logger, db *persistence.PostgresDB) outbox.Repository {
	return &OutboxRepository{querier: db.Pool(), logger: logger}
}

// WithTx binds the repository to the movement transaction
func (r *OutboxRepository) WithTx(tx pgx.Tx) outbox.Repository {
	return &OutboxRepository{querier: tx, logger: r.logger}
}

func (r *OutboxRepository) Create(ctx context.Context, message *outbox.Message) error {
	err := r.querier.QueryRow(ctx, insertOutboxSQL,
		message.EntryID,
		message.AccountID,
		[]byte(message.Payload),
		message.Status,
		message.Attempts,
		message.CreatedAt,
	).Scan(&message.ID)
	if err != nil {
		r.logger.Error("Failed to create outbox message", "entry_id", message.EntryID.String(), "error", err)
		return fmt.Errorf("failed to create outbox message: %w", err)
	}
	return nil
}

func (r *OutboxRepository) GetPending(ctx context.Context, limit int) ([]*outbox.Message, error) {
	rows, err := r.querier.Query(ctx, pendingOutboxSQL, shared.OutboxStatusPending, limit)
	if err != nil {
		r.logger.Error("Failed to get pending outbox messages", "error", err)
		return nil, fmt.Errorf("failed to get pending outbox messages: %w", err)
	}

	messages, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*outbox.Message, error) {
		return scanOutboxMessage(row)
	})
	if err != nil {
		r.logger.Error("Failed to read pending outbox messages", "error", err)
		return nil, fmt.Errorf("failed to read pending outbox messages: %w", err)
	}
	return messages, nil
}

func (r *OutboxRepository) CountPending(ctx context.Context) (int64, error) {
	var pending int64
	if err := r.querier.QueryRow(ctx, countPendingOutboxSQL, shared.OutboxStatusPending).Scan(&pending); err != nil {
		r.logger.Error("Failed to count pending outbox messages", "error", err)
		return 0, fmt.Errorf("failed to count pending outbox messages: %w", err)
	}
	return pending, nil
}

// UpdateStatus moves a message to status and stamps the attempt time
func (r *OutboxRepository) UpdateStatus(ctx context.Context, id int64, status shared.OutboxStatus) error {
	return r.touch(ctx, id, "update outbox message status", setOutboxStatusSQL, status, time.Now().UTC(), id)
}

// IncrementAttempts counts one failed publish
func (r *OutboxRepository) IncrementAttempts(ctx context.Context, id int64) error {
	return r.touch(ctx, id, "increment outbox message attempts", bumpOutboxAttemptsSQL, time.Now().UTC(), id)
}

// touch runs a single-row update and reports a missing row as ErrMessageNotFound
func (r *OutboxRepository) touch(ctx context.Context, id int64, action, query string, args ...interface{}) error {
	tag, err := r.querier.Exec(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to "+action, "id", id, "error", err)
		return fmt.Errorf("failed to %s: %w", action, err)
	}
	if tag.RowsAffected() == 0 {
		return outbox.ErrMessageNotFound{ID: id}
	}
	return nil
}

func scanOutboxMessage(row pgx.Row) (*outbox.Message, error) {
	var m outbox.Message
	if err := row.Scan(&m.ID, &m.EntryID, &m.AccountID, &m.Payload, &m.Status, &m.Attempts, &m.CreatedAt, &m.LastAttemptAt); err != nil {
		return nil, err
	}
	return &m, nil
}
