package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/noblepay-ledger/internal/domain/idempotency"
	"github.com/noblepay-ledger/internal/platform/persistence"
)

const idempotencyKeysPKey = "idempotency_keys_pkey"

// IdempotencyRepository stores keyed results in the same transaction as the entries they describe
type IdempotencyRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewIdempotencyRepository creates a new PostgreSQL idempotency repository
func NewIdempotencyRepository(logger *slog.Logger, db *persistence.PostgresDB) idempotency.Repository {
	return &IdempotencyRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx binds the repository to a transaction
func (r *IdempotencyRepository) WithTx(tx pgx.Tx) idempotency.Repository {
	return &IdempotencyRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Get returns the record for (owner, key), or nil when unused
func (r *IdempotencyRepository) Get(ctx context.Context, ownerID uuid.UUID, key string) (*idempotency.Record, error) {
	query := `
		SELECT owner_id, key, operation, reference, result, created_at
		FROM idempotency_keys
		WHERE owner_id = $1 AND key = $2
	`

	var rec idempotency.Record
	err := r.querier.QueryRow(ctx, query, ownerID, key).Scan(
		&rec.OwnerID,
		&rec.Key,
		&rec.Operation,
		&rec.Reference,
		&rec.Result,
		&rec.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error("Failed to get idempotency record", "key", key, "error", err)
		return nil, fmt.Errorf("failed to get idempotency record: %w", err)
	}

	return &rec, nil
}

// Create inserts the record. A concurrent request that committed the key first yields ErrKeyConflict.
func (r *IdempotencyRepository) Create(ctx context.Context, rec *idempotency.Record) error {
	query := `
		INSERT INTO idempotency_keys (owner_id, key, operation, reference, result, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.querier.Exec(ctx, query,
		rec.OwnerID,
		rec.Key,
		rec.Operation,
		rec.Reference,
		[]byte(rec.Result),
		rec.CreatedAt,
	)
	if err != nil {
		if persistence.IsUniqueViolation(err, idempotencyKeysPKey) {
			return idempotency.ErrKeyConflict{Key: rec.Key}
		}
		r.logger.Error("Failed to create idempotency record", "key", rec.Key, "error", err)
		return fmt.Errorf("failed to create idempotency record: %w", err)
	}

	return nil
}
