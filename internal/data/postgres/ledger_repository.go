package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/noblepay-ledger/internal/domain/ledger"
	"github.com/noblepay-ledger/internal/platform/persistence"
)

const ledgerReferenceKey = "ledger_entries_reference_key"

// LedgerRepository implements the authoritative ledger.Repository for PostgreSQL.
// Entries are inserted once; there is deliberately no update statement.
type LedgerRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewLedgerRepository creates a new PostgreSQL ledger repository
func NewLedgerRepository(logger *slog.Logger, db *persistence.PostgresDB) ledger.Repository {
	return &LedgerRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx binds the repository to a transaction
func (r *LedgerRepository) WithTx(tx pgx.Tx) ledger.Repository {
	return &LedgerRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Create inserts a completed entry. A reference collision yields ErrDuplicateReference
// so the caller can regenerate the reference and retry.
func (r *LedgerRepository) Create(ctx context.Context, entry *ledger.Entry) error {
	query := `
		INSERT INTO ledger_entries (id, account_id, owner_id, kind, direction, amount, fee, currency, rate,
			reference, idempotency_key, description, status, metadata, created_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`

	metadata, err := json.Marshal(entry.Metadata)
	if err != nil {
		return fmt.Errorf("failed to encode entry metadata: %w", err)
	}

	_, err = r.querier.Exec(ctx, query,
		entry.ID,
		entry.AccountID,
		entry.OwnerID,
		entry.Kind,
		entry.Direction,
		entry.Amount,
		entry.Fee,
		entry.Currency,
		entry.Rate,
		entry.Reference,
		nullableString(entry.IdempotencyKey),
		entry.Description,
		entry.Status,
		metadata,
		entry.CreatedAt,
		entry.CompletedAt,
	)
	if err != nil {
		if persistence.IsUniqueViolation(err, ledgerReferenceKey) {
			r.logger.Warn("Ledger reference collision", "reference", entry.Reference)
			return ledger.ErrDuplicateReference{Reference: entry.Reference}
		}
		r.logger.Error("Failed to create ledger entry", "reference", entry.Reference, "error", err)
		return fmt.Errorf("failed to create ledger entry: %w", err)
	}

	return nil
}

// GetByReference is the authoritative lookup a caller uses after a timeout
func (r *LedgerRepository) GetByReference(ctx context.Context, reference string) (*ledger.Entry, error) {
	query := `
		SELECT id, account_id, owner_id, kind, direction, amount, fee, currency, rate,
			reference, COALESCE(idempotency_key, ''), description, status, metadata, created_at, completed_at
		FROM ledger_entries
		WHERE reference = $1
	`

	var (
		entry    ledger.Entry
		metadata []byte
	)
	err := r.querier.QueryRow(ctx, query, reference).Scan(
		&entry.ID,
		&entry.AccountID,
		&entry.OwnerID,
		&entry.Kind,
		&entry.Direction,
		&entry.Amount,
		&entry.Fee,
		&entry.Currency,
		&entry.Rate,
		&entry.Reference,
		&entry.IdempotencyKey,
		&entry.Description,
		&entry.Status,
		&metadata,
		&entry.CreatedAt,
		&entry.CompletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ledger.ErrEntryNotFound{Reference: reference}
		}
		r.logger.Error("Failed to get ledger entry", "reference", reference, "error", err)
		return nil, fmt.Errorf("failed to get ledger entry: %w", err)
	}

	if err := json.Unmarshal(metadata, &entry.Metadata); err != nil {
		return nil, fmt.Errorf("failed to decode entry metadata: %w", err)
	}

	return &entry, nil
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
