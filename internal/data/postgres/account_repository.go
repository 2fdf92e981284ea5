// Package postgres provides PostgreSQL implementations of the domain repositories.
// Every repository can be bound to a transaction with WithTx so a money movement
// reads, locks and writes through one atomic unit.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/noblepay-ledger/internal/domain/account"
	"github.com/noblepay-ledger/internal/platform/persistence"
	"github.com/shopspring/decimal"
)

const (
	accountOwnerClassCurrencyKey = "accounts_owner_class_currency_key"

	accountColumnList = `id, owner_id, class, currency, balance, active, version, created_at, updated_at`

	insertAccountSQL = `
		INSERT INTO accounts (` + accountColumnList + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	accountByIDSQL = `
		SELECT ` + accountColumnList + `
		FROM accounts
		WHERE id = $1`

	// Row lock held until the movement transaction ends
	lockAccountSQL = accountByIDSQL + `
		FOR UPDATE`

	accountsByOwnerSQL = `
		SELECT ` + accountColumnList + `
		FROM accounts
		WHERE owner_id = $1
		ORDER BY created_at ASC`

	primaryWalletSQL = `
		SELECT ` + accountColumnList + `
		FROM accounts
		WHERE owner_id = $1 AND class = $2 AND active = TRUE
		ORDER BY created_at ASC
		LIMIT 1`

	// version guards against a writer that skipped the row lock
	setBalanceSQL = `
		UPDATE accounts
		SET balance = $1, version = version + 1, updated_at = NOW()
		WHERE id = $2 AND version = $3`

	setActiveSQL = `
		UPDATE accounts
		SET active = $1, version = version + 1, updated_at = NOW()
		WHERE id = $2`
)

// AccountRepository implements account.Repository for PostgreSQL
type AccountRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewAccountRepository reads and writes accounts through the pool until bound with WithTx
func NewAccountRepository(logger *slog.Logger, db *persistence.PostgresDB) account.Repository {
	return &AccountRepository{querier: db.Pool(), logger: logger}
}

// WithTx binds the repository to the movement transaction
func (r *AccountRepository) WithTx(tx pgx.Tx) account.Repository {
	return &AccountRepository{querier: tx, logger: r.logger}
}

// Create stores a new account. A second account for the same owner, class and
// currency fails with ErrDuplicateAccount.
func (r *AccountRepository) Create(ctx context.Context, acc *account.Account) error {
	_, err := r.querier.Exec(ctx, insertAccountSQL,
		acc.ID, acc.OwnerID, acc.Class, acc.Currency, acc.Balance,
		acc.Active, acc.Version, acc.CreatedAt, acc.UpdatedAt,
	)
	switch {
	case err == nil:
		return nil
	case persistence.IsUniqueViolation(err, accountOwnerClassCurrencyKey):
		return account.ErrDuplicateAccount{OwnerID: acc.OwnerID, Class: acc.Class, Currency: acc.Currency}
	default:
		r.logger.Error("Failed to create account", "owner_id", acc.OwnerID.String(), "error", err)
		return fmt.Errorf("failed to create account: %w", err)
	}
}

func (r *AccountRepository) GetByID(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	return r.one(ctx, "get account", account.ErrAccountNotFound{AccountID: id}, accountByIDSQL, id)
}

// LockForUpdate reads the account under a row lock. Outside a transaction the
// lock is released as soon as the statement finishes.
func (r *AccountRepository) LockForUpdate(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	return r.one(ctx, "lock account for update", account.ErrAccountNotFound{AccountID: id}, lockAccountSQL, id)
}

// FindPrimaryWallet returns the owner's oldest active wallet
func (r *AccountRepository) FindPrimaryWallet(ctx context.Context, ownerID uuid.UUID) (*account.Account, error) {
	return r.one(ctx, "find primary wallet", account.ErrAccountNotFound{}, primaryWalletSQL, ownerID, account.ClassWallet)
}

// ListByOwner returns every account of the owner, oldest first
func (r *AccountRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*account.Account, error) {
	rows, err := r.querier.Query(ctx, accountsByOwnerSQL, ownerID)
	if err != nil {
		r.logger.Error("Failed to list accounts", "owner_id", ownerID.String(), "error", err)
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}

	accounts, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*account.Account, error) {
		return scanAccount(row)
	})
	if err != nil {
		r.logger.Error("Failed to read accounts", "owner_id", ownerID.String(), "error", err)
		return nil, fmt.Errorf("failed to read accounts: %w", err)
	}
	return accounts, nil
}

// UpdateBalance writes balance if the row is still at version, otherwise
// ErrConcurrentModification.
func (r *AccountRepository) UpdateBalance(ctx context.Context, id uuid.UUID, balance decimal.Decimal, version int) error {
	updated, err := r.update(ctx, "update account balance", id, setBalanceSQL, balance, id, version)
	if err != nil {
		return err
	}
	if !updated {
		return account.ErrConcurrentModification{AccountID: id}
	}
	return nil
}

// SetActive flips the active flag. Accounts are never deleted.
func (r *AccountRepository) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	updated, err := r.update(ctx, "update account status", id, setActiveSQL, active, id)
	if err != nil {
		return err
	}
	if !updated {
		return account.ErrAccountNotFound{AccountID: id}
	}
	return nil
}

// one scans a single account, turning an empty result into notFound
func (r *AccountRepository) one(ctx context.Context, action string, notFound error, query string, args ...any) (*account.Account, error) {
	acc, err := scanAccount(r.querier.QueryRow(ctx, query, args...))
	if err == nil {
		return acc, nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, notFound
	}
	r.logger.Error("Failed to "+action, "args", fmt.Sprint(args...), "error", err)
	return nil, fmt.Errorf("failed to %s: %w", action, err)
}

// update reports whether the statement touched a row
func (r *AccountRepository) update(ctx context.Context, action string, id uuid.UUID, query string, args ...any) (bool, error) {
	tag, err := r.querier.Exec(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to "+action, "acc_id", id.String(), "error", err)
		return false, fmt.Errorf("failed to %s: %w", action, err)
	}
	return tag.RowsAffected() > 0, nil
}

func scanAccount(row pgx.Row) (*account.Account, error) {
	var acc account.Account
	if err := row.Scan(
		&acc.ID, &acc.OwnerID, &acc.Class, &acc.Currency, &acc.Balance,
		&acc.Active, &acc.Version, &acc.CreatedAt, &acc.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &acc, nil
}
