package account

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// Repository defines account persistence operations
type Repository interface {
	Create(ctx context.Context, account *Account) error
	GetByID(ctx context.Context, id uuid.UUID) (*Account, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*Account, error)

	// FindPrimaryWallet returns the owner's oldest active wallet
	FindPrimaryWallet(ctx context.Context, ownerID uuid.UUID) (*Account, error)

	// UpdateBalance writes the new balance using optimistic locking on version
	UpdateBalance(ctx context.Context, id uuid.UUID, balance decimal.Decimal, version int) error
	SetActive(ctx context.Context, id uuid.UUID, active bool) error

	// LockForUpdate acquires a pessimistic lock for the rest of the transaction
	LockForUpdate(ctx context.Context, id uuid.UUID) (*Account, error)
	WithTx(tx pgx.Tx) Repository
}

// ErrConcurrentModification indicates optimistic lock failure
type ErrConcurrentModification struct {
	AccountID uuid.UUID
}

func (e ErrConcurrentModification) Error() string {
	return "concurrent modification detected for account: " + e.AccountID.String()
}

// ErrAccountNotFound indicates missing account
type ErrAccountNotFound struct {
	AccountID uuid.UUID
}

func (e ErrAccountNotFound) Error() string {
	if e.AccountID == uuid.Nil {
		return "account not found"
	}
	return "account not found: " + e.AccountID.String()
}

// Is matches any ErrAccountNotFound when the target carries no AccountID
func (e ErrAccountNotFound) Is(target error) bool {
	t, ok := target.(ErrAccountNotFound)
	if !ok {
		return false
	}
	return t.AccountID == uuid.Nil || t.AccountID == e.AccountID
}

// ErrAccountInactive indicates a movement against a deactivated account
type ErrAccountInactive struct {
	AccountID uuid.UUID
}

func (e ErrAccountInactive) Error() string {
	return "account is inactive: " + e.AccountID.String()
}

// Is matches any ErrAccountInactive when the target carries no AccountID
func (e ErrAccountInactive) Is(target error) bool {
	t, ok := target.(ErrAccountInactive)
	if !ok {
		return false
	}
	return t.AccountID == uuid.Nil || t.AccountID == e.AccountID
}

// ErrInsufficientFunds carries what a debit needed against what was available
type ErrInsufficientFunds struct {
	AccountID uuid.UUID
	Required  decimal.Decimal
	Available decimal.Decimal
	Currency  string
}

func (e ErrInsufficientFunds) Error() string {
	return fmt.Sprintf("insufficient funds: required %s %s, available %s %s",
		e.Required.StringFixed(2), e.Currency, e.Available.StringFixed(2), e.Currency)
}

// Is matches any ErrInsufficientFunds when the target carries no AccountID
func (e ErrInsufficientFunds) Is(target error) bool {
	t, ok := target.(ErrInsufficientFunds)
	if !ok {
		return false
	}
	return t.AccountID == uuid.Nil || t.AccountID == e.AccountID
}

// ErrDuplicateAccount indicates the owner already holds an account of this class and currency
type ErrDuplicateAccount struct {
	OwnerID  uuid.UUID
	Class    Class
	Currency string
}

func (e ErrDuplicateAccount) Error() string {
	return fmt.Sprintf("owner already has a %s account in %s", e.Class, e.Currency)
}

// Is matches any ErrDuplicateAccount when the target carries no OwnerID
func (e ErrDuplicateAccount) Is(target error) bool {
	t, ok := target.(ErrDuplicateAccount)
	if !ok {
		return false
	}
	return t.OwnerID == uuid.Nil || t == e
}
