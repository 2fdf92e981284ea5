package account

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/noblepay-ledger/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Common errors
var (
	ErrInvalidAmount = errors.New("amount must be positive")
	ErrEmptyOwner    = errors.New("owner id cannot be empty")
	ErrInvalidClass  = errors.New("account class must be wallet, savings or current")
)

// Class is the kind of store of value an account represents
type Class string

const (
	ClassWallet  Class = "wallet"
	ClassSavings Class = "savings"
	ClassCurrent Class = "current"
)

// Valid reports whether c is a known account class
func (c Class) Valid() bool {
	switch c {
	case ClassWallet, ClassSavings, ClassCurrent:
		return true
	}
	return false
}

// Account represents a holder's balance in one class and currency
type Account struct {
	ID        uuid.UUID       `json:"id"`
	OwnerID   uuid.UUID       `json:"owner_id"`
	Class     Class           `json:"class"`
	Currency  string          `json:"currency"`
	Balance   decimal.Decimal `json:"balance"`
	Active    bool            `json:"active"`
	Version   int             `json:"version"` // For optimistic locking
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// NewAccount creates an empty, active account for the owner
func NewAccount(ownerID uuid.UUID, class Class, currency string) (*Account, error) {
	if ownerID == uuid.Nil {
		return nil, ErrEmptyOwner
	}
	if !class.Valid() {
		return nil, ErrInvalidClass
	}
	code, err := shared.NormalizeCurrency(currency)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	return &Account{
		ID:        uuid.New(),
		OwnerID:   ownerID,
		Class:     class,
		Currency:  code,
		Balance:   decimal.Zero,
		Active:    true,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Credit adds amount to the balance
func (a *Account) Credit(amount decimal.Decimal) error {
	if !a.Active {
		return ErrAccountInactive{AccountID: a.ID}
	}
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}

	a.Balance = a.Balance.Add(amount)
	a.touch()
	return nil
}

// Debit subtracts amount from the balance. The balance never goes below zero.
func (a *Account) Debit(amount decimal.Decimal) error {
	if !a.Active {
		return ErrAccountInactive{AccountID: a.ID}
	}
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	if !a.CanDebit(amount) {
		return ErrInsufficientFunds{
			AccountID: a.ID,
			Required:  amount,
			Available: a.Balance,
			Currency:  a.Currency,
		}
	}

	a.Balance = a.Balance.Sub(amount)
	a.touch()
	return nil
}

// CanDebit checks if the balance covers amount
func (a *Account) CanDebit(amount decimal.Decimal) bool {
	return a.Balance.GreaterThanOrEqual(amount)
}

// Deactivate closes the account for further movements. Accounts are never deleted.
func (a *Account) Deactivate() {
	if !a.Active {
		return
	}
	a.Active = false
	a.touch()
}

func (a *Account) touch() {
	a.UpdatedAt = time.Now().UTC()
	a.Version++
}
