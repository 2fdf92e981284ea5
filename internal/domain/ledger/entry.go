package ledger

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/noblepay-ledger/internal/domain/shared"
	"github.com/shopspring/decimal"
)

var (
	ErrInvalidAmount    = errors.New("entry amount must be positive")
	ErrInvalidFee       = errors.New("entry fee cannot be negative")
	ErrInvalidKind      = errors.New("unknown entry kind")
	ErrInvalidStatus    = errors.New("unknown entry status")
	ErrInvalidDirection = errors.New("entry direction must be debit or credit")
	ErrEmptyReference   = errors.New("entry reference cannot be empty")
)

// Kind identifies the money movement an entry records
type Kind string

const (
	KindFunding    Kind = "funding"
	KindTransfer   Kind = "transfer"
	KindBill       Kind = "bill"
	KindTopUp      Kind = "topup"
	KindRemittance Kind = "remittance"
	KindPurchase   Kind = "marketplace_purchase"
)

// Valid reports whether k is a known kind
func (k Kind) Valid() bool {
	switch k {
	case KindFunding, KindTransfer, KindBill, KindTopUp, KindRemittance, KindPurchase:
		return true
	}
	return false
}

// Direction carries the sign of an entry; amounts are never negative
type Direction string

const (
	DirectionDebit  Direction = "debit"
	DirectionCredit Direction = "credit"
)

// Status is the lifecycle state of an entry
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// Entry is an append-only record of one balance-affecting event
type Entry struct {
	ID             uuid.UUID              `json:"id"`
	AccountID      uuid.UUID              `json:"account_id"`
	OwnerID        uuid.UUID              `json:"owner_id"`
	Kind           Kind                   `json:"kind"`
	Direction      Direction              `json:"direction"`
	Amount         decimal.Decimal        `json:"amount"`
	Fee            decimal.Decimal        `json:"fee"`
	Currency       string                 `json:"currency"`
	Rate           decimal.NullDecimal    `json:"rate"`
	Reference      string                 `json:"reference"`
	IdempotencyKey string                 `json:"idempotency_key,omitempty"`
	Description    string                 `json:"description"`
	Status         Status                 `json:"status"`
	FailureReason  string                 `json:"failure_reason,omitempty"`
	Metadata       map[string]interface{} `json:"metadata"`
	CreatedAt      time.Time              `json:"created_at"`
	CompletedAt    *time.Time             `json:"completed_at,omitempty"`
}

// Draft describes an entry before it is recorded
type Draft struct {
	AccountID      uuid.UUID
	OwnerID        uuid.UUID
	Kind           Kind
	Direction      Direction
	Amount         decimal.Decimal
	Fee            decimal.Decimal
	Currency       string
	Rate           decimal.NullDecimal
	Reference      string
	IdempotencyKey string
	Description    string
	Metadata       map[string]interface{}
}

// Record validates d and returns a pending entry. It has no side effects;
// persistence happens inside the caller's transaction.
func Record(d Draft) (*Entry, error) {
	if !d.Kind.Valid() {
		return nil, ErrInvalidKind
	}
	if d.Direction != DirectionDebit && d.Direction != DirectionCredit {
		return nil, ErrInvalidDirection
	}
	if !d.Amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	if d.Fee.IsNegative() {
		return nil, ErrInvalidFee
	}
	if !shared.IsSupportedCurrency(d.Currency) {
		return nil, shared.ErrInvalidCurrency
	}
	if strings.TrimSpace(d.Reference) == "" {
		return nil, ErrEmptyReference
	}

	metadata := d.Metadata
	if metadata == nil {
		metadata = map[string]interface{}{}
	}

	return &Entry{
		ID:             uuid.New(),
		AccountID:      d.AccountID,
		OwnerID:        d.OwnerID,
		Kind:           d.Kind,
		Direction:      d.Direction,
		Amount:         d.Amount,
		Fee:            d.Fee,
		Currency:       d.Currency,
		Rate:           d.Rate,
		Reference:      d.Reference,
		IdempotencyKey: d.IdempotencyKey,
		Description:    d.Description,
		Status:         StatusPending,
		Metadata:       metadata,
		CreatedAt:      time.Now().UTC(),
	}, nil
}

// Complete moves a pending entry to completed
func (e *Entry) Complete(at time.Time) error {
	if e.Status != StatusPending {
		return ErrInvalidTransition{From: e.Status, To: StatusCompleted}
	}
	at = at.UTC()
	e.Status = StatusCompleted
	e.CompletedAt = &at
	return nil
}

// Fail moves a pending entry to failed with a reason
func (e *Entry) Fail(reason string) error {
	if e.Status != StatusPending {
		return ErrInvalidTransition{From: e.Status, To: StatusFailed}
	}
	e.Status = StatusFailed
	e.FailureReason = reason
	return nil
}

// Total is what the entry moved out of (or into) the account, fee included
func (e *Entry) Total() decimal.Decimal {
	return e.Amount.Add(e.Fee)
}

// CounterpartReference derives the credit-side reference for a two-party movement.
// Generated references never contain '-', so derived ones cannot collide with them.
func CounterpartReference(reference string) string {
	return reference + "-IN"
}
