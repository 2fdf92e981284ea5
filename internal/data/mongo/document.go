package mongo

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/noblepay-ledger/internal/domain/ledger"
)

// entryDocument is the BSON shape of a ledger entry. Money is stored as
// Decimal128 so the projection never goes through float64.
type entryDocument struct {
	ID             string                 `bson:"_id"`
	AccountID      string                 `bson:"account_id"`
	OwnerID        string                 `bson:"owner_id"`
	Kind           ledger.Kind            `bson:"kind"`
	Direction      ledger.Direction       `bson:"direction"`
	Amount         primitive.Decimal128   `bson:"amount"`
	Fee            primitive.Decimal128   `bson:"fee"`
	Currency       string                 `bson:"currency"`
	Rate           *primitive.Decimal128  `bson:"rate,omitempty"`
	Reference      string                 `bson:"reference"`
	IdempotencyKey string                 `bson:"idempotency_key,omitempty"`
	Description    string                 `bson:"description"`
	Status         ledger.Status          `bson:"status"`
	FailureReason  string                 `bson:"failure_reason,omitempty"`
	Metadata       map[string]interface{} `bson:"metadata,omitempty"`
	CreatedAt      time.Time              `bson:"created_at"`
	CompletedAt    *time.Time             `bson:"completed_at,omitempty"`
	ProjectedAt    time.Time              `bson:"projected_at"`
}

func newEntryDocument(entry *ledger.Entry) (*entryDocument, error) {
	amount, err := toDecimal128(entry.Amount)
	if err != nil {
		return nil, err
	}
	fee, err := toDecimal128(entry.Fee)
	if err != nil {
		return nil, err
	}

	doc := &entryDocument{
		ID:             entry.ID.String(),
		AccountID:      entry.AccountID.String(),
		OwnerID:        entry.OwnerID.String(),
		Kind:           entry.Kind,
		Direction:      entry.Direction,
		Amount:         amount,
		Fee:            fee,
		Currency:       entry.Currency,
		Reference:      entry.Reference,
		IdempotencyKey: entry.IdempotencyKey,
		Description:    entry.Description,
		Status:         entry.Status,
		FailureReason:  entry.FailureReason,
		Metadata:       entry.Metadata,
		CreatedAt:      entry.CreatedAt,
		CompletedAt:    entry.CompletedAt,
		ProjectedAt:    nowUTC(),
	}

	if entry.Rate.Valid {
		rate, err := toDecimal128(entry.Rate.Decimal)
		if err != nil {
			return nil, err
		}
		doc.Rate = &rate
	}

	return doc, nil
}

func (d *entryDocument) toEntry() (*ledger.Entry, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid entry id: %w", err)
	}
	accountID, err := uuid.Parse(d.AccountID)
	if err != nil {
		return nil, fmt.Errorf("invalid account id: %w", err)
	}
	ownerID, err := uuid.Parse(d.OwnerID)
	if err != nil {
		return nil, fmt.Errorf("invalid owner id: %w", err)
	}
	amount, err := fromDecimal128(d.Amount)
	if err != nil {
		return nil, err
	}
	fee, err := fromDecimal128(d.Fee)
	if err != nil {
		return nil, err
	}

	entry := &ledger.Entry{
		ID:             id,
		AccountID:      accountID,
		OwnerID:        ownerID,
		Kind:           d.Kind,
		Direction:      d.Direction,
		Amount:         amount,
		Fee:            fee,
		Currency:       d.Currency,
		Reference:      d.Reference,
		IdempotencyKey: d.IdempotencyKey,
		Description:    d.Description,
		Status:         d.Status,
		FailureReason:  d.FailureReason,
		Metadata:       d.Metadata,
		CreatedAt:      d.CreatedAt,
		CompletedAt:    d.CompletedAt,
	}
	if entry.Metadata == nil {
		entry.Metadata = map[string]interface{}{}
	}

	if d.Rate != nil {
		rate, err := fromDecimal128(*d.Rate)
		if err != nil {
			return nil, err
		}
		entry.Rate = decimal.NewNullDecimal(rate)
	}

	return entry, nil
}

func toDecimal128(d decimal.Decimal) (primitive.Decimal128, error) {
	v, err := primitive.ParseDecimal128(d.String())
	if err != nil {
		return primitive.Decimal128{}, fmt.Errorf("invalid decimal %s: %w", d.String(), err)
	}
	return v, nil
}

func fromDecimal128(v primitive.Decimal128) (decimal.Decimal, error) {
	coefficient, exp, err := v.BigInt()
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid decimal128: %w", err)
	}
	return decimal.NewFromBigInt(coefficient, int32(exp)), nil
}
