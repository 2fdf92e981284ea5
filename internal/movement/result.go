package movement

import (
	"time"

	"github.com/google/uuid"
	"github.com/noblepay-ledger/internal/domain/ledger"
	"github.com/shopspring/decimal"
)

// Result is the outcome of a committed movement. It is also what an
// idempotent replay returns, with Replayed set.
type Result struct {
	Reference            string           `json:"reference"`
	CounterpartReference string           `json:"counterpart_reference,omitempty"`
	Kind                 ledger.Kind      `json:"kind"`
	AccountID            uuid.UUID        `json:"account_id"`
	Amount               decimal.Decimal  `json:"amount"`
	Fee                  decimal.Decimal  `json:"fee"`
	TotalDebited         decimal.Decimal  `json:"total_debited"`
	Currency             string           `json:"currency"`
	Rate                 *decimal.Decimal `json:"rate,omitempty"`
	PayoutAmount         *decimal.Decimal `json:"payout_amount,omitempty"`
	PayoutCurrency       string           `json:"payout_currency,omitempty"`
	NewBalance           decimal.Decimal  `json:"new_balance"`
	OrderID              *uuid.UUID       `json:"order_id,omitempty"`
	OrderTotal           *decimal.Decimal `json:"order_total,omitempty"`
	CompletedAt          time.Time        `json:"completed_at"`
	Replayed             bool             `json:"replayed"`
}

// Balance is a point-in-time read of one account
type Balance struct {
	AccountID uuid.UUID       `json:"account_id"`
	Balance   decimal.Decimal `json:"balance"`
	Currency  string          `json:"currency"`
}
