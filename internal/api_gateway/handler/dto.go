package handler

import (
	"time"

	"github.com/noblepay-ledger/internal/domain/account"
	"github.com/noblepay-ledger/internal/domain/ledger"
	"github.com/shopspring/decimal"
)

// IdempotencyKeyHeader carries the caller's retry key for money movements
const IdempotencyKeyHeader = "Idempotency-Key"

// CreateAccountRequest represents a request to open an account
type CreateAccountRequest struct {
	Class    string `json:"class" binding:"required,oneof=wallet savings current"`
	Currency string `json:"currency" binding:"required,currency"`
}

// AccountResponse represents an account in API responses
type AccountResponse struct {
	ID        string          `json:"id"`
	OwnerID   string          `json:"owner_id"`
	Class     string          `json:"class"`
	Currency  string          `json:"currency"`
	Balance   decimal.Decimal `json:"balance"`
	Active    bool            `json:"active"`
	CreatedAt string          `json:"created_at"`
	UpdatedAt string          `json:"updated_at"`
}

// FundRequest represents a request to credit an account from outside the ledger
type FundRequest struct {
	Amount decimal.Decimal `json:"amount"`
	Method string          `json:"method" binding:"required,oneof=card bank cash"`
}

// TransferRequest represents a wallet-to-wallet transfer. The recipient is
// named by account or by owner; an omitted source uses the primary wallet.
type TransferRequest struct {
	SourceAccountID    string          `json:"source_account_id" binding:"omitempty,uuid"`
	RecipientAccountID string          `json:"recipient_account_id" binding:"omitempty,uuid"`
	RecipientOwnerID   string          `json:"recipient_owner_id" binding:"omitempty,uuid"`
	Amount             decimal.Decimal `json:"amount"`
	Note               string          `json:"note" binding:"max=256"`
	Channel            string          `json:"channel" binding:"omitempty,oneof=p2p qr"`
}

// BillPaymentRequest represents a bill payment
type BillPaymentRequest struct {
	SourceAccountID string          `json:"source_account_id" binding:"omitempty,uuid"`
	ProviderID      string          `json:"provider_id" binding:"required,uuid"`
	AccountNumber   string          `json:"account_number" binding:"required,max=64"`
	Amount          decimal.Decimal `json:"amount"`
}

// TopUpRequest represents a mobile-money top-up
type TopUpRequest struct {
	SourceAccountID string          `json:"source_account_id" binding:"omitempty,uuid"`
	ProviderID      string          `json:"provider_id" binding:"required,uuid"`
	PhoneNumber     string          `json:"phone_number" binding:"required"`
	Amount          decimal.Decimal `json:"amount"`
}

// RemitRequest represents an international remittance
type RemitRequest struct {
	SourceAccountID  string          `json:"source_account_id" binding:"omitempty,uuid"`
	RecipientPhone   string          `json:"recipient_phone" binding:"required"`
	RecipientName    string          `json:"recipient_name" binding:"required,max=128"`
	RecipientCountry string          `json:"recipient_country" binding:"required,len=2"`
	Amount           decimal.Decimal `json:"amount"`
	Currency         string          `json:"currency" binding:"required,currency"`
	Purpose          string          `json:"purpose" binding:"max=256"`
}

// PurchaseItem is one basket line
type PurchaseItem struct {
	ProductID string `json:"product_id" binding:"required,uuid"`
	Quantity  int    `json:"quantity" binding:"required,min=1"`
}

// PurchaseRequest represents a marketplace checkout
type PurchaseRequest struct {
	SourceAccountID string         `json:"source_account_id" binding:"omitempty,uuid"`
	Items           []PurchaseItem `json:"items" binding:"required,min=1,dive"`
	PaymentMethod   string         `json:"payment_method" binding:"omitempty,oneof=wallet card"`
}

// EntryResponse represents a ledger entry in API responses
type EntryResponse struct {
	Reference     string                 `json:"reference"`
	AccountID     string                 `json:"account_id"`
	Kind          string                 `json:"kind"`
	Direction     string                 `json:"direction"`
	Amount        decimal.Decimal        `json:"amount"`
	Fee           decimal.Decimal        `json:"fee"`
	Currency      string                 `json:"currency"`
	Rate          *decimal.Decimal       `json:"rate,omitempty"`
	Description   string                 `json:"description"`
	Status        string                 `json:"status"`
	FailureReason string                 `json:"failure_reason,omitempty"`
	Metadata      map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt     string                 `json:"created_at"`
	CompletedAt   string                 `json:"completed_at,omitempty"`
}

// PaginationParams represents pagination parameters for list endpoints
type PaginationParams struct {
	Page    int `form:"page,default=1" binding:"min=1"`
	PerPage int `form:"per_page,default=10" binding:"min=1,max=100"`
}

// HistoryParams narrows a paginated history listing by entry kind and status
type HistoryParams struct {
	PaginationParams
	Kind   string `form:"kind"`
	Status string `form:"status"`
}

func (p HistoryParams) filter() ledger.HistoryFilter {
	return ledger.HistoryFilter{Kind: ledger.Kind(p.Kind), Status: ledger.Status(p.Status)}
}

// mapAccountToResponse maps an account entity to an account response DTO
func mapAccountToResponse(acc *account.Account) AccountResponse {
	return AccountResponse{
		ID:        acc.ID.String(),
		OwnerID:   acc.OwnerID.String(),
		Class:     string(acc.Class),
		Currency:  acc.Currency,
		Balance:   acc.Balance,
		Active:    acc.Active,
		CreatedAt: acc.CreatedAt.Format(time.RFC3339),
		UpdatedAt: acc.UpdatedAt.Format(time.RFC3339),
	}
}

// mapEntryToResponse maps a ledger entry to an entry response DTO
func mapEntryToResponse(entry *ledger.Entry) EntryResponse {
	response := EntryResponse{
		Reference:     entry.Reference,
		AccountID:     entry.AccountID.String(),
		Kind:          string(entry.Kind),
		Direction:     string(entry.Direction),
		Amount:        entry.Amount,
		Fee:           entry.Fee,
		Currency:      entry.Currency,
		Description:   entry.Description,
		Status:        string(entry.Status),
		FailureReason: entry.FailureReason,
		Metadata:      entry.Metadata,
		CreatedAt:     entry.CreatedAt.Format(time.RFC3339),
	}

	if entry.Rate.Valid {
		rate := entry.Rate.Decimal
		response.Rate = &rate
	}
	if entry.CompletedAt != nil {
		response.CompletedAt = entry.CompletedAt.Format(time.RFC3339)
	}

	return response
}
