package movement

import (
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/noblepay-ledger/internal/domain/catalog"
	"github.com/noblepay-ledger/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Operation names the money movement a request performs. It is stored with
// idempotency records so a key cannot be reused for a different operation.
type Operation string

const (
	OperationFund     Operation = "fund"
	OperationTransfer Operation = "transfer"
	OperationPayBill  Operation = "pay_bill"
	OperationTopUp    Operation = "topup_mobile"
	OperationRemit    Operation = "remit"
	OperationPurchase Operation = "purchase"
)

// FundingMethod is where funded money comes from. It is recorded, not settled.
type FundingMethod string

const (
	FundingMethodCard FundingMethod = "card"
	FundingMethodBank FundingMethod = "bank"
	FundingMethodCash FundingMethod = "cash"
)

// Channel is how a transfer was initiated
type Channel string

const (
	ChannelP2P Channel = "p2p"
	ChannelQR  Channel = "qr"
)

const maxIdempotencyKeyLength = 128

var (
	phonePattern   = regexp.MustCompile(`^\+?[0-9]{7,15}$`)
	countryPattern = regexp.MustCompile(`^[A-Z]{2}$`)
)

// FundRequest credits an owner's account from an external source
type FundRequest struct {
	OwnerID        uuid.UUID
	AccountID      uuid.UUID
	Amount         decimal.Decimal
	Method         FundingMethod
	IdempotencyKey string
}

func (r FundRequest) Validate() error {
	if err := validateCommon(r.OwnerID, r.Amount, r.IdempotencyKey); err != nil {
		return err
	}
	if r.AccountID == uuid.Nil {
		return ValidationError{Field: "account_id", Message: "is required"}
	}
	switch r.Method {
	case FundingMethodCard, FundingMethodBank, FundingMethodCash:
	default:
		return ValidationError{Field: "method", Message: "must be card, bank or cash"}
	}
	return nil
}

// Destination identifies a transfer recipient by account or by owner. When
// only the owner is given, the owner's primary wallet receives the money.
type Destination struct {
	AccountID uuid.UUID
	OwnerID   uuid.UUID
}

// TransferRequest moves money between two wallet holders
type TransferRequest struct {
	OwnerID         uuid.UUID
	SourceAccountID uuid.UUID // Nil selects the primary wallet
	Destination     Destination
	Amount          decimal.Decimal
	Note            string
	Channel         Channel
	IdempotencyKey  string
}

func (r TransferRequest) Validate() error {
	if err := validateCommon(r.OwnerID, r.Amount, r.IdempotencyKey); err != nil {
		return err
	}
	if r.Destination.AccountID == uuid.Nil && r.Destination.OwnerID == uuid.Nil {
		return ValidationError{Field: "destination", Message: "account_id or owner_id is required"}
	}
	if r.Destination.OwnerID == r.OwnerID {
		return ErrSelfOperationNotAllowed
	}
	if r.Destination.AccountID != uuid.Nil && r.Destination.AccountID == r.SourceAccountID {
		return ErrSelfOperationNotAllowed
	}
	switch r.Channel {
	case "", ChannelP2P, ChannelQR:
	default:
		return ValidationError{Field: "channel", Message: "must be p2p or qr"}
	}
	if len(r.Note) > 256 {
		return ValidationError{Field: "note", Message: "must be at most 256 characters"}
	}
	return nil
}

// BillPaymentRequest pays a bill issuer on behalf of the owner
type BillPaymentRequest struct {
	OwnerID         uuid.UUID
	SourceAccountID uuid.UUID
	ProviderID      uuid.UUID
	AccountNumber   string // The payer's number with the issuer
	Amount          decimal.Decimal
	IdempotencyKey  string
}

func (r BillPaymentRequest) Validate() error {
	if err := validateCommon(r.OwnerID, r.Amount, r.IdempotencyKey); err != nil {
		return err
	}
	if r.ProviderID == uuid.Nil {
		return ValidationError{Field: "provider_id", Message: "is required"}
	}
	if strings.TrimSpace(r.AccountNumber) == "" {
		return ValidationError{Field: "account_number", Message: "is required"}
	}
	return nil
}

// TopUpRequest sends money to a mobile-money wallet
type TopUpRequest struct {
	OwnerID         uuid.UUID
	SourceAccountID uuid.UUID
	ProviderID      uuid.UUID
	PhoneNumber     string
	Amount          decimal.Decimal
	IdempotencyKey  string
}

func (r TopUpRequest) Validate() error {
	if err := validateCommon(r.OwnerID, r.Amount, r.IdempotencyKey); err != nil {
		return err
	}
	if r.ProviderID == uuid.Nil {
		return ValidationError{Field: "provider_id", Message: "is required"}
	}
	if !phonePattern.MatchString(r.PhoneNumber) {
		return ValidationError{Field: "phone_number", Message: "must be 7 to 15 digits"}
	}
	return nil
}

// RemitRequest sends money abroad. Amount is in the source account currency;
// Currency is what the recipient is paid out in.
type RemitRequest struct {
	OwnerID          uuid.UUID
	SourceAccountID  uuid.UUID
	RecipientPhone   string
	RecipientName    string
	RecipientCountry string
	Amount           decimal.Decimal
	Currency         string
	Purpose          string
	IdempotencyKey   string
}

func (r RemitRequest) Validate() error {
	if err := validateCommon(r.OwnerID, r.Amount, r.IdempotencyKey); err != nil {
		return err
	}
	if !phonePattern.MatchString(r.RecipientPhone) {
		return ValidationError{Field: "recipient_phone", Message: "must be 7 to 15 digits"}
	}
	if strings.TrimSpace(r.RecipientName) == "" {
		return ValidationError{Field: "recipient_name", Message: "is required"}
	}
	if !countryPattern.MatchString(r.RecipientCountry) {
		return ValidationError{Field: "recipient_country", Message: "must be an ISO 3166 alpha-2 code"}
	}
	if !shared.IsSupportedCurrency(r.Currency) {
		return ValidationError{Field: "currency", Message: "is not supported"}
	}
	return nil
}

// LineItem is one product and quantity in a purchase
type LineItem struct {
	ProductID uuid.UUID
	Quantity  int
}

// PurchaseRequest checks out a marketplace basket
type PurchaseRequest struct {
	OwnerID         uuid.UUID
	SourceAccountID uuid.UUID
	Items           []LineItem
	PaymentMethod   catalog.PaymentMethod
	IdempotencyKey  string
}

func (r PurchaseRequest) Validate() error {
	if r.OwnerID == uuid.Nil {
		return ValidationError{Field: "owner_id", Message: "is required"}
	}
	if err := validateKey(r.IdempotencyKey); err != nil {
		return err
	}
	if len(r.Items) == 0 {
		return ValidationError{Field: "items", Message: "at least one item is required"}
	}
	for _, item := range r.Items {
		if item.ProductID == uuid.Nil {
			return ValidationError{Field: "items.product_id", Message: "is required"}
		}
		if item.Quantity <= 0 {
			return ValidationError{Field: "items.quantity", Message: "must be positive"}
		}
	}
	switch r.PaymentMethod {
	case catalog.PaymentMethodWallet, "":
	case catalog.PaymentMethodCard:
		return ValidationError{Field: "payment_method", Message: "card payments are settled outside the wallet ledger"}
	default:
		return ValidationError{Field: "payment_method", Message: "must be wallet"}
	}
	return nil
}

// merged folds repeated products into one line so each row is locked once
func (r PurchaseRequest) merged() []LineItem {
	index := make(map[uuid.UUID]int, len(r.Items))
	out := make([]LineItem, 0, len(r.Items))
	for _, item := range r.Items {
		if i, ok := index[item.ProductID]; ok {
			out[i].Quantity += item.Quantity
			continue
		}
		index[item.ProductID] = len(out)
		out = append(out, item)
	}
	return out
}

func validateCommon(ownerID uuid.UUID, amount decimal.Decimal, key string) error {
	if ownerID == uuid.Nil {
		return ValidationError{Field: "owner_id", Message: "is required"}
	}
	if !amount.IsPositive() {
		return ValidationError{Field: "amount", Message: "must be positive"}
	}
	if !shared.HasMoneyScale(amount) {
		return ValidationError{Field: "amount", Message: "must have at most 2 decimal places"}
	}
	return validateKey(key)
}

func validateKey(key string) error {
	if len(key) > maxIdempotencyKeyLength {
		return ValidationError{Field: "idempotency_key", Message: "must be at most 128 characters"}
	}
	return nil
}
