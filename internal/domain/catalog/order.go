package catalog

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// PaymentMethod is how an order is settled
type PaymentMethod string

const (
	PaymentMethodWallet PaymentMethod = "wallet"
	PaymentMethodCard   PaymentMethod = "card"
)

// OrderStatus is the fulfilment state of an order
type OrderStatus string

const OrderStatusPaid OrderStatus = "paid"

// OrderItem is one priced line of an order
type OrderItem struct {
	ProductID uuid.UUID       `json:"product_id"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Currency  string          `json:"currency"`
	LineTotal decimal.Decimal `json:"line_total"` // In the order currency
}

// Order is a paid marketplace checkout linked to its ledger reference
type Order struct {
	ID            uuid.UUID       `json:"id"`
	OwnerID       uuid.UUID       `json:"owner_id"`
	AccountID     uuid.UUID       `json:"account_id"`
	Reference     string          `json:"reference"`
	Total         decimal.Decimal `json:"total"`
	Currency      string          `json:"currency"`
	PaymentMethod PaymentMethod   `json:"payment_method"`
	Status        OrderStatus     `json:"status"`
	Items         []OrderItem     `json:"items"`
	CreatedAt     time.Time       `json:"created_at"`
}

// OrderRepository persists orders
type OrderRepository interface {
	Create(ctx context.Context, order *Order) error
	// ListByOwner pages through the owner's orders, newest first
	ListByOwner(ctx context.Context, ownerID uuid.UUID, limit, offset int) ([]*Order, error)
	CountByOwner(ctx context.Context, ownerID uuid.UUID) (int64, error)
	WithTx(tx pgx.Tx) OrderRepository
}
