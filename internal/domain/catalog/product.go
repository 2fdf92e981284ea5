// Package catalog holds marketplace products and the orders placed against them.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

var ErrInvalidQuantity = errors.New("quantity must be positive")

// Product is a marketplace listing with a stock counter
type Product struct {
	ID        uuid.UUID       `json:"id"`
	Name      string          `json:"name"`
	Category  string          `json:"category"`
	Seller    string          `json:"seller"`
	Price     decimal.Decimal `json:"price"`
	Currency  string          `json:"currency"`
	Stock     int             `json:"stock"`
	Active    bool            `json:"active"`
	CreatedAt time.Time       `json:"created_at"`
}

// Reserve takes quantity units out of stock
func (p *Product) Reserve(quantity int) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	if p.Stock < quantity {
		return ErrInsufficientStock{ProductID: p.ID, Requested: quantity, Available: p.Stock}
	}
	p.Stock -= quantity
	return nil
}

// ProductRepository reads products and adjusts stock under row locks
type ProductRepository interface {
	List(ctx context.Context, category string) ([]*Product, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Product, error)
	LockForUpdate(ctx context.Context, id uuid.UUID) (*Product, error)
	UpdateStock(ctx context.Context, id uuid.UUID, stock int) error
	WithTx(tx pgx.Tx) ProductRepository
}

// ErrProductNotFound indicates an unknown or inactive product
type ErrProductNotFound struct {
	ProductID uuid.UUID
}

func (e ErrProductNotFound) Error() string {
	return "product not found: " + e.ProductID.String()
}

// Is matches any ErrProductNotFound when the target carries no ProductID
func (e ErrProductNotFound) Is(target error) bool {
	t, ok := target.(ErrProductNotFound)
	if !ok {
		return false
	}
	return t.ProductID == uuid.Nil || t.ProductID == e.ProductID
}

// ErrInsufficientStock indicates a line item asks for more units than remain
type ErrInsufficientStock struct {
	ProductID uuid.UUID
	Requested int
	Available int
}

func (e ErrInsufficientStock) Error() string {
	return fmt.Sprintf("insufficient stock for product %s: requested %d, available %d", e.ProductID, e.Requested, e.Available)
}

// Is matches any ErrInsufficientStock when the target carries no ProductID
func (e ErrInsufficientStock) Is(target error) bool {
	t, ok := target.(ErrInsufficientStock)
	if !ok {
		return false
	}
	return t.ProductID == uuid.Nil || t.ProductID == e.ProductID
}
