package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/noblepay-ledger/internal/domain/account"
	"github.com/noblepay-ledger/internal/domain/catalog"
	"github.com/noblepay-ledger/internal/domain/fx"
	"github.com/noblepay-ledger/internal/domain/ledger"
	"github.com/noblepay-ledger/internal/domain/provider"
	"github.com/noblepay-ledger/internal/movement"
)

// AccountService defines the interface for account lifecycle operations
type AccountService interface {
	// CreateAccount opens an empty account for the owner
	// Returns ErrDuplicateAccount if the owner already holds that class and currency
	CreateAccount(ctx context.Context, ownerID uuid.UUID, class account.Class, currency string) (*account.Account, error)

	// ListAccounts returns the owner's accounts, oldest first
	ListAccounts(ctx context.Context, ownerID uuid.UUID) ([]*account.Account, error)

	// DeactivateAccount closes one of the owner's accounts to further movements
	// Returns ErrAccountNotFound if the account doesn't exist or belongs to someone else
	DeactivateAccount(ctx context.Context, ownerID, accountID uuid.UUID) (*account.Account, error)
}

// MovementService runs money movements synchronously. *movement.Orchestrator implements it.
type MovementService interface {
	Fund(ctx context.Context, req movement.FundRequest) (*movement.Result, error)
	Transfer(ctx context.Context, req movement.TransferRequest) (*movement.Result, error)
	PayBill(ctx context.Context, req movement.BillPaymentRequest) (*movement.Result, error)
	TopUpMobile(ctx context.Context, req movement.TopUpRequest) (*movement.Result, error)
	Remit(ctx context.Context, req movement.RemitRequest) (*movement.Result, error)
	Purchase(ctx context.Context, req movement.PurchaseRequest) (*movement.Result, error)
	GetBalance(ctx context.Context, ownerID, accountID uuid.UUID) (*movement.Balance, error)
}

// EntryService defines the interface for reading ledger history
type EntryService interface {
	// GetEntryByReference reads the authoritative entry, falling back to the
	// projection when Postgres fails. Returns nil if the reference is unknown
	// or belongs to another owner.
	GetEntryByReference(ctx context.Context, ownerID uuid.UUID, reference string) (*ledger.Entry, error)

	// GetEntriesByAccountID retrieves a page of projected history for one of the owner's accounts
	// Returns entries, total count of all entries, and any error
	GetEntriesByAccountID(ctx context.Context, ownerID, accountID uuid.UUID, filter ledger.HistoryFilter, page, perPage int) ([]*ledger.Entry, int64, error)

	// GetEntriesByOwnerID retrieves a page of projected history across the owner's accounts,
	// optionally narrowed to one kind or status
	GetEntriesByOwnerID(ctx context.Context, ownerID uuid.UUID, filter ledger.HistoryFilter, page, perPage int) ([]*ledger.Entry, int64, error)
}

// DirectoryService lists the read-only reference data movements point at
type DirectoryService interface {
	ListProviders(ctx context.Context, kind provider.Kind, filter provider.Filter) ([]*provider.Provider, error)
	ListProducts(ctx context.Context, category string) ([]*catalog.Product, error)

	// GetProduct returns ErrProductNotFound for an unknown ID. Inactive products are returned as such.
	GetProduct(ctx context.Context, id uuid.UUID) (*catalog.Product, error)
	ListRates(ctx context.Context) ([]*fx.Rate, error)
}

// OrderService reads the owner's marketplace orders. Orders are placed through MovementService.Purchase.
type OrderService interface {
	// ListOrders returns a page of the owner's orders, newest first, and the total count
	ListOrders(ctx context.Context, ownerID uuid.UUID, page, perPage int) ([]*catalog.Order, int64, error)
}
