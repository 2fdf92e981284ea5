package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/noblepay-ledger/internal/domain/catalog"
	"github.com/noblepay-ledger/internal/platform/persistence"
)

const (
	orderColumnList = `id, owner_id, account_id, reference, total, currency, payment_method, status, items, created_at`

	insertOrderSQL = `
		INSERT INTO orders (` + orderColumnList + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	ordersByOwnerSQL = `
		SELECT ` + orderColumnList + `
		FROM orders
		WHERE owner_id = $1
		ORDER BY created_at DESC, id
		LIMIT $2 OFFSET $3`

	countOrdersByOwnerSQL = `SELECT COUNT(*) FROM orders WHERE owner_id = $1`
)

// OrderRepository implements catalog.OrderRepository for PostgreSQL
type OrderRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

func NewOrderRepository(logger *slog.Logger, db *persistence.PostgresDB) catalog.OrderRepository {
	return &OrderRepository{querier: db.Pool(), logger: logger}
}

// WithTx binds the repository to the purchase transaction
func (r *OrderRepository) WithTx(tx pgx.Tx) catalog.OrderRepository {
	return &OrderRepository{querier: tx, logger: r.logger}
}

// Create stores a paid order. Its reference must already exist in ledger_entries.
func (r *OrderRepository) Create(ctx context.Context, order *catalog.Order) error {
	items, err := json.Marshal(order.Items)
	if err != nil {
		return fmt.Errorf("failed to encode order items: %w", err)
	}

	_, err = r.querier.Exec(ctx, insertOrderSQL,
		order.ID, order.OwnerID, order.AccountID, order.Reference, order.Total,
		order.Currency, order.PaymentMethod, order.Status, items, order.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create order", "reference", order.Reference, "error", err)
		return fmt.Errorf("failed to create order: %w", err)
	}

	return nil
}

func (r *OrderRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID, limit, offset int) ([]*catalog.Order, error) {
	rows, err := r.querier.Query(ctx, ordersByOwnerSQL, ownerID, limit, offset)
	if err != nil {
		r.logger.Error("Failed to list orders", "owner_id", ownerID.String(), "error", err)
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}

	orders, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*catalog.Order, error) {
		return scanOrder(row)
	})
	if err != nil {
		r.logger.Error("Failed to read orders", "owner_id", ownerID.String(), "error", err)
		return nil, fmt.Errorf("failed to read orders: %w", err)
	}
	return orders, nil
}

func (r *OrderRepository) CountByOwner(ctx context.Context, ownerID uuid.UUID) (int64, error) {
	var total int64
	if err := r.querier.QueryRow(ctx, countOrdersByOwnerSQL, ownerID).Scan(&total); err != nil {
		r.logger.Error("Failed to count orders", "owner_id", ownerID.String(), "error", err)
		return 0, fmt.Errorf("failed to count orders: %w", err)
	}
	return total, nil
}

func scanOrder(row pgx.Row) (*catalog.Order, error) {
	var (
		order catalog.Order
		items []byte
	)
	if err := row.Scan(
		&order.ID, &order.OwnerID, &order.AccountID, &order.Reference, &order.Total,
		&order.Currency, &order.PaymentMethod, &order.Status, &items, &order.CreatedAt,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(items, &order.Items); err != nil {
		return nil, fmt.Errorf("failed to decode items of order %s: %w", order.ID, err)
	}
	return &order, nil
}
