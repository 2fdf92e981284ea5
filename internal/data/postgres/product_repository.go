package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/noblepay-ledger/internal/domain/catalog"
	"github.com/noblepay-ledger/internal/platform/persistence"
)

// ProductRepository implements catalog.ProductRepository for PostgreSQL
type ProductRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewProductRepository creates a new PostgreSQL product repository
func NewProductRepository(logger *slog.Logger, db *persistence.PostgresDB) catalog.ProductRepository {
	return &ProductRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx binds the repository to a transaction
func (r *ProductRepository) WithTx(tx pgx.Tx) catalog.ProductRepository {
	return &ProductRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// List returns active products, optionally in one category
func (r *ProductRepository) List(ctx context.Context, category string) ([]*catalog.Product, error) {
	query := `
		SELECT id, name, category, seller, price, currency, stock, active, created_at
		FROM products
		WHERE active = TRUE AND ($1::text = '' OR category = $1)
		ORDER BY name ASC
	`

	rows, err := r.querier.Query(ctx, query, category)
	if err != nil {
		r.logger.Error("Failed to list products", "error", err)
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	products := make([]*catalog.Product, 0)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			r.logger.Error("Failed to scan product", "error", err)
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over products: %w", err)
	}

	return products, nil
}

// GetByID retrieves a product by its ID
func (r *ProductRepository) GetByID(ctx context.Context, id uuid.UUID) (*catalog.Product, error) {
	query := `
		SELECT id, name, category, seller, price, currency, stock, active, created_at
		FROM products
		WHERE id = $1
	`

	p, err := scanProduct(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, catalog.ErrProductNotFound{ProductID: id}
		}
		r.logger.Error("Failed to get product", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get product: %w", err)
	}

	return p, nil
}

// LockForUpdate locks the product row so stock checks and decrements are serialized
func (r *ProductRepository) LockForUpdate(ctx context.Context, id uuid.UUID) (*catalog.Product, error) {
	query := `
		SELECT id, name, category, seller, price, currency, stock, active, created_at
		FROM products
		WHERE id = $1
		FOR UPDATE
	`

	p, err := scanProduct(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, catalog.ErrProductNotFound{ProductID: id}
		}
		r.logger.Error("Failed to lock product for update", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to lock product for update: %w", err)
	}

	return p, nil
}

// UpdateStock writes the remaining stock of a locked product
func (r *ProductRepository) UpdateStock(ctx context.Context, id uuid.UUID, stock int) error {
	query := `
		UPDATE products
		SET stock = $1
		WHERE id = $2
	`

	result, err := r.querier.Exec(ctx, query, stock, id)
	if err != nil {
		r.logger.Error("Failed to update product stock", "id", id.String(), "error", err)
		return fmt.Errorf("failed to update product stock: %w", err)
	}

	if result.RowsAffected() == 0 {
		return catalog.ErrProductNotFound{ProductID: id}
	}

	return nil
}

func scanProduct(row pgx.Row) (*catalog.Product, error) {
	var p catalog.Product
	err := row.Scan(&p.ID, &p.Name, &p.Category, &p.Seller, &p.Price, &p.Currency, &p.Stock, &p.Active, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
