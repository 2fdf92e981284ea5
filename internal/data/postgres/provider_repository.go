package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/noblepay-ledger/internal/domain/provider"
	"github.com/noblepay-ledger/internal/platform/persistence"
)

// ProviderRepository reads bill and mobile-money providers
type ProviderRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewProviderRepository creates a new PostgreSQL provider repository
func NewProviderRepository(logger *slog.Logger, db *persistence.PostgresDB) provider.Repository {
	return &ProviderRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// GetByID returns the provider whatever its state; callers decide whether inactive is acceptable
func (r *ProviderRepository) GetByID(ctx context.Context, id uuid.UUID) (*provider.Provider, error) {
	query := `
		SELECT id, name, kind, category, countries, active
		FROM providers
		WHERE id = $1
	`

	var p provider.Provider
	err := r.querier.QueryRow(ctx, query, id).Scan(&p.ID, &p.Name, &p.Kind, &p.Category, &p.Countries, &p.Active)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, provider.ErrProviderNotFound{ProviderID: id}
		}
		r.logger.Error("Failed to get provider", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get provider: %w", err)
	}

	return &p, nil
}

// List returns active providers of kind, optionally narrowed by category and country
func (r *ProviderRepository) List(ctx context.Context, kind provider.Kind, filter provider.Filter) ([]*provider.Provider, error) {
	query := `
		SELECT id, name, kind, category, countries, active
		FROM providers
		WHERE kind = $1 AND active = TRUE
			AND ($2::text = '' OR category = $2)
			AND ($3::text = '' OR $3 = ANY(countries))
		ORDER BY name ASC
	`

	rows, err := r.querier.Query(ctx, query, kind, filter.Category, filter.Country)
	if err != nil {
		r.logger.Error("Failed to list providers", "kind", string(kind), "error", err)
		return nil, fmt.Errorf("failed to list providers: %w", err)
	}
	defer rows.Close()

	providers := make([]*provider.Provider, 0)
	for rows.Next() {
		var p provider.Provider
		if err := rows.Scan(&p.ID, &p.Name, &p.Kind, &p.Category, &p.Countries, &p.Active); err != nil {
			r.logger.Error("Failed to scan provider", "error", err)
			return nil, fmt.Errorf("failed to scan provider: %w", err)
		}
		providers = append(providers, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over providers: %w", err)
	}

	return providers, nil
}
