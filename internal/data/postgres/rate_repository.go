package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/noblepay-ledger/internal/domain/fx"
	"github.com/noblepay-ledger/internal/platform/persistence"
)

// RateRepository reads exchange rates
type RateRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewRateRepository creates a new PostgreSQL exchange rate repository
func NewRateRepository(logger *slog.Logger, db *persistence.PostgresDB) fx.Repository {
	return &RateRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx binds the repository to a transaction so the captured rate is read in the same unit
func (r *RateRepository) WithTx(tx pgx.Tx) fx.Repository {
	return &RateRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Get returns the stored pair or nil when absent
func (r *RateRepository) Get(ctx context.Context, base, quote string) (*fx.Rate, error) {
	query := `
		SELECT base_currency, quote_currency, rate, updated_at
		FROM exchange_rates
		WHERE base_currency = $1 AND quote_currency = $2
	`

	var rate fx.Rate
	err := r.querier.QueryRow(ctx, query, base, quote).Scan(&rate.Base, &rate.Quote, &rate.Rate, &rate.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error("Failed to get exchange rate", "base", base, "quote", quote, "error", err)
		return nil, fmt.Errorf("failed to get exchange rate: %w", err)
	}

	return &rate, nil
}

// List returns every stored pair
func (r *RateRepository) List(ctx context.Context) ([]*fx.Rate, error) {
	query := `
		SELECT base_currency, quote_currency, rate, updated_at
		FROM exchange_rates
		ORDER BY base_currency, quote_currency
	`

	rows, err := r.querier.Query(ctx, query)
	if err != nil {
		r.logger.Error("Failed to list exchange rates", "error", err)
		return nil, fmt.Errorf("failed to list exchange rates: %w", err)
	}
	defer rows.Close()

	rates := make([]*fx.Rate, 0)
	for rows.Next() {
		var rate fx.Rate
		if err := rows.Scan(&rate.Base, &rate.Quote, &rate.Rate, &rate.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan exchange rate: %w", err)
		}
		rates = append(rates, &rate)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over exchange rates: %w", err)
	}

	return rates, nil
}
