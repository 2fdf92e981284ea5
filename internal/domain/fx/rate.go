// Package fx converts amounts between supported currencies using stored rates.
package fx

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/noblepay-ledger/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Rate is one quote: 1 unit of Base buys Rate units of Quote
type Rate struct {
	Base      string          `json:"base"`
	Quote     string          `json:"quote"`
	Rate      decimal.Decimal `json:"rate"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Repository reads exchange rates
type Repository interface {
	// Get returns the stored pair, or nil when it does not exist
	Get(ctx context.Context, base, quote string) (*Rate, error)
	List(ctx context.Context) ([]*Rate, error)
	WithTx(tx pgx.Tx) Repository
}

// Conversion is an amount converted at a captured rate
type Conversion struct {
	Rate   decimal.Decimal
	Amount decimal.Decimal
}

// ErrRateUnavailable indicates neither the pair nor its inverse is stored
type ErrRateUnavailable struct {
	Base  string
	Quote string
}

func (e ErrRateUnavailable) Error() string {
	return "exchange rate unavailable: " + e.Base + "/" + e.Quote
}

// Is matches any ErrRateUnavailable when the target carries no pair
func (e ErrRateUnavailable) Is(target error) bool {
	t, ok := target.(ErrRateUnavailable)
	if !ok {
		return false
	}
	return (t.Base == "" && t.Quote == "") || t == e
}

// rateScale is the precision an inverted rate is kept at, matching NUMERIC(24,8)
const rateScale = 8

// Resolve finds the rate for base→quote. The direct pair wins; otherwise the
// inverse pair is inverted. Same-currency conversion is always 1.
func Resolve(ctx context.Context, repo Repository, base, quote string) (decimal.Decimal, error) {
	if base == quote {
		return decimal.NewFromInt(1), nil
	}

	direct, err := repo.Get(ctx, base, quote)
	if err != nil {
		return decimal.Zero, err
	}
	if direct != nil && direct.Rate.IsPositive() {
		return direct.Rate, nil
	}

	inverse, err := repo.Get(ctx, quote, base)
	if err != nil {
		return decimal.Zero, err
	}
	if inverse != nil && inverse.Rate.IsPositive() {
		return decimal.NewFromInt(1).DivRound(inverse.Rate, rateScale), nil
	}

	return decimal.Zero, ErrRateUnavailable{Base: base, Quote: quote}
}

// Convert resolves the rate and applies it, rounding the result to money scale
func Convert(ctx context.Context, repo Repository, amount decimal.Decimal, base, quote string) (Conversion, error) {
	rate, err := Resolve(ctx, repo, base, quote)
	if err != nil {
		return Conversion{}, err
	}
	return Conversion{Rate: rate, Amount: shared.RoundMoney(amount.Mul(rate))}, nil
}
