package movement

import (
	"fmt"

	"github.com/noblepay-ledger/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// FeeSchedule prices remittances as a share of the amount with a floor
type FeeSchedule struct {
	RemitRate    decimal.Decimal
	RemitMinimum decimal.Decimal
}

// DefaultFeeSchedule charges 2% with a floor of 1 in the source currency
func DefaultFeeSchedule() FeeSchedule {
	return FeeSchedule{
		RemitRate:    decimal.RequireFromString("0.02"),
		RemitMinimum: decimal.NewFromInt(1),
	}
}

// ParseFeeSchedule reads the schedule from its configured string form
func ParseFeeSchedule(rate, minimum string) (FeeSchedule, error) {
	r, err := decimal.NewFromString(rate)
	if err != nil {
		return FeeSchedule{}, fmt.Errorf("invalid remit fee rate %q: %w", rate, err)
	}
	m, err := decimal.NewFromString(minimum)
	if err != nil {
		return FeeSchedule{}, fmt.Errorf("invalid remit minimum fee %q: %w", minimum, err)
	}
	if r.IsNegative() || m.IsNegative() {
		return FeeSchedule{}, fmt.Errorf("remit fee rate and minimum cannot be negative")
	}
	return FeeSchedule{RemitRate: r, RemitMinimum: m}, nil
}

// RemitFee returns max(amount × rate, minimum) rounded to money scale
func (f FeeSchedule) RemitFee(amount decimal.Decimal) decimal.Decimal {
	return shared.RoundMoney(decimal.Max(amount.Mul(f.RemitRate), f.RemitMinimum))
}
