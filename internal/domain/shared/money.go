package shared

import "github.com/shopspring/decimal"

// MoneyScale is the number of fractional digits carried by user-facing amounts
const MoneyScale = 2

// RoundMoney rounds half away from zero to MoneyScale places
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyScale)
}

// HasMoneyScale reports whether d carries no more than MoneyScale fractional digits
func HasMoneyScale(d decimal.Decimal) bool {
	return d.Equal(d.Truncate(MoneyScale))
}
