package utils

import (
	"github.com/shopspring/decimal"
)

// FormatMoney renders an amount with exactly two fraction digits, e.g. "24.00".
func FormatMoney(amount decimal.Decimal) string {
	return amount.StringFixed(2)
}
