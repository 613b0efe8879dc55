package utils

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestMoney(t *testing.T) {
	assert.Equal(t, "24.00", FormatMoney(decimal.NewFromInt(24)))
	assert.Equal(t, "15.50", FormatMoney(decimal.RequireFromString("15.5")))

	assert.Equal(t, "-3.10", FormatMoney(decimal.RequireFromString("-3.1")))
}
