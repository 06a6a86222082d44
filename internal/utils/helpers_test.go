package utils

import (
	"testing"

	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"
	"github.com/shopspring/decimal"
)

func TestParseLimitOffsetDefaults(t *testing.T) {
	limit, offset, err := ParseLimitOffset("", "")
	assert.NoError(t, err)
	check.Equal(t, 5, limit)
	check.Equal(t, 0, offset)
}

func TestParseLimitOffsetBounds(t *testing.T) {
	_, _, err := ParseLimitOffset("0", "")
	check.Error(t, err)

	_, _, err = ParseLimitOffset("51", "")
	check.Error(t, err)

	_, _, err = ParseLimitOffset("10", "-1")
	check.Error(t, err)

	limit, offset, err := ParseLimitOffset("50", "100")
	assert.NoError(t, err)
	check.Equal(t, 50, limit)
	check.Equal(t, 100, offset)
}

func TestParseAmountAcceptsCommaSeparator(t *testing.T) {
	amount, err := ParseAmount("1500,50")
	assert.NoError(t, err)
	check.True(t, amount.Equal(decimal.RequireFromString("1500.50")))

	amount, err = ParseAmount("99000")
	assert.NoError(t, err)
	check.True(t, amount.Equal(decimal.NewFromInt(99000)))
}

func TestParseAmountRejectsGarbage(t *testing.T) {
	_, err := ParseAmount("сто тысяч")
	check.Error(t, err)

	_, err = ParseAmount("")
	check.Error(t, err)
}

func TestIsDigits(t *testing.T) {
	check.True(t, IsDigits("7707083893", 10, 12))
	check.True(t, IsDigits("770708389312", 10, 12))
	check.False(t, IsDigits("770708389", 10, 12))
	check.False(t, IsDigits("77070838ab", 10, 12))
	check.False(t, IsDigits("", 10, 12))
}
