package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMoney_Add(t *testing.T) {
	a := CNY(100)
	b := CNY(250)

	sum, err := a.Add(b)
	require.NoError(t, err)
	assert.Equal(t, CNY(350), sum)

	// operands unchanged
	assert.Equal(t, int64(100), a.Amount)
	assert.Equal(t, int64(250), b.Amount)
}

func TestMoney_Add_CurrencyMismatch(t *testing.T) {
	_, err := CNY(100).Add(NewMoney(100, "USD"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "VAL_003")
}

func TestMoney_Subtract(t *testing.T) {
	diff, err := CNY(100).Subtract(CNY(30))
	require.NoError(t, err)
	assert.Equal(t, CNY(70), diff)
}

func TestMoney_Subtract_MayGoNegative(t *testing.T) {
	diff, err := CNY(30).Subtract(CNY(100))
	require.NoError(t, err)
	assert.True(t, diff.IsNegative())
	assert.Equal(t, int64(-70), diff.Amount)
}

func TestMoney_Multiply_Rounding(t *testing.T) {
	tests := []struct {
		name   string
		amount int64
		factor float64
		want   int64
	}{
		{"exact", 100000, 0.001, 100},
		{"rounds up at half", 1500, 0.001, 2},
		{"rounds down below half", 1400, 0.001, 1},
		{"tiny amount", 100, 0.001, 0},
		{"identity", 12345, 1.0, 12345},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CNY(tt.amount).Multiply(tt.factor)
			assert.Equal(t, tt.want, got.Amount)
			assert.Equal(t, "CNY", got.Currency)
		})
	}
}

func TestMoney_Comparisons(t *testing.T) {
	small := CNY(100)
	big := CNY(200)

	lt, err := small.IsLessThan(big)
	require.NoError(t, err)
	assert.True(t, lt)

	gte, err := big.IsGreaterThanOrEqualTo(small)
	require.NoError(t, err)
	assert.True(t, gte)

	c, err := small.Cmp(small)
	require.NoError(t, err)
	assert.Equal(t, 0, c)
}

func TestMoney_Comparisons_CurrencyMismatch(t *testing.T) {
	_, err := CNY(100).IsLessThan(NewMoney(200, "EUR"))
	assert.Error(t, err)
}

func TestMoney_ZeroAndNegative(t *testing.T) {
	assert.True(t, Zero("CNY").IsZero())
	assert.False(t, CNY(1).IsZero())
	assert.True(t, NewMoney(-5, "CNY").IsNegative())
	assert.False(t, Zero("CNY").IsNegative())
}

func TestMoney_String(t *testing.T) {
	assert.Equal(t, "CNY 12.34", CNY(1234).String())
	assert.Equal(t, "CNY 0.05", CNY(5).String())
	assert.Equal(t, "CNY -12.34", CNY(-1234).String())
	assert.Equal(t, "CNY -0.05", CNY(-5).String())
}
