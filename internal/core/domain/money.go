package domain

import (
	"fmt"
	"math"

	"user-wallet-service/pkg/apperror"
)

// Money is a currency-tagged amount in minor units (fen for CNY).
// Values are immutable: every operation returns a new Money.
type Money struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

// NewMoney creates a Money from minor units.
func NewMoney(amount int64, currency string) Money {
	return Money{Amount: amount, Currency: currency}
}

// Zero returns the zero amount of the given currency.
func Zero(currency string) Money {
	return Money{Currency: currency}
}

// CNY creates a CNY amount from fen.
func CNY(fen int64) Money {
	return Money{Amount: fen, Currency: "CNY"}
}

// SameCurrency reports whether both values share a currency.
func (m Money) SameCurrency(other Money) bool {
	return m.Currency == other.Currency
}

// Add returns m + other. Fails on currency mismatch.
func (m Money) Add(other Money) (Money, error) {
	if !m.SameCurrency(other) {
		return Money{}, apperror.ErrCurrencyMismatch(m.Currency, other.Currency)
	}
	return Money{Amount: m.Amount + other.Amount, Currency: m.Currency}, nil
}

// Subtract returns m - other. The result may be negative; balance
// sufficiency is the caller's responsibility.
func (m Money) Subtract(other Money) (Money, error) {
	if !m.SameCurrency(other) {
		return Money{}, apperror.ErrCurrencyMismatch(m.Currency, other.Currency)
	}
	return Money{Amount: m.Amount - other.Amount, Currency: m.Currency}, nil
}

// Multiply returns m scaled by factor, rounded half away from zero to
// the nearest minor unit.
func (m Money) Multiply(factor float64) Money {
	return Money{
		Amount:   int64(math.Round(float64(m.Amount) * factor)),
		Currency: m.Currency,
	}
}

// IsZero reports whether the amount is zero.
func (m Money) IsZero() bool {
	return m.Amount == 0
}

// IsNegative reports whether the amount is below zero.
func (m Money) IsNegative() bool {
	return m.Amount < 0
}

// Cmp compares m against other: -1 if less, 0 if equal, 1 if greater.
func (m Money) Cmp(other Money) (int, error) {
	if !m.SameCurrency(other) {
		return 0, apperror.ErrCurrencyMismatch(m.Currency, other.Currency)
	}
	switch {
	case m.Amount < other.Amount:
		return -1, nil
	case m.Amount > other.Amount:
		return 1, nil
	default:
		return 0, nil
	}
}

// IsLessThan reports m < other.
func (m Money) IsLessThan(other Money) (bool, error) {
	c, err := m.Cmp(other)
	return c < 0, err
}

// IsGreaterThan reports m > other.
func (m Money) IsGreaterThan(other Money) (bool, error) {
	c, err := m.Cmp(other)
	return c > 0, err
}

// IsLessThanOrEqualTo reports m <= other.
func (m Money) IsLessThanOrEqualTo(other Money) (bool, error) {
	c, err := m.Cmp(other)
	return c <= 0, err
}

// IsGreaterThanOrEqualTo reports m >= other.
func (m Money) IsGreaterThanOrEqualTo(other Money) (bool, error) {
	c, err := m.Cmp(other)
	return c >= 0, err
}

// String renders the amount with two decimal places, e.g. "CNY 12.34".
func (m Money) String() string {
	amount := m.Amount
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	return fmt.Sprintf("%s %s%d.%02d", m.Currency, sign, amount/100, amount%100)
}
