// Package money implements exact two-decimal currency amounts.
package money

import (
	"bytes"
	"fmt"

	"github.com/shopspring/decimal"
)

// Scale is the number of fractional digits carried by every amount.
const Scale = 2

// Money is an immutable currency amount. The zero value is 0.00.
type Money struct {
	amount decimal.Decimal
}

var Zero = Money{}

// Parse reads a decimal string such as "9.99".
func Parse(s string) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, fmt.Errorf("money: parse %q: %w", s, err)
	}
	return Money{amount: d}, nil
}

// MustParse is Parse for constants and tests.
func MustParse(s string) Money {
	m, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return m
}

// FromCents builds an amount from an integer number of cents.
func FromCents(cents int64) Money {
	return Money{amount: decimal.New(cents, -Scale)}
}

func (m Money) Add(o Money) Money {
	return Money{amount: m.amount.Add(o.amount)}
}

// Mul multiplies by an integer quantity.
func (m Money) Mul(qty int) Money {
	return Money{amount: m.amount.Mul(decimal.NewFromInt(int64(qty)))}
}

// Round rounds half-to-even to Scale digits.
func (m Money) Round() Money {
	return Money{amount: m.amount.RoundBank(Scale)}
}

func (m Money) Equal(o Money) bool {
	return m.amount.Equal(o.amount)
}

func (m Money) IsNegative() bool {
	return m.amount.IsNegative()
}

func (m Money) IsZero() bool {
	return m.amount.IsZero()
}

// Cents returns the amount in cents after rounding.
func (m Money) Cents() int64 {
	return m.amount.Shift(Scale).RoundBank(0).IntPart()
}

// Decimal exposes the underlying value.
func (m Money) Decimal() decimal.Decimal {
	return m.amount
}

// String formats with exactly Scale fractional digits.
func (m Money) String() string {
	return m.amount.StringFixedBank(Scale)
}

// MarshalJSON writes a JSON number with two fractional digits.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalJSON accepts both JSON numbers and quoted decimal strings.
func (m *Money) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*m = Zero
		return nil
	}
	var d decimal.Decimal
	if err := d.UnmarshalJSON(data); err != nil {
		return fmt.Errorf("money: decode %s: %w", data, err)
	}
	m.amount = d
	return nil
}

// Sum adds all amounts.
func Sum(amounts ...Money) Money {
	total := Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}
