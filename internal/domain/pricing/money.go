package pricing

import (
	"errors"
	"fmt"
)

// Money is an exact amount in whole cents. All engine arithmetic stays in
// integer cents so quotes are reproducible bit-for-bit.
type Money struct {
	cents int64
}

func Cents(cents int64) Money {
	return Money{cents: cents}
}

func NewMoney(cents int64) (Money, error) {
	if cents < 0 {
		return Money{}, errors.New("money cannot be negative")
	}
	return Money{cents: cents}, nil
}

func (m Money) Cents() int64 {
	return m.cents
}

func (m Money) Dollars() float64 {
	return float64(m.cents) / 100.0
}

func (m Money) Add(other Money) Money {
	return Money{cents: m.cents + other.cents}
}

func (m Money) Sub(other Money) Money {
	return Money{cents: m.cents - other.cents}
}

func (m Money) MulInt(n int64) Money {
	return Money{cents: m.cents * n}
}

func (m Money) IsZero() bool {
	return m.cents == 0
}

func (m Money) IsNegative() bool {
	return m.cents < 0
}

// MulBps scales by bps/10_000, rounding half-up to the cent. This is the
// single rounding point for every percentage in the rate formula.
func (m Money) MulBps(bps int32) Money {
	return Money{cents: divRoundHalfUp(m.cents*int64(bps), 10_000)}
}

// SurchargeBps applies a surcharge of bps on top of the amount (×(1+p)).
func (m Money) SurchargeBps(bps int32) Money {
	return m.MulBps(10_000 + bps)
}

// DiscountBps applies a discount of bps off the amount (×(1−p)), floored at zero.
func (m Money) DiscountBps(bps int32) Money {
	out := m.MulBps(10_000 - bps)
	if out.cents < 0 {
		out.cents = 0
	}
	return out
}

func (m Money) String() string {
	cents := m.cents
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}

// round-half-up for non-negative d; half of a cent always rounds away from zero
func divRoundHalfUp(n, d int64) int64 {
	if n >= 0 {
		return (n + d/2) / d
	}
	return -((-n + d/2) / d)
}
