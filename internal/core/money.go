// Package core provides money parsing and handling utilities.
//
// Amounts are held as integer cents. Decimal strings from requests and
// configuration are parsed with shopspring/decimal and rounded half-up to
// two places.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Money is a signed amount in cents.
type Money struct {
	Cents int64
}

func Cents(c int64) Money { return Money{Cents: c} }

// maxCents keeps parsed amounts well inside int64 range.
const maxCents = int64(1) << 53

func parseDecimal(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	// Normalize decimal comma to dot
	s = strings.ReplaceAll(s, ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

func toCents(d decimal.Decimal) (int64, error) {
	c := d.Shift(2).Round(0)
	if c.Abs().GreaterThan(decimal.NewFromInt(maxCents)) {
		return 0, ErrInvalidAmount
	}
	return c.IntPart(), nil
}

// ParseDecimalToCents converts a positive decimal string to cents.
//
// It accepts both dot (12.34) and comma (12,34) separators and rounds half-up
// on the third decimal place. Signs, zero and garbage are rejected.
//
//	ParseDecimalToCents("12.345") -> 1235, nil
//	ParseDecimalToCents("12,34")  -> 1234, nil
func ParseDecimalToCents(s string) (int64, error) {
	t := strings.TrimSpace(s)
	if strings.HasPrefix(t, "+") || strings.HasPrefix(t, "-") {
		return 0, ErrInvalidAmount
	}
	d, err := parseDecimal(t)
	if err != nil {
		return 0, err
	}
	cents, err := toCents(d)
	if err != nil {
		return 0, err
	}
	if cents <= 0 {
		return 0, ErrInvalidAmount
	}
	return cents, nil
}

// ParseSignedCents is ParseDecimalToCents for ledger input, where callers may
// send either sign. Zero is still invalid.
func ParseSignedCents(s string) (int64, error) {
	d, err := parseDecimal(s)
	if err != nil {
		return 0, err
	}
	cents, err := toCents(d)
	if err != nil {
		return 0, err
	}
	if cents == 0 {
		return 0, ErrInvalidAmount
	}
	return cents, nil
}

// Decimal returns the amount as a two-place decimal.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

// String formats the amount with exactly two decimals, e.g. "-50.00".
func (m Money) String() string {
	return m.Decimal().StringFixed(2)
}

// MarshalJSON writes the amount as a bare JSON number with two decimals.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalJSON accepts a JSON number or a quoted decimal string.
func (m *Money) UnmarshalJSON(b []byte) error {
	s := strings.Trim(strings.TrimSpace(string(b)), `"`)
	if s == "" || s == "null" {
		m.Cents = 0
		return nil
	}
	d, err := parseDecimal(s)
	if err != nil {
		return err
	}
	c, err := toCents(d)
	if err != nil {
		return err
	}
	m.Cents = c
	return nil
}

func (m Money) Add(o Money) Money     { return Money{Cents: m.Cents + o.Cents} }
func (m Money) Sub(o Money) Money     { return Money{Cents: m.Cents - o.Cents} }
func (m Money) Mul(n int) Money       { return Money{Cents: m.Cents * int64(n)} }
func (m Money) Neg() Money            { return Money{Cents: -m.Cents} }
func (m Money) IsZero() bool          { return m.Cents == 0 }
func (m Money) IsNegative() bool      { return m.Cents < 0 }
func (m Money) Equal(o Money) bool    { return m.Cents == o.Cents }
func (m Money) LessThan(o Money) bool { return m.Cents < o.Cents }

func (m Money) Abs() Money {
	if m.Cents < 0 {
		return m.Neg()
	}
	return m
}

// Euros returns the value as float64 for display only.
func (m Money) Euros() float64 {
	f, _ := m.Decimal().Float64()
	return f
}
