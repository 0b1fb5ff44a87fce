// Package core provides money parsing and handling utilities.
//
// Amounts are held as signed int64 cents. Parsing and ratio arithmetic go
// through shopspring/decimal so that rounding is exact to the cent.
package core

import (
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// DefaultCurrency is used when no currency code is configured.
const DefaultCurrency = money.USD

// MaxAmount is the largest magnitude a stored amount may have, matching a
// NUMERIC(10,2) column. Sums of many such amounts stay far from int64 limits.
var MaxAmount = decimal.RequireFromString("99999999.99")

type Money struct {
	Cents int64
}

// ParseAmount converts a user-supplied decimal string to Money.
//
// A leading currency symbol, surrounding spaces and thousands separators are
// tolerated; the sign is preserved. Values are rounded half away from zero to
// two fractional digits.
//
//	ParseAmount("12.345")    -> 12.35
//	ParseAmount("-$1,200")   -> -1200.00
//	ParseAmount("abc")       -> ErrInvalidAmount
//	ParseAmount("1e9")       -> ErrInvalidAmount (above MaxAmount)
func ParseAmount(s string) (Money, error) {
	s = strings.TrimSpace(s)
	neg := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		// accounting notation
		neg = true
		s = s[1 : len(s)-1]
	}
	if strings.HasPrefix(s, "-") {
		neg = !neg
		s = s[1:]
	} else {
		s = strings.TrimPrefix(s, "+")
	}
	s = strings.TrimPrefix(strings.TrimSpace(s), "$")
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return Money{}, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil || d.IsNegative() {
		return Money{}, ErrInvalidAmount
	}
	if d.Round(2).GreaterThan(MaxAmount) {
		return Money{}, ErrInvalidAmount
	}
	if neg {
		d = d.Neg()
	}
	return MoneyFromDecimal(d), nil
}

// MoneyFromDecimal rounds d to the cent.
func MoneyFromDecimal(d decimal.Decimal) Money {
	return Money{Cents: d.Round(2).Shift(2).IntPart()}
}

// Decimal returns the amount in currency units.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

func (m Money) Add(o Money) Money { return Money{Cents: m.Cents + o.Cents} }
func (m Money) Sub(o Money) Money { return Money{Cents: m.Cents - o.Cents} }
func (m Money) Neg() Money        { return Money{Cents: -m.Cents} }

func (m Money) Abs() Money {
	if m.Cents < 0 {
		return m.Neg()
	}
	return m
}

func (m Money) IsZero() bool     { return m.Cents == 0 }
func (m Money) IsPositive() bool { return m.Cents > 0 }
func (m Money) IsNegative() bool { return m.Cents < 0 }

// Times multiplies by a decimal factor, rounding to the cent.
func (m Money) Times(f decimal.Decimal) Money {
	return MoneyFromDecimal(m.Decimal().Mul(f))
}

// String renders the plain decimal value, e.g. "-12.50", as used in form fields.
func (m Money) String() string {
	return m.Decimal().StringFixed(2)
}

// Format renders the amount with the symbol and grouping of the given ISO
// currency code. Unknown codes fall back to DefaultCurrency.
func (m Money) Format(code string) string {
	if money.GetCurrency(code) == nil {
		code = DefaultCurrency
	}
	return money.New(m.Cents, code).Display()
}

// ValidCurrency reports whether code is a currency known to the formatter.
func ValidCurrency(code string) bool {
	return money.GetCurrency(code) != nil
}
