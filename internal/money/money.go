// Package money holds the decimal helpers shared by checkout and payments.
package money

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

const (
	groupSeparator   = "."
	decimalSeparator = ","
)

var (
	// ErrEmpty indicates an amount field without any digits.
	ErrEmpty = errors.New("amount is empty")
	// ErrNotNumeric indicates an amount field that does not parse as a number.
	ErrNotNumeric = errors.New("amount is not a number")
	// ErrUnknownCurrency indicates an ISO code unknown to the currency tables.
	ErrUnknownCurrency = errors.New("unknown currency")
)

// Currency describes the display currency and its minimal unit.
type Currency struct {
	Code  string
	Scale int32
}

// PYG is the default no-decimal display currency.
var PYG = Currency{Code: "PYG", Scale: 0}

// NewCurrency resolves the cash rounding scale for an ISO 4217 code.
func NewCurrency(code string) (Currency, error) {
	unit, err := currency.ParseISO(strings.ToUpper(strings.TrimSpace(code)))
	if err != nil {
		return Currency{}, fmt.Errorf("%w: %q", ErrUnknownCurrency, code)
	}
	scale, _ := currency.Cash.Rounding(unit)
	return Currency{Code: unit.String(), Scale: int32(scale)}, nil
}

// Round rounds half away from zero to the currency's minimal unit.
func (c Currency) Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(c.Scale)
}

// Format renders an amount with grouped thousands.
func (c Currency) Format(d decimal.Decimal) string {
	return FormatGrouped(d, c)
}

// FormatGrouped renders d rounded to the currency scale, e.g. 3000 -> "3.000".
func FormatGrouped(d decimal.Decimal, cur Currency) string {
	raw := cur.Round(d).StringFixed(cur.Scale)
	sign := ""
	if strings.HasPrefix(raw, "-") {
		sign = "-"
		raw = raw[1:]
	}
	intPart, fracPart, _ := strings.Cut(raw, ".")

	var b strings.Builder
	b.WriteString(sign)
	lead := len(intPart) % 3
	if lead == 0 {
		lead = 3
	}
	b.WriteString(intPart[:lead])
	for i := lead; i < len(intPart); i += 3 {
		b.WriteString(groupSeparator)
		b.WriteString(intPart[i : i+3])
	}
	if fracPart != "" {
		b.WriteString(decimalSeparator)
		b.WriteString(fracPart)
	}
	return b.String()
}

// ParseGrouped parses an operator-entered amount. Blanks are ignored, a comma
// is the decimal separator and a dot is accepted only between thousands
// groups, so "10.50" is rejected rather than read as 1050.
func ParseGrouped(text string) (decimal.Decimal, error) {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\u00a0':
			return -1
		}
		return r
	}, text)
	if cleaned == "" {
		return decimal.Zero, ErrEmpty
	}
	intPart, fracPart, hasFrac := strings.Cut(cleaned, decimalSeparator)
	sign := ""
	if intPart != "" && (intPart[0] == '-' || intPart[0] == '+') {
		sign, intPart = intPart[:1], intPart[1:]
	}
	digits, ok := ungroup(intPart)
	if !ok || (hasFrac && !allDigits(fracPart)) || (digits == "" && fracPart == "") {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrNotNumeric, text)
	}
	if digits == "" {
		digits = "0"
	}
	plain := sign + digits
	if hasFrac && fracPart != "" {
		plain += "." + fracPart
	}
	d, err := decimal.NewFromString(plain)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrNotNumeric, text)
	}
	return d, nil
}

// ungroup strips thousands separators. Without a separator any digit run is
// accepted; with one, the leading group has 1-3 digits and every other group
// exactly 3.
func ungroup(s string) (string, bool) {
	if !strings.Contains(s, groupSeparator) {
		return s, allDigits(s)
	}
	groups := strings.Split(s, groupSeparator)
	if len(groups[0]) == 0 || len(groups[0]) > 3 || !allDigits(groups[0]) {
		return "", false
	}
	for _, g := range groups[1:] {
		if len(g) != 3 || !allDigits(g) {
			return "", false
		}
	}
	return strings.Join(groups, ""), true
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// NormalizeBalanceDue rounds a backend balance to the currency's minimal unit
// so validation and display agree. An unknown balance stays unknown.
func NormalizeBalanceDue(balance decimal.NullDecimal, cur Currency) decimal.NullDecimal {
	if !balance.Valid {
		return balance
	}
	return decimal.NewNullDecimal(cur.Round(balance.Decimal))
}

// Min returns the smaller of a and b.
func Min(a, b decimal.Decimal) decimal.Decimal {
	if a.LessThan(b) {
		return a
	}
	return b
}
