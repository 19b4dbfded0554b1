// Package brl parses Brazilian-locale monetary and date tokens as they appear
// in text extracted from bank PDFs.
package brl

import (
	"regexp"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// MoneyPattern matches a BRL monetary token: optional sign, thousands dots,
// decimal comma. Shared by the parsers for in-line scanning.
var MoneyPattern = regexp.MustCompile(`(?:([+\-\x{2212}])\s*)?(\d{1,3}(?:\.\d{3})*,\d{2})\b`)

var nonMoneyChars = regexp.MustCompile(`[^0-9,.\-]`)

// normalizeMinus folds unicode minus/dash variants into ASCII '-'.
func normalizeMinus(s string) string {
	s = strings.ReplaceAll(s, "−", "-")
	s = strings.ReplaceAll(s, "–", "-")
	s = strings.ReplaceAll(s, "—", "-")
	return s
}

// ParseMoney converts a BRL-formatted token ("1.234,56", "-R$ 59,00",
// "R$4,90") into an exact decimal. The dot is a thousands separator, the
// comma the decimal mark. Returns ok=false on malformed input.
func ParseMoney(value string) (decimal.Decimal, bool) {
	s := strings.TrimSpace(value)
	if s == "" {
		return decimal.Zero, false
	}

	s = normalizeMinus(s)

	negative := strings.HasPrefix(strings.TrimLeft(s, " "), "-") ||
		strings.Contains(strings.ReplaceAll(s, " ", ""), "-R$")

	s = nonMoneyChars.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, "-", "")
	s = strings.ReplaceAll(s, ".", "")
	s = strings.ReplaceAll(s, ",", ".")
	if s == "" {
		return decimal.Zero, false
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	if negative {
		d = d.Neg()
	}
	return d, true
}

// Cents rounds to 2-digit cent precision. All parser output goes through this
// before being attached to a result.
func Cents(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// WithinCent reports whether two values agree within the 0.01 reconciliation
// tolerance used when matching amounts against running balances.
func WithinCent(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThan(decimal.NewFromFloat(0.015))
}

// FormatBRL renders a decimal as a display string like "R$ 3.760,96".
func FormatBRL(d decimal.Decimal) string {
	minor := Cents(d).Shift(2).IntPart()
	return money.New(minor, money.BRL).Display()
}
