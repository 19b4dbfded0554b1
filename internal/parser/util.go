package parser

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ellalabs/ella-extractor/internal/brl"
	"github.com/ellalabs/ella-extractor/internal/models"
)

// Date patterns shared across the statement parsers.
var (
	// dd/mm/yyyy at the start of a line
	dateFullAtStart = regexp.MustCompile(`^(\d{2})/(\d{2})/(\d{4})\b`)
	// dd/mm at the start of a line
	dateShortAtStart = regexp.MustCompile(`^(\d{2})/(\d{2})\b`)
	// "período ... 01/01/2026 a 31/01/2026"
	periodPattern = regexp.MustCompile(`(?i)\bper[ií]odo\b[^0-9]*(\d{2}/\d{2}/\d{4})\s*(?:a|-|at[eé])\s*(\d{2}/\d{2}/\d{4})`)
	// "Saldo anterior/inicial ... 1.234,56" and the closing variant
	openingPattern = regexp.MustCompile(`(?i)\bsaldo\s*(?:anterior|inicial)\b[^0-9\-]*(-?\d{1,3}(?:\.\d{3})*,\d{2})`)
	closingPattern = regexp.MustCompile(`(?i)\bsaldo\s*(?:final|atual)\b[^0-9\-]*(-?\d{1,3}(?:\.\d{3})*,\d{2})`)
)

var spaceRun = regexp.MustCompile(`\s+`)

func compactSpaces(s string) string {
	return strings.TrimSpace(spaceRun.ReplaceAllString(s, " "))
}

// parseDDMMYYYY parses an exact "dd/mm/yyyy" token.
func parseDDMMYYYY(value string) (models.Date, bool) {
	m := regexp.MustCompile(`^(\d{2})/(\d{2})/(\d{4})$`).FindStringSubmatch(strings.TrimSpace(value))
	if m == nil {
		return models.Date{}, false
	}
	return dateFromGroups(m[1], m[2], m[3])
}

func dateFromGroups(dd, mm, yyyy string) (models.Date, bool) {
	day, err := strconv.Atoi(dd)
	if err != nil {
		return models.Date{}, false
	}
	year, err := strconv.Atoi(yyyy)
	if err != nil {
		return models.Date{}, false
	}
	return brl.ParseDate(day, mm, year)
}

// lastMoneyAtEnd returns the value and start index of the final monetary
// token on the line, but only when that token actually ends the line.
func lastMoneyAtEnd(line string) (decimal.Decimal, int, bool) {
	stripped := strings.TrimRight(line, " \t")
	locs := brl.MoneyPattern.FindAllStringSubmatchIndex(stripped, -1)
	if len(locs) == 0 {
		return decimal.Zero, 0, false
	}
	last := locs[len(locs)-1]
	if last[1] != len(stripped) {
		return decimal.Zero, 0, false
	}
	d, ok := brl.ParseMoney(stripped[last[0]:last[1]])
	if !ok {
		return decimal.Zero, 0, false
	}
	return d, last[0], true
}

// allMoneyTokens returns every BRL token on the line, parsed, in order.
func allMoneyTokens(line string) []decimal.Decimal {
	matches := brl.MoneyPattern.FindAllString(line, -1)
	out := make([]decimal.Decimal, 0, len(matches))
	for _, m := range matches {
		if d, ok := brl.ParseMoney(m); ok {
			out = append(out, d)
		}
	}
	return out
}

// extractPeriod pulls a statement period (start, end) from flattened text.
func extractPeriod(flat string) (start, end *models.Date) {
	m := periodPattern.FindStringSubmatch(flat)
	if m == nil {
		return nil, nil
	}
	if d, ok := parseDDMMYYYY(m[1]); ok {
		start = &d
	}
	if d, ok := parseDDMMYYYY(m[2]); ok {
		end = &d
	}
	return start, end
}

// extractLabeledMoney finds a "saldo anterior"-style labeled value.
func extractLabeledMoney(flat string, pattern *regexp.Regexp) *decimal.Decimal {
	m := pattern.FindStringSubmatch(flat)
	if m == nil {
		return nil
	}
	d, ok := brl.ParseMoney(m[1])
	if !ok {
		return nil
	}
	d = brl.Cents(d)
	return &d
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

// nowUTC is swappable in tests that exercise the today fallback.
var nowUTC = func() time.Time {
	return time.Now().UTC()
}

// lastKnownBalance returns the balance of the last row that carries one.
func lastKnownBalance(txs []models.Transaction) *decimal.Decimal {
	for i := len(txs) - 1; i >= 0; i-- {
		if txs[i].Balance != nil {
			return txs[i].Balance
		}
	}
	return nil
}

// unsupported builds the sniff-failure result shared by every parser.
func unsupported(bank models.BankType, warning string) *models.StatementResult {
	return &models.StatementResult{
		Bank:         bank,
		Transactions: []models.Transaction{},
		Reason:       models.ReasonUnsupportedLayout,
		Warnings:     []string{warning},
	}
}
