package parser

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ellalabs/ella-extractor/internal/brl"
	"github.com/ellalabs/ella-extractor/internal/models"
)

var (
	installmentFraction = regexp.MustCompile(`\b\d{1,2}/\d{1,2}\b`)
	nonAlnum            = regexp.MustCompile(`[^a-z0-9]+`)
)

// dedupeTolerance is tighter than the balance-matching cent tolerance: two
// rows only merge when their amounts agree to half a cent.
var dedupeTolerance = decimal.NewFromFloat(0.005)

// normalizeDescription reduces a description to its comparable core:
// installment fractions out, accents stripped, lower-cased, alphanumerics
// only.
func normalizeDescription(desc string) string {
	s := installmentFraction.ReplaceAllString(desc, " ")
	s = strings.ToLower(brl.StripAccents(s))
	return nonAlnum.ReplaceAllString(s, "")
}

// similarDescriptions reports whether two normalized descriptions refer to
// the same merchant row: equal, or one of length >= 5 contained in the other.
func similarDescriptions(a, b string) bool {
	if a == b {
		return a != ""
	}
	if len(a) >= 5 && strings.Contains(b, a) {
		return true
	}
	if len(b) >= 5 && strings.Contains(a, b) {
		return true
	}
	return false
}

func isDuplicate(a, b models.Transaction) bool {
	if !a.Date.Equal(b.Date) {
		return false
	}
	if a.Amount.Sub(b.Amount).Abs().GreaterThan(dedupeTolerance) {
		return false
	}
	return similarDescriptions(normalizeDescription(a.Description), normalizeDescription(b.Description))
}

// Dedupe collapses transactions detected more than once across overlapping
// scans. The first occurrence wins; a later duplicate only contributes its
// card identifier when the earlier one lacks it. Idempotent.
func Dedupe(txs []models.Transaction) []models.Transaction {
	out := make([]models.Transaction, 0, len(txs))
	for _, tx := range txs {
		merged := false
		for i := range out {
			if isDuplicate(out[i], tx) {
				if out[i].CardFinal == "" && tx.CardFinal != "" {
					out[i].CardFinal = tx.CardFinal
				}
				if out[i].Installment == nil && tx.Installment != nil {
					out[i].Installment = tx.Installment
				}
				merged = true
				break
			}
		}
		if !merged {
			out = append(out, tx)
		}
	}
	return out
}
