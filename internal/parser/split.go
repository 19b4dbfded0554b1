package parser

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/ellalabs/ella-extractor/internal/brl"
	"github.com/ellalabs/ella-extractor/internal/models"
)

// A real second transaction on a glued line starts with dd/mm followed by
// whitespace and an uppercase merchant letter. Installment fractions like
// "07/10" are followed by digits or currency, never an uppercase word, so
// they are not split points.
var txStartPattern = regexp.MustCompile(`\b(\d{2}/\d{2})\s+[A-ZÀ-Ý]`)

// dateAmountOnly recognizes a mis-split fragment: a date and a money token
// with no description between them.
var dateAmountOnly = regexp.MustCompile(`^\d{2}/\d{2}\s*(?:\d{1,3}(?:\.\d{3})*,\d{2})?$`)

// SplitMultiTransactionLine splits one physical line that extraction glued
// from several transaction rows. Split points are dd/mm starts followed by an
// uppercase letter; each segment is trimmed to its last monetary token and
// must still carry a description. Fewer than 2 valid segments means the line
// was not actually glued and is returned whole.
func SplitMultiTransactionLine(line string) []string {
	starts := txStartPattern.FindAllStringSubmatchIndex(line, -1)
	if len(starts) < 2 {
		return []string{line}
	}

	var segments []string
	for i, loc := range starts {
		end := len(line)
		if i+1 < len(starts) {
			end = starts[i+1][2]
		}
		segments = append(segments, strings.TrimSpace(line[loc[2]:end]))
	}

	var kept []string
	for _, seg := range segments {
		if _, _, ok := lastMoneyAtEnd(seg); !ok {
			// Shed glued trailing noise past the last money token.
			locs := brl.MoneyPattern.FindAllStringIndex(seg, -1)
			if len(locs) == 0 {
				continue
			}
			seg = strings.TrimSpace(seg[:locs[len(locs)-1][1]])
		}
		if dateAmountOnly.MatchString(compactSpaces(seg)) {
			continue
		}
		kept = append(kept, seg)
	}

	if len(kept) < 2 {
		return []string{line}
	}
	return kept
}

// gluedFraction matches an installment fraction fused onto the tail of a
// merchant name, e.g. "COSSERVICOSMEDIC07/10".
var gluedFraction = regexp.MustCompile(`([A-Za-zÀ-ÿ*.])(\d{2}/\d{2})\b`)

// SeparateGluedFraction inserts a space between a description and an
// installment fraction extraction fused together.
func SeparateGluedFraction(line string) string {
	return gluedFraction.ReplaceAllString(line, "$1 $2")
}

var fractionToken = regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})\b`)

// ExtractInstallment pulls an installment fraction out of a description,
// returning the cleaned description and the fraction when present. Only
// current<=total fractions count; a stray dd/mm date does not qualify.
func ExtractInstallment(desc string) (string, *models.Installment) {
	locs := fractionToken.FindAllStringSubmatchIndex(desc, -1)
	for i := len(locs) - 1; i >= 0; i-- {
		loc := locs[i]
		cur, _ := strconv.Atoi(desc[loc[2]:loc[3]])
		total, _ := strconv.Atoi(desc[loc[4]:loc[5]])
		if cur >= 1 && total >= 2 && cur <= total && total <= 48 {
			cleaned := compactSpaces(desc[:loc[0]] + " " + desc[loc[1]:])
			return cleaned, &models.Installment{Current: cur, Total: total}
		}
	}
	return desc, nil
}
