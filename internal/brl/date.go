package brl

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/ellalabs/ella-extractor/internal/models"
)

var monthsAbbr = map[string]time.Month{
	"jan": time.January,
	"fev": time.February,
	"mar": time.March,
	"abr": time.April,
	"mai": time.May,
	"jun": time.June,
	"jul": time.July,
	"ago": time.August,
	"set": time.September,
	"out": time.October,
	"nov": time.November,
	"dez": time.December,
}

var monthsFull = map[string]time.Month{
	"janeiro":   time.January,
	"fevereiro": time.February,
	"marco":     time.March,
	"abril":     time.April,
	"maio":      time.May,
	"junho":     time.June,
	"julho":     time.July,
	"agosto":    time.August,
	"setembro":  time.September,
	"outubro":   time.October,
	"novembro":  time.November,
	"dezembro":  time.December,
}

// Month resolves a Portuguese month token: numeric ("05"), 3-letter
// abbreviation ("mai") or full name ("maio"), accent-insensitive.
func Month(token string) (time.Month, bool) {
	t := strings.ToLower(strings.TrimSpace(StripAccents(token)))
	if t == "" {
		return 0, false
	}
	if n, err := strconv.Atoi(t); err == nil {
		if n >= 1 && n <= 12 {
			return time.Month(n), true
		}
		return 0, false
	}
	if m, ok := monthsAbbr[t]; ok {
		return m, true
	}
	if m, ok := monthsFull[t]; ok {
		return m, true
	}
	return 0, false
}

// ParseDate builds a calendar date from a day number, a month token and a
// year. Calendar-invalid combinations (31/02) return ok=false; callers treat
// that as a recoverable per-line failure.
func ParseDate(day int, monthToken string, year int) (models.Date, bool) {
	m, ok := Month(monthToken)
	if !ok {
		return models.Date{}, false
	}
	return models.NewDate(year, m, day)
}

var anyFullDate = regexp.MustCompile(`\b\d{2}/\d{2}/(\d{4})\b`)

// YearHint extracts the first explicit 4-digit year from dd/mm/yyyy tokens in
// the document. When absent, callers fall back to the current calendar year.
func YearHint(flatText string) (int, bool) {
	m := anyFullDate.FindStringSubmatch(flatText)
	if m == nil {
		return 0, false
	}
	y, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return y, true
}

// CurrentYear is swappable in tests that need deterministic year inference.
var CurrentYear = func() int {
	return time.Now().Year()
}
