package parser

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ellalabs/ella-extractor/internal/brl"
	"github.com/ellalabs/ella-extractor/internal/models"
	"github.com/ellalabs/ella-extractor/internal/normalize"
)

// BradescoParser reads Bradesco checking-account statements. Rows are
// accumulated as candidates first because the layout splits a single
// transaction across history, docto/value and party-marker lines; the sign is
// settled afterwards by replaying candidates against the running balance.
type BradescoParser struct{}

var (
	brMovimentacaoEntre = regexp.MustCompile(`(?i)movimenta[cç][aã]o\s+entre\s*:?\s*(\d{2}/\d{2}/\d{4})\s*(?:e|a|-|at[eé])\s*(\d{2}/\d{2}/\d{4})`)

	brColumnLeak = regexp.MustCompile(`(?i)\b(cr[eé]dito|d[eé]bito|saldo|docto\.?|documento)\b`)

	brFullDate  = regexp.MustCompile(`\b\d{2}/\d{2}/\d{4}\b`)
	brShortDate = regexp.MustCompile(`\b\d{2}/\d{2}\b`)
	brLongID    = regexp.MustCompile(`\b\d{5,}\b`)
	brCodLanc   = regexp.MustCompile(`(?i)\bCOD\.?\s*LANC\.?\s*\d+\b`)
	brDupPix    = regexp.MustCompile(`(?i)\b(TRANSFERENCIA\s+PIX)(?:\s+TRANSFERENCIA\s+PIX)+\b`)

	brContinuationMarker = regexp.MustCompile(`(?i)^(des|rem|dest)\s*:\s*`)
	brDocValuesLine      = regexp.MustCompile(`^\d{5,}\b`)
	brHasLetter          = regexp.MustCompile(`[A-Za-zÀ-ÿ]`)

	brNoiseHeaders = regexp.MustCompile(`(?i)^(nome\s*:|data\s*:|total\b|extrato\s+inexistente\b)`)
	brFolha        = regexp.MustCompile(`(?i)\bfolha\s*:\s*\d+\s*/\s*\d+`)
)

func (p *BradescoParser) Bank() models.BankType { return models.BankBradesco }

func (p *BradescoParser) Sniff(text string) bool {
	n := strings.ToLower(brl.StripAccents(normalize.Flat(text)))
	if !strings.Contains(n, "bradesco") {
		return false
	}
	for _, marker := range []string{"extrato", "saldo", "agencia", "conta"} {
		if strings.Contains(n, marker) {
			return true
		}
	}
	return false
}

// candidateRow is a transaction being assembled across physical lines.
type candidateRow struct {
	date      models.Date
	desc      string
	amountAbs *decimal.Decimal
	balance   *decimal.Decimal
	isBalance bool
}

func (p *BradescoParser) Parse(rawText string) *models.StatementResult {
	if !p.Sniff(rawText) {
		return unsupported(p.Bank(), "not_bradesco")
	}

	var warnings []string
	text := normalize.Text(rawText)
	flat := normalize.Flat(rawText)

	periodStart, periodEnd := p.extractPeriod(flat)

	var statementDate models.Date
	if periodEnd != nil {
		statementDate = *periodEnd
	} else {
		statementDate = models.DateOf(nowUTC())
		warnings = append(warnings, "statement_date_fallback_today")
	}
	defaultYear := statementDate.Year

	opening := extractLabeledMoney(flat, openingPattern)
	closing := extractLabeledMoney(flat, closingPattern)

	candidates := p.collectCandidates(text, defaultYear, &opening, &closing)
	candidates = p.fixYearRollover(candidates, periodStart, periodEnd)

	debug := map[string]any{}
	if periodStart != nil {
		debug["periodStart"] = periodStart.String()
	}
	if periodEnd != nil {
		debug["periodEnd"] = periodEnd.String()
	}

	if opening == nil {
		opening = p.deriveOpening(candidates, debug)
	}
	if opening == nil {
		warnings = append(warnings, "missing_opening_balance")
		opening = models.Dec(decimal.Zero)
	}

	txs, running, ambiguous := p.settleSigns(candidates, *opening)
	if ambiguous {
		warnings = append(warnings, "sign_inference_ambiguous")
	}

	if closing == nil {
		closing = lastKnownBalance(txs)
		if closing == nil {
			closing = models.Dec(running)
		}
		debug["closingDerived"] = true
	}

	debug["txCount"] = len(txs)

	res := &models.StatementResult{
		Bank:           p.Bank(),
		StatementDate:  &statementDate,
		OpeningBalance: opening,
		ClosingBalance: closing,
		Transactions:   txs,
		Warnings:       []string{},
		Debug:          debug,
	}
	if len(txs) == 0 {
		res.Reason = models.ReasonUnsupportedLayout
	}
	res.Warnings = append(res.Warnings, warnings...)
	return res
}

func (p *BradescoParser) extractPeriod(flat string) (*models.Date, *models.Date) {
	if m := brMovimentacaoEntre.FindStringSubmatch(flat); m != nil {
		var start, end *models.Date
		if d, ok := parseDDMMYYYY(m[1]); ok {
			start = &d
		}
		if d, ok := parseDDMMYYYY(m[2]); ok {
			end = &d
		}
		return start, end
	}
	return extractPeriod(flat)
}

// collectCandidates walks the statement lines and assembles candidate rows,
// merging docto/value continuations and party markers into the pending row.
// Labeled balance rows encountered mid-stream backfill opening/closing.
func (p *BradescoParser) collectCandidates(text string, defaultYear int, opening, closing **decimal.Decimal) []candidateRow {
	var candidates []candidateRow
	var lastDate *models.Date
	var pendingPrefix []string

	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" || p.isNoiseLine(line) {
			continue
		}

		txDate, yearSeen, ok := p.parseLineDate(line, defaultYear)
		if !ok {
			// Dateless lines: a new history row for the previous date, a
			// docto/values row, or a description continuation.
			if p.looksLikeNewHistoryHeader(line) {
				if lastDate == nil {
					pendingPrefix = append(pendingPrefix, line)
				} else {
					candidates = append(candidates, candidateRow{date: *lastDate, desc: line})
				}
				continue
			}
			if len(candidates) > 0 {
				p.mergeContinuation(&candidates[len(candidates)-1], line)
			}
			continue
		}

		lastDate = &txDate
		defaultYear = yearSeen

		prefix := strings.TrimSpace(strings.Join(pendingPrefix, " "))
		pendingPrefix = nil

		moneyLocs := brl.MoneyPattern.FindAllStringIndex(line, -1)
		if len(moneyLocs) == 0 {
			desc := p.cleanDescription(p.stripLeadingDate(line))
			if prefix != "" {
				desc = p.cleanDescription(prefix + " " + desc)
			}
			candidates = append(candidates, candidateRow{date: txDate, desc: desc})
			continue
		}

		// Two or more money tokens: last is the running balance, the one
		// before it the amount. A single token is the amount alone.
		var amountAbs, balance *decimal.Decimal
		var descEnd int
		if len(moneyLocs) >= 2 {
			balLoc := moneyLocs[len(moneyLocs)-1]
			amtLoc := moneyLocs[len(moneyLocs)-2]
			if d, ok := brl.ParseMoney(line[balLoc[0]:balLoc[1]]); ok {
				balance = models.Dec(brl.Cents(d))
			}
			if d, ok := brl.ParseMoney(line[amtLoc[0]:amtLoc[1]]); ok {
				amountAbs = models.Dec(brl.Cents(d.Abs()))
			}
			descEnd = amtLoc[0]
		} else {
			amtLoc := moneyLocs[0]
			if d, ok := brl.ParseMoney(line[amtLoc[0]:amtLoc[1]]); ok {
				amountAbs = models.Dec(brl.Cents(d.Abs()))
			}
			descEnd = amtLoc[0]
		}

		desc := p.cleanDescription(p.stripLeadingDate(strings.TrimSpace(line[:descEnd])))
		if prefix != "" {
			desc = p.cleanDescription(prefix + " " + desc)
		}

		lowDesc := strings.ToLower(brl.StripAccents(desc))
		isBalance := strings.Contains(lowDesc, "saldo")
		if isBalance && balance != nil {
			if *opening == nil && (strings.Contains(lowDesc, "anterior") || strings.Contains(lowDesc, "inicial")) {
				*opening = balance
			}
			if *closing == nil && (strings.Contains(lowDesc, "final") || strings.Contains(lowDesc, "atual")) {
				*closing = balance
			}
		}

		candidates = append(candidates, candidateRow{
			date:      txDate,
			desc:      desc,
			amountAbs: amountAbs,
			balance:   balance,
			isBalance: isBalance,
		})
	}
	return candidates
}

// mergeContinuation folds a dateless line into the newest candidate, filling
// amount/balance when the candidate still lacks them.
func (p *BradescoParser) mergeContinuation(prev *candidateRow, line string) {
	if prev.amountAbs == nil {
		locs := brl.MoneyPattern.FindAllStringIndex(line, -1)
		if len(locs) >= 2 {
			if d, ok := brl.ParseMoney(line[locs[len(locs)-1][0]:locs[len(locs)-1][1]]); ok {
				prev.balance = models.Dec(brl.Cents(d))
			}
			if d, ok := brl.ParseMoney(line[locs[len(locs)-2][0]:locs[len(locs)-2][1]]); ok {
				prev.amountAbs = models.Dec(brl.Cents(d.Abs()))
			}
		} else if len(locs) == 1 {
			if d, ok := brl.ParseMoney(line[locs[0][0]:locs[0][1]]); ok {
				prev.amountAbs = models.Dec(brl.Cents(d.Abs()))
			}
		}
	}
	if prev.desc == "" {
		prev.desc = line
	} else {
		prev.desc = strings.TrimSpace(prev.desc + " " + line)
	}
}

func (p *BradescoParser) parseLineDate(line string, defaultYear int) (models.Date, int, bool) {
	if m := dateFullAtStart.FindStringSubmatch(line); m != nil {
		if d, ok := dateFromGroups(m[1], m[2], m[3]); ok {
			return d, d.Year, true
		}
		return models.Date{}, defaultYear, false
	}
	if m := dateShortAtStart.FindStringSubmatch(line); m != nil {
		day := atoi(m[1])
		if d, ok := brl.ParseDate(day, m[2], defaultYear); ok {
			return d, defaultYear, true
		}
	}
	return models.Date{}, defaultYear, false
}

func (p *BradescoParser) stripLeadingDate(line string) string {
	if loc := dateFullAtStart.FindStringIndex(line); loc != nil {
		return strings.TrimSpace(line[loc[1]:])
	}
	if loc := dateShortAtStart.FindStringIndex(line); loc != nil {
		return strings.TrimSpace(line[loc[1]:])
	}
	return line
}

func (p *BradescoParser) isNoiseLine(line string) bool {
	n := strings.ToLower(brl.StripAccents(line))

	// A line starting with a date is a transaction, never noise.
	startsWithDate := dateShortAtStart.MatchString(line)
	for _, marker := range []string{"banco bradesco", "bradesco celular", "bradesco", "pagina", "ouvidoria", "sac"} {
		if strings.Contains(n, marker) && !startsWithDate {
			return true
		}
	}

	if strings.Contains(n, "data") && strings.Contains(n, "saldo") {
		return true
	}
	return brNoiseHeaders.MatchString(line) || brFolha.MatchString(line)
}

func (p *BradescoParser) looksLikeNewHistoryHeader(line string) bool {
	if brContinuationMarker.MatchString(line) {
		return false
	}
	if brDocValuesLine.MatchString(line) && brl.MoneyPattern.MatchString(line) {
		return false
	}
	if brl.MoneyPattern.MatchString(line) {
		return false
	}
	return brHasLetter.MatchString(line)
}

func (p *BradescoParser) cleanDescription(desc string) string {
	d := compactSpaces(desc)
	d = compactSpaces(brColumnLeak.ReplaceAllString(d, ""))
	if len(d) > 120 {
		d = strings.TrimRight(d[:117], " ") + "..."
	}
	return d
}

// summarizeDescription compresses the merged multi-line description to its
// history label plus party markers, dropping docto ids and numeric columns.
func (p *BradescoParser) summarizeDescription(desc string) string {
	d := p.cleanDescription(desc)
	if d == "" {
		return d
	}

	d = brl.MoneyPattern.ReplaceAllString(d, "")
	d = brFullDate.ReplaceAllString(d, "")
	d = brShortDate.ReplaceAllString(d, "")
	d = brLongID.ReplaceAllString(d, "")
	d = brCodLanc.ReplaceAllString(d, "")
	d = brDupPix.ReplaceAllString(d, "$1")
	d = strings.Trim(compactSpaces(d), " -|\t")

	if len(d) > 90 {
		d = strings.TrimRight(d[:87], " ") + "..."
	}
	return d
}

func (p *BradescoParser) fixYearRollover(candidates []candidateRow, periodStart, periodEnd *models.Date) []candidateRow {
	if periodStart == nil || periodEnd == nil || periodStart.Year == periodEnd.Year {
		return candidates
	}
	for i, c := range candidates {
		// December rows in a Dec->Jan period belong to the earlier year.
		if c.date.Year == periodEnd.Year && periodStart.Month == 12 && c.date.Month == 12 {
			if d, ok := models.NewDate(periodStart.Year, c.date.Month, c.date.Day); ok {
				candidates[i].date = d
			}
		}
	}
	return candidates
}

// deriveOpening reconstructs the opening balance from the first candidate
// carrying both amount and balance, guessing the sign from keywords.
func (p *BradescoParser) deriveOpening(candidates []candidateRow, debug map[string]any) *decimal.Decimal {
	for _, c := range candidates {
		if c.isBalance || c.amountAbs == nil || c.balance == nil {
			continue
		}
		desc := strings.ToLower(brl.StripAccents(c.desc))
		isCredit := false
		for _, kw := range []string{"receb", "deposit", "credito", "salario", "pix receb"} {
			if strings.Contains(desc, kw) {
				isCredit = true
				break
			}
		}
		for _, kw := range []string{"pag", "compra", "tarifa", "saque", "envio", "debito", "pix envi"} {
			if strings.Contains(desc, kw) {
				isCredit = false
				break
			}
		}
		var opening decimal.Decimal
		assumed := "DEBIT"
		if isCredit {
			opening = c.balance.Sub(*c.amountAbs)
			assumed = "CREDIT"
		} else {
			opening = c.balance.Add(*c.amountAbs)
		}
		debug["openingDerivedFromFirstTx"] = map[string]any{"date": c.date.String(), "assumed": assumed}
		return models.Dec(brl.Cents(opening))
	}
	return nil
}

// settleSigns replays candidates against the running balance, choosing the
// sign that reproduces each observed balance. Returns the rows, the final
// running balance, and whether any row fell to the bare DEBIT default.
func (p *BradescoParser) settleSigns(candidates []candidateRow, opening decimal.Decimal) ([]models.Transaction, decimal.Decimal, bool) {
	txs := []models.Transaction{}
	running := opening
	ambiguous := false

	for _, c := range candidates {
		if c.isBalance {
			if c.balance != nil {
				running = *c.balance
			}
			desc := c.desc
			if desc == "" {
				desc = "Saldo"
			}
			if c.balance == nil {
				// A balance row with no readable figure cannot anchor the
				// running balance; skip it.
				continue
			}
			txs = append(txs, models.Transaction{
				Date:        c.date,
				Description: p.summarizeDescription(desc),
				Amount:      decimal.Zero,
				Balance:     c.balance,
				Type:        models.TxBalance,
			})
			continue
		}

		if c.amountAbs == nil {
			continue
		}
		amountAbs := *c.amountAbs

		typ := models.TxDebit
		if c.balance != nil {
			if brl.WithinCent(running.Add(amountAbs), *c.balance) {
				typ = models.TxCredit
			} else if brl.WithinCent(running.Sub(amountAbs), *c.balance) {
				typ = models.TxDebit
			} else {
				delta := brl.Cents(c.balance.Sub(running))
				switch {
				case delta.Abs().Equal(brl.Cents(amountAbs)) && delta.IsPositive():
					typ = models.TxCredit
				case delta.Abs().Equal(brl.Cents(amountAbs)) && delta.IsNegative():
					typ = models.TxDebit
				default:
					ambiguous = true
				}
			}
			running = *c.balance
		} else {
			var fell bool
			typ, fell = InferType(nil, amountAbs, nil, c.desc)
			ambiguous = ambiguous || fell
			running = brl.Cents(running.Add(signedAmount(amountAbs, typ)))
		}

		txs = append(txs, models.Transaction{
			Date:        c.date,
			Description: p.summarizeDescription(c.desc),
			Amount:      signedAmount(amountAbs, typ),
			Balance:     c.balance,
			Type:        typ,
		})
	}
	return txs, running, ambiguous
}
