package parser

import (
	"regexp"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ellalabs/ella-extractor/internal/brl"
	"github.com/ellalabs/ella-extractor/internal/models"
	"github.com/ellalabs/ella-extractor/internal/normalize"
)

// C6Parser reads C6 Bank account statements. Rows carry either an explicit
// D/C flag, a currency marker glued to the description ("-R$" / "R$"), or
// only a signed amount; "Saldo do dia" rows anchor the running balance.
type C6Parser struct{}

var (
	// dd/mm[/yyyy] <desc> <amount>[ D|C] <balance>
	c6TxWithBalance = regexp.MustCompile(`(?i)^\s*(\d{2})/(\d{2})(?:/(\d{4}))?\s+(.+?)\s+(-?\d{1,3}(?:\.\d{3})*,\d{2})(?:\s*([DC]))?\s+(-?\d{1,3}(?:\.\d{3})*,\d{2})\s*$`)
	// dd/mm[/yyyy] <desc> <value>
	c6BalanceOnly = regexp.MustCompile(`(?i)^\s*(\d{2})/(\d{2})(?:/(\d{4}))?\s+(.+?)\s+(-?\d{1,3}(?:\.\d{3})*,\d{2})\s*$`)
	// dd/mm[/yyyy] <desc> <amount>[ D|C]
	c6TxNoBalance = regexp.MustCompile(`(?i)^\s*(\d{2})/(\d{2})(?:/(\d{4}))?\s+(.+?)\s+(-?\d{1,3}(?:\.\d{3})*,\d{2})(?:\s*([DC]))?\s*$`)

	// "Saldo do dia 21/01/26 R$ 1.484,06" (date inside the description)
	c6SaldoDoDia = regexp.MustCompile(`(?i)saldo\s+do\s+dia\s+(\d{2})/(\d{2})/(\d{2}|\d{4})`)

	c6TrailingCurrencyMarker = regexp.MustCompile(`(?i)(?:^|\s)(-\s*R\$|R\$)\s*$`)

	c6MoneyValue = regexp.MustCompile(`-?\d{1,3}(?:\.\d{3})*,\d{2}`)
)

func (p *C6Parser) Bank() models.BankType { return models.BankC6 }

func (p *C6Parser) Sniff(text string) bool {
	n := strings.ToLower(brl.StripAccents(normalize.Flat(text)))
	if n == "" {
		return false
	}

	hasC6 := strings.Contains(n, "c6 bank") || strings.Contains(n, "banco c6")
	hasTable := strings.Contains(n, "saldo") || strings.Contains(n, "periodo")

	score := 0
	for _, marker := range []string{"c6 bank", "banco c6", "banco c6 s.a", "c6 s.a", "c6 conta", "extrato"} {
		if strings.Contains(n, marker) {
			score++
		}
	}
	return hasC6 && hasTable && score >= 2
}

func (p *C6Parser) Parse(rawText string) *models.StatementResult {
	if !p.Sniff(rawText) {
		return unsupported(p.Bank(), "not_c6")
	}

	var warnings []string
	debug := map[string]any{}
	normalized := normalize.Text(rawText)
	flat := normalize.Flat(rawText)

	periodStart, periodEnd := extractPeriod(flat)

	var statementDate *models.Date
	if periodEnd != nil {
		statementDate = periodEnd
	} else if dates := brFullDate.FindAllString(flat, -1); len(dates) > 0 {
		if d, ok := parseDDMMYYYY(dates[len(dates)-1]); ok {
			statementDate = &d
		}
	}

	opening := extractLabeledMoney(flat, openingPattern)
	closing := extractLabeledMoney(flat, closingPattern)

	txs, lastSaldoDate, lastSaldoValue := p.scanLines(normalized, periodStart, periodEnd)

	sort.SliceStable(txs, func(i, j int) bool {
		if !txs[i].Date.Equal(txs[j].Date) {
			return txs[i].Date.Before(txs[j].Date)
		}
		return txs[i].Description < txs[j].Description
	})

	// The last explicit "Saldo do dia" on the last statement day defines the
	// closing balance, over any labeled header value.
	if len(txs) > 0 && lastSaldoDate != nil && lastSaldoValue != nil {
		maxDate := txs[0].Date
		for _, t := range txs {
			if maxDate.Before(t.Date) {
				maxDate = t.Date
			}
		}
		if lastSaldoDate.Equal(maxDate) {
			closing = lastSaldoValue
		}
	}

	if statementDate == nil && len(txs) > 0 {
		statementDate = &txs[len(txs)-1].Date
	}
	if statementDate == nil {
		d := models.DateOf(nowUTC())
		statementDate = &d
		warnings = append(warnings, "statement_date_fallback_today")
	}

	if opening == nil {
		opening = p.deriveOpening(txs, debug)
	}
	if opening == nil {
		warnings = append(warnings, "missing_opening_balance")
		opening = models.Dec(decimal.Zero)
	}

	txs, derivedClosing := p.fillRunningBalances(txs, *opening)
	if closing == nil {
		closing = derivedClosing
	}
	if closing == nil {
		closing = lastKnownBalance(txs)
	}
	if closing == nil {
		warnings = append(warnings, "missing_closing_balance")
		closing = models.Dec(decimal.Zero)
	}

	if periodStart != nil {
		debug["periodStart"] = periodStart.String()
	}
	if periodEnd != nil {
		debug["periodEnd"] = periodEnd.String()
	}
	debug["txCount"] = len(txs)

	res := &models.StatementResult{
		Bank:           p.Bank(),
		StatementDate:  statementDate,
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

func (p *C6Parser) scanLines(normalized string, periodStart, periodEnd *models.Date) ([]models.Transaction, *models.Date, *decimal.Decimal) {
	txs := []models.Transaction{}
	var lastSaldoDate *models.Date
	var lastSaldoValue *decimal.Decimal

	for _, raw := range strings.Split(normalized, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}

		low := strings.ToLower(brl.StripAccents(line))
		switch low {
		case "data", "descricao", "valor", "saldo":
			continue
		}
		if strings.Contains(low, "data descricao") && (strings.Contains(low, "valor") || strings.Contains(low, "saldo")) {
			continue
		}

		// "Saldo do dia dd/mm/yy R$ ..." does not start with a date column.
		if strings.Contains(low, "saldo do dia") {
			if tx, ok := p.parseSaldoDoDiaLine(line); ok {
				txs = append(txs, tx)
				lastSaldoDate = &tx.Date
				lastSaldoValue = tx.Balance
				continue
			}
		}

		if m := c6TxWithBalance.FindStringSubmatch(line); m != nil {
			if tx, ok := p.buildRow(m[1], m[2], m[3], m[4], m[5], m[6], m[7], periodStart, periodEnd); ok {
				txs = append(txs, tx)
				if tx.Type == models.TxBalance && tx.Balance != nil {
					lastSaldoDate = &tx.Date
					lastSaldoValue = tx.Balance
				}
				continue
			}
		}

		// Balance-only rows like "dd/mm Saldo do dia 1.100,00". Checked after
		// the with-balance grammar so it never swallows real transactions.
		if m := c6BalanceOnly.FindStringSubmatch(line); m != nil {
			desc := compactSpaces(m[4])
			if p.isBalanceDescription(desc) {
				value, ok := brl.ParseMoney(m[5])
				if !ok {
					continue
				}
				date, ok := p.inferDate(m[1], m[2], m[3], periodStart, periodEnd)
				if !ok {
					continue
				}
				bal := models.Dec(brl.Cents(value))
				txs = append(txs, models.Transaction{
					Date:        date,
					Description: desc,
					Amount:      decimal.Zero,
					Balance:     bal,
					Type:        models.TxBalance,
				})
				lastSaldoDate = &date
				lastSaldoValue = bal
				continue
			}
		}

		if m := c6TxNoBalance.FindStringSubmatch(line); m != nil {
			if tx, ok := p.buildRow(m[1], m[2], m[3], m[4], m[5], m[6], "", periodStart, periodEnd); ok {
				txs = append(txs, tx)
			}
		}
	}
	return txs, lastSaldoDate, lastSaldoValue
}

func (p *C6Parser) parseSaldoDoDiaLine(line string) (models.Transaction, bool) {
	m := c6SaldoDoDia.FindStringSubmatch(line)
	if m == nil {
		return models.Transaction{}, false
	}

	year := atoi(m[3])
	if len(m[3]) == 2 {
		year += 2000
	}
	date, ok := brl.ParseDate(atoi(m[1]), m[2], year)
	if !ok {
		return models.Transaction{}, false
	}

	values := c6MoneyValue.FindAllString(line, -1)
	if len(values) == 0 {
		return models.Transaction{}, false
	}
	value, ok := brl.ParseMoney(values[len(values)-1])
	if !ok {
		return models.Transaction{}, false
	}

	return models.Transaction{
		Date:        date,
		Description: "Saldo do dia",
		Amount:      decimal.Zero,
		Balance:     models.Dec(brl.Cents(value)),
		Type:        models.TxBalance,
	}, true
}

// buildRow assembles a transaction from the captured columns. balanceStr is
// empty for the no-balance grammar.
func (p *C6Parser) buildRow(dd, mm, yyyy, descRaw, amountStr, dcFlag, balanceStr string, periodStart, periodEnd *models.Date) (models.Transaction, bool) {
	amount, ok := brl.ParseMoney(amountStr)
	if !ok {
		return models.Transaction{}, false
	}

	var balance *decimal.Decimal
	if balanceStr != "" {
		b, ok := brl.ParseMoney(balanceStr)
		if !ok {
			return models.Transaction{}, false
		}
		balance = models.Dec(brl.Cents(b))
	}

	date, ok := p.inferDate(dd, mm, yyyy, periodStart, periodEnd)
	if !ok {
		return models.Transaction{}, false
	}

	desc, markerDC := p.stripCurrencyMarker(compactSpaces(descRaw))
	dc := strings.ToUpper(strings.TrimSpace(dcFlag))
	if dc == "" {
		dc = markerDC
	}

	if p.isBalanceDescription(desc) {
		return models.Transaction{
			Date:        date,
			Description: desc,
			Amount:      decimal.Zero,
			Balance:     balance,
			Type:        models.TxBalance,
		}, true
	}

	var typ models.TxType
	switch dc {
	case "C":
		typ = models.TxCredit
	case "D":
		typ = models.TxDebit
	default:
		if amount.IsNegative() {
			typ = models.TxDebit
		} else {
			typ = models.TxCredit
		}
	}

	return models.Transaction{
		Date:        date,
		Description: desc,
		Amount:      signedAmount(amount, typ),
		Balance:     balance,
		Type:        typ,
	}, true
}

// stripCurrencyMarker removes a trailing "-R$" / "R$" token that extraction
// glued onto the description and turns it into a D/C hint.
func (p *C6Parser) stripCurrencyMarker(desc string) (string, string) {
	d := strings.NewReplacer("−", "-", "–", "-", "—", "-").Replace(desc)
	m := c6TrailingCurrencyMarker.FindStringSubmatchIndex(d)
	if m == nil {
		return d, ""
	}
	token := strings.ReplaceAll(d[m[2]:m[3]], " ", "")
	cleaned := strings.TrimSpace(d[:m[0]])
	if strings.HasPrefix(token, "-") {
		return cleaned, "D"
	}
	return cleaned, "C"
}

func (p *C6Parser) isBalanceDescription(desc string) bool {
	d := strings.TrimSpace(strings.ToLower(brl.StripAccents(desc)))
	if d == "" {
		return false
	}
	return strings.HasPrefix(d, "saldo")
}

func (p *C6Parser) inferDate(dd, mm, yyyy string, periodStart, periodEnd *models.Date) (models.Date, bool) {
	day := atoi(dd)
	if yyyy != "" {
		return brl.ParseDate(day, mm, atoi(yyyy))
	}

	if periodStart != nil && periodEnd != nil {
		year := periodEnd.Year
		// A Dec row in a Dec->Jan statement belongs to the start year.
		if month, ok := brl.Month(mm); ok && periodStart.Year != periodEnd.Year && month > periodEnd.Month {
			year = periodStart.Year
		}
		return brl.ParseDate(day, mm, year)
	}

	return brl.ParseDate(day, mm, brl.CurrentYear())
}

// deriveOpening backs the opening balance out of the first transaction that
// carries both amount and balance, else out of the first "Saldo do dia" row
// minus that day's net movement.
func (p *C6Parser) deriveOpening(txs []models.Transaction, debug map[string]any) *decimal.Decimal {
	for _, t := range txs {
		if t.Type != models.TxBalance && t.Balance != nil {
			return models.Dec(brl.Cents(t.Balance.Sub(t.Amount)))
		}
	}

	for _, t := range txs {
		if t.Type != models.TxBalance || t.Balance == nil {
			continue
		}
		dayNet := decimal.Zero
		for _, o := range txs {
			if o.Type != models.TxBalance && o.Date.Equal(t.Date) {
				dayNet = dayNet.Add(o.Amount)
			}
		}
		opening := brl.Cents(t.Balance.Sub(dayNet))
		debug["openingDerivedFromSaldoDoDia"] = map[string]any{
			"date":       t.Date.String(),
			"saldoDoDia": t.Balance.String(),
			"dayNet":     dayNet.String(),
		}
		return models.Dec(opening)
	}
	return nil
}

// fillRunningBalances gives every transaction a balance, carrying a running
// balance forward from the opening and re-anchoring on balance rows. Returns
// the derived closing when any balance had to be filled.
func (p *C6Parser) fillRunningBalances(txs []models.Transaction, opening decimal.Decimal) ([]models.Transaction, *decimal.Decimal) {
	anyMissing := false
	for _, t := range txs {
		if t.Type != models.TxBalance && t.Balance == nil {
			anyMissing = true
			break
		}
	}
	if !anyMissing {
		return txs, nil
	}

	running := opening
	for i := range txs {
		if txs[i].Type == models.TxBalance {
			if txs[i].Balance != nil {
				running = *txs[i].Balance
			}
			continue
		}
		if txs[i].Balance == nil {
			txs[i].Balance = models.Dec(brl.Cents(running.Add(txs[i].Amount)))
		}
		running = *txs[i].Balance
	}
	return txs, models.Dec(running)
}
