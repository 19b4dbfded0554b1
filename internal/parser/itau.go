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

// ItauStatementParser reads Itaú checking-account statements. Every row
// carries a full dd/mm/yyyy date and a signed trailing value; "SALDO DO DIA"
// rows anchor daily balances, from which opening/closing are derived.
type ItauStatementParser struct{}

var (
	// "período de visualização: 04/10/2025 até 03/12/2025"
	itPeriod = regexp.MustCompile(`(?i)per[ií]odo\s+de\s+visualiza[cç][aã]o\s*:\s*(\d{2})/(\d{2})/(\d{4})\s*(?:at[eé]|a|-|à)\s*(\d{2})/(\d{2})/(\d{4})`)

	// "emitido em: 03/12/2025 12:47:47"
	itEmit = regexp.MustCompile(`(?i)emitido\s+em\s*:\s*(\d{2})/(\d{2})/(\d{4})\b`)

	// Glued dd/mm inside a wrapped description: "Raimund03/12"
	itGluedDateInDesc = regexp.MustCompile(`([A-Za-zÀ-ÿ])(\d{2}/\d{2})\b`)
)

func (p *ItauStatementParser) Bank() models.BankType { return models.BankItau }

func (p *ItauStatementParser) Sniff(text string) bool {
	n := strings.ToLower(brl.StripAccents(normalize.Text(text)))
	if n == "" {
		return false
	}
	if strings.Contains(n, "extrato conta") && strings.Contains(n, "lancamentos") {
		return true
	}
	if strings.Contains(n, "periodo de visualizacao") && strings.Contains(n, "saldo do dia") {
		return true
	}
	return strings.Contains(n, "data lancamentos") && strings.Contains(n, "saldo") && strings.Contains(n, "valor")
}

func (p *ItauStatementParser) Parse(rawText string) *models.StatementResult {
	if !p.Sniff(rawText) {
		return unsupported(p.Bank(), "not_itau")
	}

	var warnings []string
	debug := map[string]any{}
	normalized := normalize.Text(rawText)
	flat := normalize.Flat(rawText)

	var periodStart, periodEnd, emitDate *models.Date
	if m := itPeriod.FindStringSubmatch(flat); m != nil {
		if d, ok := dateFromGroups(m[1], m[2], m[3]); ok {
			periodStart = &d
		}
		if d, ok := dateFromGroups(m[4], m[5], m[6]); ok {
			periodEnd = &d
		}
	}
	if m := itEmit.FindStringSubmatch(flat); m != nil {
		if d, ok := dateFromGroups(m[1], m[2], m[3]); ok {
			emitDate = &d
		}
	}

	statementDate := emitDate
	if statementDate == nil {
		statementDate = periodEnd
	}
	if statementDate == nil {
		warnings = append(warnings, "missing_statement_date")
	}

	txs, balancesByDate, scanWarnings := p.scanLines(normalized)
	warnings = append(warnings, scanWarnings...)

	var opening, closing *decimal.Decimal
	if len(balancesByDate) > 0 {
		dates := make([]models.Date, 0, len(balancesByDate))
		for d := range balancesByDate {
			dates = append(dates, d)
		}
		sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
		opening = models.Dec(balancesByDate[dates[0]])
		closing = models.Dec(balancesByDate[dates[len(dates)-1]])
	} else {
		warnings = append(warnings, "missing_daily_balances")
		opening = models.Dec(decimal.Zero)
		closing = models.Dec(decimal.Zero)
	}

	if periodStart != nil {
		debug["periodStart"] = periodStart.String()
	}
	if periodEnd != nil {
		debug["periodEnd"] = periodEnd.String()
	}
	if emitDate != nil {
		debug["emitDate"] = emitDate.String()
	}
	debug["txCount"] = len(txs)
	debug["balanceDays"] = len(balancesByDate)

	res := &models.StatementResult{
		Bank:           p.Bank(),
		StatementDate:  statementDate,
		OpeningBalance: opening,
		ClosingBalance: closing,
		Transactions:   txs,
		Warnings:       []string{},
		Debug:          debug,
	}
	if len(txs) == 0 || statementDate == nil {
		res.Reason = models.ReasonUnsupportedLayout
	}
	res.Warnings = append(res.Warnings, warnings...)
	return res
}

func (p *ItauStatementParser) scanLines(normalized string) ([]models.Transaction, map[models.Date]decimal.Decimal, []string) {
	txs := []models.Transaction{}
	balancesByDate := map[models.Date]decimal.Decimal{}
	var warnings []string

	currentTx := -1

	for _, raw := range strings.Split(normalized, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}

		if p.isNoiseLine(line) {
			// The "Aviso" boilerplate block ends the ledger area.
			if strings.HasPrefix(strings.ToLower(brl.StripAccents(line)), "aviso") {
				break
			}
			continue
		}

		m := dateFullAtStart.FindStringSubmatch(line)
		if m != nil {
			txDate, ok := dateFromGroups(m[1], m[2], m[3])
			if !ok {
				continue
			}
			rest := strings.TrimSpace(line[len(m[0]):])

			if strings.HasPrefix(strings.ToUpper(brl.StripAccents(rest)), "SALDO DO DIA") {
				bal, _, ok := lastMoneyAtEnd(rest)
				if !ok {
					warnings = append(warnings, "unparsed_balance_row")
					continue
				}
				bal = brl.Cents(bal)
				balancesByDate[txDate] = bal
				txs = append(txs, models.Transaction{
					Date:        txDate,
					Description: "SALDO DO DIA",
					Amount:      decimal.Zero,
					Balance:     models.Dec(bal),
					Type:        models.TxBalance,
				})
				currentTx = -1
				continue
			}

			amount, amountIdx, ok := lastMoneyAtEnd(rest)
			if !ok {
				// Date line with no trailing value: a wrapped transaction
				// header; the description continues on the next line.
				txs = append(txs, models.Transaction{
					Date:        txDate,
					Description: p.cleanDescription(rest),
					Amount:      decimal.Zero,
					Type:        models.TxDebit,
				})
				currentTx = len(txs) - 1
				warnings = append(warnings, "missing_amount_on_tx_line")
				continue
			}

			typ := models.TxDebit
			if amount.IsPositive() {
				typ = models.TxCredit
			}
			txs = append(txs, models.Transaction{
				Date:        txDate,
				Description: p.cleanDescription(rest[:amountIdx]),
				Amount:      signedAmount(amount, typ),
				Type:        typ,
			})
			currentTx = len(txs) - 1
			continue
		}

		// Continuation line: fold into the previous transaction description.
		if currentTx >= 0 {
			low := strings.ToLower(brl.StripAccents(line))
			if strings.HasPrefix(low, "periodo de visualizacao") || strings.Contains(low, "extrato conta") {
				continue
			}
			txs[currentTx].Description = p.cleanDescription(txs[currentTx].Description + " " + line)
		}
	}
	return txs, balancesByDate, warnings
}

func (p *ItauStatementParser) isNoiseLine(line string) bool {
	low := strings.TrimSpace(strings.ToLower(brl.StripAccents(line)))
	if low == "" {
		return true
	}
	if strings.HasPrefix(low, "data ") && strings.Contains(low, "lancamentos") && strings.Contains(low, "valor") {
		return true
	}
	if strings.Contains(low, "consultas") && strings.Contains(low, "ouvidoria") {
		return true
	}
	if strings.HasPrefix(low, "aviso") || strings.HasPrefix(low, "os saldos acima") {
		return true
	}
	return strings.Contains(low, "itau.com.br")
}

func (p *ItauStatementParser) cleanDescription(desc string) string {
	d := itGluedDateInDesc.ReplaceAllString(desc, "$1 $2")
	d = compactSpaces(d)
	return strings.Trim(d, " -\t")
}
