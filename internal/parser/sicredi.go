package parser

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ellalabs/ella-extractor/internal/brl"
	"github.com/ellalabs/ella-extractor/internal/models"
	"github.com/ellalabs/ella-extractor/internal/normalize"
)

// SicrediParser reads Sicredi credit-card invoices. Transaction lines look
// like "11/nov 06:13 Online MERCHANT 03/06 R$ 58,33"; the amount sometimes
// arrives on the following line.
type SicrediParser struct{}

var (
	scDueDDMMYYYY = regexp.MustCompile(`(?i)\bvencimento\b\s*(?:[:\-])?\s*(\d{2})/(\d{2})/(\d{4})\b`)
	scDueDDMon    = regexp.MustCompile(`(?i)\bvencimento\b\s*(?:[:\-])?\s*(\d{2})\s*/\s*([a-z]{3})\b`)

	scTotalPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)total\s+fatura\s+de\s+\w+\s*r\$\s*(\d{1,3}(?:\.\d{3})*,\d{2})`),
		regexp.MustCompile(`(?i)pagamento\s+total\s*\(r\$\)\s*r\$\s*(\d{1,3}(?:\.\d{3})*,\d{2})`),
		regexp.MustCompile(`(?i)total\s+desta\s+fatura\s*(?:\(r\$\)\s*)?(?:r\$\s*)?(\d{1,3}(?:\.\d{3})*,\d{2})`),
	}

	scCardFinal     = regexp.MustCompile(`(?i)\bfinal\s+(\d{4})\b`)
	scCardFinalBare = regexp.MustCompile(`^\s*(\d{4})\b`)

	// "11/nov 06:13 <rest>"
	scTxPrefix = regexp.MustCompile(`(?i)^\s*(\d{2})/([a-z]{3})\s+(\d{2}:\d{2})\b\s*(.*)$`)

	// "R$ 4,90", "-R$ 198,00", "- R$ 198,00", bare "198,00"
	scAmountAtEnd = regexp.MustCompile(`(?i)\s*(-?\s*R\$\s*)?(-?\d{1,3}(?:\.\d{3})*,\d{2})\s*$`)

	scPurchaseType = regexp.MustCompile(`(?i)\b(Online|Presencial)\b`)

	scSummaryIOF = regexp.MustCompile(`(?i)\biof\b\s*(?:\(r\$\))?\s*(?:r\$\s*)?(\d{1,3}(?:\.\d{3})*,\d{2})\b`)

	scPaymentCode = regexp.MustCompile(`^pagamento\s+\d{6,}\b`)
)

func (p *SicrediParser) Bank() models.BankType { return models.BankSicredi }

func (p *SicrediParser) Sniff(text string) bool {
	flat := strings.ToLower(normalize.Flat(text))
	if !strings.Contains(flat, "sicredi") {
		return false
	}
	return strings.Contains(flat, "fatura") || strings.Contains(flat, "vencimento")
}

func (p *SicrediParser) Parse(rawText string) *models.StatementResult {
	if !p.Sniff(rawText) {
		return unsupported(p.Bank(), "not_sicredi")
	}

	var warnings []string
	normalized := normalize.Text(rawText)
	flat := normalize.Flat(rawText)

	due := p.extractDueDate(flat)
	if due == nil {
		warnings = append(warnings, "due_date_not_found")
	}
	total := p.extractTotal(flat)
	if total == nil {
		warnings = append(warnings, "total_not_found")
	}

	year := brl.CurrentYear()
	if due != nil {
		year = due.Year
	}

	txs := p.extractTransactions(normalized, year)
	txs = p.reconcileSummaryIOF(normalized, txs, total, due)
	txs = Dedupe(txs)

	res := &models.StatementResult{
		Bank:         p.Bank(),
		DueDate:      due,
		Total:        total,
		Transactions: txs,
		Warnings:     []string{},
		Debug: map[string]any{
			"transactionsCount": len(txs),
		},
	}
	res.Warnings = append(res.Warnings, warnings...)
	return res
}

func (p *SicrediParser) extractDueDate(flat string) *models.Date {
	if m := scDueDDMMYYYY.FindStringSubmatch(flat); m != nil {
		if d, ok := dateFromGroups(m[1], m[2], m[3]); ok {
			return &d
		}
		return nil
	}

	m := scDueDDMon.FindStringSubmatch(flat)
	if m == nil {
		return nil
	}
	day, _ := strconv.Atoi(m[1])
	year, ok := brl.YearHint(flat)
	if !ok {
		year = brl.CurrentYear()
	}
	if d, ok := brl.ParseDate(day, m[2], year); ok {
		return &d
	}
	return nil
}

func (p *SicrediParser) extractTotal(flat string) *decimal.Decimal {
	for _, pat := range scTotalPatterns {
		m := pat.FindStringSubmatch(flat)
		if m == nil {
			continue
		}
		if d, ok := brl.ParseMoney(m[1]); ok {
			d = brl.Cents(d.Abs())
			return &d
		}
	}
	return nil
}

// pendingTx holds a transaction whose amount has not arrived yet.
type pendingTx struct {
	date        models.Date
	description string
	cardFinal   string
	installment *models.Installment
}

func (p *SicrediParser) extractTransactions(normalized string, year int) []models.Transaction {
	txs := []models.Transaction{}

	currentCard := ""
	inTransactions := false
	lastContext := ""
	var pending *pendingTx

	for _, raw := range strings.Split(normalized, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}

		if m := scCardFinal.FindStringSubmatch(line); m != nil {
			currentCard = m[1]
		}

		low := strings.ToLower(brl.StripAccents(line))
		if strings.Contains(low, "data e hora") && strings.Contains(low, "valor em reais") {
			inTransactions = true
			continue
		}
		if low == "transacoes" {
			inTransactions = true
			continue
		}

		prefix := scTxPrefix.FindStringSubmatch(line)

		if inTransactions && prefix == nil && p.isContextDescriptionLine(line) {
			lastContext = line
		}

		// The amount of a pending transaction arrives on its own line.
		if pending != nil && prefix == nil {
			if m := scAmountAtEnd.FindStringSubmatch(line); m != nil {
				if amount, ok := brl.ParseMoney(m[1] + m[2]); ok {
					cardFinal := pending.cardFinal
					if bare := scCardFinalBare.FindStringSubmatch(line); bare != nil {
						cardFinal = bare[1]
					}
					txs = append(txs, p.buildTransaction(pending.date, pending.description, amount, cardFinal, pending.installment))
					pending = nil
				}
			}
			continue
		}

		if !inTransactions && prefix == nil {
			continue
		}
		if prefix == nil {
			continue
		}

		// A new transaction line drops any stale pending split.
		pending = nil

		day, _ := strconv.Atoi(prefix[1])
		rest := strings.TrimSpace(prefix[4])

		date, ok := brl.ParseDate(day, prefix[2], year)
		if !ok {
			continue
		}

		amountLoc := scAmountAtEnd.FindStringSubmatchIndex(rest)
		if amountLoc == nil {
			// Split line: stash metadata and wait for the amount.
			desc, installment, cardOverride := p.parseRest(rest)
			if p.skipDescription(desc) {
				continue
			}
			cardFinal := cardOverride
			if cardFinal == "" {
				cardFinal = currentCard
			}
			pending = &pendingTx{date: date, description: desc, cardFinal: cardFinal, installment: installment}
			continue
		}

		token := rest[amountLoc[4]:amountLoc[5]]
		if amountLoc[2] >= 0 {
			token = rest[amountLoc[2]:amountLoc[3]] + token
		}
		amount, ok := brl.ParseMoney(token)
		if !ok {
			continue
		}

		restWithoutAmount := strings.TrimSpace(rest[:amountLoc[0]])
		// Some PDFs put the description on the previous line entirely.
		if restWithoutAmount == "" && lastContext != "" {
			restWithoutAmount = lastContext
			lastContext = ""
		}
		desc, installment, cardOverride := p.parseRest(restWithoutAmount)
		if p.skipDescription(desc) {
			continue
		}

		cardFinal := cardOverride
		if cardFinal == "" {
			cardFinal = currentCard
		}
		txs = append(txs, p.buildTransaction(date, desc, amount, cardFinal, installment))
	}
	return txs
}

func (p *SicrediParser) buildTransaction(date models.Date, desc string, amount decimal.Decimal, cardFinal string, installment *models.Installment) models.Transaction {
	amount = brl.Cents(amount)
	typ := models.TxCredit
	if amount.IsNegative() {
		typ = models.TxDebit
	}
	return models.Transaction{
		Date:        date,
		Description: desc,
		Amount:      amount,
		Type:        typ,
		CardFinal:   cardFinal,
		Installment: installment,
	}
}

// parseRest digests the free part of a transaction line: optional card-final
// override, installment fraction, Online/Presencial purchase-type token.
func (p *SicrediParser) parseRest(rest string) (desc string, installment *models.Installment, cardFinal string) {
	if m := scCardFinal.FindStringSubmatch(rest); m != nil {
		cardFinal = m[1]
	}

	desc = rest
	if loc := scPurchaseType.FindStringIndex(rest); loc != nil {
		desc = strings.TrimSpace(rest[loc[1]:])
	}

	desc, installment = ExtractInstallment(desc)
	desc = compactSpaces(desc)
	return desc, installment, cardFinal
}

// skipDescription drops previous-invoice payment lines so credits do not
// pollute the spend ledger.
func (p *SicrediParser) skipDescription(desc string) bool {
	if desc == "" {
		return true
	}
	n := strings.ToLower(compactSpaces(desc))
	if !strings.HasPrefix(n, "pagamento") {
		return false
	}
	if scPaymentCode.MatchString(n) {
		return true
	}
	return strings.Contains(n, "fatura")
}

func (p *SicrediParser) isContextDescriptionLine(line string) bool {
	if scTxPrefix.MatchString(line) {
		return false
	}
	low := strings.ToLower(brl.StripAccents(strings.TrimSpace(line)))
	if low == "" {
		return false
	}
	if strings.HasPrefix(low, "total cartao") || strings.HasPrefix(low, "cartao ") || strings.HasPrefix(low, "vencimento") {
		return false
	}
	// Page footers like "2 de 7".
	if strings.HasSuffix(low, " de 7") || strings.HasSuffix(low, " de 6") || strings.HasSuffix(low, " de 5") {
		return false
	}
	// A line that is only a value is not a description.
	if m := scAmountAtEnd.FindStringIndex(low); m != nil && m[0] == 0 && m[1] == len(low) {
		return false
	}
	return true
}

// reconcileSummaryIOF appends the summary IOF figure as a synthetic line when
// the signed transaction sum misses the header total by exactly that value.
func (p *SicrediParser) reconcileSummaryIOF(normalized string, txs []models.Transaction, total *decimal.Decimal, due *models.Date) []models.Transaction {
	if total == nil || due == nil {
		return txs
	}

	sum := decimal.Zero
	for _, tx := range txs {
		sum = sum.Add(tx.Amount)
	}
	diff := brl.Cents(total.Sub(sum))
	if diff.Abs().LessThan(decimal.NewFromFloat(0.01)) {
		return txs
	}

	iof := p.extractSummaryIOF(normalized)
	if iof == nil || !iof.Abs().Equal(diff.Abs()) {
		return txs
	}

	return append(txs, models.Transaction{
		Date:        *due,
		Description: "IOF (fatura)",
		Amount:      brl.Cents(iof.Abs()),
		Type:        models.TxCredit,
	})
}

// extractSummaryIOF finds the invoice-summary IOF line, skipping the
// per-transaction "Iof Compra Internacional" rows.
func (p *SicrediParser) extractSummaryIOF(normalized string) *decimal.Decimal {
	for _, raw := range strings.Split(normalized, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		low := strings.ToLower(line)
		if !strings.HasPrefix(low, "iof") || strings.Contains(low, "compra") {
			continue
		}
		m := scSummaryIOF.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		if d, ok := brl.ParseMoney(m[1]); ok {
			return &d
		}
	}
	return nil
}
