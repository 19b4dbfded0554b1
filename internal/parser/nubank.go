package parser

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ellalabs/ella-extractor/internal/brl"
	"github.com/ellalabs/ella-extractor/internal/models"
	"github.com/ellalabs/ella-extractor/internal/normalize"
)

// NubankParser reads Nubank account statements. Daily headers like
// "22 DEZ 2025" scope the lines below them; "Total de entradas"/"Total de
// saídas" rows set the CREDIT/DEBIT section context used to sign amounts.
type NubankParser struct{}

var (
	// "01 DE DEZEMBRO DE 2025 a 31 DE DEZEMBRO DE 2025"
	nbPeriod = regexp.MustCompile(`(?i)\b(\d{2})\s+de\s+([a-zçãõ]+)\s+de\s+(\d{4})\s*(?:a|-|at[eé])\s*(\d{2})\s+de\s+([a-zçãõ]+)\s+de\s+(\d{4})\b`)

	// "22 DEZ 2025"
	nbDayHeader = regexp.MustCompile(`(?i)^\s*(\d{2})\s+([a-z]{3})\s+(\d{4})\b`)

	nbCNPJ         = regexp.MustCompile(`\b\d{2}\.\d{3}\.\d{3}/\d{4}-\d{2}\b`)
	nbMaskedCPF    = regexp.MustCompile(`[•*]{3}\.\d{3}\.\d{3}-[•*]{2}`)
	nbAgencia      = regexp.MustCompile(`(?i)\bAg[eê]ncia\s*:?\s*\d+\b`)
	nbConta        = regexp.MustCompile(`(?i)\bConta\s*:?\s*[0-9\-./]+\b`)
	nbPageXofY     = regexp.MustCompile(`(?i)\b\d+\s+de\s+\d+\b`)
	nbPureRouting  = regexp.MustCompile(`^[0-9.\-/ ]+$`)
	nbBankCode     = regexp.MustCompile(`\(\d{4}\)`)
	nbCorpSuffix   = regexp.MustCompile(`(?i)\bS\.?A\.?\b`)
	nbDashRun      = regexp.MustCompile(`\s*-\s*`)
	nbTrailingWord = regexp.MustCompile(`\s+\S*$`)
)

func (p *NubankParser) Bank() models.BankType { return models.BankNubank }

func (p *NubankParser) Sniff(text string) bool {
	n := strings.ToLower(brl.StripAccents(normalize.Flat(text)))
	if n == "" {
		return false
	}

	hasBrand := strings.Contains(n, "nubank") || strings.Contains(n, "nu pagamentos")
	hasStatement := strings.Contains(n, "movimentacoes") || strings.Contains(n, "total de entradas")

	score := 0
	for _, marker := range []string{
		"nubank", "nu pagamentos", "nu financeira", "nubank.com.br",
		"movimentacoes", "total de entradas", "total de saidas",
	} {
		if strings.Contains(n, marker) {
			score++
		}
	}
	return hasBrand && hasStatement && score >= 3
}

func (p *NubankParser) Parse(rawText string) *models.StatementResult {
	if !p.Sniff(rawText) {
		return unsupported(p.Bank(), "not_nubank")
	}

	var warnings []string
	debug := map[string]any{}
	normalized := normalize.Text(rawText)
	flat := normalize.Flat(rawText)

	var periodStart, periodEnd *models.Date
	if m := nbPeriod.FindStringSubmatch(flat); m != nil {
		if d, ok := brl.ParseDate(atoi(m[1]), m[2], atoi(m[3])); ok {
			periodStart = &d
		}
		if d, ok := brl.ParseDate(atoi(m[4]), m[5], atoi(m[6])); ok {
			periodEnd = &d
		}
	}

	opening := p.extractSummaryValue(normalized, flat, "saldo inicial")
	closing := p.extractSummaryValue(normalized, flat, "saldo final do periodo")

	statementDate := periodEnd

	txs, lastDay, ambiguous := p.scanLines(normalized, &statementDate)
	if ambiguous {
		warnings = append(warnings, "sign_inference_ambiguous")
	}

	if statementDate == nil {
		statementDate = lastDay
	}
	if statementDate == nil {
		d := models.DateOf(nowUTC())
		statementDate = &d
		warnings = append(warnings, "statement_date_fallback_today")
	}

	if opening == nil {
		opening = models.Dec(decimal.Zero)
		warnings = append(warnings, "missing_opening_balance")
	}
	if closing == nil {
		closing = models.Dec(decimal.Zero)
		warnings = append(warnings, "missing_closing_balance")
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

func (p *NubankParser) scanLines(normalized string, statementDate **models.Date) ([]models.Transaction, *models.Date, bool) {
	txs := []models.Transaction{}

	var currentDate *models.Date
	var lastDay *models.Date
	section := "" // "CREDIT" / "DEBIT"
	var pendingParts []string
	ambiguous := false

	for _, raw := range strings.Split(normalized, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" || p.isNoiseLine(line) {
			continue
		}

		low := strings.ToLower(brl.StripAccents(line))

		if m := nbDayHeader.FindStringSubmatch(line); m != nil {
			if d, ok := brl.ParseDate(atoi(m[1]), m[2], atoi(m[3])); ok {
				currentDate = &d
				lastDay = &d
				if *statementDate == nil {
					*statementDate = &d
				}
			} else {
				currentDate = nil
			}

			section = ""
			pendingParts = nil

			// Some PDFs glue "<DD> <MON> <YYYY> Total de entradas ..." into
			// one line; keep the remainder as a normal content line.
			remainder := strings.TrimSpace(line[len(m[0]):])
			if remainder == "" {
				continue
			}
			low = strings.ToLower(brl.StripAccents(remainder))
			if strings.HasPrefix(low, "total de entradas") {
				section = "CREDIT"
				continue
			}
			if strings.HasPrefix(low, "total de saidas") {
				section = "DEBIT"
				continue
			}
			line = remainder
		}

		if strings.Contains(low, "valores em r$") {
			continue
		}

		if strings.HasPrefix(low, "total de entradas") {
			section = "CREDIT"
			pendingParts = nil
			continue
		}
		if strings.HasPrefix(low, "total de saidas") {
			section = "DEBIT"
			pendingParts = nil
			continue
		}

		if strings.HasPrefix(low, "saldo inicial") || strings.HasPrefix(low, "saldo final") || strings.HasPrefix(low, "rendimento") {
			continue
		}

		if currentDate == nil {
			continue
		}

		amount, amountStart, ok := lastMoneyAtEnd(line)
		if !ok {
			// Context lines carry merchant/bank detail for the next value
			// line; cap the buffer to keep descriptions short.
			if len(pendingParts) < 3 {
				pendingParts = append(pendingParts, line)
			}
			continue
		}

		descPart := strings.TrimSpace(line[:amountStart])
		parts := append(append([]string{}, pendingParts...), descPart)
		desc := compactSpaces(strings.Join(parts, " "))
		if desc == "" {
			desc = "Movimentação"
		}

		signed, fell := p.inferSignedAmount(amount.Abs(), section, desc)
		ambiguous = ambiguous || fell

		typ := models.TxCredit
		if signed.IsNegative() {
			typ = models.TxDebit
		}

		if compact := p.compactDescription(desc); compact != "" {
			desc = compact
		}

		txs = append(txs, models.Transaction{
			Date:        *currentDate,
			Description: desc,
			Amount:      brl.Cents(signed),
			Type:        typ,
		})
		pendingParts = nil
	}
	return txs, lastDay, ambiguous
}

// inferSignedAmount signs a value from the section context, then keyword
// markers; with neither, the amount stays positive and the row is flagged
// ambiguous.
func (p *NubankParser) inferSignedAmount(absAmount decimal.Decimal, section, description string) (decimal.Decimal, bool) {
	switch section {
	case "DEBIT":
		return absAmount.Neg(), false
	case "CREDIT":
		return absAmount, false
	}

	low := strings.ToLower(brl.StripAccents(description))
	for _, mk := range []string{"enviada", "enviado", "pagamento", "compra", "debito"} {
		if strings.Contains(low, mk) {
			return absAmount.Neg(), false
		}
	}
	for _, mk := range []string{"recebida", "recebido", "adicionado", "entrada", "credito"} {
		if strings.Contains(low, mk) {
			return absAmount, false
		}
	}
	return absAmount, true
}

func (p *NubankParser) isNoiseLine(line string) bool {
	low := strings.TrimSpace(strings.ToLower(brl.StripAccents(line)))
	if low == "" {
		return true
	}
	if strings.HasPrefix(low, "tem alguma duvida") {
		return true
	}
	if strings.Contains(low, "atendimento") && strings.Contains(low, "24h") {
		return true
	}
	if strings.Contains(low, "ouvidoria") || strings.Contains(low, "nubank.com.br") {
		return true
	}
	if strings.HasPrefix(low, "extrato gerado dia") {
		return true
	}
	if nbPageXofY.MatchString(low) && strings.Contains(low, "extrato gerado") {
		return true
	}
	if strings.HasPrefix(low, "cpf ") || low == "cpf" {
		return true
	}
	if nbAgencia.MatchString(line) || nbConta.MatchString(line) {
		return true
	}
	if nbPureRouting.MatchString(line) {
		return true
	}
	return low == "cartao de credito"
}

// compactDescription strips account metadata and caps the text at 90 runes,
// keeping the two most informative " - " chunks.
func (p *NubankParser) compactDescription(description string) string {
	d := compactSpaces(description)
	d = nbMaskedCPF.ReplaceAllString(d, "")
	d = nbCNPJ.ReplaceAllString(d, "")
	d = nbAgencia.ReplaceAllString(d, "")
	d = nbConta.ReplaceAllString(d, "")
	d = nbBankCode.ReplaceAllString(d, "")
	d = nbCorpSuffix.ReplaceAllString(d, "")
	d = strings.ReplaceAll(d, "•", "")
	d = nbDashRun.ReplaceAllString(d, " - ")
	d = strings.Trim(compactSpaces(d), " -")

	parts := []string{}
	for _, part := range strings.Split(d, " - ") {
		if part = strings.TrimSpace(part); part != "" {
			parts = append(parts, part)
		}
	}
	if len(parts) > 2 {
		d = strings.Join(parts[:2], " - ")
	}

	const maxLen = 90
	if len(d) > maxLen {
		cut := strings.TrimRight(d[:maxLen-1], " ")
		if trimmed := strings.TrimSpace(nbTrailingWord.ReplaceAllString(cut, "")); trimmed != "" {
			cut = trimmed
		}
		d = cut + "…"
	}
	return d
}

// extractSummaryValue pulls a labeled summary figure ("saldo inicial",
// "saldo final do período"), preferring a line-local match before a flat
// 250-character window.
func (p *NubankParser) extractSummaryValue(normalized, flat, label string) *decimal.Decimal {
	for _, line := range strings.Split(normalized, "\n") {
		low := strings.ToLower(brl.StripAccents(line))
		if !strings.Contains(low, label) {
			continue
		}
		if d := lastMoneyToken(line); d != nil {
			return d
		}
	}

	// Accent-stripped text keeps the money tokens intact, so searching and
	// slicing the stripped form avoids offset drift.
	stripped := strings.ToLower(brl.StripAccents(flat))
	idx := strings.Index(stripped, label)
	if idx < 0 {
		return nil
	}
	tail := stripped[idx:]
	if len(tail) > 250 {
		tail = tail[:250]
	}
	return lastMoneyToken(tail)
}

func lastMoneyToken(s string) *decimal.Decimal {
	tokens := allMoneyTokens(s)
	if len(tokens) == 0 {
		return nil
	}
	d := brl.Cents(tokens[len(tokens)-1])
	return &d
}
