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

// ItauPersonnaliteParser reads Itaú Personnalité credit-card invoices. The
// transaction window opens at the "Lançamentos: compras e saques" marker and
// closes, exclusively, at the first "Compras parceladas" marker; nothing
// outside the window is ever parsed.
type ItauPersonnaliteParser struct{}

var (
	ipDueDate = regexp.MustCompile(`(?i)\bvencimento\s*:\s*(\d{2})/(\d{2})/(\d{4})\b`)

	// Glued variants like "Totaldestafatura" must match too.
	ipTotalPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)total\s*desta\s*fatura\s+(\d{1,3}(?:\.\d{3})*,\d{2})`),
		regexp.MustCompile(`(?i)o\s*total\s*da\s*sua\s*fatura\s*:\s*r\$\s*(\d{1,3}(?:\.\d{3})*,\d{2})`),
		regexp.MustCompile(`(?i)lan\s*(?:c|ç)?\s*amentos\s*atuais\s+(\d{1,3}(?:\.\d{3})*,\d{2})`),
	}

	ipLaunchesStart = regexp.MustCompile(`(?is)lan\s*(?:c|ç)?\s*amentos\s*[:：]?\s*compras\s*e\s*saques`)

	ipEndMarker = regexp.MustCompile(`(?is)(encargos\s*cobrados\s*nesta\s*fatura|encargoscobradosnestafatura|compras\s*parceladas|limites\s*de\s*cr[eé]dito|juros\s*do\s*rotativo|novo\s*teto\s*de\s*juros|cr[eé]dito\s*rotativo)`)

	// Mandatory stop: the future-installments area is never in scope.
	ipParceladasStop = regexp.MustCompile(`(?is)(compras\s*parceladas\s*-\s*pr[oó]?ximas\s*faturas|comprasparceladas\s*-?\s*pr[oó]?ximasfaturas|compras\s*parceladas|comprasparceladas|simula\w*compras\w*parc)`)

	ipCardHeaderFinal = regexp.MustCompile(`(?i)(?:\(|\b)\s*final\s*(\d{4})\s*(?:\)|\b)`)

	ipChargesHeader = regexp.MustCompile(`(?i)^(encargos\s*cobrados\s*nesta\s*fatura|encargoscobradosnestafatura|juros\s*do\s*rotativo|novo\s*teto\s*de\s*juros|cr[eé]dito\s*rotativo)\b`)

	ipChargesCutoff = regexp.MustCompile(`(?i)(encargos\s*cobrados\s*nesta\s*fatura|encargoscobradosnestafatura|juros\s*do\s*rotativo|juros|multa|iof|cr[eé]dito\s*rotativo|novo\s*teto)`)

	ipTxLine = regexp.MustCompile(`^(\d{2})/(\d{2})\s+(.+?)\s+(-?(?:\d{1,3}(?:\.\d{3})*,\d{2}|\d+,\d{2}))\s*$`)

	ipTxAfterCardHeader = regexp.MustCompile(`\)\s*(\d{2})/(\d{2})\s+(.+?)\s+(-?(?:\d{1,3}(?:\.\d{3})*,\d{2}|\d+,\d{2}))\s*$`)

	ipTxPrefixBeforeAmount = regexp.MustCompile(`^(?:.*?\)\s*)?(\d{2})/(\d{2})\s+(.+)$`)

	ipMoneyAtEnd = regexp.MustCompile(`-?\d+(?:\.\d{3})*,\d{2}\s*$`)
	ipMoneyAny   = regexp.MustCompile(`-?\d+(?:\.\d{3})*,\d{2}`)

	// "...10/10119,72" glues an installment fraction onto the amount.
	ipFractionBeforeAmount = regexp.MustCompile(`(\d{1,2}/\d{1,2})(\d{1,3}(?:\.\d{3})*,\d{2})\b`)

	ipLeadingJunkBeforeDate = regexp.MustCompile(`^[^0-9]{1,3}(\d{2}/\d{2})`)

	ipSkipLinePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)^data\s+estabelecimento\s+valor\s+em\s+r\$`),
		regexp.MustCompile(`(?i)^data\s+estabelecimento\s+valor`),
		regexp.MustCompile(`(?i)^lan\s*(?:c|ç)?\s*amentos\b`),
		regexp.MustCompile(`(?i)^total\s+dos\s+lan\s*(?:c|ç)?\s*amentos\s+atuais\b`),
		regexp.MustCompile(`(?i)^proxima\s+fatura\b`),
		regexp.MustCompile(`(?i)^demais\s+faturas\b`),
		regexp.MustCompile(`(?i)^total\s+para\s+proximas\s+faturas\b`),
	}

	ipHasLetter = regexp.MustCompile(`[A-Za-zÁÀÂÃÄÉÈÊËÍÌÎÏÓÒÔÕÖÚÙÛÜÇ]`)
	ipHasDigit  = regexp.MustCompile(`\d`)
)

func (p *ItauPersonnaliteParser) Bank() models.BankType { return models.BankItauPersonnalite }

// Sniff accepts documents carrying the invoice window marker or the due-date
// plus total header, both tolerant of glued extraction.
func (p *ItauPersonnaliteParser) Sniff(text string) bool {
	flat := normalize.Flat(text)
	if ipLaunchesStart.MatchString(flat) {
		return true
	}
	if !ipDueDate.MatchString(flat) {
		return false
	}
	for _, pat := range ipTotalPatterns {
		if pat.MatchString(flat) {
			return true
		}
	}
	return false
}

func (p *ItauPersonnaliteParser) Parse(rawText string) *models.StatementResult {
	if !p.Sniff(rawText) {
		return unsupported(p.Bank(), "not_itau_personnalite")
	}

	var warnings []string
	normalized := normalize.Text(rawText)
	flat := normalize.Flat(rawText)

	res := &models.StatementResult{
		Bank:     p.Bank(),
		Warnings: []string{},
		Debug: map[string]any{
			"rawTextLength":        len(rawText),
			"normalizedTextLength": len(normalized),
		},
	}

	due := p.extractDueDate(flat)
	if due == nil {
		warnings = append(warnings, "due_date_not_found")
	}
	res.DueDate = due

	total := p.extractTotal(flat)
	if total == nil {
		warnings = append(warnings, "total_not_found")
	}
	res.Total = total

	txYear := brl.CurrentYear()
	if due != nil {
		txYear = due.Year
	}

	sections, window, windowFound := p.sliceTransactionSections(normalized)
	if !windowFound {
		warnings = append(warnings, "transactions_section_not_found_fallback_used")
	}
	res.Debug["windowFound"] = windowFound
	res.Debug["sectionsCount"] = len(sections)

	txs := []models.Transaction{}
	for _, section := range sections {
		txs = append(txs, p.extractTransactions(section, txYear, "")...)
	}

	cardTxs := p.extractCardBlockTransactions(window, txYear)
	res.Debug["cardBlockTransactionsCount"] = len(cardTxs)
	txs = append(txs, cardTxs...)

	txs = Dedupe(txs)
	res.Transactions = txs
	res.Debug["transactionsCount"] = len(txs)
	res.Warnings = append(res.Warnings, warnings...)
	return res
}

func (p *ItauPersonnaliteParser) extractDueDate(flat string) *models.Date {
	m := ipDueDate.FindStringSubmatch(flat)
	if m == nil {
		return nil
	}
	d, ok := dateFromGroups(m[1], m[2], m[3])
	if !ok {
		return nil
	}
	return &d
}

func (p *ItauPersonnaliteParser) extractTotal(flat string) *decimal.Decimal {
	for _, pat := range ipTotalPatterns {
		m := pat.FindStringSubmatch(flat)
		if m == nil {
			continue
		}
		if d, ok := brl.ParseMoney(m[1]); ok {
			d = brl.Cents(d)
			return &d
		}
	}
	return nil
}

// sliceTransactionSections cuts the global window between the first launches
// marker and the first mandatory parceladas stop, then splits it into one
// sub-block per repeated launches marker. Each sub-block ends at the nearest
// of its own stop candidates. Returns the sub-blocks, the window text and
// whether the window was found; a document with no marker falls back to one
// section covering the whole text.
func (p *ItauPersonnaliteParser) sliceTransactionSections(normalized string) ([]string, string, bool) {
	windowLoc := ipLaunchesStart.FindStringIndex(normalized)
	if windowLoc == nil {
		return []string{normalized}, normalized, false
	}

	windowEnd := len(normalized)
	if stop := ipParceladasStop.FindStringIndex(normalized[windowLoc[1]:]); stop != nil {
		windowEnd = windowLoc[1] + stop[0]
	}
	window := normalized[windowLoc[0]:windowEnd]

	starts := ipLaunchesStart.FindAllStringIndex(window, -1)
	if len(starts) == 0 {
		return []string{window}, window, true
	}

	var sections []string
	for i, start := range starts {
		blockEnd := len(window)
		if i+1 < len(starts) {
			blockEnd = starts[i+1][0]
		}
		block := window[start[0]:blockEnd]

		// The block ends at the nearest stop marker inside it, if any.
		inner := block[start[1]-start[0]:]
		end := len(block)
		if loc := ipParceladasStop.FindStringIndex(inner); loc != nil && start[1]-start[0]+loc[0] < end {
			end = start[1] - start[0] + loc[0]
		}
		if loc := ipEndMarker.FindStringIndex(inner); loc != nil && start[1]-start[0]+loc[0] < end {
			end = start[1] - start[0] + loc[0]
		}

		if section := strings.TrimSpace(block[:end]); section != "" {
			sections = append(sections, section)
		}
	}
	return sections, window, true
}

// extractCardBlockTransactions runs the second pass: per-card sub-blocks
// demarcated by "(final NNNN)" headers inside the window. The holder name
// before the header is irrelevant; only the 4-digit final matters.
func (p *ItauPersonnaliteParser) extractCardBlockTransactions(window string, year int) []models.Transaction {
	lines := strings.Split(normalize.Text(window), "\n")

	var out []models.Transaction
	i := 0
	for i < len(lines) {
		line := strings.TrimSpace(lines[i])
		if line == "" {
			i++
			continue
		}
		if ipParceladasStop.MatchString(line) {
			break
		}
		m := ipCardHeaderFinal.FindStringSubmatch(line)
		if m == nil {
			i++
			continue
		}

		cardFinal := m[1]
		block := []string{line}
		i++
		for i < len(lines) {
			next := strings.TrimSpace(lines[i])
			if next == "" {
				i++
				continue
			}
			if ipParceladasStop.MatchString(next) || ipCardHeaderFinal.MatchString(next) || ipChargesHeader.MatchString(next) {
				break
			}
			block = append(block, next)
			i++
		}

		out = append(out, p.extractTransactions(strings.Join(block, "\n"), year, cardFinal)...)
	}
	return out
}

// extractTransactions line-scans one section. cardFinal seeds the current
// card context; "(final NNNN)" headers inside the section update it.
func (p *ItauPersonnaliteParser) extractTransactions(section string, year int, cardFinal string) []models.Transaction {
	var out []models.Transaction
	currentCard := cardFinal

	for _, rawLine := range strings.Split(normalize.Text(section), "\n") {
		rawLine = strings.TrimSpace(rawLine)
		if rawLine == "" {
			continue
		}

		// Bullet markers like "@03/02" precede some extracted dates.
		rawLine = strings.TrimSpace(ipLeadingJunkBeforeDate.ReplaceAllString(rawLine, "$1"))
		if rawLine == "" {
			continue
		}
		rawLine = ipFractionBeforeAmount.ReplaceAllString(rawLine, "$1 $2")
		rawLine = SeparateGluedFraction(rawLine)

		// Charges/interest blocks are not purchases. Hard stop.
		if ipChargesHeader.MatchString(rawLine) {
			break
		}

		if m := ipCardHeaderFinal.FindStringSubmatch(rawLine); m != nil {
			currentCard = m[1]
		}

		rawLine = p.truncateAtChargesKeywords(rawLine)
		if rawLine == "" {
			continue
		}

		for _, line := range p.splitLine(rawLine) {
			if tx, ok := p.parseTransactionLine(line, year, currentCard); ok {
				out = append(out, tx)
			}
		}
	}
	return out
}

// splitLine segments a glued multi-transaction line, trimming each segment to
// its last monetary token and shedding the "limites de crédito" block when it
// contaminated the tail.
func (p *ItauPersonnaliteParser) splitLine(line string) []string {
	segments := SplitMultiTransactionLine(line)
	out := make([]string, 0, len(segments))
	for _, seg := range segments {
		out = append(out, p.trimToLastMoney(seg))
	}
	return out
}

// trimToLastMoney shaves glued trailing noise past the last monetary token.
// A glued "Limite" block is cut first so a credit-limit figure is never
// mistaken for the amount.
func (p *ItauPersonnaliteParser) trimToLastMoney(line string) string {
	if cut := strings.Index(strings.ToLower(line), "limite"); cut != -1 {
		prefix := strings.TrimRight(line[:cut], " ")
		if locs := ipMoneyAny.FindAllStringIndex(prefix, -1); len(locs) > 0 {
			return strings.TrimRight(prefix[:locs[len(locs)-1][1]], " ")
		}
		return prefix
	}
	locs := ipMoneyAny.FindAllStringIndex(line, -1)
	if len(locs) == 0 {
		return line
	}
	return strings.TrimRight(line[:locs[len(locs)-1][1]], " ")
}

func (p *ItauPersonnaliteParser) truncateAtChargesKeywords(line string) string {
	loc := ipChargesCutoff.FindStringIndex(line)
	if loc == nil {
		return line
	}
	prefix := strings.TrimRight(line[:loc[0]], " ")
	if prefix == "" || !ipMoneyAtEnd.MatchString(prefix) {
		return line
	}
	return prefix
}

// looksLikeCategoryLine spots short digit-free category rows such as
// "SAUDE .FORTALEZA".
func looksLikeCategoryLine(line string) bool {
	if line == "" || ipHasDigit.MatchString(line) {
		return false
	}
	return strings.Contains(line, ".") && len(line) <= 40
}

func (p *ItauPersonnaliteParser) parseTransactionLine(line string, year int, cardFinal string) (models.Transaction, bool) {
	compact := compactSpaces(line)
	compact = strings.TrimSpace(ipLeadingJunkBeforeDate.ReplaceAllString(compact, "$1"))
	compact = ipFractionBeforeAmount.ReplaceAllString(compact, "$1 $2")
	compact = p.trimToLastMoney(compact)

	lower := strings.ToLower(compact)
	for _, skip := range ipSkipLinePatterns {
		if skip.MatchString(lower) {
			return models.Transaction{}, false
		}
	}
	if looksLikeCategoryLine(line) {
		return models.Transaction{}, false
	}

	var dd, mm, desc, amountStr string
	if m := ipTxLine.FindStringSubmatch(compact); m != nil {
		dd, mm, desc, amountStr = m[1], m[2], m[3], m[4]
	} else if m := ipTxAfterCardHeader.FindStringSubmatch(compact); m != nil {
		dd, mm, desc, amountStr = m[1], m[2], m[3], m[4]
	} else {
		// Amount glued to the description with no whitespace.
		amountLoc := ipMoneyAtEnd.FindStringIndex(compact)
		if amountLoc == nil {
			return models.Transaction{}, false
		}
		amountStr = strings.TrimSpace(compact[amountLoc[0]:])
		prefix := strings.TrimRight(compact[:amountLoc[0]], " ")
		pm := ipTxPrefixBeforeAmount.FindStringSubmatch(prefix)
		if pm == nil {
			return models.Transaction{}, false
		}
		dd, mm, desc = pm[1], pm[2], strings.TrimSpace(pm[3])
		if !ipHasLetter.MatchString(desc) {
			return models.Transaction{}, false
		}
	}

	desc, installment := ExtractInstallment(desc)
	desc = compactSpaces(desc)

	amount, ok := brl.ParseMoney(amountStr)
	if !ok {
		return models.Transaction{}, false
	}
	amount = brl.Cents(amount)

	lowerDesc := strings.ToLower(brl.StripAccents(desc))
	// A "Limite"-looking line with a huge figure is the credit limit, not a
	// purchase.
	if strings.Contains(lowerDesc, "limite") && amount.Abs().GreaterThanOrEqual(decimal.NewFromInt(2000)) {
		return models.Transaction{}, false
	}
	if strings.Contains(lowerDesc, "proxima fatura") ||
		strings.Contains(lowerDesc, "demais faturas") ||
		strings.Contains(lowerDesc, "total para proximas faturas") {
		return models.Transaction{}, false
	}

	day, _ := strconv.Atoi(dd)
	date, ok := brl.ParseDate(day, mm, year)
	if !ok {
		return models.Transaction{}, false
	}

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
	}, true
}
