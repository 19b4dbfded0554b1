package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ellalabs/ella-extractor/internal/models"
)

const sicrediInvoice = `SICREDI
Fatura do cartão de crédito
Vencimento: 15/07/2025
Total desta fatura R$ 283,23

Cartão final 1234
Data e hora Descrição Valor em reais
11/jul 06:13 Online MERCADO LIVRE 03/06 R$ 58,33
12/jul 10:45 Presencial FARMACIA PANVEL R$ 120,00
13/jul 18:00 Online ESTORNO COMPRA -R$ 50,00
14/jul 09:30 Online PAGAMENTO FATURA ANTERIOR R$ 300,00
15/jul 20:15 Online NETFLIX ASSINATURA
R$ 44,90
IOF R$ 110,00
`

func TestSicrediParse(t *testing.T) {
	p := &SicrediParser{}
	require.True(t, p.Sniff(sicrediInvoice))

	res := p.Parse(sicrediInvoice)
	assert.Equal(t, models.BankSicredi, res.Bank)
	assert.Empty(t, res.Reason)
	assert.Empty(t, res.Warnings)

	require.NotNil(t, res.DueDate)
	assert.Equal(t, "2025-07-15", res.DueDate.String())
	require.NotNil(t, res.Total)
	assert.Equal(t, "283.23", res.Total.StringFixed(2))

	require.Len(t, res.Transactions, 5)

	first := res.Transactions[0]
	assert.Equal(t, "2025-07-11", first.Date.String())
	assert.Equal(t, "MERCADO LIVRE", first.Description)
	assert.Equal(t, "58.33", first.Amount.StringFixed(2))
	assert.Equal(t, models.TxCredit, first.Type)
	assert.Equal(t, "1234", first.CardFinal)
	require.NotNil(t, first.Installment)
	assert.Equal(t, 3, first.Installment.Current)
	assert.Equal(t, 6, first.Installment.Total)

	assert.Equal(t, "FARMACIA PANVEL", res.Transactions[1].Description)

	refund := res.Transactions[2]
	assert.Equal(t, "ESTORNO COMPRA", refund.Description)
	assert.Equal(t, "-50.00", refund.Amount.StringFixed(2))
	assert.Equal(t, models.TxDebit, refund.Type)

	// Amount arrived on the line after the transaction line.
	split := res.Transactions[3]
	assert.Equal(t, "NETFLIX ASSINATURA", split.Description)
	assert.Equal(t, "44.90", split.Amount.StringFixed(2))
	assert.Equal(t, "1234", split.CardFinal)

	// Summary IOF closes the gap between the header total and the row sum.
	iof := res.Transactions[4]
	assert.Equal(t, "IOF (fatura)", iof.Description)
	assert.Equal(t, "110.00", iof.Amount.StringFixed(2))
	assert.Equal(t, "2025-07-15", iof.Date.String())
}

func TestSicrediSkipsPreviousInvoicePayment(t *testing.T) {
	p := &SicrediParser{}
	res := p.Parse(sicrediInvoice)
	for _, tx := range res.Transactions {
		assert.NotContains(t, tx.Description, "PAGAMENTO FATURA")
	}
}

func TestSicrediDueDateDayMonthFormat(t *testing.T) {
	p := &SicrediParser{}
	text := `SICREDI fatura
Vencimento 20/ago
Emitida em 01/08/2025
Data e hora Descrição Valor em reais
05/ago 12:00 Online LIVRARIA CULTURA R$ 99,90
`
	res := p.Parse(text)
	require.NotNil(t, res.DueDate)
	assert.Equal(t, "2025-08-20", res.DueDate.String())
	require.Len(t, res.Transactions, 1)
	assert.Equal(t, "2025-08-05", res.Transactions[0].Date.String())
	assert.Contains(t, res.Warnings, "total_not_found")
}

func TestSicrediNotThisBank(t *testing.T) {
	p := &SicrediParser{}
	res := p.Parse("Banco qualquer: extrato de conta")
	assert.Equal(t, models.ReasonUnsupportedLayout, res.Reason)
	assert.Contains(t, res.Warnings, "not_sicredi")
	assert.Empty(t, res.Transactions)
}
