package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ellalabs/ella-extractor/internal/models"
)

const itauStatement = `extrato conta corrente
período de visualização: 01/11/2025 até 30/11/2025
emitido em: 03/12/2025 12:47:47
data lançamentos valor (R$) saldo (R$)
03/11/2025 SALDO DO DIA 2.500,00
05/11/2025 PIX TRANSF JOAO 1.200,00
07/11/2025 PAG BOLETO ENERGIA -350,75
10/11/2025 TED RECEBIDA EMPRESA
SERVICOS LTDA
15/11/2025 SALDO DO DIA 3.349,25
Aviso: os saldos acima incluem apenas lançamentos processados
`

func TestItauStatementParse(t *testing.T) {
	p := &ItauStatementParser{}
	require.True(t, p.Sniff(itauStatement))

	res := p.Parse(itauStatement)
	assert.Equal(t, models.BankItau, res.Bank)
	assert.Empty(t, res.Reason)

	// The emission timestamp wins over the period end.
	require.NotNil(t, res.StatementDate)
	assert.Equal(t, "2025-12-03", res.StatementDate.String())

	// Opening/closing come from the first and last daily balances.
	require.NotNil(t, res.OpeningBalance)
	assert.Equal(t, "2500.00", res.OpeningBalance.StringFixed(2))
	require.NotNil(t, res.ClosingBalance)
	assert.Equal(t, "3349.25", res.ClosingBalance.StringFixed(2))

	require.Len(t, res.Transactions, 5)

	first := res.Transactions[0]
	assert.Equal(t, models.TxBalance, first.Type)
	assert.Equal(t, "2025-11-03", first.Date.String())
	require.NotNil(t, first.Balance)
	assert.Equal(t, "2500.00", first.Balance.StringFixed(2))

	pix := res.Transactions[1]
	assert.Equal(t, models.TxCredit, pix.Type)
	assert.Equal(t, "1200.00", pix.Amount.StringFixed(2))
	assert.Equal(t, "PIX TRANSF JOAO", pix.Description)

	boleto := res.Transactions[2]
	assert.Equal(t, models.TxDebit, boleto.Type)
	assert.Equal(t, "-350.75", boleto.Amount.StringFixed(2))

	// Value never arrived for this row; the description still folds the
	// wrapped continuation line.
	ted := res.Transactions[3]
	assert.Equal(t, "TED RECEBIDA EMPRESA SERVICOS LTDA", ted.Description)
	assert.True(t, ted.Amount.IsZero())
	assert.Contains(t, res.Warnings, "missing_amount_on_tx_line")

	last := res.Transactions[4]
	assert.Equal(t, models.TxBalance, last.Type)
	assert.Equal(t, "2025-11-15", last.Date.String())
}

func TestItauStatementBoilerplateEndsLedger(t *testing.T) {
	p := &ItauStatementParser{}
	res := p.Parse(itauStatement)
	for _, tx := range res.Transactions {
		assert.NotContains(t, tx.Description, "Aviso")
		assert.NotContains(t, tx.Description, "saldos acima")
	}
}

func TestItauStatementMissingDailyBalances(t *testing.T) {
	text := `extrato conta corrente
emitido em: 03/12/2025 10:00:00
data lançamentos valor (R$) saldo (R$)
05/11/2025 PIX TRANSF JOAO 1.200,00
`
	p := &ItauStatementParser{}
	res := p.Parse(text)
	assert.Contains(t, res.Warnings, "missing_daily_balances")
	require.NotNil(t, res.OpeningBalance)
	assert.True(t, res.OpeningBalance.IsZero())
	require.NotNil(t, res.ClosingBalance)
	assert.True(t, res.ClosingBalance.IsZero())
	require.Len(t, res.Transactions, 1)
}

func TestItauStatementNotThisBank(t *testing.T) {
	p := &ItauStatementParser{}
	res := p.Parse("fatura sicredi vencimento")
	assert.Equal(t, models.ReasonUnsupportedLayout, res.Reason)
	assert.Contains(t, res.Warnings, "not_itau")
}
