package parser

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ellalabs/ella-extractor/internal/models"
)

const bradescoStatement = `Banco Bradesco S.A.
Movimentação entre: 01/03/2025 e 31/03/2025
Data Histórico Docto. Crédito (R$) Débito (R$) Saldo (R$)
01/03/2025 SALDO ANTERIOR 1.000,00
03/03 TRANSFERENCIA PIX
REM: EMPRESA XYZ LTDA
1234567 16.007,54 17.007,54
05/03 PAGAMENTO DE BOLETO 500,00 16.507,54
10/03 TARIFA CESTA FACIL 30,00
`

func TestBradescoParse(t *testing.T) {
	p := &BradescoParser{}
	require.True(t, p.Sniff(bradescoStatement))

	res := p.Parse(bradescoStatement)
	assert.Equal(t, models.BankBradesco, res.Bank)
	assert.Empty(t, res.Reason)
	assert.Empty(t, res.Warnings)

	require.NotNil(t, res.StatementDate)
	assert.Equal(t, "2025-03-31", res.StatementDate.String())
	require.NotNil(t, res.OpeningBalance)
	assert.Equal(t, "1000.00", res.OpeningBalance.StringFixed(2))
	require.NotNil(t, res.ClosingBalance)
	assert.Equal(t, "16507.54", res.ClosingBalance.StringFixed(2))

	require.Len(t, res.Transactions, 3)

	pix := res.Transactions[0]
	assert.Equal(t, "2025-03-03", pix.Date.String())
	assert.Equal(t, models.TxCredit, pix.Type)
	assert.Equal(t, "16007.54", pix.Amount.StringFixed(2))
	require.NotNil(t, pix.Balance)
	assert.Equal(t, "17007.54", pix.Balance.StringFixed(2))
	assert.Contains(t, pix.Description, "TRANSFERENCIA PIX")
	assert.Contains(t, pix.Description, "EMPRESA XYZ")
	// Docto ids and column values never survive into the description.
	assert.NotContains(t, pix.Description, "1234567")
	assert.NotContains(t, pix.Description, "16.007,54")

	boleto := res.Transactions[1]
	assert.Equal(t, models.TxDebit, boleto.Type)
	assert.Equal(t, "-500.00", boleto.Amount.StringFixed(2))
	require.NotNil(t, boleto.Balance)
	assert.Equal(t, "16507.54", boleto.Balance.StringFixed(2))

	// No balance column: keyword inference settles the tariff as a debit.
	tarifa := res.Transactions[2]
	assert.Equal(t, models.TxDebit, tarifa.Type)
	assert.Equal(t, "-30.00", tarifa.Amount.StringFixed(2))
	assert.Nil(t, tarifa.Balance)
}

func TestBradescoSignInvariant(t *testing.T) {
	p := &BradescoParser{}
	res := p.Parse(bradescoStatement)
	for _, tx := range res.Transactions {
		switch tx.Type {
		case models.TxDebit:
			assert.False(t, tx.Amount.IsPositive(), "%s", tx.Description)
		case models.TxCredit:
			assert.False(t, tx.Amount.IsNegative(), "%s", tx.Description)
		case models.TxBalance:
			assert.True(t, tx.Amount.IsZero())
			assert.NotNil(t, tx.Balance)
		}
	}
}

func TestBradescoAmbiguousSignWarns(t *testing.T) {
	text := `Banco Bradesco extrato
Movimentação entre: 01/03/2025 e 31/03/2025
12/03 XPTO QWERTY 10,00
`
	p := &BradescoParser{}
	res := p.Parse(text)
	assert.Contains(t, res.Warnings, "sign_inference_ambiguous")
	require.Len(t, res.Transactions, 1)
	// The default is a debit.
	assert.Equal(t, models.TxDebit, res.Transactions[0].Type)
}

func TestBradescoStatementDateFallsBackToToday(t *testing.T) {
	old := nowUTC
	nowUTC = func() time.Time { return time.Date(2025, 4, 2, 12, 0, 0, 0, time.UTC) }
	defer func() { nowUTC = old }()

	text := `Banco Bradesco extrato
05/03 PAGAMENTO DE BOLETO 500,00
`
	p := &BradescoParser{}
	res := p.Parse(text)
	assert.Contains(t, res.Warnings, "statement_date_fallback_today")
	require.NotNil(t, res.StatementDate)
	assert.Equal(t, "2025-04-02", res.StatementDate.String())
}

func TestBradescoYearRollover(t *testing.T) {
	text := `Banco Bradesco extrato
Movimentação entre: 15/12/2024 e 15/01/2025
20/12 PIX RECEBIDO FULANO 100,00
10/01 PAGAMENTO DE BOLETO 50,00
`
	p := &BradescoParser{}
	res := p.Parse(text)
	require.Len(t, res.Transactions, 2)
	assert.Equal(t, "2024-12-20", res.Transactions[0].Date.String())
	assert.Equal(t, "2025-01-10", res.Transactions[1].Date.String())
}

func TestBradescoNotThisBank(t *testing.T) {
	p := &BradescoParser{}
	res := p.Parse("Nubank conta corrente saldo")
	assert.Equal(t, models.ReasonUnsupportedLayout, res.Reason)
	assert.Contains(t, res.Warnings, "not_bradesco")
}
