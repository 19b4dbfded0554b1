package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ellalabs/ella-extractor/internal/models"
)

const nubankStatement = `Nubank
Nu Pagamentos S.A.
Extrato gerado dia 05/01/2026
Movimentações
01 DE DEZEMBRO DE 2025 a 31 DE DEZEMBRO DE 2025
Saldo inicial R$ 2.000,00
Saldo final do período R$ 2.350,00

22 DEZ 2025
Total de entradas R$ 500,00
Transferência recebida pelo Pix
MARIA SILVA - •••.123.456-•• - NU PAGAMENTOS S.A. (0260)
R$ 500,00
Total de saídas -R$ 150,00
Compra no débito
PADARIA ESTRELA
R$ 150,00

23 DEZ 2025 Total de entradas R$ 0,00
Total de saídas -R$ 50,00
Pagamento de boleto
R$ 50,00
`

func TestNubankParse(t *testing.T) {
	p := &NubankParser{}
	require.True(t, p.Sniff(nubankStatement))

	res := p.Parse(nubankStatement)
	assert.Equal(t, models.BankNubank, res.Bank)
	assert.Empty(t, res.Reason)
	assert.Empty(t, res.Warnings)

	require.NotNil(t, res.StatementDate)
	assert.Equal(t, "2025-12-31", res.StatementDate.String())
	require.NotNil(t, res.OpeningBalance)
	assert.Equal(t, "2000.00", res.OpeningBalance.StringFixed(2))
	require.NotNil(t, res.ClosingBalance)
	assert.Equal(t, "2350.00", res.ClosingBalance.StringFixed(2))

	require.Len(t, res.Transactions, 3)

	in := res.Transactions[0]
	assert.Equal(t, "2025-12-22", in.Date.String())
	assert.Equal(t, models.TxCredit, in.Type)
	assert.Equal(t, "500.00", in.Amount.StringFixed(2))
	assert.Contains(t, in.Description, "Transferência recebida")
	assert.Contains(t, in.Description, "MARIA SILVA")
	// Account metadata never survives into the description.
	assert.NotContains(t, in.Description, "0260")
	assert.NotContains(t, in.Description, "123.456")

	out := res.Transactions[1]
	assert.Equal(t, "2025-12-22", out.Date.String())
	assert.Equal(t, models.TxDebit, out.Type)
	assert.Equal(t, "-150.00", out.Amount.StringFixed(2))
	assert.Contains(t, out.Description, "PADARIA ESTRELA")

	// Day header glued to the section total still scopes the lines below.
	boleto := res.Transactions[2]
	assert.Equal(t, "2025-12-23", boleto.Date.String())
	assert.Equal(t, models.TxDebit, boleto.Type)
	assert.Equal(t, "-50.00", boleto.Amount.StringFixed(2))
	assert.Contains(t, boleto.Description, "Pagamento de boleto")
}

func TestNubankAmbiguousAmountWarns(t *testing.T) {
	text := `Nubank
Nu Pagamentos S.A.
Movimentações
Total de entradas do mês anterior

22 DEZ 2025
Recarga de celular
R$ 30,00
`
	p := &NubankParser{}
	res := p.Parse(text)
	require.Len(t, res.Transactions, 1)
	assert.Contains(t, res.Warnings, "sign_inference_ambiguous")
	// No section and no keyword: the value stays positive.
	assert.Equal(t, models.TxCredit, res.Transactions[0].Type)
	assert.Equal(t, "30.00", res.Transactions[0].Amount.StringFixed(2))
}

func TestNubankStatementDateFromDayHeaders(t *testing.T) {
	text := `Nubank
Nu Pagamentos S.A.
Movimentações
Total de entradas

22 DEZ 2025
Total de entradas R$ 10,00
Pix recebido
R$ 10,00
`
	p := &NubankParser{}
	res := p.Parse(text)
	require.NotNil(t, res.StatementDate)
	assert.Equal(t, "2025-12-22", res.StatementDate.String())
}

func TestNubankNotThisBank(t *testing.T) {
	p := &NubankParser{}
	res := p.Parse("extrato bradesco saldo total")
	assert.Equal(t, models.ReasonUnsupportedLayout, res.Reason)
	assert.Contains(t, res.Warnings, "not_nubank")
}
