package parser

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/ellalabs/ella-extractor/internal/models"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestInferTypeFromBalanceDelta(t *testing.T) {
	prev := dec("1000.00")

	typ, ambiguous := InferType(&prev, dec("150.00"), models.Dec(dec("1150.00")), "QUALQUER COISA")
	assert.Equal(t, models.TxCredit, typ)
	assert.False(t, ambiguous)

	typ, ambiguous = InferType(&prev, dec("150.00"), models.Dec(dec("850.00")), "QUALQUER COISA")
	assert.Equal(t, models.TxDebit, typ)
	assert.False(t, ambiguous)

	// A cent of rounding drift still settles.
	typ, _ = InferType(&prev, dec("150.00"), models.Dec(dec("1150.01")), "")
	assert.Equal(t, models.TxCredit, typ)
}

func TestInferTypeBalanceBeatsKeywords(t *testing.T) {
	prev := dec("500.00")
	// Description says "pagamento" (debit verb) but the balance went up.
	typ, ambiguous := InferType(&prev, dec("100.00"), models.Dec(dec("600.00")), "PAGAMENTO RECEBIDO")
	assert.Equal(t, models.TxCredit, typ)
	assert.False(t, ambiguous)
}

func TestInferTypeFromKeywords(t *testing.T) {
	tests := []struct {
		desc string
		want models.TxType
	}{
		{"PIX RECEBIDO JOAO DA SILVA", models.TxCredit},
		{"DEPÓSITO EM DINHEIRO", models.TxCredit},
		{"ESTORNO DE TARIFA", models.TxCredit},
		{"PAGAMENTO DE BOLETO", models.TxDebit},
		{"SAQUE 24H", models.TxDebit},
		{"TARIFA CESTA FACIL", models.TxDebit},
		{"COMPRA NO DEBITO", models.TxDebit},
	}
	for _, tt := range tests {
		typ, ambiguous := InferType(nil, dec("10.00"), nil, tt.desc)
		assert.Equal(t, tt.want, typ, tt.desc)
		assert.False(t, ambiguous, tt.desc)
	}
}

func TestInferTypeDefaultIsAmbiguousDebit(t *testing.T) {
	typ, ambiguous := InferType(nil, dec("10.00"), nil, "XYZ 123")
	assert.Equal(t, models.TxDebit, typ)
	assert.True(t, ambiguous)
}

func TestSignedAmount(t *testing.T) {
	assert.Equal(t, "-59.00", signedAmount(dec("59.00"), models.TxDebit).StringFixed(2))
	assert.Equal(t, "-59.00", signedAmount(dec("-59.00"), models.TxDebit).StringFixed(2))
	assert.Equal(t, "150.00", signedAmount(dec("150.00"), models.TxCredit).StringFixed(2))
	assert.Equal(t, "0.00", signedAmount(dec("987.65"), models.TxBalance).StringFixed(2))
}
