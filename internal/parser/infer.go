package parser

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ellalabs/ella-extractor/internal/brl"
	"github.com/ellalabs/ella-extractor/internal/models"
)

// Keyword verbs used when no running balance can settle the sign.
var (
	creditKeywords = []string{
		"deposito", "credito", "recebid", "estorno", "rendimento",
		"resgate", "ted recebida", "pix recebido", "transferencia recebida",
		"remuneracao", "devolucao", "salario", "juros recebidos",
	}
	debitKeywords = []string{
		"pagamento", "compra", "saque", "tarifa", "debito", "enviad",
		"pix enviado", "ted enviada", "transferencia enviada", "boleto",
		"iof", "anuidade", "mensalidade", "juros cobrados", "cesta",
	}
)

// InferType settles DEBIT versus CREDIT for a statement row with no explicit
// flag. The chain: match the posted amount against the running balance delta
// (within a cent), then keyword verbs, then default DEBIT. The returned
// ambiguous flag is true only when the default fired with no evidence at all,
// so callers can surface a warning instead of silently trusting it.
func InferType(prevBalance *decimal.Decimal, amountAbs decimal.Decimal, observedBalance *decimal.Decimal, description string) (models.TxType, bool) {
	if prevBalance != nil && observedBalance != nil {
		if brl.WithinCent(prevBalance.Add(amountAbs), *observedBalance) {
			return models.TxCredit, false
		}
		if brl.WithinCent(prevBalance.Sub(amountAbs), *observedBalance) {
			return models.TxDebit, false
		}
	}

	desc := strings.ToLower(brl.StripAccents(description))
	for _, kw := range creditKeywords {
		if strings.Contains(desc, kw) {
			return models.TxCredit, false
		}
	}
	for _, kw := range debitKeywords {
		if strings.Contains(desc, kw) {
			return models.TxDebit, false
		}
	}

	return models.TxDebit, true
}

// signedAmount applies the row type's sign convention to an absolute value.
func signedAmount(amountAbs decimal.Decimal, typ models.TxType) decimal.Decimal {
	amountAbs = brl.Cents(amountAbs.Abs())
	if typ == models.TxDebit {
		return amountAbs.Neg()
	}
	if typ == models.TxBalance {
		return decimal.Zero
	}
	return amountAbs
}
