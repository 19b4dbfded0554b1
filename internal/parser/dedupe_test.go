package parser

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ellalabs/ella-extractor/internal/models"
)

func mustDate(t *testing.T, y, m, d int) models.Date {
	t.Helper()
	date, ok := models.NewDate(y, time.Month(m), d)
	require.True(t, ok)
	return date
}

func TestNormalizeDescription(t *testing.T) {
	assert.Equal(t, normalizeDescription("COS SERVICOS MEDIC 07/10"), normalizeDescription("COS*SERVIÇOS MEDIC"))
	assert.Equal(t, "farmaciasaopaulo", normalizeDescription("Farmácia São Paulo"))
}

func TestDedupeMergesOverlappingScans(t *testing.T) {
	date := mustDate(t, 2025, 5, 19)
	txs := []models.Transaction{
		{
			Date:        date,
			Description: "COS SERVICOS MEDIC",
			Amount:      dec("500.00"),
			Type:        models.TxCredit,
			Installment: &models.Installment{Current: 7, Total: 10},
		},
		{
			Date:        date,
			Description: "COS SERVICOS MEDIC",
			Amount:      dec("500.00"),
			Type:        models.TxCredit,
			CardFinal:   "2673",
		},
	}

	out := Dedupe(txs)
	require.Len(t, out, 1)
	// First occurrence wins, later duplicate contributes its card.
	assert.Equal(t, "2673", out[0].CardFinal)
	require.NotNil(t, out[0].Installment)
	assert.Equal(t, 7, out[0].Installment.Current)
}

func TestDedupeKeepsDistinctRows(t *testing.T) {
	date := mustDate(t, 2025, 5, 19)
	other := mustDate(t, 2025, 5, 20)
	txs := []models.Transaction{
		{Date: date, Description: "FARMACIA SAO PAULO", Amount: dec("45.90"), Type: models.TxCredit},
		{Date: other, Description: "FARMACIA SAO PAULO", Amount: dec("45.90"), Type: models.TxCredit},
		{Date: date, Description: "FARMACIA SAO PAULO", Amount: dec("45.91"), Type: models.TxCredit},
		{Date: date, Description: "PADARIA DO ZE", Amount: dec("45.90"), Type: models.TxCredit},
	}
	out := Dedupe(txs)
	assert.Len(t, out, 4)
}

func TestDedupeSubstringDescriptions(t *testing.T) {
	date := mustDate(t, 2025, 3, 2)
	txs := []models.Transaction{
		{Date: date, Description: "UBER TRIP", Amount: dec("23.90"), Type: models.TxCredit},
		{Date: date, Description: "UBER TRIP SAO PAULO BR", Amount: dec("23.90"), Type: models.TxCredit},
	}
	out := Dedupe(txs)
	assert.Len(t, out, 1)
}

func TestDedupeIsIdempotent(t *testing.T) {
	date := mustDate(t, 2025, 5, 19)
	txs := []models.Transaction{
		{Date: date, Description: "MERCADO LIVRE 02/04", Amount: dec("120.00"), Type: models.TxCredit},
		{Date: date, Description: "MERCADO LIVRE", Amount: dec("120.00"), Type: models.TxCredit},
		{Date: date, Description: "POSTO SHELL", Amount: dec("200.00"), Type: models.TxCredit},
	}
	once := Dedupe(txs)
	twice := Dedupe(once)
	assert.Equal(t, once, twice)
}
