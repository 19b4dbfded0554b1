package writer

import (
	"bytes"
	"encoding/csv"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ellalabs/ella-extractor/internal/models"
)

func sampleResult() *models.StatementResult {
	due := models.Date{Year: 2025, Month: 6, Day: 10}
	total := decimal.RequireFromString("3760.96")
	balance := decimal.RequireFromString("1150.00")
	return &models.StatementResult{
		Bank:    models.BankItauPersonnalite,
		DueDate: &due,
		Total:   &total,
		Transactions: []models.Transaction{
			{
				Date:        models.Date{Year: 2025, Month: 5, Day: 19},
				Description: "COSSERVICOSMEDIC",
				Amount:      decimal.RequireFromString("500.00"),
				Type:        models.TxCredit,
				CardFinal:   "2673",
				Installment: &models.Installment{Current: 7, Total: 10},
			},
			{
				Date:        models.Date{Year: 2025, Month: 5, Day: 20},
				Description: "PIX RECEBIDO",
				Amount:      decimal.RequireFromString("150.00"),
				Balance:     &balance,
				Type:        models.TxCredit,
			},
		},
		Warnings: []string{},
	}
}

func TestCSVWriterWithHeader(t *testing.T) {
	var buf bytes.Buffer
	w := &CSVWriter{IncludeHeader: true}
	require.NoError(t, w.Write(&buf, sampleResult()))

	r := csv.NewReader(&buf)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	require.NoError(t, err)

	require.Len(t, rows, 6)
	assert.Equal(t, []string{"# Bank", "itau_personnalite"}, rows[0])
	assert.Equal(t, []string{"# Due Date", "2025-06-10"}, rows[1])
	assert.Equal(t, []string{"# Total", "3760.96"}, rows[2])

	assert.Equal(t, []string{"Date", "Description", "Type", "Amount", "Balance", "Card Final", "Installment"}, rows[3])
	assert.Equal(t, []string{"2025-05-19", "COSSERVICOSMEDIC", "CREDIT", "500.00", "", "2673", "07/10"}, rows[4])
	assert.Equal(t, []string{"2025-05-20", "PIX RECEBIDO", "CREDIT", "150.00", "1150.00", "", ""}, rows[5])
}

func TestCSVWriterWithoutHeader(t *testing.T) {
	var buf bytes.Buffer
	w := &CSVWriter{}
	require.NoError(t, w.Write(&buf, sampleResult()))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)

	require.Len(t, rows, 3)
	assert.Equal(t, "Date", rows[0][0])
	assert.Equal(t, []string{"2025-05-20", "PIX RECEBIDO", "CREDIT", "150.00", "1150.00", "", ""}, rows[2])
}

func TestCSVWriterDisplayBRL(t *testing.T) {
	var buf bytes.Buffer
	w := &CSVWriter{DisplayBRL: true}
	require.NoError(t, w.Write(&buf, sampleResult()))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	assert.Contains(t, rows[1][3], "500,00")
	assert.Contains(t, rows[1][3], "R$")
}
