// Package writer renders parse results as CSV ledgers.
package writer

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"github.com/shopspring/decimal"

	"github.com/ellalabs/ella-extractor/internal/brl"
	"github.com/ellalabs/ella-extractor/internal/models"
)

// CSVWriter writes a StatementResult to CSV format.
type CSVWriter struct {
	// IncludeHeader prepends document metadata rows before the ledger.
	IncludeHeader bool
	// DisplayBRL renders amounts as "R$ 1.234,56" instead of "1234.56".
	DisplayBRL bool
}

// WriteToFile writes the result to a CSV file at the given path.
func (w *CSVWriter) WriteToFile(path string, result *models.StatementResult) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file %q: %w", path, err)
	}
	defer f.Close()

	return w.Write(f, result)
}

// Write writes the result in CSV format to the given writer.
func (w *CSVWriter) Write(out io.Writer, result *models.StatementResult) error {
	writer := csv.NewWriter(out)
	defer writer.Flush()

	if w.IncludeHeader {
		writer.Write([]string{"# Bank", string(result.Bank)})
		if result.DueDate != nil {
			writer.Write([]string{"# Due Date", result.DueDate.String()})
		}
		if result.StatementDate != nil {
			writer.Write([]string{"# Statement Date", result.StatementDate.String()})
		}
		if result.Total != nil {
			writer.Write([]string{"# Total", w.formatAmount(*result.Total)})
		}
		if result.OpeningBalance != nil {
			writer.Write([]string{"# Opening Balance", w.formatAmount(*result.OpeningBalance)})
		}
		if result.ClosingBalance != nil {
			writer.Write([]string{"# Closing Balance", w.formatAmount(*result.ClosingBalance)})
		}
	}

	header := []string{"Date", "Description", "Type", "Amount", "Balance", "Card Final", "Installment"}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, tx := range result.Transactions {
		balance := ""
		if tx.Balance != nil {
			balance = w.formatAmount(*tx.Balance)
		}
		installment := ""
		if tx.Installment != nil {
			installment = fmt.Sprintf("%02d/%02d", tx.Installment.Current, tx.Installment.Total)
		}
		row := []string{
			tx.Date.String(),
			tx.Description,
			string(tx.Type),
			w.formatAmount(tx.Amount),
			balance,
			tx.CardFinal,
			installment,
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	return nil
}

func (w *CSVWriter) formatAmount(d decimal.Decimal) string {
	if w.DisplayBRL {
		return brl.FormatBRL(d)
	}
	return brl.Cents(d).StringFixed(2)
}
