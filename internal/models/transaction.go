package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// BankType identifies a supported institution layout.
type BankType string

const (
	BankItauPersonnalite BankType = "itau_personnalite"
	BankSicredi          BankType = "sicredi"
	BankBradesco         BankType = "bradesco"
	BankC6               BankType = "c6"
	BankItau             BankType = "itau"
	BankNubank           BankType = "nubank"
)

// TxType classifies a ledger row.
type TxType string

const (
	TxDebit   TxType = "DEBIT"
	TxCredit  TxType = "CREDIT"
	TxBalance TxType = "BALANCE"
)

// Reason codes for documents that produce no ledger.
const (
	ReasonUnsupportedLayout = "UNSUPPORTED_LAYOUT"
	ReasonUnreadable        = "UNREADABLE_PDF"
)

// Date is a calendar date serialized as YYYY-MM-DD.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// NewDate validates the calendar combination; 31/02 and friends return ok=false.
func NewDate(year int, month time.Month, day int) (Date, bool) {
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	if t.Year() != year || t.Month() != month || t.Day() != day {
		return Date{}, false
	}
	return Date{Year: year, Month: month, Day: day}, true
}

func DateOf(t time.Time) Date {
	return Date{Year: t.Year(), Month: t.Month(), Day: t.Day()}
}

func (d Date) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

func (d Date) Before(other Date) bool {
	return d.Time().Before(other.Time())
}

func (d Date) Equal(other Date) bool {
	return d.Year == other.Year && d.Month == other.Month && d.Day == other.Day
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := string(b)
	if len(s) >= 2 && s[0] == '"' {
		s = s[1 : len(s)-1]
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return err
	}
	*d = DateOf(t)
	return nil
}

// Installment is a current/total purchase fraction (e.g. 03/10).
type Installment struct {
	Current int `json:"current"`
	Total   int `json:"total"`
}

// Transaction is one ledger row. Amount is signed: DEBIT rows are <= 0,
// CREDIT rows >= 0, BALANCE rows carry zero amount and a mandatory balance.
type Transaction struct {
	Date        Date             `json:"date"`
	Description string           `json:"description"`
	Amount      decimal.Decimal  `json:"amount"`
	Balance     *decimal.Decimal `json:"balance,omitempty"`
	Type        TxType           `json:"type"`
	CardFinal   string           `json:"cardFinal,omitempty"`
	Installment *Installment     `json:"installment,omitempty"`
}

// StatementResult is the structured outcome of one parse call.
// Invoice parsers fill DueDate/Total; statement parsers fill
// StatementDate/OpeningBalance/ClosingBalance.
type StatementResult struct {
	Bank           BankType         `json:"bank"`
	DueDate        *Date            `json:"dueDate,omitempty"`
	StatementDate  *Date            `json:"statementDate,omitempty"`
	Total          *decimal.Decimal `json:"total,omitempty"`
	OpeningBalance *decimal.Decimal `json:"openingBalance,omitempty"`
	ClosingBalance *decimal.Decimal `json:"closingBalance,omitempty"`
	Transactions   []Transaction    `json:"transactions"`
	Reason         string           `json:"reason,omitempty"`
	Warnings       []string         `json:"warnings"`
	Debug          map[string]any   `json:"debug,omitempty"`
}

// Dec is a convenience for pointer-valued optional decimals.
func Dec(d decimal.Decimal) *decimal.Decimal {
	return &d
}
