package parser

import (
	"fmt"

	"github.com/ellalabs/ella-extractor/internal/models"
)

// Parser is the common shape of every institution parser. Parse never fails:
// text that does not match the institution's layout produces a result with
// an empty ledger, Reason set to UNSUPPORTED_LAYOUT and a "not_<bank>"
// warning.
type Parser interface {
	// Parse consumes raw extracted text and returns a structured ledger.
	Parse(rawText string) *models.StatementResult
	// Bank returns the institution tag this parser handles.
	Bank() models.BankType
	// Sniff reports whether the text carries this institution's markers.
	Sniff(text string) bool
}

// New returns the parser for the given institution tag.
func New(bank models.BankType) (Parser, error) {
	switch bank {
	case models.BankItauPersonnalite:
		return &ItauPersonnaliteParser{}, nil
	case models.BankSicredi:
		return &SicrediParser{}, nil
	case models.BankBradesco:
		return &BradescoParser{}, nil
	case models.BankC6:
		return &C6Parser{}, nil
	case models.BankItau:
		return &ItauStatementParser{}, nil
	case models.BankNubank:
		return &NubankParser{}, nil
	default:
		return nil, fmt.Errorf("unsupported bank type: %q", bank)
	}
}

// all lists every parser in detection order. Statement sniffers are stricter
// than the invoice ones, so they run first.
func all() []Parser {
	return []Parser{
		&BradescoParser{},
		&C6Parser{},
		&ItauStatementParser{},
		&NubankParser{},
		&SicrediParser{},
		&ItauPersonnaliteParser{},
	}
}

// Detect identifies the institution from document text content.
func Detect(text string) (models.BankType, error) {
	for _, p := range all() {
		if p.Sniff(text) {
			return p.Bank(), nil
		}
	}
	return "", fmt.Errorf("could not detect institution from document content")
}
