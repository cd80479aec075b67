package export

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/budgetsheet/internal/model"
)

// ValidationError describes a single invariant violation.
type ValidationError struct {
	Invariant   int
	Index       int // position of the record in the run
	Description string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("invariant %d [record %d]: %s", e.Invariant, e.Index, e.Description)
}

var hundred = decimal.NewFromInt(100)

// ValidateRecords enforces 5 invariants on the records of one run.
func ValidateRecords(records []model.Record, year int, currency string) []ValidationError {
	var errs []ValidationError
	add := func(inv, i int, format string, args ...any) {
		errs = append(errs, ValidationError{Invariant: inv, Index: i, Description: fmt.Sprintf(format, args...)})
	}

	for i, r := range records {
		// Invariant 1: amounts are never zero.
		if r.Amount.IsZero() {
			add(1, i, "amount is zero")
		}

		// Invariant 2: cents precision.
		if scaled := r.Amount.Mul(hundred); !scaled.Equal(scaled.Truncate(0)) {
			add(2, i, "amount %s has more than 2 decimal places", r.Amount)
		}

		// Invariant 3: dated inside the configured year.
		if r.Date.Year() != year {
			add(3, i, "date %s not in %d", r.Date.Format("2006-01-02"), year)
		}

		// Invariant 4: kind and category present.
		if strings.TrimSpace(r.Kind) == "" {
			add(4, i, "empty transaction kind")
		}
		if strings.TrimSpace(r.Category) == "" {
			add(4, i, "empty category label")
		}

		// Invariant 5: single currency.
		if r.Currency != currency {
			add(5, i, "currency %q, want %q", r.Currency, currency)
		}
	}
	return errs
}
