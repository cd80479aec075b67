package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// KindAll is the totals key that sums every record regardless of kind.
const KindAll = "ALL"

// NoteUsed tags the year-end record that books consumption against savings.
const NoteUsed = "USED"

// Record is one transaction extracted from a (category, month) cell.
type Record struct {
	Kind     string          // transaction kind from the active section
	Amount   decimal.Decimal // rounded to 2 places, never zero
	Currency string
	Date     time.Time // UTC midnight
	Category string    // normalized row label
	Note     string
}

// MonthDate returns midnight UTC on the first day of month.
func MonthDate(year, month int) time.Time {
	return time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
}

// YearEnd returns midnight UTC on December 31.
func YearEnd(year int) time.Time {
	return time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC)
}
