package export

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/cleared-dev/budgetsheet/internal/model"
)

func TestValidateRecords_Valid(t *testing.T) {
	assert.Empty(t, ValidateRecords(sampleRecords(), 2022, "EUR"))
	assert.Empty(t, ValidateRecords(nil, 2022, "EUR"))
}

func TestValidateRecords_Violations(t *testing.T) {
	good := model.Record{Kind: "income", Amount: decimal.RequireFromString("1"), Currency: "EUR", Date: model.MonthDate(2022, 1), Category: "Salary"}

	tests := []struct {
		name      string
		mutate    func(*model.Record)
		invariant int
	}{
		{"zero amount", func(r *model.Record) { r.Amount = decimal.Zero }, 1},
		{"sub-cent", func(r *model.Record) { r.Amount = decimal.RequireFromString("1.005") }, 2},
		{"wrong year", func(r *model.Record) { r.Date = time.Date(2021, 12, 1, 0, 0, 0, 0, time.UTC) }, 3},
		{"empty kind", func(r *model.Record) { r.Kind = " " }, 4},
		{"empty category", func(r *model.Record) { r.Category = "" }, 4},
		{"currency", func(r *model.Record) { r.Currency = "USD" }, 5},
	}
	for _, tt := range tests {
		r := good
		tt.mutate(&r)
		errs := ValidateRecords([]model.Record{good, r}, 2022, "EUR")
		if assert.Len(t, errs, 1, tt.name) {
			assert.Equal(t, tt.invariant, errs[0].Invariant, tt.name)
			assert.Equal(t, 1, errs[0].Index, tt.name)
		}
	}
}

func TestValidationError_Error(t *testing.T) {
	err := ValidationError{Invariant: 3, Index: 7, Description: "date 2021-12-01 not in 2022"}
	assert.Equal(t, "invariant 3 [record 7]: date 2021-12-01 not in 2022", err.Error())
}

func TestValidateRecords_NegativeCents(t *testing.T) {
	r := model.Record{Kind: "expense", Amount: decimal.RequireFromString("-12.34"), Currency: "EUR", Date: model.MonthDate(2022, 5), Category: "Food"}
	assert.Empty(t, ValidateRecords([]model.Record{r}, 2022, "EUR"))
}
