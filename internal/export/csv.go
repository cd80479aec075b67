package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/cleared-dev/budgetsheet/internal/model"
)

// Header is the CSV header for exported records.
const Header = "transaction_kind,amount,currency,txn_date,category_label,note"

const (
	numFields   = 6
	colKind     = 0
	colAmount   = 1
	colCurrency = 2
	colDate     = 3
	colCategory = 4
	colNote     = 5
)

// WriteRecords writes records to w with a header row.
func WriteRecords(w io.Writer, records []model.Record) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write(strings.Split(Header, ",")); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for i, r := range records {
		if err := cw.Write(MarshalRecord(r)); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// MarshalRecord converts a record to a CSV row.
func MarshalRecord(r model.Record) []string {
	row := make([]string, numFields)
	row[colKind] = r.Kind
	row[colAmount] = r.Amount.StringFixed(2)
	row[colCurrency] = r.Currency
	row[colDate] = r.Date.UTC().Format(DateFormat)
	row[colCategory] = r.Category
	row[colNote] = r.Note
	return row
}
