// Package export validates extracted records and writes them out as the JSON
// payload or a flat CSV file.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/cleared-dev/budgetsheet/internal/model"
	"github.com/cleared-dev/budgetsheet/internal/totals"
)

// DateFormat is the wire format of txn_date.
const DateFormat = "2006-01-02T15:04:05Z"

// Format selects the output encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
)

// ParseFormat validates an output format name. Empty means JSON.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatJSON:
		return FormatJSON, nil
	case FormatCSV:
		return FormatCSV, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want json or csv)", s)
	}
}

// Payload is the JSON document written for one run.
type Payload struct {
	GeneratedAt  string            `json:"generated_at"`
	RunID        string            `json:"run_id"`
	Year         int               `json:"year"`
	Currency     string            `json:"currency"`
	Totals       map[string]string `json:"totals"`
	Transactions []Transaction     `json:"transactions"`
	Transfers    []Transaction     `json:"transfers"`
}

// Transaction is the wire form of a model.Record.
type Transaction struct {
	Kind     string `json:"transaction_kind"`
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
	TxnDate  string `json:"txn_date"`
	Category string `json:"category_label"`
	Note     string `json:"note"`
}

// FromRecord converts a record to its wire form.
func FromRecord(r model.Record) Transaction {
	return Transaction{
		Kind:     r.Kind,
		Amount:   r.Amount.StringFixed(2),
		Currency: r.Currency,
		TxnDate:  r.Date.UTC().Format(DateFormat),
		Category: r.Category,
		Note:     r.Note,
	}
}

// NewPayload assembles the payload for records with totals computed from
// them. Transactions lists every record; Transfers repeats those whose kind
// is one of transferKinds.
func NewPayload(runID string, year int, currency string, generatedAt time.Time, records []model.Record, transferKinds ...string) Payload {
	isTransfer := make(map[string]bool, len(transferKinds))
	for _, k := range transferKinds {
		isTransfer[k] = true
	}
	txns := make([]Transaction, len(records))
	transfers := []Transaction{}
	for i, r := range records {
		txns[i] = FromRecord(r)
		if isTransfer[r.Kind] {
			transfers = append(transfers, txns[i])
		}
	}
	return Payload{
		GeneratedAt:  generatedAt.UTC().Format(time.RFC3339),
		RunID:        runID,
		Year:         year,
		Currency:     currency,
		Totals:       totals.Aggregate(records).Strings(),
		Transactions: txns,
		Transfers:    transfers,
	}
}

// WriteJSON encodes p as indented JSON.
func WriteJSON(w io.Writer, p Payload) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(p); err != nil {
		return fmt.Errorf("encoding payload: %w", err)
	}
	return nil
}
