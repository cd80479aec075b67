package grid

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// CSVReader reads a single-sheet grid from a CSV file. Every non-empty field
// becomes a text cell; amount coercion happens later.
type CSVReader struct{}

// Format returns the reader name.
func (r *CSVReader) Format() string { return "csv" }

// Read parses the CSV at path. The single sheet is named after the file and
// answers to index 0, its own name, or ALL.
func (r *CSVReader) Read(path string, sel Selector) ([]Sheet, error) {
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if _, err := sel.pick([]string{name}); err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening csv: %w", err)
	}
	defer f.Close()

	g, err := ReadCSV(f)
	if err != nil {
		return nil, err
	}
	return []Sheet{{Name: name, Grid: g}}, nil
}

// ReadCSV reads a ragged CSV stream into a rectangular Grid.
func ReadCSV(r io.Reader) (Grid, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading csv: %w", err)
	}

	rows := make([][]Cell, len(records))
	for i, rec := range records {
		rows[i] = make([]Cell, len(rec))
		for j, field := range rec {
			rows[i][j] = Text(field)
		}
	}
	return New(rows), nil
}
