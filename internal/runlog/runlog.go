// Package runlog keeps an append-only CSV history of conversion runs.
package runlog

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Status is the outcome of one run.
type Status string

const (
	StatusOK          Status = "ok"
	StatusWarned      Status = "ok_with_mismatch"
	StatusAborted     Status = "mismatch_abort"
	StatusNoRecords   Status = "no_records"
	StatusInvalid     Status = "invalid_records"
	StatusWriteFailed Status = "write_failed"
)

// Entry is one row in the run log.
type Entry struct {
	Timestamp time.Time
	RunID     string
	Year      int
	Sheets    []string
	Records   int
	Status    Status
	Details   string
}

// Header is the CSV header for run-log.csv.
const Header = "timestamp,run_id,year,sheets,records,status,details"

const (
	numFields    = 7
	logDir       = "logs"
	logFile      = "run-log.csv"
	sheetSep     = ";"
	colTimestamp = 0
	colRunID     = 1
	colYear      = 2
	colSheets    = 3
	colRecords   = 4
	colStatus    = 5
	colDetails   = 6
)

// Path returns the run log location under base.
func Path(base string) string {
	return filepath.Join(base, logDir, logFile)
}

// MarshalEntry converts an Entry to a CSV row.
func MarshalEntry(e Entry) []string {
	row := make([]string, numFields)
	row[colTimestamp] = e.Timestamp.UTC().Format(time.RFC3339)
	row[colRunID] = e.RunID
	row[colYear] = strconv.Itoa(e.Year)
	row[colSheets] = strings.Join(e.Sheets, sheetSep)
	row[colRecords] = strconv.Itoa(e.Records)
	row[colStatus] = string(e.Status)
	row[colDetails] = e.Details
	return row
}

// UnmarshalEntry converts a CSV row to an Entry.
func UnmarshalEntry(record []string) (Entry, error) {
	if len(record) != numFields {
		return Entry{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}

	ts, err := time.Parse(time.RFC3339, record[colTimestamp])
	if err != nil {
		return Entry{}, fmt.Errorf("parsing timestamp %q: %w", record[colTimestamp], err)
	}
	year, err := strconv.Atoi(record[colYear])
	if err != nil {
		return Entry{}, fmt.Errorf("parsing year %q: %w", record[colYear], err)
	}
	n, err := strconv.Atoi(record[colRecords])
	if err != nil {
		return Entry{}, fmt.Errorf("parsing records %q: %w", record[colRecords], err)
	}

	var sheets []string
	if record[colSheets] != "" {
		sheets = strings.Split(record[colSheets], sheetSep)
	}

	return Entry{
		Timestamp: ts,
		RunID:     record[colRunID],
		Year:      year,
		Sheets:    sheets,
		Records:   n,
		Status:    Status(record[colStatus]),
		Details:   record[colDetails],
	}, nil
}

// Append writes entries to <base>/logs/run-log.csv, creating the file and
// header if needed.
func Append(base string, entries ...Entry) error {
	if err := os.MkdirAll(filepath.Join(base, logDir), 0o755); err != nil {
		return fmt.Errorf("creating logs dir: %w", err)
	}

	path := Path(base)
	needsHeader := false
	if _, err := os.Stat(path); os.IsNotExist(err) {
		needsHeader = true
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening run log: %w", err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if needsHeader {
		if err := cw.Write(strings.Split(Header, ",")); err != nil {
			return fmt.Errorf("writing header: %w", err)
		}
	}
	for i, e := range entries {
		if err := cw.Write(MarshalEntry(e)); err != nil {
			return fmt.Errorf("writing entry %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// Read returns all entries from <base>/logs/run-log.csv, or nil if the file
// does not exist.
func Read(base string) ([]Entry, error) {
	f, err := os.Open(Path(base))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening run log: %w", err)
	}
	defer f.Close()

	return readEntries(f)
}

func readEntries(r io.Reader) ([]Entry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading run log CSV: %w", err)
	}
	if len(records) <= 1 {
		return nil, nil
	}

	var entries []Entry
	for i, rec := range records[1:] {
		e, err := UnmarshalEntry(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}
