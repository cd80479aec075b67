package runlog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testTime = time.Date(2025, 1, 15, 10, 30, 0, 0, time.UTC)

func testEntry() Entry {
	return Entry{
		Timestamp: testTime,
		RunID:     "3f0c8a52-0c1b-4d4e-9a53-1f3f0d7b2c11",
		Year:      2022,
		Sheets:    []string{"Budget", "Savings"},
		Records:   42,
		Status:    StatusOK,
		Details:   "reconciliation passed",
	}
}

func TestAppend_NewFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Append(dir, testEntry()))

	data, err := os.ReadFile(filepath.Join(dir, "logs", "run-log.csv"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, Header, lines[0])
	assert.Equal(t, "2025-01-15T10:30:00Z,3f0c8a52-0c1b-4d4e-9a53-1f3f0d7b2c11,2022,Budget;Savings,42,ok,reconciliation passed", lines[1])
}

func TestAppend_ExistingFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Append(dir, testEntry()))

	e2 := testEntry()
	e2.Status = StatusAborted
	e2.Details = "MISMATCH income expected=1.00 actual=2.00 diff=1.00"
	require.NoError(t, Append(dir, e2))

	entries, err := Read(dir)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, StatusOK, entries[0].Status)
	assert.Equal(t, StatusAborted, entries[1].Status)
}

func TestRead_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	original := testEntry()
	require.NoError(t, Append(dir, original))

	entries, err := Read(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, original, entries[0])
}

func TestRead_NoSheets(t *testing.T) {
	dir := t.TempDir()
	e := testEntry()
	e.Sheets = nil
	e.Records = 0
	e.Status = StatusNoRecords
	require.NoError(t, Append(dir, e))

	entries, err := Read(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Nil(t, entries[0].Sheets)
}

func TestRead_Missing(t *testing.T) {
	entries, err := Read(t.TempDir())
	require.NoError(t, err)
	assert.Nil(t, entries)
}

func TestUnmarshalEntry_Errors(t *testing.T) {
	tests := []struct {
		name string
		row  []string
		want string
	}{
		{"short", []string{"a"}, "expected 7 fields"},
		{"timestamp", []string{"yesterday", "r", "2022", "", "1", "ok", ""}, "parsing timestamp"},
		{"year", []string{"2025-01-15T10:30:00Z", "r", "x", "", "1", "ok", ""}, "parsing year"},
		{"records", []string{"2025-01-15T10:30:00Z", "r", "2022", "", "many", "ok", ""}, "parsing records"},
	}
	for _, tt := range tests {
		_, err := UnmarshalEntry(tt.row)
		require.Error(t, err, tt.name)
		assert.Contains(t, err.Error(), tt.want, tt.name)
	}
}
