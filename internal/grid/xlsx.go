package grid

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// XLSXReader reads Excel workbooks.
type XLSXReader struct{}

// Format returns the reader name.
func (r *XLSXReader) Format() string { return "xlsx" }

// Read opens the workbook at path and returns the selected sheets in
// workbook order. Cells are read as raw values so numbers are not subject to
// the workbook's display formatting.
func (r *XLSXReader) Read(path string, sel Selector) ([]Sheet, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening workbook: %w", err)
	}
	defer f.Close()

	names, err := sel.pick(f.GetSheetList())
	if err != nil {
		return nil, err
	}

	sheets := make([]Sheet, 0, len(names))
	for _, name := range names {
		g, err := readSheet(f, name)
		if err != nil {
			return nil, fmt.Errorf("sheet %q: %w", name, err)
		}
		sheets = append(sheets, Sheet{Name: name, Grid: g})
	}
	return sheets, nil
}

func readSheet(f *excelize.File, sheet string) (Grid, error) {
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("reading rows: %w", err)
	}

	cells := make([][]Cell, len(rows))
	for i, row := range rows {
		cells[i] = make([]Cell, len(row))
		for j, raw := range row {
			if raw == "" {
				continue
			}
			axis, err := excelize.CoordinatesToCellName(j+1, i+1)
			if err != nil {
				return nil, err
			}
			typ, err := f.GetCellType(sheet, axis)
			if err != nil {
				return nil, fmt.Errorf("cell %s: %w", axis, err)
			}
			cells[i][j] = xlsxCell(typ, raw)
		}
	}
	return New(cells), nil
}

// xlsxCell types a raw cell value. String cells, including formulas with a
// cached string result, stay text even when they look numeric; everything
// else is a number when it parses as a finite one.
func xlsxCell(typ excelize.CellType, raw string) Cell {
	switch typ {
	case excelize.CellTypeSharedString, excelize.CellTypeInlineString, excelize.CellTypeFormula,
		excelize.CellTypeBool, excelize.CellTypeError:
		return Text(raw)
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return Text(raw)
	}
	return Number(v)
}
