package grid

import "strconv"

// CellKind classifies the value held by a Cell.
type CellKind int

const (
	CellEmpty CellKind = iota
	CellText
	CellNumber
)

// Cell is one spreadsheet cell: empty, text, or a native number.
type Cell struct {
	Kind   CellKind
	Text   string
	Number float64
}

// Text returns a text cell. An empty string yields an empty cell.
func Text(s string) Cell {
	if s == "" {
		return Cell{}
	}
	return Cell{Kind: CellText, Text: s}
}

// Number returns a numeric cell.
func Number(v float64) Cell {
	return Cell{Kind: CellNumber, Number: v}
}

// IsEmpty reports whether the cell holds no value.
func (c Cell) IsEmpty() bool { return c.Kind == CellEmpty }

// String renders the cell as text. Numbers use the shortest decimal form,
// so 3.0 renders as "3".
func (c Cell) String() string {
	switch c.Kind {
	case CellText:
		return c.Text
	case CellNumber:
		return strconv.FormatFloat(c.Number, 'f', -1, 64)
	default:
		return ""
	}
}

// Grid is a rectangular table of cells addressed by row and column index.
type Grid [][]Cell

// New builds a rectangular Grid from ragged rows, padding short rows with
// empty cells.
func New(rows [][]Cell) Grid {
	width := 0
	for _, r := range rows {
		if len(r) > width {
			width = len(r)
		}
	}
	g := make(Grid, len(rows))
	for i, r := range rows {
		row := make([]Cell, width)
		copy(row, r)
		g[i] = row
	}
	return g
}

// Rows returns the number of rows.
func (g Grid) Rows() int { return len(g) }

// Cols returns the number of columns.
func (g Grid) Cols() int {
	if len(g) == 0 {
		return 0
	}
	return len(g[0])
}

// At returns the cell at (row, col), or an empty cell when out of range.
func (g Grid) At(row, col int) Cell {
	if row < 0 || row >= len(g) || col < 0 || col >= len(g[row]) {
		return Cell{}
	}
	return g[row][col]
}

// Sheet is a named grid read from a workbook.
type Sheet struct {
	Name string
	Grid Grid
}
