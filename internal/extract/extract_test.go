package extract

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/cleared-dev/budgetsheet/internal/config"
	"github.com/cleared-dev/budgetsheet/internal/grid"
	"github.com/cleared-dev/budgetsheet/internal/model"
)

var monthHeader = []any{"JAN", "FEB", "MAR", "APR", "MAY", "JUN", "JUL", "AUG", "SEP", "OCT", "NOV", "DEC"}

func row(vals ...any) []grid.Cell {
	out := make([]grid.Cell, len(vals))
	for i, v := range vals {
		switch v := v.(type) {
		case nil:
		case string:
			out[i] = grid.Text(v)
		case int:
			out[i] = grid.Number(float64(v))
		case float64:
			out[i] = grid.Number(v)
		default:
			panic("unsupported cell value")
		}
	}
	return out
}

func header(first any, rest ...any) []grid.Cell {
	return row(append(append([]any{first}, monthHeader...), rest...)...)
}

func newParser(t *testing.T, mutate ...func(*config.Config)) *Parser {
	t.Helper()
	cfg := config.Template(2022)
	for _, m := range mutate {
		m(cfg)
	}
	p, err := New(cfg)
	require.NoError(t, err)
	return p
}

type flat struct {
	Kind, Amount, Date, Category, Note string
}

func flatten(records []model.Record) []flat {
	out := make([]flat, len(records))
	for i, r := range records {
		out[i] = flat{r.Kind, r.Amount.StringFixed(2), r.Date.Format("2006-01-02"), r.Category, r.Note}
	}
	return out
}

func TestParse_SingleSalaryCell(t *testing.T) {
	g := grid.New([][]grid.Cell{
		row("Household budget 2022"),
		row(),
		header("Category"),
		row("Income"),
		row(),
		row("Salary", 1000),
	})

	records := newParser(t).Parse(g)
	require.Len(t, records, 1)

	r := records[0]
	assert.Equal(t, "income", r.Kind)
	assert.Equal(t, "1000.00", r.Amount.StringFixed(2))
	assert.Equal(t, time.Date(2022, time.January, 1, 0, 0, 0, 0, time.UTC), r.Date)
	assert.Equal(t, "Salary", r.Category)
	assert.Equal(t, "EUR", r.Currency)
	assert.Empty(t, r.Note)
}

func TestParse_RowThenMonthOrder(t *testing.T) {
	g := grid.New([][]grid.Cell{
		header("Category"),
		row("Income"),
		row("Salary", 1000, 1100, nil, "1.200,50"),
		row("Gifts", nil, 20),
		row("Expenses - home"),
		row("Rent", -500, -500),
	})

	got := flatten(newParser(t).Parse(g))
	assert.Equal(t, []flat{
		{"income", "1000.00", "2022-01-01", "Salary", ""},
		{"income", "1100.00", "2022-02-01", "Salary", ""},
		{"income", "1200.50", "2022-04-01", "Salary", ""},
		{"income", "20.00", "2022-02-01", "Gifts", ""},
		{"expense", "-500.00", "2022-01-01", "Rent", ""},
		{"expense", "-500.00", "2022-02-01", "Rent", ""},
	}, got)
}

func TestParse_NoHeader(t *testing.T) {
	g := grid.New([][]grid.Cell{
		row("Category", "JAN", "FEB"),
		row("Income"),
		row("Salary", 1, 2),
	})
	assert.Nil(t, newParser(t).Parse(g))
	assert.Nil(t, newParser(t).Parse(grid.New(nil)))
}

func TestParse_HeaderBeyondScanRegion(t *testing.T) {
	g := grid.New([][]grid.Cell{
		row("title"),
		row(),
		header("Category"),
		row("Income"),
		row("Salary", 5),
	})
	p := newParser(t, func(c *config.Config) { c.HeaderScanRows = 2 })
	assert.Nil(t, p.Parse(g))
}

func TestParse_RowsBeforeFirstSectionAreSkipped(t *testing.T) {
	g := grid.New([][]grid.Cell{
		header("Category"),
		row("Opening balance", 999),
		row("Income"),
		row("Salary", 10),
	})
	got := flatten(newParser(t).Parse(g))
	require.Len(t, got, 1)
	assert.Equal(t, "Salary", got[0].Category)
}

func TestParse_SectionOnHeaderRow(t *testing.T) {
	g := grid.New([][]grid.Cell{
		header("Income 2022"),
		row("Salary", 10),
	})
	got := flatten(newParser(t).Parse(g))
	require.Len(t, got, 1)
	assert.Equal(t, "income", got[0].Kind)
}

func TestParse_IgnoredLabels(t *testing.T) {
	g := grid.New([][]grid.Cell{
		header("Category"),
		row("Expenses"),
		row("Food", -100),
		row("total", -100),
		row("Subtotal food", -100),
		row("Vsota", -100),
		row("Vsota mesečno", -7),
	})
	p := newParser(t, func(c *config.Config) { c.IgnoredExact = []string{"vsota"} })

	got := flatten(p.Parse(g))
	assert.Equal(t, []flat{
		{"expense", "-100.00", "2022-01-01", "Food", ""},
		{"expense", "-7.00", "2022-01-01", "Vsota mesečno", ""},
	}, got)
}

func TestParse_TerminatorStopsWalk(t *testing.T) {
	g := grid.New([][]grid.Cell{
		header("Category"),
		row("Income"),
		row("Salary", 10),
		row("Net ostanek", 10),
		row("Income"),
		row("Bonus", 99),
	})
	got := flatten(newParser(t).Parse(g))
	require.Len(t, got, 1)
	assert.Equal(t, "Salary", got[0].Category)
}

func TestParse_AmountsRoundedAndZerosDropped(t *testing.T) {
	g := grid.New([][]grid.Cell{
		header("Category"),
		row("Expenses"),
		row("Coffee", 2.005, 0.004, "0,00", "n/a", "€ 3,5", 1e-12),
	})
	got := flatten(newParser(t).Parse(g))
	assert.Equal(t, []flat{
		{"expense", "2.01", "2022-01-01", "Coffee", ""},
		{"expense", "3.50", "2022-05-01", "Coffee", ""},
	}, got)
}

func TestParse_UsedColumn(t *testing.T) {
	g := grid.New([][]grid.Cell{
		row("Category", "JAN", "FEB", "MAR", "Used"),
		row("Income"),
		row("Salary", 10, nil, nil, 5),
		row("Savings"),
		row("Car fund", 100, 50, nil, 30),
		row("Holiday", nil, nil, nil, -12.5),
		row("Rainy day", 20, nil, nil, 0),
	})

	got := flatten(newParser(t).Parse(g))
	assert.Equal(t, []flat{
		{"income", "10.00", "2022-01-01", "Salary", ""},
		{"savings", "100.00", "2022-01-01", "Car fund", ""},
		{"savings", "50.00", "2022-02-01", "Car fund", ""},
		{"savings", "-30.00", "2022-12-31", "Car fund", model.NoteUsed},
		{"savings", "-12.50", "2022-12-31", "Holiday", model.NoteUsed},
		{"savings", "20.00", "2022-01-01", "Rainy day", ""},
	}, got)
}

func TestLayout_UsedColumnSearch(t *testing.T) {
	p := newParser(t, func(c *config.Config) { c.UsedColAliases = []string{"PORABLJENO"} })

	near := grid.New([][]grid.Cell{
		row(nil, nil, nil, nil, nil, "Porabljeno"),
		row("Category", "JAN", "FEB", "MAR"),
	})
	lay, ok := p.Layout(near)
	require.True(t, ok)
	assert.Equal(t, 5, lay.UsedCol)

	var rows [][]grid.Cell
	rows = append(rows, row(nil, nil, nil, nil, "porabljeno"))
	for range 5 {
		rows = append(rows, row())
	}
	rows = append(rows, row("Category", "JAN", "FEB", "MAR"))
	lay, ok = p.Layout(grid.New(rows))
	require.True(t, ok)
	assert.Equal(t, 6, lay.HeaderRow)
	assert.Equal(t, 4, lay.UsedCol, "falls back to the scan region")

	lay, ok = p.Layout(grid.New([][]grid.Cell{row("Category", "JAN", "FEB", "MAR")}))
	require.True(t, ok)
	assert.Equal(t, -1, lay.UsedCol)
}

func TestParse_PriorYearColumnsExcluded(t *testing.T) {
	p := newParser(t, func(c *config.Config) {
		c.Months["1"] = append(c.Months["1"], "JAN LAST YEAR")
	})
	g := grid.New([][]grid.Cell{
		row("Category", "FEB", "MAR", "APR", "Jan last year"),
		row("Income"),
		row("Salary", 10, 20, 30, 99),
	})

	lay, ok := p.Layout(g)
	require.True(t, ok)
	assert.True(t, lay.PriorYear[4])

	got := flatten(p.Parse(g))
	require.Len(t, got, 3)
	for _, r := range got {
		assert.NotEqual(t, "99.00", r.Amount)
	}
}

func TestLayout_CategoryColumn(t *testing.T) {
	p := newParser(t)

	tests := []struct {
		name   string
		header []grid.Cell
		want   int
	}{
		{"labelled first column", row("Category", "JAN", "FEB", "MAR"), 0},
		{"labelled second column", row(nil, "Postavka", "JAN", "FEB", "MAR"), 1},
		{"leftmost labelled wins", row("#", "Postavka", "JAN", "FEB", "MAR"), 0},
		{"unlabelled uses column before months", row(nil, nil, "JAN", "FEB", "MAR"), 1},
		{"months from column zero", row("JAN", "FEB", "MAR", "Notes"), 0},
	}
	for _, tt := range tests {
		lay, ok := p.Layout(grid.New([][]grid.Cell{tt.header}))
		require.True(t, ok, tt.name)
		assert.Equal(t, tt.want, lay.CategoryCol, tt.name)
	}

	hinted := newParser(t, func(c *config.Config) { h := 2; c.CategoryColHint = &h })
	lay, ok := hinted.Layout(grid.New([][]grid.Cell{row("Category", "JAN", "FEB", "MAR")}))
	require.True(t, ok)
	assert.Equal(t, 2, lay.CategoryCol)
}

func TestLayout_DuplicateMonthFirstWins(t *testing.T) {
	lay, ok := newParser(t).Layout(grid.New([][]grid.Cell{
		row("Category", "JAN", "FEB", "MAR", "JAN"),
	}))
	require.True(t, ok)
	assert.Equal(t, 1, lay.Months[1])
}

func TestParse_Idempotent(t *testing.T) {
	g := grid.New([][]grid.Cell{
		header("Category"),
		row("Income"),
		row("Salary", 1000, 1000, 1000),
		row("Savings"),
		row("Fund", 5),
	})
	p := newParser(t)
	assert.Equal(t, p.Parse(g), p.Parse(g))
}

func TestParseSheets(t *testing.T) {
	sheets := []grid.Sheet{
		{Name: "Jan-Jun", Grid: grid.New([][]grid.Cell{header("Income"), row("Salary", 1)})},
		{Name: "Notes", Grid: grid.New([][]grid.Cell{row("nothing here")})},
		{Name: "Jul-Dec", Grid: grid.New([][]grid.Cell{header("Expenses"), row("Rent", -2)})},
	}

	var buf bytes.Buffer
	cfg := config.Template(2022)
	p, err := New(cfg, WithLogger(zerolog.New(&buf).Level(zerolog.DebugLevel)))
	require.NoError(t, err)

	got := flatten(p.ParseSheets(sheets))
	assert.Equal(t, []flat{
		{"income", "1.00", "2022-01-01", "Salary", ""},
		{"expense", "-2.00", "2022-01-01", "Rent", ""},
	}, got)
	assert.Contains(t, buf.String(), "sheet totals")
	assert.Contains(t, buf.String(), `"sheet":"Jul-Dec"`)
}

func TestParseSheets_XLSXAndCSVAgree(t *testing.T) {
	rows := [][]any{
		{"Budget 2022"},
		{"Category", "JAN", "FEB", "MAR", "Used"},
		{"Income"},
		{"Salary", 1000, "1.234,56"},
		{"Savings"},
		{"Fund", 100, 50.5, nil, 20},
	}
	dir := t.TempDir()

	f := excelize.NewFile()
	defer f.Close()
	for i, r := range rows {
		axis, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		vals := r
		require.NoError(t, f.SetSheetRow("Sheet1", axis, &vals))
	}
	xlsxPath := filepath.Join(dir, "2022.xlsx")
	require.NoError(t, f.SaveAs(xlsxPath))

	csvPath := filepath.Join(dir, "2022.csv")
	csvData := "Budget 2022,,,,\n" +
		"Category,JAN,FEB,MAR,Used\n" +
		"Income,,,,\n" +
		"Salary,1000,\"1.234,56\",,\n" +
		"Savings,,,,\n" +
		"Fund,100,50.5,,20\n"
	require.NoError(t, os.WriteFile(csvPath, []byte(csvData), 0o644))

	p := newParser(t)
	parse := func(path string) []flat {
		sheets, err := grid.DefaultRegistry().ReadFile(path, grid.FirstSheet())
		require.NoError(t, err)
		return flatten(p.ParseSheets(sheets))
	}

	fromXLSX := parse(xlsxPath)
	assert.Equal(t, []flat{
		{"income", "1000.00", "2022-01-01", "Salary", ""},
		{"income", "1234.56", "2022-02-01", "Salary", ""},
		{"savings", "100.00", "2022-01-01", "Fund", ""},
		{"savings", "50.50", "2022-02-01", "Fund", ""},
		{"savings", "-20.00", "2022-12-31", "Fund", model.NoteUsed},
	}, fromXLSX)
	assert.Equal(t, fromXLSX, parse(csvPath))
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg := config.Template(2022)
	cfg.SectionPrefixes = nil
	_, err := New(cfg)
	require.Error(t, err)
	assert.ErrorIs(t, err, config.ErrInvalid)
}
