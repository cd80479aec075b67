// Package extract walks a budget grid and emits one transaction record per
// (category row, month column) cell.
//
// The walk is a small state machine: it seeks the month header row, then
// folds over the rows below it carrying the active section kind until the
// terminator banner or the end of the grid.
package extract

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/cleared-dev/budgetsheet/internal/config"
	"github.com/cleared-dev/budgetsheet/internal/grid"
	"github.com/cleared-dev/budgetsheet/internal/logger"
	"github.com/cleared-dev/budgetsheet/internal/model"
	"github.com/cleared-dev/budgetsheet/internal/months"
	"github.com/cleared-dev/budgetsheet/internal/sections"
	"github.com/cleared-dev/budgetsheet/internal/textnorm"
	"github.com/cleared-dev/budgetsheet/internal/totals"
)

// builtinIgnoredExact are labels skipped regardless of configuration.
var builtinIgnoredExact = []string{"TOTAL"}

// usedSearchRadius is how many rows above and below the header row are
// searched for the used column before falling back to the scan region.
const usedSearchRadius = 2

// Parser extracts records from grids. It holds only immutable
// configuration and may parse any number of grids one after another.
type Parser struct {
	year            int
	currency        string
	savingsKind     string
	scanRows        int
	categoryHint    int // -1 when unset
	eps             decimal.Decimal
	months          *months.Resolver
	sections        *sections.Classifier
	ignoredExact    map[string]bool
	ignoredPrefixes []string
	usedAliases     map[string]bool
	log             zerolog.Logger
}

// Option configures a Parser.
type Option func(*Parser)

// WithLogger sets the logger used for debug tracing of the walk.
func WithLogger(l zerolog.Logger) Option {
	return func(p *Parser) { p.log = l }
}

// New validates cfg and builds a Parser from it.
func New(cfg *config.Config, opts ...Option) (*Parser, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	res, err := months.New(cfg.Months)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", config.ErrInvalid, err)
	}
	cls, err := sections.New(cfg.Rules())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", config.ErrInvalid, err)
	}

	p := &Parser{
		year:         cfg.Year,
		currency:     cfg.Currency,
		savingsKind:  strings.TrimSpace(cfg.SavingsKind),
		scanRows:     cfg.HeaderScanRows,
		categoryHint: -1,
		eps:          cfg.Epsilon(),
		months:       res,
		sections:     cls,
		ignoredExact: upperSet(append(append([]string(nil), builtinIgnoredExact...), cfg.IgnoredExact...)),
		usedAliases:  upperSet(cfg.UsedColAliases),
		log:          logger.Nop(),
	}
	if cfg.CategoryColHint != nil {
		p.categoryHint = *cfg.CategoryColHint
	}
	for _, pre := range cfg.IgnoredPrefixes {
		if u := textnorm.Upper(pre); u != "" {
			p.ignoredPrefixes = append(p.ignoredPrefixes, u)
		}
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

func upperSet(values []string) map[string]bool {
	out := make(map[string]bool, len(values))
	for _, v := range values {
		if u := textnorm.Upper(v); u != "" {
			out[u] = true
		}
	}
	return out
}

// Parse extracts records from one grid in row-then-month order. A grid
// without a recognizable header row yields no records and no error.
func (p *Parser) Parse(g grid.Grid) []model.Record {
	lay, ok := p.Layout(g)
	if !ok {
		p.log.Debug().Msg("no month header row found")
		return nil
	}
	p.log.Debug().
		Int("header_row", lay.HeaderRow).
		Interface("months", lay.Months).
		Int("category_col", lay.CategoryCol).
		Int("used_col", lay.UsedCol).
		Msg("layout detected")

	st := p.initialState(g, lay)
	var records []model.Record
	for r := lay.HeaderRow + 1; r < g.Rows() && !st.done; r++ {
		var out []model.Record
		st, out = p.step(st, lay, r, g[r])
		records = append(records, out...)
	}
	return records
}

// ParseSheets parses each sheet in order and concatenates the records.
func (p *Parser) ParseSheets(sheets []grid.Sheet) []model.Record {
	var all []model.Record
	for _, sh := range sheets {
		p.log.Debug().Str("sheet", sh.Name).Msg("parsing sheet")
		recs := p.Parse(sh.Grid)
		if e := p.log.Debug(); e.Enabled() {
			e.Str("sheet", sh.Name).
				Int("records", len(recs)).
				Interface("totals", totals.Aggregate(recs).Strings()).
				Msg("sheet totals")
		}
		all = append(all, recs...)
	}
	return all
}

// walkState is the section cursor threaded through the row fold.
type walkState struct {
	kind string // empty until the first section banner
	done bool   // terminator seen
}

func (p *Parser) initialState(g grid.Grid, lay Layout) walkState {
	label := textnorm.Normalize(g.At(lay.HeaderRow, lay.CategoryCol))
	m, ok := p.sections.Detect(label)
	if !ok {
		return walkState{}
	}
	p.log.Debug().Str("label", label).Str("kind", m.Kind).Msg("initial section on header row")
	if m.Terminator {
		return walkState{done: true}
	}
	return walkState{kind: m.Kind}
}

// step consumes one row below the header and returns the next state and the
// records the row produced.
func (p *Parser) step(st walkState, lay Layout, r int, row []grid.Cell) (walkState, []model.Record) {
	label := textnorm.Normalize(cellAt(row, lay.CategoryCol))

	if m, ok := p.sections.Detect(label); ok {
		if m.Terminator {
			p.log.Debug().Int("row", r).Str("label", label).Msg("terminator reached")
			return walkState{kind: st.kind, done: true}, nil
		}
		p.log.Debug().Int("row", r).Str("label", label).Str("kind", m.Kind).Msg("section")
		return walkState{kind: m.Kind}, nil
	}

	if st.kind == "" || label == "" || p.ignored(label) {
		return st, nil
	}

	var out []model.Record
	for _, month := range lay.monthOrder() {
		col := lay.Months[month]
		if lay.PriorYear[col] {
			continue
		}
		amt, ok := textnorm.CoerceAmount(cellAt(row, col), p.eps)
		if !ok {
			continue
		}
		if rec, ok := p.record(st.kind, amt, model.MonthDate(p.year, month), label, ""); ok {
			out = append(out, rec)
		}
	}

	if st.kind == p.savingsKind && lay.UsedCol >= 0 {
		if used, ok := textnorm.CoerceAmount(cellAt(row, lay.UsedCol), p.eps); ok {
			if rec, ok := p.record(st.kind, used.Abs().Neg(), model.YearEnd(p.year), label, model.NoteUsed); ok {
				out = append(out, rec)
			}
		}
	}
	return st, out
}

// record builds a record with the amount rounded to cents. Amounts that
// round to zero are dropped.
func (p *Parser) record(kind string, amount decimal.Decimal, date time.Time, label, note string) (model.Record, bool) {
	amt := amount.Round(2)
	if amt.IsZero() {
		return model.Record{}, false
	}
	return model.Record{
		Kind:     kind,
		Amount:   amt,
		Currency: p.currency,
		Date:     date,
		Category: label,
		Note:     note,
	}, true
}

func (p *Parser) ignored(label string) bool {
	u := strings.ToUpper(label)
	if p.ignoredExact[u] {
		return true
	}
	for _, pre := range p.ignoredPrefixes {
		if strings.HasPrefix(u, pre) {
			return true
		}
	}
	return false
}

func cellAt(row []grid.Cell, col int) grid.Cell {
	if col < 0 || col >= len(row) {
		return grid.Cell{}
	}
	return row[col]
}

// Layout describes where the data lives in a grid.
type Layout struct {
	HeaderRow   int
	Months      map[int]int  // month -> column
	PriorYear   map[int]bool // month columns whose header marks a prior-year comparison
	CategoryCol int
	UsedCol     int // -1 when the grid has no used column
}

func (l Layout) monthOrder() []int {
	out := make([]int, 0, len(l.Months))
	for m := range l.Months {
		out = append(out, m)
	}
	sort.Ints(out)
	return out
}

func (l Layout) firstMonthCol() int {
	first := -1
	for _, c := range l.Months {
		if first < 0 || c < first {
			first = c
		}
	}
	return first
}

// Layout locates the header row, month columns, category column and used
// column. It returns false when no row within the scan region names at least
// months.MinHeaderMonths distinct months.
func (p *Parser) Layout(g grid.Grid) (Layout, bool) {
	header, found := p.findHeader(g)
	if header < 0 {
		return Layout{}, false
	}
	lay := Layout{
		HeaderRow: header,
		Months:    found,
		PriorYear: make(map[int]bool),
	}
	for _, col := range found {
		if textnorm.HasTokens(g.At(header, col).String(), "LAST", "YEAR") {
			lay.PriorYear[col] = true
		}
	}
	lay.CategoryCol = p.categoryColumn(g, lay)
	lay.UsedCol = p.usedColumn(g, header)
	return lay, true
}

func (p *Parser) findHeader(g grid.Grid) (int, map[int]int) {
	limit := min(p.scanRows, g.Rows())
	for r := 0; r < limit; r++ {
		found := p.months.FindInRow(g[r])
		if len(found) >= months.MinHeaderMonths {
			return r, found
		}
	}
	return -1, nil
}

// categoryColumn picks the label column: the configured hint, else the
// leftmost non-month column before the first month whose header cell has
// text, else the column just left of the first month.
func (p *Parser) categoryColumn(g grid.Grid, lay Layout) int {
	if p.categoryHint >= 0 {
		return p.categoryHint
	}
	first := lay.firstMonthCol()
	isMonth := make(map[int]bool, len(lay.Months))
	for _, c := range lay.Months {
		isMonth[c] = true
	}
	for c := 0; c < first; c++ {
		if isMonth[c] {
			continue
		}
		if textnorm.Normalize(g.At(lay.HeaderRow, c)) != "" {
			return c
		}
	}
	return max(0, first-1)
}

// usedColumn searches the header row, then a few rows around it, then the
// whole scan region for a cell naming the used column.
func (p *Parser) usedColumn(g grid.Grid, header int) int {
	if len(p.usedAliases) == 0 {
		return -1
	}
	if c := p.usedInRows(g, header, header+1); c >= 0 {
		return c
	}
	if c := p.usedInRows(g, max(0, header-usedSearchRadius), min(g.Rows(), header+usedSearchRadius+1)); c >= 0 {
		return c
	}
	return p.usedInRows(g, 0, min(p.scanRows, g.Rows()))
}

func (p *Parser) usedInRows(g grid.Grid, from, to int) int {
	for r := from; r < to; r++ {
		for c := 0; c < g.Cols(); c++ {
			if p.usedAliases[textnorm.Upper(g.At(r, c).String())] {
				return c
			}
		}
	}
	return -1
}
