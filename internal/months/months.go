// Package months maps header-cell spellings to calendar months.
package months

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/cleared-dev/budgetsheet/internal/grid"
	"github.com/cleared-dev/budgetsheet/internal/textnorm"
)

// MinHeaderMonths is how many distinct months a row needs before it is
// accepted as the header row.
const MinHeaderMonths = 3

// ErrConfig marks a malformed month alias map.
var ErrConfig = errors.New("invalid month aliases")

// Resolver is a bidirectional map between month index (1-12) and the
// header spellings accepted for it.
type Resolver struct {
	byAlias map[string]int
	byMonth map[int][]string
}

// New builds a Resolver from a map of month key ("1".."12") to aliases.
// The bare numeral of every key is added as an alias. Aliases that collide
// across two months are rejected.
func New(aliases map[string][]string) (*Resolver, error) {
	if len(aliases) == 0 {
		return nil, fmt.Errorf("%w: no months configured", ErrConfig)
	}

	keys := make([]string, 0, len(aliases))
	for k := range aliases {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	r := &Resolver{
		byAlias: make(map[string]int),
		byMonth: make(map[int][]string),
	}
	for _, k := range keys {
		month, err := strconv.Atoi(strings.TrimSpace(k))
		if err != nil {
			return nil, fmt.Errorf("%w: month key must be 1..12, got %q", ErrConfig, k)
		}
		if month < 1 || month > 12 {
			return nil, fmt.Errorf("%w: month index out of range: %d", ErrConfig, month)
		}
		if _, dup := r.byMonth[month]; dup {
			return nil, fmt.Errorf("%w: month %d configured twice", ErrConfig, month)
		}
		r.byMonth[month] = nil

		for _, alias := range append([]string{strconv.Itoa(month)}, aliases[k]...) {
			key := textnorm.Upper(alias)
			if key == "" {
				continue
			}
			if other, ok := r.byAlias[key]; ok {
				if other != month {
					return nil, fmt.Errorf("%w: alias %q maps to both %d and %d", ErrConfig, alias, other, month)
				}
				continue
			}
			r.byAlias[key] = month
			r.byMonth[month] = append(r.byMonth[month], key)
		}
	}
	return r, nil
}

// Match returns the month for a header spelling.
func (r *Resolver) Match(text string) (int, bool) {
	key := textnorm.Upper(text)
	if key == "" {
		return 0, false
	}
	m, ok := r.byAlias[key]
	return m, ok
}

// MatchCell is Match over a grid cell.
func (r *Resolver) MatchCell(c grid.Cell) (int, bool) {
	return r.Match(c.String())
}

// FindInRow scans one row and returns month -> column for every recognized
// header cell. When a month appears twice the leftmost column wins.
func (r *Resolver) FindInRow(row []grid.Cell) map[int]int {
	out := make(map[int]int)
	for col, c := range row {
		m, ok := r.MatchCell(c)
		if !ok {
			continue
		}
		if _, seen := out[m]; !seen {
			out[m] = col
		}
	}
	return out
}
