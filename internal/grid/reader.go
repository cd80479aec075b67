package grid

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

// ErrSheetNotFound is returned when a selector names a sheet the workbook
// does not contain.
var ErrSheetNotFound = errors.New("sheet not found")

// Selector picks which sheets of a workbook to read.
type Selector struct {
	All   bool
	Name  string // used when non-empty and All is false
	Index int    // used when Name is empty and All is false
}

// FirstSheet selects the sheet at index 0.
func FirstSheet() Selector { return Selector{} }

// String renders the selector the way it is written in config.
func (s Selector) String() string {
	switch {
	case s.All:
		return "ALL"
	case s.Name != "":
		return s.Name
	default:
		return fmt.Sprintf("%d", s.Index)
	}
}

// pick returns the sheet names chosen by s, in workbook order.
func (s Selector) pick(names []string) ([]string, error) {
	if s.All {
		return names, nil
	}
	if s.Name != "" {
		for _, n := range names {
			if n == s.Name {
				return []string{n}, nil
			}
		}
		return nil, fmt.Errorf("%w: %q", ErrSheetNotFound, s.Name)
	}
	if s.Index < 0 || s.Index >= len(names) {
		return nil, fmt.Errorf("%w: index %d of %d", ErrSheetNotFound, s.Index, len(names))
	}
	return []string{names[s.Index]}, nil
}

// Reader loads spreadsheet files into grids.
type Reader interface {
	Read(path string, sel Selector) ([]Sheet, error)
	Format() string
}

// Registry holds readers keyed by file extension.
type Registry struct {
	readers map[string]Reader
}

// NewRegistry creates an empty reader registry.
func NewRegistry() *Registry {
	return &Registry{readers: make(map[string]Reader)}
}

// Register adds a reader. Panics on duplicate format.
func (r *Registry) Register(rd Reader) {
	key := strings.ToLower(rd.Format())
	if _, ok := r.readers[key]; ok {
		panic("duplicate reader format: " + key)
	}
	r.readers[key] = rd
}

// Get returns the reader for format, or nil.
func (r *Registry) Get(format string) Reader {
	return r.readers[strings.ToLower(format)]
}

// ForPath returns the reader matching the file extension of path, or nil.
func (r *Registry) ForPath(path string) Reader {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	return r.Get(ext)
}

// Formats returns the registered formats in preference order: xlsx first,
// then the rest alphabetically.
func (r *Registry) Formats() []string {
	var out []string
	if _, ok := r.readers["xlsx"]; ok {
		out = append(out, "xlsx")
	}
	var rest []string
	for k := range r.readers {
		if k != "xlsx" {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	return append(out, rest...)
}

// DefaultRegistry returns a registry with all built-in readers.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(&XLSXReader{})
	r.Register(&CSVReader{})
	return r
}

// ReadFile reads path with the reader registered for its extension.
func (r *Registry) ReadFile(path string, sel Selector) ([]Sheet, error) {
	rd := r.ForPath(path)
	if rd == nil {
		return nil, fmt.Errorf("no reader for %s (supported: %s)", filepath.Base(path), strings.Join(r.Formats(), ", "))
	}
	return rd.Read(path, sel)
}
