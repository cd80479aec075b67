// Package textnorm canonicalizes spreadsheet cell text and coerces
// locale-formatted amounts into decimals.
package textnorm

import (
	"math"
	"regexp"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
	"golang.org/x/text/unicode/norm"

	"github.com/cleared-dev/budgetsheet/internal/grid"
)

// DefaultEpsilon is the magnitude below which an amount counts as absent.
var DefaultEpsilon = decimal.New(1, -9)

var (
	dashes     = strings.NewReplacer("–", "-", "—", "-")
	hyphenRun  = regexp.MustCompile(`\s*-\s*`)
	spaceRun   = regexp.MustCompile(`\s+`)
	amountText = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)$`)
)

// Normalize returns the canonical text of a cell. Empty cells yield "".
func Normalize(c grid.Cell) string {
	return NormalizeString(c.String())
}

// NormalizeString applies NFKC, maps en/em dashes to hyphens, pads every
// hyphen as " - " and collapses whitespace runs.
func NormalizeString(s string) string {
	t := strings.TrimSpace(s)
	if t == "" {
		return ""
	}
	t = norm.NFKC.String(t)
	t = dashes.Replace(t)
	t = hyphenRun.ReplaceAllString(t, " - ")
	t = spaceRun.ReplaceAllString(t, " ")
	return strings.TrimSpace(t)
}

// Upper is NormalizeString followed by upper-casing; label and header
// comparisons all go through it.
func Upper(s string) string {
	return strings.ToUpper(NormalizeString(s))
}

// Tokens splits normalized text into upper-case alphanumeric tokens.
func Tokens(s string) []string {
	return strings.FieldsFunc(Upper(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// HasTokens reports whether every want token appears in s as a whole token.
func HasTokens(s string, want ...string) bool {
	have := make(map[string]bool)
	for _, t := range Tokens(s) {
		have[t] = true
	}
	for _, w := range want {
		if !have[strings.ToUpper(w)] {
			return false
		}
	}
	return true
}

// CoerceAmount converts a cell into a decimal amount. It returns false for
// empty cells, non-numeric text, NaN or infinite numbers, and magnitudes
// below eps.
//
// Text uses the spreadsheet's locale rules: with both '.' and ',' present the
// dot is a thousands separator and the comma the decimal point; a lone comma
// is the decimal point.
func CoerceAmount(c grid.Cell, eps decimal.Decimal) (decimal.Decimal, bool) {
	if c.IsEmpty() {
		return decimal.Decimal{}, false
	}
	var v decimal.Decimal
	switch c.Kind {
	case grid.CellNumber:
		if math.IsNaN(c.Number) || math.IsInf(c.Number, 0) {
			return decimal.Decimal{}, false
		}
		v = decimal.NewFromFloat(c.Number)
	default:
		d, ok := parseAmountText(c.Text)
		if !ok {
			return decimal.Decimal{}, false
		}
		v = d
	}
	if v.Abs().LessThan(eps) {
		return decimal.Decimal{}, false
	}
	return v, true
}

func parseAmountText(raw string) (decimal.Decimal, bool) {
	s := NormalizeString(raw)
	if s == "" {
		return decimal.Decimal{}, false
	}
	s = strings.Map(func(r rune) rune {
		if unicode.Is(unicode.Sc, r) || unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
	if s == "" {
		return decimal.Decimal{}, false
	}

	hasDot := strings.Contains(s, ".")
	hasComma := strings.Contains(s, ",")
	switch {
	case hasDot && hasComma:
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	case hasComma:
		s = strings.ReplaceAll(s, ",", ".")
	}

	if !amountText.MatchString(s) {
		return decimal.Decimal{}, false
	}
	sign := ""
	if s[0] == '-' || s[0] == '+' {
		if s[0] == '-' {
			sign = "-"
		}
		s = s[1:]
	}
	s = strings.TrimSuffix(s, ".")
	if strings.HasPrefix(s, ".") {
		s = "0" + s
	}
	d, err := decimal.NewFromString(sign + s)
	if err != nil {
		return decimal.Decimal{}, false
	}
	return d, true
}
