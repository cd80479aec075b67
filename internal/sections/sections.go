// Package sections classifies row labels as section banners.
package sections

import (
	"errors"
	"fmt"
	"strings"

	"github.com/cleared-dev/budgetsheet/internal/textnorm"
)

// Terminator is the label prefix that ends the data table. It is checked
// before any configured rule.
const Terminator = "NET OSTANEK"

// ErrConfig marks an unusable rule list.
var ErrConfig = errors.New("invalid section rules")

// Rule maps a label prefix to a transaction kind.
type Rule struct {
	Prefix string
	Kind   string
}

// Match is the result of classifying a section banner.
type Match struct {
	Prefix     string
	Kind       string // empty for the terminator
	Terminator bool
}

// Classifier detects section banners using an ordered rule list.
type Classifier struct {
	rules []Rule // prefixes stored normalized and upper-cased
}

// New builds a Classifier. Rules keep their configured order; the first
// matching prefix wins.
func New(rules []Rule) (*Classifier, error) {
	if len(rules) == 0 {
		return nil, fmt.Errorf("%w: at least one rule is required", ErrConfig)
	}
	c := &Classifier{rules: make([]Rule, 0, len(rules))}
	for i, r := range rules {
		prefix := textnorm.Upper(r.Prefix)
		kind := strings.TrimSpace(r.Kind)
		if prefix == "" {
			return nil, fmt.Errorf("%w: rule %d has an empty prefix", ErrConfig, i)
		}
		if kind == "" {
			return nil, fmt.Errorf("%w: rule %d (%q) has an empty kind", ErrConfig, i, r.Prefix)
		}
		c.rules = append(c.rules, Rule{Prefix: prefix, Kind: kind})
	}
	return c, nil
}

// Detect classifies label. The whole normalized label must start with the
// prefix; substrings elsewhere do not count.
func (c *Classifier) Detect(label string) (Match, bool) {
	t := textnorm.Upper(label)
	if t == "" {
		return Match{}, false
	}
	if strings.HasPrefix(t, Terminator) {
		return Match{Prefix: Terminator, Terminator: true}, true
	}
	for _, r := range c.rules {
		if strings.HasPrefix(t, r.Prefix) {
			return Match{Prefix: r.Prefix, Kind: r.Kind}, true
		}
	}
	return Match{}, false
}

// Kinds returns the distinct configured kinds in rule order.
func (c *Classifier) Kinds() []string {
	seen := make(map[string]bool)
	var out []string
	for _, r := range c.rules {
		if !seen[r.Kind] {
			seen[r.Kind] = true
			out = append(out, r.Kind)
		}
	}
	return out
}
