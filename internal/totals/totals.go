// Package totals sums records per kind and reconciles the sums against
// externally known totals.
package totals

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/budgetsheet/internal/model"
)

// Policy controls what a reconciliation mismatch does to the run.
type Policy string

const (
	PolicyFail Policy = "fail"
	PolicyWarn Policy = "warn"
)

// ParsePolicy validates a configured policy name. Empty means fail.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(strings.ToLower(strings.TrimSpace(s))) {
	case "", PolicyFail:
		return PolicyFail, nil
	case PolicyWarn:
		return PolicyWarn, nil
	default:
		return "", fmt.Errorf("mismatch_policy must be %q or %q, got %q", PolicyFail, PolicyWarn, s)
	}
}

// ParseExpected parses configured expected totals ({kind|ALL: "123.45"}).
func ParseExpected(raw map[string]string) (map[string]decimal.Decimal, error) {
	out := make(map[string]decimal.Decimal, len(raw))
	for k, v := range raw {
		d, err := decimal.NewFromString(strings.TrimSpace(v))
		if err != nil {
			return nil, fmt.Errorf("expected_totals[%s]: parsing %q: %w", k, v, err)
		}
		out[k] = d
	}
	return out, nil
}

// Totals maps transaction kind to its sum, plus model.KindAll.
type Totals map[string]decimal.Decimal

// Aggregate sums amounts per kind in exact decimal arithmetic. The running
// sums are re-rounded to cents half-up after every addition.
func Aggregate(records []model.Record) Totals {
	t := Totals{model.KindAll: decimal.Zero}
	for _, r := range records {
		t[r.Kind] = t[r.Kind].Add(r.Amount).Round(2)
		t[model.KindAll] = t[model.KindAll].Add(r.Amount).Round(2)
	}
	return t
}

// Get returns the total for key, zero when absent.
func (t Totals) Get(key string) decimal.Decimal {
	return t[key]
}

// Keys returns the kinds in sorted order with ALL last.
func (t Totals) Keys() []string {
	keys := make([]string, 0, len(t))
	for k := range t {
		if k != model.KindAll {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	if _, ok := t[model.KindAll]; ok {
		keys = append(keys, model.KindAll)
	}
	return keys
}

// Strings renders every total as a fixed 2-decimal string.
func (t Totals) Strings() map[string]string {
	out := make(map[string]string, len(t))
	for k, v := range t {
		out[k] = v.StringFixed(2)
	}
	return out
}

// Line is one per-key comparison in a reconciliation report.
type Line struct {
	Key      string
	Expected decimal.Decimal
	Actual   decimal.Decimal
	OK       bool
}

func (l Line) String() string {
	status := "OK"
	if !l.OK {
		status = "MISMATCH"
	}
	return fmt.Sprintf("%-8s %s expected=%s actual=%s diff=%s",
		status, l.Key, l.Expected.StringFixed(2), l.Actual.StringFixed(2), l.Actual.Sub(l.Expected).StringFixed(2))
}

// Report is the outcome of Reconcile.
type Report struct {
	Policy     Policy
	Lines      []Line
	Mismatched []string
	Proceed    bool
	Note       string // set when there was nothing to compare
}

// OK reports whether every compared key matched.
func (r Report) OK() bool { return len(r.Mismatched) == 0 }

// OnlyMismatched reports whether key is the one and only mismatched key.
func (r Report) OnlyMismatched(key string) bool {
	return len(r.Mismatched) == 1 && r.Mismatched[0] == key
}

// Summary renders the report as printable lines.
func (r Report) Summary() []string {
	if r.Note != "" {
		return []string{r.Note}
	}
	out := make([]string, 0, len(r.Lines)+1)
	for _, l := range r.Lines {
		out = append(out, l.String())
	}
	switch {
	case r.OK():
		out = append(out, "reconciliation passed")
	case r.Proceed:
		out = append(out, fmt.Sprintf("reconciliation mismatch on %s (policy %s): continuing", strings.Join(r.Mismatched, ", "), r.Policy))
	default:
		out = append(out, fmt.Sprintf("reconciliation mismatch on %s (policy %s): aborting", strings.Join(r.Mismatched, ", "), r.Policy))
	}
	return out
}

// Reconcile compares actual totals against expected ones with exact decimal
// equality. A key missing from actual counts as zero. With no expectations
// the report passes trivially.
func Reconcile(actual Totals, expected map[string]decimal.Decimal, policy Policy) Report {
	rep := Report{Policy: policy, Proceed: true}
	if len(expected) == 0 {
		rep.Note = "no expected totals configured; reconciliation skipped"
		return rep
	}

	keys := make([]string, 0, len(expected))
	for k := range expected {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		want := expected[k]
		got := actual.Get(k)
		ok := got.Equal(want)
		rep.Lines = append(rep.Lines, Line{Key: k, Expected: want, Actual: got, OK: ok})
		if !ok {
			rep.Mismatched = append(rep.Mismatched, k)
		}
	}
	if !rep.OK() && policy != PolicyWarn {
		rep.Proceed = false
	}
	return rep
}
