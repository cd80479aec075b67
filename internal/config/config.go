package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/cleared-dev/budgetsheet/internal/grid"
	"github.com/cleared-dev/budgetsheet/internal/model"
	"github.com/cleared-dev/budgetsheet/internal/months"
	"github.com/cleared-dev/budgetsheet/internal/sections"
	"github.com/cleared-dev/budgetsheet/internal/totals"
)

// ErrInvalid marks a configuration that cannot drive a run.
var ErrInvalid = errors.New("invalid config")

// Config is the per-year parsing configuration. It is read from JSON or
// YAML; JSON documents are valid YAML.
type Config struct {
	Year            int                 `yaml:"year,omitempty"`
	Sheet           SheetName           `yaml:"sheet_name,omitempty"`
	HeaderScanRows  int                 `yaml:"header_scan_rows"`
	CategoryColHint *int                `yaml:"category_col_hint,omitempty"`
	Months          map[string][]string `yaml:"months,omitempty"`
	MonthAliases    map[string][]string `yaml:"month_aliases,omitempty"` // alternate key for Months
	SectionPrefixes []SectionRule       `yaml:"section_prefixes,omitempty"`
	SectionRules    []SectionRule       `yaml:"section_rules,omitempty"` // alternate key for SectionPrefixes
	IgnoredPrefixes []string            `yaml:"ignored_prefixes,omitempty"`
	IgnoredExact    []string            `yaml:"ignored_exact,omitempty"`
	UsedColAliases  []string            `yaml:"used_col_aliases,omitempty"`
	UsedColumnAlias []string            `yaml:"used_column_aliases,omitempty"` // alternate key for UsedColAliases
	SavingsKind     string              `yaml:"savings_kind"`
	TransferKinds   []string            `yaml:"transfer_kinds,omitempty"`
	Currency        string              `yaml:"currency"`
	ZeroEpsilon     float64             `yaml:"zero_epsilon"`
	ExpectedTotals  map[string]string   `yaml:"expected_totals,omitempty"`
	MismatchPolicy  string              `yaml:"mismatch_policy"`
	Debug           bool                `yaml:"debug,omitempty"`
	Git             GitConfig           `yaml:"git"`
}

// GitConfig sets the author used when committing output.
type GitConfig struct {
	AuthorName  string `yaml:"author_name"`
	AuthorEmail string `yaml:"author_email"`
}

// SectionRule is one [prefix, kind] pair. Both the two-element list form
// and the {prefix, kind} mapping form are accepted.
type SectionRule struct {
	Prefix string `yaml:"prefix"`
	Kind   string `yaml:"kind"`
}

// UnmarshalYAML accepts ["Income", "income"] or {prefix: Income, kind: income}.
func (r *SectionRule) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.SequenceNode:
		var pair []string
		if err := node.Decode(&pair); err != nil {
			return err
		}
		if len(pair) != 2 {
			return fmt.Errorf("line %d: section rule needs [prefix, kind], got %d items", node.Line, len(pair))
		}
		r.Prefix, r.Kind = pair[0], pair[1]
		return nil
	case yaml.MappingNode:
		type plain SectionRule
		var p plain
		if err := node.Decode(&p); err != nil {
			return err
		}
		*r = SectionRule(p)
		return nil
	default:
		return fmt.Errorf("line %d: section rule must be a list or mapping", node.Line)
	}
}

// MarshalYAML writes the compact [prefix, kind] form.
func (r SectionRule) MarshalYAML() (any, error) {
	return []string{r.Prefix, r.Kind}, nil
}

// SheetName selects sheets: an integer index, a sheet name, or "ALL".
type SheetName struct {
	grid.Selector
}

// UnmarshalYAML decodes an integer index or a string.
func (s *SheetName) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: sheet_name must be an index or a name", node.Line)
	}
	if node.Tag == "!!int" {
		var idx int
		if err := node.Decode(&idx); err != nil {
			return err
		}
		s.Selector = grid.Selector{Index: idx}
		return nil
	}
	name := strings.TrimSpace(node.Value)
	if strings.EqualFold(name, "ALL") {
		s.Selector = grid.Selector{All: true}
		return nil
	}
	s.Selector = grid.Selector{Name: name}
	return nil
}

// MarshalYAML writes the index as an int and everything else as a string.
func (s SheetName) MarshalYAML() (any, error) {
	if !s.All && s.Name == "" {
		return s.Index, nil
	}
	return s.String(), nil
}

// Load reads a config file from disk. Optional fields start from Default;
// required fields (months, section rules) must come from the file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	if strings.EqualFold(filepath.Ext(path), ".json") {
		// YAML rejects tab indentation; JSON never has raw tabs inside strings.
		data = bytes.ReplaceAll(data, []byte("\t"), []byte("  "))
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: parsing config: %v", ErrInvalid, err)
	}
	cfg.mergeAlternateKeys()
	cfg.Currency = strings.TrimSpace(cfg.Currency)
	return cfg, nil
}

// Save writes a Config to a YAML file.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Default returns a Config holding only the optional defaults.
func Default() *Config {
	return &Config{
		Sheet:          SheetName{Selector: grid.FirstSheet()},
		HeaderScanRows: 12,
		UsedColAliases: []string{"USED"},
		SavingsKind:    "savings",
		TransferKinds:  []string{"investments"},
		Currency:       "EUR",
		ZeroEpsilon:    1e-9,
		MismatchPolicy: string(totals.PolicyFail),
		Git: GitConfig{
			AuthorName:  "Budget Sheet",
			AuthorEmail: "budgetsheet@localhost",
		},
	}
}

// Template returns a complete starter config for year with English month
// headers and three example sections.
func Template(year int) *Config {
	cfg := Default()
	cfg.Year = year
	cfg.Months = map[string][]string{
		"1": {"JAN", "JANUARY"}, "2": {"FEB", "FEBRUARY"}, "3": {"MAR", "MARCH"},
		"4": {"APR", "APRIL"}, "5": {"MAY"}, "6": {"JUN", "JUNE"},
		"7": {"JUL", "JULY"}, "8": {"AUG", "AUGUST"}, "9": {"SEP", "SEPTEMBER"},
		"10": {"OCT", "OCTOBER"}, "11": {"NOV", "NOVEMBER"}, "12": {"DEC", "DECEMBER"},
	}
	cfg.SectionPrefixes = []SectionRule{
		{Prefix: "Income", Kind: "income"},
		{Prefix: "Expenses", Kind: "expense"},
		{Prefix: "Savings", Kind: "savings"},
	}
	cfg.IgnoredPrefixes = []string{"SUBTOTAL"}
	return cfg
}

func (c *Config) mergeAlternateKeys() {
	if len(c.Months) == 0 {
		c.Months = c.MonthAliases
	}
	c.MonthAliases = nil
	if len(c.SectionPrefixes) == 0 {
		c.SectionPrefixes = c.SectionRules
	}
	c.SectionRules = nil
	if len(c.UsedColumnAlias) > 0 {
		c.UsedColAliases = c.UsedColumnAlias
	}
	c.UsedColumnAlias = nil
}

// Environment overrides applied by ApplyEnv. A .env file in the working
// directory is loaded into the environment by main before any command runs.
const (
	EnvGitAuthorName  = "BUDGETSHEET_GIT_AUTHOR_NAME"
	EnvGitAuthorEmail = "BUDGETSHEET_GIT_AUTHOR_EMAIL"
	EnvDebug          = "BUDGETSHEET_DEBUG"
)

// ApplyEnv overrides the git identity and debug flag from the environment.
func (c *Config) ApplyEnv() {
	if v := strings.TrimSpace(os.Getenv(EnvGitAuthorName)); v != "" {
		c.Git.AuthorName = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvGitAuthorEmail)); v != "" {
		c.Git.AuthorEmail = v
	}
	if v, err := strconv.ParseBool(os.Getenv(EnvDebug)); err == nil && v {
		c.Debug = true
	}
}

// Rules converts the configured section prefixes for the classifier.
func (c *Config) Rules() []sections.Rule {
	out := make([]sections.Rule, len(c.SectionPrefixes))
	for i, r := range c.SectionPrefixes {
		out[i] = sections.Rule{Prefix: r.Prefix, Kind: r.Kind}
	}
	return out
}

// Epsilon returns the zero threshold as a decimal.
func (c *Config) Epsilon() decimal.Decimal {
	if c.ZeroEpsilon <= 0 {
		return decimal.New(1, -9)
	}
	return decimal.NewFromFloat(c.ZeroEpsilon)
}

// Policy returns the parsed mismatch policy. Call Validate first.
func (c *Config) Policy() totals.Policy {
	p, _ := totals.ParsePolicy(c.MismatchPolicy)
	return p
}

// Expected returns the parsed expected totals. Call Validate first.
func (c *Config) Expected() map[string]decimal.Decimal {
	exp, _ := totals.ParseExpected(c.ExpectedTotals)
	return exp
}

// Validate reports every problem that would stop a run.
func (c *Config) Validate() error {
	var problems []string

	if c.Year <= 0 {
		problems = append(problems, "year is required")
	}
	if c.HeaderScanRows < 1 {
		problems = append(problems, fmt.Sprintf("header_scan_rows must be positive, got %d", c.HeaderScanRows))
	}
	if c.CategoryColHint != nil && *c.CategoryColHint < 0 {
		problems = append(problems, fmt.Sprintf("category_col_hint must not be negative, got %d", *c.CategoryColHint))
	}
	if _, err := months.New(c.Months); err != nil {
		problems = append(problems, err.Error())
	}
	if len(c.SectionPrefixes) == 0 {
		problems = append(problems, "section_prefixes must list at least one [prefix, kind] pair")
	} else if cls, err := sections.New(c.Rules()); err != nil {
		problems = append(problems, err.Error())
	} else {
		problems = append(problems, unknownExpectedKinds(c.ExpectedTotals, cls.Kinds())...)
	}
	if strings.TrimSpace(c.Currency) == "" {
		problems = append(problems, "currency must not be empty")
	}
	if c.ZeroEpsilon < 0 {
		problems = append(problems, "zero_epsilon must not be negative")
	}
	if _, err := totals.ParsePolicy(c.MismatchPolicy); err != nil {
		problems = append(problems, err.Error())
	}
	if _, err := totals.ParseExpected(c.ExpectedTotals); err != nil {
		problems = append(problems, err.Error())
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(problems, "; "))
	}
	return nil
}

// unknownExpectedKinds reports expected_totals keys that no section can
// produce.
func unknownExpectedKinds(expected map[string]string, kinds []string) []string {
	known := map[string]bool{model.KindAll: true}
	for _, k := range kinds {
		known[k] = true
	}
	var keys []string
	for k := range expected {
		if !known[k] {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	problems := make([]string, len(keys))
	for i, k := range keys {
		problems[i] = fmt.Sprintf("expected_totals[%s]: not a configured kind (have %s, %s)", k, strings.Join(kinds, ", "), model.KindAll)
	}
	return problems
}
