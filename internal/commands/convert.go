package commands

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/cleared-dev/budgetsheet/internal/config"
	"github.com/cleared-dev/budgetsheet/internal/export"
	"github.com/cleared-dev/budgetsheet/internal/extract"
	"github.com/cleared-dev/budgetsheet/internal/gitops"
	"github.com/cleared-dev/budgetsheet/internal/grid"
	"github.com/cleared-dev/budgetsheet/internal/logger"
	"github.com/cleared-dev/budgetsheet/internal/runlog"
	"github.com/cleared-dev/budgetsheet/internal/totals"
)

const (
	inputDir  = "input"
	outputDir = "output"
)

type convertOptions struct {
	base   string
	input  string
	config string
	output string
	format string
	debug   bool
	logJSON bool
	commit  bool
}

// inputPath returns the spreadsheet for year: the .xlsx when present, else
// the .csv, else the (missing) .xlsx path.
func inputPath(base string, year int) string {
	return firstExisting(filepath.Join(base, inputDir, strconv.Itoa(year)), ".xlsx", ".csv")
}

// configPath returns the config for year: .json, else .yaml, else .yml.
func configPath(base string, year int) string {
	return firstExisting(filepath.Join(base, inputDir, strconv.Itoa(year)), ".json", ".yaml", ".yml")
}

func firstExisting(stem string, exts ...string) string {
	for _, ext := range exts {
		if fileExists(stem + ext) {
			return stem + ext
		}
	}
	return stem + exts[0]
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func runConvert(out, errOut io.Writer, year int, opts convertOptions) error {
	format, err := export.ParseFormat(opts.format)
	if err != nil {
		return exitError(ExitUsage, err)
	}

	input := opts.input
	if input == "" {
		input = inputPath(opts.base, year)
	}
	if !fileExists(input) {
		return exitErrorf(ExitMissingInput, "input spreadsheet not found: %s", input)
	}

	cfgPath := opts.config
	if cfgPath == "" {
		cfgPath = configPath(opts.base, year)
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return exitErrorf(ExitMissingConf, "config not found: %s", cfgPath)
		}
		return exitError(ExitParse, err)
	}
	cfg.ApplyEnv()
	cfg.Year = year
	cfg.Debug = cfg.Debug || opts.debug

	log := logger.New(errOut, cfg.Debug)
	if opts.logJSON {
		log = logger.NewJSON(errOut, cfg.Debug)
	}

	parser, err := extract.New(cfg, extract.WithLogger(log))
	if err != nil {
		return exitError(ExitParse, err)
	}

	sheets, err := grid.DefaultRegistry().ReadFile(input, cfg.Sheet.Selector)
	if err != nil {
		return exitError(ExitParse, fmt.Errorf("reading %s: %w", input, err))
	}
	log.Info().Str("input", input).Int("sheets", len(sheets)).Msg("loaded workbook")

	records := parser.ParseSheets(sheets)

	entry := runlog.Entry{
		Timestamp: time.Now().UTC(),
		RunID:     uuid.NewString(),
		Year:      year,
		Sheets:    sheetNames(sheets),
		Records:   len(records),
	}
	record := func(status runlog.Status, details string) {
		entry.Status = status
		entry.Details = details
		if err := runlog.Append(opts.base, entry); err != nil {
			log.Warn().Err(err).Msg("appending run log")
		}
	}

	if len(records) == 0 {
		record(runlog.StatusNoRecords, "")
		return exitErrorf(ExitNoRecords, "no records extracted from %s", input)
	}

	if verrs := export.ValidateRecords(records, year, cfg.Currency); len(verrs) > 0 {
		for _, v := range verrs {
			log.Error().Msg(v.Error())
		}
		record(runlog.StatusInvalid, verrs[0].Error())
		return exitErrorf(ExitParse, "%d record validation errors", len(verrs))
	}

	actual := totals.Aggregate(records)
	rep := totals.Reconcile(actual, cfg.Expected(), cfg.Policy())
	for _, line := range rep.Summary() {
		fmt.Fprintln(out, line)
	}

	status := runlog.StatusOK
	if !rep.OK() {
		status = runlog.StatusWarned
	}
	if !rep.Proceed {
		if !rep.OnlyMismatched(cfg.SavingsKind) {
			record(runlog.StatusAborted, strings.Join(rep.Mismatched, ";"))
			return exitErrorf(ExitMismatch, "totals mismatch on %s", strings.Join(rep.Mismatched, ", "))
		}
		log.Warn().Str("kind", cfg.SavingsKind).Msg("only the savings total mismatched; continuing")
	}

	output := opts.output
	if output == "" {
		output = filepath.Join(opts.base, outputDir, strconv.Itoa(year)+"."+string(format))
	}
	payload := export.NewPayload(entry.RunID, year, cfg.Currency, entry.Timestamp, records, cfg.TransferKinds...)
	if err := export.Write(output, format, payload, records); err != nil {
		record(runlog.StatusWriteFailed, err.Error())
		return exitError(ExitWrite, err)
	}
	record(status, strings.Join(rep.Mismatched, ";"))

	logTotals(log, actual)
	fmt.Fprintf(out, "Wrote %d records to %s\n", len(records), output)

	if opts.commit {
		commitOutput(out, log, opts.base, year, len(records), cfg.Git, output)
	}
	return nil
}

func commitOutput(out io.Writer, log zerolog.Logger, base string, year, n int, git config.GitConfig, output string) {
	if !gitops.IsRepo(base) {
		log.Warn().Str("base", base).Msg("--commit given but base is not a git repository")
		return
	}
	msg := fmt.Sprintf("convert: %d (%d records)", year, n)
	author := gitops.Author{Name: git.AuthorName, Email: git.AuthorEmail}

	abs := func(p string) string {
		if a, err := filepath.Abs(p); err == nil {
			return a
		}
		return p
	}
	root := abs(base)
	hash, err := gitops.Commit(root, msg, author, abs(output), abs(runlog.Path(base)))
	switch {
	case errors.Is(err, gitops.ErrNothingToCommit):
		log.Info().Msg("output unchanged; nothing to commit")
	case err != nil:
		log.Warn().Err(err).Msg("committing output")
	default:
		fmt.Fprintf(out, "Committed %s\n", hash)
	}
}

func logTotals(log zerolog.Logger, t totals.Totals) {
	for _, k := range t.Keys() {
		log.Info().Str("kind", k).Str("total", t.Get(k).StringFixed(2)).Msg("total")
	}
}

func sheetNames(sheets []grid.Sheet) []string {
	names := make([]string, len(sheets))
	for i, s := range sheets {
		names[i] = s.Name
	}
	return names
}
