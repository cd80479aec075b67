package commands

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/budgetsheet/internal/config"
	"github.com/cleared-dev/budgetsheet/internal/gitops"
)

func newInitCommand() *cobra.Command {
	var base string
	var withGit bool
	var force bool

	cmd := &cobra.Command{
		Use:   "init <year>",
		Short: "Create the workspace layout and a starter config for a year",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			year, err := parseYear(args[0])
			if err != nil {
				return err
			}
			absBase, err := filepath.Abs(base)
			if err != nil {
				return fmt.Errorf("resolving path: %w", err)
			}
			return runInit(cmd.OutOrStdout(), absBase, year, withGit, force)
		},
	}

	cmd.Flags().StringVar(&base, "base", ".", "workspace directory")
	cmd.Flags().BoolVar(&withGit, "git", false, "initialize a git repository and commit the scaffold")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config")

	return cmd
}

func runInit(out io.Writer, dir string, year int, withGit, force bool) error {
	for _, d := range []string{inputDir, outputDir, "logs"} {
		if err := os.MkdirAll(filepath.Join(dir, d), 0o755); err != nil {
			return fmt.Errorf("creating directory %s: %w", d, err)
		}
	}

	cfgPath := filepath.Join(dir, inputDir, strconv.Itoa(year)+".yaml")
	if fileExists(cfgPath) && !force {
		return fmt.Errorf("config %s already exists (use --force to overwrite)", cfgPath)
	}
	cfg := config.Template(year)
	if err := config.Save(cfgPath, cfg); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	for _, keep := range []string{inputDir, outputDir, "logs"} {
		path := filepath.Join(dir, keep, ".gitkeep")
		if err := os.WriteFile(path, []byte{}, 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
	}

	if withGit {
		cfg.ApplyEnv()
		if !gitops.IsRepo(dir) {
			if err := gitops.Init(dir); err != nil {
				return fmt.Errorf("git init: %w", err)
			}
		}
		author := gitops.Author{Name: cfg.Git.AuthorName, Email: cfg.Git.AuthorEmail}
		hash, err := gitops.Commit(dir, fmt.Sprintf("init: budget %d", year), author)
		if err != nil {
			return fmt.Errorf("initial commit: %w", err)
		}
		fmt.Fprintf(out, "Initialized budget workspace for %d at %s (%s)\n", year, dir, hash)
		return nil
	}

	fmt.Fprintf(out, "Initialized budget workspace for %d at %s\n", year, dir)
	return nil
}
