package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nao1215/sitemirror/internal/config"
	"github.com/nao1215/sitemirror/internal/database"
	"github.com/nao1215/sitemirror/internal/model"
	"github.com/nao1215/sitemirror/internal/report"
)

// errNoRunSelected is returned when neither a directory nor --run is given.
var errNoRunSelected = errors.New("specify a mirror directory or --run")

// NewReportCmd creates the report command.
func NewReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report [dir]",
		Short: "Summarize a mirror as Markdown",
		Long: `Report renders the manifest of a mirror as a Markdown summary.

The manifest is read from <dir>/metadata.json, or from the history database
when --run is given.

Examples:
  sitemirror report ./example.com
  sitemirror report -o report.md ./example.com
  sitemirror report --run 6f1c0d3e-...`,
		Args: cobra.MaximumNArgs(1),
		RunE: runReportCmd,
	}
	cmd.Flags().StringP("output", "o", "", "Write the report to a file instead of stdout")
	cmd.Flags().String("run", "", "Run ID from the history database")
	cmd.Flags().String("db-dir", "", "History database directory (default: <data dir>/sitemirror)")
	return cmd
}

func runReportCmd(cmd *cobra.Command, args []string) error {
	runID, err := cmd.Flags().GetString("run")
	if err != nil {
		return err
	}
	outputPath, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}

	var m *model.Manifest
	switch {
	case runID != "":
		dbDir, err := historyDir(cmd)
		if err != nil {
			return err
		}
		m, err = manifestFromHistory(cmd, dbDir, runID)
		if err != nil {
			return err
		}
	case len(args) == 1:
		m, err = report.ReadManifest(args[0])
		if err != nil {
			return fmt.Errorf("failed to read manifest: %w", err)
		}
	default:
		return errNoRunSelected
	}

	if outputPath == "" {
		return report.NewMarkdownWriter(cmd.OutOrStdout()).Write(m)
	}
	return writeReportFile(outputPath, m)
}

func manifestFromHistory(cmd *cobra.Command, dbDir, runID string) (*model.Manifest, error) {
	opts := database.DefaultOptions()
	opts.CreateIfNotExists = false
	db, err := database.Open(dbDir, opts)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	m, err := db.GetRunManifest(cmd.Context(), runID)
	if err != nil {
		return nil, fmt.Errorf("failed to load run %s: %w", runID, err)
	}
	return m, nil
}

func writeReportFile(path string, m *model.Manifest) (err error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	f, err := os.Create(path) //nolint:gosec // user-provided output path
	if err != nil {
		return fmt.Errorf("failed to create report file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return report.NewMarkdownWriter(f).Write(m)
}

// historyDir returns --db-dir, or the default history directory.
func historyDir(cmd *cobra.Command) (string, error) {
	dir, err := cmd.Flags().GetString("db-dir")
	if err != nil {
		return "", err
	}
	if dir == "" {
		dir = config.XDGDataDir()
	}
	return dir, nil
}
