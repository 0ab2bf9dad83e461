package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/nao1215/markdown"
	"github.com/spf13/cobra"

	"github.com/nao1215/sitemirror/internal/database"
)

// defaultHistoryLimit is how many runs are listed without --limit.
const defaultHistoryLimit = 20

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [domain]",
		Short: "List previous mirror runs",
		Long: `History lists recorded runs, newest first, as a Markdown table.

With --run, it lists the files saved by that run instead.

Examples:
  sitemirror history
  sitemirror history example.com --limit 5
  sitemirror history --run 6f1c0d3e-...`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}
	cmd.Flags().IntP("limit", "n", defaultHistoryLimit, "Maximum number of runs to list (0 for all)")
	cmd.Flags().String("run", "", "List the files of this run")
	cmd.Flags().String("db-dir", "", "History database directory (default: <data dir>/sitemirror)")
	return cmd
}

func runHistoryCmd(cmd *cobra.Command, args []string) error {
	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}
	runID, err := cmd.Flags().GetString("run")
	if err != nil {
		return err
	}
	dbDir, err := historyDir(cmd)
	if err != nil {
		return err
	}

	opts := database.DefaultOptions()
	opts.CreateIfNotExists = false
	db, err := database.Open(dbDir, opts)
	if err != nil {
		return err
	}
	defer db.Close()

	md := markdown.NewMarkdown(cmd.OutOrStdout())
	if runID != "" {
		files, err := db.GetRunFiles(cmd.Context(), runID)
		if err != nil {
			return fmt.Errorf("failed to load run %s: %w", runID, err)
		}
		rows := make([][]string, 0, len(files))
		for _, f := range files {
			rows = append(rows, []string{f.URL, f.Path, f.Category.String()})
		}
		md.H2("Files of run " + runID)
		md.PlainText("")
		md.Table(markdown.TableSet{Header: []string{"URL", "Path", "Category"}, Rows: rows})
		return md.Build()
	}

	domain := ""
	if len(args) == 1 {
		domain = args[0]
	}
	runs, err := db.ListRuns(cmd.Context(), domain, limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded.")
		return nil
	}

	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		rows = append(rows, []string{
			r.ID,
			r.Domain,
			r.Mode.String(),
			r.StartedAt.Local().Format(time.DateTime),
			r.Duration().Round(time.Second).String(),
			strconv.Itoa(r.PagesProcessed),
			strconv.Itoa(r.Visited),
			string(r.Termination),
		})
	}
	md.H2("Mirror History")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Run", "Domain", "Mode", "Started", "Duration", "Pages", "Visited", "Stopped"},
		Rows:   rows,
	})
	return md.Build()
}
