package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lucasnoah/changegate/internal/checks"
	"github.com/lucasnoah/changegate/internal/runstore"
)

var runsStatusFilter string

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect stored run records",
}

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List runs, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := runstore.DefaultStore()
		if err != nil {
			return err
		}
		records, err := store.List(runstore.Status(runsStatusFilter))
		if err != nil {
			return err
		}
		if len(records) == 0 {
			cmd.Println("No runs found.")
			return nil
		}
		for _, rec := range records {
			cmd.Printf("%s  %s  %s  %s  %s\n",
				rec.ID,
				renderStatus(string(rec.Status)),
				renderDecision(rec.Decision),
				dimStyle.Render(rec.CreatedAt),
				truncateTask(rec.Task, 60),
			)
		}
		return nil
	},
}

var runsShowCmd = &cobra.Command{
	Use:   "show ID",
	Short: "Show one run in full, including its diff and explanation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := runstore.DefaultStore()
		if err != nil {
			return err
		}
		rec, err := store.Get(args[0])
		if err != nil {
			return err
		}
		printRun(cmd, rec, true)
		return nil
	},
}

// printRun renders a run record. Detailed mode adds the diff, per-check
// results, and the explanation.
func printRun(cmd *cobra.Command, rec *runstore.Record, detailed bool) {
	out := cmd.OutOrStdout()

	fmt.Fprintln(out, headerStyle.Render("Run "+rec.ID))
	fmt.Fprintf(out, "%s %s\n", dimStyle.Render("Task:"), rec.Task)
	fmt.Fprintf(out, "%s %s\n", dimStyle.Render("Type:"), rec.TaskType)
	fmt.Fprintf(out, "%s %s\n", dimStyle.Render("Repo:"), rec.RepoPath)
	fmt.Fprintf(out, "%s %s  %s %s\n",
		dimStyle.Render("Status:"), renderStatus(string(rec.Status)),
		dimStyle.Render("Stage:"), rec.Stage,
	)
	fmt.Fprintf(out, "%s %s\n", dimStyle.Render("Decision:"), renderDecision(rec.Decision))

	if rec.QualityScores != nil {
		fmt.Fprintf(out, "%s  %s\n",
			renderScore("Quality:", rec.QualityScores.Quality, "%.2f"),
			renderScore("Risk:", riskScore(rec), "%.3f"),
		)
	}
	for _, reason := range rec.Reasons {
		fmt.Fprintf(out, "  - %s\n", reason)
	}
	if len(rec.Errors) > 0 {
		fmt.Fprintln(out, errStyle.Render("Errors:"))
		for _, e := range rec.Errors {
			fmt.Fprintf(out, "  - %s\n", e)
		}
	}

	if !detailed {
		return
	}

	if len(rec.CheckResults) > 0 {
		fmt.Fprintln(out, headerStyle.Render("Checks"))
		fmt.Fprint(out, checks.Format(rec.CheckResults, checks.RunOrder))
	}
	if rec.Diff != "" {
		fmt.Fprintln(out, headerStyle.Render("Diff"))
		fmt.Fprint(out, renderDiff(rec.Diff))
	}
	if rec.Explanation != "" {
		fmt.Fprintln(out, headerStyle.Render("Explanation"))
		fmt.Fprintln(out, rec.Explanation)
	}
}

func riskScore(rec *runstore.Record) float64 {
	if rec.Risk == nil {
		return 0
	}
	return rec.Risk.Score
}

func truncateTask(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}

func init() {
	runsListCmd.Flags().StringVar(&runsStatusFilter, "status", "", "filter by status (pending, running, completed, failed)")
	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)
}
