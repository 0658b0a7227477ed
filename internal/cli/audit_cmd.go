package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lucasnoah/changegate/internal/audit"
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Query the audit log",
}

var auditTraceCmd = &cobra.Command{
	Use:   "trace RUN_ID",
	Short: "Print a run's full audit trail in order",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openAuditDB()
		if err != nil {
			return err
		}
		defer db.Close()

		events, err := db.Trace(args[0])
		if err != nil {
			return err
		}
		if len(events) == 0 {
			cmd.Printf("No audit events for run %s.\n", args[0])
			return nil
		}
		for _, e := range events {
			detail := ""
			if len(e.Data) > 0 {
				b, err := json.Marshal(e.Data)
				if err == nil {
					detail = "  " + dimStyle.Render(string(b))
				}
			}
			cmd.Printf("%s  %s%s\n", dimStyle.Render(e.CreatedAt), boldStyle.Render(e.Type), detail)
		}
		return nil
	},
}

var auditStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show aggregate run and check statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openAuditDB()
		if err != nil {
			return err
		}
		defer db.Close()

		summary, err := db.QuerySummary()
		if err != nil {
			return err
		}
		cmd.Println(headerStyle.Render("Runs"))
		cmd.Printf("  total %d, completed %d, failed %d\n", summary.TotalRuns, summary.Completed, summary.Failed)
		cmd.Printf("  avg quality %.1f, avg risk %.3f\n", summary.AvgQuality, summary.AvgRisk)

		rates, err := db.QueryDecisionRates()
		if err != nil {
			return err
		}
		if len(rates) > 0 {
			cmd.Println(headerStyle.Render("Decisions"))
			for _, r := range rates {
				cmd.Printf("  %-13s %4d  (%.1f%%)\n", r.Decision, r.Count, r.Pct)
			}
		}

		failures, err := db.QueryCheckFailures()
		if err != nil {
			return err
		}
		if len(failures) > 0 {
			cmd.Println(headerStyle.Render("Checks"))
			for _, f := range failures {
				cmd.Printf("  %-10s %4d runs, %.1f%% failed, avg %.0fms\n",
					f.Check, f.Total, f.FailRate, f.AvgDurationMs)
			}
		}
		return nil
	},
}

func openAuditDB() (*audit.DB, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	db, err := audit.Open(cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("open audit database: %w", err)
	}
	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate audit database: %w", err)
	}
	return db, nil
}

func init() {
	auditCmd.AddCommand(auditTraceCmd)
	auditCmd.AddCommand(auditStatsCmd)
}
