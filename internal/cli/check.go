package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/lucasnoah/changegate/internal/checks"
)

var checkDir string

var checkCmd = &cobra.Command{
	Use:   "check [NAME]",
	Short: "Run configured checks against a directory",
	Long: `Run one named check, or all configured checks in order when no name is
given. Results are printed but not recorded; use "changegate run" for a
full reviewed run.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		runner := checks.NewRunner(&checks.ExecRunner{})
		names := checks.RunOrder
		if len(args) == 1 {
			if _, ok := cfg.Checks[args[0]]; !ok {
				return fmt.Errorf("check %q not defined in config", args[0])
			}
			names = args[:1]
		}

		failed := 0
		for _, name := range names {
			chk, ok := cfg.Checks[name]
			if !ok {
				continue
			}
			timeout, _ := time.ParseDuration(chk.Timeout)
			result, err := runner.Run(cmd.Context(), checkDir, checks.CheckConfig{
				Name:    name,
				Command: chk.Command,
				Parser:  chk.Parser,
				Timeout: timeout,
			})
			if err != nil {
				return fmt.Errorf("run check %q: %w", name, err)
			}

			status := okStyle.Render("PASS")
			if !result.Passed {
				status = errStyle.Render("FAIL")
				failed++
			}
			cmd.Printf("[%s] %s: %d errors, %d warnings (%dms)\n",
				status, name, result.ErrorCount, result.WarningCount, result.DurationMs)
			for _, f := range result.Findings {
				cmd.Printf("    %s:%d %s\n", f.File, f.Line, f.Message)
			}
		}

		if failed > 0 {
			return fmt.Errorf("%d check(s) failed", failed)
		}
		return nil
	},
}

func init() {
	checkCmd.Flags().StringVar(&checkDir, "dir", ".", "directory to run checks in")
}
