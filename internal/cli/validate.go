package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/lucasnoah/changegate/internal/diff"
)

var validateNormalize bool

var validateCmd = &cobra.Command{
	Use:   "validate FILE",
	Short: "Validate a unified diff against the configured policy",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read diff file: %w", err)
		}

		validator, err := diff.NewValidator(cfg.Policy, cfg.Review.MaxDiffLines, cfg.Review.MaxFilesPerRun)
		if err != nil {
			return err
		}
		report := validator.Validate(string(data))

		if validateNormalize {
			normalized, err := diff.Normalize(string(data))
			if err != nil {
				return fmt.Errorf("normalize diff: %w", err)
			}
			cmd.Print(normalized)
			if report.Valid {
				return nil
			}
		}

		if report.Valid {
			cmd.Println(okStyle.Render("Diff is valid."))
		} else {
			cmd.Println(errStyle.Render("Diff is invalid."))
		}
		cmd.Printf("Files: %d  Hunks: %d  +%d/-%d\n",
			len(report.FilesAffected), report.Hunks, report.LinesAdded, report.LinesRemoved)
		for _, e := range report.Errors {
			cmd.Printf("  %s %s\n", errStyle.Render("error:"), e)
		}
		for _, w := range report.Warnings {
			cmd.Printf("  %s %s\n", warnStyle.Render("warning:"), w)
		}
		if !report.Valid {
			return fmt.Errorf("diff has %d validation error(s)", len(report.Errors))
		}
		return nil
	},
}

func init() {
	validateCmd.Flags().BoolVar(&validateNormalize, "normalize", false, "print the normalized diff")
}
