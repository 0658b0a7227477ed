package cli

import (
	"github.com/spf13/cobra"
)

var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Audit database management",
}

var dbMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database schema migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openAuditDB()
		if err != nil {
			return err
		}
		defer db.Close()
		cmd.Println("Schema is up to date.")
		return nil
	},
}

var dbResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Drop all audit data and re-apply the schema (destructive!)",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openAuditDB()
		if err != nil {
			return err
		}
		defer db.Close()
		if err := db.Reset(); err != nil {
			return err
		}
		cmd.Println("Database reset.")
		return nil
	},
}

func init() {
	dbCmd.AddCommand(dbMigrateCmd)
	dbCmd.AddCommand(dbResetCmd)
}
