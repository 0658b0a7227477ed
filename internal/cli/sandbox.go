package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lucasnoah/changegate/internal/runstore"
	"github.com/lucasnoah/changegate/internal/sandbox"
)

var sandboxRepo string

var sandboxCmd = &cobra.Command{
	Use:   "sandbox",
	Short: "Manage isolated review environments",
}

var sandboxCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a sandbox container seeded with a repository copy",
	RunE: func(cmd *cobra.Command, args []string) error {
		if sandboxRepo == "" {
			return fmt.Errorf("--repo is required")
		}
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		mgr := sandbox.NewManager(&sandbox.ExecDocker{}, cfg.Sandbox)
		id, err := mgr.Create(cmd.Context(), runstore.NewID(), sandboxRepo)
		if err != nil {
			return err
		}
		cmd.Println(id)
		return nil
	},
}

var sandboxListCmd = &cobra.Command{
	Use:   "list",
	Short: "List managed sandbox containers",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		mgr := sandbox.NewManager(&sandbox.ExecDocker{}, cfg.Sandbox)
		infos, err := mgr.List(cmd.Context())
		if err != nil {
			return err
		}
		if len(infos) == 0 {
			cmd.Println("No sandboxes found.")
			return nil
		}
		for _, info := range infos {
			cmd.Printf("%s  %s  %s\n", info.ID, info.Name, dimStyle.Render(info.Status))
		}
		return nil
	},
}

var sandboxCleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Remove all managed sandbox containers",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		mgr := sandbox.NewManager(&sandbox.ExecDocker{}, cfg.Sandbox)
		removed, err := mgr.Cleanup(cmd.Context())
		cmd.Printf("Removed %d sandbox(es).\n", removed)
		return err
	},
}

func init() {
	sandboxCreateCmd.Flags().StringVar(&sandboxRepo, "repo", "", "repository to copy into the sandbox")
	sandboxCmd.AddCommand(sandboxCreateCmd)
	sandboxCmd.AddCommand(sandboxListCmd)
	sandboxCmd.AddCommand(sandboxCleanupCmd)
}
