package cli

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lucasnoah/changegate/internal/audit"
	"github.com/lucasnoah/changegate/internal/checks"
	"github.com/lucasnoah/changegate/internal/config"
	"github.com/lucasnoah/changegate/internal/diff"
	"github.com/lucasnoah/changegate/internal/llm"
	"github.com/lucasnoah/changegate/internal/patch"
	"github.com/lucasnoah/changegate/internal/repo"
	"github.com/lucasnoah/changegate/internal/retrieval"
	"github.com/lucasnoah/changegate/internal/run"
	"github.com/lucasnoah/changegate/internal/runstore"
	"github.com/lucasnoah/changegate/internal/sandbox"
)

var (
	runRepo     string
	runTask     string
	runType     string
	runSandbox  bool
	runWorktree bool
	runParallel bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute a full review run for a proposed change",
	RunE: func(cmd *cobra.Command, args []string) error {
		if runRepo == "" || runTask == "" {
			return fmt.Errorf("--repo and --task are required")
		}
		switch runType {
		case "refactor", "bugfix", "review":
		default:
			return fmt.Errorf("invalid --type %q: must be refactor, bugfix, or review", runType)
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		cfg.Review.ParallelChecks = cfg.Review.ParallelChecks || runParallel

		logger, err := newLogger()
		if err != nil {
			return err
		}
		defer logger.Sync()

		repoPath, err := filepath.Abs(runRepo)
		if err != nil {
			return fmt.Errorf("resolve repo path: %w", err)
		}

		store, err := runstore.DefaultStore()
		if err != nil {
			return err
		}

		auditDB, err := audit.Open(cfg.Database.DSN)
		if err != nil {
			return fmt.Errorf("open audit database: %w", err)
		}
		defer auditDB.Close()
		if err := auditDB.Migrate(); err != nil {
			return fmt.Errorf("migrate audit database: %w", err)
		}

		gen, err := llm.NewClient(cfg.LLM)
		if err != nil {
			return err
		}

		// Retrieval is optional: without embedding credentials the pipeline
		// plans from the task description alone.
		var index run.ContextIndex
		if embed, err := retrieval.NewOpenAIEmbedding(cfg.LLM, cfg.Retrieval); err != nil {
			logger.Warn("retrieval disabled", zap.Error(err))
		} else {
			index = retrieval.NewIndex(embed, cfg.Retrieval, logger)
		}

		validator, err := diff.NewValidator(cfg.Policy, cfg.Review.MaxDiffLines, cfg.Review.MaxFilesPerRun)
		if err != nil {
			return fmt.Errorf("build validator: %w", err)
		}

		git := &repo.ExecGit{}
		id := runstore.NewID()
		ctx := cmd.Context()

		// The working copy: the repo itself, or a disposable worktree.
		workdir := repoPath
		if runWorktree {
			wm := repo.NewWorktreeManager(git, repoPath)
			wt, err := wm.Create(id)
			if err != nil {
				return fmt.Errorf("create worktree: %w", err)
			}
			defer func() {
				if err := wm.Remove(id); err != nil {
					logger.Warn("remove worktree", zap.Error(err))
				}
			}()
			workdir = wt.Path
			logger.Info("using worktree", zap.String("path", wt.Path), zap.String("branch", wt.Branch))
		}

		applier, cleanup, err := buildApplier(ctx, cfg, git, validator, workdir, id, logger)
		if err != nil {
			return err
		}
		defer cleanup()

		executor := checks.NewExecutor(checks.NewRunner(&checks.ExecRunner{}), cfg.Checks)

		if _, err := store.Create(id, runTask, runType, repoPath); err != nil {
			return fmt.Errorf("create run: %w", err)
		}

		orch := run.NewOrchestrator(run.Options{
			Config:   cfg,
			Store:    store,
			Audit:    auditDB,
			Gen:      gen,
			Index:    index,
			Applier:  applier,
			Executor: executor,
			Git:      git,
			Indexer:  repo.NewIndexer(cfg.Policy.IgnorePatterns),
			Workdir:  workdir,
			Logger:   logger,
		})

		rec := orch.Execute(ctx, id)
		printRun(cmd, rec, false)
		if rec.Status == runstore.StatusFailed {
			return fmt.Errorf("run %s failed", rec.ID)
		}
		return nil
	},
}

// buildApplier selects the local or sandboxed patch backend. The cleanup
// function tears down any sandbox container it created.
func buildApplier(ctx context.Context, cfg *config.Config, git repo.GitRunner, validator *diff.Validator, workdir, runID string, logger *zap.Logger) (patch.Applier, func(), error) {
	if !runSandbox {
		return patch.NewLocalApplier(git, validator, workdir), func() {}, nil
	}

	mgr := sandbox.NewManager(&sandbox.ExecDocker{}, cfg.Sandbox)
	id, err := mgr.Create(ctx, runID, workdir)
	if err != nil {
		return nil, nil, fmt.Errorf("create sandbox: %w", err)
	}
	cleanup := func() {
		if err := mgr.Remove(context.Background(), id); err != nil {
			logger.Warn("remove sandbox", zap.String("sandbox_id", id), zap.Error(err))
		}
	}
	return patch.NewSandboxApplier(mgr, validator, id, cfg.Sandbox.Workdir), cleanup, nil
}

func init() {
	runCmd.Flags().StringVar(&runRepo, "repo", "", "path to the repository under review")
	runCmd.Flags().StringVar(&runTask, "task", "", "natural-language change description")
	runCmd.Flags().StringVar(&runType, "type", "refactor", "task type: refactor, bugfix, or review")
	runCmd.Flags().BoolVar(&runSandbox, "sandbox", false, "apply the patch inside a docker sandbox")
	runCmd.Flags().BoolVar(&runWorktree, "worktree", false, "operate on a disposable git worktree")
	runCmd.Flags().BoolVar(&runParallel, "parallel-checks", false, "run checks concurrently")
}
