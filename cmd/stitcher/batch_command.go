package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"stitcher/internal/batch"
	"stitcher/internal/deps"
	"stitcher/internal/job"
)

func newBatchCommand(ctx *commandContext) *cobra.Command {
	flags := &downloadFlags{}

	cmd := &cobra.Command{
		Use:   "batch <list-file>",
		Short: "Download every title in a list file",
		Long: `Download every title named in a list file.

Each line holds a title URL, optionally followed by |N to download only
scene N. Blank lines and lines starting with # are skipped.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := deps.Verify(deps.Defaults()); err != nil {
				return err
			}

			file, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open batch list: %w", err)
			}
			entries, parseErr := batch.ParseList(file)
			file.Close()
			if parseErr != nil {
				return parseErr
			}
			if len(entries) == 0 {
				return fmt.Errorf("batch list %s names no titles", args[0])
			}

			logger, err := ctx.buildLogger(cfg)
			if err != nil {
				return err
			}
			session, err := ctx.buildSession(cfg)
			if err != nil {
				return err
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			// Per-stream progress bars interleave badly across parallel
			// jobs, so batch runs rely on the log output instead.
			orchestrator := job.New(cfg, session, job.WithLogger(logger))

			requests := make([]job.Request, 0, len(entries))
			for _, entry := range entries {
				requests = append(requests, flags.request(entry.Locator, entry.Scene))
			}

			scheduler := batch.NewScheduler(orchestrator, cfg.Download.BatchWorkers, batch.WithLogger(logger))
			summary := scheduler.Run(runCtx, requests)

			fmt.Fprintln(cmd.OutOrStdout(), renderResults(summary.Results...))
			if !summary.AllSucceeded() {
				return fmt.Errorf("%d of %d downloads failed", summary.Failed(), len(summary.Results))
			}
			return nil
		},
	}

	flags.register(cmd)
	return cmd
}
