package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"stitcher/internal/deps"
	"stitcher/internal/job"
	"stitcher/internal/plan"
)

// downloadFlags collects the per-job request knobs shared by the download
// and batch commands.
type downloadFlags struct {
	resolution   int
	forceExact   bool
	scene        int
	scenePadding float64
	startSegment int
	endSegment   int
}

func (f *downloadFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVarP(&f.resolution, "resolution", "r", -1, "Target resolution height in pixels; 0 for lowest (default: highest)")
	cmd.Flags().BoolVar(&f.forceExact, "resolution-force", false, "Fail unless the target resolution is offered exactly")
	cmd.Flags().Float64VarP(&f.scenePadding, "scene-padding", "p", 0, "Scene boundary padding in seconds")
	cmd.Flags().IntVar(&f.startSegment, "start-segment", -1, "Override the start segment index")
	cmd.Flags().IntVar(&f.endSegment, "end-segment", -1, "Override the end segment index")
}

func (f *downloadFlags) request(locator string, scene int) job.Request {
	req := job.Request{
		Locator:         locator,
		SceneNumber:     scene,
		PaddingSeconds:  f.scenePadding,
		RequestedHeight: f.resolution,
		ForceHeight:     f.forceExact,
	}
	if f.resolution < 0 {
		req.RequestedHeight = plan.HeightHighest
	}
	if f.startSegment >= 0 {
		v := f.startSegment
		req.StartSegment = &v
	}
	if f.endSegment >= 0 {
		v := f.endSegment
		req.EndSegment = &v
	}
	return req
}

func newDownloadCommand(ctx *commandContext) *cobra.Command {
	flags := &downloadFlags{}

	cmd := &cobra.Command{
		Use:   "download <title-url>",
		Short: "Download one title",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := deps.Verify(deps.Defaults()); err != nil {
				return err
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

			orchestrator := job.New(cfg, session,
				job.WithLogger(logger),
				job.WithProgress(ctx.buildReporter()),
			)
			result := orchestrator.Run(runCtx, flags.request(args[0], flags.scene))
			fmt.Fprintln(cmd.OutOrStdout(), renderResults(result))
			if !result.Succeeded() {
				return result.Err
			}
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().IntVarP(&flags.scene, "scene", "s", 0, "Download a single scene by its number")
	return cmd
}
