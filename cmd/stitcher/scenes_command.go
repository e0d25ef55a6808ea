package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"stitcher/internal/manifest"
)

// newScenesCommand lists a title's resolution ladder and scene boundaries
// without downloading anything, so scene numbers can be picked for -s.
func newScenesCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "scenes <title-url>",
		Short: "Show the scenes and resolutions of a title",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
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

			resolver := manifest.NewResolver(session, manifest.WithLogger(logger))
			m, err := resolver.Resolve(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s (%s)\n", m.Title.Name, m.Title.Studio)
			heights := make([]string, 0, len(m.Ladder))
			for _, variant := range m.Ladder {
				heights = append(heights, fmt.Sprintf("%dp", variant.Height))
			}
			fmt.Fprintf(out, "Resolutions: %s\n", strings.Join(heights, ", "))
			fmt.Fprintf(out, "Duration: %s in %d segments\n\n",
				(time.Duration(m.Title.DurationSeconds) * time.Second).String(),
				m.TotalDataSegments,
			)

			if len(m.Title.Scenes) == 0 {
				fmt.Fprintln(out, "No scene boundaries listed")
				return nil
			}

			rows := make([][]string, 0, len(m.Title.Scenes))
			for _, scene := range m.Title.Scenes {
				rows = append(rows, []string{
					fmt.Sprintf("%d", scene.Number),
					(time.Duration(scene.StartSeconds) * time.Second).String(),
					(time.Duration(scene.EndSeconds) * time.Second).String(),
					strings.Join(scene.Performers, ", "),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Scene", "Start", "End", "Performers"},
				rows,
				[]columnAlignment{alignRight, alignRight, alignRight, alignLeft},
			))
			return nil
		},
	}
}
