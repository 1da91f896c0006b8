package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/forPelevin/syncsieve/internal/organize"
	"github.com/forPelevin/syncsieve/internal/pipeline"
	"github.com/forPelevin/syncsieve/internal/types"
)

func (a *app) prepareCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prepare <input_dir>",
		Short: "Reorganize an accepted/rejected directory into video_normal, video_bbox, video_cropped and audio",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f := cmd.Flags()
			outDir, _ := f.GetString("out")
			id, _ := f.GetString("id")
			workers, _ := f.GetInt("workers")
			if workers < 1 {
				return fmt.Errorf("--workers must be >= 1: %w", types.ErrConfiguration)
			}
			results, err := pipeline.Prepare(cmd.Context(), pipeline.PrepareConfig{
				Input:       args[0],
				OutDir:      outDir,
				ID:          id,
				Workers:     workers,
				FFmpegPath:  a.cfg.Tools.FFmpeg,
				FFprobePath: a.cfg.Tools.FFprobe,
				Log:         a.log,
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(a.out, renderPrepared(results))
			return nil
		},
	}
	cmd.Flags().String("out", "", "Output directory")
	_ = cmd.MarkFlagRequired("out")
	cmd.Flags().String("id", "", "Name prefix for outputs (default: base name of --out)")
	cmd.Flags().Int("workers", organize.DefaultPrepareWorkers, "Parallel references")
	return cmd
}
