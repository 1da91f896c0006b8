package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/forPelevin/syncsieve/internal/pipeline"
	"github.com/forPelevin/syncsieve/internal/report"
)

func (a *app) presetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "presets",
		Short: "List quality presets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fmt.Fprintln(a.out, renderPresets(a.presets))
			return nil
		},
	}
}

func (a *app) infoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "info <video>",
		Short: "Show duration and the first video and audio streams of a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			info, err := pipeline.Inspect(cmd.Context(), args[0], a.cfg.Tools.FFprobe, nil)
			if err != nil {
				return err
			}
			if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
				return a.printJSON(info)
			}
			fmt.Fprintln(a.out, renderInfo(info))
			return nil
		},
	}
	cmd.Flags().Bool("json", false, "Print JSON instead of text")
	return cmd
}

func (a *app) analyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze <report.json>",
		Short: "Summarize confidence and offset statistics of a run report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := report.Load(args[0])
			if err != nil {
				return err
			}
			st := report.Analyze(s)
			if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
				return a.printJSON(st)
			}
			fmt.Fprintln(a.out, renderAnalysis(s, st))
			return nil
		},
	}
	cmd.Flags().Bool("json", false, "Print JSON instead of text")
	return cmd
}

func (a *app) compareCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare <a.json> <b.json>",
		Short: "Compare two run reports",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ra, err := report.Load(args[0])
			if err != nil {
				return err
			}
			rb, err := report.Load(args[1])
			if err != nil {
				return err
			}
			c := report.Compare(ra, rb)
			if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
				return a.printJSON(c)
			}
			fmt.Fprintln(a.out, renderComparison(c))
			return nil
		},
	}
	cmd.Flags().Bool("json", false, "Print JSON instead of text")
	return cmd
}

func (a *app) printJSON(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
