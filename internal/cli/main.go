package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/forPelevin/syncsieve/internal/config"
	"github.com/forPelevin/syncsieve/internal/domain/quality"
	"github.com/forPelevin/syncsieve/internal/logging"
)

type app struct {
	out    io.Writer
	errOut io.Writer

	cfg     *config.Config
	log     *slog.Logger
	presets quality.Presets
}

func Main() {
	_ = godotenv.Load() // best-effort: load .env if present

	root := newRootCmd(os.Stdout, os.Stderr)
	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("error: "+err.Error()))
		os.Exit(1)
	}
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	a := &app{out: stdout, errOut: stderr, presets: quality.DefaultPresets()}

	root := &cobra.Command{
		Use:          "syncsieve",
		Short:        "Score lip sync with SyncNet and sort videos into accepted and rejected",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}

	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SilenceErrors = true

	root.PersistentFlags().BoolP("verbose", "v", false, "Debug logging")

	root.AddCommand(
		a.filterCmd(),
		a.chunkCmd(),
		a.prepareCmd(),
		a.infoCmd(),
		a.presetsCmd(),
		a.analyzeCmd(),
		a.compareCmd(),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	if v, _ := cmd.Flags().GetBool("verbose"); v {
		level = slog.LevelDebug
	}
	a.cfg = cfg
	a.log = logging.Setup(a.errOut, level, cfg.Log.Format)
	return nil
}
