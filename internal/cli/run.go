package cli

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/forPelevin/syncsieve/internal/config"
	"github.com/forPelevin/syncsieve/internal/domain/chunks"
	"github.com/forPelevin/syncsieve/internal/domain/quality"
	"github.com/forPelevin/syncsieve/internal/pipeline"
	"github.com/forPelevin/syncsieve/internal/report"
	"github.com/forPelevin/syncsieve/internal/types"
)

func (a *app) filterCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "filter <input_dir>",
		Short: "Score every video in a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runBatch(cmd, pipeline.ModeDirectory, args[0])
		},
	}
	addBatchFlags(cmd, pipeline.ModeDirectory, 5.0, 3)
	return cmd
}

func (a *app) chunkCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chunk <video>",
		Short: "Split one long video into chunks (overlapping windows or at silences) and score each",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runBatch(cmd, pipeline.ModeChunk, args[0])
		},
	}
	addBatchFlags(cmd, pipeline.ModeChunk, 2.0, 10)
	f := cmd.Flags()
	f.String("split", pipeline.SplitFixed, "How to cut the video: fixed (overlapping windows) or silence")
	f.Float64("chunk-length", 30, "Chunk length in seconds (fixed split)")
	f.Float64("overlap", 5, "Overlap between consecutive chunks in seconds (fixed split)")
	f.Float64("min-chunk", chunks.DefaultMinLength, "Drop chunks shorter than this many seconds")
	f.Int("max-chunks", 0, "Process at most N chunks (0 = all)")
	f.Float64("silence-threshold", chunks.DefaultSilenceThreshold, "Noise floor in dB below which audio counts as silence (silence split)")
	f.Float64("min-silence", chunks.DefaultMinSilence, "Shortest silence in seconds that splits the video (silence split)")
	return cmd
}

func addBatchFlags(cmd *cobra.Command, mode string, minConf float64, maxOffset int) {
	f := cmd.Flags()
	minTrack, minFaceSize := pipeline.DetectorDefaults(mode)
	f.String("out", "", "Output directory")
	_ = cmd.MarkFlagRequired("out")
	f.String("preset", "", "Quality preset (see `syncsieve presets`)")
	f.Float64("min-confidence", minConf, "Minimum SyncNet confidence")
	f.Int("max-abs-offset", maxOffset, "Maximum absolute offset in frames")
	f.Int("workers", 0, "Parallel jobs (default SYNCSIEVE_WORKERS or 2)")
	f.Bool("keep-all", false, "Only write the report, do not copy into accepted/rejected")
	f.Bool("no-visualize", false, "Skip the bounding-box visualization")
	f.String("prefix", "", "Prefix for copied file names")
	f.Bool("skip-checks", false, "Do not check that python, ffmpeg and ffprobe resolve")
	f.Int("min-track", minTrack, "Shortest face track in frames; SYNCSIEVE_MIN_TRACK replaces the default")
	f.Int("min-face-size", minFaceSize, "Smallest face in pixels; SYNCSIEVE_MIN_FACE_SIZE replaces the default")

	// Hidden debugging flag
	f.Bool("keep-work", false, "Keep per-job SyncNet work directories")
	_ = f.MarkHidden("keep-work")
}

// resolveThresholds applies --preset and lets explicit threshold flags
// override it. Anything but a plain preset is labelled "custom".
func resolveThresholds(cmd *cobra.Command, presets quality.Presets) (types.Thresholds, error) {
	f := cmd.Flags()
	minConf, _ := f.GetFloat64("min-confidence")
	maxOff, _ := f.GetInt("max-abs-offset")
	th := types.Thresholds{Preset: "custom", MinConfidence: minConf, MaxAbsOffset: maxOff}

	if name, _ := f.GetString("preset"); name != "" {
		p, err := presets.Resolve(name)
		if err != nil {
			return types.Thresholds{}, err
		}
		th = p
		if f.Changed("min-confidence") {
			th.MinConfidence = minConf
			th.Preset = "custom"
		}
		if f.Changed("max-abs-offset") {
			th.MaxAbsOffset = maxOff
			th.Preset = "custom"
		}
	}
	if err := quality.ValidateThresholds(th); err != nil {
		return types.Thresholds{}, err
	}
	return th, nil
}

// resolveDetector picks the face detector limits: an explicit flag, then
// the environment, then the command default.
func resolveDetector(cmd *cobra.Command, tools config.ToolsConfig) (minTrack, minFaceSize int) {
	f := cmd.Flags()
	minTrack, _ = f.GetInt("min-track")
	minFaceSize, _ = f.GetInt("min-face-size")
	if !f.Changed("min-track") && tools.MinTrack > 0 {
		minTrack = tools.MinTrack
	}
	if !f.Changed("min-face-size") && tools.MinFaceSize > 0 {
		minFaceSize = tools.MinFaceSize
	}
	return minTrack, minFaceSize
}

func (a *app) runBatch(cmd *cobra.Command, mode, input string) error {
	th, err := resolveThresholds(cmd, a.presets)
	if err != nil {
		return err
	}
	f := cmd.Flags()
	outDir, _ := f.GetString("out")
	workers, _ := f.GetInt("workers")
	if !f.Changed("workers") {
		workers = a.cfg.Run.Workers
	}
	keepAll, _ := f.GetBool("keep-all")
	noVis, _ := f.GetBool("no-visualize")
	prefix, _ := f.GetString("prefix")
	keepWork, _ := f.GetBool("keep-work")
	skipChecks, _ := f.GetBool("skip-checks")
	minTrack, minFaceSize := resolveDetector(cmd, a.cfg.Tools)
	if minTrack < 1 || minFaceSize < 1 {
		return fmt.Errorf("--min-track and --min-face-size must be >= 1: %w", types.ErrConfiguration)
	}

	absIn, err := filepath.Abs(input)
	if err != nil {
		return err
	}

	cfg := pipeline.Config{
		Mode:       mode,
		Input:      absIn,
		OutDir:     outDir,
		Thresholds: th,
		Workers:    workers,
		KeepAll:    keepAll,
		Visualize:  !noVis,
		Prefix:     prefix,

		WorkDir:      a.cfg.Run.WorkDir,
		KeepWork:     keepWork,
		StageRetries: a.cfg.Run.StageRetries,
		StageTimeout: a.cfg.Run.StageTimeout,

		Python:      a.cfg.Tools.Python,
		SyncNetDir:  a.cfg.Tools.SyncNetDir,
		FFmpegPath:  a.cfg.Tools.FFmpeg,
		FFprobePath: a.cfg.Tools.FFprobe,
		MinTrack:    minTrack,
		MinFaceSize: minFaceSize,

		RedisURL: a.cfg.Redis.URL,
		CacheTTL: a.cfg.Redis.TTL,

		Log: a.log,
	}
	if mode == pipeline.ModeChunk {
		cfg.ChunkLength, _ = f.GetFloat64("chunk-length")
		cfg.Overlap, _ = f.GetFloat64("overlap")
		cfg.MinChunk, _ = f.GetFloat64("min-chunk")
		cfg.MaxChunks, _ = f.GetInt("max-chunks")
		cfg.Split, _ = f.GetString("split")
		cfg.SilenceThreshold, _ = f.GetFloat64("silence-threshold")
		cfg.MinSilence, _ = f.GetFloat64("min-silence")
	}
	cfg.OnJobDone = func(job types.Job, done, total int) {
		a.log.Info("job done",
			"reference", job.Reference,
			"status", job.State,
			"progress", fmt.Sprintf("%d/%d", done, total),
		)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if !skipChecks {
		if err := pipeline.CheckDependencies(cfg); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := pipeline.Run(ctx, cfg)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, renderSummary(s, filepath.Join(outDir, report.FileName)))
	return nil
}
