package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/forPelevin/syncsieve/internal/cache"
	"github.com/forPelevin/syncsieve/internal/domain/chunks"
	"github.com/forPelevin/syncsieve/internal/domain/quality"
	"github.com/forPelevin/syncsieve/internal/organize"
	"github.com/forPelevin/syncsieve/internal/ports"
	"github.com/forPelevin/syncsieve/internal/ports/adapters/exectool"
	"github.com/forPelevin/syncsieve/internal/ports/adapters/ffmpeg"
	"github.com/forPelevin/syncsieve/internal/ports/adapters/syncnet"
	"github.com/forPelevin/syncsieve/internal/report"
	"github.com/forPelevin/syncsieve/internal/scheduler"
	"github.com/forPelevin/syncsieve/internal/types"
	"github.com/forPelevin/syncsieve/internal/usecase"
)

const (
	ModeDirectory = report.ModeDirectory
	ModeChunk     = report.ModeChunk
)

// Chunk mode split strategies.
const (
	SplitFixed   = "fixed"
	SplitSilence = "silence"
)

type Config struct {
	Mode   string
	Input  string
	OutDir string

	Thresholds types.Thresholds
	Workers    int

	// KeepAll skips the accepted/rejected copies; the report is still written.
	KeepAll   bool
	Visualize bool
	Prefix    string

	// Split is SplitFixed (the default) or SplitSilence.
	Split       string
	ChunkLength float64
	Overlap     float64
	MinChunk    float64
	MaxChunks   int
	// SilenceThreshold (dB) and MinSilence (s) drive SplitSilence.
	SilenceThreshold float64
	MinSilence       float64

	// WorkDir is the base directory for private per-job data. If empty,
	// defaults to ".cache".
	WorkDir      string
	KeepWork     bool
	StageRetries int
	StageTimeout time.Duration

	Python      string
	SyncNetDir  string
	FFmpegPath  string
	FFprobePath string
	// MinTrack and MinFaceSize <= 0 select DetectorDefaults(Mode).
	MinTrack    int
	MinFaceSize int

	RedisURL string
	CacheTTL time.Duration

	Log       *slog.Logger
	OnJobDone func(job types.Job, done, total int)

	// Invoker replaces the process runner; tests use it to fake the tools.
	Invoker ports.Invoker
}

func (c Config) Validate() error {
	if c.Input == "" {
		return fmt.Errorf("input is empty: %w", types.ErrConfiguration)
	}
	fi, err := os.Stat(c.Input)
	if err != nil {
		return fmt.Errorf("stat input: %w", errors.Join(types.ErrConfiguration, err))
	}
	switch c.Mode {
	case ModeDirectory:
		if !fi.IsDir() {
			return fmt.Errorf("input %s is not a directory: %w", c.Input, types.ErrConfiguration)
		}
	case ModeChunk:
		if fi.IsDir() {
			return fmt.Errorf("input %s is a directory, expected a video file: %w", c.Input, types.ErrConfiguration)
		}
		switch c.Split {
		case "", SplitFixed:
			if !finite(c.ChunkLength) || c.ChunkLength <= 0 {
				return fmt.Errorf("chunk length must be > 0: %w", types.ErrConfiguration)
			}
			if !finite(c.Overlap) || c.Overlap < 0 || c.Overlap >= c.ChunkLength {
				return fmt.Errorf("overlap must be in [0, chunk length): %w", types.ErrConfiguration)
			}
		case SplitSilence:
			if !finite(c.SilenceThreshold) {
				return fmt.Errorf("silence threshold must be finite: %w", types.ErrConfiguration)
			}
			if !finite(c.MinSilence) || c.MinSilence <= 0 {
				return fmt.Errorf("min silence must be > 0: %w", types.ErrConfiguration)
			}
		default:
			return fmt.Errorf("unknown split %q: %w", c.Split, types.ErrConfiguration)
		}
		if !finite(c.MinChunk) || c.MinChunk < 0 {
			return fmt.Errorf("min chunk must be >= 0: %w", types.ErrConfiguration)
		}
		if c.MaxChunks < 0 {
			return fmt.Errorf("max chunks must be >= 0: %w", types.ErrConfiguration)
		}
	default:
		return fmt.Errorf("unknown mode %q: %w", c.Mode, types.ErrConfiguration)
	}
	if c.OutDir == "" {
		return fmt.Errorf("output directory is empty: %w", types.ErrConfiguration)
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be >= 1: %w", types.ErrConfiguration)
	}
	if c.StageRetries < 0 {
		return fmt.Errorf("stage retries must be >= 0: %w", types.ErrConfiguration)
	}
	if c.MinTrack < 0 || c.MinFaceSize < 0 {
		return fmt.Errorf("min track and min face size must be >= 0: %w", types.ErrConfiguration)
	}
	return quality.ValidateThresholds(c.Thresholds)
}

func finite(f float64) bool { return !math.IsNaN(f) && !math.IsInf(f, 0) }

// DetectorDefaults is the face detector's minimum track length (frames) and
// minimum face size (pixels) for mode.
func DetectorDefaults(mode string) (minTrack, minFaceSize int) {
	if mode == ModeChunk {
		return syncnet.ChunkMinTrack, syncnet.ChunkMinFaceSize
	}
	return syncnet.DefaultMinTrack, syncnet.DefaultMinFaceSize
}

func (c Config) detector() (minTrack, minFaceSize int) {
	minTrack, minFaceSize = DetectorDefaults(c.Mode)
	if c.MinTrack > 0 {
		minTrack = c.MinTrack
	}
	if c.MinFaceSize > 0 {
		minFaceSize = c.MinFaceSize
	}
	return minTrack, minFaceSize
}

// CheckDependencies verifies the external tools resolve.
func CheckDependencies(c Config) error {
	if err := exectool.Check(c.Python, c.FFmpegPath, c.FFprobePath); err != nil {
		return fmt.Errorf("%w: %w", types.ErrConfiguration, err)
	}
	return nil
}

// Run discovers or plans the jobs, runs them on the worker pool, partitions
// the outputs and writes the report. Only configuration problems and empty
// inputs are returned as errors; job failures are recorded in the summary.
func Run(ctx context.Context, cfg Config) (report.Summary, error) {
	if err := cfg.Validate(); err != nil {
		return report.Summary{}, err
	}
	log := cfg.Log
	if log == nil {
		log = slog.Default()
	}

	// adapters
	runner := cfg.Invoker
	if runner == nil {
		runner = exectool.New()
	}
	media := ffmpeg.New(runner, cfg.FFmpegPath, cfg.FFprobePath)
	minTrack, minFaceSize := cfg.detector()
	sync := syncnet.New(runner, syncnet.Config{
		Python:      cfg.Python,
		Dir:         cfg.SyncNetDir,
		MinTrack:    minTrack,
		MinFaceSize: minFaceSize,
	})

	specs, chunking, err := planJobs(ctx, cfg, media, media)
	if err != nil {
		return report.Summary{}, err
	}
	log.Info("jobs planned", "mode", cfg.Mode, "jobs", len(specs), "workers", cfg.Workers)

	trackCache, closeCache, err := cache.Open(ctx, cfg.RedisURL, cfg.CacheTTL)
	if err != nil {
		return report.Summary{}, err
	}
	defer func() { _ = closeCache() }()

	now := time.Now().UTC()
	baseWork := cfg.WorkDir
	if baseWork == "" {
		baseWork = ".cache"
	}
	workDir := buildRunOutDir(filepath.Join(baseWork, "runs"), cfg.Input, now)
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return report.Summary{}, fmt.Errorf("create work dir: %w", errors.Join(types.ErrIO, err))
	}
	if !cfg.KeepWork {
		defer func() {
			if err := os.RemoveAll(workDir); err != nil {
				log.Warn("cleanup run work dir", "dir", workDir, "err", err)
			}
		}()
	}
	log.Info("workspace", "work_dir", workDir, "out_dir", cfg.OutDir)
	if err := os.MkdirAll(cfg.OutDir, 0o755); err != nil {
		return report.Summary{}, fmt.Errorf("create output dir: %w", errors.Join(types.ErrIO, err))
	}

	uc := usecase.New(usecase.Deps{
		Media: media,
		Sync:  sync,
		Cache: trackCache,
		Log:   log,
	}, usecase.Options{
		Thresholds:   cfg.Thresholds,
		WorkDir:      workDir,
		KeepWork:     cfg.KeepWork,
		OutDir:       cfg.OutDir,
		Visualize:    cfg.Visualize,
		StageRetries: cfg.StageRetries,
		StageTimeout: cfg.StageTimeout,
		CacheParams:  fmt.Sprintf("min_track=%d,min_face_size=%d", minTrack, minFaceSize),
	})

	jobs := scheduler.Run(ctx, specs, cfg.Workers, uc.RunJob, cfg.OnJobDone)
	if skipped := len(specs) - len(jobs); skipped > 0 {
		log.Warn("run cancelled before all jobs were dispatched", "skipped", skipped)
	}

	if !cfg.KeepAll {
		for i := range jobs {
			for _, r := range organize.Failed(organize.Partition(jobs[i:i+1], cfg.OutDir, cfg.Prefix)) {
				jobs[i].CopyErrors = append(jobs[i].CopyErrors, r.Err.Error())
				log.Warn("partition copy failed", "reference", jobs[i].Reference, "err", r.Err)
			}
		}
	}

	records := make([]report.Record, 0, len(jobs))
	for _, j := range jobs {
		records = append(records, report.FromJob(j))
	}
	summary := report.Build(report.Meta{
		RunID:       report.NewRunID(),
		Mode:        cfg.Mode,
		Input:       cfg.Input,
		GeneratedAt: time.Now().UTC(),
		Thresholds:  cfg.Thresholds,
		Chunking:    chunking,
	}, records)

	reportPath := filepath.Join(cfg.OutDir, report.FileName)
	if err := report.Save(reportPath, summary); err != nil {
		return summary, err
	}
	log.Info("report written", "path", reportPath, "accepted", summary.Accepted, "total", summary.Total)
	return summary, nil
}

func planJobs(ctx context.Context, cfg Config, media ports.MediaTool, prober ports.MediaProber) ([]usecase.JobSpec, *report.Chunking, error) {
	if cfg.Mode == ModeDirectory {
		assets, err := Discover(cfg.Input)
		if err != nil {
			return nil, nil, err
		}
		specs := make([]usecase.JobSpec, 0, len(assets))
		for _, a := range assets {
			specs = append(specs, usecase.JobSpec{Reference: a.Name, Source: a.Path})
		}
		return specs, nil, nil
	}

	minChunk := cfg.MinChunk
	if minChunk == 0 {
		minChunk = chunks.DefaultMinLength
	}
	var (
		planned  []types.Chunk
		chunking *report.Chunking
		total    float64
		err      error
	)
	if cfg.Split == SplitSilence {
		planned, total, err = planSilence(ctx, cfg, prober, minChunk)
		chunking = &report.Chunking{Split: SplitSilence, MinChunkLength: minChunk,
			SilenceThreshold: cfg.SilenceThreshold, MinSilence: cfg.MinSilence}
	} else {
		total, err = media.ProbeDuration(ctx, cfg.Input)
		if err != nil {
			return nil, nil, fmt.Errorf("probe %s: %w", cfg.Input, errors.Join(types.ErrConfiguration, err))
		}
		planned, err = chunks.Plan(total, cfg.ChunkLength, cfg.Overlap, minChunk)
		chunking = &report.Chunking{Split: SplitFixed, ChunkLength: cfg.ChunkLength, Overlap: cfg.Overlap, MinChunkLength: minChunk}
	}
	if err != nil {
		return nil, nil, err
	}
	planned = chunks.Limit(planned, cfg.MaxChunks)
	if len(planned) == 0 {
		return nil, nil, fmt.Errorf("video is %.1fs with no segment of at least %.1fs: %w", total, minChunk, types.ErrNoInputs)
	}
	specs := make([]usecase.JobSpec, 0, len(planned))
	for i := range planned {
		c := planned[i]
		specs = append(specs, usecase.JobSpec{Reference: chunks.Reference(c), Source: cfg.Input, Chunk: &c})
	}
	return specs, chunking, nil
}

// planSilence splits the input at the middle of each detected silence.
func planSilence(ctx context.Context, cfg Config, prober ports.MediaProber, minChunk float64) ([]types.Chunk, float64, error) {
	info, err := prober.ProbeInfo(ctx, cfg.Input)
	if err != nil {
		return nil, 0, fmt.Errorf("probe %s: %w", cfg.Input, errors.Join(types.ErrConfiguration, err))
	}
	if info.Audio == nil {
		return nil, 0, fmt.Errorf("%s has no audio stream to split on: %w", cfg.Input, types.ErrConfiguration)
	}
	if info.Duration <= 0 {
		return nil, 0, fmt.Errorf("%s reports no duration: %w", cfg.Input, types.ErrConfiguration)
	}
	silences, err := prober.DetectSilence(ctx, cfg.Input, cfg.SilenceThreshold, cfg.MinSilence)
	if err != nil {
		return nil, 0, fmt.Errorf("detect silence in %s: %w", cfg.Input, errors.Join(types.ErrConfiguration, err))
	}
	planned, err := chunks.PlanBySilence(info.Duration, silences, minChunk)
	return planned, info.Duration, err
}

// Inspect reads the container and stream metadata of a video. A nil
// invoker runs the real ffprobe.
func Inspect(ctx context.Context, path, ffprobePath string, inv ports.Invoker) (types.MediaInfo, error) {
	if _, err := os.Stat(path); err != nil {
		return types.MediaInfo{}, fmt.Errorf("stat input: %w", errors.Join(types.ErrConfiguration, err))
	}
	if inv == nil {
		inv = exectool.New()
	}
	return ffmpeg.New(inv, "", ffprobePath).ProbeInfo(ctx, path)
}

// PrepareConfig drives directory preparation.
type PrepareConfig struct {
	Input       string
	OutDir      string
	ID          string
	Workers     int
	FFmpegPath  string
	FFprobePath string
	Log         *slog.Logger
	Invoker     ports.Invoker
}

func Prepare(ctx context.Context, cfg PrepareConfig) ([]organize.PrepareResult, error) {
	if cfg.OutDir == "" {
		return nil, fmt.Errorf("output directory is empty: %w", types.ErrConfiguration)
	}
	runner := cfg.Invoker
	if runner == nil {
		runner = exectool.New()
	}
	p := organize.Preparer{
		Media:   ffmpeg.New(runner, cfg.FFmpegPath, cfg.FFprobePath),
		Workers: cfg.Workers,
		Log:     cfg.Log,
	}
	return p.Prepare(ctx, cfg.Input, cfg.OutDir, cfg.ID)
}

func buildRunOutDir(outRoot, input string, now time.Time) string {
	name := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	name = normalizePathSegment(name)
	if name == "" {
		name = "input"
	}
	ts := now.UTC().Format("20060102-150405Z")
	runSeed := fmt.Sprintf("%s|%d", input, now.UTC().UnixNano())
	suffix := hash(runSeed)[:6]
	return filepath.Join(outRoot, fmt.Sprintf("%s-%s-%s", name, ts, suffix))
}

func normalizePathSegment(s string) string {
	var b strings.Builder
	prevDash := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
			b.WriteRune(r)
			prevDash = false
		default:
			if !prevDash {
				b.WriteByte('-')
				prevDash = true
			}
		}
	}
	return strings.Trim(b.String(), "-")
}

func hash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])[:12]
}
