package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/forPelevin/syncsieve/internal/cache"
	"github.com/forPelevin/syncsieve/internal/domain/quality"
	"github.com/forPelevin/syncsieve/internal/domain/tracks"
	"github.com/forPelevin/syncsieve/internal/logging"
	"github.com/forPelevin/syncsieve/internal/organize"
	"github.com/forPelevin/syncsieve/internal/ports"
	"github.com/forPelevin/syncsieve/internal/types"
)

type Deps struct {
	Media ports.MediaTool
	Sync  ports.SyncTool
	// Cache is optional.
	Cache ports.TrackCache
	Log   *slog.Logger
	Now   func() time.Time
}

type Options struct {
	Thresholds types.Thresholds

	// WorkDir holds one private data directory per job, removed when the job
	// ends unless KeepWork is set.
	WorkDir  string
	KeepWork bool

	// OutDir receives syncnet_outputs/<ref> for every scored job.
	OutDir string
	// ChunkDir receives cut chunks and their audio. Defaults to OutDir/chunks.
	ChunkDir string

	Visualize bool

	StageRetries int
	// StageTimeout bounds each external stage. Zero means no limit.
	StageTimeout time.Duration

	// CacheParams is folded into cache keys; change it when stage
	// parameters change.
	CacheParams string
}

// JobSpec describes one unit of work: a whole video, or a chunk of one when
// Chunk is set.
type JobSpec struct {
	Reference string
	Source    string
	Chunk     *types.Chunk
}

type Usecase struct {
	d Deps
	o Options
}

func New(d Deps, o Options) Usecase {
	if d.Log == nil {
		d.Log = slog.Default()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Cache == nil {
		d.Cache = cache.Nop{}
	}
	if o.ChunkDir == "" && o.OutDir != "" {
		o.ChunkDir = filepath.Join(o.OutDir, "chunks")
	}
	return Usecase{d: d, o: o}
}

// RunJob drives one job through its stages and returns the finished record.
// Failures are recorded on the job; RunJob never returns an error.
//
// Stages run under a context detached from ctx's cancellation so a batch
// cancel lets running jobs finish.
func (u Usecase) RunJob(ctx context.Context, spec JobSpec) (job types.Job) {
	job = types.Job{Reference: spec.Reference, Source: spec.Source, Chunk: spec.Chunk}
	mustTransition(&job, types.StatePending, "")

	f := logging.Fields{Reference: spec.Reference}
	if spec.Chunk != nil {
		f.Chunk = logging.Ptr(spec.Chunk.Index)
	}
	ctx = logging.WithFields(context.WithoutCancel(ctx), f)

	job.StartedAt = u.d.Now().UTC()
	mustTransition(&job, types.StateRunning, "")
	defer func() {
		job.FinishedAt = u.d.Now().UTC()
		u.d.Log.InfoContext(ctx, "job finished", "status", job.State, "message", job.Message, "duration", job.Duration().Round(time.Millisecond))
	}()

	dataDir := filepath.Join(u.o.WorkDir, spec.Reference)
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		u.fail(&job, fmt.Errorf("create work dir: %w", errors.Join(types.ErrIO, err)))
		return job
	}
	if !u.o.KeepWork {
		defer func() {
			if err := os.RemoveAll(dataDir); err != nil {
				u.d.Log.WarnContext(ctx, "cleanup work dir", "dir", dataDir, "err", err)
			}
		}()
	}

	video, ok := u.prepareSource(ctx, &job, spec)
	if !ok {
		return job
	}

	key := u.cacheKey(ctx, spec)
	if key != "" {
		cands, hit, err := u.d.Cache.Get(ctx, key)
		if err != nil {
			u.d.Log.WarnContext(ctx, "cache lookup", "err", err)
		}
		if hit {
			job.Cached = true
			u.d.Log.DebugContext(ctx, "cache hit", "tracks", len(cands))
			u.finish(ctx, &job, cands)
			return job
		}
	}

	layout := u.d.Sync.Layout(spec.Reference, dataDir)

	res := u.stage(ctx, "preprocess", func(ctx context.Context) ports.Result {
		return u.d.Sync.Preprocess(ctx, video, spec.Reference, dataDir)
	})
	if err := res.Failure(); err != nil {
		u.fail(&job, err)
		return job
	}
	crops := aviFiles(layout.CropDir)
	if len(crops) == 0 || !fileExists(layout.TracksFile) {
		mustTransition(&job, types.StateNoFaces, fmt.Sprintf("no face tracks detected (%v)", types.ErrMissingArtifact))
		return job
	}

	res = u.stage(ctx, "score", func(ctx context.Context) ports.Result {
		return u.d.Sync.Score(ctx, video, spec.Reference, dataDir)
	})
	if err := res.Failure(); err != nil {
		u.fail(&job, err)
		return job
	}

	cands, parseErrs, err := tracks.ParseFile(layout.OffsetsFile)
	for _, pe := range parseErrs {
		u.d.Log.WarnContext(ctx, "skipping malformed track line", "err", pe)
	}
	if err != nil || len(cands) == 0 {
		msg := "no parsable track results"
		if err != nil {
			msg += ": " + err.Error()
		}
		mustTransition(&job, types.StateFailed, msg)
		return job
	}
	if key != "" {
		if err := u.d.Cache.Put(ctx, key, cands); err != nil {
			u.d.Log.WarnContext(ctx, "cache store", "err", err)
		}
	}

	u.finish(ctx, &job, cands)

	if u.o.Visualize {
		res := u.stage(ctx, "visualize", func(ctx context.Context) ports.Result {
			return u.d.Sync.Visualize(ctx, video, spec.Reference, dataDir)
		})
		if err := res.Failure(); err != nil {
			job.VisualizationErr = err.Error()
			u.d.Log.WarnContext(ctx, "visualization failed", "err", err)
		}
	}

	u.preserve(ctx, &job, layout, crops)
	return job
}

// prepareSource returns the video the sync tool should read. Chunk jobs cut
// their chunk first; whole-video jobs use the source as is.
func (u Usecase) prepareSource(ctx context.Context, job *types.Job, spec JobSpec) (string, bool) {
	if spec.Chunk == nil {
		job.AddArtifact(types.ArtifactSource, spec.Source)
		return spec.Source, true
	}

	ext := filepath.Ext(spec.Source)
	if ext == "" {
		ext = ".mp4"
	}
	if err := os.MkdirAll(u.o.ChunkDir, 0o755); err != nil {
		u.fail(job, fmt.Errorf("create chunk dir: %w", errors.Join(types.ErrIO, err)))
		return "", false
	}
	chunkPath := filepath.Join(u.o.ChunkDir, spec.Reference+ext)
	res := u.stage(ctx, "cut_chunk", func(ctx context.Context) ports.Result {
		return u.d.Media.CutChunk(ctx, spec.Source, *spec.Chunk, chunkPath)
	})
	if err := res.Failure(); err != nil {
		u.fail(job, err)
		return "", false
	}
	job.AddArtifact(types.ArtifactSource, chunkPath)

	wav := filepath.Join(u.o.ChunkDir, spec.Reference+".wav")
	res = u.stage(ctx, "extract_audio", func(ctx context.Context) ports.Result {
		return u.d.Media.ExtractAudio(ctx, chunkPath, wav)
	})
	if err := res.Failure(); err != nil {
		u.d.Log.WarnContext(ctx, "audio extraction failed", "err", err)
	} else {
		job.AddArtifact(types.ArtifactAudio, wav)
	}
	return chunkPath, true
}

// finish records scored tracks and applies the thresholds.
func (u Usecase) finish(ctx context.Context, job *types.Job, cands []types.TrackCandidate) {
	best, _ := tracks.Best(cands)
	job.Tracks = cands
	job.Best = &best
	mustTransition(job, types.StateSucceeded, "")

	v := quality.EvaluateBest(best, u.o.Thresholds)
	job.Verdict = &v
	if v.Passed {
		mustTransition(job, types.StateAccepted, "")
	} else {
		mustTransition(job, types.StateRejected, strings.Join(v.Reasons, "; "))
	}
	u.d.Log.InfoContext(ctx, "verdict", "passed", v.Passed, "offset", best.Offset, "confidence", best.Confidence, "track", best.Track)
}

// preserve copies the tool's outputs into OutDir/syncnet_outputs/<ref>
// before the work directory is removed.
func (u Usecase) preserve(ctx context.Context, job *types.Job, layout ports.SyncLayout, crops []string) {
	if u.o.OutDir == "" {
		return
	}
	dst := filepath.Join(u.o.OutDir, organize.OutputsDir, job.Reference)

	record := func(kind types.ArtifactKind, src, target string) {
		if err := organize.CopyFile(src, target); err != nil {
			job.CopyErrors = append(job.CopyErrors, err.Error())
			u.d.Log.WarnContext(ctx, "preserve artifact", "err", err)
			return
		}
		job.AddArtifact(kind, target)
	}

	for _, c := range crops {
		record(types.ArtifactCroppedFace, c, filepath.Join(dst, "cropped_faces", filepath.Base(c)))
	}
	if fileExists(layout.Visualization) {
		record(types.ArtifactVisualization, layout.Visualization, filepath.Join(dst, job.Reference+"_with_bboxes.avi"))
	}
	record(types.ArtifactOffsets, layout.OffsetsFile, filepath.Join(dst, "analysis", "offsets.txt"))
	for _, src := range layout.Analysis {
		if fileExists(src) {
			record(types.ArtifactAnalysis, src, filepath.Join(dst, "analysis", filepath.Base(src)))
		}
	}
}

// stage runs fn with the configured timeout, retrying failed runs.
func (u Usecase) stage(ctx context.Context, name string, fn func(context.Context) ports.Result) ports.Result {
	ctx = logging.WithFields(ctx, logging.Fields{Stage: name})
	attempts := 1 + max(0, u.o.StageRetries)
	for i := 1; ; i++ {
		sctx, cancel := ctx, context.CancelFunc(func() {})
		if u.o.StageTimeout > 0 {
			sctx, cancel = context.WithTimeout(ctx, u.o.StageTimeout)
		}
		res := fn(sctx)
		cancel()

		if res.OK() {
			u.d.Log.DebugContext(ctx, "stage finished", "duration", res.Duration.Round(time.Millisecond))
			return res
		}
		u.d.Log.WarnContext(ctx, "stage failed",
			"exit_code", res.ExitCode,
			"attempt", i,
			"stderr", logging.Truncate(logging.Tail(res.Stderr, 5), 500),
		)
		if i >= attempts {
			return res
		}
	}
}

func (u Usecase) cacheKey(ctx context.Context, spec JobSpec) string {
	if _, nop := u.d.Cache.(cache.Nop); nop {
		return ""
	}
	in, err := cache.KeyInputFor(spec.Source, spec.Chunk, u.o.CacheParams)
	if err != nil {
		u.d.Log.WarnContext(ctx, "cache key", "err", err)
		return ""
	}
	return cache.TrackKey(in)
}

func (u Usecase) fail(job *types.Job, err error) {
	mustTransition(job, types.StateFailed, err.Error())
}

// mustTransition applies a move the stage order guarantees is valid.
func mustTransition(job *types.Job, to types.JobState, msg string) {
	if err := types.Transition(job, to, msg); err != nil {
		panic(err)
	}
}

func aviFiles(dir string) []string {
	matches, _ := filepath.Glob(filepath.Join(dir, "*.avi"))
	sort.Strings(matches)
	return matches
}

func fileExists(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.Mode().IsRegular()
}
