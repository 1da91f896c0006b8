package ports

import (
	"context"

	"github.com/forPelevin/syncsieve/internal/types"
)

// Invoker runs one external executable. It reports non-zero exits through
// Result rather than returning an error.
type Invoker interface {
	Run(ctx context.Context, inv Invocation) Result
}

// MediaTool wraps the transcoding tool.
type MediaTool interface {
	ProbeDuration(ctx context.Context, path string) (float64, error)
	CutChunk(ctx context.Context, in string, c types.Chunk, out string) Result
	ExtractAudio(ctx context.Context, in, outWav string) Result
	ConvertToMP4(ctx context.Context, in, outMP4 string) Result
}

// MediaProber reads stream metadata and finds silent stretches, which the
// silence-based chunk planner splits on.
type MediaProber interface {
	ProbeInfo(ctx context.Context, path string) (types.MediaInfo, error)
	DetectSilence(ctx context.Context, path string, noiseDB, minSilence float64) ([]types.Silence, error)
}

// SyncTool wraps the three synchronization model stages. Each call works
// inside dataDir and names its outputs after ref.
type SyncTool interface {
	Preprocess(ctx context.Context, video, ref, dataDir string) Result
	Score(ctx context.Context, video, ref, dataDir string) Result
	Visualize(ctx context.Context, video, ref, dataDir string) Result
	Layout(ref, dataDir string) SyncLayout
}

// SyncLayout locates the artifacts the sync tool writes for one reference.
type SyncLayout struct {
	CropDir       string
	WorkDir       string
	TracksFile    string
	OffsetsFile   string
	Visualization string
	// Analysis lists side files worth keeping next to OffsetsFile.
	Analysis []string
}

// TrackCache stores scored tracks so repeated runs can skip the model.
type TrackCache interface {
	Get(ctx context.Context, key string) ([]types.TrackCandidate, bool, error)
	Put(ctx context.Context, key string, tracks []types.TrackCandidate) error
}
