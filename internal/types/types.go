package types

import "time"

type VideoAsset struct {
	Path     string  `json:"path"`
	Name     string  `json:"name"`
	Duration float64 `json:"duration"`
}

type Chunk struct {
	Index    int     `json:"index"`
	Start    float64 `json:"start"`
	End      float64 `json:"end"`
	Duration float64 `json:"duration"`
}

// Silence is a quiet stretch of the audio track, in seconds.
type Silence struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// MediaInfo is the container format plus the first video and audio streams.
type MediaInfo struct {
	Path     string      `json:"path"`
	Format   string      `json:"format"`
	Duration float64     `json:"duration"`
	Size     int64       `json:"size"`
	BitRate  int64       `json:"bit_rate"`
	Video    *StreamInfo `json:"video,omitempty"`
	Audio    *StreamInfo `json:"audio,omitempty"`
}

type StreamInfo struct {
	Index      int    `json:"index"`
	Codec      string `json:"codec"`
	Width      int    `json:"width,omitempty"`
	Height     int    `json:"height,omitempty"`
	FrameRate  string `json:"frame_rate,omitempty"`
	SampleRate int    `json:"sample_rate,omitempty"`
	Channels   int    `json:"channels,omitempty"`
}

// TrackCandidate is one face track's sync estimate from the scoring tool.
type TrackCandidate struct {
	Track      int     `json:"track"`
	Offset     int     `json:"offset"`
	Confidence float64 `json:"confidence"`
}

// AbsOffset is |Offset|. It is unsigned so that math.MinInt does not wrap.
func (c TrackCandidate) AbsOffset() uint64 {
	m := uint64(c.Offset)
	if c.Offset < 0 {
		m = -m
	}
	return m
}

type Verdict struct {
	Passed  bool     `json:"passed"`
	Reasons []string `json:"reasons"`
}

type Thresholds struct {
	Preset        string  `json:"preset,omitempty"`
	MinConfidence float64 `json:"min_confidence"`
	MaxAbsOffset  int     `json:"max_abs_offset"`
}

type ArtifactKind string

const (
	ArtifactSource        ArtifactKind = "source"
	ArtifactAudio         ArtifactKind = "audio"
	ArtifactCroppedFace   ArtifactKind = "cropped_face"
	ArtifactVisualization ArtifactKind = "visualization"
	ArtifactOffsets       ArtifactKind = "offsets"
	ArtifactAnalysis      ArtifactKind = "analysis"
)

type Artifact struct {
	Kind ArtifactKind `json:"kind"`
	Path string       `json:"path"`
}

// Job is the scheduler-owned record of one chunk or video. Workers build and
// return it by value; only the collector stores it.
type Job struct {
	Reference string `json:"reference"`
	Source    string `json:"source"`
	Chunk     *Chunk `json:"chunk,omitempty"`

	State   JobState `json:"status"`
	Message string   `json:"message,omitempty"`

	Artifacts []Artifact       `json:"artifacts,omitempty"`
	Tracks    []TrackCandidate `json:"tracks,omitempty"`
	Best      *TrackCandidate  `json:"best,omitempty"`
	Verdict   *Verdict         `json:"verdict,omitempty"`

	VisualizationErr string   `json:"visualization_error,omitempty"`
	CopyErrors       []string `json:"copy_errors,omitempty"`
	Cached           bool     `json:"cached,omitempty"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

func (j *Job) AddArtifact(kind ArtifactKind, path string) {
	j.Artifacts = append(j.Artifacts, Artifact{Kind: kind, Path: path})
}

// ArtifactsOf returns artifact paths of the given kind in insertion order.
func (j Job) ArtifactsOf(kind ArtifactKind) []string {
	var out []string
	for _, a := range j.Artifacts {
		if a.Kind == kind {
			out = append(out, a.Path)
		}
	}
	return out
}

func (j Job) Duration() time.Duration {
	if j.StartedAt.IsZero() || j.FinishedAt.IsZero() {
		return 0
	}
	return j.FinishedAt.Sub(j.StartedAt)
}
