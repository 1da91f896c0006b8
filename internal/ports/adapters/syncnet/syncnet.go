// Package syncnet drives the SyncNet python scripts.
package syncnet

import (
	"context"
	"path/filepath"
	"strconv"

	"github.com/forPelevin/syncsieve/internal/ports"
)

const (
	StagePreprocess = "preprocess"
	StageScore      = "score"
	StageVisualize  = "visualize"
)

// Face detector defaults. Chunks are scored with shorter tracks and smaller
// faces than whole videos.
const (
	DefaultMinTrack    = 50
	DefaultMinFaceSize = 50

	ChunkMinTrack    = 5
	ChunkMinFaceSize = 10
)

type Config struct {
	Python string
	// Dir is the SyncNet checkout; scripts run with it as working directory.
	Dir         string
	MinTrack    int
	MinFaceSize int
}

type Adapter struct {
	run ports.Invoker
	cfg Config
}

func New(run ports.Invoker, cfg Config) *Adapter {
	if cfg.Python == "" {
		cfg.Python = "python3"
	}
	if cfg.MinTrack <= 0 {
		cfg.MinTrack = DefaultMinTrack
	}
	if cfg.MinFaceSize <= 0 {
		cfg.MinFaceSize = DefaultMinFaceSize
	}
	return &Adapter{run: run, cfg: cfg}
}

// Preprocess runs face detection, tracking and cropping.
func (a *Adapter) Preprocess(ctx context.Context, video, ref, dataDir string) ports.Result {
	return a.script(ctx, StagePreprocess, "run_pipeline.py", video, ref, dataDir,
		"--min_face_size", strconv.Itoa(a.cfg.MinFaceSize),
		"--min_track", strconv.Itoa(a.cfg.MinTrack),
	)
}

// Score runs the sync model and writes offsets.txt.
func (a *Adapter) Score(ctx context.Context, video, ref, dataDir string) ports.Result {
	return a.script(ctx, StageScore, "run_syncnet.py", video, ref, dataDir)
}

// Visualize renders the bounding-box video.
func (a *Adapter) Visualize(ctx context.Context, video, ref, dataDir string) ports.Result {
	return a.script(ctx, StageVisualize, "run_visualise.py", video, ref, dataDir)
}

func (a *Adapter) Layout(ref, dataDir string) ports.SyncLayout {
	work := filepath.Join(dataDir, "pywork", ref)
	return ports.SyncLayout{
		CropDir:       filepath.Join(dataDir, "pycrop", ref),
		WorkDir:       work,
		TracksFile:    filepath.Join(work, "tracks.pckl"),
		OffsetsFile:   filepath.Join(work, "offsets.txt"),
		Visualization: filepath.Join(dataDir, "pyavi", ref, "video_out.avi"),
		Analysis: []string{
			filepath.Join(work, "tracks.pckl"),
			filepath.Join(work, "faces.pckl"),
			filepath.Join(work, "scene.pckl"),
			filepath.Join(work, "activesd.pckl"),
		},
	}
}

func (a *Adapter) script(ctx context.Context, stage, script, video, ref, dataDir string, extra ...string) ports.Result {
	args := []string{
		script,
		"--videofile", abs(video),
		"--reference", ref,
		"--data_dir", abs(dataDir),
	}
	args = append(args, extra...)
	return a.run.Run(ctx, ports.Invocation{
		Stage: stage,
		Name:  a.cfg.Python,
		Args:  args,
		Dir:   a.cfg.Dir,
	})
}

// abs keeps paths valid after the working directory changes to the checkout.
func abs(p string) string {
	if a, err := filepath.Abs(p); err == nil {
		return a
	}
	return p
}

var _ ports.SyncTool = (*Adapter)(nil)
