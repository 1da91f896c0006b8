package organize

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/forPelevin/syncsieve/internal/ports"
	"github.com/forPelevin/syncsieve/internal/scheduler"
	"github.com/forPelevin/syncsieve/internal/types"
)

const (
	NormalDir  = "video_normal"
	BBoxDir    = "video_bbox"
	CroppedDir = "video_cropped"
	AudioDir   = "audio"
)

const DefaultPrepareWorkers = 4

var videoExts = map[string]bool{".mp4": true, ".avi": true, ".mov": true, ".mkv": true}

type Preparer struct {
	Media   ports.MediaTool
	Workers int
	Log     *slog.Logger
}

// PrepareResult holds the four outputs of one reference.
type PrepareResult struct {
	Reference string       `json:"reference"`
	Results   []CopyResult `json:"results"`
}

func (r PrepareResult) Succeeded() int {
	return len(r.Results) - len(Failed(r.Results))
}

// Prepare reorganizes a partition directory (one holding source videos and
// a syncnet_outputs tree) into video_normal, video_bbox, video_cropped and
// audio under outDir. Output names are <id>_<ref>; id defaults to the base
// name of outDir. Per-artifact failures are recorded and never abort.
func (p Preparer) Prepare(ctx context.Context, inputDir, outDir, id string) ([]PrepareResult, error) {
	if fi, err := os.Stat(inputDir); err != nil || !fi.IsDir() {
		return nil, fmt.Errorf("input directory %s: %w", inputDir, types.ErrConfiguration)
	}
	outputs := filepath.Join(inputDir, OutputsDir)
	entries, err := os.ReadDir(outputs)
	if err != nil {
		return nil, fmt.Errorf("%s not found in %s: %w", OutputsDir, inputDir, types.ErrConfiguration)
	}
	if id == "" {
		id = filepath.Base(filepath.Clean(outDir))
	}
	for _, d := range []string{NormalDir, BBoxDir, CroppedDir, AudioDir} {
		if err := os.MkdirAll(filepath.Join(outDir, d), 0o755); err != nil {
			return nil, fmt.Errorf("create %s: %w", d, errors.Join(types.ErrIO, err))
		}
	}

	var refs []string
	for _, e := range entries {
		if e.IsDir() {
			refs = append(refs, e.Name())
		}
	}
	sort.Strings(refs)
	if len(refs) == 0 {
		return nil, fmt.Errorf("no references under %s: %w", outputs, types.ErrNoInputs)
	}

	log := p.Log
	if log == nil {
		log = slog.Default()
	}
	workers := p.Workers
	if workers <= 0 {
		workers = DefaultPrepareWorkers
	}
	videos := sourceVideos(inputDir, refs)

	return scheduler.Run(ctx, refs, workers, func(ctx context.Context, ref string) PrepareResult {
		return p.prepareOne(ctx, inputDir, outDir, id, ref, videos[ref])
	}, func(r PrepareResult, done, total int) {
		log.Info("prepared", "reference", r.Reference, "ok", r.Succeeded(), "of", len(r.Results), "progress", fmt.Sprintf("%d/%d", done, total))
	}), nil
}

func (p Preparer) prepareOne(ctx context.Context, inputDir, outDir, id, ref, video string) PrepareResult {
	name := PrefixedName(id, ref)
	refDir := filepath.Join(inputDir, OutputsDir, ref)
	res := PrepareResult{Reference: ref}

	// normal video
	normalDst := filepath.Join(outDir, NormalDir, name+".mp4")
	if video != "" {
		normalDst = filepath.Join(outDir, NormalDir, name+filepath.Ext(video))
	}
	res.Results = append(res.Results, p.copyOrMissing(types.ArtifactSource, video, normalDst))

	// bbox video
	bbox := filepath.Join(refDir, ref+"_with_bboxes.avi")
	res.Results = append(res.Results,
		p.convert(ctx, types.ArtifactVisualization, existing(bbox), filepath.Join(outDir, BBoxDir, name+"_with_bboxes.mp4")))

	// cropped face video
	res.Results = append(res.Results,
		p.convert(ctx, types.ArtifactCroppedFace, firstAVI(filepath.Join(refDir, "cropped_faces")), filepath.Join(outDir, CroppedDir, name+".mp4")))

	// audio from the normal video
	audioDst := filepath.Join(outDir, AudioDir, name+".wav")
	if video == "" {
		res.Results = append(res.Results, missing(types.ArtifactAudio, filepath.Join(inputDir, ref+".mp4"), audioDst))
	} else {
		r := p.Media.ExtractAudio(ctx, video, audioDst)
		res.Results = append(res.Results, CopyResult{Kind: types.ArtifactAudio, Src: video, Dst: audioDst, Err: mediaErr(video, audioDst, r)})
	}
	return res
}

func (p Preparer) copyOrMissing(kind types.ArtifactKind, src, dst string) CopyResult {
	if src == "" {
		return missing(kind, src, dst)
	}
	return CopyResult{Kind: kind, Src: src, Dst: dst, Err: CopyFile(src, dst)}
}

func (p Preparer) convert(ctx context.Context, kind types.ArtifactKind, src, dst string) CopyResult {
	if src == "" {
		return missing(kind, src, dst)
	}
	r := p.Media.ConvertToMP4(ctx, src, dst)
	return CopyResult{Kind: kind, Src: src, Dst: dst, Err: mediaErr(src, dst, r)}
}

func mediaErr(src, dst string, r ports.Result) error {
	if err := r.Failure(); err != nil {
		return &CopyError{Src: src, Dst: dst, Err: err}
	}
	return nil
}

func missing(kind types.ArtifactKind, src, dst string) CopyResult {
	return CopyResult{Kind: kind, Src: src, Dst: dst, Err: &CopyError{Src: src, Dst: dst, Err: fmt.Errorf("%s: %w", kind, types.ErrMissingArtifact)}}
}

// sourceVideos maps each reference to its video in dir. A file matches when
// its stem is the reference or ends with "_<reference>" (a prefixed copy);
// exact matches win.
func sourceVideos(dir string, refs []string) map[string]string {
	out := map[string]string{}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return out
	}
	exact := map[string]bool{}
	for _, e := range entries {
		if e.IsDir() || !videoExts[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		stem := strings.TrimSuffix(e.Name(), filepath.Ext(e.Name()))
		path := filepath.Join(dir, e.Name())
		for _, ref := range refs {
			switch {
			case stem == ref:
				out[ref] = path
				exact[ref] = true
			case strings.HasSuffix(stem, "_"+ref) && !exact[ref]:
				if _, ok := out[ref]; !ok {
					out[ref] = path
				}
			}
		}
	}
	return out
}

func existing(path string) string {
	if fi, err := os.Stat(path); err == nil && fi.Mode().IsRegular() {
		return path
	}
	return ""
}

func firstAVI(dir string) string {
	matches, _ := filepath.Glob(filepath.Join(dir, "*.avi"))
	if len(matches) == 0 {
		return ""
	}
	sort.Strings(matches)
	return matches[0]
}
