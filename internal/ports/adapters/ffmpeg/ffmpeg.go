package ffmpeg

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/forPelevin/syncsieve/internal/ports"
	"github.com/forPelevin/syncsieve/internal/types"
)

const (
	StageCut     = "cut_chunk"
	StageAudio   = "extract_audio"
	StageConvert = "convert_mp4"
	StageProbe   = "probe_duration"
)

type Adapter struct {
	run     ports.Invoker
	ffmpeg  string
	ffprobe string
}

func New(run ports.Invoker, ffmpegPath, ffprobePath string) *Adapter {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &Adapter{run: run, ffmpeg: ffmpegPath, ffprobe: ffprobePath}
}

// ExtractAudio writes a 16 kHz mono PCM wav.
func (a *Adapter) ExtractAudio(ctx context.Context, in, outWav string) ports.Result {
	return a.run.Run(ctx, ports.Invocation{
		Stage: StageAudio,
		Name:  a.ffmpeg,
		Args: []string{
			"-y",
			"-i", in,
			"-vn",
			"-acodec", "pcm_s16le",
			"-ar", "16000",
			"-ac", "1",
			outWav,
		},
	})
}

// CutChunk stream-copies [c.Start, c.End) of in into out.
func (a *Adapter) CutChunk(ctx context.Context, in string, c types.Chunk, out string) ports.Result {
	return a.run.Run(ctx, ports.Invocation{
		Stage: StageCut,
		Name:  a.ffmpeg,
		Args: []string{
			"-y",
			"-i", in,
			"-ss", fmtSeconds(c.Start),
			"-t", fmtSeconds(c.Duration),
			"-c", "copy",
			out,
		},
	})
}

func (a *Adapter) ConvertToMP4(ctx context.Context, in, outMP4 string) ports.Result {
	return a.run.Run(ctx, ports.Invocation{
		Stage: StageConvert,
		Name:  a.ffmpeg,
		Args: []string{
			"-y",
			"-i", in,
			"-c:v", "libx264",
			"-c:a", "aac",
			"-preset", "medium",
			"-crf", "23",
			"-movflags", "+faststart",
			outMP4,
		},
	})
}

// ProbeDuration returns the container duration in seconds.
func (a *Adapter) ProbeDuration(ctx context.Context, path string) (float64, error) {
	res := a.run.Run(ctx, ports.Invocation{
		Stage: StageProbe,
		Name:  a.ffprobe,
		Args: []string{
			"-v", "error",
			"-show_entries", "format=duration",
			"-of", "default=noprint_wrappers=1:nokey=1",
			path,
		},
	})
	if err := res.Failure(); err != nil {
		return 0, fmt.Errorf("ffprobe duration: %w", err)
	}
	return parseDuration(res.Stdout)
}

func parseDuration(out string) (float64, error) {
	s := strings.TrimSpace(out)
	sec, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", s, err)
	}
	if sec <= 0 {
		return 0, fmt.Errorf("non-positive duration %q", s)
	}
	return sec, nil
}

func fmtSeconds(sec float64) string {
	return strconv.FormatFloat(sec, 'f', 3, 64)
}

var _ ports.MediaTool = (*Adapter)(nil)
