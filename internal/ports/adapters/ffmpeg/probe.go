package ffmpeg

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/forPelevin/syncsieve/internal/ports"
	"github.com/forPelevin/syncsieve/internal/types"
)

const (
	StageInfo    = "probe_info"
	StageSilence = "detect_silence"
)

// silenceCaptureLimit keeps the whole silencedetect log of a long recording.
const silenceCaptureLimit = 16 << 20

// ProbeInfo reads the container format and the first video and audio streams.
func (a *Adapter) ProbeInfo(ctx context.Context, path string) (types.MediaInfo, error) {
	res := a.run.Run(ctx, ports.Invocation{
		Stage: StageInfo,
		Name:  a.ffprobe,
		Args: []string{
			"-v", "quiet",
			"-print_format", "json",
			"-show_format",
			"-show_streams",
			path,
		},
	})
	if err := res.Failure(); err != nil {
		return types.MediaInfo{}, fmt.Errorf("ffprobe info: %w", err)
	}
	info, err := parseInfo([]byte(res.Stdout))
	if err != nil {
		return types.MediaInfo{}, err
	}
	info.Path = path
	return info, nil
}

type probeOutput struct {
	Format struct {
		FormatName string `json:"format_name"`
		Duration   string `json:"duration"`
		Size       string `json:"size"`
		BitRate    string `json:"bit_rate"`
	} `json:"format"`
	Streams []struct {
		Index      int    `json:"index"`
		CodecName  string `json:"codec_name"`
		CodecType  string `json:"codec_type"`
		Width      int    `json:"width"`
		Height     int    `json:"height"`
		FrameRate  string `json:"r_frame_rate"`
		SampleRate string `json:"sample_rate"`
		Channels   int    `json:"channels"`
	} `json:"streams"`
}

func parseInfo(b []byte) (types.MediaInfo, error) {
	var out probeOutput
	if err := json.Unmarshal(b, &out); err != nil {
		return types.MediaInfo{}, fmt.Errorf("%w: ffprobe json: %v", types.ErrParse, err)
	}
	info := types.MediaInfo{Format: out.Format.FormatName}
	// ffprobe omits duration for some streams-only inputs; leave it zero.
	if out.Format.Duration != "" && out.Format.Duration != "N/A" {
		d, err := parseDuration(out.Format.Duration)
		if err != nil {
			return types.MediaInfo{}, fmt.Errorf("%w: %v", types.ErrParse, err)
		}
		info.Duration = d
	}
	info.Size, _ = strconv.ParseInt(out.Format.Size, 10, 64)
	info.BitRate, _ = strconv.ParseInt(out.Format.BitRate, 10, 64)

	for _, s := range out.Streams {
		st := &types.StreamInfo{Index: s.Index, Codec: s.CodecName}
		switch {
		case s.CodecType == "video" && info.Video == nil:
			st.Width, st.Height, st.FrameRate = s.Width, s.Height, s.FrameRate
			info.Video = st
		case s.CodecType == "audio" && info.Audio == nil:
			st.SampleRate, _ = strconv.Atoi(s.SampleRate)
			st.Channels = s.Channels
			info.Audio = st
		}
	}
	return info, nil
}

// DetectSilence runs the silencedetect filter over the audio of path and
// returns every stretch quieter than noiseDB lasting at least minSilence
// seconds.
func (a *Adapter) DetectSilence(ctx context.Context, path string, noiseDB, minSilence float64) ([]types.Silence, error) {
	filter := fmt.Sprintf("silencedetect=noise=%sdB:d=%s",
		strconv.FormatFloat(noiseDB, 'f', -1, 64), strconv.FormatFloat(minSilence, 'f', -1, 64))
	res := a.run.Run(ctx, ports.Invocation{
		Stage: StageSilence,
		Name:  a.ffmpeg,
		Args: []string{
			"-hide_banner",
			"-nostats",
			"-i", path,
			"-vn",
			"-af", filter,
			"-f", "null",
			"-",
		},
		CaptureLimit: silenceCaptureLimit,
	})
	if err := res.Failure(); err != nil {
		return nil, fmt.Errorf("ffmpeg silencedetect: %w", err)
	}
	return parseSilences(res.Stderr), nil
}

var reSilence = regexp.MustCompile(`silence_(start|end):\s*(-?[0-9]+(?:\.[0-9]*)?(?:[eE][+-]?[0-9]+)?)`)

// parseSilences pairs each silence_start with the next silence_end. A start
// that never ends is dropped, as is an end with no open start.
func parseSilences(log string) []types.Silence {
	var (
		out     []types.Silence
		start   float64
		pending bool
	)
	sc := bufio.NewScanner(strings.NewReader(log))
	sc.Buffer(make([]byte, 0, 64<<10), 1<<20)
	for sc.Scan() {
		m := reSilence.FindStringSubmatch(sc.Text())
		if m == nil {
			continue
		}
		v, err := strconv.ParseFloat(m[2], 64)
		if err != nil {
			continue
		}
		switch m[1] {
		case "start":
			start, pending = v, true
		case "end":
			if pending {
				out = append(out, types.Silence{Start: start, End: v})
				pending = false
			}
		}
	}
	return out
}

var _ ports.MediaProber = (*Adapter)(nil)
