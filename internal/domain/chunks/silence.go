package chunks

import (
	"fmt"
	"sort"

	"github.com/forPelevin/syncsieve/internal/types"
)

// Silence detection defaults: the noise floor in dB and the shortest quiet
// stretch, in seconds, that counts as a split point.
const (
	DefaultSilenceThreshold = -30.0
	DefaultMinSilence       = 1.0
)

// PlanBySilence cuts [0, total) at the midpoint of every silence. Segments
// shorter than minLength are skipped and the rest are indexed in order.
// minLength <= 0 selects DefaultMinLength.
func PlanBySilence(total float64, silences []types.Silence, minLength float64) ([]types.Chunk, error) {
	if !finite(total) || total <= 0 {
		return nil, fmt.Errorf("%w: total duration must be > 0, got %v", types.ErrConfiguration, total)
	}
	if !finite(minLength) {
		return nil, fmt.Errorf("%w: min chunk length must be finite, got %v", types.ErrConfiguration, minLength)
	}
	if minLength <= 0 {
		minLength = DefaultMinLength
	}

	cuts := []float64{0, total}
	for _, s := range silences {
		mid := (s.Start + s.End) / 2
		if finite(mid) && mid > 0 && mid < total {
			cuts = append(cuts, mid)
		}
	}
	sort.Float64s(cuts)

	var out []types.Chunk
	for i := 1; i < len(cuts); i++ {
		start, end := cuts[i-1], cuts[i]
		if end-start < minLength {
			continue
		}
		out = append(out, types.Chunk{
			Index:    len(out),
			Start:    start,
			End:      end,
			Duration: end - start,
		})
	}
	return out, nil
}
