package chunks

import (
	"fmt"
	"math"

	"github.com/forPelevin/syncsieve/internal/types"
)

// DefaultMinLength is the shortest chunk that is worth scoring, in seconds.
const DefaultMinLength = 5.0

// Plan splits [0, total) into windows of length seconds, each starting
// length-overlap seconds after the previous one. A trailing window shorter
// than minLength ends the plan without being emitted. minLength <= 0 selects
// DefaultMinLength.
func Plan(total, length, overlap, minLength float64) ([]types.Chunk, error) {
	if err := validate(total, length, overlap, minLength); err != nil {
		return nil, err
	}
	if minLength <= 0 {
		minLength = DefaultMinLength
	}

	step := length - overlap
	var out []types.Chunk
	for t := 0.0; t < total; t += step {
		end := math.Min(t+length, total)
		d := end - t
		if d < minLength {
			break
		}
		out = append(out, types.Chunk{
			Index:    len(out),
			Start:    t,
			End:      end,
			Duration: d,
		})
	}
	return out, nil
}

func validate(total, length, overlap, minLength float64) error {
	switch {
	case !finite(total) || total <= 0:
		return fmt.Errorf("%w: total duration must be > 0, got %v", types.ErrConfiguration, total)
	case !finite(length) || length <= 0:
		return fmt.Errorf("%w: chunk length must be > 0, got %v", types.ErrConfiguration, length)
	case !finite(overlap):
		return fmt.Errorf("%w: overlap must be finite, got %v", types.ErrConfiguration, overlap)
	case !finite(minLength):
		return fmt.Errorf("%w: min chunk length must be finite, got %v", types.ErrConfiguration, minLength)
	case overlap < 0:
		return fmt.Errorf("%w: overlap must be >= 0, got %v", types.ErrConfiguration, overlap)
	case overlap >= length:
		return fmt.Errorf("%w: overlap (%v) must be < chunk length (%v)", types.ErrConfiguration, overlap, length)
	}
	return nil
}

func finite(f float64) bool { return !math.IsNaN(f) && !math.IsInf(f, 0) }

// Limit returns at most n chunks; n <= 0 means no limit.
func Limit(cs []types.Chunk, n int) []types.Chunk {
	if n <= 0 || len(cs) <= n {
		return cs
	}
	return cs[:n]
}

// Reference is the job reference name for chunk c.
func Reference(c types.Chunk) string {
	return fmt.Sprintf("chunk_%03d", c.Index)
}
