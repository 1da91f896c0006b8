package quality

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/forPelevin/syncsieve/internal/types"
)

// Evaluate decides whether a track with the given confidence and offset meets
// the thresholds. Reasons list each failed check, confidence first.
func Evaluate(confidence float64, offset int, minConfidence float64, maxAbsOffset int) types.Verdict {
	abs := types.TrackCandidate{Offset: offset}.AbsOffset()
	v := types.Verdict{Passed: true, Reasons: []string{}}
	if confidence < minConfidence {
		v.Passed = false
		v.Reasons = append(v.Reasons, fmt.Sprintf("Low confidence: %s < %s", fmtFloat(confidence), fmtFloat(minConfidence)))
	}
	if maxAbsOffset < 0 || abs > uint64(maxAbsOffset) {
		v.Passed = false
		v.Reasons = append(v.Reasons, fmt.Sprintf("High offset: %d > %d", abs, maxAbsOffset))
	}
	return v
}

// EvaluateBest applies th to the best track candidate.
func EvaluateBest(best types.TrackCandidate, th types.Thresholds) types.Verdict {
	return Evaluate(best.Confidence, best.Offset, th.MinConfidence, th.MaxAbsOffset)
}

// fmtFloat prints the shortest representation with at least one decimal.
func fmtFloat(f float64) string {
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eEnN") {
		s += ".0"
	}
	return s
}

// ValidateThresholds rejects thresholds no track could meaningfully satisfy.
func ValidateThresholds(th types.Thresholds) error {
	if th.MinConfidence < 0 {
		return fmt.Errorf("%w: min confidence must be >= 0, got %v", types.ErrConfiguration, th.MinConfidence)
	}
	if th.MaxAbsOffset < 0 {
		return fmt.Errorf("%w: max abs offset must be >= 0, got %d", types.ErrConfiguration, th.MaxAbsOffset)
	}
	return nil
}
