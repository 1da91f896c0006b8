package quality

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forPelevin/syncsieve/internal/types"
)

func TestEvaluate_Table(t *testing.T) {
	tests := []struct {
		name        string
		conf        float64
		offset      int
		minConf     float64
		maxOff      int
		wantPassed  bool
		wantReasons []string
	}{
		{"low confidence only", 4.9, 2, 5.0, 3, false, []string{"Low confidence: 4.9 < 5.0"}},
		{"passes", 7.183, -1, 5.0, 3, true, []string{}},
		{"boundary values pass", 5.0, -3, 5.0, 3, true, []string{}},
		{"high offset only", 8.0, -4, 5.0, 3, false, []string{"High offset: 4 > 3"}},
		{"both fail in order", 1.25, 10, 2.5, 8, false, []string{"Low confidence: 1.25 < 2.5", "High offset: 10 > 8"}},
		{"zero thresholds", 0, 0, 0, 0, true, []string{}},
		{"most negative offset", 9.0, math.MinInt, 5.0, 3, false, []string{"High offset: 9223372036854775808 > 3"}},
		{"most positive offset", 9.0, math.MaxInt, 5.0, 3, false, []string{"High offset: 9223372036854775807 > 3"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := Evaluate(tt.conf, tt.offset, tt.minConf, tt.maxOff)
			assert.Equal(t, tt.wantPassed, v.Passed)
			assert.Equal(t, tt.wantReasons, v.Reasons)
		})
	}
}

func TestEvaluate_Deterministic(t *testing.T) {
	a := Evaluate(4.9, 2, 5.0, 3)
	b := Evaluate(4.9, 2, 5.0, 3)
	assert.Equal(t, a, b)
}

func TestEvaluateBest(t *testing.T) {
	v := EvaluateBest(types.TrackCandidate{Offset: -6, Confidence: 6.5}, types.Thresholds{MinConfidence: 6, MaxAbsOffset: 2})
	assert.False(t, v.Passed)
	assert.Equal(t, []string{"High offset: 6 > 2"}, v.Reasons)
}

func TestFmtFloat(t *testing.T) {
	assert.Equal(t, "5.0", fmtFloat(5))
	assert.Equal(t, "4.9", fmtFloat(4.9))
	assert.Equal(t, "7.183", fmtFloat(7.183))
	assert.Equal(t, "0.0", fmtFloat(0))
}

func TestValidateThresholds(t *testing.T) {
	assert.NoError(t, ValidateThresholds(types.Thresholds{MinConfidence: 0, MaxAbsOffset: 0}))
	assert.ErrorIs(t, ValidateThresholds(types.Thresholds{MinConfidence: -1}), types.ErrConfiguration)
	assert.ErrorIs(t, ValidateThresholds(types.Thresholds{MaxAbsOffset: -1}), types.ErrConfiguration)
}

func TestPresets_Resolve(t *testing.T) {
	p := DefaultPresets()

	th, err := p.Resolve("High")
	require.NoError(t, err)
	assert.Equal(t, types.Thresholds{Preset: "high", MinConfidence: 4.0, MaxAbsOffset: 5}, th)

	_, err = p.Resolve("ultra")
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrConfiguration)
	assert.Contains(t, err.Error(), "strict")
}

func TestPresets_NamesOrderedByStrictness(t *testing.T) {
	assert.Equal(t, []string{"strict", "high", "medium", "relaxed", "none"}, DefaultPresets().Names())
}

func TestPresets_AreIndependentCopies(t *testing.T) {
	a := DefaultPresets()
	a["strict"] = Preset{MinConfidence: 99}
	b := DefaultPresets()
	assert.Equal(t, 6.0, b["strict"].MinConfidence)
}
