package tracks

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forPelevin/syncsieve/internal/types"
)

func TestParse_SkipsGarbage(t *testing.T) {
	in := "TRACK 0: OFFSET -1, CONF 7.183\nTRACK 1: OFFSET 2, CONF 3.500\ngarbage line"

	cands, errs := ParseString(in)
	require.Len(t, cands, 2)
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], types.ErrParse)

	var pe *ParseError
	require.ErrorAs(t, errs[0], &pe)
	assert.Equal(t, 3, pe.Line)

	best, ok := Best(cands)
	require.True(t, ok)
	assert.Equal(t, -1, best.Offset)
	assert.Equal(t, 7.183, best.Confidence)
}

func TestParse_LineVariants(t *testing.T) {
	tests := []struct {
		name string
		line string
		want *types.TrackCandidate
	}{
		{"canonical", "TRACK 0: OFFSET 0, CONF 7.996", &types.TrackCandidate{Track: 0, Offset: 0, Confidence: 7.996}},
		{"surrounding spaces", "   TRACK 3:  OFFSET  -12 ,  CONF   1.250   ", &types.TrackCandidate{Track: 3, Offset: -12, Confidence: 1.25}},
		{"tab separated", "TRACK\t2:\tOFFSET\t4,\tCONF\t0.5", &types.TrackCandidate{Track: 2, Offset: 4, Confidence: 0.5}},
		{"integer confidence", "TRACK 1: OFFSET 1, CONF 9", &types.TrackCandidate{Track: 1, Offset: 1, Confidence: 9}},
		{"explicit plus offset", "TRACK 1: OFFSET +3, CONF 2.0", &types.TrackCandidate{Track: 1, Offset: 3, Confidence: 2}},
		{"missing conf", "TRACK 1: OFFSET 3", nil},
		{"float offset", "TRACK 1: OFFSET 3.5, CONF 2.0", nil},
		{"wrong separator", "TRACK 1; OFFSET 3, CONF 2.0", nil},
		{"lowercase", "track 1: offset 3, conf 2.0", nil},
		{"offset out of range", "TRACK 0: OFFSET 9223372036854775808, CONF 9.0", nil},
		{"most negative offset", "TRACK 0: OFFSET -9223372036854775808, CONF 9.0", nil},
		{"largest offset", "TRACK 0: OFFSET 9223372036854775807, CONF 9.0", &types.TrackCandidate{Track: 0, Offset: 9223372036854775807, Confidence: 9}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cands, errs := ParseString(tt.line)
			if tt.want == nil {
				assert.Empty(t, cands)
				assert.Len(t, errs, 1)
				return
			}
			assert.Empty(t, errs)
			require.Len(t, cands, 1)
			assert.Equal(t, *tt.want, cands[0])
		})
	}
}

func TestParse_EmptyInput(t *testing.T) {
	cands, errs := ParseString("\n\n   \n")
	assert.Empty(t, cands)
	assert.Empty(t, errs)

	_, ok := Best(cands)
	assert.False(t, ok)
}

func TestBest_FirstMaximumWins(t *testing.T) {
	cands := []types.TrackCandidate{
		{Track: 0, Offset: 1, Confidence: 5.0},
		{Track: 1, Offset: 2, Confidence: 3.0},
		{Track: 2, Offset: 3, Confidence: 5.0},
	}
	best, ok := Best(cands)
	require.True(t, ok)
	assert.Equal(t, 0, best.Track)
	assert.Equal(t, 1, best.Offset)
}

func TestBest_LowConfidenceOnly(t *testing.T) {
	best, ok := Best([]types.TrackCandidate{{Track: 0, Confidence: 0}, {Track: 1, Confidence: 0}})
	require.True(t, ok)
	assert.Equal(t, 0, best.Track)
}

func TestParseFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "offsets.txt")
	require.NoError(t, os.WriteFile(path, []byte("TRACK 0: OFFSET 2, CONF 4.100\nTRACK 1: OFFSET -3, CONF 6.020\n"), 0o644))

	cands, errs, err := ParseFile(path)
	require.NoError(t, err)
	assert.Empty(t, errs)
	require.Len(t, cands, 2)

	best, _ := Best(cands)
	assert.Equal(t, 1, best.Track)

	_, _, err = ParseFile(filepath.Join(dir, "missing.txt"))
	assert.Error(t, err)
}
