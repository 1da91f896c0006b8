package chunks

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forPelevin/syncsieve/internal/types"
)

func TestPlanBySilence_SplitsAtMidpoints(t *testing.T) {
	silences := []types.Silence{
		{Start: 20, End: 22},
		{Start: 41, End: 44},
	}
	got, err := PlanBySilence(70, silences, 5)
	require.NoError(t, err)

	want := []types.Chunk{
		{Index: 0, Start: 0, End: 21, Duration: 21},
		{Index: 1, Start: 21, End: 42.5, Duration: 21.5},
		{Index: 2, Start: 42.5, End: 70, Duration: 27.5},
	}
	assert.Equal(t, want, got)
}

func TestPlanBySilence_SkipsShortSegments(t *testing.T) {
	// cuts at 1, 4, 30 and 68: [0,1) [1,4) and [68,70) are too short
	silences := []types.Silence{
		{Start: -0.5, End: 2.5},
		{Start: 3, End: 5},
		{Start: 29, End: 31},
		{Start: 67, End: 69},
	}
	got, err := PlanBySilence(70, silences, 5)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, types.Chunk{Index: 0, Start: 4, End: 30, Duration: 26}, got[0])
	assert.Equal(t, types.Chunk{Index: 1, Start: 30, End: 68, Duration: 38}, got[1])
}

func TestPlanBySilence_NoSilence(t *testing.T) {
	got, err := PlanBySilence(42, nil, 0)
	require.NoError(t, err)
	assert.Equal(t, []types.Chunk{{Index: 0, Start: 0, End: 42, Duration: 42}}, got)

	got, err = PlanBySilence(4, nil, 0)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestPlanBySilence_IgnoresCutsOutsideVideo(t *testing.T) {
	silences := []types.Silence{
		{Start: -3, End: -1},
		{Start: 60, End: 80},
		{Start: 90, End: 95},
		{Start: 10, End: 10},
		{Start: 10, End: 10},
	}
	got, err := PlanBySilence(60, silences, 5)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 10.0, got[0].End)
	assert.Equal(t, 60.0, got[1].End)
	for i, c := range got {
		assert.Equal(t, i, c.Index)
		assert.Greater(t, c.Duration, 0.0)
	}
}

func TestPlanBySilence_Invalid(t *testing.T) {
	_, err := PlanBySilence(0, nil, 5)
	assert.ErrorIs(t, err, types.ErrConfiguration)
	_, err = PlanBySilence(math.NaN(), nil, 5)
	assert.ErrorIs(t, err, types.ErrConfiguration)
	_, err = PlanBySilence(60, nil, math.NaN())
	assert.ErrorIs(t, err, types.ErrConfiguration)
}
