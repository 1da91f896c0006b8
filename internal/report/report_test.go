package report

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forPelevin/syncsieve/internal/types"
)

func scored(ref string, state types.JobState, offset int, conf float64, reasons ...string) Record {
	passed := state == types.StateAccepted
	return Record{Reference: ref, Status: state, Offset: &offset, Confidence: &conf, Passed: &passed, Reasons: reasons}
}

func sample() []Record {
	return []Record{
		scored("chunk_000", types.StateAccepted, -1, 7.2),
		scored("chunk_001", types.StateRejected, 2, 4.9, "Low confidence: 4.9 < 5.0"),
		scored("chunk_002", types.StateRejected, 6, 1.5, "Low confidence: 1.5 < 5.0", "High offset: 6 > 3"),
		{Reference: "chunk_003", Status: types.StateNoFaces, Message: "no face tracks detected"},
		{Reference: "chunk_004", Status: types.StateFailed, Message: "preprocess failed (exit code 1)"},
		scored("chunk_005", types.StateAccepted, 0, 5.0),
		scored("chunk_006", types.StateAccepted, 3, 3.0),
	}
}

func TestBuild_Counts(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	s := Build(Meta{
		RunID:       "r1",
		Mode:        ModeChunk,
		Input:       "/v/long.mp4",
		GeneratedAt: now,
		Thresholds:  types.Thresholds{Preset: "medium", MinConfidence: 2.5, MaxAbsOffset: 8},
		Chunking:    &Chunking{ChunkLength: 30, Overlap: 5, MinChunkLength: 5},
	}, sample())

	assert.Equal(t, 7, s.Total)
	assert.Equal(t, 3, s.Accepted)
	assert.Equal(t, 2, s.Rejected)
	assert.Equal(t, 5, s.Succeeded)
	assert.Equal(t, 1, s.NoFaces)
	assert.Equal(t, 1, s.Failed)
	assert.Equal(t, 42.86, s.AcceptanceRate)
	assert.Equal(t, now, s.GeneratedAt)
	assert.Len(t, s.Jobs, 7)
}

func TestBuild_Empty(t *testing.T) {
	t.Parallel()

	s := Build(Meta{RunID: "x"}, nil)
	assert.Equal(t, 0, s.Total)
	assert.Equal(t, 0.0, s.AcceptanceRate)
	assert.NotNil(t, s.Jobs)
}

func TestFromJob(t *testing.T) {
	t.Parallel()

	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	j := types.Job{
		Reference:  "chunk_001",
		Source:     "/v/long.mp4",
		Chunk:      &types.Chunk{Index: 1, Start: 25, End: 55, Duration: 30},
		State:      types.StateRejected,
		Message:    "High offset: 4 > 3",
		Best:       &types.TrackCandidate{Track: 0, Offset: -4, Confidence: 8},
		Verdict:    &types.Verdict{Passed: false, Reasons: []string{"High offset: 4 > 3"}},
		StartedAt:  start,
		FinishedAt: start.Add(1500 * time.Millisecond),
	}
	r := FromJob(j)
	require.NotNil(t, r.Offset)
	require.NotNil(t, r.Confidence)
	require.NotNil(t, r.Passed)
	assert.Equal(t, -4, *r.Offset)
	assert.Equal(t, 8.0, *r.Confidence)
	assert.False(t, *r.Passed)
	assert.Equal(t, 1.5, r.DurationSec)
	assert.Equal(t, types.StateRejected, r.Status)

	failed := FromJob(types.Job{Reference: "x", State: types.StateFailed, Message: "boom"})
	assert.Nil(t, failed.Offset)
	assert.Nil(t, failed.Passed)
}

func TestSaveLoad(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "out", FileName)
	s := Build(Meta{RunID: NewRunID(), Mode: ModeDirectory, Input: "/in", GeneratedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}, sample())

	require.NoError(t, Save(path, s))
	require.NoError(t, Save(path, s))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, s, got)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")
}

func TestSave_JSONShape(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, Save(path, Build(Meta{RunID: "r", Mode: ModeDirectory}, sample()[3:5])))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	var raw map[string]any
	require.NoError(t, json.Unmarshal(b, &raw))
	for _, k := range []string{"run_id", "mode", "input", "generated_at", "thresholds", "total", "succeeded", "accepted", "rejected", "no_faces", "failed", "acceptance_rate", "jobs"} {
		assert.Contains(t, raw, k)
	}
	assert.NotContains(t, raw, "chunking")
	job := raw["jobs"].([]any)[0].(map[string]any)
	assert.Equal(t, "no_faces", job["status"])
	assert.NotContains(t, job, "offset")
}

func TestLoad_Errors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	_, err := Load(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{"), 0o644))
	_, err = Load(bad)
	assert.ErrorIs(t, err, types.ErrParse)
}

func TestNewRunID(t *testing.T) {
	t.Parallel()

	id := NewRunID()
	_, err := uuid.Parse(id)
	assert.NoError(t, err)
	assert.NotEqual(t, id, NewRunID())
}

func TestAnalyze(t *testing.T) {
	t.Parallel()

	st := Analyze(Build(Meta{}, sample()))

	assert.Equal(t, 5, st.Scored)
	assert.InDelta(t, (7.2+4.9+1.5+5.0+3.0)/5, st.AvgConfidence, 1e-9)
	assert.InDelta(t, (1.0+2+6+0+3)/5, st.AvgAbsOffset, 1e-9)
	assert.Equal(t, 1.5, st.MinConfidence)
	assert.Equal(t, 7.2, st.MaxConfidence)
	assert.Equal(t, 1, st.High)
	assert.Equal(t, 3, st.Medium)
	assert.Equal(t, 1, st.Low)
	require.NotNil(t, st.Best)
	assert.Equal(t, "chunk_000", st.Best.Reference)
	assert.Equal(t, "chunk_002", st.Worst.Reference)
	assert.Equal(t, map[string]int{"Low confidence": 2, "High offset": 1}, st.Reasons)
	assert.Equal(t, []string{"Low confidence", "High offset"}, st.ReasonKinds())
}

func TestAnalyze_NoScores(t *testing.T) {
	t.Parallel()

	st := Analyze(Build(Meta{}, sample()[3:5]))
	assert.Equal(t, 0, st.Scored)
	assert.Nil(t, st.Best)
	assert.Equal(t, 0.0, st.AvgConfidence)
}

func TestCompare(t *testing.T) {
	t.Parallel()

	loose := Build(Meta{RunID: "a"}, sample())
	strict := Build(Meta{RunID: "b"}, []Record{
		scored("chunk_000", types.StateAccepted, -1, 7.2),
		scored("chunk_005", types.StateRejected, 0, 5.0, "Low confidence: 5.0 < 6.0"),
		scored("chunk_007", types.StateAccepted, 1, 6.8),
	})

	c := Compare(loose, strict)
	assert.Equal(t, 3, c.A.Accepted)
	assert.Equal(t, 2, c.B.Accepted)
	assert.Equal(t, -1, c.AcceptedDelta)
	assert.InDelta(t, 66.67-42.86, c.RateDelta, 1e-9)
	assert.InDelta(t, 7.0-5.066666666, c.ConfidenceDelta, 1e-6)
	assert.Equal(t, []string{"chunk_005", "chunk_006"}, c.OnlyA)
	assert.Equal(t, []string{"chunk_007"}, c.OnlyB)
}

func TestRecommendation(t *testing.T) {
	t.Parallel()

	assert.Contains(t, Recommendation(70), "excellent")
	assert.Contains(t, Recommendation(50), "moderate")
	assert.Contains(t, Recommendation(30), "low")
	assert.Contains(t, Recommendation(29.9), "very low")
}
