// Package report builds, persists and analyzes the batch summary written at
// the end of every run.
package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/forPelevin/syncsieve/internal/types"
)

const FileName = "sync_report.json"

const (
	ModeDirectory = "directory"
	ModeChunk     = "chunk"
)

type Chunking struct {
	Split            string  `json:"split,omitempty"`
	ChunkLength      float64 `json:"chunk_length"`
	Overlap          float64 `json:"overlap"`
	MinChunkLength   float64 `json:"min_chunk_length"`
	SilenceThreshold float64 `json:"silence_threshold_db,omitempty"`
	MinSilence       float64 `json:"min_silence,omitempty"`
}

// Record is the persisted view of one finished job.
type Record struct {
	Reference          string                 `json:"reference"`
	Source             string                 `json:"source"`
	Chunk              *types.Chunk           `json:"chunk,omitempty"`
	Status             types.JobState         `json:"status"`
	Message            string                 `json:"message,omitempty"`
	Offset             *int                   `json:"offset,omitempty"`
	Confidence         *float64               `json:"confidence,omitempty"`
	Tracks             []types.TrackCandidate `json:"tracks,omitempty"`
	Passed             *bool                  `json:"passed,omitempty"`
	Reasons            []string               `json:"reasons,omitempty"`
	Artifacts          []types.Artifact       `json:"artifacts,omitempty"`
	CopyErrors         []string               `json:"copy_errors,omitempty"`
	VisualizationError string                 `json:"visualization_error,omitempty"`
	Cached             bool                   `json:"cached,omitempty"`
	StartedAt          time.Time              `json:"started_at"`
	FinishedAt         time.Time              `json:"finished_at"`
	DurationSec        float64                `json:"duration_sec"`
}

func FromJob(j types.Job) Record {
	r := Record{
		Reference:          j.Reference,
		Source:             j.Source,
		Chunk:              j.Chunk,
		Status:             j.State,
		Message:            j.Message,
		Tracks:             j.Tracks,
		Artifacts:          j.Artifacts,
		CopyErrors:         j.CopyErrors,
		VisualizationError: j.VisualizationErr,
		Cached:             j.Cached,
		StartedAt:          j.StartedAt,
		FinishedAt:         j.FinishedAt,
		DurationSec:        math.Round(j.Duration().Seconds()*1000) / 1000,
	}
	if j.Best != nil {
		off, conf := j.Best.Offset, j.Best.Confidence
		r.Offset = &off
		r.Confidence = &conf
	}
	if j.Verdict != nil {
		passed := j.Verdict.Passed
		r.Passed = &passed
		r.Reasons = j.Verdict.Reasons
	}
	return r
}

// Meta describes the run a summary belongs to.
type Meta struct {
	RunID       string
	Mode        string
	Input       string
	GeneratedAt time.Time
	Thresholds  types.Thresholds
	Chunking    *Chunking
}

type Summary struct {
	RunID          string           `json:"run_id"`
	Mode           string           `json:"mode"`
	Input          string           `json:"input"`
	GeneratedAt    time.Time        `json:"generated_at"`
	Thresholds     types.Thresholds `json:"thresholds"`
	Chunking       *Chunking        `json:"chunking,omitempty"`
	Total          int              `json:"total"`
	Succeeded      int              `json:"succeeded"`
	Accepted       int              `json:"accepted"`
	Rejected       int              `json:"rejected"`
	NoFaces        int              `json:"no_faces"`
	Failed         int              `json:"failed"`
	AcceptanceRate float64          `json:"acceptance_rate"`
	Jobs           []Record         `json:"jobs"`
}

// NewRunID returns a fresh identifier for a batch run.
func NewRunID() string {
	return uuid.NewString()
}

// Build derives every count from records. It performs no I/O.
func Build(meta Meta, records []Record) Summary {
	s := Summary{
		RunID:       meta.RunID,
		Mode:        meta.Mode,
		Input:       meta.Input,
		GeneratedAt: meta.GeneratedAt,
		Thresholds:  meta.Thresholds,
		Chunking:    meta.Chunking,
		Total:       len(records),
		Jobs:        records,
	}
	if s.Jobs == nil {
		s.Jobs = []Record{}
	}
	for _, r := range records {
		switch r.Status {
		case types.StateAccepted:
			s.Accepted++
		case types.StateRejected:
			s.Rejected++
		case types.StateNoFaces:
			s.NoFaces++
		case types.StateFailed:
			s.Failed++
		}
	}
	s.Succeeded = s.Accepted + s.Rejected
	if s.Total > 0 {
		s.AcceptanceRate = math.Round(float64(s.Accepted)/float64(s.Total)*100*100) / 100
	}
	return s
}

// Save writes s as indented JSON, replacing path atomically.
func Save(path string, s Summary) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create report dir: %w", errors.Join(types.ErrIO, err))
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp report: %w", errors.Join(types.ErrIO, err))
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write report: %w", errors.Join(types.ErrIO, err))
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close report: %w", errors.Join(types.ErrIO, err))
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("chmod report: %w", errors.Join(types.ErrIO, err))
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("replace report: %w", errors.Join(types.ErrIO, err))
	}
	return nil
}

func Load(path string) (Summary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Summary{}, fmt.Errorf("read report %s: %w", path, err)
	}
	var s Summary
	if err := json.Unmarshal(data, &s); err != nil {
		return Summary{}, fmt.Errorf("parse report %s: %w", path, errors.Join(types.ErrParse, err))
	}
	return s, nil
}
