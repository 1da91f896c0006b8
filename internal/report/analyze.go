package report

import (
	"math"
	"sort"
	"strings"

	"github.com/forPelevin/syncsieve/internal/types"
)

// Confidence bucket bounds.
const (
	HighConfidence   = 5.0
	MediumConfidence = 2.0
)

type Stats struct {
	Scored        int     `json:"scored"`
	AvgConfidence float64 `json:"avg_confidence"`
	MinConfidence float64 `json:"min_confidence"`
	MaxConfidence float64 `json:"max_confidence"`
	AvgAbsOffset  float64 `json:"avg_abs_offset"`

	High   int `json:"high"`
	Medium int `json:"medium"`
	Low    int `json:"low"`

	Best  *Record `json:"best,omitempty"`
	Worst *Record `json:"worst,omitempty"`

	// Reasons counts rejection reasons by kind ("Low confidence", "High
	// offset").
	Reasons map[string]int `json:"reasons"`
}

// Analyze summarizes every record that carries a score.
func Analyze(s Summary) Stats {
	st := Stats{Reasons: map[string]int{}}
	var sumConf, sumOff float64
	for i := range s.Jobs {
		r := &s.Jobs[i]
		for _, reason := range r.Reasons {
			st.Reasons[reasonKind(reason)]++
		}
		if r.Confidence == nil {
			continue
		}
		c := *r.Confidence
		off := 0
		if r.Offset != nil {
			off = *r.Offset
		}

		st.Scored++
		sumConf += c
		sumOff += math.Abs(float64(off))
		if st.Best == nil || c > *st.Best.Confidence {
			st.Best = r
		}
		if st.Worst == nil || c < *st.Worst.Confidence {
			st.Worst = r
		}
		switch {
		case c > HighConfidence:
			st.High++
		case c >= MediumConfidence:
			st.Medium++
		default:
			st.Low++
		}
	}
	if st.Scored > 0 {
		st.AvgConfidence = sumConf / float64(st.Scored)
		st.AvgAbsOffset = sumOff / float64(st.Scored)
		st.MinConfidence = *st.Worst.Confidence
		st.MaxConfidence = *st.Best.Confidence
	}
	return st
}

// ReasonKinds returns the reason histogram keys sorted by count, then name.
func (st Stats) ReasonKinds() []string {
	keys := make([]string, 0, len(st.Reasons))
	for k := range st.Reasons {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if st.Reasons[keys[i]] != st.Reasons[keys[j]] {
			return st.Reasons[keys[i]] > st.Reasons[keys[j]]
		}
		return keys[i] < keys[j]
	})
	return keys
}

func reasonKind(reason string) string {
	if i := strings.Index(reason, ":"); i > 0 {
		return reason[:i]
	}
	return reason
}

// Side is one report's contribution to a Comparison.
type Side struct {
	RunID          string           `json:"run_id"`
	Thresholds     types.Thresholds `json:"thresholds"`
	Total          int              `json:"total"`
	Succeeded      int              `json:"succeeded"`
	Accepted       int              `json:"accepted"`
	AcceptanceRate float64          `json:"acceptance_rate"`
	AvgConfidence  float64          `json:"avg_confidence"`
	AvgAbsOffset   float64          `json:"avg_abs_offset"`
}

type Comparison struct {
	A Side `json:"a"`
	B Side `json:"b"`

	AcceptedDelta   int     `json:"accepted_delta"`
	RateDelta       float64 `json:"rate_delta"`
	ConfidenceDelta float64 `json:"confidence_delta"`
	AbsOffsetDelta  float64 `json:"abs_offset_delta"`

	// OnlyA and OnlyB list references accepted by one report but not the
	// other.
	OnlyA []string `json:"only_a"`
	OnlyB []string `json:"only_b"`
}

// Compare reports how b differs from a. Averages cover accepted records.
func Compare(a, b Summary) Comparison {
	sa, sb := side(a), side(b)
	c := Comparison{
		A:               sa,
		B:               sb,
		AcceptedDelta:   sb.Accepted - sa.Accepted,
		RateDelta:       sb.AcceptanceRate - sa.AcceptanceRate,
		ConfidenceDelta: sb.AvgConfidence - sa.AvgConfidence,
		AbsOffsetDelta:  sb.AvgAbsOffset - sa.AvgAbsOffset,
	}
	inA, inB := acceptedRefs(a), acceptedRefs(b)
	for ref := range inA {
		if !inB[ref] {
			c.OnlyA = append(c.OnlyA, ref)
		}
	}
	for ref := range inB {
		if !inA[ref] {
			c.OnlyB = append(c.OnlyB, ref)
		}
	}
	sort.Strings(c.OnlyA)
	sort.Strings(c.OnlyB)
	return c
}

// Recommendation grades an acceptance rate.
func Recommendation(rate float64) string {
	switch {
	case rate >= 70:
		return "excellent: most chunks meet the thresholds"
	case rate >= 50:
		return "moderate: consider relaxing the thresholds slightly or checking source quality"
	case rate >= 30:
		return "low: consider a more relaxed preset or better synced sources"
	default:
		return "very low: check source quality or run with the none preset to inspect scores"
	}
}

func side(s Summary) Side {
	out := Side{
		RunID:          s.RunID,
		Thresholds:     s.Thresholds,
		Total:          s.Total,
		Succeeded:      s.Succeeded,
		Accepted:       s.Accepted,
		AcceptanceRate: s.AcceptanceRate,
	}
	n := 0
	for _, r := range s.Jobs {
		if r.Status != types.StateAccepted || r.Confidence == nil {
			continue
		}
		n++
		out.AvgConfidence += *r.Confidence
		if r.Offset != nil {
			out.AvgAbsOffset += math.Abs(float64(*r.Offset))
		}
	}
	if n > 0 {
		out.AvgConfidence /= float64(n)
		out.AvgAbsOffset /= float64(n)
	}
	return out
}

func acceptedRefs(s Summary) map[string]bool {
	out := map[string]bool{}
	for _, r := range s.Jobs {
		if r.Status == types.StateAccepted {
			out[r.Reference] = true
		}
	}
	return out
}
