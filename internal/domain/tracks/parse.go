package tracks

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/forPelevin/syncsieve/internal/types"
)

// reTrack matches "TRACK <int>: OFFSET <int>, CONF <float>" with loose spacing.
var reTrack = regexp.MustCompile(
	`^\s*TRACK\s+(\d+)\s*:\s*OFFSET\s+([+-]?\d+)\s*,\s*CONF\s+([+-]?(?:\d+\.?\d*|\.\d+)(?:[eE][+-]?\d+)?)\s*$`)

// ParseError describes one line of a track file that could not be read.
type ParseError struct {
	Line int
	Text string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: unrecognized track result %q", e.Line, e.Text)
}

func (e *ParseError) Unwrap() error { return types.ErrParse }

// Parse reads track results from r. Malformed lines are skipped and reported
// in the returned error slice; blank lines are ignored.
func Parse(r io.Reader) ([]types.TrackCandidate, []error) {
	var (
		out  []types.TrackCandidate
		errs []error
	)
	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := sc.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		c, ok := parseLine(line)
		if !ok {
			errs = append(errs, &ParseError{Line: lineNo, Text: strings.TrimSpace(line)})
			continue
		}
		out = append(out, c)
	}
	if err := sc.Err(); err != nil {
		errs = append(errs, fmt.Errorf("%w: read track results: %v", types.ErrParse, err))
	}
	return out, errs
}

// ParseString is Parse over an in-memory string.
func ParseString(s string) ([]types.TrackCandidate, []error) {
	return Parse(strings.NewReader(s))
}

// ParseFile parses the track file at path. A read failure is returned as the
// error; per-line problems are returned in the slice.
func ParseFile(path string) ([]types.TrackCandidate, []error, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()
	cands, perr := Parse(f)
	return cands, perr, nil
}

func parseLine(line string) (types.TrackCandidate, bool) {
	m := reTrack.FindStringSubmatch(line)
	if m == nil {
		return types.TrackCandidate{}, false
	}
	idx, err := strconv.Atoi(m[1])
	if err != nil {
		return types.TrackCandidate{}, false
	}
	off, err := strconv.Atoi(m[2])
	if err != nil || off == math.MinInt {
		// |offset| must fit in an int.
		return types.TrackCandidate{}, false
	}
	conf, err := strconv.ParseFloat(m[3], 64)
	if err != nil {
		return types.TrackCandidate{}, false
	}
	return types.TrackCandidate{Track: idx, Offset: off, Confidence: conf}, true
}

// Best returns the candidate with the highest confidence. Ties keep the
// earliest one. ok is false for an empty slice.
func Best(cands []types.TrackCandidate) (best types.TrackCandidate, ok bool) {
	for i, c := range cands {
		if i == 0 || c.Confidence > best.Confidence {
			best = c
			ok = true
		}
	}
	return best, ok
}
