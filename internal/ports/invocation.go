package ports

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/forPelevin/syncsieve/internal/types"
)

// Invocation is an argument vector plus working directory. Nothing is passed
// through a shell.
type Invocation struct {
	Stage string
	Name  string
	Args  []string
	Dir   string
	Env   []string
	// CaptureLimit overrides the runner's per-stream capture size when > 0.
	CaptureLimit int
}

func (i Invocation) Command() []string {
	return append([]string{i.Name}, i.Args...)
}

type Result struct {
	Stage    string
	Command  []string
	ExitCode int
	Stdout   string
	Stderr   string
	Duration time.Duration
	// Err is set when the process could not start or did not exit cleanly.
	Err error
}

func (r Result) OK() bool {
	return r.Err == nil && r.ExitCode == 0
}

// Failure returns nil for a successful run, otherwise a *StageFailure.
func (r Result) Failure() error {
	if r.OK() {
		return nil
	}
	return &StageFailure{Stage: r.Stage, ExitCode: r.ExitCode, Stderr: r.Stderr, Err: r.Err}
}

// StageFailure is a non-zero exit (or failed start) of an external stage.
type StageFailure struct {
	Stage    string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *StageFailure) Error() string {
	msg := fmt.Sprintf("%s failed (exit code %d)", e.Stage, e.ExitCode)
	if e.Err != nil && e.ExitCode < 0 {
		msg += ": " + e.Err.Error()
	}
	if tail := lastLine(e.Stderr); tail != "" {
		msg += ": " + tail
	}
	return msg
}

func (e *StageFailure) Unwrap() []error {
	if e.Err == nil {
		return []error{types.ErrStageFailure}
	}
	return []error{types.ErrStageFailure, e.Err}
}

// IsStageFailure reports whether err carries a *StageFailure.
func IsStageFailure(err error) bool {
	var sf *StageFailure
	return errors.As(err, &sf)
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[i+1:])
	}
	return s
}
