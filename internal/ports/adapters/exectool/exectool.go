// Package exectool runs external executables with bounded output capture.
package exectool

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/forPelevin/syncsieve/internal/ports"
)

// DefaultCaptureLimit bounds stdout and stderr independently.
const DefaultCaptureLimit = 64 << 10

// waitDelay bounds how long Run waits for output pipes after the process
// has been killed.
const waitDelay = 5 * time.Second

type Runner struct {
	// CaptureLimit is the number of trailing bytes kept per stream.
	CaptureLimit int
	// Tee, when set, also receives stderr as it is produced.
	Tee io.Writer
}

func New() *Runner {
	return &Runner{CaptureLimit: DefaultCaptureLimit}
}

// Run executes inv and waits for it. A non-zero exit is reported in the
// Result and never as a separate error.
func (r *Runner) Run(ctx context.Context, inv ports.Invocation) ports.Result {
	limit := r.CaptureLimit
	if inv.CaptureLimit > 0 {
		limit = inv.CaptureLimit
	}
	if limit <= 0 {
		limit = DefaultCaptureLimit
	}

	res := ports.Result{Stage: inv.Stage, Command: inv.Command()}
	if inv.Name == "" {
		res.ExitCode = -1
		res.Err = errors.New("empty command name")
		return res
	}

	cmd := exec.CommandContext(ctx, inv.Name, inv.Args...)
	cmd.WaitDelay = waitDelay
	if inv.Dir != "" {
		cmd.Dir = inv.Dir
	}
	if len(inv.Env) > 0 {
		cmd.Env = append(os.Environ(), inv.Env...)
	}

	stdout := &tailBuffer{limit: limit}
	stderr := &tailBuffer{limit: limit}
	cmd.Stdout = stdout
	if r.Tee != nil {
		cmd.Stderr = io.MultiWriter(stderr, r.Tee)
	} else {
		cmd.Stderr = stderr
	}

	start := time.Now()
	err := cmd.Run()
	res.Duration = time.Since(start)
	res.Stdout = stdout.String()
	res.Stderr = stderr.String()

	if err == nil {
		return res
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.ExitCode = exitErr.ExitCode()
		if res.ExitCode < 0 {
			// killed by a signal, usually the stage timeout
			res.Err = err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			res.Err = fmt.Errorf("%s: %w", inv.Stage, ctxErr)
		}
		return res
	}
	res.ExitCode = -1
	res.Err = err
	return res
}

// Check verifies that every named binary resolves on PATH (or as a path).
func Check(names ...string) error {
	var missing []string
	for _, n := range names {
		if n == "" {
			continue
		}
		if _, err := exec.LookPath(n); err != nil {
			missing = append(missing, n)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing dependencies: %s", strings.Join(missing, ", "))
	}
	return nil
}

// tailBuffer keeps the last limit bytes written to it.
type tailBuffer struct {
	mu    sync.Mutex
	buf   []byte
	limit int
}

func (b *tailBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := len(p)
	b.buf = append(b.buf, p...)
	if over := len(b.buf) - b.limit; over > 0 {
		b.buf = append(b.buf[:0], b.buf[over:]...)
	}
	return n, nil
}

func (b *tailBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return string(b.buf)
}

var _ ports.Invoker = (*Runner)(nil)
