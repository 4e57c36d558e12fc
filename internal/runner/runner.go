// Package runner executes external tools, capturing their exit code and
// output streams with an optional timeout and an output size cap.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"github.com/google/uuid"
)

// DefaultMaxOutput is used when MaxOutput is not set.
const DefaultMaxOutput = 1 << 20 // 1 MB

// Runner executes one command at a time and waits for it to exit.
type Runner struct {
	Timeout   time.Duration // zero means wait for the process indefinitely
	MaxOutput int           // bytes per stream; zero means DefaultMaxOutput
}

// Run executes a command with the given argv. The first element is the
// binary (a path or a name resolved via PATH), the rest are arguments.
//
// A non-zero exit status is not an error: it is reported in
// Result.ExitCode. An error is returned only when the process could not
// be started or waited for.
func (r *Runner) Run(ctx context.Context, argv []string) (*Result, error) {
	if len(argv) == 0 {
		return nil, fmt.Errorf("empty argv")
	}

	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	maxOutput := r.MaxOutput
	if maxOutput <= 0 {
		maxOutput = DefaultMaxOutput
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)

	var stdout, stderr bytes.Buffer
	stdoutW := &limitWriter{buf: &stdout, limit: maxOutput}
	stderrW := &limitWriter{buf: &stderr, limit: maxOutput}
	cmd.Stdout = stdoutW
	cmd.Stderr = stderrW

	start := time.Now()
	runErr := cmd.Run()
	elapsed := time.Since(start)

	truncated := stdoutW.dropped || stderrW.dropped

	exitCode := 0
	if runErr != nil {
		var exitErr *exec.ExitError
		if !errors.As(runErr, &exitErr) {
			// Binary not found or other exec error.
			return nil, fmt.Errorf("executing %s: %w", argv[0], runErr)
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("executing %s: %w", argv[0], ctxErr)
		}
		exitCode = exitErr.ExitCode()
	}

	return &Result{
		RunID:     uuid.New().String(),
		Argv:      append([]string(nil), argv...),
		ExitCode:  exitCode,
		Stdout:    stdout.Bytes(),
		Stderr:    stderr.Bytes(),
		Truncated: truncated,
		Duration:  elapsed,
	}, nil
}

// limitWriter writes up to limit bytes to buf, then silently discards the
// rest and records that it did.
type limitWriter struct {
	buf     *bytes.Buffer
	limit   int
	dropped bool
}

func (w *limitWriter) Write(p []byte) (int, error) {
	remaining := w.limit - w.buf.Len()
	if len(p) > remaining {
		w.dropped = true
		if remaining > 0 {
			w.buf.Write(p[:remaining])
		}
		// Report all bytes as consumed to avoid short write errors from io.Copy.
		return len(p), nil
	}
	return w.buf.Write(p)
}
