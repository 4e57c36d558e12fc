package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/deixis/flacwarden/internal/config"
	"github.com/deixis/flacwarden/internal/flac"
	"github.com/deixis/flacwarden/internal/report"
)

// RunOptions selects what a run does on each file.
type RunOptions struct {
	Kind     report.Kind
	Steps    []string // any of config.StepTest, StepHash, StepReencode
	TestOpts []string // extra flac flags for the test step
}

// CheckResult holds the full outcome of a run.
type CheckResult struct {
	RunResult *report.RunResult
	Summary   report.Summary
}

// Failed reports whether any file failed.
func (r *CheckResult) Failed() bool {
	return !r.Summary.OK()
}

var knownSteps = []string{config.StepTest, config.StepHash, config.StepReencode}

// Check runs the configured check steps on every file under paths.
func (e *Engine) Check(ctx context.Context, paths []string) (*CheckResult, error) {
	return e.Run(ctx, paths, RunOptions{Kind: report.Check, Steps: e.Config.CheckSteps()})
}

// Run processes every file under paths, running opts.Steps in order on
// each one. A failing file never stops the batch, and a failed test does
// not stop later steps on the same file, except that a file is never
// re-encoded after an earlier step failed.
//
// When ctx is cancelled the files processed so far are returned along
// with the context error.
func (e *Engine) Run(ctx context.Context, paths []string, opts RunOptions) (*CheckResult, error) {
	for _, step := range opts.Steps {
		if !slices.Contains(knownSteps, step) {
			return nil, fmt.Errorf("unknown step: %s", step)
		}
	}

	files, err := e.Discover(paths)
	if err != nil {
		return nil, err
	}

	rr := report.New(opts.Kind)
	log := e.logger().With("run_id", rr.ID, "kind", opts.Kind)
	log.InfoContext(ctx, "run started", "files", len(files), "steps", opts.Steps)

	for _, file := range files {
		if err := ctx.Err(); err != nil {
			log.WarnContext(ctx, "run interrupted", "processed", len(rr.Files), "error", err)
			return finish(rr), err
		}
		rr.Files = append(rr.Files, e.checkFile(ctx, log, file, opts))
	}

	result := finish(rr)
	log.InfoContext(ctx, "run complete",
		"passed", result.Summary.Passed,
		"warned", result.Summary.Warned,
		"failed", result.Summary.Failed,
	)
	return result, nil
}

func finish(rr *report.RunResult) *CheckResult {
	return &CheckResult{RunResult: rr, Summary: report.Summarize(rr)}
}

func (e *Engine) checkFile(ctx context.Context, log *slog.Logger, file string, opts RunOptions) report.FileResult {
	fr := report.FileResult{Path: file}
	log = log.With("file", file)

	info, err := flac.Probe(file)
	if err != nil {
		fr.Error = err.Error()
		for _, step := range opts.Steps {
			fr.Steps = append(fr.Steps, report.StepOutcome{Name: step, Status: report.StatusSkipped})
		}
		log.WarnContext(ctx, "file skipped", "error", err)
		return fr
	}
	fr.Title, fr.Artist, fr.Album = info.Title, info.Artist, info.Album

	failed := false
	for _, step := range opts.Steps {
		var out report.StepOutcome
		switch step {
		case config.StepTest:
			out = e.runTest(ctx, file, opts.TestOpts)
		case config.StepHash:
			out = e.runHash(ctx, &fr)
		case config.StepReencode:
			if failed {
				out = report.StepOutcome{Name: step, Status: report.StatusSkipped, Message: "not re-encoded after an earlier failure"}
			} else {
				out = e.runReencode(ctx, &fr)
			}
		}
		switch out.Status {
		case report.StatusFail, report.StatusError, report.StatusUnavailable:
			failed = true
		}
		fr.Steps = append(fr.Steps, out)
	}

	switch status := fr.Status(); status {
	case report.StatusPass:
		log.InfoContext(ctx, "file checked", "status", status)
	case report.StatusWarn:
		log.WarnContext(ctx, "file checked", "status", status)
	default:
		log.ErrorContext(ctx, "file checked", "status", status)
	}
	return fr
}

func (e *Engine) runTest(ctx context.Context, file string, opts []string) report.StepOutcome {
	v, err := e.Tool.Test(ctx, file, opts...)
	if err != nil {
		return stepError(config.StepTest, err)
	}

	out := report.StepOutcome{Name: config.StepTest, Message: v.Message}
	switch v.Level {
	case flac.LevelOK:
		out.Status = report.StatusPass
	case flac.LevelWarning:
		out.Status = report.StatusWarn
	default:
		out.Status = report.StatusFail
	}
	return out
}

func (e *Engine) runHash(ctx context.Context, fr *report.FileResult) report.StepOutcome {
	sum, err := e.Tool.Hash(ctx, fr.Path)
	if err != nil {
		return stepError(config.StepHash, err)
	}
	fr.Checksum = sum

	if flac.IsUnset(sum) {
		return report.StepOutcome{Name: config.StepHash, Status: report.StatusWarn, Message: "MD5 signature unset in STREAMINFO"}
	}
	return report.StepOutcome{Name: config.StepHash, Status: report.StatusPass, Message: sum}
}

// runReencode re-encodes the file in place and compares the STREAMINFO
// checksum before and after. Re-encoding is lossless, so any change in a
// previously set checksum is a failure.
func (e *Engine) runReencode(ctx context.Context, fr *report.FileResult) report.StepOutcome {
	const name = config.StepReencode

	before, err := e.Tool.Hash(ctx, fr.Path)
	if err != nil {
		return stepError(name, fmt.Errorf("reading checksum before re-encoding: %w", err))
	}

	if err := e.Tool.Reencode(ctx, fr.Path); err != nil {
		var toolErr *flac.ToolError
		switch {
		case errors.Is(err, flac.ErrNotVerified):
			return report.StepOutcome{Name: name, Status: report.StatusFail, Message: err.Error()}
		case errors.As(err, &toolErr):
			return report.StepOutcome{Name: name, Status: report.StatusFail, Message: err.Error(), Detail: toolErr.Stderr}
		}
		return stepError(name, err)
	}

	after, err := e.Tool.Hash(ctx, fr.Path)
	if err != nil {
		return stepError(name, fmt.Errorf("reading checksum after re-encoding: %w", err))
	}
	fr.Checksum = after

	switch {
	case flac.IsUnset(after):
		return report.StepOutcome{Name: name, Status: report.StatusWarn, Message: "MD5 signature still unset after re-encoding"}
	case flac.IsUnset(before):
		return report.StepOutcome{Name: name, Status: report.StatusPass, Message: "checksum set to " + after}
	case before != after:
		return report.StepOutcome{Name: name, Status: report.StatusFail, Message: fmt.Sprintf("checksum changed: %s -> %s", before, after)}
	}
	return report.StepOutcome{Name: name, Status: report.StatusPass, Message: "verified, checksum unchanged"}
}

// stepError maps an error from the flac package to a step outcome.
func stepError(name string, err error) report.StepOutcome {
	var unavail flac.ErrToolUnavailable
	if errors.As(err, &unavail) {
		return report.StepOutcome{
			Name:    name,
			Status:  report.StatusUnavailable,
			Message: unavail.Name + " not found",
			Detail:  unavail.Error(),
		}
	}

	out := report.StepOutcome{Name: name, Status: report.StatusError, Message: err.Error()}
	var toolErr *flac.ToolError
	if errors.As(err, &toolErr) {
		out.Detail = toolErr.Stderr
	}
	return out
}
