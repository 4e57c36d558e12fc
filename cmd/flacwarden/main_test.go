package main

import (
	"errors"
	"slices"
	"strings"
	"testing"

	"github.com/deixis/flacwarden/internal/report"
	"github.com/deixis/flacwarden/internal/workflow"
)

func newResult(kind report.Kind, files ...report.FileResult) *workflow.CheckResult {
	rr := report.New(kind)
	rr.Files = files
	return &workflow.CheckResult{RunResult: rr, Summary: report.Summarize(rr)}
}

func TestSplitList(t *testing.T) {
	got := splitList(" test, hash,,reencode ")
	want := []string{"test", "hash", "reencode"}
	if !slices.Equal(got, want) {
		t.Errorf("splitList = %v, want %v", got, want)
	}
}

func TestFormatRun_Hash(t *testing.T) {
	result := newResult(report.Hash,
		report.FileResult{
			Path:     "/music/a.flac",
			Checksum: "d41d8cd98f00b204e9800998ecf8427e",
			Steps:    []report.StepOutcome{{Name: "hash", Status: report.StatusPass}},
		},
		report.FileResult{Path: "/music/b.flac", Error: "/music/b.flac: not a FLAC file"},
	)

	got := formatRun(result, false, "")
	want := "d41d8cd98f00b204e9800998ecf8427e  /music/a.flac\n" +
		"/music/b.flac: FAIL /music/b.flac: not a FLAC file\n"
	if got != want {
		t.Errorf("formatRun =\n%s\nwant\n%s", got, want)
	}
}

func TestFormatRun_Test(t *testing.T) {
	result := newResult(report.Test,
		report.FileResult{
			Path:  "a.flac",
			Steps: []report.StepOutcome{{Name: "test", Status: report.StatusPass, Message: "ok"}},
		},
		report.FileResult{
			Path: "b.flac",
			Steps: []report.StepOutcome{{
				Name:    "test",
				Status:  report.StatusWarn,
				Message: "WARNING cannot check MD5 signature",
			}},
		},
	)

	got := formatRun(result, false, "")
	want := "a.flac: ok\nb.flac: WARN WARNING cannot check MD5 signature\n"
	if got != want {
		t.Errorf("formatRun =\n%s\nwant\n%s", got, want)
	}
}

func TestFormatRun_Check(t *testing.T) {
	result := newResult(report.Check,
		report.FileResult{
			Path: "a.flac",
			Steps: []report.StepOutcome{
				{Name: "test", Status: report.StatusPass, Message: "ok"},
				{Name: "hash", Status: report.StatusPass, Message: "d41d8cd98f00b204e9800998ecf8427e"},
			},
		},
		report.FileResult{
			Path: "b.flac",
			Steps: []report.StepOutcome{
				{Name: "test", Status: report.StatusError, Message: "flac exited with error code 1", Detail: "b.flac: unexpected"},
				{Name: "reencode", Status: report.StatusSkipped},
			},
		},
	)

	got := formatRun(result, false, "")
	for _, want := range []string{
		"FAIL\n",
		"a.flac\n  test       ok\n  hash       ok\n",
		"  test       ERROR flac exited with error code 1\n",
		"  reencode   -\n",
		"2 files: 1 ok, 0 warnings, 1 failed\n",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
	if strings.Contains(got, "b.flac: unexpected") {
		t.Error("tool output shown without -v")
	}

	verbose := formatRun(result, true, "")
	if !strings.Contains(verbose, "      b.flac: unexpected\n") {
		t.Errorf("verbose output missing tool detail:\n%s", verbose)
	}
	if !strings.Contains(verbose, "  hash       ok    d41d8cd98f00b204e9800998ecf8427e\n") {
		t.Errorf("verbose output missing checksum:\n%s", verbose)
	}
}

func TestFormatRun_CheckOK(t *testing.T) {
	result := newResult(report.Check, report.FileResult{
		Path:  "a.flac",
		Steps: []report.StepOutcome{{Name: "test", Status: report.StatusWarn, Message: "WARNING x"}},
	})

	got := formatRun(result, false, "")
	if !strings.HasPrefix(got, "ok\n") {
		t.Errorf("warnings alone should report ok:\n%s", got)
	}
	if !strings.Contains(got, "  test       WARN  WARNING x\n") {
		t.Errorf("missing warning line:\n%s", got)
	}
}

func TestFormatRun_MinSeverity(t *testing.T) {
	result := newResult(report.Check,
		report.FileResult{
			Path:  "a.flac",
			Steps: []report.StepOutcome{{Name: "test", Status: report.StatusWarn, Message: "WARNING x"}},
		},
		report.FileResult{
			Path:  "b.flac",
			Steps: []report.StepOutcome{{Name: "hash", Status: report.StatusError, Message: "metaflac exited with error code 1"}},
		},
	)

	got := formatRun(result, false, report.SeverityError)
	if !strings.Contains(got, "\nDiagnostics (error and above): 1\n  b.flac: hash: error: metaflac exited with error code 1\n") {
		t.Errorf("missing error diagnostics:\n%s", got)
	}
	if strings.Contains(got, "a.flac: test: warning") {
		t.Errorf("warning listed below the minimum severity:\n%s", got)
	}

	all := formatRun(result, false, report.SeverityWarning)
	if !strings.Contains(all, "  a.flac: test: warning: WARNING x\n") {
		t.Errorf("missing warning diagnostic:\n%s", all)
	}

	if none := formatRun(result, false, ""); strings.Contains(none, "Diagnostics") {
		t.Errorf("diagnostics listed without -min-severity:\n%s", none)
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, 0},
		{errFailed, 1},
		{errUsage, 2},
		{errors.New("loading config: boom"), 1},
	}
	for _, tt := range tests {
		if got := exitCode(tt.err); got != tt.want {
			t.Errorf("exitCode(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
