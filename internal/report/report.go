// Package report holds the structured outcome of a batch run over FLAC
// files. Results live in memory until the CLI prints them as text or
// JSON; their diagnostics can be filtered by minimum severity.
package report

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Kind identifies the type of a run.
type Kind string

const (
	// Check is a batch check running the configured steps.
	Check Kind = "check"
	// Hash prints the STREAMINFO checksum of each file.
	Hash Kind = "hash"
	// Reencode re-encodes each file in place.
	Reencode Kind = "reencode"
	// Test runs the integrity test on each file.
	Test Kind = "test"
)

// Status is the outcome of one step on one file.
type Status string

const (
	StatusPass        Status = "pass"
	StatusWarn        Status = "warn"
	StatusFail        Status = "fail"        // the file is defective
	StatusError       Status = "error"       // the step could not complete
	StatusUnavailable Status = "unavailable" // the tool is not installed
	StatusSkipped     Status = "skipped"
)

// Severity ranks diagnostics.
type Severity string

const (
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

var severityRank = map[Severity]int{
	SeverityWarning: 1,
	SeverityError:   2,
}

// ParseSeverity maps a severity name to a Severity. "warn" is accepted
// as an alias for "warning".
func ParseSeverity(s string) (Severity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "warning", "warn":
		return SeverityWarning, nil
	case "error":
		return SeverityError, nil
	}
	return "", fmt.Errorf("unknown severity %q (use warning or error)", s)
}

// RunResult holds the outcome of a run over a set of files.
type RunResult struct {
	ID    string       `json:"id"`
	Kind  Kind         `json:"kind"`
	Files []FileResult `json:"files"`
}

// New returns an empty result with a fresh run ID.
func New(kind Kind) *RunResult {
	return &RunResult{ID: uuid.New().String(), Kind: kind}
}

// FileResult holds the steps run on a single file.
type FileResult struct {
	Path     string        `json:"path"`
	Title    string        `json:"title,omitempty"`
	Artist   string        `json:"artist,omitempty"`
	Album    string        `json:"album,omitempty"`
	Checksum string        `json:"checksum,omitempty"`
	Error    string        `json:"error,omitempty"` // set when the file could not be probed
	Steps    []StepOutcome `json:"steps,omitempty"`
}

// StepOutcome is the result of one step.
type StepOutcome struct {
	Name    string `json:"name"`
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
	Detail  string `json:"detail,omitempty"` // tool output or install hint
}

// Status folds the step outcomes into a single file status: fail when
// the file could not be probed or any step did not pass or warn, warn
// when any step warned, pass otherwise. Skipped steps are ignored.
func (f *FileResult) Status() Status {
	if f.Error != "" {
		return StatusFail
	}
	status := StatusPass
	for _, s := range f.Steps {
		switch s.Status {
		case StatusPass, StatusSkipped:
		case StatusWarn:
			status = StatusWarn
		default:
			return StatusFail
		}
	}
	return status
}

// Step returns the outcome of the named step, or nil if it did not run.
func (f *FileResult) Step(name string) *StepOutcome {
	for i := range f.Steps {
		if f.Steps[i].Name == name {
			return &f.Steps[i]
		}
	}
	return nil
}

// Summary counts files by status.
type Summary struct {
	Files  int `json:"files"`
	Passed int `json:"passed"`
	Warned int `json:"warned"`
	Failed int `json:"failed"`
}

// OK reports whether no file failed. Warnings are allowed.
func (s Summary) OK() bool {
	return s.Failed == 0
}

// Summarize counts the files of r by status.
func Summarize(r *RunResult) Summary {
	s := Summary{Files: len(r.Files)}
	for i := range r.Files {
		switch r.Files[i].Status() {
		case StatusPass:
			s.Passed++
		case StatusWarn:
			s.Warned++
		default:
			s.Failed++
		}
	}
	return s
}

// Diagnostic is a uniform view of a warning or failure on one file.
type Diagnostic struct {
	Severity Severity `json:"severity"`
	File     string   `json:"file"`
	Step     string   `json:"step"` // "probe" when the file could not be identified
	Message  string   `json:"message"`
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s: %s: %s: %s", d.File, d.Step, d.Severity, d.Message)
}

// Diagnostics returns every warning and failure in r, in file order.
func Diagnostics(r *RunResult) []Diagnostic {
	var out []Diagnostic
	for _, f := range r.Files {
		if f.Error != "" {
			out = append(out, Diagnostic{
				Severity: SeverityError,
				File:     f.Path,
				Step:     "probe",
				Message:  f.Error,
			})
		}
		for _, s := range f.Steps {
			sev, ok := severityOf(s.Status)
			if !ok {
				continue
			}
			msg := s.Message
			if msg == "" {
				msg = string(s.Status)
			}
			out = append(out, Diagnostic{
				Severity: sev,
				File:     f.Path,
				Step:     s.Name,
				Message:  msg,
			})
		}
	}
	return out
}

// BySeverity returns the diagnostics at or above min.
func BySeverity(r *RunResult, min Severity) []Diagnostic {
	var out []Diagnostic
	for _, d := range Diagnostics(r) {
		if severityRank[d.Severity] >= severityRank[min] {
			out = append(out, d)
		}
	}
	return out
}

func severityOf(s Status) (Severity, bool) {
	switch s {
	case StatusWarn:
		return SeverityWarning, true
	case StatusFail, StatusError, StatusUnavailable:
		return SeverityError, true
	}
	return "", false
}
