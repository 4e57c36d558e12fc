package flac

import (
	"errors"
	"fmt"
	"strings"

	"github.com/deixis/flacwarden/internal/runner"
)

// Sentinel errors returned by the wrapper operations.
var (
	ErrNoChecksum  = errors.New("no checksum in metaflac output")
	ErrNotVerified = errors.New("flac did not report 'Verify OK'")
	ErrNotFLAC     = errors.New("not a FLAC file")
)

// ToolError reports a tool that exited with a non-zero status and whose
// output could not be classified.
type ToolError struct {
	Tool     string
	RunID    string
	ExitCode int
	Stderr   string
}

func newToolError(tool string, res *runner.Result) *ToolError {
	return &ToolError{
		Tool:     tool,
		RunID:    res.RunID,
		ExitCode: res.ExitCode,
		Stderr:   strings.TrimSpace(string(res.Stderr)),
	}
}

func (e *ToolError) Error() string {
	msg := fmt.Sprintf("%s exited with error code %d", e.Tool, e.ExitCode)
	if line := FirstLine(e.Stderr); line != "" {
		msg += ": " + line
	}
	return msg
}

// toolInfo holds install metadata for a known tool.
type toolInfo struct {
	Package string // distribution package providing the binary
	URL     string
}

// knownTools maps tool binary names to their install metadata.
var knownTools = map[string]toolInfo{
	"flac":     {Package: "flac", URL: "https://xiph.org/flac/download.html"},
	"metaflac": {Package: "flac", URL: "https://xiph.org/flac/download.html"},
}

// ErrToolUnavailable is returned when a required tool is not installed.
// It includes install instructions when the tool is known.
type ErrToolUnavailable struct {
	Name string
	Info *toolInfo
}

func NewErrToolUnavailable(name string) ErrToolUnavailable {
	e := ErrToolUnavailable{Name: name}
	if info, ok := knownTools[name]; ok {
		e.Info = &info
	}
	return e
}

func (e ErrToolUnavailable) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s is required but not installed.", e.Name)

	if e.Info == nil {
		return b.String()
	}

	fmt.Fprintln(&b)
	fmt.Fprintf(&b, "\nInstall the %q package with your system package manager", e.Info.Package)
	fmt.Fprintf(&b, "\n(e.g. apt install %s, brew install %s), or see %s", e.Info.Package, e.Info.Package, e.Info.URL)
	return b.String()
}

// FirstLine returns the first non-empty line of s, trimmed.
func FirstLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			return line
		}
	}
	return ""
}

// lastLine returns the last non-empty line of s, trimmed.
func lastLine(s string) string {
	lines := strings.Split(s, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}
	return ""
}
