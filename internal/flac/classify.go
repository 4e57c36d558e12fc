package flac

import (
	"path/filepath"
	"regexp"
	"slices"
	"strings"
)

// Level is the severity of an integrity test verdict.
type Level string

const (
	LevelOK      Level = "ok"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Markers flac prints in front of its diagnostics.
const (
	markerWarning = "WARNING"
	markerError   = "ERROR"
	markerStars   = "***"
)

// Verdict is the classified outcome of an integrity test.
type Verdict struct {
	Level   Level  `json:"level"`
	Message string `json:"message"` // "ok", or the diagnostic from its marker onward
}

func (v *Verdict) String() string {
	if v.Level == LevelOK {
		return string(LevelOK)
	}
	return string(v.Level) + ": " + v.Message
}

// okVerdict is returned for a clean test.
func okVerdict() *Verdict {
	return &Verdict{Level: LevelOK, Message: string(LevelOK)}
}

// reDelimiters splits flac diagnostics. Backspaces come from the progress
// indicator flac redraws in place when not running silently.
var reDelimiters = regexp.MustCompile("[\n ,\b]")

// Tokenize removes the base name of file from stderr and splits the rest
// on newlines, spaces, commas and backspaces, dropping empty tokens.
func Tokenize(stderr, file string) []string {
	if base := filepath.Base(file); file != "" && base != "." && base != string(filepath.Separator) {
		stderr = strings.ReplaceAll(stderr, base, "")
	}
	stderr = strings.TrimSpace(stderr)

	var tokens []string
	for _, tok := range reDelimiters.Split(stderr, -1) {
		if tok != "" {
			tokens = append(tokens, tok)
		}
	}
	return tokens
}

// Classify turns integrity-test stderr into a verdict.
//
// No tokens is ok. A WARNING token yields a warning; a *** or ERROR token
// yields an error and takes precedence over a warning, with *** preferred
// over ERROR. The message runs from the marker to the end of the output.
// Classify returns nil when there are tokens but no marker; the caller
// decides from the exit code.
func Classify(stderr, file string) *Verdict {
	tokens := Tokenize(stderr, file)
	if len(tokens) == 0 {
		return okVerdict()
	}

	var v *Verdict
	if i := slices.Index(tokens, markerWarning); i >= 0 {
		v = &Verdict{Level: LevelWarning, Message: strings.Join(tokens[i:], " ")}
	}
	if i := slices.Index(tokens, markerStars); i >= 0 {
		v = &Verdict{Level: LevelError, Message: strings.Join(tokens[i:], " ")}
	} else if i := slices.Index(tokens, markerError); i >= 0 {
		v = &Verdict{Level: LevelError, Message: strings.Join(tokens[i:], " ")}
	}
	return v
}
