package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/deixis/flacwarden/internal/report"
)

const fakeFlacScript = `#!/bin/sh
for a in "$@"; do f="$a"; done
name="${f##*/}"
case "$name" in
*bad*) echo "$name: *** Got error code 0:FLAC__STREAM_DECODER_ERROR_STATUS_LOST_SYNC" >&2; exit 1 ;;
*warn*) echo "$name: WARNING, cannot check MD5 signature since it was unset in the STREAMINFO" >&2 ;;
esac
exit 0
`

const fakeMetaflacScript = `#!/bin/sh
echo d41d8cd98f00b204e9800998ecf8427e
`

// testEnv holds a config file pointing flac and metaflac at shell
// scripts, and a directory for fixtures.
type testEnv struct {
	dir    string
	config string
}

func newTestEnv(t *testing.T, flacPath string) *testEnv {
	t.Helper()
	dir := t.TempDir()

	if flacPath == "" {
		flacPath = writeScript(t, filepath.Join(dir, "bin", "flac"), fakeFlacScript)
	}
	metaflac := writeScript(t, filepath.Join(dir, "bin", "metaflac"), fakeMetaflacScript)

	cfg := "version: 1\nlog_level: critical\nflac: " + flacPath + "\nmetaflac: " + metaflac + "\n"
	path := filepath.Join(dir, ".flacwarden")
	if err := os.WriteFile(path, []byte(cfg), 0o644); err != nil {
		t.Fatal(err)
	}
	return &testEnv{dir: filepath.Join(dir, "music"), config: path}
}

func writeScript(t *testing.T, path, body string) string {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(body), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

// flacFile writes a file with the FLAC marker and an empty STREAMINFO block.
func (e *testEnv) flacFile(t *testing.T, name string) string {
	t.Helper()
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		t.Fatal(err)
	}
	data := append([]byte("fLaC"), 0x80, 0, 0, 34)
	data = append(data, make([]byte, 34)...)
	path := filepath.Join(e.dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func (e *testEnv) run(kind report.Kind, args ...string) (string, error) {
	var out bytes.Buffer
	err := runMain(kind, append([]string{"-config", e.config}, args...), &out)
	return out.String(), err
}

func TestRunMain_WarningsExitZero(t *testing.T) {
	env := newTestEnv(t, "")
	path := env.flacFile(t, "warn.flac")

	out, err := env.run(report.Test, path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if exitCode(err) != 0 {
		t.Errorf("exit code = %d, want 0", exitCode(err))
	}
	want := path + ": WARN WARNING cannot check MD5 signature since it was unset in the STREAMINFO\n"
	if out != want {
		t.Errorf("output = %q, want %q", out, want)
	}
}

func TestRunMain_FailureExitOne(t *testing.T) {
	env := newTestEnv(t, "")
	env.flacFile(t, "good.flac")
	env.flacFile(t, "bad.flac")

	out, err := env.run(report.Test, env.dir)
	if !errors.Is(err, errFailed) {
		t.Fatalf("err = %v, want errFailed", err)
	}
	if exitCode(err) != 1 {
		t.Errorf("exit code = %d, want 1", exitCode(err))
	}
	if !strings.Contains(out, "bad.flac: FAIL *** Got error code 0:FLAC__STREAM_DECODER_ERROR_STATUS_LOST_SYNC\n") {
		t.Errorf("missing failure line:\n%s", out)
	}
	if !strings.Contains(out, "good.flac: ok\n") {
		t.Errorf("missing ok line:\n%s", out)
	}
}

func TestRunMain_MissingToolExitOne(t *testing.T) {
	env := newTestEnv(t, filepath.Join(t.TempDir(), "no-such-dir", "flac"))
	path := env.flacFile(t, "a.flac")

	out, err := env.run(report.Test, path)
	if exitCode(err) != 1 {
		t.Errorf("exit code = %d (err %v), want 1", exitCode(err), err)
	}
	if !strings.Contains(out, path+": N/A flac not found") {
		t.Errorf("output = %q, want unavailable line", out)
	}
}

func TestRunMain_NoPathsIsUsageError(t *testing.T) {
	env := newTestEnv(t, "")

	_, err := env.run(report.Check)
	if !errors.Is(err, errUsage) {
		t.Fatalf("err = %v, want errUsage", err)
	}
	if exitCode(err) != 2 {
		t.Errorf("exit code = %d, want 2", exitCode(err))
	}
}

func TestRunMain_UnknownSeverityIsUsageError(t *testing.T) {
	env := newTestEnv(t, "")
	path := env.flacFile(t, "a.flac")

	_, err := env.run(report.Check, "-min-severity", "critical", path)
	if exitCode(err) != 2 {
		t.Errorf("exit code = %d (err %v), want 2", exitCode(err), err)
	}
}

func TestRunMain_CheckStepsOverrideJSON(t *testing.T) {
	env := newTestEnv(t, "")
	env.flacFile(t, "a.flac")

	out, err := env.run(report.Check, "-json", "-steps", "hash", env.dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var got jsonRun
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decoding output: %v\n%s", err, out)
	}
	if got.RunResult == nil || got.Kind != report.Check || got.ID == "" {
		t.Fatalf("unexpected run header: %s", out)
	}
	if len(got.Files) != 1 {
		t.Fatalf("got %d files, want 1", len(got.Files))
	}
	f := got.Files[0]
	if len(f.Steps) != 1 || f.Steps[0].Name != "hash" || f.Steps[0].Status != report.StatusPass {
		t.Errorf("steps = %+v, want only a passing hash step", f.Steps)
	}
	if f.Checksum != "d41d8cd98f00b204e9800998ecf8427e" {
		t.Errorf("Checksum = %q", f.Checksum)
	}
	if len(got.Diagnostics) != 0 {
		t.Errorf("Diagnostics = %v, want none without -min-severity", got.Diagnostics)
	}
}

func TestRunMain_JSONDiagnostics(t *testing.T) {
	env := newTestEnv(t, "")
	path := env.flacFile(t, "warn.flac")

	out, err := env.run(report.Check, "-json", "-steps", "test,hash", "-min-severity", "warning", path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var got jsonRun
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decoding output: %v\n%s", err, out)
	}
	want := report.Diagnostic{
		Severity: report.SeverityWarning,
		File:     path,
		Step:     "test",
		Message:  "WARNING cannot check MD5 signature since it was unset in the STREAMINFO",
	}
	if len(got.Diagnostics) != 1 || got.Diagnostics[0] != want {
		t.Errorf("Diagnostics = %+v, want [%+v]", got.Diagnostics, want)
	}
}
