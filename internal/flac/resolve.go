package flac

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// ResolveTool returns the absolute path of a binary. Names containing a
// path separator must point at an existing regular file; bare names are
// looked up on PATH.
func ResolveTool(bin string) (string, error) {
	if strings.ContainsRune(bin, os.PathSeparator) {
		fi, err := os.Stat(bin)
		if err != nil || fi.IsDir() {
			return "", NewErrToolUnavailable(toolName(bin))
		}
		return bin, nil
	}
	path, err := exec.LookPath(bin)
	if err != nil {
		return "", NewErrToolUnavailable(toolName(bin))
	}
	return path, nil
}

// Version returns the first line of `bin --version`, e.g. "flac 1.4.3".
func (t *Tool) Version(ctx context.Context, bin string) (string, error) {
	res, err := t.run(ctx, []string{bin, "--version"})
	if err != nil {
		return "", err
	}
	if res.ExitCode != 0 {
		return "", newToolError(toolName(bin), res)
	}
	line := FirstLine(string(res.Stdout))
	if line == "" {
		// Older releases print the banner on stderr.
		line = FirstLine(string(res.Stderr))
	}
	if line == "" {
		return "", fmt.Errorf("%s --version printed nothing", toolName(bin))
	}
	return line, nil
}
