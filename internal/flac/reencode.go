package flac

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/deixis/flacwarden/internal/logging"
)

// reVerifyOK matches the trailer flac prints after a successful --verify.
var reVerifyOK = regexp.MustCompile(`Verify OK, `)

// Reencode re-encodes file in place. It succeeds only when flac exits
// with status zero and the last line of its stderr reports "Verify OK, ".
func (t *Tool) Reencode(ctx context.Context, file string) error {
	argv := make([]string, 0, len(t.ReencodeArgs)+2)
	argv = append(argv, t.Flac)
	argv = append(argv, t.ReencodeArgs...)
	argv = append(argv, file)

	res, err := t.run(ctx, argv)
	if err != nil {
		return err
	}

	stderr := strings.TrimSpace(string(res.Stderr))
	if res.ExitCode != 0 {
		logging.Critical(ctx, t.logger(), "flac exited with error code",
			"file", file, "exit_code", res.ExitCode, "run_id", res.RunID)
		logging.Critical(ctx, t.logger(), "flac output",
			"stdout", string(res.Stdout), "stderr", stderr)
		return newToolError("flac", res)
	}

	last := lastLine(stderr)
	if last == "" {
		logging.Critical(ctx, t.logger(), "flac output not found", "file", file, "run_id", res.RunID)
		return fmt.Errorf("%s: %w: no output", file, ErrNotVerified)
	}
	if !reVerifyOK.MatchString(last) {
		logging.Critical(ctx, t.logger(), "flac 'Verify OK' not found",
			"file", file, "line", last, "run_id", res.RunID)
		return fmt.Errorf("%s: %w: %s", file, ErrNotVerified, last)
	}

	t.logger().DebugContext(ctx, "flac verification succeeded", "file", file)
	return nil
}
