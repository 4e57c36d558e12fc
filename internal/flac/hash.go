package flac

import (
	"context"
	"fmt"
	"regexp"

	"github.com/deixis/flacwarden/internal/logging"
)

// reChecksum captures the first non-whitespace run of metaflac output.
var reChecksum = regexp.MustCompile(`^\s*(\S+)`)

// UnsetChecksum is what metaflac prints when the encoder did not store
// an MD5 signature in STREAMINFO.
const UnsetChecksum = "00000000000000000000000000000000"

// Hash returns the MD5 signature of the unencoded audio as stored in the
// file's STREAMINFO block, as printed by `metaflac --show-md5sum`.
func (t *Tool) Hash(ctx context.Context, file string) (string, error) {
	argv := []string{t.Metaflac, "--show-md5sum", file}
	res, err := t.run(ctx, argv)
	if err != nil {
		return "", err
	}

	if res.ExitCode != 0 {
		logging.Critical(ctx, t.logger(), "metaflac exited with error code",
			"file", file, "exit_code", res.ExitCode, "run_id", res.RunID)
		return "", newToolError("metaflac", res)
	}

	m := reChecksum.FindSubmatch(res.Stdout)
	if m == nil {
		t.logger().ErrorContext(ctx, "metaflac printed no checksum", "file", file, "run_id", res.RunID)
		return "", fmt.Errorf("%s: %w", file, ErrNoChecksum)
	}
	return string(m[1]), nil
}

// IsUnset reports whether sum is the all-zero signature.
func IsUnset(sum string) bool {
	return sum == UnsetChecksum
}
