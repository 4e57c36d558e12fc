package flac

import (
	"context"
	"slices"

	"github.com/deixis/flacwarden/internal/logging"
)

// requiredTestFlags are always passed to an integrity test. Each flag is
// skipped when the caller already supplied it in either spelling.
var requiredTestFlags = []struct{ flag, alias string }{
	{"-t", "--test"},
	{"--decode-through-errors", "-F"},
	{"-s", "--silent"},
}

// TestArgs builds the flac flags for an integrity test: the required test,
// decode-through-errors and silent flags followed by extra and opts.
// Neither input slice is modified.
func TestArgs(extra, opts []string) []string {
	user := make([]string, 0, len(extra)+len(opts))
	user = append(user, extra...)
	user = append(user, opts...)

	args := make([]string, 0, len(user)+len(requiredTestFlags))
	for _, f := range requiredTestFlags {
		if slices.Contains(user, f.flag) || slices.Contains(user, f.alias) {
			continue
		}
		args = append(args, f.flag)
	}
	return append(args, user...)
}

// Test runs `flac -t --decode-through-errors -s` on file and classifies
// its diagnostics. opts are appended to the configured test flags.
//
// A verdict is returned whenever the output could be classified, even if
// flac exited non-zero (it does so for decode errors). An error is
// returned when the tool could not run, or exited non-zero without a
// recognisable diagnostic.
func (t *Tool) Test(ctx context.Context, file string, opts ...string) (*Verdict, error) {
	args := TestArgs(t.TestArgs, opts)
	argv := make([]string, 0, len(args)+2)
	argv = append(argv, t.Flac)
	argv = append(argv, args...)
	argv = append(argv, file)

	res, err := t.run(ctx, argv)
	if err != nil {
		return nil, err
	}

	log := t.logger().With("file", file, "run_id", res.RunID)
	v := Classify(string(res.Stderr), file)

	switch {
	case v == nil && res.ExitCode == 0:
		// Output without a marker from a clean exit, e.g. "file.flac: ok".
		v = okVerdict()
	case v == nil || (v.Level == LevelOK && res.ExitCode != 0):
		logging.Critical(ctx, log, "flac exited with error code", "exit_code", res.ExitCode)
		logging.Critical(ctx, log, "flac output",
			"stdout", string(res.Stdout), "stderr", string(res.Stderr))
		return nil, newToolError("flac", res)
	}

	switch v.Level {
	case LevelOK:
		log.InfoContext(ctx, "flac verification succeeded")
	case LevelWarning:
		log.WarnContext(ctx, "flac warning message", "message", v.Message)
	case LevelError:
		log.ErrorContext(ctx, "flac error message", "message", v.Message, "exit_code", res.ExitCode)
	}
	return v, nil
}
