package runner

import "time"

// Result holds the output of a single tool invocation.
type Result struct {
	RunID     string        // unique identifier for this invocation
	Argv      []string      // command line as executed
	ExitCode  int           // process exit code
	Stdout    []byte        // captured stdout (may be truncated)
	Stderr    []byte        // captured stderr (may be truncated)
	Truncated bool          // true if either stream exceeded the size cap
	Duration  time.Duration // wall time from start to exit
}
