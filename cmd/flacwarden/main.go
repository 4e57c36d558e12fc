// Command flacwarden fingerprints, re-encodes and integrity-tests FLAC files.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/deixis/flacwarden"
	"github.com/deixis/flacwarden/internal/config"
	"github.com/deixis/flacwarden/internal/flac"
	"github.com/deixis/flacwarden/internal/logging"
	"github.com/deixis/flacwarden/internal/report"
	"github.com/deixis/flacwarden/internal/runner"
	"github.com/deixis/flacwarden/internal/workflow"
)

// errFailed signals that the command ran but at least one file failed.
var errFailed = errors.New("one or more files failed")

// errUsage signals a command line that could not be acted on.
var errUsage = errors.New("usage")

func main() {
	log.SetFlags(0)
	log.SetPrefix("flacwarden: ")

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	var err error
	switch cmd {
	case "hash":
		err = runMain(report.Hash, args, os.Stdout)
	case "reencode":
		err = runMain(report.Reencode, args, os.Stdout)
	case "test":
		err = runMain(report.Test, args, os.Stdout)
	case "check":
		err = runMain(report.Check, args, os.Stdout)
	case "tools":
		err = toolsMain(args, os.Stdout)
	case "version":
		fmt.Println(flacwarden.Version)
	case "help", "-h", "--help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "flacwarden: unknown command %q\n", cmd)
		usage()
		os.Exit(2)
	}

	if err != nil && !errors.Is(err, errFailed) && !errors.Is(err, errUsage) {
		log.Print(err)
	}
	if code := exitCode(err); code != 0 {
		os.Exit(code)
	}
}

// exitCode maps a command error to the process exit status: 0 when every
// file passed or only warned, 2 for usage errors, 1 otherwise.
func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, errUsage):
		return 2
	}
	return 1
}

func usage() {
	fmt.Fprintln(os.Stderr, `Usage: flacwarden <command> [flags] [files or directories]

Commands:
  hash        Print the STREAMINFO MD5 signature of each file
  reencode    Re-encode each file in place with verification
  test        Run the flac integrity test on each file
  check       Run the configured steps (test, hash, reencode) on each file
  tools       Show the flac and metaflac binaries in use
  version     Print the version
  help        Show this help

Use "flacwarden <command> -h" for command-specific flags.`)
}

// options holds the flags shared by every command.
type options struct {
	configPath string
	timeout    time.Duration
	logLevel   string
	logFormat  string
}

func (o *options) register(fs *flag.FlagSet) {
	fs.StringVar(&o.configPath, "config", "", "path to a .flacwarden file (default: search upward from the working directory)")
	fs.DurationVar(&o.timeout, "timeout", 0, "override configured per-file tool timeout (e.g. 5m)")
	fs.StringVar(&o.logLevel, "log-level", "", "log level: debug, info, warn, error, critical")
	fs.StringVar(&o.logFormat, "log-format", "text", "log format: text or json")
}

// stringList collects a repeatable string flag.
type stringList []string

func (s *stringList) String() string     { return strings.Join(*s, " ") }
func (s *stringList) Set(v string) error { *s = append(*s, v); return nil }

// --- hash, reencode, test, check ---

func runMain(kind report.Kind, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet(string(kind), flag.ExitOnError)
	var opts options
	opts.register(fs)
	jsonFlag := fs.Bool("json", false, "output results as JSON")
	verboseFlag := fs.Bool("v", false, "verbose output")
	minSeverityFlag := fs.String("min-severity", "", "also list diagnostics at or above this severity: warning or error")
	var testOpts stringList
	var stepsFlag *string
	switch kind {
	case report.Test:
		fs.Var(&testOpts, "opt", "extra flac flag for the test (repeatable)")
	case report.Check:
		stepsFlag = fs.String("steps", "", "comma-separated steps overriding check.steps (test,hash,reencode)")
	}
	_ = fs.Parse(args)

	paths := fs.Args()
	if len(paths) == 0 {
		fmt.Fprintf(os.Stderr, "flacwarden %s: no files or directories given\n", kind)
		fs.Usage()
		return errUsage
	}

	var minSeverity report.Severity
	if *minSeverityFlag != "" {
		sev, err := report.ParseSeverity(*minSeverityFlag)
		if err != nil {
			fmt.Fprintf(os.Stderr, "flacwarden %s: %v\n", kind, err)
			return errUsage
		}
		minSeverity = sev
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	eng, err := newEngine(opts)
	if err != nil {
		return err
	}

	runOpts := workflow.RunOptions{Kind: kind, TestOpts: testOpts}
	switch kind {
	case report.Check:
		runOpts.Steps = eng.Config.CheckSteps()
		if stepsFlag != nil && *stepsFlag != "" {
			runOpts.Steps = splitList(*stepsFlag)
		}
	default:
		runOpts.Steps = []string{string(kind)}
	}

	result, err := eng.Run(ctx, paths, runOpts)
	if result == nil {
		return fmt.Errorf("%s: %w", kind, err)
	}

	if *jsonFlag {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		out := jsonRun{RunResult: result.RunResult}
		if minSeverity != "" {
			out.Diagnostics = report.BySeverity(result.RunResult, minSeverity)
		}
		if encErr := enc.Encode(out); encErr != nil {
			return encErr
		}
	} else {
		fmt.Fprint(stdout, formatRun(result, *verboseFlag, minSeverity))
	}

	if err != nil {
		return fmt.Errorf("%s: %w", kind, err)
	}
	if result.Failed() {
		return errFailed
	}
	return nil
}

// jsonRun is the -json output: the run plus, with -min-severity, the
// filtered diagnostics.
type jsonRun struct {
	*report.RunResult
	Diagnostics []report.Diagnostic `json:"diagnostics,omitempty"`
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// formatRun renders a run for the terminal. Single-step runs print one
// line per file; check runs print a per-file step table and a summary.
// A non-empty minSeverity appends the matching diagnostics.
func formatRun(result *workflow.CheckResult, verbose bool, minSeverity report.Severity) string {
	rr := result.RunResult
	var b []byte
	w := func(format string, args ...any) {
		b = fmt.Appendf(b, format, args...)
	}

	if rr.Kind != report.Check {
		for _, f := range rr.Files {
			w("%s\n", formatFileLine(rr.Kind, f))
			if verbose {
				b = appendDetails(b, f)
			}
		}
		return string(appendDiagnostics(b, rr, minSeverity))
	}

	if result.Failed() {
		w("FAIL\n")
	} else {
		w("ok\n")
	}
	w("\n")

	for _, f := range rr.Files {
		w("%s\n", f.Path)
		if f.Error != "" {
			w("  %-10s FAIL  %s\n", "probe", f.Error)
		}
		for _, s := range f.Steps {
			switch s.Status {
			case report.StatusPass:
				if verbose && s.Message != "" {
					w("  %-10s ok    %s\n", s.Name, s.Message)
				} else {
					w("  %-10s ok\n", s.Name)
				}
			case report.StatusSkipped:
				w("  %-10s -\n", s.Name)
			default:
				w("  %-10s %-5s %s\n", s.Name, statusLabel(s.Status), s.Message)
			}
		}
		if verbose {
			b = appendDetails(b, f)
		}
	}
	w("\n")

	s := result.Summary
	w("%d files: %d ok, %d warnings, %d failed\n", s.Files, s.Passed, s.Warned, s.Failed)
	return string(appendDiagnostics(b, rr, minSeverity))
}

// appendDiagnostics lists the diagnostics of rr at or above min.
func appendDiagnostics(b []byte, rr *report.RunResult, min report.Severity) []byte {
	if min == "" {
		return b
	}
	diags := report.BySeverity(rr, min)
	b = fmt.Appendf(b, "\nDiagnostics (%s and above): %d\n", min, len(diags))
	for _, d := range diags {
		b = fmt.Appendf(b, "  %s\n", d)
	}
	return b
}

func formatFileLine(kind report.Kind, f report.FileResult) string {
	if f.Error != "" {
		return fmt.Sprintf("%s: FAIL %s", f.Path, f.Error)
	}
	s := f.Step(string(kind))
	if s == nil {
		return f.Path
	}
	if kind == report.Hash && f.Checksum != "" {
		return fmt.Sprintf("%s  %s", f.Checksum, f.Path)
	}
	if s.Status == report.StatusPass {
		return fmt.Sprintf("%s: ok", f.Path)
	}
	return fmt.Sprintf("%s: %s %s", f.Path, statusLabel(s.Status), s.Message)
}

func statusLabel(s report.Status) string {
	switch s {
	case report.StatusWarn:
		return "WARN"
	case report.StatusFail:
		return "FAIL"
	case report.StatusError:
		return "ERROR"
	case report.StatusUnavailable:
		return "N/A"
	}
	return string(s)
}

// appendDetails adds the tool output attached to each step, indented.
func appendDetails(b []byte, f report.FileResult) []byte {
	for _, s := range f.Steps {
		if s.Detail == "" {
			continue
		}
		for _, line := range strings.Split(s.Detail, "\n") {
			b = fmt.Appendf(b, "      %s\n", line)
		}
	}
	return b
}

// --- tools ---

func toolsMain(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("tools", flag.ExitOnError)
	var opts options
	opts.register(fs)
	_ = fs.Parse(args)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	eng, err := newEngine(opts)
	if err != nil {
		return err
	}

	missing := false
	for _, bin := range []string{eng.Config.FlacPath(), eng.Config.MetaflacPath()} {
		path, err := flac.ResolveTool(bin)
		if err != nil {
			missing = true
			fmt.Fprintf(stdout, "%-10s unavailable\n\n%s\n\n", bin, err)
			continue
		}
		version, err := eng.Tool.Version(ctx, path)
		if err != nil {
			version = "unknown version (" + err.Error() + ")"
		}
		fmt.Fprintf(stdout, "%-10s %s (%s)\n", bin, path, version)
	}

	if missing {
		return errFailed
	}
	return nil
}

// --- shared ---

func newEngine(opts options) (*workflow.Engine, error) {
	var (
		loaded *config.LoadResult
		err    error
	)
	if opts.configPath != "" {
		loaded, err = config.LoadFile(opts.configPath)
	} else {
		var workspace string
		workspace, err = os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("determining working directory: %w", err)
		}
		loaded, err = config.Load(workspace)
	}
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	cfg := loaded.Config
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", loaded.Path, err)
	}

	levelName := cfg.LogLevel()
	if opts.logLevel != "" {
		levelName = opts.logLevel
	}
	level, err := logging.ParseLevel(levelName)
	if err != nil {
		return nil, err
	}
	format := logging.Format(opts.logFormat)
	if format != logging.FormatText && format != logging.FormatJSON {
		return nil, fmt.Errorf("unknown log format %q (use text or json)", opts.logFormat)
	}
	logger := logging.New(os.Stderr, level, format)
	if loaded.Path != "" {
		logger.Debug("loaded config", "path", loaded.Path)
	}

	timeout := cfg.Timeout()
	if opts.timeout > 0 {
		timeout = opts.timeout
	}

	r := &runner.Runner{
		Timeout:   timeout,
		MaxOutput: cfg.MaxOutputBytes(),
	}

	return workflow.NewEngine(cfg, r, logger), nil
}
