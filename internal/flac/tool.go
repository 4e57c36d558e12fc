// Package flac wraps the flac and metaflac command-line tools: it reads
// the STREAMINFO checksum, re-encodes files in place with verification,
// and runs integrity tests whose diagnostics are classified into ok,
// warning and error verdicts.
//
// Every operation blocks on a single external process. Failures are
// logged once and returned; nothing is retried.
package flac

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/deixis/flacwarden/internal/config"
	"github.com/deixis/flacwarden/internal/logging"
	"github.com/deixis/flacwarden/internal/runner"
)

// CommandRunner executes a command and captures its output.
// Implemented by runner.Runner.
type CommandRunner interface {
	Run(ctx context.Context, argv []string) (*runner.Result, error)
}

// Tool invokes flac and metaflac.
type Tool struct {
	Flac         string   // flac binary, path or name on PATH
	Metaflac     string   // metaflac binary, path or name on PATH
	TestArgs     []string // extra flags for every integrity test
	ReencodeArgs []string // flags for in-place re-encoding
	Runner       CommandRunner
	Logger       *slog.Logger
}

// New builds a Tool from the configuration.
func New(cfg *config.Config, r CommandRunner, logger *slog.Logger) *Tool {
	return &Tool{
		Flac:         cfg.FlacPath(),
		Metaflac:     cfg.MetaflacPath(),
		TestArgs:     cfg.Test.Args,
		ReencodeArgs: cfg.ReencodeArgs(),
		Runner:       r,
		Logger:       logging.Component(logger, "flac"),
	}
}

func (t *Tool) logger() *slog.Logger {
	if t.Logger == nil {
		return logging.Discard()
	}
	return t.Logger
}

// run executes argv and logs the invocation at debug level. A binary
// missing from PATH, or a configured path that does not exist, is
// reported as ErrToolUnavailable.
func (t *Tool) run(ctx context.Context, argv []string) (*runner.Result, error) {
	res, err := t.Runner.Run(ctx, argv)
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist) {
			return nil, NewErrToolUnavailable(toolName(argv[0]))
		}
		t.logger().ErrorContext(ctx, "tool invocation failed", "tool", toolName(argv[0]), "error", err)
		return nil, err
	}
	t.logger().DebugContext(ctx, "tool exited",
		"tool", toolName(argv[0]),
		"run_id", res.RunID,
		"exit_code", res.ExitCode,
		"duration", res.Duration,
	)
	if res.Truncated {
		t.logger().WarnContext(ctx, "tool output truncated", "tool", toolName(argv[0]), "run_id", res.RunID)
	}
	return res, nil
}

// toolName returns the binary name without directory or extension.
func toolName(bin string) string {
	return strings.TrimSuffix(filepath.Base(bin), filepath.Ext(bin))
}
