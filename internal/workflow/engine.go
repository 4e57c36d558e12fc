// Package workflow runs the per-file steps of a batch over FLAC files
// and collects their outcomes into a report. It is consumed by the CLI
// commands.
package workflow

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/deixis/flacwarden/internal/config"
	"github.com/deixis/flacwarden/internal/flac"
	"github.com/deixis/flacwarden/internal/logging"
)

// Engine holds shared dependencies for all workflow operations.
type Engine struct {
	Config *config.Config
	Tool   *flac.Tool
	Logger *slog.Logger
}

// NewEngine builds an Engine whose tool invocations go through r.
func NewEngine(cfg *config.Config, r flac.CommandRunner, logger *slog.Logger) *Engine {
	return &Engine{
		Config: cfg,
		Tool:   flac.New(cfg, r, logger),
		Logger: logging.Component(logger, "workflow"),
	}
}

func (e *Engine) logger() *slog.Logger {
	if e.Logger == nil {
		return logging.Discard()
	}
	return e.Logger
}

// Discover expands paths into the list of files to process. Files named
// explicitly are kept whatever their extension; directories are walked
// recursively and only files with a configured extension are collected.
// The result is sorted and free of duplicates.
func (e *Engine) Discover(paths []string) ([]string, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("no files or directories given")
	}

	exts := e.Config.Extensions()
	var files []string
	for _, p := range paths {
		fi, err := os.Stat(p)
		if err != nil {
			return nil, err
		}
		if !fi.IsDir() {
			files = append(files, filepath.Clean(p))
			continue
		}

		err = filepath.WalkDir(p, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			if slices.Contains(exts, strings.ToLower(filepath.Ext(path))) {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walking %s: %w", p, err)
		}
	}

	slices.Sort(files)
	files = slices.Compact(files)
	e.logger().Debug("discovered files", "paths", len(paths), "files", len(files))
	return files, nil
}
