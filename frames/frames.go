// Package frames materializes benchmark input directories: N byte-identical
// copies of one source image, named so that lexicographic order is frame
// order.
package frames

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"
)

const minPadWidth = 4

// Config controls materialization of one frame directory.
type Config struct {
	Source  string
	Dir     string
	Count   int
	Workers int
}

// Summary describes a materialized directory.
type Summary struct {
	Files int
	Bytes int64
}

// DirName returns the input directory for a trial of n frames.
func DirName(workDir string, n int) string {
	return filepath.Join(workDir, fmt.Sprintf("frames_%d", n))
}

// OutputName returns the renderer output path for a trial of n frames.
func OutputName(workDir string, n int, ext string) string {
	return filepath.Join(
		workDir, fmt.Sprintf("output_%d.%s", n, strings.TrimPrefix(ext, ".")),
	)
}

// PadWidth returns the index width used for a directory of n frames.
// It is never below four digits and grows so the last index still fits.
func PadWidth(n int) int {
	width := len(strconv.Itoa(max(n-1, 0)))

	return max(width, minPadWidth)
}

// FrameName returns the file name of frame i in a directory of n frames.
// ext is taken with or without its leading dot.
func FrameName(i, n int, ext string) string {
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}

	return fmt.Sprintf("frame_%0*d%s", PadWidth(n), i, ext)
}

// Materialize wipes cfg.Dir, recreates it and fills it with cfg.Count
// copies of cfg.Source. Copies keep the source's mode and mtime.
func Materialize(ctx context.Context, cfg Config) (Summary, error) {
	var summary Summary

	if cfg.Count < 1 {
		return summary, fmt.Errorf("frame count must be positive, got %d", cfg.Count)
	}

	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}

	info, err := os.Stat(cfg.Source)
	if err != nil {
		return summary, fmt.Errorf("stat source: %w", err)
	}

	if !info.Mode().IsRegular() {
		return summary, fmt.Errorf("source %s is not a regular file", cfg.Source)
	}

	data, err := os.ReadFile(cfg.Source)
	if err != nil {
		return summary, fmt.Errorf("read source: %w", err)
	}

	if err := os.RemoveAll(cfg.Dir); err != nil {
		return summary, fmt.Errorf("clean frame dir %s: %w", cfg.Dir, err)
	}

	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return summary, fmt.Errorf("create frame dir %s: %w", cfg.Dir, err)
	}

	ext := filepath.Ext(cfg.Source)
	perm := info.Mode().Perm()
	mtime := info.ModTime()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i := 0; i < cfg.Count; i++ {
		if gctx.Err() != nil {
			break
		}

		target := filepath.Join(cfg.Dir, FrameName(i, cfg.Count, ext))

		g.Go(func() error {
			if err := os.WriteFile(target, data, perm); err != nil {
				return fmt.Errorf("write frame %s: %w", target, err)
			}

			if err := os.Chtimes(target, mtime, mtime); err != nil {
				return fmt.Errorf("set frame times %s: %w", target, err)
			}

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return summary, err
	}

	if err := ctx.Err(); err != nil {
		return summary, fmt.Errorf("materialize %s: %w", cfg.Dir, err)
	}

	summary.Files = cfg.Count
	summary.Bytes = int64(cfg.Count) * int64(len(data))

	return summary, nil
}

// Count returns the number of regular files directly inside dir.
func Count(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, err
	}

	n := 0
	for _, e := range entries {
		if e.Type().IsRegular() {
			n++
		}
	}

	return n, nil
}
