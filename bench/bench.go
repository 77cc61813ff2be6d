// Package bench drives a frame-count sweep: for each count it materializes
// an input directory, runs the renderer on it and records the trial.
package bench

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/weiihann/framebench/frames"
	"github.com/weiihann/framebench/harness"
	"github.com/weiihann/framebench/report"
)

// ErrMissingAsset is returned when the source image does not exist.
var ErrMissingAsset = errors.New("missing input asset")

// Renderer runs one trial against a prepared input directory.
type Renderer interface {
	Run(ctx context.Context, cfg harness.RunConfig) (*harness.Trial, error)
}

// Config holds the parameters of one sweep.
type Config struct {
	Source      string
	FrameCounts []int
	WorkDir     string
	OutputExt   string
	CopyWorkers int
	Timeout     time.Duration
}

// Driver runs trials sequentially and prints a progress row after each.
type Driver struct {
	cfg      Config
	renderer Renderer
	progress io.Writer
	logger   *slog.Logger
}

// NewDriver creates a Driver writing progress rows to progress.
func NewDriver(
	cfg Config,
	renderer Renderer,
	progress io.Writer,
	logger *slog.Logger,
) *Driver {
	return &Driver{
		cfg:      cfg,
		renderer: renderer,
		progress: progress,
		logger:   logger,
	}
}

// CheckSource fails with ErrMissingAsset when path does not exist.
func CheckSource(path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrMissingAsset, path)
		}

		return fmt.Errorf("stat source %s: %w", path, err)
	}

	return nil
}

// Run executes one trial per configured frame count, in order. The first
// failure aborts the sweep; trials completed before it are returned
// alongside the error.
func (d *Driver) Run(ctx context.Context) ([]harness.Trial, error) {
	if err := CheckSource(d.cfg.Source); err != nil {
		return nil, err
	}

	trials := make([]harness.Trial, 0, len(d.cfg.FrameCounts))

	for _, n := range d.cfg.FrameCounts {
		trial, err := d.runTrial(ctx, n)
		if err != nil {
			return trials, fmt.Errorf("trial %d frames: %w", n, err)
		}

		if err := report.WriteProgress(d.progress, *trial); err != nil {
			return trials, fmt.Errorf("write progress: %w", err)
		}

		trials = append(trials, *trial)
	}

	return trials, nil
}

func (d *Driver) runTrial(ctx context.Context, n int) (*harness.Trial, error) {
	inputDir := frames.DirName(d.cfg.WorkDir, n)
	outputPath := frames.OutputName(d.cfg.WorkDir, n, d.cfg.OutputExt)

	logger := d.logger.With(slog.Int("frames", n))

	sum, err := frames.Materialize(ctx, frames.Config{
		Source:  d.cfg.Source,
		Dir:     inputDir,
		Count:   n,
		Workers: d.cfg.CopyWorkers,
	})
	if err != nil {
		return nil, fmt.Errorf("prepare frames: %w", err)
	}

	files, err := frames.Count(inputDir)
	if err != nil {
		return nil, fmt.Errorf("count frames: %w", err)
	}
	if files != n {
		return nil, fmt.Errorf("frame dir %s holds %d files, want %d", inputDir, files, n)
	}

	logger.InfoContext(ctx, "frames ready",
		slog.String("dir", inputDir),
		slog.Int("files", files),
		slog.String("bytes", report.FormatBytes(sum.Bytes)),
	)

	trial, err := d.renderer.Run(ctx, harness.RunConfig{
		InputDir:   inputDir,
		OutputPath: outputPath,
		FrameCount: n,
		Timeout:    d.cfg.Timeout,
	})
	if err != nil {
		return nil, err
	}

	logger.InfoContext(ctx, "trial complete",
		slog.Duration("duration", trial.Duration),
		slog.String("output", report.FormatBytes(trial.OutputSizeBytes)),
	)

	return trial, nil
}
