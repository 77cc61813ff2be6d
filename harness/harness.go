package harness

import (
	"io"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"
)

// ErrNoOutput is returned when the renderer exits cleanly but leaves no
// output file behind.
var ErrNoOutput = errors.New("renderer produced no output file")

// stderrTail bounds how much renderer stderr is attached to an error.
const stderrTail = 4096

// RunConfig holds parameters for a single renderer invocation.
type RunConfig struct {
	InputDir   string
	OutputPath string
	FrameCount int
	// Timeout bounds the renderer call. Zero blocks until it exits.
	Timeout time.Duration
}

// Runner launches the renderer binary and measures it.
type Runner struct {
	BinaryPath string
	ExtraArgs  []string
	Env        []string
	Logger     *slog.Logger
}

// NewRunner creates a Runner for the renderer at binaryPath.
// ExtraArgs are placed before the --input/--output pair. Env is
// appended to the inherited environment.
func NewRunner(
	binaryPath string,
	extraArgs, env []string,
	logger *slog.Logger,
) *Runner {
	return &Runner{
		BinaryPath: binaryPath,
		ExtraArgs:  extraArgs,
		Env:        env,
		Logger:     logger.With(slog.String("renderer", binaryPath)),
	}
}

// Args returns the argument list passed to the renderer for cfg.
func (r *Runner) Args(cfg RunConfig) []string {
	args := make([]string, 0, len(r.ExtraArgs)+4)
	args = append(args, r.ExtraArgs...)
	args = append(args, "--input", cfg.InputDir, "--output", cfg.OutputPath)

	return args
}

// Run invokes the renderer on cfg.InputDir and returns the measured
// trial. Only the process lifetime is timed.
func (r *Runner) Run(ctx context.Context, cfg RunConfig) (*Trial, error) {
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	// A leftover artifact from an earlier run would be measured as ours.
	if err := os.Remove(cfg.OutputPath); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("remove stale output %s: %w", cfg.OutputPath, err)
	}

	cmd := exec.CommandContext(ctx, r.BinaryPath, r.Args(cfg)...)

	if len(r.Env) > 0 {
		cmd.Env = append(os.Environ(), r.Env...)
	}

	// Files rather than pipes: Wait returns when the renderer exits even if
	// a process it spawned still holds the streams.
	stdout, err := newLogFile("stdout")
	if err != nil {
		return nil, err
	}
	defer closeLogFile(stdout)

	stderr, err := newLogFile("stderr")
	if err != nil {
		return nil, err
	}
	defer closeLogFile(stderr)

	cmd.Stdout = stdout
	cmd.Stderr = stderr

	r.Logger.Debug("starting renderer",
		slog.Int("frames", cfg.FrameCount),
		slog.String("input_dir", cfg.InputDir),
		slog.String("output", cfg.OutputPath),
	)

	wallStart := time.Now()
	runErr := cmd.Run()
	wallElapsed := time.Since(wallStart)

	if runErr != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf(
				"renderer on %d frames interrupted after %s: %w",
				cfg.FrameCount, wallElapsed.Round(time.Millisecond), ctxErr,
			)
		}

		return nil, fmt.Errorf(
			"renderer on %d frames failed: %w\nstderr: %s",
			cfg.FrameCount, runErr, tail(stderr, stderrTail),
		)
	}

	r.Logger.Debug("renderer finished",
		slog.Int("frames", cfg.FrameCount),
		slog.Duration("wall_time", wallElapsed),
		slog.Int64("stdout_bytes", fileSize(stdout)),
		slog.Int64("stderr_bytes", fileSize(stderr)),
	)

	info, err := os.Stat(cfg.OutputPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNoOutput, cfg.OutputPath)
		}

		return nil, fmt.Errorf("stat output %s: %w", cfg.OutputPath, err)
	}

	return &Trial{
		FrameCount:      cfg.FrameCount,
		InputDir:        cfg.InputDir,
		OutputPath:      cfg.OutputPath,
		Duration:        wallElapsed,
		OutputSizeBytes: info.Size(),
	}, nil
}

func newLogFile(stream string) (*os.File, error) {
	f, err := os.CreateTemp("", "framebench-renderer-"+stream+"-*.log")
	if err != nil {
		return nil, fmt.Errorf("create renderer %s file: %w", stream, err)
	}

	return f, nil
}

func closeLogFile(f *os.File) {
	f.Close()
	os.Remove(f.Name())
}

func fileSize(f *os.File) int64 {
	info, err := f.Stat()
	if err != nil {
		return 0
	}

	return info.Size()
}

// tail returns at most the last n bytes written to f.
func tail(f *os.File, n int64) string {
	size := fileSize(f)

	off := size - n
	if off < 0 {
		off = 0
	}

	buf, err := io.ReadAll(io.NewSectionReader(f, off, size-off))
	if err != nil {
		return ""
	}

	return strings.TrimSpace(string(buf))
}
