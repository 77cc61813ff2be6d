package harness

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// writeStub writes an executable shell script standing in for the
// renderer. Arguments arrive as: --input <dir> --output <file>.
func writeStub(t *testing.T, body string) string {
	t.Helper()

	if runtime.GOOS == "windows" {
		t.Skip("stub renderer needs a POSIX shell")
	}

	path := filepath.Join(t.TempDir(), "renderer.sh")
	script := "#!/bin/sh\n" + body + "\n"

	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}

	return path
}

func TestRunnerArgs(t *testing.T) {
	r := NewRunner("renderer", []string{"--fps", "60"}, nil, discardLogger())

	got := r.Args(RunConfig{InputDir: "frames_10", OutputPath: "output_10.webm"})
	want := []string{
		"--fps", "60", "--input", "frames_10", "--output", "output_10.webm",
	}

	if strings.Join(got, " ") != strings.Join(want, " ") {
		t.Errorf("args = %v, want %v", got, want)
	}
}

func TestRunMeasuresOutput(t *testing.T) {
	stub := writeStub(t, `head -c 1024 /dev/zero > "$4"`)
	dir := t.TempDir()
	out := filepath.Join(dir, "output_10.webm")

	r := NewRunner(stub, nil, nil, discardLogger())
	trial, err := r.Run(context.Background(), RunConfig{
		InputDir:   dir,
		OutputPath: out,
		FrameCount: 10,
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if trial.FrameCount != 10 {
		t.Errorf("frame count = %d, want 10", trial.FrameCount)
	}
	if trial.OutputSizeBytes != 1024 {
		t.Errorf("output size = %d, want 1024", trial.OutputSizeBytes)
	}
	if trial.Duration <= 0 {
		t.Errorf("duration = %s, want > 0", trial.Duration)
	}
	if trial.OutputPath != out {
		t.Errorf("output path = %q, want %q", trial.OutputPath, out)
	}
}

func TestRunNonZeroExit(t *testing.T) {
	stub := writeStub(t, `echo "encoder exploded" >&2; exit 3`)
	dir := t.TempDir()

	r := NewRunner(stub, nil, nil, discardLogger())
	_, err := r.Run(context.Background(), RunConfig{
		InputDir:   dir,
		OutputPath: filepath.Join(dir, "out.webm"),
		FrameCount: 1,
	})
	if err == nil {
		t.Fatal("expected error for non-zero exit")
	}

	if !strings.Contains(err.Error(), "encoder exploded") {
		t.Errorf("error should carry stderr, got: %v", err)
	}
}

func TestRunIgnoresLingeringChild(t *testing.T) {
	// The renderer exits 0 while a child it started keeps its streams open.
	stub := writeStub(t, `head -c 1024 /dev/zero > "$4"; sleep 8 & exit 0`)
	dir := t.TempDir()

	r := NewRunner(stub, nil, nil, discardLogger())

	start := time.Now()
	trial, err := r.Run(context.Background(), RunConfig{
		InputDir:   dir,
		OutputPath: filepath.Join(dir, "out.webm"),
		FrameCount: 1,
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if elapsed := time.Since(start); elapsed > 4*time.Second {
		t.Errorf("Run waited on the child process: %s", elapsed)
	}
	if trial.OutputSizeBytes != 1024 {
		t.Errorf("output size = %d, want 1024", trial.OutputSizeBytes)
	}
}

func TestRunStderrTail(t *testing.T) {
	stub := writeStub(t,
		`yes x | head -c 20000 >&2; echo "last words" >&2; exit 1`)
	dir := t.TempDir()

	r := NewRunner(stub, nil, nil, discardLogger())
	_, err := r.Run(context.Background(), RunConfig{
		InputDir:   dir,
		OutputPath: filepath.Join(dir, "out.webm"),
		FrameCount: 1,
	})
	if err == nil {
		t.Fatal("expected error for non-zero exit")
	}

	msg := err.Error()
	if !strings.HasSuffix(msg, "last words") {
		t.Errorf("error should end with the last stderr line, got tail %q",
			msg[max(0, len(msg)-40):])
	}
	if len(msg) > stderrTail+200 {
		t.Errorf("error carries %d bytes, want at most ~%d", len(msg), stderrTail)
	}
}

func TestRunNoOutput(t *testing.T) {
	stub := writeStub(t, `exit 0`)
	dir := t.TempDir()

	r := NewRunner(stub, nil, nil, discardLogger())
	_, err := r.Run(context.Background(), RunConfig{
		InputDir:   dir,
		OutputPath: filepath.Join(dir, "out.webm"),
		FrameCount: 1,
	})
	if !errors.Is(err, ErrNoOutput) {
		t.Errorf("err = %v, want ErrNoOutput", err)
	}
}

func TestRunRemovesStaleOutput(t *testing.T) {
	stub := writeStub(t, `exit 0`)
	dir := t.TempDir()
	out := filepath.Join(dir, "out.webm")

	if err := os.WriteFile(out, []byte("stale"), 0o644); err != nil {
		t.Fatal(err)
	}

	r := NewRunner(stub, nil, nil, discardLogger())
	_, err := r.Run(context.Background(), RunConfig{
		InputDir:   dir,
		OutputPath: out,
		FrameCount: 1,
	})
	if !errors.Is(err, ErrNoOutput) {
		t.Errorf("err = %v, want ErrNoOutput", err)
	}
}

func TestRunTimeout(t *testing.T) {
	stub := writeStub(t, `exec sleep 10`)
	dir := t.TempDir()

	r := NewRunner(stub, nil, nil, discardLogger())

	start := time.Now()
	_, err := r.Run(context.Background(), RunConfig{
		InputDir:   dir,
		OutputPath: filepath.Join(dir, "out.webm"),
		FrameCount: 1,
		Timeout:    100 * time.Millisecond,
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want deadline exceeded", err)
	}

	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("timeout not enforced, took %s", elapsed)
	}
}

func TestRunEnv(t *testing.T) {
	stub := writeStub(t, `printf '%s' "$FRAMEBENCH_MARK" > "$4"`)
	dir := t.TempDir()
	out := filepath.Join(dir, "out.webm")

	r := NewRunner(stub, nil, []string{"FRAMEBENCH_MARK=abc"}, discardLogger())
	trial, err := r.Run(context.Background(), RunConfig{
		InputDir:   dir,
		OutputPath: out,
		FrameCount: 1,
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if trial.OutputSizeBytes != 3 {
		t.Errorf("output size = %d, want 3", trial.OutputSizeBytes)
	}
}

func TestResolveBinary(t *testing.T) {
	stub := writeStub(t, `exit 0`)

	got, err := ResolveBinary(stub)
	if err != nil {
		t.Fatalf("ResolveBinary failed: %v", err)
	}
	if got != stub {
		t.Errorf("path = %q, want %q", got, stub)
	}

	if _, err := ResolveBinary("framebench-no-such-renderer"); err == nil {
		t.Error("expected error for unknown binary")
	}

	missing := filepath.Join(t.TempDir(), "missing")
	if _, err := ResolveBinary(missing); err == nil {
		t.Error("expected error for missing path")
	}
}

func TestBuiltBinary(t *testing.T) {
	got := BuiltBinary("/src/renderer")
	want := filepath.Join("/src/renderer", "target", "release", DefaultBinary)

	if got != want {
		t.Errorf("BuiltBinary = %q, want %q", got, want)
	}
}

func TestTrialAverages(t *testing.T) {
	d := 2500 * time.Millisecond

	for _, n := range []int{1, 10, 100, 1000, 10000} {
		trial := Trial{FrameCount: n, Duration: d}

		want := d.Seconds() / float64(n)
		if got := trial.AvgSecondsPerFrame(); math.Abs(got-want) > 1e-12 {
			t.Errorf("n=%d: avg = %v, want %v", n, got, want)
		}
	}

	if got := (Trial{}).AvgSecondsPerFrame(); got != 0 {
		t.Errorf("zero frames: avg = %v, want 0", got)
	}
}

func TestTrialSizeMB(t *testing.T) {
	trial := Trial{OutputSizeBytes: 1024}

	if got, want := trial.SizeMB(), 1024.0/1048576.0; got != want {
		t.Errorf("SizeMB = %v, want %v", got, want)
	}
}
