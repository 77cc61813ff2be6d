package harness

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
)

// DefaultBinary is the renderer executable name looked up on PATH.
const DefaultBinary = "aether-renderer-core"

// ResolveBinary returns an absolute path for the renderer. Names
// without a path separator are looked up on PATH.
func ResolveBinary(name string) (string, error) {
	if name == "" {
		name = DefaultBinary
	}

	if filepath.Base(name) == name {
		path, err := exec.LookPath(name)
		if err != nil {
			return "", fmt.Errorf("resolve renderer %q: %w", name, err)
		}

		return path, nil
	}

	path, err := filepath.Abs(name)
	if err != nil {
		return "", fmt.Errorf("resolve renderer %q: %w", name, err)
	}

	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("resolve renderer %q: %w", name, err)
	}

	return path, nil
}

// BuiltBinary returns the path cargo produces for a release build of
// the renderer in srcDir.
func BuiltBinary(srcDir string) string {
	return filepath.Join(srcDir, "target", "release", DefaultBinary)
}

// Build compiles the renderer from its Cargo source tree and returns
// the resulting binary path.
func Build(
	ctx context.Context,
	logger *slog.Logger,
	srcDir string,
) (string, error) {
	srcDir, err := filepath.Abs(srcDir)
	if err != nil {
		return "", fmt.Errorf("resolve renderer source: %w", err)
	}

	binPath := BuiltBinary(srcDir)

	logger.InfoContext(ctx, "building renderer",
		slog.String("source_dir", srcDir),
	)

	cmd := exec.CommandContext(ctx, "cargo", "build", "--release")
	cmd.Dir = srcDir
	cmd.Stdout = os.Stderr
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("build renderer: %w", err)
	}

	if _, err := os.Stat(binPath); err != nil {
		return "", fmt.Errorf(
			"build renderer: binary not found at %s", binPath,
		)
	}

	logger.InfoContext(ctx, "renderer built",
		slog.String("binary", binPath),
	)

	return binPath, nil
}
