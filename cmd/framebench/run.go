package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/weiihann/framebench/asset"
	"github.com/weiihann/framebench/bench"
	"github.com/weiihann/framebench/config"
	"github.com/weiihann/framebench/harness"
	"github.com/weiihann/framebench/report"
)

func newRunCmd(logger *slog.Logger) *cobra.Command {
	var (
		configPath  string
		source      string
		frameCounts []int
		workDir     string
		renderer    string
		rendererSrc string
		rendererArg []string
		outputExt   string
		timeout     time.Duration
		copyWorkers int
		skipBuild   bool
		outputJSON  bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the frame-count sweep against the renderer",
		Long: `Materialize one input directory per frame count, invoke the renderer
on each in order and print a progress row per trial followed by a summary
table. The first failure aborts the run.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.Default()

			if configPath != "" {
				var err error

				cfg, err = config.Load(configPath)
				if err != nil {
					return err
				}
			}

			flags := cmd.Flags()
			if flags.Changed("source") {
				cfg.Source = source
			}
			if flags.Changed("frames") {
				cfg.FrameCounts = frameCounts
			}
			if flags.Changed("work-dir") {
				cfg.WorkDir = workDir
			}
			if cfg.WorkDir == "" {
				cfg.WorkDir = "."
			}
			if flags.Changed("renderer") {
				cfg.Renderer.Binary = renderer
			}
			if flags.Changed("renderer-src") {
				cfg.Renderer.SourceDir = rendererSrc
			}
			if flags.Changed("renderer-arg") {
				cfg.Renderer.Args = rendererArg
			}
			if flags.Changed("output-ext") {
				cfg.OutputExt = outputExt
			}
			if flags.Changed("timeout") {
				cfg.Renderer.Timeout = timeout
			}
			if flags.Changed("copy-workers") {
				cfg.CopyWorkers = copyWorkers
			}

			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			return runBenchmark(cmd.Context(), logger, runConfig{
				cfg:        cfg,
				skipBuild:  skipBuild,
				outputJSON: outputJSON,
				stdout:     cmd.OutOrStdout(),
				stderr:     cmd.ErrOrStderr(),
			})
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&configPath, "config", "",
		"Path to a YAML run configuration")
	flags.StringVar(&source, "source", "",
		"Source image copied into every frame directory")
	flags.IntSliceVar(&frameCounts, "frames", config.DefaultFrameCounts(),
		"Frame counts to benchmark, in order")
	flags.StringVar(&workDir, "work-dir", ".",
		"Directory receiving frames_<N> and output_<N> files")
	flags.StringVar(&renderer, "renderer", harness.DefaultBinary,
		"Renderer executable name or path")
	flags.StringVar(&rendererSrc, "renderer-src", "",
		"Renderer Cargo source tree to build before the run")
	flags.StringArrayVar(&rendererArg, "renderer-arg", nil,
		"Extra argument passed to the renderer (repeatable)")
	flags.StringVar(&outputExt, "output-ext", "webm",
		"Extension of the renderer output files")
	flags.DurationVar(&timeout, "timeout", 0,
		"Per-trial renderer timeout (0 = wait indefinitely)")
	flags.IntVar(&copyWorkers, "copy-workers", 1,
		"Concurrent file writes while preparing frames")
	flags.BoolVar(&skipBuild, "skip-build", false,
		"Use an existing build from --renderer-src")
	flags.BoolVar(&outputJSON, "json", false,
		"Output results as JSON instead of table")

	return cmd
}

type runConfig struct {
	cfg        *config.Config
	skipBuild  bool
	outputJSON bool
	stdout     io.Writer
	stderr     io.Writer
}

func runBenchmark(
	ctx context.Context,
	logger *slog.Logger,
	rc runConfig,
) error {
	cfg := rc.cfg
	startedAt := time.Now()

	// Step 1: Fail fast on a missing source before touching anything.
	if err := bench.CheckSource(cfg.Source); err != nil {
		return err
	}

	info, err := asset.Inspect(cfg.Source)
	if err != nil {
		logger.WarnContext(ctx, "source is not a decodable image",
			slog.String("source", cfg.Source),
			slog.String("error", err.Error()),
		)
	} else {
		logger.InfoContext(ctx, "source asset",
			slog.String("source", info.Path),
			slog.String("format", info.Format),
			slog.Int("width", info.Width),
			slog.Int("height", info.Height),
			slog.String("size", report.FormatBytes(info.SizeBytes)),
		)
	}

	// Step 2: Resolve or build the renderer.
	binPath, err := resolveRenderer(ctx, logger, cfg, rc.skipBuild)
	if err != nil {
		return err
	}

	host := report.CollectHost(ctx)

	logger.InfoContext(ctx, "starting benchmark",
		slog.String("renderer", binPath),
		slog.Any("frame_counts", cfg.FrameCounts),
		slog.String("work_dir", cfg.WorkDir),
		slog.Duration("timeout", cfg.Renderer.Timeout),
		slog.String("cpu", host.CPUModel),
		slog.Int("cpu_logical", host.CPULogical),
	)

	if err := os.MkdirAll(cfg.WorkDir, 0o755); err != nil {
		return fmt.Errorf("create work dir: %w", err)
	}

	// Step 3: Run the sweep. Progress rows share stdout with the table
	// unless JSON owns it.
	progress := rc.stdout
	if rc.outputJSON {
		progress = rc.stderr
	}

	runner := harness.NewRunner(
		binPath, cfg.Renderer.Args, cfg.Renderer.Env, logger,
	)

	driver := bench.NewDriver(bench.Config{
		Source:      cfg.Source,
		FrameCounts: cfg.FrameCounts,
		WorkDir:     cfg.WorkDir,
		OutputExt:   cfg.OutputExt,
		CopyWorkers: cfg.CopyWorkers,
		Timeout:     cfg.Renderer.Timeout,
	}, runner, progress, logger)

	trials, err := driver.Run(ctx)
	if err != nil {
		return err
	}

	// Step 4: Generate report.
	if rc.outputJSON {
		r := report.New(startedAt, binPath, info, host, trials)
		if err := report.GenerateJSON(rc.stdout, r); err != nil {
			return fmt.Errorf("generate JSON report: %w", err)
		}
	} else {
		if err := report.Generate(rc.stdout, trials); err != nil {
			return fmt.Errorf("generate report: %w", err)
		}
	}

	logger.InfoContext(ctx, "benchmark complete",
		slog.Int("trials", len(trials)),
		slog.Duration("elapsed", time.Since(startedAt)),
	)

	return nil
}

func resolveRenderer(
	ctx context.Context,
	logger *slog.Logger,
	cfg *config.Config,
	skipBuild bool,
) (string, error) {
	if cfg.Renderer.SourceDir == "" {
		return harness.ResolveBinary(cfg.Renderer.Binary)
	}

	if skipBuild {
		return harness.ResolveBinary(harness.BuiltBinary(cfg.Renderer.SourceDir))
	}

	binPath, err := harness.Build(ctx, logger, cfg.Renderer.SourceDir)
	if err != nil {
		return "", fmt.Errorf("build renderer: %w", err)
	}

	return binPath, nil
}
