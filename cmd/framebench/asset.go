package main

import (
	"encoding/json"
	"fmt"
	"image/color"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/weiihann/framebench/asset"
)

func newAssetCmd(logger *slog.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "asset",
		Short: "Inspect or generate benchmark source images",
	}

	cmd.AddCommand(newAssetInspectCmd())
	cmd.AddCommand(newAssetGenerateCmd(logger))

	return cmd
}

func newAssetInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <path>",
		Short: "Print format, dimensions and size of an image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			info, err := asset.Inspect(args[0])
			if err != nil {
				return fmt.Errorf("inspect: %w", err)
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")

			return enc.Encode(info)
		},
	}
}

func newAssetGenerateCmd(logger *slog.Logger) *cobra.Command {
	var (
		out    string
		format string
		width  int
		height int
		gray   uint8
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Write a solid-color stub image",
		RunE: func(cmd *cobra.Command, _ []string) error {
			err := asset.WriteFile(out, asset.Spec{
				Format: format,
				Width:  width,
				Height: height,
				Color:  color.NRGBA{R: gray, G: gray, B: gray, A: 0xff},
			})
			if err != nil {
				return err
			}

			logger.InfoContext(cmd.Context(), "asset written",
				slog.String("path", out),
				slog.String("format", format),
				slog.Int("width", width),
				slog.Int("height", height),
			)

			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&out, "out", "frame.png", "Output path")
	flags.StringVar(&format, "format", "png", "Image format: png, bmp, tiff")
	flags.IntVar(&width, "width", 1, "Width in pixels")
	flags.IntVar(&height, "height", 1, "Height in pixels")
	flags.Uint8Var(&gray, "gray", 0, "Gray level of the fill color")

	return cmd
}
