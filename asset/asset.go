// Package asset inspects the benchmark's source image and generates
// solid-color stub images.
package asset

import (
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"io"
	"os"
	"strings"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Info describes a source asset.
type Info struct {
	Path      string `json:"path"`
	SizeBytes int64  `json:"size_bytes"`
	Format    string `json:"format,omitempty"`
	Width     int    `json:"width,omitempty"`
	Height    int    `json:"height,omitempty"`
}

// Inspect reads the image header of path. A file that exists but does
// not decode returns its size together with the decode error.
func Inspect(path string) (Info, error) {
	info := Info{Path: path}

	f, err := os.Open(path)
	if err != nil {
		return info, err
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return info, fmt.Errorf("stat %s: %w", path, err)
	}

	info.SizeBytes = st.Size()

	cfg, format, err := image.DecodeConfig(f)
	if err != nil {
		return info, fmt.Errorf("decode %s: %w", path, err)
	}

	info.Format = format
	info.Width = cfg.Width
	info.Height = cfg.Height

	return info, nil
}

// Spec describes a stub image to generate.
type Spec struct {
	Format string
	Width  int
	Height int
	Color  color.Color
}

// Formats lists the encodings Generate supports.
func Formats() []string {
	return []string{"png", "bmp", "tiff"}
}

// Generate writes a solid-color image described by spec to w.
func Generate(w io.Writer, spec Spec) error {
	if spec.Width < 1 || spec.Height < 1 {
		return fmt.Errorf("invalid size %dx%d", spec.Width, spec.Height)
	}

	c := spec.Color
	if c == nil {
		c = color.NRGBA{A: 0xff}
	}

	img := image.NewNRGBA(image.Rect(0, 0, spec.Width, spec.Height))
	for y := 0; y < spec.Height; y++ {
		for x := 0; x < spec.Width; x++ {
			img.Set(x, y, c)
		}
	}

	switch strings.ToLower(spec.Format) {
	case "", "png":
		return png.Encode(w, img)
	case "bmp":
		return bmp.Encode(w, img)
	case "tiff", "tif":
		return tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate})
	default:
		return fmt.Errorf("unsupported format %q (want one of %s)",
			spec.Format, strings.Join(Formats(), ", "))
	}
}

// WriteFile generates spec into a new file at path.
func WriteFile(path string, spec Spec) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}

	if err := Generate(f, spec); err != nil {
		f.Close()
		os.Remove(path)

		return fmt.Errorf("generate %s: %w", path, err)
	}

	return f.Close()
}
