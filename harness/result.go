// Package harness resolves, builds and invokes the external renderer
// under benchmark and measures each invocation.
package harness

import "time"

const bytesPerMB = 1024 * 1024

// Trial holds the measurements of one renderer invocation.
type Trial struct {
	FrameCount      int           `json:"frame_count"`
	InputDir        string        `json:"input_dir"`
	OutputPath      string        `json:"output_path"`
	Duration        time.Duration `json:"duration_ns"`
	OutputSizeBytes int64         `json:"output_size_bytes"`
}

// Seconds returns the wall-clock duration of the renderer call.
func (t Trial) Seconds() float64 {
	return t.Duration.Seconds()
}

// SizeMB returns the output size in mebibytes.
func (t Trial) SizeMB() float64 {
	return float64(t.OutputSizeBytes) / bytesPerMB
}

// AvgSecondsPerFrame returns the trial duration divided by its frame count.
func (t Trial) AvgSecondsPerFrame() float64 {
	if t.FrameCount <= 0 {
		return 0
	}

	return t.Seconds() / float64(t.FrameCount)
}
