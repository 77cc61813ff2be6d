// Package report formats benchmark trials into progress rows, a summary
// table and a JSON document.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/weiihann/framebench/asset"
	"github.com/weiihann/framebench/harness"
)

const (
	summaryTitle  = "Benchmark Results:"
	summaryHeader = "Frames | Total Time | Size (MB) | Avg Time/Frame"
)

// Report is the machine-readable form of a completed run.
type Report struct {
	RunID     string          `json:"run_id"`
	StartedAt time.Time       `json:"started_at"`
	Renderer  string          `json:"renderer"`
	Source    asset.Info      `json:"source"`
	Host      Host            `json:"host"`
	Trials    []TrialRow      `json:"trials"`
	Raw       []harness.Trial `json:"raw"`
}

// TrialRow is one trial with its derived metrics.
type TrialRow struct {
	Frames             int     `json:"frames"`
	DurationSeconds    float64 `json:"duration_seconds"`
	SizeMB             float64 `json:"size_mb"`
	AvgSecondsPerFrame float64 `json:"avg_seconds_per_frame"`
}

// New assembles a Report for trials with a fresh run ID.
func New(
	startedAt time.Time,
	renderer string,
	source asset.Info,
	host Host,
	trials []harness.Trial,
) Report {
	rows := make([]TrialRow, 0, len(trials))
	for _, t := range trials {
		rows = append(rows, TrialRow{
			Frames:             t.FrameCount,
			DurationSeconds:    t.Seconds(),
			SizeMB:             t.SizeMB(),
			AvgSecondsPerFrame: t.AvgSecondsPerFrame(),
		})
	}

	return Report{
		RunID:     uuid.NewString(),
		StartedAt: startedAt.UTC(),
		Renderer:  renderer,
		Source:    source,
		Host:      host,
		Trials:    rows,
		Raw:       trials,
	}
}

// WriteProgress writes the progress row for one completed trial.
func WriteProgress(w io.Writer, t harness.Trial) error {
	_, err := fmt.Fprintln(w, formatRow(t))

	return err
}

// Generate writes the final summary table, one row per trial in order.
func Generate(w io.Writer, trials []harness.Trial) error {
	if len(trials) == 0 {
		return fmt.Errorf("no results to report")
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, summaryTitle)
	fmt.Fprintln(w, summaryHeader)

	for _, t := range trials {
		if _, err := fmt.Fprintln(w, formatRow(t)); err != nil {
			return err
		}
	}

	return nil
}

// GenerateJSON writes r as indented JSON to w.
func GenerateJSON(w io.Writer, r Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(r)
}

func formatRow(t harness.Trial) string {
	return fmt.Sprintf("%d | %.2f | %.2f | %.4f",
		t.FrameCount,
		t.Seconds(),
		t.SizeMB(),
		t.AvgSecondsPerFrame(),
	)
}

// FormatBytes renders b with a binary unit suffix, e.g. "1.5 KB".
func FormatBytes(b int64) string {
	if b <= 0 {
		return "-"
	}

	units := []string{"B", "KB", "MB", "GB", "TB"}
	size := float64(b)
	unit := 0

	for size >= 1024 && unit < len(units)-1 {
		size /= 1024
		unit++
	}

	formatted := fmt.Sprintf("%.1f", size)
	formatted = strings.TrimRight(formatted, "0")
	formatted = strings.TrimRight(formatted, ".")

	return formatted + " " + units[unit]
}
