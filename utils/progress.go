package utils

import (
	"fmt"
	"time"

	"github.com/cheggaaa/pb/v3"
)

// ProgressTracker renders transfer progress on the terminal. In quiet
// mode it only counts bytes.
type ProgressTracker struct {
	bar     *pb.ProgressBar
	quiet   bool
	started time.Time
	current int64
}

// NewProgressTracker starts a tracker for total bytes. A non-positive
// total produces an indeterminate counter.
func NewProgressTracker(total int64, quiet bool) *ProgressTracker {
	t := &ProgressTracker{quiet: quiet, started: time.Now()}
	if quiet {
		return t
	}
	tmpl := `{{string . "prefix"}}{{counters . }} {{bar . }} {{percent . }} {{speed . }} {{rtime . "ETA %s"}}`
	bar := pb.ProgressBarTemplate(tmpl).Start64(total)
	bar.Set(pb.Bytes, true)
	bar.Set("prefix", "Downloading: ")
	t.bar = bar
	return t
}

// Update records the cumulative byte count.
func (t *ProgressTracker) Update(current int64) {
	t.current = current
	if t.bar != nil {
		t.bar.SetCurrent(current)
	}
}

// Finish stops the bar and prints a short summary unless quiet.
func (t *ProgressTracker) Finish(path string) {
	elapsed := time.Since(t.started)
	if t.bar != nil {
		t.bar.Finish()
	}
	if t.quiet {
		return
	}
	speed := float64(t.current) / elapsed.Seconds()
	fmt.Printf("Saved %s in %v (%.2f MB/s)\n", path, elapsed.Round(time.Millisecond), speed/(1024*1024))
}
