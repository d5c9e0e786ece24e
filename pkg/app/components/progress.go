package components

import (
	"fmt"
	"strings"

	"github.com/kerbaras/novels/pkg/app/styles"
	"github.com/kerbaras/novels/pkg/services"
)

// ProgressTracker turns download events into the lines printed while a work
// is being fetched.
type ProgressTracker struct {
	width  int
	last   *services.DownloadProgress
	failed []int
}

func NewProgressTracker(width int) *ProgressTracker {
	return &ProgressTracker{width: width}
}

// Update records the event and returns the line to print for it, or "" when
// the event has nothing to show.
func (p *ProgressTracker) Update(progress services.DownloadProgress) string {
	prog := progress // Copy
	p.last = &prog

	switch progress.State {
	case services.StateResolving:
		return styles.MutedStyle.Render(fmt.Sprintf("🔍 Resolving catalog of %s...", progress.WorkID))
	case services.StateWriting:
		mark := "✅"
		if progress.Failed {
			mark = "❌"
			p.failed = append(p.failed, progress.Chapter)
		}
		done := progress.Chapter - progress.Start + 1
		total := progress.End - progress.Start + 1
		return fmt.Sprintf("%s [%d/%d] %s %s", mark, progress.Chapter, progress.End,
			progress.ChapterTitle, renderProgressBar(done, total, p.width))
	case services.StatePaused:
		return styles.StatusPaused.Render(fmt.Sprintf("⏸️  Paused, next chapter is %d", progress.Chapter))
	case services.StateDone:
		return styles.StatusCompleted.Render("✅ Download complete")
	}
	return ""
}

// Failed lists the chapters written with a placeholder body.
func (p *ProgressTracker) Failed() []int {
	return p.failed
}

func (p *ProgressTracker) HasActive() bool {
	return p.last != nil && (p.last.State == services.StateResolving || p.last.State == services.StateWriting)
}

func renderProgressBar(current, total, width int) string {
	if total <= 0 || width <= 0 {
		return ""
	}

	filled := int(float64(current) / float64(total) * float64(width))
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}

	return styles.ProgressBarStyle.Render(strings.Repeat("█", filled)) +
		styles.ProgressEmptyStyle.Render(strings.Repeat("░", width-filled))
}

// SimpleProgress renders a simple progress bar
func SimpleProgress(current, total, width int) string {
	return renderProgressBar(current, total, width)
}
