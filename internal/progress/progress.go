package progress

import (
	"io"

	"github.com/schollz/progressbar/v3"
)

// Task tracks one long-running operation, such as downloading the segments of
// a single stream.
type Task interface {
	Advance(n int)
	Finish()
}

// Reporter hands out progress tasks. Implementations must be safe for use
// from multiple goroutines; jobs and segment workers share one reporter.
type Reporter interface {
	StartTask(label string, total int) Task
}

type nopReporter struct{}

type nopTask struct{}

func (nopTask) Advance(int) {}

func (nopTask) Finish() {}

func (nopReporter) StartTask(string, int) Task { return nopTask{} }

// NewNop returns a reporter that discards all progress updates. Used in tests
// and whenever output is not a terminal.
func NewNop() Reporter { return nopReporter{} }

type barReporter struct {
	out io.Writer
}

type barTask struct {
	bar *progressbar.ProgressBar
}

func (t *barTask) Advance(n int) {
	_ = t.bar.Add(n)
}

func (t *barTask) Finish() {
	_ = t.bar.Finish()
}

// NewBars returns a reporter that renders terminal progress bars to out.
func NewBars(out io.Writer) Reporter {
	return &barReporter{out: out}
}

func (r *barReporter) StartTask(label string, total int) Task {
	// Render the empty bar right away; throttled updates would otherwise
	// leave short tasks invisible.
	bar := progressbar.NewOptions(total,
		progressbar.OptionSetWriter(r.out),
		progressbar.OptionSetDescription(label),
		progressbar.OptionSetRenderBlankState(true),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionShowCount(),
		progressbar.OptionThrottle(65e6),
	)
	return &barTask{bar: bar}
}
