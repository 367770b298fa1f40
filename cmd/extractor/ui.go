package main

import (
	"fmt"
	"io"
	"sync"

	"github.com/fiapx/fiapx-frame-extractor/internal/worker"
	"github.com/schollz/progressbar/v3"
)

// consoleUI renders queue messages: status lines as text, frame progress as a bar.
type consoleUI struct {
	mu  sync.Mutex
	out io.Writer
	bar *progressbar.ProgressBar
}

func newConsoleUI(out io.Writer) *consoleUI {
	return &consoleUI{out: out}
}

func (u *consoleUI) handle(m worker.Message) {
	u.mu.Lock()
	defer u.mu.Unlock()

	switch m.Kind {
	case worker.KindProgress:
		if done, total, ok := parseFrameProgress(m.Text); ok {
			if u.bar == nil {
				u.bar = u.newBar(total)
			}
			_ = u.bar.Set(done)
			return
		}
		u.finishBar()
		fmt.Fprintln(u.out, m.Text)
	case worker.KindResult:
		u.finishBar()
		r := m.Result
		fmt.Fprintln(u.out, "Processing complete!")
		fmt.Fprintf(u.out, "Video: %s (%.2f s, %.2f fps, %s)\n",
			r.Metadata.Filename, r.Metadata.Duration, r.Metadata.FPS, r.Metadata.Resolution)
		fmt.Fprintf(u.out, "Frames extracted: %d\n", r.Analysis.TotalFrames)
		fmt.Fprintf(u.out, "Average frame size: %.4f MB\n", r.Analysis.AverageFileSize)
		fmt.Fprintf(u.out, "Output directory: %s\n", r.OutputDirectory)
		fmt.Fprintf(u.out, "Report: %s\n", r.ReportPath)
	case worker.KindCancelled, worker.KindError:
		u.finishBar()
	}
}

func (u *consoleUI) cancelling() {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.finishBar()
	fmt.Fprintln(u.out, "Cancelling...")
}

func (u *consoleUI) newBar(total int) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(u.out),
		progressbar.OptionSetDescription("Extracting frames"),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetRenderBlankState(true),
	)
}

func (u *consoleUI) finishBar() {
	if u.bar == nil {
		return
	}
	_ = u.bar.Finish()
	fmt.Fprintln(u.out)
	u.bar = nil
}

// parseFrameProgress reads "Extracted frame i/n at Ts" status lines.
func parseFrameProgress(line string) (done, total int, ok bool) {
	var ts int
	n, err := fmt.Sscanf(line, "Extracted frame %d/%d at %ds", &done, &total, &ts)
	if err != nil || n != 3 || total < 1 {
		return 0, 0, false
	}
	return done, total, true
}
