package reporter

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
)

// Console is the default Reporter implementation the CLI layer installs.
// On a TTY it renders live mpb progress bars for downloads; on a
// non-TTY (piped output, CI logs) it degrades to plain
// lines, matching tomei's ProgressManager TTY/non-TTY split.
type Console struct {
	mu       sync.Mutex
	w        io.Writer
	isTTY    bool
	verbose  bool
	progress *mpb.Progress
	bars     map[string]*mpb.Bar
	profile  termenv.Profile
}

// NewConsole builds a Console writing to w. verbose enables KindLockWait/
// KindCacheHit/KindInstallSkipped/KindExecStart lines that are otherwise
// suppressed.
func NewConsole(w io.Writer, verbose bool) *Console {
	isTTY := false
	if f, ok := w.(*os.File); ok {
		isTTY = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}

	c := &Console{
		w:       w,
		isTTY:   isTTY,
		verbose: verbose,
		bars:    make(map[string]*mpb.Bar),
		profile: termenv.ColorProfile(),
	}
	if isTTY {
		c.progress = mpb.New(mpb.WithOutput(w), mpb.WithWidth(40))
	}
	return c
}

// Wait blocks until every in-flight progress bar has finished rendering.
// Call once after the operation the Console was reporting on completes.
func (c *Console) Wait() {
	if c.progress != nil {
		c.progress.Wait()
	}
}

func barKey(tool, version string) string { return tool + "@" + version }

// Report implements reporter.Reporter.
func (c *Console) Report(ev Event) {
	switch ev.Kind {
	case KindDownloadStart:
		c.startBar(ev)
	case KindDownloadProgress:
		c.updateBar(ev)
	case KindDownloadComplete:
		c.completeBar(ev)
	case KindDownloadFallback:
		c.line(color.YellowString("fallback"), "%s@%s: %s unavailable, trying %s", ev.Tool, ev.Version, ev.Message, ev.Channel)
	case KindInstallComplete:
		c.line(color.GreenString("installed"), "%s@%s", ev.Tool, ev.Version)
	case KindInstallSkipped:
		if c.verbose {
			c.line(color.CyanString("cached"), "%s@%s already installed", ev.Tool, ev.Version)
		}
	case KindWarning:
		c.line(color.YellowString("warning"), "%s@%s: %s", ev.Tool, ev.Version, ev.Message)
	case KindError:
		c.line(color.RedString("error"), "%s", ev.Err)
	case KindLockWait:
		if c.verbose {
			c.line(color.CyanString("waiting"), "%s", ev.Message)
		}
	case KindCacheHit:
		if c.verbose {
			c.line(color.CyanString("cache"), "resolution cache hit")
		}
	case KindExecStart:
		if c.verbose {
			c.line(color.CyanString("exec"), "%s@%s", ev.Tool, ev.Version)
		}
	}
}

func (c *Console) line(tag string, format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.w, "%s %s\n", tag, fmt.Sprintf(format, args...))
}

func (c *Console) startBar(ev Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.progress == nil {
		fmt.Fprintf(c.w, "downloading %s@%s...\n", ev.Tool, ev.Version)
		return
	}

	total := ev.Total
	if total <= 0 {
		total = 1
	}
	bar := c.progress.AddBar(total,
		mpb.PrependDecorators(decor.Name(barKey(ev.Tool, ev.Version)+" ")),
		mpb.AppendDecorators(decor.CountersKibiByte("% .1f / % .1f")),
	)
	c.bars[barKey(ev.Tool, ev.Version)] = bar
}

func (c *Console) updateBar(ev Event) {
	c.mu.Lock()
	bar, ok := c.bars[barKey(ev.Tool, ev.Version)]
	c.mu.Unlock()
	if !ok || bar == nil {
		return
	}
	bar.SetCurrent(ev.Downloaded)
}

func (c *Console) completeBar(ev Event) {
	c.mu.Lock()
	bar, ok := c.bars[barKey(ev.Tool, ev.Version)]
	delete(c.bars, barKey(ev.Tool, ev.Version))
	c.mu.Unlock()
	if ok && bar != nil {
		bar.SetCurrent(bar.Current())
		bar.Abort(false)
	}
	if c.progress == nil {
		fmt.Fprintf(c.w, "downloaded %s@%s\n", ev.Tool, ev.Version)
	}
}
