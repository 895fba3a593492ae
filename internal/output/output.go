// Package output renders the banners, rebuild reasons, failure dumps
// and debug/plan snapshots a Hancho run prints: detect a TTY with
// go-isatty, wrap stdout with go-colorable on Windows, gate color on
// --use_color/NO_COLOR, and color with fatih/color.
package output

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
)

// Printer writes a build run's progress output to a single stream,
// applying color only when the stream is a real terminal (or the
// caller forced it on) and NO_COLOR is not set.
type Printer struct {
	w       io.Writer
	color   bool
	quiet   bool
	verbose bool

	banner  *color.Color
	reason  *color.Color
	failure *color.Color
	ok      *color.Color
}

// NewPrinter builds a Printer over w (typically os.Stdout, wrapped
// with go-colorable so ANSI codes render on Windows consoles too).
// useColor is a tri-state via *bool: nil means auto-detect from the
// stream and NO_COLOR; non-nil forces color on or off (--use_color).
func NewPrinter(w io.Writer, useColor *bool, quiet, verbose bool) *Printer {
	enabled := autoColor(w)
	if useColor != nil {
		enabled = *useColor
	}
	if os.Getenv("NO_COLOR") != "" {
		enabled = false
	}
	if f, ok := w.(*os.File); ok {
		w = colorable.NewColorable(f)
	}
	p := &Printer{w: w, color: enabled, quiet: quiet, verbose: verbose}
	p.banner = color.New(color.FgCyan, color.Bold)
	p.reason = color.New(color.FgYellow)
	p.failure = color.New(color.FgRed, color.Bold)
	p.ok = color.New(color.FgGreen)
	for _, c := range []*color.Color{p.banner, p.reason, p.failure, p.ok} {
		c.EnableColor()
		if !enabled {
			c.DisableColor()
		}
	}
	return p
}

func autoColor(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Banner prints the "[i/N] desc" line a task starts with.
func (p *Printer) Banner(i, n int, desc string) {
	if p.quiet {
		return
	}
	p.banner.Fprintf(p.w, "[%d/%d]", i, n)
	fmt.Fprintf(p.w, " %s\n", desc)
}

// Reason prints a task's rebuild (or skip) reason when verbose.
func (p *Printer) Reason(reason string) {
	if p.quiet || !p.verbose {
		return
	}
	p.reason.Fprintf(p.w, "  %s\n", reason)
}

// Warning prints a non-fatal problem (duplicate outputs, unreadable
// depfiles); muted only by quiet.
func (p *Printer) Warning(msg string) {
	if p.quiet {
		return
	}
	p.reason.Fprintf(p.w, "warning: %s\n", msg)
}

// Command prints the expanded command about to run, when verbose.
func (p *Printer) Command(cmd string) {
	if p.quiet || !p.verbose {
		return
	}
	fmt.Fprintf(p.w, "  %s\n", cmd)
}

// Trace prints one template-expansion fixed-point step (--trace).
func (p *Printer) Trace(taskIdx, depth int, tmpl, result string) {
	if p.quiet {
		return
	}
	fmt.Fprintf(p.w, "  [trace] task#%d depth=%d %q -> %q\n", taskIdx, depth, tmpl, result)
}

// Failure prints a task's captured stdout/stderr on non-zero exit or
// error, regardless of quiet/verbose (failures are never suppressed).
func (p *Printer) Failure(desc, stdout, stderr string, err error) {
	p.failure.Fprintf(p.w, "FAILED: %s\n", desc)
	if err != nil {
		fmt.Fprintf(p.w, "  error: %v\n", err)
	}
	if stdout != "" {
		fmt.Fprintf(p.w, "--- stdout ---\n%s\n", stdout)
	}
	if stderr != "" {
		fmt.Fprintf(p.w, "--- stderr ---\n%s\n", stderr)
	}
}

// Tally is the final counts line printed once the scheduler drains.
type Tally struct {
	Started   int
	Succeeded int
	Failed    int
	Skipped   int
	Cancelled int
}

func (p *Printer) PrintTally(t Tally) {
	c := p.ok
	if t.Failed > 0 || t.Cancelled > 0 {
		c = p.failure
	}
	c.Fprintf(p.w, "%d started, %d succeeded, %d failed, %d skipped, %d cancelled\n",
		t.Started, t.Succeeded, t.Failed, t.Skipped, t.Cancelled)
}
