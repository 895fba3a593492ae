package output

import (
	"bytes"
	"strings"
	"testing"
)

func newTestPrinter(quiet, verbose bool) (*Printer, *bytes.Buffer) {
	var buf bytes.Buffer
	off := false
	return NewPrinter(&buf, &off, quiet, verbose), &buf
}

func TestBannerFormat(t *testing.T) {
	t.Parallel()

	p, buf := newTestPrinter(false, false)
	p.Banner(2, 5, "compile util.cpp")
	if got := buf.String(); got != "[2/5] compile util.cpp\n" {
		t.Errorf("banner = %q", got)
	}
}

func TestQuietSuppressesEverythingButFailures(t *testing.T) {
	t.Parallel()

	p, buf := newTestPrinter(true, true)
	p.Banner(1, 1, "x")
	p.Reason("up to date")
	p.Command("cc -c x.c")
	p.Warning("depfile unreadable")
	if buf.Len() != 0 {
		t.Errorf("quiet printer wrote %q", buf.String())
	}

	p.Failure("x", "out", "err", nil)
	s := buf.String()
	if !strings.Contains(s, "FAILED: x") || !strings.Contains(s, "out") || !strings.Contains(s, "err") {
		t.Errorf("failure dump = %q, want banner + captured output", s)
	}
}

func TestReasonGatedOnVerbose(t *testing.T) {
	t.Parallel()

	p, buf := newTestPrinter(false, false)
	p.Reason("force flag")
	if buf.Len() != 0 {
		t.Errorf("reason printed without verbose: %q", buf.String())
	}

	p, buf = newTestPrinter(false, true)
	p.Reason("force flag")
	if !strings.Contains(buf.String(), "force flag") {
		t.Errorf("verbose reason missing: %q", buf.String())
	}
}

func TestWarningPrintsWithoutVerbose(t *testing.T) {
	t.Parallel()

	p, buf := newTestPrinter(false, false)
	p.Warning("duplicate output a.o")
	if !strings.Contains(buf.String(), "warning: duplicate output a.o") {
		t.Errorf("warning = %q", buf.String())
	}
}

func TestTallyLine(t *testing.T) {
	t.Parallel()

	p, buf := newTestPrinter(false, false)
	p.PrintTally(Tally{Started: 4, Succeeded: 2, Failed: 1, Skipped: 1})
	want := "4 started, 2 succeeded, 1 failed, 1 skipped, 0 cancelled\n"
	if got := buf.String(); got != want {
		t.Errorf("tally = %q, want %q", got, want)
	}
}

func TestDumpYAML(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if err := DumpYAML(&buf, "plan", []PlanEntry{{Index: 0, Desc: "link app"}}); err != nil {
		t.Fatalf("DumpYAML: %v", err)
	}
	s := buf.String()
	if !strings.HasPrefix(s, "# plan\n") || !strings.Contains(s, "desc: link app") {
		t.Errorf("dump = %q", s)
	}
}
