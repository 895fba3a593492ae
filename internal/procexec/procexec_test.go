package procexec

import (
	"context"
	"testing"
)

func TestRunCapturesStdoutAndExitCode(t *testing.T) {
	t.Parallel()

	res, err := Run(context.Background(), t.TempDir(), "echo hello")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.ReturnCode != 0 {
		t.Errorf("ReturnCode = %d, want 0", res.ReturnCode)
	}
	if got := res.Stdout; got != "hello\n" {
		t.Errorf("Stdout = %q, want %q", got, "hello\n")
	}
}

func TestRunNonZeroExit(t *testing.T) {
	t.Parallel()

	res, err := Run(context.Background(), t.TempDir(), "sh -c 'exit 7'")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.ReturnCode != 7 {
		t.Errorf("ReturnCode = %d, want 7", res.ReturnCode)
	}
}

func TestRunAllStopsAtFirstFailure(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	res, stopIdx, err := RunAll(context.Background(), dir, []string{
		"echo one",
		"sh -c 'exit 3'",
		"echo three",
	})
	if err != nil {
		t.Fatalf("RunAll: %v", err)
	}
	if stopIdx != 1 {
		t.Errorf("stopIdx = %d, want 1", stopIdx)
	}
	if res.ReturnCode != 3 {
		t.Errorf("ReturnCode = %d, want 3", res.ReturnCode)
	}
}

func TestNeedsShellDetection(t *testing.T) {
	t.Parallel()

	cases := []struct {
		cmd  string
		want bool
	}{
		{"gcc -c main.c -o main.o", false},
		{"echo a | wc -l", true},
		{"echo $HOME", true},
	}
	for _, c := range cases {
		if got := needsShell(c.cmd); got != c.want {
			t.Errorf("needsShell(%q) = %v, want %v", c.cmd, got, c.want)
		}
	}
}
