package hancho

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func touch(t *testing.T, path string, when time.Time) {
	t.Helper()
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("WriteFile(%s): %v", path, err)
	}
	if err := os.Chtimes(path, when, when); err != nil {
		t.Fatalf("Chtimes(%s): %v", path, err)
	}
}

func TestDecideRebuild_ForceFlag(t *testing.T) {
	t.Parallel()
	d, err := decideRebuild(true, nil, nil, "", DepFormatGCC, t.TempDir())
	if err != nil {
		t.Fatalf("decideRebuild: %v", err)
	}
	if !d.Rebuild || d.Reason != "force flag" {
		t.Errorf("decision = %+v, want rebuild with reason %q", d, "force flag")
	}
}

func TestDecideRebuild_MissingOutput(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	out := filepath.Join(dir, "missing.o")
	d, err := decideRebuild(false, nil, []string{out}, "", DepFormatGCC, dir)
	if err != nil {
		t.Fatalf("decideRebuild: %v", err)
	}
	if !d.Rebuild {
		t.Errorf("expected rebuild when output is missing")
	}
}

func TestDecideRebuild_EmptyInputsNonEmptyOutputsAlwaysRebuilds(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	out := filepath.Join(dir, "out.txt")
	touch(t, out, time.Now())
	d, err := decideRebuild(false, nil, []string{out}, "", DepFormatGCC, dir)
	if err != nil {
		t.Fatalf("decideRebuild: %v", err)
	}
	if !d.Rebuild || d.Reason != "always rebuild a target with no inputs" {
		t.Errorf("decision = %+v, want the no-inputs-always-rebuild rule", d)
	}
}

func TestDecideRebuild_StaleInputTriggersRebuild(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	out := filepath.Join(dir, "out.o")
	in := filepath.Join(dir, "in.c")
	base := time.Now().Add(-time.Hour)
	touch(t, out, base)
	touch(t, in, base.Add(time.Minute))

	d, err := decideRebuild(false, []string{in}, []string{out}, "", DepFormatGCC, dir)
	if err != nil {
		t.Fatalf("decideRebuild: %v", err)
	}
	if !d.Rebuild {
		t.Errorf("expected rebuild when input is newer than output")
	}
}

func TestDecideRebuild_UpToDateSkips(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	out := filepath.Join(dir, "out.o")
	in := filepath.Join(dir, "in.c")
	base := time.Now().Add(-time.Hour)
	touch(t, in, base)
	touch(t, out, base.Add(time.Minute))

	d, err := decideRebuild(false, []string{in}, []string{out}, "", DepFormatGCC, dir)
	if err != nil {
		t.Fatalf("decideRebuild: %v", err)
	}
	if d.Rebuild {
		t.Errorf("expected skip when output is newer than all inputs, got reason %q", d.Reason)
	}
}

func TestDecideRebuild_DepfileDependencyChanged(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	out := filepath.Join(dir, "out.o")
	in := filepath.Join(dir, "in.c")
	hdr := filepath.Join(dir, "in.h")
	base := time.Now().Add(-time.Hour)
	touch(t, in, base)
	touch(t, out, base.Add(time.Minute))
	touch(t, hdr, base.Add(2*time.Hour)) // newer than out

	depfile := filepath.Join(dir, "out.d")
	if err := os.WriteFile(depfile, []byte("out.o: "+in+" "+hdr+"\n"), 0o644); err != nil {
		t.Fatalf("WriteFile(depfile): %v", err)
	}

	d, err := decideRebuild(false, []string{in}, []string{out}, depfile, DepFormatGCC, dir)
	if err != nil {
		t.Fatalf("decideRebuild: %v", err)
	}
	if !d.Rebuild {
		t.Errorf("expected rebuild triggered by changed depfile dependency")
	}
}

func TestDecideRebuild_UnreadableDepfileIsWarningNotFatal(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	out := filepath.Join(dir, "out.o")
	in := filepath.Join(dir, "in.c")
	base := time.Now().Add(-time.Hour)
	touch(t, in, base)
	touch(t, out, base.Add(time.Minute))

	missingDepfile := filepath.Join(dir, "nonexistent.d")
	d, warnErr := decideRebuild(false, []string{in}, []string{out}, missingDepfile, DepFormatGCC, dir)
	if d.Rebuild {
		t.Errorf("a missing depfile must not itself force a rebuild")
	}
	if warnErr == nil {
		t.Errorf("expected a non-nil warning error for the missing depfile")
	}
}
