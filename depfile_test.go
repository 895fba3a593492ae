package hancho

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestParseGCCDepfile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "util.d")
	content := "util.o: util.cpp util.hpp \\\n  common.hpp\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	deps, err := parseDepfile(path, DepFormatGCC)
	if err != nil {
		t.Fatalf("parseDepfile: %v", err)
	}
	want := []string{"util.cpp", "util.hpp", "common.hpp"}
	if !reflect.DeepEqual(deps, want) {
		t.Errorf("deps = %v, want %v", deps, want)
	}
}

func TestParseGCCDepfileEscapedSpace(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "escaped.d")
	content := "out.o: a\\ file.h other.h\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	deps, err := parseDepfile(path, DepFormatGCC)
	if err != nil {
		t.Fatalf("parseDepfile: %v", err)
	}
	want := []string{"a file.h", "other.h"}
	if !reflect.DeepEqual(deps, want) {
		t.Errorf("deps = %v, want %v", deps, want)
	}
}

func TestParseMSVCDepfile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "deps.json")
	content := `{"Data":{"Includes":["a.h","b.h"]}}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	deps, err := parseDepfile(path, DepFormatMSVC)
	if err != nil {
		t.Fatalf("parseDepfile: %v", err)
	}
	want := []string{"a.h", "b.h"}
	if !reflect.DeepEqual(deps, want) {
		t.Errorf("deps = %v, want %v", deps, want)
	}
}

func TestParseDepfileMissingFileIsAnError(t *testing.T) {
	t.Parallel()

	// An unreadable depfile is only a warning at the rebuild-decision
	// layer; parseDepfile itself still returns a plain error for the
	// caller to classify.
	_, err := parseDepfile(filepath.Join(t.TempDir(), "missing.d"), DepFormatGCC)
	if err == nil {
		t.Fatalf("expected an error for a missing depfile")
	}
}
