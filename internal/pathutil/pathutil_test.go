package pathutil

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestSwapExt(t *testing.T) {
	t.Parallel()

	tests := []struct {
		path, ext, want string
	}{
		{"main.cpp", ".o", "main.o"},
		{"main.cpp", "o", "main.o"},
		{"dir/main.cpp", ".o", "dir/main.o"},
		{"noext", ".o", "noext.o"},
		{"main.o", "", "main"},
	}
	for _, tc := range tests {
		if got := SwapExt(tc.path, tc.ext); got != tc.want {
			t.Errorf("SwapExt(%q, %q) = %q, want %q", tc.path, tc.ext, got, tc.want)
		}
	}
}

func TestJoinPath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		parts []string
		want  string
	}{
		{[]string{"a", "b", "c"}, "a/b/c"},
		{[]string{"a", "", "c"}, "a/c"},
		{[]string{"a/b", "../c"}, "a/c"},
	}
	for _, tc := range tests {
		if got := JoinPath(tc.parts...); got != tc.want {
			t.Errorf("JoinPath(%v) = %q, want %q", tc.parts, got, tc.want)
		}
	}
}

func TestRelAndAbsPath(t *testing.T) {
	t.Parallel()

	if got := RelPath("/root/proj", "/root/proj/src/a.c"); got != "src/a.c" {
		t.Errorf("RelPath = %q, want src/a.c", got)
	}
	if got := AbsPath("/root/proj", "src/a.c"); got != "/root/proj/src/a.c" {
		t.Errorf("AbsPath = %q, want /root/proj/src/a.c", got)
	}
	// Already-absolute paths pass through cleaned.
	if got := AbsPath("/root/proj", "/other//x.c"); got != "/other/x.c" {
		t.Errorf("AbsPath(abs) = %q, want /other/x.c", got)
	}
}

func TestGlob(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	for _, name := range []string{"b.cpp", "a.cpp", "a.h"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatalf("WriteFile: %v", err)
		}
	}

	got, err := Glob(dir, "*.cpp")
	if err != nil {
		t.Fatalf("Glob: %v", err)
	}
	want := []string{"a.cpp", "b.cpp"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Glob = %v, want %v (sorted, dir-relative)", got, want)
	}
}

func TestFlatten(t *testing.T) {
	t.Parallel()

	in := []any{"a", nil, []any{"b", []string{"c", "d"}}, nil}
	got := Flatten(in)
	want := []string{"a", "b", "c", "d"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Flatten = %v, want %v", got, want)
	}
}
