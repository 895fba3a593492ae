// Package pathutil implements the pure string/path helpers a Hancho
// build script expects to find in its expression environment: swapping
// extensions, joining path prefixes, computing relative/absolute paths,
// flattening path lists, and globbing.
package pathutil

import (
	"path/filepath"
	"sort"
	"strings"
)

// SwapExt replaces path's extension with newExt (which may or may not
// have a leading dot).
func SwapExt(path, newExt string) string {
	if newExt != "" && !strings.HasPrefix(newExt, ".") {
		newExt = "." + newExt
	}
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + newExt
}

// Base returns the last path element, like filepath.Base but with
// forward slashes.
func Base(path string) string {
	return filepath.Base(filepath.FromSlash(path))
}

// Dir returns all but the last path element, like filepath.Dir but
// with forward slashes.
func Dir(path string) string {
	return filepath.ToSlash(filepath.Dir(filepath.FromSlash(path)))
}

// JoinPath joins path segments with "/", matching the forward-slash
// convention the rest of Hancho uses for portability across depfile
// formats and display.
func JoinPath(parts ...string) string {
	clean := make([]string, 0, len(parts))
	for _, p := range parts {
		if p == "" {
			continue
		}
		clean = append(clean, p)
	}
	joined := filepath.Join(clean...)
	return filepath.ToSlash(joined)
}

// RelPath returns path relative to base, using forward slashes. If
// path cannot be made relative to base, path is returned unchanged.
func RelPath(base, path string) string {
	rel, err := filepath.Rel(base, path)
	if err != nil {
		return path
	}
	return filepath.ToSlash(rel)
}

// AbsPath returns the absolute form of path, anchored at base if path
// is not already absolute.
func AbsPath(base, path string) string {
	if filepath.IsAbs(path) {
		return filepath.ToSlash(filepath.Clean(path))
	}
	return filepath.ToSlash(filepath.Join(base, path))
}

// Glob expands a glob pattern (anchored at dir unless pattern is
// already absolute) into a sorted list of matching paths, relative to
// dir when dir-relative, using forward slashes.
func Glob(dir, pattern string) ([]string, error) {
	full := pattern
	if !filepath.IsAbs(pattern) {
		full = filepath.Join(dir, pattern)
	}
	matches, err := filepath.Glob(full)
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)
	out := make([]string, len(matches))
	for i, m := range matches {
		if !filepath.IsAbs(pattern) {
			if rel, err := filepath.Rel(dir, m); err == nil {
				out[i] = filepath.ToSlash(rel)
				continue
			}
		}
		out[i] = filepath.ToSlash(m)
	}
	return out, nil
}

// Flatten recursively flattens nested string slices into one slice,
// the path-specific analogue of the generic value-level flatten used
// by template expansion.
func Flatten(in []any) []string {
	var out []string
	var walk func(v any)
	walk = func(v any) {
		switch t := v.(type) {
		case nil:
			return
		case string:
			out = append(out, t)
		case []string:
			out = append(out, t...)
		case []any:
			for _, e := range t {
				walk(e)
			}
		}
	}
	for _, v := range in {
		walk(v)
	}
	return out
}
