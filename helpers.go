package hancho

import (
	"fmt"

	"github.com/hancho-build/hancho/internal/pathutil"
)

// defaultHelpers builds the fixed helper namespace available to every
// expression, alongside the Config chain — expressions cannot reach
// any other runtime namespace. These are pure path/string utilities;
// task_dir anchors relative path helpers to the Config currently being
// expanded.
func defaultHelpers(cfg *Config) map[string]Callable {
	dir, _ := cfg.Get("task_dir")
	dirStr, _ := dir.(string)
	if dirStr == "" {
		dirStr = "."
	}

	return map[string]Callable{
		"ext":       swapExtHelper,
		"swap_ext":  swapExtHelper,
		"join_path": joinPathHelper,
		"rel_path":  relPathHelper(dirStr),
		"abs_path":  absPathHelper(dirStr),
		"glob":      globHelper(dirStr),
		"len":       lenHelper,
		"flatten":   flattenHelper,
		"basename":  basenameHelper,
		"dirname":   dirnameHelper,
	}
}

func argString(args []any, i int, name string) (string, error) {
	if i >= len(args) {
		return "", fmt.Errorf("%s: expected at least %d argument(s)", name, i+1)
	}
	switch v := args[i].(type) {
	case string:
		return v, nil
	case []any:
		// Resolved in_*/out_* fields are path lists even when they hold
		// a single file; a one-element list is usable wherever a single
		// path is expected.
		if len(v) == 1 {
			if s, ok := v[0].(string); ok {
				return s, nil
			}
		}
	}
	return "", fmt.Errorf("%s: argument %d must be a string, got %T", name, i, args[i])
}

// mapPaths applies fn to arg if it is a single path, or element-wise
// if it is a list of paths — the path helpers all accept either, since
// in_*/out_* fields resolve to lists.
func mapPaths(arg any, name string, fn func(string) string) (any, error) {
	switch v := arg.(type) {
	case string:
		return fn(v), nil
	case []any:
		out := make([]any, 0, len(v))
		for _, e := range flatten(v) {
			s, ok := e.(string)
			if !ok {
				return nil, fmt.Errorf("%s: expected a path, got %T", name, e)
			}
			out = append(out, fn(s))
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%s: expected a path or path list, got %T", name, arg)
	}
}

func swapExtHelper(args []any) (any, error) {
	if len(args) < 2 {
		return nil, fmt.Errorf("ext: expected 2 arguments")
	}
	newExt, err := argString(args, 1, "ext")
	if err != nil {
		return nil, err
	}
	return mapPaths(args[0], "ext", func(p string) string {
		return pathutil.SwapExt(p, newExt)
	})
}

func joinPathHelper(args []any) (any, error) {
	parts := make([]string, 0, len(args))
	for i := range args {
		s, err := argString(args, i, "join_path")
		if err != nil {
			return nil, err
		}
		parts = append(parts, s)
	}
	return pathutil.JoinPath(parts...), nil
}

func relPathHelper(dir string) Callable {
	return func(args []any) (any, error) {
		if len(args) < 1 {
			return nil, fmt.Errorf("rel_path: expected at least 1 argument")
		}
		base := dir
		if len(args) > 1 {
			var err error
			base, err = argString(args, 1, "rel_path")
			if err != nil {
				return nil, err
			}
		}
		return mapPaths(args[0], "rel_path", func(p string) string {
			return pathutil.RelPath(base, p)
		})
	}
}

func absPathHelper(dir string) Callable {
	return func(args []any) (any, error) {
		if len(args) < 1 {
			return nil, fmt.Errorf("abs_path: expected 1 argument")
		}
		return mapPaths(args[0], "abs_path", func(p string) string {
			return pathutil.AbsPath(dir, p)
		})
	}
}

func globHelper(dir string) Callable {
	return func(args []any) (any, error) {
		pattern, err := argString(args, 0, "glob")
		if err != nil {
			return nil, err
		}
		matches, err := pathutil.Glob(dir, pattern)
		if err != nil {
			return nil, err
		}
		out := make([]any, len(matches))
		for i, m := range matches {
			out[i] = m
		}
		return out, nil
	}
}

func lenHelper(args []any) (any, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("len: expected exactly 1 argument")
	}
	switch v := args[0].(type) {
	case string:
		return float64(len([]rune(v))), nil
	case []any:
		return float64(len(v)), nil
	default:
		return nil, fmt.Errorf("len: unsupported type %T", v)
	}
}

func flattenHelper(args []any) (any, error) {
	return flatten(args), nil
}

func basenameHelper(args []any) (any, error) {
	if len(args) < 1 {
		return nil, fmt.Errorf("basename: expected 1 argument")
	}
	return mapPaths(args[0], "basename", pathutil.Base)
}

func dirnameHelper(args []any) (any, error) {
	if len(args) < 1 {
		return nil, fmt.Errorf("dirname: expected 1 argument")
	}
	return mapPaths(args[0], "dirname", pathutil.Dir)
}
