package hancho

import (
	"context"
	"fmt"
	"strings"

	"github.com/hancho-build/hancho/internal/pathutil"
)

// resolveFields normalizes every field on cfg whose name has the given
// prefix ("in_" or "out_") into an ordered list of absolute path
// strings: flatten nested sequences, drop nils, await Task promises
// (substituting their resolved outputs on success and propagating
// failure as an error), expand template strings and re-flatten, then
// anchor every resulting relative path at taskDir.
//
// out_* fields never contain Task promises; a *Task encountered while
// resolving an out_* field is a user error.
func resolveFields(ctx context.Context, cfg *Config, prefix, taskDir string) (map[string][]string, []string, error) {
	names := cfg.fieldsWithPrefix(prefix)
	result := make(map[string][]string, len(names))
	var all []string
	for _, name := range names {
		v, _ := cfg.Get(name)
		paths, err := resolveOne(ctx, v, cfg, taskDir, prefix == "out_")
		if err != nil {
			return nil, nil, fmt.Errorf("resolving %s: %w", name, err)
		}
		result[name] = paths
		all = append(all, paths...)
	}
	return result, all, nil
}

// resolveOne resolves a single field's raw value (which may be a
// scalar, a nested list, a *Task, or a template string) into absolute
// paths.
func resolveOne(ctx context.Context, v any, cfg *Config, taskDir string, forbidTasks bool) ([]string, error) {
	items := flatten(v)
	var out []string
	for _, item := range items {
		if item == nil {
			continue
		}
		switch t := item.(type) {
		case *Task:
			if forbidTasks {
				return nil, fmt.Errorf("out_* field may not reference a Task")
			}
			outputs, err := t.Wait(ctx)
			if err != nil {
				return nil, &CancelledError{Because: t.name()}
			}
			out = append(out, outputs...)
		case string:
			expanded, err := expandCtx(ctx, t, cfg)
			if err != nil {
				return nil, err
			}
			for _, tok := range strings.Fields(expanded) {
				out = append(out, pathutil.AbsPath(taskDir, tok))
			}
		default:
			s := stringify(t)
			for _, tok := range strings.Fields(s) {
				out = append(out, pathutil.AbsPath(taskDir, tok))
			}
		}
	}
	return out, nil
}

// resolveInputs is resolveFields specialized for in_* fields.
func resolveInputs(ctx context.Context, cfg *Config, taskDir string) (map[string][]string, []string, error) {
	return resolveFields(ctx, cfg, "in_", taskDir)
}

// resolveOutputs is resolveFields specialized for out_* fields.
func resolveOutputs(ctx context.Context, cfg *Config, taskDir string) (map[string][]string, []string, error) {
	return resolveFields(ctx, cfg, "out_", taskDir)
}
