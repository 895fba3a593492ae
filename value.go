package hancho

import (
	"fmt"
	"strconv"
	"strings"
)

// Callable is a Go function usable as a Config field. It receives the
// already-evaluated positional arguments from a template expression and
// returns a value to substitute, or an error.
type Callable func(args []any) (any, error)

// Fields is the convenience type for constructing a Config or a Task:
// an unordered set of key/value pairs. Since Go maps don't preserve
// insertion order, callers that care about key order (e.g. for flags
// whose order affects the compiled command) should build the Config
// incrementally with Config.Set instead of a single large Fields map.
type Fields map[string]any

// stringify renders a single scalar value the way expansion substitutes
// it into a template. Configs render to their debug representation.
func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return formatFloat(t)
	case *Config:
		return t.debugString()
	case *Task:
		// A Task used directly in a non-in_* template position stringifies
		// to its joined, space-separated resolved outputs.
		return strings.Join(t.Outputs(), " ")
	default:
		return fmt.Sprintf("%v", t)
	}
}

func formatFloat(f float64) string {
	if f == float64(int64(f)) {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// flatten recursively expands nested slices into a single flat slice,
// dropping nils.
func flatten(v any) []any {
	var out []any
	flattenInto(v, &out)
	return out
}

func flattenInto(v any, out *[]any) {
	switch t := v.(type) {
	case nil:
		return
	case []any:
		for _, e := range t {
			flattenInto(e, out)
		}
	default:
		*out = append(*out, t)
	}
}

// joinFlat flattens v and joins the stringified scalar elements with a
// single space, the rule for substituting a non-string expression
// result into a template.
func joinFlat(v any) string {
	parts := flatten(v)
	strs := make([]string, 0, len(parts))
	for _, p := range parts {
		if p == nil {
			continue
		}
		strs = append(strs, stringify(p))
	}
	return strings.Join(strs, " ")
}
