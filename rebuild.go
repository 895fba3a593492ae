package hancho

import (
	"fmt"
	"os"
	"time"

	"github.com/hancho-build/hancho/internal/pathutil"
)

// rebuildDecision is the rebuild engine's verdict: whether to run the
// command, and the human-readable reason printed in verbose mode.
type rebuildDecision struct {
	Rebuild bool
	Reason  string
}

// decideRebuild runs the rebuild-decision algorithm in order: force
// flag, missing outputs, no-inputs targets always rebuild, input mtime
// newer than the oldest output, then depfile dependency mtimes.
// Relative paths in the depfile are anchored at taskDir, where the
// compiler that wrote them ran. depfileWarning is non-nil when a
// depfile was named but could not be read or parsed — that's a
// warning, not a build failure, so it is returned separately for the
// caller to log rather than folded into the decision or a fatal
// error.
func decideRebuild(force bool, inputs, outputs []string, depfile string, depformat DepFormat, taskDir string) (rebuildDecision, error) {
	if force {
		return rebuildDecision{true, "force flag"}, nil
	}

	for _, o := range outputs {
		if _, err := os.Stat(o); err != nil {
			return rebuildDecision{true, fmt.Sprintf("%s is missing", o)}, nil
		}
	}

	if len(inputs) == 0 && len(outputs) > 0 {
		return rebuildDecision{true, "always rebuild a target with no inputs"}, nil
	}

	tOut, err := minMTime(outputs)
	if err != nil {
		// An output vanished between the existence check above and
		// here; treat like "missing".
		return rebuildDecision{true, fmt.Sprintf("%s is missing", err)}, nil
	}

	for _, in := range inputs {
		info, err := os.Stat(in)
		if err != nil {
			return rebuildDecision{true, fmt.Sprintf("%s is missing", in)}, nil
		}
		if info.ModTime().After(tOut) {
			return rebuildDecision{true, fmt.Sprintf("%s has changed", in)}, nil
		}
	}

	var depfileWarning error
	if depfile != "" {
		deps, err := parseDepfile(depfile, depformat)
		if err != nil {
			depfileWarning = fmt.Errorf("depfile %s: %w", depfile, err)
		} else {
			for _, d := range deps {
				info, err := os.Stat(pathutil.AbsPath(taskDir, d))
				if err != nil {
					continue
				}
				if info.ModTime().After(tOut) {
					return rebuildDecision{true, fmt.Sprintf("a dependency in %s has changed", depfile)}, nil
				}
			}
		}
	}

	return rebuildDecision{false, "up to date"}, depfileWarning
}

// minMTime returns the earliest modification time among paths. Every
// path must already be known to exist (decideRebuild only calls this
// after confirming every output is present).
func minMTime(paths []string) (time.Time, error) {
	var min time.Time
	for i, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return time.Time{}, err
		}
		if i == 0 || info.ModTime().Before(min) {
			min = info.ModTime()
		}
	}
	return min, nil
}
