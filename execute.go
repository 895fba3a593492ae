package hancho

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/hancho-build/hancho/internal/pathutil"
	"github.com/hancho-build/hancho/internal/procexec"
)

// taskJob adapts a *Task to internal/schedule's Job interface: the
// scheduler only needs to know how to run it, nothing about Configs
// or templates.
type taskJob struct {
	build *Build
	task  *Task
}

func (j *taskJob) Run(ctx context.Context) error {
	j.build.runTask(ctx, j.task)
	return nil // task-level failure surfaces through the Task's own state/promise, not the scheduler
}

// runTask executes a task's full lifecycle: resolve inputs, expand
// templates, ensure build_dir exists, make the rebuild decision, run
// the command (or skip), and populate the promise.
func (b *Build) runTask(ctx context.Context, t *Task) {
	cfg := t.Config

	if b.opts.Trace {
		ctx = withTrace(ctx, func(depth int, tmpl, result string) {
			b.printer.Trace(t.Index, depth, tmpl, result)
		})
	}

	taskDir, err := expandStringField(ctx, cfg, "task_dir", ".")
	if err != nil {
		t.finishFailed(err, "", "", 0)
		return
	}

	inputsByField, inputsAll, err := resolveInputs(ctx, cfg, taskDir)
	if err != nil {
		var cerr *CancelledError
		if errors.As(err, &cerr) {
			t.finishCancelled(cerr)
			return
		}
		t.finishFailed(err, "", "", 0)
		return
	}
	for _, in := range inputsAll {
		if _, statErr := os.Stat(in); statErr != nil {
			t.finishFailed(fmt.Errorf("input %s does not exist", in), "", "", 0)
			return
		}
	}
	t.beginResolving(inputsAll)

	// Slots are reserved only after every upstream promise has
	// resolved — a task blocked on its inputs must not starve the
	// pool the upstream needs.
	grant, err := b.sched.AcquireSlots(ctx, t.jobCount())
	if err != nil {
		t.finishFailed(err, "", "", 0)
		return
	}
	defer b.sched.ReleaseSlots(grant)

	// Commands run in task_dir, so templates see task-dir-relative
	// paths; the engine keeps the absolute lists for mtime checks.
	// The overrides are Set on a copy of cfg rather than layered with
	// Extend, so cfg's own out_* fields stay visible to resolveOutputs.
	inFields := Fields{"task_dir": taskDir}
	for name, paths := range inputsByField {
		inFields[name] = relAnySlice(taskDir, paths)
	}
	inCfg := cfg
	for name, v := range inFields {
		inCfg = inCfg.Set(name, v)
	}

	buildDir, err := expandStringField(ctx, inCfg, "build_dir", "")
	if err != nil {
		t.finishFailed(err, "", "", 0)
		return
	}
	if buildDir != "" {
		buildDir = pathutil.AbsPath(taskDir, buildDir)
		if err := os.MkdirAll(buildDir, 0o755); err != nil {
			t.finishFailed(fmt.Errorf("creating build_dir %s: %w", buildDir, err), "", "", 0)
			return
		}
	}
	// build_dir is the anchor for every relative out_* path; tasks
	// without one anchor outputs at task_dir.
	outAnchor := buildDir
	if outAnchor == "" {
		outAnchor = taskDir
	}

	outputsByField, outputsAll, err := resolveOutputs(ctx, inCfg, outAnchor)
	if err != nil {
		t.finishFailed(err, "", "", 0)
		return
	}
	for _, p := range outputsAll {
		b.checkDuplicateOutput(p, t.Index)
	}

	outFields := Fields{"build_dir": buildDir}
	for name, paths := range outputsByField {
		outFields[name] = relAnySlice(taskDir, paths)
	}
	workCfg := inCfg.Extend(outFields)

	desc, err := expandStringField(ctx, workCfg, "desc", t.name())
	if err != nil {
		desc = t.name()
	}

	depfile, _ := expandStringField(ctx, workCfg, "depfile", "")
	if depfile != "" {
		depfile = pathutil.AbsPath(taskDir, depfile)
	}
	depformat := DepFormatGCC
	if v, ok := workCfg.Get("depformat"); ok {
		if s, ok := v.(string); ok && s == string(DepFormatMSVC) {
			depformat = DepFormatMSVC
		}
	}

	decision, warnErr := decideRebuild(t.forced(), inputsAll, outputsAll, depfile, depformat, taskDir)
	if warnErr != nil {
		b.printer.Warning(warnErr.Error())
	}

	b.printer.Banner(t.Index+1, b.taskCount(), desc)

	if !decision.Rebuild {
		b.printer.Reason(decision.Reason)
		t.finishSucceeded(StateSkipped, outputsAll, "", "", 0, decision.Reason)
		return
	}
	b.printer.Reason(decision.Reason)

	t.beginRunning()

	if b.opts.DryRun {
		b.printer.Command(fmt.Sprintf("(dry run) %v", commandPreview(ctx, workCfg)))
		t.finishSucceeded(StateSucceeded, outputsAll, "", "", 0, decision.Reason)
		return
	}

	stdout, stderr, code, newOutputs, runErr := b.runCommand(ctx, t, workCfg, taskDir, outputsAll)
	if runErr != nil {
		b.printer.Failure(desc, stdout, stderr, runErr)
		t.finishFailed(runErr, stdout, stderr, code)
		return
	}
	if code != 0 {
		err := fmt.Errorf("command exited with status %d", code)
		b.printer.Failure(desc, stdout, stderr, nil)
		t.finishFailed(err, stdout, stderr, code)
		return
	}
	if newOutputs != nil {
		outputsAll = newOutputs
	}
	t.finishSucceeded(StateSucceeded, outputsAll, stdout, stderr, code, decision.Reason)
}

func (b *Build) taskCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.tasks)
}

// expandStringField reads key from cfg, expands it as a template if
// it's a string, and falls back to def if the field is absent.
func expandStringField(ctx context.Context, cfg *Config, key, def string) (string, error) {
	v, ok := cfg.Get(key)
	if !ok {
		return def, nil
	}
	s, ok := v.(string)
	if !ok {
		return stringify(v), nil
	}
	return expandCtx(ctx, s, cfg)
}

// relAnySlice converts resolved absolute paths into the task-dir-
// relative form command templates substitute, so a command running in
// task_dir addresses the same files with shorter paths.
func relAnySlice(taskDir string, paths []string) []any {
	out := make([]any, len(paths))
	for i, p := range paths {
		out[i] = pathutil.RelPath(taskDir, p)
	}
	return out
}

func commandPreview(ctx context.Context, cfg *Config) string {
	v, ok := cfg.Get("command")
	if !ok {
		return ""
	}
	switch t := v.(type) {
	case string:
		expanded, err := expandCtx(ctx, t, cfg)
		if err == nil {
			return expanded
		}
		return t
	default:
		return stringify(t)
	}
}

// runCommand runs a task's "command" field: a template string, a
// sequence of them (run in order, first failure aborts), or a Callable
// invoked with the task.
func (b *Build) runCommand(ctx context.Context, t *Task, cfg *Config, taskDir string, outputsAll []string) (stdout, stderr string, code int, newOutputs []string, err error) {
	v, ok := cfg.Get("command")
	if !ok {
		return "", "", 0, nil, nil
	}
	switch cmd := v.(type) {
	case Callable:
		ret, cbErr := cmd([]any{t})
		if cbErr != nil {
			return "", "", 1, nil, cbErr
		}
		if out := callbackOutputs(ret, taskDir); out != nil {
			newOutputs = out
		}
		return "", "", 0, newOutputs, nil
	case string:
		expanded, eerr := expandCtx(ctx, cmd, cfg)
		if eerr != nil {
			return "", "", 0, nil, eerr
		}
		if b.opts.Verbose {
			b.printer.Command(expanded)
		}
		res, rerr := procexec.Run(ctx, taskDir, expanded)
		return res.Stdout, res.Stderr, res.ReturnCode, nil, rerr
	case []any:
		var cmds []string
		for _, item := range cmd {
			s, ok := item.(string)
			if !ok {
				return "", "", 0, nil, fmt.Errorf("command list elements must be strings, got %T", item)
			}
			expanded, eerr := expandCtx(ctx, s, cfg)
			if eerr != nil {
				return "", "", 0, nil, eerr
			}
			cmds = append(cmds, expanded)
			if b.opts.Verbose {
				b.printer.Command(expanded)
			}
		}
		res, _, rerr := procexec.RunAll(ctx, taskDir, cmds)
		return res.Stdout, res.Stderr, res.ReturnCode, nil, rerr
	default:
		return "", "", 0, nil, fmt.Errorf("unsupported command type %T", v)
	}
}

// callbackOutputs converts a callback command's return value into a
// new out_* path list: a callback that returns a list of paths
// replaces the task's outputs with it. A nil or non-path return leaves
// outputs unchanged.
func callbackOutputs(ret any, taskDir string) []string {
	switch t := ret.(type) {
	case nil:
		return nil
	case []string:
		out := make([]string, len(t))
		for i, s := range t {
			out[i] = pathutil.AbsPath(taskDir, s)
		}
		return out
	case []any:
		var out []string
		for _, e := range flatten(t) {
			if s, ok := e.(string); ok {
				out = append(out, pathutil.AbsPath(taskDir, s))
			}
		}
		return out
	default:
		return nil
	}
}
