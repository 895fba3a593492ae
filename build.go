// Package hancho implements the Hancho build engine: a Config/template
// core, a Task model with dependency resolution, a rebuild-decision
// engine, a scheduler and job pool (internal/schedule), a subprocess
// runner (internal/procexec), and a top-level orchestrator tying them
// together as a library — hancho.Main is what a build program calls.
package hancho

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hancho-build/hancho/internal/output"
	"github.com/hancho-build/hancho/internal/schedule"
)

// Options configures a Build: the CLI surface plus the
// --debug-config/--plan extensions.
type Options struct {
	RootDir  string // -C
	RootFile string // -f, default "build.hancho" equivalent
	Jobs     int    // -j, <= 0 = unbounded; the CLI defaults it to hardware concurrency
	Verbose  bool   // -v
	Quiet    bool   // -q
	DryRun   bool   // -n
	Debug    bool   // -d
	Force    bool   // --force
	Trace    bool   // --trace
	Shuffle  bool   // -s / --shuffle
	UseColor *bool  // --use_color (nil = auto)

	DebugConfig bool // --debug-config
	Plan        bool // --plan

	// BuildTag namespaces build_dir; defaults to "default".
	BuildTag string

	// ExtraFields holds unknown --key=value passthrough flags, merged
	// into the global Config.
	ExtraFields Fields

	// TargetRegex, if set, restricts the --plan dump to tasks whose
	// display name matches.
	TargetRegex string

	Stdout io.Writer
}

func (o Options) jobs() int {
	if o.Jobs <= 0 {
		return 0 // unbounded
	}
	return o.Jobs
}

// Build is one orchestrator run: the global Config, the growing task
// list, the scheduler, and the output printer. Construct one with
// NewBuild or via Main.
type Build struct {
	opts Options
	id   uuid.UUID

	global *Config

	mu        sync.Mutex
	tasks     []*Task
	nextIndex int
	outputsOf map[string]int // resolved out_* path -> owning task index, for duplicate detection

	sched   *schedule.Scheduler
	printer *output.Printer
}

// NewBuild constructs a Build with its global Config populated with
// the well-known auto-populated fields every task inherits: root_dir,
// repo_dir, mod_dir, build_dir and the like. root_dir/repo_dir resolve
// to the detected repo root (detect.go) and mod_dir/mod_path default
// to that same root, matching a single-module build. A real
// multi-module loader is a caller-level concern layered on top of
// Build.Config(), not part of this core.
func NewBuild(opts Options) (*Build, error) {
	root := opts.RootDir
	if root == "" {
		root = repoRoot()
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("hancho: resolving root_dir: %w", err)
	}
	root = filepath.ToSlash(abs)

	rootFile := opts.RootFile
	if rootFile == "" {
		rootFile = "build.hancho"
	}
	buildTag := opts.BuildTag
	if buildTag == "" {
		buildTag = "default"
	}

	repoName := filepath.Base(root)

	fields := Fields{
		"root_dir":   root,
		"root_path":  root + "/" + rootFile,
		"repo_name":  repoName,
		"repo_dir":   root,
		"mod_name":   repoName,
		"mod_dir":    root,
		"mod_path":   root + "/" + rootFile,
		"build_root": "{root_dir}/build",
		"build_tag":  buildTag,
		"task_dir":   "{mod_dir}",
		"build_dir":  "{build_root}/{build_tag}/{repo_name}/{rel_path(task_dir, repo_dir)}",
		"force":      opts.Force,
		"depformat":  string(DepFormatGCC),
	}
	for k, v := range opts.ExtraFields {
		fields[k] = v
	}

	global, err := NewConfig(nil, fields)
	if err != nil {
		return nil, err
	}

	b := &Build{
		opts:      opts,
		id:        newBuildID(),
		outputsOf: map[string]int{},
		sched:     schedule.New(opts.jobs(), opts.Shuffle, time.Now().UnixNano()),
	}
	global.build = b
	b.global = global

	w := opts.Stdout
	if w == nil {
		w = os.Stdout
	}
	b.printer = output.NewPrinter(w, opts.UseColor, opts.Quiet, opts.Verbose)

	return b, nil
}

// ID returns the UUID tagging this Build run. The printer does not
// include it in trace, warning or banner lines; callers that want to
// correlate output across runs read it from here.
func (b *Build) ID() uuid.UUID { return b.id }

// Config returns the global Config every task's prototype chain
// ultimately rests on.
func (b *Build) Config() *Config { return b.global }

// Task constructs and queues a task directly from the global Config
// plus fields and optional prototypes — sugar for
// b.Config().Task(fields, protos...).
func (b *Build) Task(fields Fields, protos ...*Config) *Task {
	return b.global.Task(fields, protos...)
}

// Subrepo returns a Config for registering a sub-build's tasks:
// repo_name, repo_dir and mod_dir point at the sub-repository, which
// isolates its outputs under {build_root}/{build_tag}/{name}/... through the
// default build_dir template. A build program calls the subrepo's
// registration function with this Config instead of the global one.
func (b *Build) Subrepo(name, dir string) *Config {
	abs := dir
	if !filepath.IsAbs(abs) {
		root, _ := b.global.Get("root_dir")
		if r, ok := root.(string); ok {
			abs = filepath.Join(r, dir)
		}
	}
	abs = filepath.ToSlash(abs)
	return b.global.Extend(Fields{
		"repo_name": name,
		"repo_dir":  abs,
		"mod_name":  name,
		"mod_dir":   abs,
	})
}

// newTaskFrom implements the task-constructor merge: anchor then
// protos then fields, left to right, each overriding the last on
// non-nil keys (Config.Merge's rule). Module-local fields are not
// re-added explicitly; they already resolve through anchor's parent
// chain up to the global Config, which is populated once at Build
// construction, not re-applied per task.
func (b *Build) newTaskFrom(anchor *Config, fields Fields, protos ...*Config) *Task {
	merged := anchor
	for _, proto := range protos {
		m, err := Merge(merged, proto, nil)
		if err != nil {
			panic(err)
		}
		merged = m
	}
	fieldsCfg, err := NewConfig(nil, fields)
	if err != nil {
		panic(err)
	}
	final, err := Merge(merged, fieldsCfg, nil)
	if err != nil {
		panic(err)
	}
	if final.build == nil {
		final.build = b
	}
	return b.register(final)
}

func (b *Build) register(cfg *Config) *Task {
	b.mu.Lock()
	idx := b.nextIndex
	b.nextIndex++
	t := newTask(b, cfg)
	t.Index = idx
	b.tasks = append(b.tasks, t)
	b.mu.Unlock()

	b.sched.Add(&taskJob{build: b, task: t})
	return t
}

// checkDuplicateOutput records path as produced by task idx, printing
// a warning (duplicate outputs are non-fatal) if
// another task already claimed it.
func (b *Build) checkDuplicateOutput(path string, idx int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if owner, ok := b.outputsOf[path]; ok && owner != idx {
		b.printer.Warning(fmt.Sprintf("%s is produced by both task #%d and task #%d", path, owner, idx))
		return
	}
	b.outputsOf[path] = idx
}

// Tally summarizes terminal task states after Run completes.
type Tally struct {
	Started   int
	Succeeded int
	Failed    int
	Skipped   int
	Cancelled int
}

// ExitCode is 0 iff there were zero failures and zero cancellations.
func (t Tally) ExitCode() int {
	if t.Failed > 0 || t.Cancelled > 0 {
		return 1
	}
	return 0
}

// Run drives the scheduler to completion over every task queued so
// far (and any queued dynamically by callback commands along the
// way), then prints and returns the final tally. With --plan it only
// prints the plan dump and returns an empty tally without running
// anything.
func (b *Build) Run(ctx context.Context) (Tally, error) {
	if b.opts.DebugConfig {
		_ = output.DumpYAML(os.Stdout, "global config", b.global.snapshot())
	}
	if b.opts.Plan {
		b.printPlan()
		return Tally{}, nil
	}

	err := b.sched.Run(ctx)

	b.mu.Lock()
	tasks := append([]*Task(nil), b.tasks...)
	b.mu.Unlock()

	var tally Tally
	tally.Started = len(tasks)
	for _, t := range tasks {
		switch t.State() {
		case StateSucceeded:
			tally.Succeeded++
		case StateSkipped:
			tally.Skipped++
		case StateFailed:
			tally.Failed++
		case StateCancelled:
			tally.Cancelled++
		}
	}
	if !b.opts.Quiet {
		b.printer.PrintTally(output.Tally(tally))
	}
	return tally, err
}

// printPlan renders the --plan dump: every queued task's identity,
// raw (unresolved) edges and command, without running anything. A
// target-regex argument restricts the dump to tasks whose name
// matches.
func (b *Build) printPlan() {
	b.mu.Lock()
	tasks := append([]*Task(nil), b.tasks...)
	b.mu.Unlock()

	var re *regexp.Regexp
	if b.opts.TargetRegex != "" {
		var err error
		re, err = regexp.Compile(b.opts.TargetRegex)
		if err != nil {
			b.printer.Warning(fmt.Sprintf("invalid target regex %q: %v", b.opts.TargetRegex, err))
		}
	}

	entries := make([]output.PlanEntry, 0, len(tasks))
	for _, t := range tasks {
		name := t.name()
		if re != nil && !re.MatchString(name) {
			continue
		}
		e := output.PlanEntry{Index: t.Index, Desc: name}
		for _, field := range t.Config.fieldsWithPrefix("in_") {
			if v, ok := t.Config.Get(field); ok {
				e.Inputs = append(e.Inputs, rawPathStrings(v)...)
			}
		}
		for _, field := range t.Config.fieldsWithPrefix("out_") {
			if v, ok := t.Config.Get(field); ok {
				e.Outputs = append(e.Outputs, rawPathStrings(v)...)
			}
		}
		if cmd, ok := t.Config.Get("command"); ok {
			if s, ok := cmd.(string); ok {
				e.Command = s
			} else {
				e.Command = stringify(cmd)
			}
		}
		entries = append(entries, e)
	}
	_ = output.DumpYAML(os.Stdout, "plan", entries)
}

// rawPathStrings renders an unresolved in_*/out_* value for --plan:
// templates stay unexpanded, Task references show as their display
// name.
func rawPathStrings(v any) []string {
	var out []string
	for _, e := range flatten(v) {
		switch t := e.(type) {
		case string:
			out = append(out, t)
		case *Task:
			out = append(out, fmt.Sprintf("<%s>", t.name()))
		default:
			out = append(out, stringify(t))
		}
	}
	return out
}

// Main is the entry point a generated build program calls: it parses
// no flags itself (that is cmd/hancho's job via internal/cliflags) but
// expects an already-populated Options, builds the global Config,
// invokes register (the stand-in for "loading build.hancho"), then
// drives the scheduler and returns the process exit code.
func Main(opts Options, register func(b *Build) error) int {
	b, err := NewBuild(opts)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if err := register(b); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	tally, err := b.Run(context.Background())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return tally.ExitCode()
}

func newBuildID() uuid.UUID {
	id, err := uuid.NewRandom()
	if err != nil {
		return uuid.Nil
	}
	return id
}

// snapshot renders a Config's own-and-inherited fields as a plain map
// for YAML dumping (--debug-config), walking the parent chain so
// child overrides win, matching Get's lookup order.
func (c *Config) snapshot() map[string]any {
	out := map[string]any{}
	chain := []*Config{}
	for cur := c; cur != nil; cur = cur.parent {
		chain = append(chain, cur)
	}
	for i := len(chain) - 1; i >= 0; i-- {
		cur := chain[i]
		for _, k := range cur.keys {
			out[k] = snapshotValue(cur.values[k])
		}
	}
	return out
}

func snapshotValue(v any) any {
	switch t := v.(type) {
	case *Config:
		return t.snapshot()
	case *Task:
		return strings.Join(t.Outputs(), " ")
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = snapshotValue(e)
		}
		return out
	default:
		return t
	}
}
