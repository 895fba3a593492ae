// Command hancho is the cobra-based CLI surface. A real build program
// embeds the hancho package directly and calls hancho.Main with its
// own task-registration function; this binary demonstrates the full
// flag surface end to end by registering a small self-contained demo
// task graph, a thin wrapper around the library's entrypoint.
package main

import (
	"fmt"
	"os"
	"runtime"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/hancho-build/hancho"
	"github.com/hancho-build/hancho/internal/cliflags"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	var (
		rootDir  string
		rootFile string
		jobs     int
		verbose  bool
		quiet    bool
		dryRun   bool
		debug    bool
		force    bool
		trace    bool
		shuffle  bool
		useColor bool
		noColor  bool
		plan     bool
	)

	root := &cobra.Command{
		Use:           "hancho [target-regex]",
		Short:         "A small general-purpose build orchestrator",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	flags := root.Flags()
	flags.StringVarP(&rootDir, "root-dir", "C", "", "change to root_dir before building")
	flags.StringVarP(&rootFile, "file", "f", "", "entry script (default build.hancho)")
	flags.IntVarP(&jobs, "jobs", "j", runtime.NumCPU(), "parallel jobs (0 = unbounded)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	flags.BoolVarP(&quiet, "quiet", "q", false, "mute output")
	flags.BoolVarP(&dryRun, "dry-run", "n", false, "do rebuild decisions, skip subprocess")
	flags.BoolVarP(&debug, "debug-config", "d", false, "dump the global config as YAML")
	flags.BoolVar(&force, "force", false, "rebuild everything")
	flags.BoolVar(&trace, "trace", false, "print every template expansion step")
	flags.BoolVarP(&shuffle, "shuffle", "s", false, "shuffle the task queue at startup")
	flags.BoolVar(&useColor, "use_color", false, "force color output on")
	flags.BoolVar(&noColor, "no_color", false, "force color output off")
	flags.BoolVar(&plan, "plan", false, "print the task list (unexpanded) and exit without running")

	// Unknown --key=value flags merge into the global config; they
	// must be pulled out before cobra parses, since pflag rejects
	// flags it has no definition for.
	extra, cobraArgs := cliflags.Extract(args, func(name string) bool {
		return flags.Lookup(name) != nil
	})
	root.SetArgs(cobraArgs)

	exitCode := 0
	root.RunE = func(cmd *cobra.Command, targets []string) error {
		// HANCHO_JOBS only applies when -j was not given explicitly.
		if !flags.Changed("jobs") {
			if v := os.Getenv("HANCHO_JOBS"); v != "" {
				if n, err := strconv.Atoi(v); err == nil {
					jobs = n
				}
			}
		}

		var useColorPtr *bool
		switch {
		case useColor:
			v := true
			useColorPtr = &v
		case noColor:
			v := false
			useColorPtr = &v
		}

		opts := hancho.Options{
			RootDir:     rootDir,
			RootFile:    rootFile,
			Jobs:        jobs,
			Verbose:     verbose,
			Quiet:       quiet,
			DryRun:      dryRun,
			Debug:       debug,
			Force:       force,
			Trace:       trace,
			Shuffle:     shuffle,
			UseColor:    useColorPtr,
			DebugConfig: debug,
			Plan:        plan,
			ExtraFields: hancho.Fields(extra),
			Stdout:      os.Stdout,
		}
		if len(targets) > 0 {
			opts.TargetRegex = targets[0]
		}

		exitCode = hancho.Main(opts, registerDemo)
		return nil
	}

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return exitCode
}

// registerDemo builds a tiny, dependency-free task graph so this
// binary has something to schedule out of the box. Real projects
// pass their own registration function to hancho.Main from their own
// main package instead of calling this one.
func registerDemo(b *hancho.Build) error {
	b.Task(hancho.Fields{
		"desc":    "hancho demo: nothing to build",
		"command": "true",
	})
	return nil
}
