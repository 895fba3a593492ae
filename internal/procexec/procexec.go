// Package procexec runs subprocesses for a single command string or an
// ordered list of them, capturing stdout/stderr and the exit code.
// Simple commands (no shell metacharacters) are tokenized with
// google/shlex and exec'd directly, avoiding a shell fork; anything
// else goes through the host shell.
package procexec

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"strings"

	"github.com/google/shlex"
)

// Result is the captured outcome of running one command.
type Result struct {
	Stdout     string
	Stderr     string
	ReturnCode int
}

// shellMeta are characters whose presence forces a command string
// through the host shell instead of shlex+exec.
const shellMeta = "|&;<>()$`\\\"'*?[]~{}!#\n"

func needsShell(cmd string) bool {
	return strings.ContainsAny(cmd, shellMeta)
}

// Run executes a single command string in dir, returning its captured
// output regardless of exit status; err is non-nil only for failures
// to even launch the process (exit status alone is reported via
// ReturnCode, not err, so callers can distinguish "ran and failed"
// from "could not run").
func Run(ctx context.Context, dir, command string) (Result, error) {
	var cmd *exec.Cmd
	if needsShell(command) {
		cmd = shellCommand(ctx, command)
	} else {
		argv, err := shlex.Split(command)
		if err != nil || len(argv) == 0 {
			cmd = shellCommand(ctx, command)
		} else {
			cmd = exec.CommandContext(ctx, argv[0], argv[1:]...)
		}
	}
	cmd.Dir = dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	res := Result{Stdout: stdout.String(), Stderr: stderr.String()}
	if runErr == nil {
		res.ReturnCode = 0
		return res, nil
	}
	if exitErr, ok := runErr.(*exec.ExitError); ok {
		res.ReturnCode = exitErr.ExitCode()
		return res, nil
	}
	return res, fmt.Errorf("procexec: launching %q: %w", command, runErr)
}

func shellCommand(ctx context.Context, command string) *exec.Cmd {
	if runtime.GOOS == "windows" {
		return exec.CommandContext(ctx, "cmd", "/C", command)
	}
	return exec.CommandContext(ctx, "/bin/sh", "-c", command)
}

// RunAll runs commands in order in dir, stopping at the first non-zero
// exit or launch failure, running each command in order and stopping
// on the first non-zero exit. It returns the Result of the last command
// attempted and the index that stopped the sequence (-1 if all ran
// and all succeeded).
func RunAll(ctx context.Context, dir string, commands []string) (Result, int, error) {
	var last Result
	for i, c := range commands {
		res, err := Run(ctx, dir, c)
		last = res
		if err != nil {
			return res, i, err
		}
		if res.ReturnCode != 0 {
			return res, i, nil
		}
	}
	return last, -1, nil
}
