// Package rexec drives the external R interpreter: locating the
// executable, running it as a child process with a wall-clock timeout,
// and normalizing its output streams.
package rexec

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/Broccolito/PilotR/pkg/response"
)

const (
	preferredExecutable = "Rscript"
	fallbackExecutable  = "R"

	// WorkspaceFile is the workspace snapshot written by --save runs.
	WorkspaceFile = ".RData"

	// killGracePeriod bounds how long a timed-out child may linger
	// between the kill signal and process teardown.
	killGracePeriod = 5 * time.Second
)

// Runner executes R invocations. The zero value locates the interpreter
// on PATH; Interpreter overrides the lookup with a fixed executable.
type Runner struct {
	Interpreter string
}

// Location reports the resolved interpreter and every candidate found.
type Location struct {
	Executable   string   `json:"executable"`
	Alternatives []string `json:"alternatives"`
}

// Locate searches PATH for the interpreter, preferring Rscript over the
// plain R driver.
func (r *Runner) Locate() (*Location, *response.Error) {
	if r.Interpreter != "" {
		return &Location{Executable: r.Interpreter, Alternatives: []string{r.Interpreter}}, nil
	}

	loc := &Location{}
	for _, candidate := range []string{preferredExecutable, fallbackExecutable} {
		path, err := exec.LookPath(candidate)
		if err != nil {
			continue
		}
		if loc.Executable == "" {
			loc.Executable = path
		}
		loc.Alternatives = append(loc.Alternatives, path)
	}
	if loc.Executable == "" {
		return nil, response.Errf(response.CodeRNotFound, "R not found in PATH").
			WithHints("Install R from https://www.r-project.org/", "Add Rscript or R to your system PATH")
	}
	return loc, nil
}

// Available reports whether an interpreter can be resolved at all.
func (r *Runner) Available() bool {
	_, rerr := r.Locate()
	return rerr == nil
}

// Result is a completed invocation: normalized output lines and the
// child's exit code.
type Result struct {
	Stdout   []string `json:"stdout"`
	Stderr   []string `json:"stderr"`
	ExitCode int      `json:"returncode"`
}

// Invoke runs the interpreter with args, with dir as the child's working
// directory. The directory is passed on the command itself, never by
// changing the server process's own working directory, so concurrent
// invocations cannot race. The child is killed when timeout expires.
func (r *Runner) Invoke(ctx context.Context, dir string, args []string, timeout time.Duration) (*Result, *response.Error) {
	exe := r.Interpreter
	if exe == "" {
		loc, rerr := r.Locate()
		if rerr != nil {
			return nil, response.Errf(response.CodeRNotFound,
				"Rscript not found in PATH. Please install R or add Rscript to PATH.").
				WithHints("Install R from https://www.r-project.org/", "Ensure Rscript is in your system PATH")
		}
		exe = loc.Executable
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, exe, args...)
	cmd.Dir = dir
	cmd.WaitDelay = killGracePeriod

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	slog.Debug("Invoking R", "executable", exe, "args", args, "dir", dir, "timeout", timeout)
	err := cmd.Run()

	if ctx.Err() == context.DeadlineExceeded {
		return nil, response.Errf(response.CodeTimeout,
			"R execution timed out after %d seconds", int(timeout.Seconds())).
			WithHints("Consider increasing timeout_sec parameter", "Check for infinite loops or long-running operations")
	}

	result := &Result{
		Stdout: filterLines(stdout.String(), isStdoutNoise),
		Stderr: filterLines(stderr.String(), isStderrNoise),
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
			return nil, response.Errf(response.CodeRExecutionError,
				"R execution failed with code %d", result.ExitCode).
				WithDetails(result)
		}
		return nil, response.Errf(response.CodeExecutionError, "Failed to execute R: %v", err)
	}

	return result, nil
}

// RunScript executes a script file, passing the workspace-save flag, the
// script path, and any extra arguments.
func (r *Runner) RunScript(ctx context.Context, dir, scriptPath string, extraArgs []string, timeout time.Duration, saveWorkspace bool) (*Result, *response.Error) {
	args := make([]string, 0, len(extraArgs)+2)
	if saveWorkspace {
		args = append(args, "--save")
	} else {
		args = append(args, "--no-save")
	}
	args = append(args, scriptPath)
	args = append(args, extraArgs...)
	return r.Invoke(ctx, dir, args, timeout)
}

// RunExpression evaluates a single R expression in slave mode.
func (r *Runner) RunExpression(ctx context.Context, dir, expr string, timeout time.Duration) (*Result, *response.Error) {
	return r.Invoke(ctx, dir, []string{"-e", expr, "--slave"}, timeout)
}

// InspectObjects loads the saved workspace snapshot and emits structural
// information for the named objects, or every object when none are named.
// Formatting is delegated entirely to the interpreter.
func (r *Runner) InspectObjects(ctx context.Context, dir string, objects []string, maxLevel int, timeout time.Duration) (*Result, *response.Error) {
	if _, err := os.Stat(filepath.Join(dir, WorkspaceFile)); err != nil {
		return nil, response.Errf(response.CodeNoRData, "No .RData file found in working directory").
			WithHints("Run an R script with save_rdata=true first", "Check if R session was saved")
	}
	program := inspectProgram(objects, maxLevel)
	return r.RunExpression(ctx, dir, program, timeout)
}

func filterLines(out string, noise func(string) bool) []string {
	kept := []string{}
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		if line != "" && !noise(line) {
			kept = append(kept, line)
		}
	}
	return kept
}

func isStdoutNoise(line string) bool {
	return strings.HasPrefix(line, "Loading required package:")
}

func isStderrNoise(line string) bool {
	return strings.Contains(line, "no visible binding")
}
