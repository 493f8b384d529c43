package tracer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// DefaultEngine is the engine binary looked up on PATH when none is configured.
const DefaultEngine = "bpftrace"

// Engine is the external tracing engine that interprets scripts.
type Engine interface {
	// Version asks the engine to report its version, failing if it cannot run.
	Version(ctx context.Context) (string, error)

	// Run executes the inline program text with the given environment and waits
	// for it to exit. A non-zero exit is reported as an *ExitError.
	Run(ctx context.Context, program string, env []string) (Result, error)
}

// Result holds what a finished engine process produced.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
	Duration time.Duration
}

// ExitError is returned by Engine.Run when the engine exits with a non-zero status.
type ExitError struct {
	Engine string
	Result Result
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("%s returned non-zero exit status %d", e.Engine, e.Result.ExitCode)
}

// ExecEngine runs the engine as a child process. Output is buffered in memory
// and no timeout is applied.
type ExecEngine struct {
	path string
}

// NewExecEngine returns an engine backed by the binary at path, or DefaultEngine
// from PATH when path is empty.
func NewExecEngine(path string) *ExecEngine {
	if path == "" {
		path = DefaultEngine
	}
	return &ExecEngine{path: path}
}

// Path returns the binary the engine invokes.
func (e *ExecEngine) Path() string {
	return e.path
}

func (e *ExecEngine) String() string {
	return e.path
}

// Version runs `<engine> --version`.
func (e *ExecEngine) Version(ctx context.Context) (string, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, e.path, "--version")
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if detail := strings.TrimSpace(stderr.String()); detail != "" {
			return "", fmt.Errorf("%s --version: %w: %s", e.path, err, detail)
		}
		return "", fmt.Errorf("%s --version: %w", e.path, err)
	}
	return strings.TrimSpace(stdout.String()), nil
}

// Run executes `<engine> -q -e <program>`; -q suppresses the engine's banner.
func (e *ExecEngine) Run(ctx context.Context, program string, env []string) (Result, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, e.path, "-q", "-e", program)
	cmd.Env = env
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()

	result := Result{
		ExitCode: -1,
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}
	if cmd.ProcessState != nil {
		result.ExitCode = cmd.ProcessState.ExitCode()
	}

	var exitErr *exec.ExitError
	switch {
	case errors.As(err, &exitErr):
		return result, &ExitError{Engine: e.path, Result: result}
	case err != nil:
		return result, fmt.Errorf("failed to start %s: %w", e.path, err)
	}
	return result, nil
}
