// Package tracer runs bpftrace scripts through the external engine and relays
// what the engine prints.
//
// A Launcher checks its preconditions once, when it is created: the process must
// be privileged and the engine must answer --version. Each call to Execute then
// resolves a script name inside the scripts directory, passes the script text to
// the engine as an inline program and waits for it to exit. Engine failures are
// reported on the error stream and do not fail Execute; only a missing script does.
package tracer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/atlanticdynamic/bpftracer/internal/config"
	"github.com/atlanticdynamic/bpftracer/internal/fancy"
	"github.com/atlanticdynamic/bpftracer/internal/tracer/finitestate"
)

// Launcher runs one script at a time through an Engine.
type Launcher struct {
	logger     *slog.Logger
	logHandler slog.Handler

	scriptsDir   string
	engine       Engine
	isPrivileged PrivilegeCheck
	environ      func() []string

	stdout io.Writer
	stderr io.Writer
	styles fancy.Styles

	fsm finitestate.Machine
}

// New creates a Launcher and checks its preconditions. It returns
// ErrNotPrivileged or ErrEngineUnavailable when the tool cannot run scripts at all.
func New(ctx context.Context, opts ...Option) (*Launcher, error) {
	l := &Launcher{
		logHandler:   slog.Default().Handler(),
		engine:       NewExecEngine(DefaultEngine),
		isPrivileged: IsRoot,
		environ:      os.Environ,
		stdout:       os.Stdout,
		stderr:       os.Stderr,
	}

	for _, opt := range opts {
		opt(l)
	}

	l.logger = slog.New(l.logHandler).With("component", "launcher")
	l.styles = fancy.NewStyles(l.stderr)

	if l.scriptsDir == "" {
		dir, err := DefaultScriptsDir()
		if err != nil {
			return nil, err
		}
		l.scriptsDir = dir
	}

	machine, err := finitestate.New(l.logHandler)
	if err != nil {
		return nil, fmt.Errorf("failed to create state machine: %w", err)
	}
	l.fsm = machine

	if err := l.checkPrerequisites(ctx); err != nil {
		return nil, err
	}

	return l, nil
}

// DefaultScriptsDir returns the scripts directory next to the running executable.
func DefaultScriptsDir() (string, error) {
	installDir, err := config.InstallDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(installDir, config.DefaultScriptsDir), nil
}

func (l *Launcher) checkPrerequisites(ctx context.Context) error {
	if !l.isPrivileged() {
		return ErrNotPrivileged
	}

	version, err := l.engine.Version(ctx)
	if err != nil {
		l.logger.Debug("Engine version check failed", "error", err)
		return fmt.Errorf("%w: %w", ErrEngineUnavailable, err)
	}

	l.logger.Debug("Engine available", "version", version, "scriptsDir", l.scriptsDir)
	return nil
}

// ScriptsDir returns the directory script names are resolved against.
func (l *Launcher) ScriptsDir() string {
	return l.scriptsDir
}

// ScriptPath returns the file a script name resolves to.
func (l *Launcher) ScriptPath(name string) string {
	return filepath.Join(l.scriptsDir, name)
}

// GetState returns "idle" or "running".
func (l *Launcher) GetState() string {
	return l.fsm.GetState()
}

// Execute runs the named script and relays its output. It returns an error only
// when the script does not exist or another run is in progress. Engine and I/O
// failures are written to the error stream and recorded on the returned Run.
func (l *Launcher) Execute(ctx context.Context, name string) (*Run, error) {
	path := l.ScriptPath(name)
	if _, err := os.Stat(path); err != nil {
		l.logger.Debug("Script lookup failed", "path", path, "error", err)
		return nil, &ScriptNotFoundError{Name: name}
	}

	if err := l.fsm.TransitionIfCurrentState(finitestate.StatusIdle, finitestate.StatusRunning); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAlreadyRunning, err)
	}
	defer func() {
		if err := l.fsm.Transition(finitestate.StatusIdle); err != nil {
			l.logger.Error("Failed to transition to idle state", "error", err)
		}
	}()

	run := newRun(name, path, l.logHandler)
	run.logger.Debug("Run started", "path", path)

	program, err := readScript(path)
	if err != nil {
		l.reportError(run, err)
		return run, nil
	}

	result, err := l.engine.Run(ctx, program, BuildEnviron(l.environ()))
	run.Result = result

	var exitErr *ExitError
	switch {
	case errors.As(err, &exitErr):
		l.reportFailure(run, exitErr)
	case err != nil:
		l.reportError(run, err)
	default:
		l.relay(run)
	}

	return run, nil
}

func readScript(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()

	data, err := io.ReadAll(f)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return string(data), nil
}

// relay prints a successful run's output. Engine stderr on success is a warning.
func (l *Launcher) relay(run *Run) {
	result := run.Result
	fmt.Fprintln(l.stdout, strings.TrimSpace(result.Stdout))

	if result.Stderr != "" {
		fmt.Fprintln(l.stderr,
			l.styles.Warning.Render("Warnings/Errors:"),
			strings.TrimSpace(result.Stderr))
	}

	run.logger.Debug("Run completed",
		"exitCode", result.ExitCode,
		"duration", result.Duration,
		"stderrBytes", len(result.Stderr))
}

func (l *Launcher) reportFailure(run *Run, exitErr *ExitError) {
	run.Err = exitErr
	result := exitErr.Result

	fmt.Fprintln(l.stderr, l.styles.Error.Render("Error running bpftrace script:"), exitErr)
	if result.Stdout != "" {
		fmt.Fprintln(l.stderr, l.styles.Label.Render("Output:"), strings.TrimSpace(result.Stdout))
	}
	if result.Stderr != "" {
		fmt.Fprintln(l.stderr, l.styles.Label.Render("Stderr:"), strings.TrimSpace(result.Stderr))
	}

	run.logger.Warn("Engine exited with an error",
		"exitCode", result.ExitCode,
		"duration", result.Duration)
}

func (l *Launcher) reportError(run *Run, err error) {
	run.Err = err
	fmt.Fprintln(l.stderr, l.styles.Error.Render("Error:"), err)
	run.logger.Warn("Run failed", "error", err)
}
