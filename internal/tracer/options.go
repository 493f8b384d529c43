package tracer

import (
	"io"
	"log/slog"
)

// Option represents a functional option for configuring a Launcher.
type Option func(*Launcher)

// WithLogHandler sets a custom slog handler for the Launcher and its runs.
func WithLogHandler(handler slog.Handler) Option {
	return func(l *Launcher) {
		if handler != nil {
			l.logHandler = handler
		}
	}
}

// WithScriptsDir sets the directory script names are resolved against.
func WithScriptsDir(dir string) Option {
	return func(l *Launcher) {
		l.scriptsDir = dir
	}
}

// WithEngine replaces the external tracing engine.
func WithEngine(engine Engine) Option {
	return func(l *Launcher) {
		if engine != nil {
			l.engine = engine
		}
	}
}

// WithPrivilegeCheck replaces the root check. This is primarily used for testing.
func WithPrivilegeCheck(check PrivilegeCheck) Option {
	return func(l *Launcher) {
		if check != nil {
			l.isPrivileged = check
		}
	}
}

// WithEnviron sets the source of the environment the engine inherits.
func WithEnviron(environ func() []string) Option {
	return func(l *Launcher) {
		if environ != nil {
			l.environ = environ
		}
	}
}

// WithOutput sets where engine output and execution errors are written.
func WithOutput(stdout, stderr io.Writer) Option {
	return func(l *Launcher) {
		if stdout != nil {
			l.stdout = stdout
		}
		if stderr != nil {
			l.stderr = stderr
		}
	}
}
