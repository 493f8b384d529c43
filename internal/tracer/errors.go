package tracer

import (
	"errors"
	"fmt"
)

// Precondition errors. These abort the tool before any script runs.
var (
	ErrNotPrivileged     = errors.New("this script must be run as root (sudo)")
	ErrEngineUnavailable = errors.New("bpftrace is not installed or not accessible")
)

// Script resolution errors.
var (
	ErrScriptNotFound = errors.New("script not found")
	ErrAlreadyRunning = errors.New("launcher is already running a script")
)

// ScriptNotFoundError names the script that could not be resolved. It matches
// ErrScriptNotFound with errors.Is.
type ScriptNotFoundError struct {
	Name string
}

func (e *ScriptNotFoundError) Error() string {
	return fmt.Sprintf("Script %s not found", e.Name)
}

func (e *ScriptNotFoundError) Unwrap() error {
	return ErrScriptNotFound
}
