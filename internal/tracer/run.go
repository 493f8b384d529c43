package tracer

import (
	"log/slog"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/robbyt/go-loglater"
	"github.com/robbyt/go-loglater/storage"
)

// Run records a single script execution.
type Run struct {
	// ID is the unique identifier for this run
	ID uuid.UUID

	Script    string
	Path      string
	StartedAt time.Time

	// Result is what the engine produced. It is zero when the engine never started.
	Result Result

	// Err is the execution failure that was reported to the user, if any.
	Err error

	logger       *slog.Logger
	logCollector *loglater.LogCollector
}

func newRun(script, path string, handler slog.Handler) *Run {
	id := uuid.Must(uuid.NewV6())

	// Logs pass through to handler and are kept for GetLogs.
	logCollector := loglater.NewLogCollector(handler)
	logger := slog.New(logCollector).With(
		"run", id,
		"script", script,
	)

	return &Run{
		ID:           id,
		Script:       script,
		Path:         path,
		StartedAt:    time.Now(),
		logger:       logger,
		logCollector: logCollector,
	}
}

// Failed reports whether the run hit an execution error.
func (r *Run) Failed() bool {
	return r.Err != nil
}

// GetLogs returns the log records emitted during the run.
func (r *Run) GetLogs() []storage.Record {
	return r.logCollector.GetLogs()
}
