package tracer_test

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/atlanticdynamic/bpftracer/internal/config"
	"github.com/atlanticdynamic/bpftracer/internal/testutil"
	"github.com/atlanticdynamic/bpftracer/internal/tracer"
	"github.com/atlanticdynamic/bpftracer/internal/tracer/finitestate"
	"github.com/atlanticdynamic/bpftracer/internal/tracer/mocks"
)

const kernelInfo = `BEGIN
{
	printf("kernel info\n");
	exit();
}
`

type harness struct {
	launcher   *tracer.Launcher
	scriptsDir string
	stdout     *testutil.ThreadSafeBuffer
	stderr     *testutil.ThreadSafeBuffer
	logs       *testutil.ThreadSafeBuffer
}

func privileged() bool   { return true }
func unprivileged() bool { return false }

// newHarness builds a privileged launcher over a scripts directory holding
// kernel_info.bt. Extra options are applied last.
func newHarness(t *testing.T, engine tracer.Engine, opts ...tracer.Option) *harness {
	t.Helper()

	h := &harness{
		scriptsDir: t.TempDir(),
		stdout:     &testutil.ThreadSafeBuffer{},
		stderr:     &testutil.ThreadSafeBuffer{},
		logs:       &testutil.ThreadSafeBuffer{},
	}
	testutil.WriteScript(t, h.scriptsDir, "kernel_info.bt", kernelInfo)

	handler := slog.NewTextHandler(h.logs, &slog.HandlerOptions{Level: slog.LevelDebug})
	base := []tracer.Option{
		tracer.WithLogHandler(handler),
		tracer.WithScriptsDir(h.scriptsDir),
		tracer.WithEngine(engine),
		tracer.WithPrivilegeCheck(privileged),
		tracer.WithEnviron(func() []string { return []string{"PATH=/usr/bin:/bin"} }),
		tracer.WithOutput(h.stdout, h.stderr),
	}

	launcher, err := tracer.New(t.Context(), append(base, opts...)...)
	require.NoError(t, err)
	h.launcher = launcher
	return h
}

func hasMaxStrlen(env []string) bool {
	count := 0
	for _, kv := range env {
		if strings.HasPrefix(kv, tracer.MaxStrlenVar+"=") {
			if kv != tracer.MaxStrlenVar+"="+tracer.MaxStrlen {
				return false
			}
			count++
		}
	}
	return count == 1
}

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("requires privilege before anything else", func(t *testing.T) {
		engine := &mocks.MockEngine{}

		launcher, err := tracer.New(t.Context(),
			tracer.WithEngine(engine),
			tracer.WithScriptsDir(t.TempDir()),
			tracer.WithPrivilegeCheck(unprivileged),
		)
		require.ErrorIs(t, err, tracer.ErrNotPrivileged)
		assert.Nil(t, launcher)
		engine.AssertNotCalled(t, "Version", mock.Anything)
	})

	t.Run("requires a working engine", func(t *testing.T) {
		engine := &mocks.MockEngine{}
		engine.On("Version", mock.Anything).Return("", errors.New("exec: \"bpftrace\": executable file not found in $PATH"))

		launcher, err := tracer.New(t.Context(),
			tracer.WithEngine(engine),
			tracer.WithScriptsDir(t.TempDir()),
			tracer.WithPrivilegeCheck(privileged),
		)
		require.ErrorIs(t, err, tracer.ErrEngineUnavailable)
		assert.Contains(t, err.Error(), "executable file not found")
		assert.Nil(t, launcher)
		engine.AssertExpectations(t)
	})

	t.Run("succeeds with privilege and engine", func(t *testing.T) {
		engine := mocks.NewMockEngine("bpftrace v0.21.2")
		dir := t.TempDir()

		launcher, err := tracer.New(t.Context(),
			tracer.WithEngine(engine),
			tracer.WithScriptsDir(dir),
			tracer.WithPrivilegeCheck(privileged),
		)
		require.NoError(t, err)
		assert.Equal(t, dir, launcher.ScriptsDir())
		assert.Equal(t, filepath.Join(dir, "syscalls.bt"), launcher.ScriptPath("syscalls.bt"))
		assert.Equal(t, finitestate.StatusIdle, launcher.GetState())
		engine.AssertExpectations(t)
	})

	t.Run("defaults scripts dir next to the executable", func(t *testing.T) {
		launcher, err := tracer.New(t.Context(),
			tracer.WithEngine(mocks.NewMockEngine("v")),
			tracer.WithPrivilegeCheck(privileged),
		)
		require.NoError(t, err)

		installDir, err := config.InstallDir()
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(installDir, "scripts"), launcher.ScriptsDir())

		expected, err := tracer.DefaultScriptsDir()
		require.NoError(t, err)
		assert.Equal(t, expected, launcher.ScriptsDir())
	})
}

func TestNewWithExecEngine(t *testing.T) {
	t.Run("missing engine binary", func(t *testing.T) {
		_, err := tracer.New(t.Context(),
			tracer.WithEngine(tracer.NewExecEngine(filepath.Join(t.TempDir(), "bpftrace"))),
			tracer.WithScriptsDir(t.TempDir()),
			tracer.WithPrivilegeCheck(privileged),
		)
		require.ErrorIs(t, err, tracer.ErrEngineUnavailable)
	})

	t.Run("engine failing --version", func(t *testing.T) {
		_, err := tracer.New(t.Context(),
			tracer.WithEngine(tracer.NewExecEngine(testutil.BrokenEngine(t))),
			tracer.WithScriptsDir(t.TempDir()),
			tracer.WithPrivilegeCheck(privileged),
		)
		require.ErrorIs(t, err, tracer.ErrEngineUnavailable)
		assert.Contains(t, err.Error(), "not installed or not accessible")
	})
}

func TestExecuteScriptNotFound(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"missing.bt", "kernel_info", "nested/kernel_info.bt"} {
		t.Run(name, func(t *testing.T) {
			engine := mocks.NewMockEngine("v")
			h := newHarness(t, engine)

			run, err := h.launcher.Execute(t.Context(), name)
			require.ErrorIs(t, err, tracer.ErrScriptNotFound)
			assert.EqualError(t, err, "Script "+name+" not found")
			assert.Nil(t, run)
			assert.Empty(t, h.stdout.String())
			assert.Empty(t, h.stderr.String())
			assert.Equal(t, finitestate.StatusIdle, h.launcher.GetState())
			engine.AssertNotCalled(t, "Run", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestExecuteSuccess(t *testing.T) {
	t.Parallel()

	engine := mocks.NewMockEngine("v")
	engine.On("Run", mock.Anything, kernelInfo, mock.MatchedBy(hasMaxStrlen)).
		Return(tracer.Result{Stdout: "ok\n"}, nil).Once()
	h := newHarness(t, engine)

	run, err := h.launcher.Execute(t.Context(), "kernel_info.bt")
	require.NoError(t, err)
	require.NotNil(t, run)

	assert.Equal(t, "ok\n", h.stdout.String())
	assert.Empty(t, h.stderr.String())
	assert.False(t, run.Failed())
	assert.Equal(t, "ok\n", run.Result.Stdout)
	assert.Equal(t, filepath.Join(h.scriptsDir, "kernel_info.bt"), run.Path)
	assert.Equal(t, finitestate.StatusIdle, h.launcher.GetState())
	engine.AssertExpectations(t)

	var messages []string
	for _, record := range run.GetLogs() {
		messages = append(messages, record.Message)
	}
	assert.Contains(t, messages, "Run started")
	assert.Contains(t, messages, "Run completed")
	assert.Contains(t, h.logs.String(), "Run completed")
}

func TestExecuteTrimsOutput(t *testing.T) {
	t.Parallel()

	engine := mocks.NewMockEngine("v")
	engine.On("Run", mock.Anything, mock.Anything, mock.Anything).
		Return(tracer.Result{Stdout: "\n\n  cpu: 4\n\n"}, nil)
	h := newHarness(t, engine)

	_, err := h.launcher.Execute(t.Context(), "kernel_info.bt")
	require.NoError(t, err)
	assert.Equal(t, "cpu: 4\n", h.stdout.String())
}

func TestExecuteWarnings(t *testing.T) {
	t.Parallel()

	engine := mocks.NewMockEngine("v")
	engine.On("Run", mock.Anything, mock.Anything, mock.Anything).
		Return(tracer.Result{Stdout: "ok\n", Stderr: "WARNING: Addrspace is not set\n"}, nil)
	h := newHarness(t, engine)

	run, err := h.launcher.Execute(t.Context(), "kernel_info.bt")
	require.NoError(t, err)

	assert.Equal(t, "ok\n", h.stdout.String())
	assert.Contains(t, h.stderr.String(), "Warnings/Errors:")
	assert.Contains(t, h.stderr.String(), "WARNING: Addrspace is not set")
	assert.False(t, run.Failed())
}

func TestExecuteEngineFailure(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		result       tracer.Result
		expectOutput bool
	}{
		{
			name:   "stderr only",
			result: tracer.Result{ExitCode: 1, Stderr: "bad probe\n"},
		},
		{
			name:         "stdout and stderr",
			result:       tracer.Result{ExitCode: 1, Stdout: "Attaching 1 probe...\n", Stderr: "bad probe\n"},
			expectOutput: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := mocks.NewMockEngine("v")
			engine.On("Run", mock.Anything, mock.Anything, mock.Anything).
				Return(tt.result, &tracer.ExitError{Engine: "bpftrace", Result: tt.result})
			h := newHarness(t, engine)

			run, err := h.launcher.Execute(t.Context(), "kernel_info.bt")
			require.NoError(t, err, "engine failures must not be fatal")
			require.NotNil(t, run)

			stderr := h.stderr.String()
			assert.Contains(t, stderr, "Error running bpftrace script:")
			assert.Contains(t, stderr, "non-zero exit status 1")
			assert.Contains(t, stderr, "Stderr:")
			assert.Contains(t, stderr, "bad probe")
			if tt.expectOutput {
				assert.Contains(t, stderr, "Output:")
				assert.Contains(t, stderr, "Attaching 1 probe...")
			} else {
				assert.NotContains(t, stderr, "Output:")
			}
			assert.Empty(t, h.stdout.String())

			assert.True(t, run.Failed())
			var exitErr *tracer.ExitError
			assert.True(t, errors.As(run.Err, &exitErr))
			assert.Equal(t, finitestate.StatusIdle, h.launcher.GetState())
		})
	}
}

func TestExecuteLabelsFollowErrorStream(t *testing.T) {
	t.Parallel()

	result := tracer.Result{ExitCode: 1, Stdout: "Attaching 1 probe...\n", Stderr: "bad probe\n"}
	engine := mocks.NewMockEngine("v")
	engine.On("Run", mock.Anything, mock.Anything, mock.Anything).
		Return(result, &tracer.ExitError{Engine: "bpftrace", Result: result}).Once()
	engine.On("Run", mock.Anything, mock.Anything, mock.Anything).
		Return(tracer.Result{Stdout: "ok\n", Stderr: "WARNING: deprecated\n"}, nil).Once()

	// The engine's own output goes to a real terminal-like stream while the
	// error stream is redirected; only the error stream decides the styling.
	h := newHarness(t, engine, tracer.WithOutput(os.Stdout, nil))

	for range 2 {
		_, err := h.launcher.Execute(t.Context(), "kernel_info.bt")
		require.NoError(t, err)
	}

	stderr := h.stderr.String()
	assert.NotContains(t, stderr, "\x1b[")
	assert.Contains(t, stderr, "Error running bpftrace script: bpftrace returned non-zero exit status 1\n")
	assert.Contains(t, stderr, "Output: Attaching 1 probe...\n")
	assert.Contains(t, stderr, "Stderr: bad probe\n")
	assert.Contains(t, stderr, "Warnings/Errors: WARNING: deprecated\n")
	engine.AssertExpectations(t)
}

func TestExecuteStartFailure(t *testing.T) {
	t.Parallel()

	engine := mocks.NewMockEngine("v")
	engine.On("Run", mock.Anything, mock.Anything, mock.Anything).
		Return(tracer.Result{ExitCode: -1}, errors.New("failed to start bpftrace: permission denied"))
	h := newHarness(t, engine)

	run, err := h.launcher.Execute(t.Context(), "kernel_info.bt")
	require.NoError(t, err)
	assert.True(t, run.Failed())
	assert.Contains(t, h.stderr.String(), "Error:")
	assert.Contains(t, h.stderr.String(), "permission denied")
	assert.NotContains(t, h.stderr.String(), "Error running bpftrace script")
	assert.Empty(t, h.stdout.String())
}

func TestExecuteReadFailure(t *testing.T) {
	t.Parallel()

	engine := mocks.NewMockEngine("v")
	h := newHarness(t, engine)
	require.NoError(t, os.Mkdir(filepath.Join(h.scriptsDir, "probes.bt"), 0o755))

	run, err := h.launcher.Execute(t.Context(), "probes.bt")
	require.NoError(t, err, "read errors must not be fatal")
	require.NotNil(t, run)
	assert.True(t, run.Failed())
	assert.Contains(t, h.stderr.String(), "Error:")
	assert.Equal(t, finitestate.StatusIdle, h.launcher.GetState())
	engine.AssertNotCalled(t, "Run", mock.Anything, mock.Anything, mock.Anything)
}

func TestExecuteOverridesMaxStrlen(t *testing.T) {
	t.Parallel()

	var got []string
	engine := mocks.NewMockEngine("v")
	engine.On("Run", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { got = args.Get(2).([]string) }).
		Return(tracer.Result{}, nil)

	h := newHarness(t, engine, tracer.WithEnviron(func() []string {
		return []string{"PATH=/bin", "BPFTRACE_MAX_STRLEN=64", "LANG=C"}
	}))

	_, err := h.launcher.Execute(t.Context(), "kernel_info.bt")
	require.NoError(t, err)
	assert.Equal(t, []string{"PATH=/bin", "BPFTRACE_MAX_STRLEN=200", "LANG=C"}, got)
}

func TestExecuteRejectsReentry(t *testing.T) {
	t.Parallel()

	var nestedErr error
	var stateDuringRun string

	engine := mocks.NewMockEngine("v")
	h := newHarness(t, engine)
	engine.On("Run", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			stateDuringRun = h.launcher.GetState()
			_, nestedErr = h.launcher.Execute(args.Get(0).(context.Context), "kernel_info.bt")
		}).
		Return(tracer.Result{Stdout: "ok\n"}, nil).Once()

	_, err := h.launcher.Execute(t.Context(), "kernel_info.bt")
	require.NoError(t, err)
	assert.Equal(t, finitestate.StatusRunning, stateDuringRun)
	require.ErrorIs(t, nestedErr, tracer.ErrAlreadyRunning)
	assert.Equal(t, finitestate.StatusIdle, h.launcher.GetState())
	engine.AssertNumberOfCalls(t, "Run", 1)
}

func TestExecuteSequentialRuns(t *testing.T) {
	t.Parallel()

	engine := mocks.NewMockEngine("v")
	engine.On("Run", mock.Anything, mock.Anything, mock.Anything).
		Return(tracer.Result{Stdout: "ok\n"}, nil).Twice()
	h := newHarness(t, engine)

	first, err := h.launcher.Execute(t.Context(), "kernel_info.bt")
	require.NoError(t, err)
	second, err := h.launcher.Execute(t.Context(), "kernel_info.bt")
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, "ok\nok\n", h.stdout.String())
	engine.AssertExpectations(t)
}

// The tests below run a real child process through ExecEngine.

func TestExecuteWithExecEngine(t *testing.T) {
	t.Run("relays ok", func(t *testing.T) {
		h := newHarness(t, tracer.NewExecEngine(testutil.FakeEngine(t, `printf 'ok\n'`)))

		run, err := h.launcher.Execute(t.Context(), "kernel_info.bt")
		require.NoError(t, err)
		assert.Equal(t, "ok\n", h.stdout.String())
		assert.Empty(t, h.stderr.String())
		assert.Equal(t, 0, run.Result.ExitCode)
	})

	t.Run("sends script text inline", func(t *testing.T) {
		h := newHarness(t, tracer.NewExecEngine(testutil.FakeEngine(t, `printf '%s' "$3"`)))

		_, err := h.launcher.Execute(t.Context(), "kernel_info.bt")
		require.NoError(t, err)
		assert.Equal(t, strings.TrimSpace(kernelInfo)+"\n", h.stdout.String())
	})

	t.Run("engine failure degrades to a message", func(t *testing.T) {
		h := newHarness(t, tracer.NewExecEngine(testutil.FakeEngine(t, `echo "bad probe" >&2; exit 1`)))

		run, err := h.launcher.Execute(t.Context(), "kernel_info.bt")
		require.NoError(t, err)
		assert.True(t, run.Failed())
		assert.Contains(t, h.stderr.String(), "bad probe")
		assert.Contains(t, h.stderr.String(), "Error running bpftrace script:")
	})

	t.Run("child sees the override", func(t *testing.T) {
		h := newHarness(t,
			tracer.NewExecEngine(testutil.FakeEngine(t, `echo "$BPFTRACE_MAX_STRLEN"`)),
			tracer.WithEnviron(func() []string { return []string{"BPFTRACE_MAX_STRLEN=16"} }),
		)

		_, err := h.launcher.Execute(t.Context(), "kernel_info.bt")
		require.NoError(t, err)
		assert.Equal(t, "200\n", h.stdout.String())
	})
}
