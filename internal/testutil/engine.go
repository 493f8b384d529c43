package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// FakeEngineVersion is what engines from FakeEngine print for --version.
const FakeEngineVersion = "bpftrace v0.21.2"

// FakeEngine writes an executable /bin/sh script that stands in for bpftrace
// and returns its path. It answers --version, and otherwise runs body with the
// engine arguments in "$@" (so "$3" is the inline program).
//
// Tests using it must not call t.Parallel: a concurrent fork can hold the
// freshly written file open and make exec fail with "text file busy".
func FakeEngine(t *testing.T, body string) string {
	t.Helper()

	script := "#!/bin/sh\n" +
		"if [ \"$1\" = \"--version\" ]; then\n" +
		"  echo \"" + FakeEngineVersion + "\"\n" +
		"  exit 0\n" +
		"fi\n" +
		body + "\n"

	return writeExecutable(t, script)
}

// BrokenEngine writes an engine that fails every invocation, --version included.
func BrokenEngine(t *testing.T) string {
	t.Helper()
	return writeExecutable(t, "#!/bin/sh\necho \"ERROR: could not load BTF\" >&2\nexit 1\n")
}

func writeExecutable(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bpftrace")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o755))
	return path
}

// WriteScript writes a script file named name into dir and returns its path.
func WriteScript(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}
