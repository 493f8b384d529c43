package tracer

import "strings"

const (
	// MaxStrlenVar tunes the engine's internal string buffer length.
	MaxStrlenVar = "BPFTRACE_MAX_STRLEN"
	// MaxStrlen is the value always passed for MaxStrlenVar.
	MaxStrlen = "200"
)

// BuildEnviron copies base (in os.Environ form) and overlays MaxStrlenVar. The
// override replaces any value already present in base, and each key appears
// once in the result. Key order from base is preserved.
func BuildEnviron(base []string) []string {
	vars := make(map[string]string, len(base)+1)
	keys := make([]string, 0, len(base)+1)

	for _, kv := range base {
		key, value, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		if _, seen := vars[key]; !seen {
			keys = append(keys, key)
		}
		vars[key] = value
	}

	if _, seen := vars[MaxStrlenVar]; !seen {
		keys = append(keys, MaxStrlenVar)
	}
	vars[MaxStrlenVar] = MaxStrlen

	env := make([]string, 0, len(keys))
	for _, key := range keys {
		env = append(env, key+"="+vars[key])
	}
	return env
}
