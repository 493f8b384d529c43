// Package interpolation expands environment variable references in settings values.
package interpolation

import (
	"errors"
	"fmt"
	"os"
	"regexp"
)

// Matches ${VAR_NAME} and ${VAR_NAME:default}; the colon is captured so that an
// empty default can be told apart from no default.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(:)?([^}]*)\}`)

// ErrUndefinedVar is returned for a reference with no default whose variable is unset.
var ErrUndefinedVar = errors.New("environment variable not defined")

// ExpandEnvVars replaces every ${VAR} or ${VAR:default} reference in input.
//
// A set variable always wins, even when empty. An unset variable falls back to
// its default when one is given; otherwise the reference is left in place and
// an error naming the variable is returned alongside the partial result.
func ExpandEnvVars(input string) (string, error) {
	if input == "" {
		return "", nil
	}

	var missing []error
	result := envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		// [full match, name, colon, default]
		parts := envVarPattern.FindStringSubmatch(match)
		name, hasDefault, fallback := parts[1], parts[2] == ":", parts[3]

		if value, ok := os.LookupEnv(name); ok {
			return value
		}
		if hasDefault {
			return fallback
		}

		missing = append(missing, fmt.Errorf("%w: %s", ErrUndefinedVar, name))
		return match
	})

	return result, errors.Join(missing...)
}
