package tracer

import "os"

// PrivilegeCheck reports whether the calling process may attach kernel probes.
type PrivilegeCheck func() bool

// IsRoot reports whether the effective user is root.
func IsRoot() bool {
	return os.Geteuid() == 0
}
