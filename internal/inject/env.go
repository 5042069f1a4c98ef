package inject

import "os"

// OverridePortEnvZero sets this process's own QTMCP_PORT to "0" after the
// probe has bound its real port. Family A propagation is preload-based
// inheritance (propagator_linux.go): every child forks from this process's
// environment, so without this override every descendant would try to bind
// the same fixed port its parent already holds. Resolved per spec §9's
// first open question: on by default, callers gate it behind
// port_zero_children.
func OverridePortEnvZero() error {
	return os.Setenv(envPortKey, "0")
}

const envPortKey = "QTMCP_PORT"
