// Package buildid computes a stable identifier for the running probe
// binary, used to confirm the copy of the probe DLL mapped into the target
// process is byte-identical to the one the injector resolved symbols
// against before trusting offset arithmetic (spec.md §9 "Cross-process
// code transplant").
package buildid

import (
	"sync"

	"github.com/google/uuid"
)

// ModuleVersion and CompileStamp are overridden at link time, e.g.:
//
//	go build -ldflags "-X github.com/ssss2art/qtmcp/internal/buildid.ModuleVersion=v1.2.3 \
//	  -X github.com/ssss2art/qtmcp/internal/buildid.CompileStamp=2026-07-29T00:00:00Z"
//
// Left at their zero values, ID still returns a stable (if less precise)
// identifier for the binary as built, rather than failing.
var (
	ModuleVersion = "dev"
	CompileStamp  = "unknown"
)

var (
	once sync.Once
	id   string
)

// namespace is an arbitrary fixed UUID used as the UUID5 namespace for
// every build ID this package mints. Any process built from the same
// ModuleVersion+CompileStamp pair derives the same ID, which is the point:
// the injector computes ID() locally and compares it against the value the
// probe DLL's own qtmcpBuildID export reports, rather than needing any shared
// state between processes.
var namespace = uuid.MustParse("b7e9b1d0-6b6b-4c2f-9b8a-9f1f9a6f8e10")

// ID returns this build's stable identifier, a UUID5 derived from
// ModuleVersion and CompileStamp. The result is cached after first call.
func ID() string {
	once.Do(func() {
		id = uuid.NewSHA1(namespace, []byte(ModuleVersion+"|"+CompileStamp)).String()
	})
	return id
}

// Verify reports whether remote matches this build's ID. The injector uses
// it to decide whether offset arithmetic computed against a locally loaded
// copy of the probe DLL is safe to apply to the remote module base: a
// mismatch means the target has a different build mapped in and the
// computed address would be garbage.
func Verify(remote string) bool {
	return remote == ID()
}
