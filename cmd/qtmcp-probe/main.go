// Command qtmcp-probe is the cgo entry point built with
// `go build -buildmode=c-shared` (Windows) or `-buildmode=c-shared`
// producing a .so loaded via LD_PRELOAD (Linux). Its exported functions are
// exactly what internal/inject's two propagators reach: LD_PRELOAD runs
// this library's own constructor implicitly on Linux, while the Windows
// remote-thread injector calls qtmcpProbeInit by resolved address
// (spec.md §4.9/§4.10, §9 "Cross-process code transplant").
//
// main() is required by the cgo toolchain for c-shared/c-archive build
// modes but never runs; everything happens through the exported functions
// below, invoked by the embedding Framework process.
package main

import "C"

import (
	"sync"

	"github.com/ssss2art/qtmcp/internal/config"
	"github.com/ssss2art/qtmcp/internal/framework/cgohost"
	"github.com/ssss2art/qtmcp/internal/probe"
)

var (
	mu   sync.Mutex
	host *cgohost.Host
)

// initProbe loads configuration from configPath (empty skips the file
// overlay layer) and starts the probe against a cgohost.Host. Separated
// from the exported qtmcpProbeInit so it can be unit tested without cgo
// string conversions in the way.
func initProbe(configPath string) error {
	mu.Lock()
	h := host
	if h == nil {
		h = cgohost.New()
		host = h
	}
	mu.Unlock()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	return probe.Init(cfg, h)
}

func shutdownProbe() {
	probe.Shutdown()
}

func main() {}
