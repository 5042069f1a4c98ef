// Package cgohost implements framework.Host against a live Framework
// process reached through cgo, for cmd/qtmcp-probe's c-shared build.
//
// Two directions cross the cgo boundary. Push: the Framework calls the
// exported Notify* functions directly by symbol once the probe DLL is
// loaded, to report construction/destruction, signal emissions, and log
// records — Go never needs a C function pointer for these, since C holds
// the address (resolved via GetProcAddress/dlsym) and calls in. Pull: the
// handful of operations Go needs to ask the Framework for (reflection,
// property access, invocation, geometry, input injection, rendering)
// require the Framework to hand Go its own function pointers once, via
// RegisterCallbacks, since the Framework binary is unknown at this
// package's compile time.
//
// Pull arguments and results cross as JSON strings rather than one bespoke
// C struct per operation. Qt's property/argument system is dynamically
// typed (QVariant); a JSON envelope is the simplest stable ABI across that
// dynamism, at the cost of a marshal/unmarshal on both sides of every call.
package cgohost

/*
#include <stdlib.h>

typedef char* (*qtmcp_pull_fn)(const char *argJSON);

// qtmcp_call_pull takes the callback as an untyped pointer so the Go side
// can pass plain unsafe.Pointer values (cgo function-pointer typedefs are
// not assignable across packages, but void* is).
static char* qtmcp_call_pull(void *fn, const char *argJSON) {
	if (fn == 0) return 0;
	return ((qtmcp_pull_fn)fn)(argJSON);
}
*/
import "C"

import (
	"encoding/json"
	"image"
	"sync"
	"unsafe"

	"github.com/cockroachdb/errors"

	"github.com/ssss2art/qtmcp/internal/framework"
	"github.com/ssss2art/qtmcp/internal/types"
)

// Callbacks holds the function pointers the Framework registers once via
// RegisterCallbacks. A nil entry means that operation is unsupported by the
// embedding Framework (the Go side returns an error rather than crashing).
type Callbacks struct {
	TopLevels      unsafe.Pointer
	Reflect        unsafe.Pointer
	GetProperty    unsafe.Pointer
	SetProperty    unsafe.Pointer
	Invoke         unsafe.Pointer
	Geometry       unsafe.Pointer
	PostInputEvent unsafe.Pointer
	Render         unsafe.Pointer
}

// Host adapts the registered Callbacks to framework.Host.
type Host struct {
	mu  sync.RWMutex
	cbs Callbacks

	lifetimeMu   sync.Mutex
	lifetime     framework.LifetimeListener
	emissionMu   sync.Mutex
	emission     framework.EmissionListener
	logMu        sync.Mutex
	logHandler   framework.LogHandler
	prevLifetime framework.LifetimeListener
	prevEmission framework.EmissionListener
}

// New returns a Host with no callbacks registered; RegisterCallbacks wires
// the Framework's function pointers in before any probe operation runs.
func New() *Host {
	return &Host{}
}

// RegisterCallbacks installs the Framework's pull-side function pointers.
// Called once, from qtmcpRegisterCallbacks, before qtmcpProbeInit.
func (h *Host) RegisterCallbacks(cbs Callbacks) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.cbs = cbs
}

func (h *Host) call(fn unsafe.Pointer, arg any) (json.RawMessage, error) {
	if fn == nil {
		return nil, errors.New("cgohost: operation not registered by framework")
	}
	argBytes, err := json.Marshal(arg)
	if err != nil {
		return nil, errors.Wrap(err, "cgohost: marshal request")
	}
	cArg := C.CString(string(argBytes))
	defer C.free(unsafe.Pointer(cArg))

	cResult := C.qtmcp_call_pull(fn, cArg)
	if cResult == nil {
		return nil, errors.New("cgohost: native call returned null")
	}
	defer C.free(unsafe.Pointer(cResult))
	return json.RawMessage(C.GoString(cResult)), nil
}

// InstallLifetimeHook satisfies framework.Host. Idempotent per spec §8: a
// second install before uninstall returns a closure that does nothing,
// without replacing the listener.
func (h *Host) InstallLifetimeHook(l framework.LifetimeListener) func() {
	h.lifetimeMu.Lock()
	defer h.lifetimeMu.Unlock()
	if h.lifetime != nil {
		return func() {}
	}
	h.prevLifetime = h.lifetime
	h.lifetime = l
	return func() {
		h.lifetimeMu.Lock()
		defer h.lifetimeMu.Unlock()
		h.lifetime = h.prevLifetime
		h.prevLifetime = nil
	}
}

func (h *Host) InstallEmissionHook(l framework.EmissionListener) func() {
	h.emissionMu.Lock()
	defer h.emissionMu.Unlock()
	if h.emission != nil {
		return func() {}
	}
	h.prevEmission = h.emission
	h.emission = l
	return func() {
		h.emissionMu.Lock()
		defer h.emissionMu.Unlock()
		h.emission = h.prevEmission
		h.prevEmission = nil
	}
}

// InstallLogHandler chains to whatever handler was already installed (spec
// §4.5: a new handler must never swallow a previously installed one).
func (h *Host) InstallLogHandler(hnd framework.LogHandler) func() {
	h.logMu.Lock()
	defer h.logMu.Unlock()
	previous := h.logHandler
	chained := func(rec framework.LogRecord) {
		hnd(rec)
		if previous != nil {
			previous(rec)
		}
	}
	h.logHandler = chained
	return func() {
		h.logMu.Lock()
		defer h.logMu.Unlock()
		h.logHandler = previous
	}
}

// DispatchConstructed is called from qtmcpNotifyConstructed.
func (h *Host) DispatchConstructed(obj types.TrackedObject) {
	h.lifetimeMu.Lock()
	l := h.lifetime
	h.lifetimeMu.Unlock()
	if l != nil {
		l.OnConstructed(obj)
	}
}

func (h *Host) DispatchDestroyed(id types.ObjectID) {
	h.lifetimeMu.Lock()
	l := h.lifetime
	h.lifetimeMu.Unlock()
	if l != nil {
		l.OnDestroyed(id)
	}
}

func (h *Host) DispatchEmission(e framework.Emission) {
	h.emissionMu.Lock()
	l := h.emission
	h.emissionMu.Unlock()
	if l != nil {
		l.OnEmission(e)
	}
}

func (h *Host) DispatchLog(rec framework.LogRecord) {
	h.logMu.Lock()
	hnd := h.logHandler
	h.logMu.Unlock()
	if hnd != nil {
		hnd(rec)
	}
}

func (h *Host) TopLevels() []types.TrackedObject {
	raw, err := h.call(h.cbs.TopLevels, struct{}{})
	if err != nil {
		return nil
	}
	var out []types.TrackedObject
	_ = json.Unmarshal(raw, &out)
	return out
}

func (h *Host) Reflect(id types.ObjectID) (types.Metadata, bool) {
	raw, err := h.call(h.cbs.Reflect, id)
	if err != nil {
		return types.Metadata{}, false
	}
	var meta types.Metadata
	if err := json.Unmarshal(raw, &meta); err != nil {
		return types.Metadata{}, false
	}
	return meta, true
}

type propertyRequest struct {
	ID    types.ObjectID `json:"id"`
	Name  string         `json:"name"`
	Value any            `json:"value,omitempty"`
}

func (h *Host) GetProperty(id types.ObjectID, name string) (any, error) {
	raw, err := h.call(h.cbs.GetProperty, propertyRequest{ID: id, Name: name})
	if err != nil {
		return nil, err
	}
	var value any
	if err := json.Unmarshal(raw, &value); err != nil {
		return nil, errors.Wrap(err, "cgohost: unmarshal property value")
	}
	return value, nil
}

func (h *Host) SetProperty(id types.ObjectID, name string, value any) error {
	_, err := h.call(h.cbs.SetProperty, propertyRequest{ID: id, Name: name, Value: value})
	return err
}

type invokeRequest struct {
	ID     types.ObjectID `json:"id"`
	Method string         `json:"method"`
	Args   []any          `json:"args"`
}

func (h *Host) Invoke(id types.ObjectID, method string, args []any) (any, error) {
	raw, err := h.call(h.cbs.Invoke, invokeRequest{ID: id, Method: method, Args: args})
	if err != nil {
		return nil, err
	}
	var result any
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, errors.Wrap(err, "cgohost: unmarshal invoke result")
	}
	return result, nil
}

func (h *Host) Geometry(id types.ObjectID) (types.Geometry, error) {
	raw, err := h.call(h.cbs.Geometry, id)
	if err != nil {
		return types.Geometry{}, err
	}
	var geom types.Geometry
	if err := json.Unmarshal(raw, &geom); err != nil {
		return types.Geometry{}, errors.Wrap(err, "cgohost: unmarshal geometry")
	}
	return geom, nil
}

func (h *Host) PostInputEvent(ev framework.InputEvent) error {
	_, err := h.call(h.cbs.PostInputEvent, ev)
	return err
}

// renderResult carries the captured frame out of the Framework as raw RGBA
// bytes plus dimensions, since an image.Image has no JSON form of its own.
type renderResult struct {
	Width  int    `json:"width"`
	Height int    `json:"height"`
	RGBA   []byte `json:"rgba"`
}

func (h *Host) Render(id types.ObjectID) (image.Image, error) {
	raw, err := h.call(h.cbs.Render, id)
	if err != nil {
		return nil, err
	}
	var r renderResult
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, errors.Wrap(err, "cgohost: unmarshal render result")
	}
	if len(r.RGBA) != r.Width*r.Height*4 {
		return nil, errors.Newf("cgohost: render result byte count %d does not match %dx%d RGBA", len(r.RGBA), r.Width, r.Height)
	}
	img := image.NewRGBA(image.Rect(0, 0, r.Width, r.Height))
	copy(img.Pix, r.RGBA)
	return img, nil
}
