package main

/*
#include <stdlib.h>
#include <stdint.h>

typedef struct {
	void *topLevels;
	void *reflect;
	void *getProperty;
	void *setProperty;
	void *invoke;
	void *geometry;
	void *postInputEvent;
	void *render;
} qtmcp_callbacks;
*/
import "C"

import (
	"encoding/json"
	"unsafe"

	"github.com/ssss2art/qtmcp/internal/buildid"
	"github.com/ssss2art/qtmcp/internal/framework"
	"github.com/ssss2art/qtmcp/internal/framework/cgohost"
	"github.com/ssss2art/qtmcp/internal/types"
)

//export qtmcpBuildID
func qtmcpBuildID() *C.char {
	return C.CString(buildid.ID())
}

//export qtmcpRegisterCallbacks
func qtmcpRegisterCallbacks(cbs C.qtmcp_callbacks) {
	mu.Lock()
	h := host
	if h == nil {
		h = cgohost.New()
		host = h
	}
	mu.Unlock()

	h.RegisterCallbacks(cgohost.Callbacks{
		TopLevels:      unsafe.Pointer(cbs.topLevels),
		Reflect:        unsafe.Pointer(cbs.reflect),
		GetProperty:    unsafe.Pointer(cbs.getProperty),
		SetProperty:    unsafe.Pointer(cbs.setProperty),
		Invoke:         unsafe.Pointer(cbs.invoke),
		Geometry:       unsafe.Pointer(cbs.geometry),
		PostInputEvent: unsafe.Pointer(cbs.postInputEvent),
		Render:         unsafe.Pointer(cbs.render),
	})
}

//export qtmcpProbeInit
func qtmcpProbeInit(configPath *C.char) C.int {
	path := ""
	if configPath != nil {
		path = C.GoString(configPath)
	}
	if err := initProbe(path); err != nil {
		return -1
	}
	return 0
}

//export qtmcpProbeShutdown
func qtmcpProbeShutdown() {
	shutdownProbe()
}

// qtmcpNotifyConstructed is called directly by the Framework (no
// registration needed, since it resolves this symbol by name) whenever an
// object enters the graph.
//
//export qtmcpNotifyConstructed
func qtmcpNotifyConstructed(objJSON *C.char) {
	var obj types.TrackedObject
	if err := json.Unmarshal([]byte(C.GoString(objJSON)), &obj); err != nil {
		return
	}
	mu.Lock()
	h := host
	mu.Unlock()
	if h != nil {
		h.DispatchConstructed(obj)
	}
}

//export qtmcpNotifyDestroyed
func qtmcpNotifyDestroyed(id C.uintptr_t) {
	mu.Lock()
	h := host
	mu.Unlock()
	if h != nil {
		h.DispatchDestroyed(types.ObjectID(id))
	}
}

//export qtmcpNotifyEmission
func qtmcpNotifyEmission(emissionJSON *C.char) {
	var e framework.Emission
	if err := json.Unmarshal([]byte(C.GoString(emissionJSON)), &e); err != nil {
		return
	}
	mu.Lock()
	h := host
	mu.Unlock()
	if h != nil {
		h.DispatchEmission(e)
	}
}

//export qtmcpNotifyLog
func qtmcpNotifyLog(severity *C.char, text, file *C.char, line C.int, function *C.char) {
	rec := framework.LogRecord{
		Severity: types.Severity(C.GoString(severity)),
		Text:     C.GoString(text),
		File:     C.GoString(file),
		Line:     int(line),
		Function: C.GoString(function),
	}
	mu.Lock()
	h := host
	mu.Unlock()
	if h != nil {
		h.DispatchLog(rec)
	}
}
