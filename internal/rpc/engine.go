// engine.go — JSON-RPC engine (spec §4.6, component C6).
//
// Engine owns the dispatch table, the per-connection state machine, and
// event push delivery. It is transport-agnostic: internal/wsserver feeds it
// raw frames and owns the actual socket, keyed by an opaque connection ID
// (grounded on internal/session/tool-handler.go's handler-table dispatch
// shape and internal/mcp's protocol/response/error types).
package rpc

import (
	"encoding/json"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/ssss2art/qtmcp/internal/framework"
	"github.com/ssss2art/qtmcp/internal/interact"
	"github.com/ssss2art/qtmcp/internal/introspect"
	"github.com/ssss2art/qtmcp/internal/logging"
	"github.com/ssss2art/qtmcp/internal/mcpproto"
	"github.com/ssss2art/qtmcp/internal/monitor"
	"github.com/ssss2art/qtmcp/internal/registry"
	"github.com/ssss2art/qtmcp/internal/types"
	"github.com/ssss2art/qtmcp/internal/uithread"
)

// connState values for the per-connection state machine (spec §5).
const (
	stateOpen int32 = iota
	stateClosing
	stateClosed
)

// Sender delivers raw bytes to one live connection. internal/wsserver's hub
// implements this.
type Sender interface {
	Send(connID string, data []byte) error
}

type conn struct {
	id    string
	state int32
}

// Engine wires the registry/introspector/interactor/monitor through a single
// UI-thread executor and answers JSON-RPC frames.
type Engine struct {
	registry   *registry.Registry
	introspect *introspect.Introspector
	interact   *interact.Interactor
	logs       *monitor.LogRing
	signals    *monitor.SignalMonitor
	exec       *uithread.Executor
	sender     Sender

	connsMu sync.RWMutex
	conns   map[string]*conn
}

// New builds an Engine. sender may be nil until the transport attaches
// itself (tests construct an Engine with a recording Sender instead).
func New(reg *registry.Registry, in *introspect.Introspector, it *interact.Interactor, logs *monitor.LogRing, signals *monitor.SignalMonitor, exec *uithread.Executor, sender Sender) *Engine {
	return &Engine{
		registry: reg, introspect: in, interact: it,
		logs: logs, signals: signals, exec: exec, sender: sender,
		conns: make(map[string]*conn),
	}
}

// SetSender wires the transport after construction, for the same reason
// AttachSignals exists: internal/wsserver.New needs the Engine as its
// Handler before the Engine has a Sender to push events through.
func (e *Engine) SetSender(sender Sender) {
	e.sender = sender
}

// AttachSignals wires the signal monitor after construction. It exists
// because Engine and SignalMonitor each need the other at construction time
// (SignalMonitor.New wants a Pusher, and Engine is the Pusher): callers
// construct the Engine with signals=nil, build the SignalMonitor with the
// Engine as its pusher, then call AttachSignals before any connection opens.
func (e *Engine) AttachSignals(signals *monitor.SignalMonitor) {
	e.signals = signals
}

// Connect registers a new open connection.
func (e *Engine) Connect(connID string) {
	e.connsMu.Lock()
	defer e.connsMu.Unlock()
	e.conns[connID] = &conn{id: connID, state: stateOpen}
}

// Disconnect retires a connection: its signal subscriptions are released
// silently (spec §4.6 "subscriptions are torn down on CLOSING") and it is
// removed from the live set.
func (e *Engine) Disconnect(connID string) {
	e.connsMu.Lock()
	delete(e.conns, connID)
	e.connsMu.Unlock()
	e.signals.CloseConnection(connID)
}

// BeginClosing marks a connection CLOSING: its signal subscriptions are
// released and new requests on it are rejected with connection-closing, but
// the connection is not yet removed.
func (e *Engine) BeginClosing(connID string) {
	e.connsMu.RLock()
	c, ok := e.conns[connID]
	e.connsMu.RUnlock()
	if ok {
		atomic.StoreInt32(&c.state, stateClosing)
		e.signals.CloseConnection(connID)
	}
}

func (e *Engine) isClosing(connID string) bool {
	e.connsMu.RLock()
	c, ok := e.conns[connID]
	e.connsMu.RUnlock()
	return ok && atomic.LoadInt32(&c.state) != stateOpen
}

// Push implements monitor.Pusher, wrapping ev in the event envelope and
// handing it to the transport.
func (e *Engine) Push(connID string, ev monitor.Event) {
	notif, err := mcpproto.Event(string(ev.Kind), ev)
	if err != nil {
		logging.L().Warn("rpc: failed to encode pushed event", zap.Error(err))
		return
	}
	raw, err := json.Marshal(notif)
	if err != nil {
		logging.L().Warn("rpc: failed to marshal pushed event", zap.Error(err))
		return
	}
	if e.sender != nil {
		_ = e.sender.Send(connID, raw)
	}
}

// OnConstructed implements framework.LifetimeListener: every live connection
// is told about every new object (spec §6 server-pushed event
// "objectCreated" has no subscribe call of its own — it is ambient).
func (e *Engine) OnConstructed(obj types.TrackedObject) {
	e.broadcastLifecycle("objectCreated", obj.ID)
}

// OnDestroyed implements framework.LifetimeListener.
func (e *Engine) OnDestroyed(id types.ObjectID) {
	e.broadcastLifecycle("objectDestroyed", id)
}

func (e *Engine) broadcastLifecycle(kind string, id types.ObjectID) {
	objID := e.registry.IDOf(id)
	notif, err := mcpproto.Event(kind, map[string]string{"objectId": objID})
	if err != nil {
		return
	}
	raw, err := json.Marshal(notif)
	if err != nil {
		return
	}
	e.connsMu.RLock()
	targets := make([]string, 0, len(e.conns))
	for id := range e.conns {
		targets = append(targets, id)
	}
	e.connsMu.RUnlock()

	if e.sender == nil {
		return
	}
	for _, connID := range targets {
		_ = e.sender.Send(connID, raw)
	}
}

// Handle decodes and answers one inbound frame. fatal reports a protocol
// violation that must close the connection with WebSocket status "protocol
// error" (spec §7); response is always an encoded JSON-RPC frame, with a
// null id when the request's id could not be read.
func (e *Engine) Handle(connID string, raw []byte) (response []byte, fatal bool) {
	var req mcpproto.Request
	if err := json.Unmarshal(raw, &req); err != nil {
		return encode(mcpproto.Err(nil, mcpproto.CodeParse, "malformed JSON frame")), true
	}
	if req.JSONRPC != mcpproto.Version {
		return encode(mcpproto.Err(nil, mcpproto.CodeInvalidRequest, "jsonrpc must be \"2.0\"")), true
	}
	if req.HasInvalidID() {
		return encode(mcpproto.Err(nil, mcpproto.CodeInvalidRequest, "id must be a string, number, or omitted")), true
	}
	if req.Method == "" {
		return encode(mcpproto.Err(req.ID, mcpproto.CodeInvalidRequest, "method is required")), true
	}

	if e.isClosing(connID) {
		return encode(mcpproto.Err(req.ID, mcpproto.CodeConnectionClosing, "connection is closing")), false
	}

	resp := e.dispatch(connID, req)
	return encode(resp), false
}

func encode(resp mcpproto.Response) []byte {
	raw, err := json.Marshal(resp)
	if err != nil {
		// Marshal of our own Response type only fails on non-UTF8 strings we
		// didn't produce; fall back to a bare operation-failed frame.
		raw, _ = json.Marshal(mcpproto.Err(resp.ID, mcpproto.CodeOperationFailed, "failed to encode response"))
	}
	return raw
}

// onUIThread runs fn on the UI thread and returns its result, for every
// handler that touches the framework.Host (registry/introspect/interact all
// require UI-thread affinity per spec §5).
func onUIThread[T any](e *Engine, fn func() (T, error)) (T, error) {
	var zero T
	result, err := e.exec.PostWait(func() (any, error) {
		v, err := fn()
		return v, err
	})
	if err != nil {
		return zero, err
	}
	if result == nil {
		return zero, nil
	}
	return result.(T), nil
}

var _ framework.LifetimeListener = (*Engine)(nil)
