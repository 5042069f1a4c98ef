package rpc

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ssss2art/qtmcp/internal/framework/fake"
	"github.com/ssss2art/qtmcp/internal/interact"
	"github.com/ssss2art/qtmcp/internal/introspect"
	"github.com/ssss2art/qtmcp/internal/mcpproto"
	"github.com/ssss2art/qtmcp/internal/monitor"
	"github.com/ssss2art/qtmcp/internal/registry"
	"github.com/ssss2art/qtmcp/internal/types"
	"github.com/ssss2art/qtmcp/internal/uithread"
)

type recordingSender struct {
	sent []sentFrame
}

type sentFrame struct {
	connID string
	data   []byte
}

func (s *recordingSender) Send(connID string, data []byte) error {
	s.sent = append(s.sent, sentFrame{connID, data})
	return nil
}

func newTestEngine(t *testing.T) (*Engine, *fake.Host, *recordingSender) {
	t.Helper()
	host := fake.New()
	reg := registry.New()
	uninstall := host.InstallLifetimeHook(reg)
	t.Cleanup(uninstall)

	in := introspect.New(host)
	it := interact.New(host)
	logs := monitor.NewLogRing()
	sender := &recordingSender{}
	exec := uithread.New()
	t.Cleanup(exec.Stop)

	signals := monitor.NewSignalMonitor(nil, reg)
	engine := New(reg, in, it, logs, signals, exec, sender)
	return engine, host, sender
}

func call(t *testing.T, e *Engine, connID, method string, params any) mcpproto.Response {
	t.Helper()
	raw, err := json.Marshal(params)
	require.NoError(t, err)
	req := mcpproto.Request{JSONRPC: mcpproto.Version, ID: "1", Method: method, Params: raw}
	reqRaw, err := json.Marshal(req)
	require.NoError(t, err)

	respRaw, fatal := e.Handle(connID, reqRaw)
	require.False(t, fatal)
	var resp mcpproto.Response
	require.NoError(t, json.Unmarshal(respRaw, &resp))
	return resp
}

func TestGetObjectTreeDepthZeroHasNoChildren(t *testing.T) {
	e, host, _ := newTestEngine(t)
	root := host.AddObject("QApplication", "", 0, false, false)
	host.AddObject("QWidget", "centralWidget", root, true, true)

	resp := call(t, e, "conn1", "getObjectTree", map[string]any{"depth": 0})
	require.Nil(t, resp.Error)

	var out struct {
		Roots []registry.TreeNode `json:"roots"`
	}
	require.NoError(t, json.Unmarshal(resp.Result, &out))
	require.Len(t, out.Roots, 1)
	require.Nil(t, out.Roots[0].Children)
}

func TestFindByClassNameReturnsAllMatches(t *testing.T) {
	e, host, _ := newTestEngine(t)
	root := host.AddObject("QApplication", "", 0, false, false)
	host.AddObject("QPushButton", "ok", root, true, true)
	host.AddObject("QPushButton", "cancel", root, true, true)

	resp := call(t, e, "conn1", "findByClassName", map[string]any{"className": "QPushButton"})
	require.Nil(t, resp.Error)

	var out struct {
		IDs []string `json:"ids"`
	}
	require.NoError(t, json.Unmarshal(resp.Result, &out))
	require.Len(t, out.IDs, 2)
}

func TestFindByObjectNameAmbiguous(t *testing.T) {
	e, host, _ := newTestEngine(t)
	root := host.AddObject("QApplication", "", 0, false, false)
	host.AddObject("QPushButton", "dup", root, true, true)
	host.AddObject("QLabel", "dup", root, true, true)

	resp := call(t, e, "conn1", "findByObjectName", map[string]any{"name": "dup"})
	require.NotNil(t, resp.Error)
	require.Equal(t, mcpproto.CodeAmbiguous, resp.Error.Code)
}

func TestGetSetPropertyRoundTripsOverRPC(t *testing.T) {
	e, host, _ := newTestEngine(t)
	root := host.AddObject("QApplication", "", 0, false, false)
	edit := host.AddObject("QLineEdit", "edit", root, true, true)
	host.SetMethods(edit, nil)
	require.NoError(t, host.SetProperty(edit, "text", ""))

	idStr := rootID(t, e, edit)
	resp := call(t, e, "conn1", "setProperty", map[string]any{"id": idStr, "property": "text", "value": "hello"})
	require.Nil(t, resp.Error)

	resp = call(t, e, "conn1", "getProperty", map[string]any{"id": idStr, "property": "text"})
	require.Nil(t, resp.Error)
	var out struct {
		Value string `json:"value"`
	}
	require.NoError(t, json.Unmarshal(resp.Result, &out))
	require.Equal(t, "hello", out.Value)
}

func TestUnknownMethodIsMethodNotFound(t *testing.T) {
	e, _, _ := newTestEngine(t)
	resp := call(t, e, "conn1", "doesNotExist", map[string]any{})
	require.NotNil(t, resp.Error)
	require.Equal(t, mcpproto.CodeMethodNotFound, resp.Error.Code)
}

func TestMalformedFrameIsFatal(t *testing.T) {
	e, _, _ := newTestEngine(t)
	_, fatal := e.Handle("conn1", []byte("not json"))
	require.True(t, fatal)
}

func TestClosingConnectionRejectsNewRequests(t *testing.T) {
	e, _, _ := newTestEngine(t)
	e.Connect("conn1")
	e.BeginClosing("conn1")

	resp := call(t, e, "conn1", "getObjectTree", map[string]any{})
	require.NotNil(t, resp.Error)
	require.Equal(t, mcpproto.CodeConnectionClosing, resp.Error.Code)
}

func TestSubscribeThenEmissionPushesViaEngine(t *testing.T) {
	e, host, sender := newTestEngine(t)
	root := host.AddObject("QApplication", "", 0, false, false)
	btn := host.AddObject("QPushButton", "submit", root, true, true)

	signals := monitor.NewSignalMonitor(e, e.registry)
	e.signals = signals
	uninstall := host.InstallEmissionHook(signals)
	t.Cleanup(uninstall)

	idStr := rootID(t, e, btn)
	resp := call(t, e, "conn1", "subscribeSignals", map[string]any{"id": idStr, "signals": []string{"clicked"}})
	require.Nil(t, resp.Error)

	host.Emit(btn, "clicked", 0)
	require.Len(t, sender.sent, 1)
	require.Equal(t, "conn1", sender.sent[0].connID)
}

func rootID(t *testing.T, e *Engine, id types.ObjectID) string {
	t.Helper()
	return e.registry.IDOf(id)
}
