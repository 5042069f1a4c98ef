// methods.go — native-mode method table (spec §6).
package rpc

import (
	"encoding/json"
	"regexp"

	"github.com/ssss2art/qtmcp/internal/framework"
	"github.com/ssss2art/qtmcp/internal/interact"
	"github.com/ssss2art/qtmcp/internal/introspect"
	"github.com/ssss2art/qtmcp/internal/mcpproto"
	"github.com/ssss2art/qtmcp/internal/registry"
	"github.com/ssss2art/qtmcp/internal/types"
)

func compileFilter(pattern string) (*regexp.Regexp, error) {
	if pattern == "" {
		return nil, nil
	}
	return regexp.Compile(pattern)
}

func (e *Engine) dispatch(connID string, req mcpproto.Request) mcpproto.Response {
	switch req.Method {
	case "findByObjectName":
		return e.handleFindByObjectName(req)
	case "findByClassName":
		return e.handleFindByClassName(req)
	case "getObjectTree":
		return e.handleGetObjectTree(req)
	case "getObjectInfo":
		return e.handleGetObjectInfo(req)
	case "listProperties":
		return e.handleListProperties(req)
	case "getProperty":
		return e.handleGetProperty(req)
	case "setProperty":
		return e.handleSetProperty(req)
	case "listMethods":
		return e.handleListMethods(req)
	case "invokeMethod":
		return e.handleInvokeMethod(req)
	case "listSignals":
		return e.handleListSignals(req)
	case "click":
		return e.handleClick(req)
	case "sendKeys":
		return e.handleSendKeys(req)
	case "screenshot":
		return e.handleScreenshot(req)
	case "getGeometry":
		return e.handleGetGeometry(req)
	case "subscribeSignals":
		return e.handleSubscribeSignals(connID, req)
	case "unsubscribeSignals":
		return e.handleUnsubscribeSignals(req)
	case "messages":
		return e.handleMessages(req)
	default:
		return mcpproto.Err(req.ID, mcpproto.CodeMethodNotFound, "unknown method "+req.Method)
	}
}

func decodeParams[T any](req mcpproto.Request) (T, error) {
	var p T
	if len(req.Params) == 0 {
		return p, nil
	}
	err := json.Unmarshal(req.Params, &p)
	return p, err
}

// resolveID maps a wire "id" string to a types.ObjectID, or an error
// response ready to return directly.
func (e *Engine) resolveID(req mcpproto.Request, idStr string) (types.ObjectID, *mcpproto.Response) {
	obj, ok := e.registry.ObjectOf(idStr)
	if !ok {
		resp := mcpproto.Err(req.ID, mcpproto.CodeUnknownID, "no such object: "+idStr)
		return 0, &resp
	}
	return obj.ID, nil
}

func mapError(req mcpproto.Request, err error) mcpproto.Response {
	switch {
	case err == nil:
		return mcpproto.Response{}
	case isErr(err, framework.ErrUnknownObject), isErr(err, introspect.ErrUnknownID):
		return mcpproto.Err(req.ID, mcpproto.CodeUnknownID, err.Error())
	case isErr(err, framework.ErrUnknownProperty):
		return mcpproto.Err(req.ID, mcpproto.CodeInvalidParams, err.Error())
	case isErr(err, framework.ErrWrongKind):
		return mcpproto.Err(req.ID, mcpproto.CodeWrongKind, err.Error())
	case isErr(err, framework.ErrInvalidValue):
		return mcpproto.Err(req.ID, mcpproto.CodeInvalidValue, err.Error())
	case isErr(err, framework.ErrNotInvokable):
		return mcpproto.Err(req.ID, mcpproto.CodeNotInvokable, err.Error())
	case isErr(err, framework.ErrArityMismatch):
		return mcpproto.Err(req.ID, mcpproto.CodeInvalidParams, err.Error())
	case isErr(err, interact.ErrInvalidButton):
		return mcpproto.Err(req.ID, mcpproto.CodeInvalidParams, err.Error())
	default:
		return mcpproto.Err(req.ID, mcpproto.CodeOperationFailed, err.Error())
	}
}

func isErr(err, target error) bool {
	for e := err; e != nil; e = unwrap(e) {
		if e == target {
			return true
		}
	}
	return false
}

func unwrap(err error) error {
	u, ok := err.(interface{ Unwrap() error })
	if !ok {
		return nil
	}
	return u.Unwrap()
}

// --- find ---

type findByNameParams struct {
	Name string `json:"name"`
}

func (e *Engine) handleFindByObjectName(req mcpproto.Request) mcpproto.Response {
	p, err := decodeParams[findByNameParams](req)
	if err != nil {
		return mcpproto.Err(req.ID, mcpproto.CodeInvalidParams, err.Error())
	}
	matches, err := onUIThread(e, func() ([]types.TrackedObject, error) {
		return e.registry.FindByName(p.Name), nil
	})
	if err != nil {
		return mapError(req, err)
	}
	switch len(matches) {
	case 0:
		return mcpproto.Result(req.ID, map[string]any{"id": nil})
	case 1:
		return mcpproto.Result(req.ID, map[string]any{"id": e.registry.IDOf(matches[0].ID)})
	default:
		return mcpproto.Err(req.ID, mcpproto.CodeAmbiguous, "multiple objects named "+p.Name)
	}
}

type findByClassParams struct {
	ClassName string `json:"className"`
}

func (e *Engine) handleFindByClassName(req mcpproto.Request) mcpproto.Response {
	p, err := decodeParams[findByClassParams](req)
	if err != nil {
		return mcpproto.Err(req.ID, mcpproto.CodeInvalidParams, err.Error())
	}
	matches, err := onUIThread(e, func() ([]types.TrackedObject, error) {
		return e.registry.FindByClass(p.ClassName), nil
	})
	if err != nil {
		return mapError(req, err)
	}
	ids := make([]string, 0, len(matches))
	for _, m := range matches {
		ids = append(ids, e.registry.IDOf(m.ID))
	}
	return mcpproto.Result(req.ID, map[string]any{"ids": ids})
}

// --- tree / info ---

type getObjectTreeParams struct {
	Root  string `json:"root,omitempty"`
	Depth *int   `json:"depth,omitempty"`
}

func (e *Engine) handleGetObjectTree(req mcpproto.Request) mcpproto.Response {
	p, err := decodeParams[getObjectTreeParams](req)
	if err != nil {
		return mcpproto.Err(req.ID, mcpproto.CodeInvalidParams, err.Error())
	}
	depth := -1
	if p.Depth != nil {
		depth = *p.Depth
	}
	nodes, err := onUIThread(e, func() ([]registry.TreeNode, error) {
		return e.registry.SnapshotTree(p.Root, depth)
	})
	if err != nil {
		return mcpproto.Err(req.ID, mcpproto.CodeUnknownID, err.Error())
	}
	return mcpproto.Result(req.ID, map[string]any{"roots": nodes})
}

type idParams struct {
	ID string `json:"id"`
}

func (e *Engine) handleGetObjectInfo(req mcpproto.Request) mcpproto.Response {
	p, err := decodeParams[idParams](req)
	if err != nil {
		return mcpproto.Err(req.ID, mcpproto.CodeInvalidParams, err.Error())
	}
	objID, errResp := e.resolveID(req, p.ID)
	if errResp != nil {
		return *errResp
	}
	md, err := onUIThread(e, func() (types.Metadata, error) { return e.introspect.Info(objID) })
	if err != nil {
		return mapError(req, err)
	}
	return mcpproto.Result(req.ID, md)
}

func (e *Engine) handleListProperties(req mcpproto.Request) mcpproto.Response {
	p, err := decodeParams[idParams](req)
	if err != nil {
		return mcpproto.Err(req.ID, mcpproto.CodeInvalidParams, err.Error())
	}
	objID, errResp := e.resolveID(req, p.ID)
	if errResp != nil {
		return *errResp
	}
	props, err := onUIThread(e, func() ([]types.PropertyInfo, error) { return e.introspect.ListProperties(objID) })
	if err != nil {
		return mapError(req, err)
	}
	return mcpproto.Result(req.ID, map[string]any{"properties": props})
}

func (e *Engine) handleListMethods(req mcpproto.Request) mcpproto.Response {
	p, err := decodeParams[idParams](req)
	if err != nil {
		return mcpproto.Err(req.ID, mcpproto.CodeInvalidParams, err.Error())
	}
	objID, errResp := e.resolveID(req, p.ID)
	if errResp != nil {
		return *errResp
	}
	methods, err := onUIThread(e, func() ([]types.MethodInfo, error) { return e.introspect.ListMethods(objID) })
	if err != nil {
		return mapError(req, err)
	}
	return mcpproto.Result(req.ID, map[string]any{"methods": methods})
}

func (e *Engine) handleListSignals(req mcpproto.Request) mcpproto.Response {
	p, err := decodeParams[idParams](req)
	if err != nil {
		return mcpproto.Err(req.ID, mcpproto.CodeInvalidParams, err.Error())
	}
	objID, errResp := e.resolveID(req, p.ID)
	if errResp != nil {
		return *errResp
	}
	signals, err := onUIThread(e, func() ([]types.MethodInfo, error) { return e.introspect.ListSignals(objID) })
	if err != nil {
		return mapError(req, err)
	}
	return mcpproto.Result(req.ID, map[string]any{"signals": signals})
}

// --- properties / methods ---

type getPropertyParams struct {
	ID       string `json:"id"`
	Property string `json:"property"`
}

func (e *Engine) handleGetProperty(req mcpproto.Request) mcpproto.Response {
	p, err := decodeParams[getPropertyParams](req)
	if err != nil {
		return mcpproto.Err(req.ID, mcpproto.CodeInvalidParams, err.Error())
	}
	objID, errResp := e.resolveID(req, p.ID)
	if errResp != nil {
		return *errResp
	}
	value, err := onUIThread(e, func() (any, error) { return e.introspect.GetProperty(objID, p.Property) })
	if err != nil {
		return mapError(req, err)
	}
	return mcpproto.Result(req.ID, map[string]any{"value": value})
}

type setPropertyParams struct {
	ID       string `json:"id"`
	Property string `json:"property"`
	Value    any    `json:"value"`
}

func (e *Engine) handleSetProperty(req mcpproto.Request) mcpproto.Response {
	p, err := decodeParams[setPropertyParams](req)
	if err != nil {
		return mcpproto.Err(req.ID, mcpproto.CodeInvalidParams, err.Error())
	}
	objID, errResp := e.resolveID(req, p.ID)
	if errResp != nil {
		return *errResp
	}
	_, err = onUIThread(e, func() (struct{}, error) {
		return struct{}{}, e.introspect.SetProperty(objID, p.Property, p.Value)
	})
	if err != nil {
		return mapError(req, err)
	}
	return mcpproto.Result(req.ID, map[string]any{"ok": true})
}

type invokeMethodParams struct {
	ID     string `json:"id"`
	Method string `json:"method"`
	Args   []any  `json:"args"`
}

func (e *Engine) handleInvokeMethod(req mcpproto.Request) mcpproto.Response {
	p, err := decodeParams[invokeMethodParams](req)
	if err != nil {
		return mcpproto.Err(req.ID, mcpproto.CodeInvalidParams, err.Error())
	}
	objID, errResp := e.resolveID(req, p.ID)
	if errResp != nil {
		return *errResp
	}
	result, err := onUIThread(e, func() (any, error) {
		return e.introspect.InvokeMethod(objID, p.Method, p.Args)
	})
	if err != nil {
		return mapError(req, err)
	}
	return mcpproto.Result(req.ID, map[string]any{"result": result})
}

// --- interaction ---

type clickParams struct {
	ID       string `json:"id"`
	Button   string `json:"button,omitempty"`
	Position *struct {
		X int `json:"x"`
		Y int `json:"y"`
	} `json:"position,omitempty"`
}

func (e *Engine) handleClick(req mcpproto.Request) mcpproto.Response {
	p, err := decodeParams[clickParams](req)
	if err != nil {
		return mcpproto.Err(req.ID, mcpproto.CodeInvalidParams, err.Error())
	}
	objID, errResp := e.resolveID(req, p.ID)
	if errResp != nil {
		return *errResp
	}
	useCentre := p.Position == nil
	x, y := 0, 0
	if p.Position != nil {
		x, y = p.Position.X, p.Position.Y
	}
	_, err = onUIThread(e, func() (struct{}, error) {
		return struct{}{}, e.interact.Click(objID, p.Button, useCentre, x, y)
	})
	if err != nil {
		return mapError(req, err)
	}
	return mcpproto.Result(req.ID, map[string]any{"ok": true})
}

type sendKeysParams struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

func (e *Engine) handleSendKeys(req mcpproto.Request) mcpproto.Response {
	p, err := decodeParams[sendKeysParams](req)
	if err != nil {
		return mcpproto.Err(req.ID, mcpproto.CodeInvalidParams, err.Error())
	}
	objID, errResp := e.resolveID(req, p.ID)
	if errResp != nil {
		return *errResp
	}
	_, err = onUIThread(e, func() (struct{}, error) {
		return struct{}{}, e.interact.SendKeys(objID, p.Text)
	})
	if err != nil {
		return mapError(req, err)
	}
	return mcpproto.Result(req.ID, map[string]any{"ok": true})
}

type screenshotParams struct {
	ID     string `json:"id,omitempty"`
	Format string `json:"format,omitempty"`
}

func (e *Engine) handleScreenshot(req mcpproto.Request) mcpproto.Response {
	p, err := decodeParams[screenshotParams](req)
	if err != nil {
		return mcpproto.Err(req.ID, mcpproto.CodeInvalidParams, err.Error())
	}
	var objID types.ObjectID
	if p.ID != "" {
		var errResp *mcpproto.Response
		objID, errResp = e.resolveID(req, p.ID)
		if errResp != nil {
			return *errResp
		}
	}
	shot, err := onUIThread(e, func() (interact.ScreenshotResult, error) {
		return e.interact.Screenshot(objID, p.Format)
	})
	if err != nil {
		return mapError(req, err)
	}
	return mcpproto.Result(req.ID, shot)
}

func (e *Engine) handleGetGeometry(req mcpproto.Request) mcpproto.Response {
	p, err := decodeParams[idParams](req)
	if err != nil {
		return mcpproto.Err(req.ID, mcpproto.CodeInvalidParams, err.Error())
	}
	objID, errResp := e.resolveID(req, p.ID)
	if errResp != nil {
		return *errResp
	}
	geom, err := onUIThread(e, func() (types.Geometry, error) { return e.introspect.Geometry(objID) })
	if err != nil {
		return mapError(req, err)
	}
	return mcpproto.Result(req.ID, geom)
}

// --- subscriptions / logs ---

type subscribeSignalsParams struct {
	ID      string   `json:"id"`
	Signals []string `json:"signals"`
}

func (e *Engine) handleSubscribeSignals(connID string, req mcpproto.Request) mcpproto.Response {
	p, err := decodeParams[subscribeSignalsParams](req)
	if err != nil {
		return mcpproto.Err(req.ID, mcpproto.CodeInvalidParams, err.Error())
	}
	objID, errResp := e.resolveID(req, p.ID)
	if errResp != nil {
		return *errResp
	}
	subID := e.signals.Subscribe(connID, objID, p.Signals)
	return mcpproto.Result(req.ID, map[string]any{"subscriptionId": subID})
}

type unsubscribeSignalsParams struct {
	SubscriptionID string `json:"subscriptionId"`
}

func (e *Engine) handleUnsubscribeSignals(req mcpproto.Request) mcpproto.Response {
	p, err := decodeParams[unsubscribeSignalsParams](req)
	if err != nil {
		return mcpproto.Err(req.ID, mcpproto.CodeInvalidParams, err.Error())
	}
	if !e.signals.Unsubscribe(types.SubscriptionID(p.SubscriptionID)) {
		return mcpproto.Err(req.ID, mcpproto.CodeUnknownID, "no such subscription: "+p.SubscriptionID)
	}
	return mcpproto.Result(req.ID, map[string]any{"ok": true})
}

type messagesParams struct {
	Filter     string `json:"filter,omitempty"`
	ErrorsOnly bool   `json:"errorsOnly,omitempty"`
	Limit      int    `json:"limit,omitempty"`
}

func (e *Engine) handleMessages(req mcpproto.Request) mcpproto.Response {
	p, err := decodeParams[messagesParams](req)
	if err != nil {
		return mcpproto.Err(req.ID, mcpproto.CodeInvalidParams, err.Error())
	}
	filter, err := compileFilter(p.Filter)
	if err != nil {
		return mcpproto.Err(req.ID, mcpproto.CodeInvalidParams, err.Error())
	}
	entries := e.logs.Query(filter, p.ErrorsOnly, p.Limit)
	return mcpproto.Result(req.ID, map[string]any{"messages": entries, "total": e.logs.Total()})
}
