// fake.go — an in-memory Host used by every package's tests. It models just
// enough of a Qt-like object graph
// (parent/child tree, properties, invokable methods, signals) to exercise
// the full probe runtime without a real C++ process.
package fake

import (
	"image"
	"image/color"
	"sync"

	"github.com/ssss2art/qtmcp/internal/framework"
	"github.com/ssss2art/qtmcp/internal/types"
)

// Node is one object in the fake graph, editable by tests before or after
// Host construction via AddObject/Destroy.
type Node struct {
	ID         types.ObjectID
	ClassName  string
	UserName   string
	ParentID   types.ObjectID
	HasParent  bool
	IsWidget   bool
	Geometry   types.Geometry
	Properties map[string]any
	Methods    []types.MethodInfo
	Signals    []types.MethodInfo
}

// Host is the fake Framework. All methods are safe for concurrent use; the
// fake has no thread-affinity requirement of its own (real Qt does — that
// requirement is enforced by internal/uithread, one layer up).
type Host struct {
	mu sync.Mutex

	nextID   types.ObjectID
	nodes    map[types.ObjectID]*Node
	children map[types.ObjectID][]types.ObjectID
	topLevel []types.ObjectID

	lifetimeListener framework.LifetimeListener
	emissionListener framework.EmissionListener
	logHandler       framework.LogHandler

	postedEvents []framework.InputEvent
}

// New returns an empty fake Host.
func New() *Host {
	return &Host{
		nodes:    make(map[types.ObjectID]*Node),
		children: make(map[types.ObjectID][]types.ObjectID),
	}
}

// AddObject creates a node and fires the construction callback if a lifetime
// hook is installed. parent=0/hasParent=false marks it a top-level.
func (h *Host) AddObject(className, userName string, parentID types.ObjectID, hasParent, isWidget bool) types.ObjectID {
	h.mu.Lock()
	h.nextID++
	id := h.nextID
	childOrder := len(h.children[parentID])
	node := &Node{
		ID:         id,
		ClassName:  className,
		UserName:   userName,
		ParentID:   parentID,
		HasParent:  hasParent,
		IsWidget:   isWidget,
		Properties: map[string]any{},
	}
	h.nodes[id] = node
	if hasParent {
		h.children[parentID] = append(h.children[parentID], id)
	} else {
		h.topLevel = append(h.topLevel, id)
	}
	listener := h.lifetimeListener
	h.mu.Unlock()

	if listener != nil {
		listener.OnConstructed(types.TrackedObject{
			ID: id, ClassName: className, UserName: userName,
			ParentID: parentID, HasParent: hasParent,
			ChildOrder: childOrder, IsWidget: isWidget,
		})
	}
	return id
}

// Destroy fires the destruction callback and removes the node.
func (h *Host) Destroy(id types.ObjectID) {
	h.mu.Lock()
	node, ok := h.nodes[id]
	if !ok {
		h.mu.Unlock()
		return
	}
	delete(h.nodes, id)
	if node.HasParent {
		siblings := h.children[node.ParentID]
		for i, c := range siblings {
			if c == id {
				h.children[node.ParentID] = append(siblings[:i], siblings[i+1:]...)
				break
			}
		}
	} else {
		for i, t := range h.topLevel {
			if t == id {
				h.topLevel = append(h.topLevel[:i], h.topLevel[i+1:]...)
				break
			}
		}
	}
	listener := h.lifetimeListener
	h.mu.Unlock()

	if listener != nil {
		listener.OnDestroyed(id)
	}
}

// ChildrenOf returns the live child IDs of a node, in sibling order.
func (h *Host) ChildrenOf(id types.ObjectID) []types.ObjectID {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]types.ObjectID, len(h.children[id]))
	copy(out, h.children[id])
	return out
}

// SetMethods/SetSignals let tests stamp reflection data onto a node.
func (h *Host) SetMethods(id types.ObjectID, methods []types.MethodInfo) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if n, ok := h.nodes[id]; ok {
		n.Methods = methods
	}
}

func (h *Host) SetSignals(id types.ObjectID, signals []types.MethodInfo) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if n, ok := h.nodes[id]; ok {
		n.Signals = signals
	}
}

func (h *Host) SetGeometry(id types.ObjectID, g types.Geometry) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if n, ok := h.nodes[id]; ok {
		n.Geometry = g
	}
}

// Emit synthesizes a signal emission, forwarding to the emission listener.
func (h *Host) Emit(id types.ObjectID, signal string, methodIndex int, args ...any) {
	h.mu.Lock()
	listener := h.emissionListener
	h.mu.Unlock()
	if listener != nil {
		listener.OnEmission(framework.Emission{ObjectID: id, MethodIndex: methodIndex, Signal: signal, Args: args})
	}
}

// EmitLog pushes a log record through the chained handler.
func (h *Host) EmitLog(r framework.LogRecord) {
	h.mu.Lock()
	handler := h.logHandler
	h.mu.Unlock()
	if handler != nil {
		handler(r)
	}
}

// PostedEvents returns and clears the synthesized-input event log, for test
// assertions against internal/interact.
func (h *Host) PostedEvents() []framework.InputEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := h.postedEvents
	h.postedEvents = nil
	return out
}

// --- framework.Host ---

func (h *Host) InstallLifetimeHook(l framework.LifetimeListener) func() {
	h.mu.Lock()
	if h.lifetimeListener != nil {
		existing := h.lifetimeListener
		h.mu.Unlock()
		return func() {
			h.mu.Lock()
			if h.lifetimeListener == l {
				h.lifetimeListener = existing
			}
			h.mu.Unlock()
		}
	}
	h.lifetimeListener = l
	h.mu.Unlock()
	return func() {
		h.mu.Lock()
		if h.lifetimeListener == l {
			h.lifetimeListener = nil
		}
		h.mu.Unlock()
	}
}

func (h *Host) InstallEmissionHook(l framework.EmissionListener) func() {
	h.mu.Lock()
	h.emissionListener = l
	h.mu.Unlock()
	return func() {
		h.mu.Lock()
		if h.emissionListener == l {
			h.emissionListener = nil
		}
		h.mu.Unlock()
	}
}

func (h *Host) InstallLogHandler(handler framework.LogHandler) func() {
	h.mu.Lock()
	previous := h.logHandler
	chained := func(r framework.LogRecord) {
		handler(r)
		if previous != nil {
			previous(r)
		}
	}
	h.logHandler = chained
	h.mu.Unlock()
	return func() {
		h.mu.Lock()
		h.logHandler = previous
		h.mu.Unlock()
	}
}

func (h *Host) TopLevels() []types.TrackedObject {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]types.TrackedObject, 0, len(h.topLevel))
	for _, id := range h.topLevel {
		n := h.nodes[id]
		out = append(out, types.TrackedObject{
			ID: n.ID, ClassName: n.ClassName, UserName: n.UserName,
			HasParent: false, IsWidget: n.IsWidget,
		})
	}
	return out
}

func (h *Host) Reflect(id types.ObjectID) (types.Metadata, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	n, ok := h.nodes[id]
	if !ok {
		return types.Metadata{}, false
	}
	props := make([]types.PropertyInfo, 0, len(n.Properties))
	for name := range n.Properties {
		props = append(props, types.PropertyInfo{Name: name, Type: "variant", Readable: true, Writable: true})
	}
	return types.Metadata{
		ClassName:  n.ClassName,
		Ancestry:   []string{"QObject", n.ClassName},
		Properties: props,
		Methods:    n.Methods,
		Signals:    n.Signals,
	}, true
}

func (h *Host) GetProperty(id types.ObjectID, name string) (any, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	n, ok := h.nodes[id]
	if !ok {
		return nil, framework.ErrUnknownObject
	}
	v, ok := n.Properties[name]
	if !ok {
		return nil, framework.ErrUnknownProperty
	}
	return v, nil
}

func (h *Host) SetProperty(id types.ObjectID, name string, value any) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	n, ok := h.nodes[id]
	if !ok {
		return framework.ErrUnknownObject
	}
	n.Properties[name] = value
	return nil
}

func (h *Host) Invoke(id types.ObjectID, method string, args []any) (any, error) {
	h.mu.Lock()
	n, ok := h.nodes[id]
	h.mu.Unlock()
	if !ok {
		return nil, framework.ErrUnknownObject
	}
	for _, m := range n.Methods {
		if m.Name == method {
			if len(args) != len(m.Params) {
				return nil, framework.ErrArityMismatch
			}
			if !m.Invokable {
				return nil, framework.ErrNotInvokable
			}
			return nil, nil
		}
	}
	return nil, framework.ErrNotInvokable
}

func (h *Host) Geometry(id types.ObjectID) (types.Geometry, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	n, ok := h.nodes[id]
	if !ok {
		return types.Geometry{}, framework.ErrUnknownObject
	}
	if !n.IsWidget {
		return types.Geometry{}, framework.ErrWrongKind
	}
	return n.Geometry, nil
}

func (h *Host) PostInputEvent(ev framework.InputEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.nodes[ev.TargetID]; ev.TargetID != 0 && !ok {
		return framework.ErrUnknownObject
	}
	h.postedEvents = append(h.postedEvents, ev)
	return nil
}

func (h *Host) Render(id types.ObjectID) (image.Image, error) {
	h.mu.Lock()
	n, ok := h.nodes[id]
	h.mu.Unlock()
	w, ht := 64, 64
	if id != 0 {
		if !ok {
			return nil, framework.ErrUnknownObject
		}
		if !n.IsWidget {
			return nil, framework.ErrWrongKind
		}
		w, ht = n.Geometry.Width, n.Geometry.Height
		if w <= 0 {
			w = 1
		}
		if ht <= 0 {
			ht = 1
		}
	}
	img := image.NewRGBA(image.Rect(0, 0, w, ht))
	for y := 0; y < ht; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 0x20, G: 0x20, B: 0x20, A: 0xff})
		}
	}
	return img, nil
}
