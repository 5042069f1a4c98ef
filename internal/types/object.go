// object.go — the tracked-object data model (spec §3).
package types

import "time"

// ObjectID is the framework-assigned opaque identity of a tracked object.
// It is stable for the object's lifetime and meaningless once the object is
// destroyed; the registry never dereferences it as a pointer.
type ObjectID uintptr

// PropertyInfo describes one introspectable property.
type PropertyInfo struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Readable bool   `json:"readable"`
	Writable bool   `json:"writable"`
}

// ParamInfo describes one method or signal parameter.
type ParamInfo struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// MethodInfo describes one invokable method or signal.
type MethodInfo struct {
	Name       string      `json:"name"`
	Signature  string      `json:"signature"`
	ReturnType string      `json:"returnType"`
	Params     []ParamInfo `json:"params"`
	Invokable  bool        `json:"invokable"`
	IsSignal   bool        `json:"isSignal"`
}

// Metadata is the per-class reflection surface the Framework host exposes.
type Metadata struct {
	ClassName  string         `json:"className"`
	Ancestry   []string       `json:"ancestry"` // root-to-self inheritance chain
	Properties []PropertyInfo `json:"properties"`
	Methods    []MethodInfo   `json:"methods"`
	Signals    []MethodInfo   `json:"signals"`
}

// Geometry is the fixed-shape JSON coercion of a widget's on-screen rect.
type Geometry struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// TrackedObject is a node in the live Framework object graph, as seen by the
// probe. The probe holds no strong reference to the underlying object; ID is
// the only thing that survives after a destruction callback fires.
type TrackedObject struct {
	ID         ObjectID
	ClassName  string
	UserName   string // optional "objectName"; empty if unset
	ParentID   ObjectID
	HasParent  bool
	ChildOrder int  // position among siblings at construction time
	IsWidget   bool // can receive input, has geometry
	CreatedAt  time.Time
}

// RefHandle is an ephemeral, walk-scoped handle used by the
// accessibility/coordinate modes (spec §3 "Ref map"). Native mode does not
// issue these; they exist so the mode-selector surface (SPEC_FULL §3) has a
// concrete type to register against.
type RefHandle string
