// introspect.go — Introspector (spec §4.3, component C3).
package introspect

import (
	"github.com/cockroachdb/errors"

	"github.com/ssss2art/qtmcp/internal/framework"
	"github.com/ssss2art/qtmcp/internal/types"
)

// ErrUnknownID maps to the wire error kind "unknown-id" (spec §7).
var ErrUnknownID = errors.New("introspect: unknown object id")

// Introspector reads and mutates tracked objects through a framework.Host.
// Every method here must be called on the UI thread (spec §4.3 "The caller
// must be on the UI thread").
type Introspector struct {
	host framework.Host
}

// New returns an Introspector over host.
func New(host framework.Host) *Introspector {
	return &Introspector{host: host}
}

// Info returns the full metadata for a tracked object.
func (in *Introspector) Info(id types.ObjectID) (types.Metadata, error) {
	md, ok := in.host.Reflect(id)
	if !ok {
		return types.Metadata{}, ErrUnknownID
	}
	return md, nil
}

// ListProperties returns the declared properties for a tracked object.
func (in *Introspector) ListProperties(id types.ObjectID) ([]types.PropertyInfo, error) {
	md, err := in.Info(id)
	if err != nil {
		return nil, err
	}
	return md.Properties, nil
}

// ListMethods returns the declared invokable methods for a tracked object.
func (in *Introspector) ListMethods(id types.ObjectID) ([]types.MethodInfo, error) {
	md, err := in.Info(id)
	if err != nil {
		return nil, err
	}
	return md.Methods, nil
}

// ListSignals returns the declared signals for a tracked object.
func (in *Introspector) ListSignals(id types.ObjectID) ([]types.MethodInfo, error) {
	md, err := in.Info(id)
	if err != nil {
		return nil, err
	}
	return md.Signals, nil
}

// GetProperty reads a named property, coerced to JSON by ToJSON; a value of
// a kind ToJSON cannot represent surfaces as ErrUnsupportedKind.
func (in *Introspector) GetProperty(id types.ObjectID, name string) (any, error) {
	if !in.propertyKnown(id, name) {
		return nil, ErrUnknownID
	}
	v, err := in.host.GetProperty(id, name)
	if err != nil {
		return nil, err
	}
	return ToJSON(v)
}

// SetProperty writes a named property from a JSON value. Partial: returns
// framework.ErrInvalidValue if the target property's declared type can't
// accept the JSON shape (spec §4.3).
func (in *Introspector) SetProperty(id types.ObjectID, name string, jsonValue any) error {
	md, ok := in.host.Reflect(id)
	if !ok {
		return ErrUnknownID
	}
	var declaredType string
	writable := false
	for _, p := range md.Properties {
		if p.Name == name {
			declaredType = p.Type
			writable = p.Writable
			break
		}
	}
	if !writable {
		return framework.ErrInvalidValue
	}
	native, err := FromJSON(jsonValue, declaredType)
	if err != nil {
		return err
	}
	return in.host.SetProperty(id, name, native)
}

// InvokeMethod calls a named method with positional JSON arguments and
// returns its JSON-coerced result. void returns surface as nil.
func (in *Introspector) InvokeMethod(id types.ObjectID, method string, jsonArgs []any) (any, error) {
	md, ok := in.host.Reflect(id)
	if !ok {
		return nil, ErrUnknownID
	}
	var target *types.MethodInfo
	for i := range md.Methods {
		if md.Methods[i].Name == method {
			target = &md.Methods[i]
			break
		}
	}
	if target == nil {
		return nil, framework.ErrNotInvokable
	}
	if !target.Invokable {
		return nil, framework.ErrNotInvokable
	}
	if len(jsonArgs) != len(target.Params) {
		return nil, framework.ErrArityMismatch
	}

	nativeArgs := make([]any, len(jsonArgs))
	for i, arg := range jsonArgs {
		native, err := FromJSON(arg, target.Params[i].Type)
		if err != nil {
			return nil, err
		}
		nativeArgs[i] = native
	}

	result, err := in.host.Invoke(id, method, nativeArgs)
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, nil
	}
	return ToJSON(result)
}

// Geometry returns a widget's screen geometry (spec §4.4 "getGeometry").
// Non-widget objects surface framework.ErrWrongKind from the Host.
func (in *Introspector) Geometry(id types.ObjectID) (types.Geometry, error) {
	return in.host.Geometry(id)
}

func (in *Introspector) propertyKnown(id types.ObjectID, name string) bool {
	md, ok := in.host.Reflect(id)
	if !ok {
		return false
	}
	for _, p := range md.Properties {
		if p.Name == name {
			return true
		}
	}
	return false
}
