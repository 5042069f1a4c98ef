package introspect

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ssss2art/qtmcp/internal/framework"
	fakehost "github.com/ssss2art/qtmcp/internal/framework/fake"
	"github.com/ssss2art/qtmcp/internal/types"
)

func TestGetSetPropertyRoundTrips(t *testing.T) {
	host := fakehost.New()
	id := host.AddObject("QLineEdit", "edit", 0, false, true)
	host.SetMethods(id, nil)
	in := New(host)

	err := host.SetProperty(id, "text", "")
	require.NoError(t, err)

	err = in.SetProperty(id, "text", "hello")
	require.NoError(t, err)

	v, err := in.GetProperty(id, "text")
	require.NoError(t, err)
	require.Equal(t, "hello", v)
}

func TestSetPropertyInvalidShapeReturnsInvalidValue(t *testing.T) {
	host := fakehost.New()
	id := host.AddObject("QLineEdit", "edit", 0, false, true)
	require.NoError(t, host.SetProperty(id, "text", ""))

	// text declared as "variant" by the fake reflector, so any JSON value is
	// accepted — use a bool-declared property path instead via FromJSON
	// directly to exercise the mismatch branch.
	_, err := FromJSON(42.0, "bool")
	require.ErrorIs(t, err, framework.ErrInvalidValue)
}

func TestInvokeMethodArityMismatch(t *testing.T) {
	host := fakehost.New()
	id := host.AddObject("QPushButton", "ok", 0, false, true)
	host.SetMethods(id, []types.MethodInfo{
		{Name: "click", Invokable: true, Params: nil, ReturnType: "void"},
	})
	in := New(host)

	_, err := in.InvokeMethod(id, "click", []any{"unexpected"})
	require.ErrorIs(t, err, framework.ErrArityMismatch)
}

func TestInvokeMethodNotInvokable(t *testing.T) {
	host := fakehost.New()
	id := host.AddObject("QPushButton", "ok", 0, false, true)
	host.SetMethods(id, []types.MethodInfo{
		{Name: "internalOnly", Invokable: false},
	})
	in := New(host)

	_, err := in.InvokeMethod(id, "internalOnly", nil)
	require.ErrorIs(t, err, framework.ErrNotInvokable)
}

func TestInvokeMethodVoidReturnsNil(t *testing.T) {
	host := fakehost.New()
	id := host.AddObject("QPushButton", "ok", 0, false, true)
	host.SetMethods(id, []types.MethodInfo{
		{Name: "click", Invokable: true, ReturnType: "void"},
	})
	in := New(host)

	v, err := in.InvokeMethod(id, "click", []any{})
	require.NoError(t, err)
	require.Nil(t, v)
}

func TestGetPropertyUnknownObject(t *testing.T) {
	host := fakehost.New()
	in := New(host)
	_, err := in.GetProperty(999, "text")
	require.ErrorIs(t, err, ErrUnknownID)
}

func TestToJSONGeometryShape(t *testing.T) {
	v, err := ToJSON(types.Geometry{X: 1, Y: 2, Width: 3, Height: 4})
	require.NoError(t, err)
	require.Equal(t, map[string]any{"x": 1, "y": 2, "width": 3, "height": 4}, v)
}

func TestToJSONEnumPrefersLabel(t *testing.T) {
	v, err := ToJSON(Enum{Label: "LeftButton", Value: 1})
	require.NoError(t, err)
	require.Equal(t, "LeftButton", v)

	v, err = ToJSON(Enum{Value: 7})
	require.NoError(t, err)
	require.Equal(t, 7, v)
}

func TestToJSONSequenceElementwise(t *testing.T) {
	v, err := ToJSON([]any{1, "two", types.Geometry{Width: 1, Height: 1}})
	require.NoError(t, err)
	seq, ok := v.([]any)
	require.True(t, ok)
	require.Len(t, seq, 3)
}
