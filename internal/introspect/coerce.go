// coerce.go — bidirectional Framework-value <-> JSON coercion (spec §4.3).
package introspect

import (
	"fmt"

	"github.com/cockroachdb/errors"

	"github.com/ssss2art/qtmcp/internal/framework"
	"github.com/ssss2art/qtmcp/internal/types"
)

// Point is a framework geometry value with no width/height (spec §3:
// "geometry values (point, rect) map to fixed-shape objects {x,y[,width,height]}").
type Point struct{ X, Y int }

// Enum is a framework enum value. If Label is non-empty it is the value's
// known string form; otherwise only the integer value is known.
type Enum struct {
	Label string
	Value int
}

// ErrUnsupportedKind is returned when a native value has no JSON shape and
// no canonical string form either.
var ErrUnsupportedKind = errors.New("introspect: unsupported value kind")

// ToJSON coerces a native Framework value into its JSON-ready form. A value
// with no JSON shape falls back to its String() form if it has one;
// otherwise ToJSON returns ErrUnsupportedKind.
func ToJSON(v any) (any, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case bool, string,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return t, nil
	case types.Geometry:
		return map[string]any{"x": t.X, "y": t.Y, "width": t.Width, "height": t.Height}, nil
	case Point:
		return map[string]any{"x": t.X, "y": t.Y}, nil
	case Enum:
		if t.Label != "" {
			return t.Label, nil
		}
		return t.Value, nil
	case []any:
		out := make([]any, len(t))
		for i, elem := range t {
			coerced, err := ToJSON(elem)
			if err != nil {
				return nil, err
			}
			out[i] = coerced
		}
		return out, nil
	case fmt.Stringer:
		return t.String(), nil
	default:
		return nil, errors.Wrapf(ErrUnsupportedKind, "value of type %T", v)
	}
}

// FromJSON coerces a JSON-decoded value into the native shape the Framework
// expects for a property of the given declared type. Partial on write: an
// incompatible JSON shape returns framework.ErrInvalidValue.
func FromJSON(jsonValue any, declaredType string) (any, error) {
	switch declaredType {
	case "bool":
		b, ok := jsonValue.(bool)
		if !ok {
			return nil, framework.ErrInvalidValue
		}
		return b, nil
	case "int", "integer":
		n, ok := jsonValue.(float64)
		if !ok {
			return nil, framework.ErrInvalidValue
		}
		return int(n), nil
	case "float", "double":
		n, ok := jsonValue.(float64)
		if !ok {
			return nil, framework.ErrInvalidValue
		}
		return n, nil
	case "string":
		s, ok := jsonValue.(string)
		if !ok {
			return nil, framework.ErrInvalidValue
		}
		return s, nil
	case "point":
		m, ok := jsonValue.(map[string]any)
		if !ok {
			return nil, framework.ErrInvalidValue
		}
		x, xok := m["x"].(float64)
		y, yok := m["y"].(float64)
		if !xok || !yok {
			return nil, framework.ErrInvalidValue
		}
		return Point{X: int(x), Y: int(y)}, nil
	case "rect", "geometry":
		m, ok := jsonValue.(map[string]any)
		if !ok {
			return nil, framework.ErrInvalidValue
		}
		x, xok := m["x"].(float64)
		y, yok := m["y"].(float64)
		w, wok := m["width"].(float64)
		h, hok := m["height"].(float64)
		if !xok || !yok || !wok || !hok {
			return nil, framework.ErrInvalidValue
		}
		return types.Geometry{X: int(x), Y: int(y), Width: int(w), Height: int(h)}, nil
	case "variant", "":
		// No declared shape: accept whatever JSON gave us verbatim. Used by
		// the fake Host's untyped property store and by enum-ish values the
		// caller doesn't need to further narrow.
		return jsonValue, nil
	default:
		return nil, framework.ErrInvalidValue
	}
}
