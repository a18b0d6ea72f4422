package attr

import (
	"encoding/json"
	"fmt"
	"math"
)

// FromAny converts a decoded JSON-like value into a Value. Integral numbers
// become Int; json.Number is honoured when the decoder used UseNumber.
func FromAny(x any) (Value, error) {
	switch t := x.(type) {
	case nil:
		return Nil, nil
	case Value:
		return t, nil
	case string:
		return String(t), nil
	case bool:
		return Bool(t), nil
	case int:
		return Int(t), nil
	case int64:
		return Int(t), nil
	case float64:
		if t == math.Trunc(t) && math.Abs(t) < 1<<53 {
			return Int(int64(t)), nil
		}
		return Float(t), nil
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return Int(i), nil
		}
		f, err := t.Float64()
		if err != nil {
			return nil, fmt.Errorf("attr: bad number %q: %w", t, err)
		}
		return Float(f), nil
	case []string:
		return Strings(t...), nil
	case []any:
		out := make(Seq, len(t))
		for i, e := range t {
			v, err := FromAny(e)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil
	case map[string]any:
		out := make(Map, len(t))
		for k, e := range t {
			v, err := FromAny(e)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", k, err)
			}
			out[k] = v
		}
		return out, nil
	}
	return nil, fmt.Errorf("attr: unsupported value of type %T", x)
}

// ToAny converts v into plain Go values suitable for encoding/json.
// Enumeration members are rendered by name.
func ToAny(v Value) any {
	switch t := v.(type) {
	case nil, Null:
		return nil
	case String:
		return string(t)
	case Int:
		return int64(t)
	case Float:
		return float64(t)
	case Bool:
		return bool(t)
	case Seq:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = ToAny(e)
		}
		return out
	case Map:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = ToAny(e)
		}
		return out
	}
	return v.String()
}
