// Package attr models the attribute trees attached to graph nodes, edges and
// the graph itself.
//
// A Value is one of String, Int, Float, Bool, Null, Seq or Map, or a member of
// one of the closed enumerations in package vocab. Maps nest, which gives the
// decorated node layout its shape:
//
//	{
//	  "identifier": "/devices/.../block/sda",
//	  "nodetype":   DEVICE_PATH,
//	  "UDEV":       {"DEVNAME": "/dev/sda", "ID_SERIAL": "..."},
//	  "SYSFS":      {"size": "1953525168"},
//	}
//
// Path lookups fail with a *LookupError that tells a missing key apart from
// an intermediate value that is not a Map.
package attr

import (
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"
)

// Value is a node in an attribute tree.
type Value interface {
	Equal(other Value) bool
	String() string
}

type (
	String string
	Int    int64
	Float  float64
	Bool   bool
	// Null stands for an explicitly absent value.
	Null struct{}
	Seq  []Value
	Map  map[string]Value
)

// Nil is the Null value.
var Nil Value = Null{}

// Equal compares two values, treating a nil Value as Null.
func Equal(a, b Value) bool {
	if a == nil {
		a = Nil
	}
	if b == nil {
		b = Nil
	}
	return a.Equal(b)
}

// EqualSeq reports whether two value lists are pairwise equal.
func EqualSeq(a, b []Value) bool {
	return slices.EqualFunc(a, b, Equal)
}

func (s String) Equal(o Value) bool { v, ok := o.(String); return ok && v == s }
func (s String) String() string     { return string(s) }

func (i Int) Equal(o Value) bool { v, ok := o.(Int); return ok && v == i }
func (i Int) String() string     { return strconv.FormatInt(int64(i), 10) }

func (f Float) Equal(o Value) bool { v, ok := o.(Float); return ok && v == f }
func (f Float) String() string     { return strconv.FormatFloat(float64(f), 'g', -1, 64) }

func (b Bool) Equal(o Value) bool { v, ok := o.(Bool); return ok && v == b }
func (b Bool) String() string     { return strconv.FormatBool(bool(b)) }

func (Null) Equal(o Value) bool { _, ok := o.(Null); return ok || o == nil }
func (Null) String() string     { return "None" }

func (s Seq) Equal(o Value) bool {
	v, ok := o.(Seq)
	return ok && EqualSeq(s, v)
}

func (s Seq) String() string {
	parts := make([]string, len(s))
	for i, v := range s {
		parts[i] = str(v)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func (m Map) Equal(o Value) bool {
	v, ok := o.(Map)
	if !ok || len(v) != len(m) {
		return false
	}
	for k, mv := range m {
		ov, ok := v[k]
		if !ok || !Equal(mv, ov) {
			return false
		}
	}
	return true
}

func (m Map) String() string {
	parts := make([]string, 0, len(m))
	for _, k := range m.Keys() {
		parts = append(parts, fmt.Sprintf("%s: %s", k, str(m[k])))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// Keys returns the map's keys in sorted order.
func (m Map) Keys() []string {
	return slices.Sorted(maps.Keys(m))
}

// Clone returns a deep copy of m. Enumeration members and scalars are shared.
func (m Map) Clone() Map {
	if m == nil {
		return nil
	}
	out := make(Map, len(m))
	for k, v := range m {
		out[k] = clone(v)
	}
	return out
}

// Update copies every top-level entry of other into m, replacing existing keys.
func (m Map) Update(other Map) {
	for k, v := range other {
		m[k] = v
	}
}

func clone(v Value) Value {
	switch t := v.(type) {
	case Map:
		return t.Clone()
	case Seq:
		out := make(Seq, len(t))
		for i, e := range t {
			out[i] = clone(e)
		}
		return out
	}
	return v
}

func str(v Value) string {
	if v == nil {
		return Nil.String()
	}
	return v.String()
}

// Strings builds a Seq of String values.
func Strings(ss ...string) Seq {
	out := make(Seq, len(ss))
	for i, s := range ss {
		out[i] = String(s)
	}
	return out
}
