package attr

import (
	"errors"
	"fmt"
	"strings"
)

// ErrLookup matches every *LookupError via errors.Is.
var ErrLookup = errors.New("attribute lookup failed")

// ErrEmptyPath is returned when a path with no components is written.
var ErrEmptyPath = errors.New("attr: empty path")

// Reason classifies a lookup failure.
type Reason int

const (
	// KeyNotFound means a Map along the path lacked the next key.
	KeyNotFound Reason = iota + 1
	// TypeMismatch means a value along the path was not a Map.
	TypeMismatch
)

func (r Reason) String() string {
	switch r {
	case KeyNotFound:
		return "key not found"
	case TypeMismatch:
		return "not a map"
	}
	return "unknown"
}

// LookupError reports a failed path lookup. Path holds the components up to
// and including the one that failed.
type LookupError struct {
	Path   []string
	Reason Reason
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("attribute %q: %s", strings.Join(e.Path, "."), e.Reason)
}

// Is makes every LookupError match ErrLookup.
func (e *LookupError) Is(target error) bool { return target == ErrLookup }

// Get walks path from v. Every value before the last must be a Map.
func Get(v Value, path ...string) (Value, error) {
	cur := v
	for i, key := range path {
		m, ok := cur.(Map)
		if !ok {
			return nil, &LookupError{Path: clonePath(path[:i+1]), Reason: TypeMismatch}
		}
		next, ok := m[key]
		if !ok {
			return nil, &LookupError{Path: clonePath(path[:i+1]), Reason: KeyNotFound}
		}
		cur = next
	}
	return cur, nil
}

// Get walks path from m.
func (m Map) Get(path ...string) (Value, error) {
	return Get(m, path...)
}

// Lookup is like Get but reports a missing key as ok == false rather than an
// error. A value along the path that is not a Map is still an error.
func (m Map) Lookup(path ...string) (v Value, ok bool, err error) {
	v, err = Get(m, path...)
	var le *LookupError
	if errors.As(err, &le) && le.Reason == KeyNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

// MustGet is Get for use inside match predicates, which have no error
// return. A failure panics with the *LookupError; Recover turns it back into
// an error at the API boundary.
func MustGet(v Value, path ...string) Value {
	got, err := Get(v, path...)
	if err != nil {
		panic(err)
	}
	return got
}

// Set stores v at path inside m. Missing intermediate maps are created when
// force is true; otherwise a missing intermediate key is a KeyNotFound error.
// An intermediate value that is not a Map is always a TypeMismatch error.
func (m Map) Set(path []string, v Value, force bool) error {
	if len(path) == 0 {
		return ErrEmptyPath
	}
	cur := m
	for i, key := range path[:len(path)-1] {
		next, ok := cur[key]
		if !ok {
			if !force {
				return &LookupError{Path: clonePath(path[:i+1]), Reason: KeyNotFound}
			}
			created := Map{}
			cur[key] = created
			cur = created
			continue
		}
		nm, ok := next.(Map)
		if !ok {
			return &LookupError{Path: clonePath(path[:i+1]), Reason: TypeMismatch}
		}
		cur = nm
	}
	cur[path[len(path)-1]] = v
	return nil
}

// Recover is deferred by functions that run match predicates. It converts a
// *LookupError panic into *err and re-panics with anything else.
func Recover(err *error) {
	r := recover()
	if r == nil {
		return
	}
	if le, ok := r.(*LookupError); ok {
		*err = le
		return
	}
	panic(r)
}

func clonePath(p []string) []string {
	return append([]string(nil), p...)
}
