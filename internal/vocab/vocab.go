// Package vocab holds the closed enumerations used to tag nodes and edges of
// a device graph: node types, edge types, element types and diff markers.
//
// Every enumeration is ordered, renders as its canonical upper-case name and
// can be resolved from that name. Members double as attribute values, so a
// node's "nodetype" attribute holds a NodeType rather than a string.
package vocab

import "github.com/vk/devdag/internal/attr"

type enum interface {
	comparable
	String() string
}

// parse resolves name against values. Lookup is exact and case-sensitive.
func parse[T enum](values []T, name string) (T, bool) {
	for _, v := range values {
		if v.String() == name {
			return v, true
		}
	}
	var zero T
	return zero, false
}

// NodeType says what a node stands for.
type NodeType int

const (
	// DevicePath is a kernel device, keyed by its sysfs path.
	DevicePath NodeType = iota + 1
	// WWN is a physical drive, keyed by its world wide name.
	WWN
)

var nodeTypes = []NodeType{DevicePath, WWN}

// NodeTypes returns every node type in declaration order.
func NodeTypes() []NodeType { return append([]NodeType(nil), nodeTypes...) }

// ParseNodeType resolves a node type from its canonical name.
func ParseNodeType(name string) (NodeType, bool) { return parse(nodeTypes, name) }

func (t NodeType) String() string {
	switch t {
	case DevicePath:
		return "DEVICE_PATH"
	case WWN:
		return "WWN"
	}
	return "NodeType(?)"
}

// Equal implements attr.Value.
func (t NodeType) Equal(other attr.Value) bool {
	o, ok := other.(NodeType)
	return ok && o == t
}

// EdgeType says how two nodes are related.
type EdgeType int

const (
	Slave EdgeType = iota + 1
	Partition
	Spindle
	Congruence
	EnclosureBay
)

var edgeTypes = []EdgeType{Slave, Partition, Spindle, Congruence, EnclosureBay}

// EdgeTypes returns every edge type in declaration order.
func EdgeTypes() []EdgeType { return append([]EdgeType(nil), edgeTypes...) }

// ParseEdgeType resolves an edge type from its canonical name.
func ParseEdgeType(name string) (EdgeType, bool) { return parse(edgeTypes, name) }

func (t EdgeType) String() string {
	switch t {
	case Slave:
		return "SLAVE"
	case Partition:
		return "PARTITION"
	case Spindle:
		return "SPINDLE"
	case Congruence:
		return "CONGRUENCE"
	case EnclosureBay:
		return "ENCLOSUREBAY"
	}
	return "EdgeType(?)"
}

// Equal implements attr.Value.
func (t EdgeType) Equal(other attr.Value) bool {
	o, ok := other.(EdgeType)
	return ok && o == t
}

// ElementType distinguishes the two kinds of graph element.
type ElementType int

const (
	Edge ElementType = iota + 1
	Node
)

var elementTypes = []ElementType{Edge, Node}

// ElementTypes returns every element type in declaration order.
func ElementTypes() []ElementType { return append([]ElementType(nil), elementTypes...) }

// ParseElementType resolves an element type from its canonical name.
func ParseElementType(name string) (ElementType, bool) { return parse(elementTypes, name) }

func (t ElementType) String() string {
	switch t {
	case Edge:
		return "EDGE"
	case Node:
		return "NODE"
	}
	return "ElementType(?)"
}

// Equal implements attr.Value.
func (t ElementType) Equal(other attr.Value) bool {
	o, ok := other.(ElementType)
	return ok && o == t
}

// DiffStatus marks an element that exists on only one side of a diff.
type DiffStatus int

const (
	Added DiffStatus = iota + 1
	Removed
)

var diffStatuses = []DiffStatus{Added, Removed}

// DiffStatuses returns every diff status in declaration order.
func DiffStatuses() []DiffStatus { return append([]DiffStatus(nil), diffStatuses...) }

// ParseDiffStatus resolves a diff status from its canonical name.
func ParseDiffStatus(name string) (DiffStatus, bool) { return parse(diffStatuses, name) }

func (s DiffStatus) String() string {
	switch s {
	case Added:
		return "ADDED"
	case Removed:
		return "REMOVED"
	}
	return "DiffStatus(?)"
}

// Equal implements attr.Value.
func (s DiffStatus) Equal(other attr.Value) bool {
	o, ok := other.(DiffStatus)
	return ok && o == s
}

// Well known attribute keys.
const (
	KeyIdentifier = "identifier"
	KeyNodeType   = "nodetype"
	KeyEdgeType   = "edgetype"
	KeyDiffStatus = "diffstatus"
	KeyName       = "name"
)

// Intern resolves the symbolic value stored under one of the well known
// enumeration keys. ok is false when key does not hold an enumeration;
// known is false when name is not a member of it.
func Intern(key, name string) (v attr.Value, ok, known bool) {
	switch key {
	case KeyNodeType:
		t, known := ParseNodeType(name)
		return t, true, known
	case KeyEdgeType:
		t, known := ParseEdgeType(name)
		return t, true, known
	case KeyDiffStatus:
		s, known := ParseDiffStatus(name)
		return s, true, known
	}
	return nil, false, false
}
