// Package graph provides the attributed directed graph that every other part
// of devdag builds, compares, decorates and prints.
//
// # Model
//
// A Graph holds at most one edge per ordered pair of nodes. Nodes are keyed
// by string: a sysfs device path for DEVICE_PATH nodes, a world wide name for
// WWN nodes. Each node, each edge and the graph itself carries an attr.Map.
//
// **Node attributes** always include:
//   - "identifier": the durable identity of the node
//   - "nodetype": a vocab.NodeType
//
// and, once decorated, nested maps such as "UDEV", "SYSFS" and "DEVLINK".
//
// **Edge attributes** always include "edgetype", a vocab.EdgeType. A diff
// graph also carries "diffstatus" on the elements present on only one side.
//
// **Graph attributes** include "name" and, for flipped graphs, "reversed".
//
// # Composition
//
// Compose and ComposeAll build the union of several graphs. Attribute maps
// are merged key by key and the right-most graph wins on collisions:
//
//	all := graph.ComposeAll(partitions, spindles, congruence, slaves)
//
// The inputs are never modified.
//
// # Traversal
//
// DepthFirst and BreadthFirst walk a DAG from its roots and yield NodeInfo
// records carrying the depth and whether the node is the last of its
// siblings, which is what the tree printer needs to draw branches. A node
// reachable along several paths is yielded once per path. Use DetectCycles
// first when the input may be cyclic.
//
// # Thread-Safety
//
// Structural operations take an internal lock, in the same way the build
// pipeline's graph always has. Attribute maps are handed out live so callers
// can decorate in place; such writes must not race with readers.
package graph
