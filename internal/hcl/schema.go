package hcl

// fileRoot decodes every top-level construct of a native HCL file.
type fileRoot struct {
	Decorations []*decorateBlock   `hcl:"decorate,block"`
	Persistent  []*persistentBlock `hcl:"persistent,block"`
	GraphTypes  []string           `hcl:"graph_types,optional"`
}

// decorateBlock lists the decoration fields of one node type.
type decorateBlock struct {
	NodeType string        `hcl:"nodetype,label"`
	Fields   []*fieldBlock `hcl:"field,block"`
}

type fieldBlock struct {
	Name string   `hcl:"name,label"`
	Args []string `hcl:"args,optional"`
}

// persistentBlock lists the persistent attribute paths of one node type,
// or of every type when labelled "*".
type persistentBlock struct {
	NodeType string     `hcl:"nodetype,label"`
	Paths    [][]string `hcl:"paths"`
}

// Top-level keys of a JSON configuration document.
const (
	jsonDecorations = "nodedecorations"
	jsonPersistent  = "persistent"
	jsonGraphTypes  = "graph_types"
	jsonArgs        = "args"
)
