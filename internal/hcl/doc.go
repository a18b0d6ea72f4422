// Package hcl provides the concrete implementation of the config.Loader
// interface. It reads two syntaxes with hclparse:
//
// **Native HCL** files (".hcl") declare blocks, decoded with gohcl:
//
//	decorate "DEVICE_PATH" {
//	  field "UDEV" { args = ["DEVNAME", "DEVTYPE"] }
//	  field "SYSNAME" {}
//	}
//	persistent "WWN" { paths = [["identifier"]] }
//	graph_types = ["PartitionGraphs", "SpindleGraphs"]
//
// **JSON** files (".json") hold the same information as one document:
//
//	{"nodedecorations": {"DEVICE_PATH": {"UDEV": {"args": ["DEVNAME"]}}},
//	 "persistent": {"WWN": [["identifier"]]},
//	 "graph_types": ["PartitionGraphs"]}
//
// JSON values arrive as cty values; they are converted with the cty convert
// package and bound to Go values with gocty, the same way for both syntaxes.
// Node type names that devdag does not know are skipped with a warning.
package hcl
