// Package config defines the format-agnostic configuration model for devdag,
// along with the Loader interface for reading it from disk.
//
// The Model says three things:
//   - which fields decorate which node types (UDEV properties, SYSFS
//     attributes, DEVLINK categories, SYSNAME)
//   - which attribute paths are persistent for each node type and so take
//     part in equivalence checks
//   - which graph builders make up the aggregate device graph
//
// Concrete loaders live in separate packages; see internal/hcl.
package config
