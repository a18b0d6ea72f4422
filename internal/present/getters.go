package present

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/vk/devdag/internal/attr"
	"github.com/vk/devdag/internal/vocab"
)

// Getter extracts a printable value from a node's attributes. It reports
// false when the node has no such value.
type Getter func(attrs attr.Map) (string, bool)

// lookup reads a key path from attrs, treating a missing key, a non-map along the
// way and a null value alike as absent.
func lookup(attrs attr.Map, path ...string) (attr.Value, bool) {
	v, ok, err := attrs.Lookup(path...)
	if err != nil || !ok {
		return nil, false
	}
	if _, isNull := v.(attr.Null); isNull {
		return nil, false
	}
	return v, true
}

// Path returns a getter for the value at the given key path.
func Path(keys ...string) Getter {
	return func(attrs attr.Map) (string, bool) {
		v, ok := lookup(attrs, keys...)
		if !ok {
			return "", false
		}
		return v.String(), true
	}
}

// sectorSize is the unit of the sysfs "size" attribute.
const sectorSize = 512

// dmUUIDPattern extracts the owning subsystem from a device-mapper UUID,
// e.g. "LVM" from "LVM-abc..." or "mpath" from "part1-mpath-3600...".
var dmUUIDPattern = regexp.MustCompile(`^(?:part\d+-)?([A-Za-z]+)-`)

var (
	// ByPath joins the node's by-path device links.
	ByPath Getter = func(attrs attr.Map) (string, bool) {
		v, ok := lookup(attrs, "DEVLINK", "by-path")
		if !ok {
			return "", false
		}
		links, isSeq := v.(attr.Seq)
		if !isSeq {
			return v.String(), true
		}
		parts := make([]string, len(links))
		for i, l := range links {
			parts[i] = l.String()
		}
		return strings.Join(parts, "; "), true
	}

	Devname    = Path("UDEV", "DEVNAME")
	Devpath    = Path("UDEV", "DEVPATH")
	Devtype    = Path("UDEV", "DEVTYPE")
	DMName     = Path("UDEV", "DM_NAME")
	Identifier = Path(vocab.KeyIdentifier)
	IDPath     = Path("UDEV", "ID_PATH")
	IDSASPath  = Path("UDEV", "ID_SAS_PATH")
	Subsystem  = Path("UDEV", "SUBSYSTEM")
	Sysname    = Path("SYSNAME")
	DiffStatus = Path(vocab.KeyDiffStatus)

	// DMUUIDSubsystem is the subsystem prefix of the node's DM_UUID.
	DMUUIDSubsystem Getter = func(attrs attr.Map) (string, bool) {
		v, ok := lookup(attrs, "UDEV", "DM_UUID")
		if !ok {
			return "", false
		}
		m := dmUUIDPattern.FindStringSubmatch(v.String())
		if m == nil {
			return "", false
		}
		return m[1], true
	}

	// NodeType names what kind of thing the node is.
	NodeType Getter = func(attrs attr.Map) (string, bool) {
		switch {
		case vocab.WWN.Equal(attrs[vocab.KeyNodeType]):
			return "Drive", true
		case vocab.DevicePath.Equal(attrs[vocab.KeyNodeType]):
			return "Device", true
		}
		return "", false
	}

	// Size renders the sysfs size, counted in 512 byte sectors, in IEC
	// units.
	Size Getter = func(attrs attr.Map) (string, bool) {
		v, ok := lookup(attrs, "SYSFS", "size")
		if !ok {
			return "", false
		}
		sectors, err := strconv.ParseUint(strings.TrimSpace(v.String()), 10, 64)
		if err != nil {
			return "", false
		}
		return humanize.IBytes(sectors * sectorSize), true
	}
)

// Getters indexes the getters by column name.
var Getters = map[string]Getter{
	"BY_PATH":         ByPath,
	"DEVNAME":         Devname,
	"DEVPATH":         Devpath,
	"DEVTYPE":         Devtype,
	"DIFFSTATUS":      DiffStatus,
	"DMNAME":          DMName,
	"DMUUIDSUBSYSTEM": DMUUIDSubsystem,
	"IDENTIFIER":      Identifier,
	"IDPATH":          IDPath,
	"IDSASPATH":       IDSASPath,
	"NODETYPE":        NodeType,
	"SIZE":            Size,
	"SUBSYSTEM":       Subsystem,
	"SYSNAME":         Sysname,
}

// First returns a getter yielding the value of the first getter that has
// one.
func First(getters ...Getter) Getter {
	return func(attrs attr.Map) (string, bool) {
		for _, g := range getters {
			if v, ok := g(attrs); ok {
				return v, true
			}
		}
		return "", false
	}
}

// Name is the display name of a node: its device-mapper name, else its
// device node, else its identifier.
var Name = First(DMName, Devname, Identifier)
