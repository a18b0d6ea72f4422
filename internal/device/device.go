// Package device defines what devdag needs to know about the devices of a
// host: their identity, udev properties, sysfs attributes, links, and how
// they relate to one another. Graph builders and node decorators are written
// against these interfaces; the sysfs subpackage reads a live Linux host and
// devicetest provides an in-memory fake.
package device

import (
	"context"
	"errors"
	"path/filepath"
)

// ErrNotFound is returned when a device, attribute or relative does not
// exist.
var ErrNotFound = errors.New("device not found")

// Device is one kernel device.
type Device interface {
	// Path is the device path below the sysfs mount point, starting with
	// "/devices". It uniquely identifies the device and keys its graph node.
	Path() string
	SysName() string
	Subsystem() string
	// Property returns a udev property.
	Property(key string) (string, bool)
	// Attribute returns the contents of a sysfs attribute file. The error
	// wraps ErrNotFound when the attribute does not exist.
	Attribute(name string) (string, error)
	// Links returns the device links (e.g. /dev/disk/by-path/...).
	Links() []string
}

// Bay is one slot of an enclosure and the block device occupying it.
type Bay struct {
	Name   string
	Device Device
}

// Filter selects devices. Zero fields match everything.
type Filter struct {
	Subsystem  string
	Properties map[string]string
}

// Matches reports whether d passes the filter.
func (f Filter) Matches(d Device) bool {
	if f.Subsystem != "" && d.Subsystem() != f.Subsystem {
		return false
	}
	for k, want := range f.Properties {
		if got, ok := d.Property(k); !ok || got != want {
			return false
		}
	}
	return true
}

// Source enumerates devices and their relationships.
type Source interface {
	// Devices lists the devices that pass filter, ordered by path.
	Devices(ctx context.Context, filter Filter) ([]Device, error)
	// FromPath resolves a device path as returned by Device.Path.
	FromPath(ctx context.Context, path string) (Device, error)
	// Slaves lists the devices d is built on.
	Slaves(ctx context.Context, d Device) ([]Device, error)
	// Holders lists the devices built on d.
	Holders(ctx context.Context, d Device) ([]Device, error)
	// Parent returns the nearest ancestor device, or an error wrapping
	// ErrNotFound.
	Parent(ctx context.Context, d Device) (Device, error)
	// Bays lists the occupied bays of an enclosure device.
	Bays(ctx context.Context, d Device) ([]Bay, error)
}

// LinkCategory returns the category of a device link: the directory under
// /dev/disk it lives in, such as "by-path" or "by-id". Links outside
// /dev/disk have no category.
func LinkCategory(link string) (string, bool) {
	dir := filepath.Dir(link)
	if filepath.Dir(dir) != "/dev/disk" {
		return "", false
	}
	return filepath.Base(dir), true
}

// LinkValue returns the informational part of a device link, its last path
// component.
func LinkValue(link string) string {
	return filepath.Base(link)
}
