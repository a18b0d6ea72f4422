// Package sysfs implements device.Source on a Linux host by reading the
// sysfs tree and the udev database directly.
//
// Device paths are relative to the sysfs mount point, e.g.
// "/devices/pci0000:00/0000:00:1f.2/ata1/host0/target0:0:0/0:0:0:0/block/sda".
// A device's properties are the merge of its uevent file and its udev
// database record; its links come from the udev record's "S:" lines.
package sysfs

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/vk/devdag/internal/ctxlog"
	"github.com/vk/devdag/internal/device"
)

const (
	DefaultSysfsRoot = "/sys"
	DefaultUdevRoot  = "/run/udev/data"
)

// Source reads devices from a sysfs tree.
type Source struct {
	root     string
	udevRoot string
}

var _ device.Source = (*Source)(nil)

// New creates a source rooted at sysfsRoot, reading udev records from
// udevRoot. Empty arguments select the standard locations. The sysfs root
// must exist; a missing udev database only means devices have no udev
// properties beyond their uevent.
func New(sysfsRoot, udevRoot string) (*Source, error) {
	if sysfsRoot == "" {
		sysfsRoot = DefaultSysfsRoot
	}
	if udevRoot == "" {
		udevRoot = DefaultUdevRoot
	}
	root, err := filepath.EvalSymlinks(sysfsRoot)
	if err != nil {
		return nil, fmt.Errorf("resolving sysfs root: %w", err)
	}
	return &Source{root: filepath.Clean(root), udevRoot: udevRoot}, nil
}

// Device is a device read from sysfs.
type Device struct {
	path      string
	sysName   string
	subsystem string
	dir       string
	props     map[string]string
	links     []string
}

var _ device.Device = (*Device)(nil)

func (d *Device) Path() string      { return d.path }
func (d *Device) SysName() string   { return d.sysName }
func (d *Device) Subsystem() string { return d.subsystem }

func (d *Device) Property(key string) (string, bool) {
	v, ok := d.props[key]
	return v, ok
}

// Attribute reads a sysfs attribute file below the device directory,
// trimming the trailing newline.
func (d *Device) Attribute(name string) (string, error) {
	b, err := os.ReadFile(filepath.Join(d.dir, filepath.FromSlash(name)))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("attribute %q of %s: %w", name, d.path, device.ErrNotFound)
		}
		return "", fmt.Errorf("attribute %q of %s: %w", name, d.path, err)
	}
	return strings.TrimRight(string(b), "\n"), nil
}

func (d *Device) Links() []string { return slices.Clone(d.links) }

// FromPath loads the device at path. Both sysfs-relative paths and absolute
// paths below the sysfs root are accepted.
func (s *Source) FromPath(_ context.Context, path string) (device.Device, error) {
	return s.load(path)
}

func (s *Source) load(path string) (*Device, error) {
	rel := strings.TrimPrefix(filepath.Clean(path), s.root)
	if !strings.HasPrefix(rel, "/devices/") {
		return nil, fmt.Errorf("%s: not a device path: %w", path, device.ErrNotFound)
	}
	dir := filepath.Join(s.root, rel)

	uevent, err := readKeyValues(filepath.Join(dir, "uevent"))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", rel, device.ErrNotFound)
		}
		return nil, fmt.Errorf("reading uevent of %s: %w", rel, err)
	}

	d := &Device{
		path:    rel,
		sysName: strings.ReplaceAll(filepath.Base(rel), "!", "/"),
		dir:     dir,
		props:   uevent,
	}
	if target, err := filepath.EvalSymlinks(filepath.Join(dir, "subsystem")); err == nil {
		d.subsystem = filepath.Base(target)
	}

	d.props["DEVPATH"] = rel
	if d.subsystem != "" {
		d.props["SUBSYSTEM"] = d.subsystem
	}
	if name, ok := d.props["DEVNAME"]; ok && !strings.HasPrefix(name, "/") {
		d.props["DEVNAME"] = "/dev/" + name
	}

	if err := s.readUdev(d); err != nil {
		return nil, err
	}
	return d, nil
}

// readUdev merges the udev database record of d, if any.
func (s *Source) readUdev(d *Device) error {
	major, okMajor := d.props["MAJOR"]
	minor, okMinor := d.props["MINOR"]
	if !okMajor || !okMinor {
		return nil
	}
	kind := "c"
	if d.subsystem == "block" {
		kind = "b"
	}
	f, err := os.Open(filepath.Join(s.udevRoot, fmt.Sprintf("%s%s:%s", kind, major, minor)))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("reading udev record of %s: %w", d.path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "E:"):
			if k, v, ok := strings.Cut(line[2:], "="); ok {
				d.props[k] = v
			}
		case strings.HasPrefix(line, "S:"):
			d.links = append(d.links, "/dev/"+line[2:])
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading udev record of %s: %w", d.path, err)
	}
	slices.Sort(d.links)
	return nil
}

func readKeyValues(name string) (map[string]string, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	out := make(map[string]string)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if k, v, ok := strings.Cut(scanner.Text(), "="); ok {
			out[k] = v
		}
	}
	return out, scanner.Err()
}

// Devices enumerates the devices registered under /sys/class and
// /sys/bus, or only /sys/class/<subsystem> when the filter names one.
func (s *Source) Devices(ctx context.Context, filter device.Filter) ([]device.Device, error) {
	logger := ctxlog.FromContext(ctx)

	var patterns []string
	if filter.Subsystem != "" {
		patterns = []string{
			filepath.Join(s.root, "class", filter.Subsystem, "*"),
			filepath.Join(s.root, "bus", filter.Subsystem, "devices", "*"),
		}
	} else {
		patterns = []string{
			filepath.Join(s.root, "class", "*", "*"),
			filepath.Join(s.root, "bus", "*", "devices", "*"),
		}
	}

	seen := make(map[string]bool)
	var out []device.Device
	for _, pattern := range patterns {
		entries, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("listing devices: %w", err)
		}
		for _, entry := range entries {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			target, err := filepath.EvalSymlinks(entry)
			if err != nil || seen[target] {
				continue
			}
			seen[target] = true

			d, err := s.load(target)
			if errors.Is(err, device.ErrNotFound) {
				logger.Debug("Skipping sysfs entry that is not a device.", "entry", entry)
				continue
			}
			if err != nil {
				return nil, err
			}
			if filter.Matches(d) {
				out = append(out, d)
			}
		}
	}
	slices.SortFunc(out, func(a, b device.Device) int { return strings.Compare(a.Path(), b.Path()) })
	return out, nil
}

// links resolves the symlinks in dir/<sub> into devices.
func (s *Source) links(d device.Device, sub string) ([]device.Device, error) {
	dir := filepath.Join(s.root, d.Path(), sub)
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s of %s: %w", sub, d.Path(), err)
	}
	var out []device.Device
	for _, e := range entries {
		target, err := filepath.EvalSymlinks(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("resolving %s of %s: %w", sub, d.Path(), err)
		}
		rel, err := s.load(target)
		if err != nil {
			return nil, err
		}
		out = append(out, rel)
	}
	return out, nil
}

func (s *Source) Slaves(_ context.Context, d device.Device) ([]device.Device, error) {
	return s.links(d, "slaves")
}

func (s *Source) Holders(_ context.Context, d device.Device) ([]device.Device, error) {
	return s.links(d, "holders")
}

// Parent walks up the directory tree to the nearest directory that is a
// device.
func (s *Source) Parent(_ context.Context, d device.Device) (device.Device, error) {
	for dir := filepath.Dir(d.Path()); strings.HasPrefix(dir, "/devices/"); dir = filepath.Dir(dir) {
		p, err := s.load(dir)
		if errors.Is(err, device.ErrNotFound) {
			continue
		}
		return p, err
	}
	return nil, fmt.Errorf("parent of %s: %w", d.Path(), device.ErrNotFound)
}

// Bays lists the slots of an enclosure that hold a block device. A slot is
// a subdirectory with a "device" link; the block device is found below that
// device's "block" directory.
func (s *Source) Bays(_ context.Context, d device.Device) ([]device.Bay, error) {
	dir := filepath.Join(s.root, d.Path())
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading enclosure %s: %w", d.Path(), err)
	}
	var out []device.Bay
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		slot, err := filepath.EvalSymlinks(filepath.Join(dir, e.Name(), "device"))
		if err != nil {
			continue
		}
		blocks, err := os.ReadDir(filepath.Join(slot, "block"))
		if err != nil || len(blocks) == 0 {
			continue
		}
		dev, err := s.load(filepath.Join(slot, "block", blocks[0].Name()))
		if err != nil {
			return nil, err
		}
		out = append(out, device.Bay{Name: e.Name(), Device: dev})
	}
	return out, nil
}
