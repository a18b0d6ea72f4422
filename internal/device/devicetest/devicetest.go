// Package devicetest provides an in-memory device.Source for tests.
package devicetest

import (
	"context"
	"fmt"
	"path"
	"slices"
	"sync"

	"github.com/vk/devdag/internal/device"
)

// Device is a fully described fake device.
type Device struct {
	DevPath  string
	Name     string
	Sub      string
	Props    map[string]string
	Attrs    map[string]string
	DevLinks []string
}

var _ device.Device = (*Device)(nil)

func (d *Device) Path() string { return d.DevPath }

// SysName defaults to the last component of the path.
func (d *Device) SysName() string {
	if d.Name != "" {
		return d.Name
	}
	return path.Base(d.DevPath)
}

func (d *Device) Subsystem() string { return d.Sub }

func (d *Device) Property(key string) (string, bool) {
	v, ok := d.Props[key]
	return v, ok
}

func (d *Device) Attribute(name string) (string, error) {
	v, ok := d.Attrs[name]
	if !ok {
		return "", fmt.Errorf("attribute %q of %s: %w", name, d.DevPath, device.ErrNotFound)
	}
	return v, nil
}

func (d *Device) Links() []string { return slices.Clone(d.DevLinks) }

type bay struct {
	name string
	dev  string
}

// Source is an in-memory device.Source. Relationships are declared by path
// and may be added in any order.
type Source struct {
	mutex   sync.RWMutex
	devices map[string]*Device
	slaves  map[string][]string
	parents map[string]string
	bays    map[string][]bay
}

var _ device.Source = (*Source)(nil)

// NewSource creates an empty source.
func NewSource() *Source {
	return &Source{
		devices: make(map[string]*Device),
		slaves:  make(map[string][]string),
		parents: make(map[string]string),
		bays:    make(map[string][]bay),
	}
}

// Add registers d, replacing any device with the same path.
func (s *Source) Add(d *Device) *Device {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.devices[d.DevPath] = d
	return d
}

// AddSlave records that holder is built on slave.
func (s *Source) AddSlave(holder, slave string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.slaves[holder] = append(s.slaves[holder], slave)
}

// SetParent records the parent of child.
func (s *Source) SetParent(child, parent string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.parents[child] = parent
}

// AddBay records that the bay name of enclosure holds dev.
func (s *Source) AddBay(enclosure, name, dev string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.bays[enclosure] = append(s.bays[enclosure], bay{name: name, dev: dev})
}

func (s *Source) Devices(_ context.Context, filter device.Filter) ([]device.Device, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	var out []device.Device
	for _, p := range s.sortedPaths() {
		if d := s.devices[p]; filter.Matches(d) {
			out = append(out, d)
		}
	}
	return out, nil
}

func (s *Source) FromPath(_ context.Context, p string) (device.Device, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.get(p)
}

func (s *Source) Slaves(_ context.Context, d device.Device) ([]device.Device, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.resolve(s.slaves[d.Path()])
}

func (s *Source) Holders(_ context.Context, d device.Device) ([]device.Device, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	var holders []string
	for holder, slaves := range s.slaves {
		if slices.Contains(slaves, d.Path()) {
			holders = append(holders, holder)
		}
	}
	slices.Sort(holders)
	return s.resolve(holders)
}

func (s *Source) Parent(_ context.Context, d device.Device) (device.Device, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	p, ok := s.parents[d.Path()]
	if !ok {
		return nil, fmt.Errorf("parent of %s: %w", d.Path(), device.ErrNotFound)
	}
	return s.get(p)
}

func (s *Source) Bays(_ context.Context, d device.Device) ([]device.Bay, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	var out []device.Bay
	for _, b := range s.bays[d.Path()] {
		dev, err := s.get(b.dev)
		if err != nil {
			return nil, err
		}
		out = append(out, device.Bay{Name: b.name, Device: dev})
	}
	return out, nil
}

func (s *Source) get(p string) (device.Device, error) {
	d, ok := s.devices[p]
	if !ok {
		return nil, fmt.Errorf("%s: %w", p, device.ErrNotFound)
	}
	return d, nil
}

func (s *Source) resolve(paths []string) ([]device.Device, error) {
	out := make([]device.Device, 0, len(paths))
	for _, p := range paths {
		d, err := s.get(p)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

func (s *Source) sortedPaths() []string {
	paths := make([]string, 0, len(s.devices))
	for p := range s.devices {
		paths = append(paths, p)
	}
	slices.Sort(paths)
	return paths
}
