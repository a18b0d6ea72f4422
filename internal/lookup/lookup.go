// Package lookup extracts several values from an attribute tree at once.
//
// A Config is a tree of keys. Every branch ends in a terminal; walking an
// attribute tree along the Config yields the value found at each terminal.
// Keys are visited in sorted order at every level, so a Config always yields
// its values in the same order and two value lists can be compared
// positionally.
package lookup

import (
	"iter"
	"slices"
	"strings"

	"github.com/vk/devdag/internal/attr"
	"github.com/vk/devdag/internal/config"
)

// Config is a key-path tree. A child of nil marks a terminal.
type Config struct {
	children map[string]*Config
}

// Empty reports whether c has no keys.
func (c *Config) Empty() bool {
	return c == nil || len(c.children) == 0
}

// Keys returns c's top-level keys in visiting order.
func (c *Config) Keys() []string {
	if c == nil {
		return nil
	}
	keys := make([]string, 0, len(c.children))
	for k := range c.children {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Paths lists the key paths of c in visiting order.
func (c *Config) Paths() [][]string {
	var out [][]string
	var walk func(prefix []string, c *Config)
	walk = func(prefix []string, c *Config) {
		for _, k := range c.Keys() {
			p := append(slices.Clone(prefix), k)
			if sub := c.children[k]; sub == nil {
				out = append(out, p)
			} else {
				walk(p, sub)
			}
		}
	}
	walk(nil, c)
	return out
}

// FromPaths builds a Config with one terminal per path. A path that is a
// strict prefix of another is a configuration error, as is an empty path.
func FromPaths(paths [][]string) (*Config, error) {
	root := &Config{children: map[string]*Config{}}
	for _, p := range paths {
		if len(p) == 0 {
			return nil, config.Errorf("", "empty attribute path")
		}
		cur := root
		for i, key := range p {
			last := i == len(p)-1
			child, seen := cur.children[key]
			switch {
			case !seen && last:
				cur.children[key] = nil
			case !seen:
				child = &Config{children: map[string]*Config{}}
				cur.children[key] = child
			case child == nil && !last, child != nil && last:
				return nil, config.Errorf("", "attribute path %q conflicts with another path", strings.Join(p, "."))
			}
			cur = child
		}
	}
	return root, nil
}

// FromTree builds a Config from a decoded JSON object in which every value
// is either null (a terminal) or a nested object.
func FromTree(tree map[string]any) (*Config, error) {
	c := &Config{children: make(map[string]*Config, len(tree))}
	for k, v := range tree {
		switch sub := v.(type) {
		case nil:
			c.children[k] = nil
		case map[string]any:
			child, err := FromTree(sub)
			if err != nil {
				return nil, err
			}
			c.children[k] = child
		default:
			return nil, config.Errorf("", "lookup key %q: want null or object, got %T", k, v)
		}
	}
	return c, nil
}

// Lookup yields the values a Config selects from attribute trees.
type Lookup struct {
	config *Config
}

// New returns a Lookup for c.
func New(c *Config) *Lookup {
	return &Lookup{config: c}
}

// Config returns the lookup's configuration.
func (l *Lookup) Config() *Config {
	return l.config
}

// Values lazily yields one value per terminal of the configuration. The
// first missing key or non-map intermediate yields a *attr.LookupError and
// ends the sequence. An empty configuration yields nothing, whatever tree is.
func (l *Lookup) Values(tree attr.Value) iter.Seq2[attr.Value, error] {
	return func(yield func(attr.Value, error) bool) {
		if l.config.Empty() {
			return
		}
		walk(tree, l.config, nil, yield)
	}
}

func walk(tree attr.Value, c *Config, prefix []string, yield func(attr.Value, error) bool) bool {
	if c == nil {
		return yield(tree, nil)
	}
	for _, key := range c.Keys() {
		path := append(slices.Clone(prefix), key)
		m, ok := tree.(attr.Map)
		if !ok {
			yield(nil, &attr.LookupError{Path: path, Reason: attr.TypeMismatch})
			return false
		}
		sub, ok := m[key]
		if !ok {
			yield(nil, &attr.LookupError{Path: path, Reason: attr.KeyNotFound})
			return false
		}
		if !walk(sub, c.children[key], path, yield) {
			return false
		}
	}
	return true
}

// All collects Values, stopping at the first error.
func (l *Lookup) All(tree attr.Value) ([]attr.Value, error) {
	var out []attr.Value
	for v, err := range l.Values(tree) {
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
