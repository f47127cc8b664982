// Package catalog builds the per-region reference catalog of named,
// geolocated urban objects that candidate phrases are resolved against.
package catalog

import (
	"github.com/twpayne/go-geom"
)

// Entry is one named object in the catalog.
type Entry struct {
	Name     string
	Geometry *geom.Point // nil when the source geometry has no usable point
	Tag      string      // tag group key, e.g. "amenity"
	Kind     string      // tag value, e.g. "school"
}

// Catalog is an ordered, read-only list of entries. It is safe for
// concurrent readers.
type Catalog struct {
	entries []Entry
	byName  map[string]int
}

// New creates a catalog over a copy of entries, preserving their order.
func New(entries []Entry) *Catalog {
	c := &Catalog{
		entries: append([]Entry(nil), entries...),
		byName:  make(map[string]int, len(entries)),
	}
	for i, e := range c.entries {
		if _, seen := c.byName[e.Name]; !seen {
			c.byName[e.Name] = i
		}
	}
	return c
}

// Len returns the number of entries.
func (c *Catalog) Len() int {
	return len(c.entries)
}

// Entries returns a copy of the entries in catalog order.
func (c *Catalog) Entries() []Entry {
	return append([]Entry(nil), c.entries...)
}

// Names returns entry names in catalog order, duplicates included.
func (c *Catalog) Names() []string {
	out := make([]string, len(c.entries))
	for i, e := range c.entries {
		out[i] = e.Name
	}
	return out
}

// Lookup returns the first entry whose name equals name exactly. The empty
// name never matches.
func (c *Catalog) Lookup(name string) (Entry, bool) {
	if name == "" {
		return Entry{}, false
	}
	i, ok := c.byName[name]
	if !ok {
		return Entry{}, false
	}
	return c.entries[i], true
}
