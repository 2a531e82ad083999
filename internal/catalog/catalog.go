// Package catalog defines the ordered landmark name lists that annotations are made against.
package catalog

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// ErrInvalid is returned for a catalog that is empty or has blank or repeated names.
var ErrInvalid = errors.New("invalid catalog")

// Catalog is an immutable ordered list of landmark names. Order defines export order and
// display numbering.
type Catalog struct {
	name  string
	names []string
	index map[string]int
}

// New builds a catalog and validates it.
func New(name string, names []string) (*Catalog, error) {
	c := &Catalog{
		name:  name,
		names: append([]string(nil), names...),
		index: make(map[string]int, len(names)),
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// MustNew is New for built-in tables.
func MustNew(name string, names []string) *Catalog {
	c, err := New(name, names)
	if err != nil {
		panic(err)
	}
	return c
}

// Validate checks for a non-empty list of unique, non-blank names and builds the index.
func (c *Catalog) Validate() error {
	if len(c.names) == 0 {
		return fmt.Errorf("%w: %q has no points", ErrInvalid, c.name)
	}
	index := make(map[string]int, len(c.names))
	for i, n := range c.names {
		if strings.TrimSpace(n) == "" {
			return fmt.Errorf("%w: %q entry %d is blank", ErrInvalid, c.name, i)
		}
		if j, dup := index[n]; dup {
			return fmt.Errorf("%w: %q repeats %q at %d and %d", ErrInvalid, c.name, n, j, i)
		}
		index[n] = i
	}
	c.index = index
	return nil
}

func (c *Catalog) Name() string { return c.name }
func (c *Catalog) Len() int     { return len(c.names) }

// Names returns a copy of the ordered names.
func (c *Catalog) Names() []string {
	return append([]string(nil), c.names...)
}

// At returns the name at index i, or "" when out of range.
func (c *Catalog) At(i int) string {
	if i < 0 || i >= len(c.names) {
		return ""
	}
	return c.names[i]
}

// Index returns the position of name, or -1.
func (c *Catalog) Index(name string) int {
	if i, ok := c.index[name]; ok {
		return i
	}
	return -1
}

// Contains reports whether name is in the catalog.
func (c *Catalog) Contains(name string) bool {
	_, ok := c.index[name]
	return ok
}

// Registry of known catalogs
var (
	registryMu sync.RWMutex
	registry   = make(map[string]*Catalog)
)

// Register adds a catalog to the registry, replacing any with the same name.
func Register(c *Catalog) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[c.Name()] = c
}

// Get returns a catalog by name, or nil.
func Get(name string) *Catalog {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return registry[name]
}

// List returns all registered catalog names, sorted.
func List() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func init() {
	Register(Facial())
}
