// Package catalog maps listing sort keys onto the named search indices that
// serve them. The mapping ships embedded in the binary.
package catalog

import (
	"embed"
	"fmt"

	"gopkg.in/yaml.v3"

	models "coipond/internal/domain/models/blueprint"
)

//go:embed config/*.yaml
var configFiles embed.FS

// Catalog is the immutable index mapping. Safe for concurrent use.
type Catalog struct {
	pageSize   int
	ownerFacet string
	def        SortKey
	byKey      map[SortKey]Index
	byName     map[string]Index
	ordered    []Index
}

// Load reads the embedded catalog
func Load() (*Catalog, error) {
	data, err := configFiles.ReadFile("config/indices.yaml")
	if err != nil {
		return nil, fmt.Errorf("failed to read indices.yaml: %w", err)
	}
	return Parse(data)
}

// Parse builds a catalog from YAML. Every sort key may appear once, and the
// default key must resolve to an index.
func Parse(data []byte) (*Catalog, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to unmarshal catalog: %w", err)
	}

	c := &Catalog{
		pageSize:   f.PageSize,
		ownerFacet: f.OwnerFacet,
		def:        SortKey{Field: f.Default.SortField, Direction: f.Default.Direction},
		byKey:      make(map[SortKey]Index, len(f.Indices)),
		byName:     make(map[string]Index, len(f.Indices)),
	}
	if c.pageSize <= 0 {
		c.pageSize = models.DefaultPageSize
	}
	if c.ownerFacet == "" {
		c.ownerFacet = models.OwnerFacet
	}

	for _, idx := range f.Indices {
		if idx.Name == "" {
			return nil, fmt.Errorf("index with empty name")
		}
		key := SortKey{Field: idx.SortField, Direction: idx.Direction}
		if _, dup := c.byKey[key]; dup {
			return nil, fmt.Errorf("duplicate index for %s/%s", idx.SortField, idx.Direction)
		}
		if _, dup := c.byName[idx.Name]; dup {
			return nil, fmt.Errorf("duplicate index name %s", idx.Name)
		}
		c.byKey[key] = idx
		c.byName[idx.Name] = idx
		c.ordered = append(c.ordered, idx)
	}

	if _, ok := c.byKey[c.def]; !ok {
		return nil, fmt.Errorf("default sort %s/%s has no index", c.def.Field, c.def.Direction)
	}

	return c, nil
}

// Lookup returns the index pre-sorted by field in direction
func (c *Catalog) Lookup(field models.SortField, direction models.Direction) (Index, bool) {
	idx, ok := c.byKey[SortKey{Field: field, Direction: direction}]
	return idx, ok
}

// ByName returns an index by its name
func (c *Catalog) ByName(name string) (Index, bool) {
	idx, ok := c.byName[name]
	return idx, ok
}

// Default returns the sort key used when a request names none
func (c *Catalog) Default() SortKey {
	return c.def
}

// PageSize is the number of hits per page for every index
func (c *Catalog) PageSize() int {
	return c.pageSize
}

// OwnerFacet is the attribute used for exact-match owner filters
func (c *Catalog) OwnerFacet() string {
	return c.ownerFacet
}

// Indices returns all indices in file order
func (c *Catalog) Indices() []Index {
	out := make([]Index, len(c.ordered))
	copy(out, c.ordered)
	return out
}
