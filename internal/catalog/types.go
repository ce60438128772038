package catalog

import (
	models "coipond/internal/domain/models/blueprint"
)

// Index describes one pre-sorted copy of the blueprint data
type Index struct {
	Name      string           `yaml:"name" json:"name"`
	SortField models.SortField `yaml:"sort" json:"sort"`
	Direction models.Direction `yaml:"direction" json:"direction"`
}

// SortKey identifies an index by what it is sorted on
type SortKey struct {
	Field     models.SortField
	Direction models.Direction
}

// file is the on-disk shape of indices.yaml
type file struct {
	PageSize   int     `yaml:"page_size"`
	OwnerFacet string  `yaml:"owner_facet"`
	Indices    []Index `yaml:"indices"`
	Default    struct {
		SortField models.SortField `yaml:"sort"`
		Direction models.Direction `yaml:"direction"`
	} `yaml:"default"`
}
