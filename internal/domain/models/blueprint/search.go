package blueprint

import (
	"fmt"
	"math"
)

// SortField selects which pre-sorted index serves a listing
type SortField string

const (
	SortUpdated   SortField = "updated"
	SortDownloads SortField = "downloads"
	SortViews     SortField = "views"
)

// Direction is the sort order of an index
type Direction string

const (
	DirectionAsc  Direction = "asc"
	DirectionDesc Direction = "desc"
)

// Default search configuration values
const (
	DefaultSortField = SortUpdated
	DefaultDirection = DirectionDesc
	DefaultPageSize  = 20

	// MaxPage keeps page offsets well inside int32 for every backend
	MaxPage = math.MaxInt32 / DefaultPageSize

	// OwnerFacet is the index attribute used for exact-match owner filtering
	OwnerFacet = "username"
)

// SearchRequest is a listing/search request against the ranked indices.
type SearchRequest struct {
	SortField   SortField `json:"sort"`
	Direction   Direction `json:"direction"`
	OwnerFilter string    `json:"username,omitempty"` // Exact match on owner display name; empty = everyone
	Query       string    `json:"query"`
	Page        int       `json:"page"` // Zero-based
}

// ApplyDefaults fills in default values for unset fields
func (r *SearchRequest) ApplyDefaults() {
	if r.SortField == "" {
		r.SortField = DefaultSortField
	}
	if r.Direction == "" {
		r.Direction = DefaultDirection
	}
}

// Validate checks that the sort key is known and the page is in range
func (r *SearchRequest) Validate() error {
	switch r.SortField {
	case SortUpdated, SortDownloads, SortViews:
	default:
		return fmt.Errorf("invalid sort field: %q (supported: updated, downloads, views)", r.SortField)
	}
	switch r.Direction {
	case DirectionAsc, DirectionDesc:
	default:
		return fmt.Errorf("invalid sort direction: %q (supported: asc, desc)", r.Direction)
	}
	if r.Page < 0 {
		return fmt.Errorf("page cannot be negative")
	}
	if r.Page > MaxPage {
		return fmt.Errorf("page cannot exceed %d", MaxPage)
	}
	return nil
}

// IndexQuery is what gets sent to one named index of the search service
type IndexQuery struct {
	Query       string
	FacetFilter string // "attribute:value", empty for none
	Page        int
	HitsPerPage int
}

// IndexedBlueprint is a search hit. Content is not indexed.
type IndexedBlueprint struct {
	ObjectID      string  `json:"objectID"`
	OwnerID       string  `json:"uid"`
	OwnerName     string  `json:"username"`
	Kind          Kind    `json:"kind,omitempty"`
	Name          string  `json:"name"`
	Description   string  `json:"description"`
	GameVersion   string  `json:"gameVersion"`
	Views         int64   `json:"views"`
	Downloads     int64   `json:"downloads"`
	Created       int64   `json:"created"` // Unix millis
	Updated       int64   `json:"updated"` // Unix millis
	ScreenshotURL *string `json:"screenshotUrl,omitempty"`
}

// NewIndexedBlueprint converts a record into its index representation
func NewIndexedBlueprint(b *Blueprint) IndexedBlueprint {
	return IndexedBlueprint{
		ObjectID:      b.ID,
		OwnerID:       b.OwnerID,
		OwnerName:     b.OwnerName,
		Kind:          b.Kind,
		Name:          b.Name,
		Description:   b.Description,
		GameVersion:   b.GameVersion,
		Views:         b.Views,
		Downloads:     b.Downloads,
		Created:       b.CreatedAt.UnixMilli(),
		Updated:       b.UpdatedAt.UnixMilli(),
		ScreenshotURL: b.ScreenshotURL,
	}
}

// IndexResult is the raw response of one index query
type IndexResult struct {
	Hits       []IndexedBlueprint
	TotalCount int
	TotalPages int
}

// SearchResults is a page of listing results.
//
// TotalCount and TotalPages come straight from the index and are not adjusted
// for hits hidden by the session's recently-deleted set.
type SearchResults struct {
	Hits       []IndexedBlueprint `json:"hits"`
	TotalCount int                `json:"totalCount"`
	TotalPages int                `json:"totalPages"`
	Page       int                `json:"page"`
	Index      string             `json:"index"`
}

// HasMore reports whether a later page exists
func (r *SearchResults) HasMore() bool {
	return r.Page+1 < r.TotalPages
}
