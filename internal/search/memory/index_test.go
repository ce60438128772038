package memory

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coipond/internal/catalog"
	models "coipond/internal/domain/models/blueprint"
)

type fakeSource struct {
	blueprints []*models.Blueprint
	err        error
}

func (f *fakeSource) List(ctx context.Context) ([]*models.Blueprint, error) {
	return f.blueprints, f.err
}

func seed(n int) []*models.Blueprint {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]*models.Blueprint, 0, n)
	for i := 0; i < n; i++ {
		owner := "alice"
		if i%2 == 1 {
			owner = "bob"
		}
		out = append(out, &models.Blueprint{
			ID:        fmt.Sprintf("bp-%02d", i),
			OwnerName: owner,
			Name:      fmt.Sprintf("Layout %d", i),
			Views:     int64(i * 10),
			Downloads: int64(n - i),
			CreatedAt: base,
			UpdatedAt: base.Add(time.Duration(i) * time.Hour),
		})
	}
	return out
}

func TestIndex_Search(t *testing.T) {
	cat, err := catalog.Load()
	require.NoError(t, err)
	idx := NewIndex(&fakeSource{blueprints: seed(45)}, cat)
	ctx := context.Background()

	tests := []struct {
		name      string
		index     string
		query     models.IndexQuery
		wantFirst string
		wantHits  int
		wantTotal int
		wantPages int
	}{
		{
			name:      "newest first",
			index:     "blueprints_updated_desc",
			wantFirst: "bp-44",
			wantHits:  20,
			wantTotal: 45,
			wantPages: 3,
		},
		{
			name:      "most downloads ascending",
			index:     "blueprints_downloads_asc",
			wantFirst: "bp-44",
			wantHits:  20,
			wantTotal: 45,
			wantPages: 3,
		},
		{
			name:      "last page",
			index:     "blueprints_views_asc",
			query:     models.IndexQuery{Page: 2},
			wantFirst: "bp-40",
			wantHits:  5,
			wantTotal: 45,
			wantPages: 3,
		},
		{
			name:      "owner facet",
			index:     "blueprints_views_desc",
			query:     models.IndexQuery{FacetFilter: "username:bob"},
			wantFirst: "bp-43",
			wantHits:  20,
			wantTotal: 22,
			wantPages: 2,
		},
		{
			name:      "text query",
			index:     "blueprints_updated_desc",
			query:     models.IndexQuery{Query: "layout 4"},
			wantFirst: "bp-44",
			wantHits:  6,
			wantTotal: 6,
			wantPages: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := idx.Search(ctx, tt.index, tt.query)
			require.NoError(t, err)
			require.Len(t, res.Hits, tt.wantHits)
			assert.Equal(t, tt.wantFirst, res.Hits[0].ObjectID)
			assert.Equal(t, tt.wantTotal, res.TotalCount)
			assert.Equal(t, tt.wantPages, res.TotalPages)
		})
	}
}

func TestIndex_SearchPastEnd(t *testing.T) {
	cat, err := catalog.Load()
	require.NoError(t, err)
	idx := NewIndex(&fakeSource{blueprints: seed(40)}, cat)

	tests := []struct {
		name string
		page int
	}{
		{"one past last", 2},
		{"far past last", 1000},
		{"offset overflows int", 461168601842738791},
		{"negative", -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := idx.Search(context.Background(), "blueprints_updated_desc", models.IndexQuery{Page: tt.page, HitsPerPage: 20})
			require.NoError(t, err)
			assert.Empty(t, res.Hits)
			assert.Equal(t, 40, res.TotalCount)
			assert.Equal(t, 2, res.TotalPages)
		})
	}
}

func TestIndex_SearchErrors(t *testing.T) {
	cat, err := catalog.Load()
	require.NoError(t, err)
	ctx := context.Background()

	idx := NewIndex(&fakeSource{}, cat)
	_, err = idx.Search(ctx, "blueprints_rating_desc", models.IndexQuery{})
	assert.Error(t, err)

	_, err = idx.Search(ctx, "blueprints_updated_desc", models.IndexQuery{FacetFilter: "uid:1"})
	assert.Error(t, err)

	boom := errors.New("boom")
	idx = NewIndex(&fakeSource{err: boom}, cat)
	_, err = idx.Search(ctx, "blueprints_updated_desc", models.IndexQuery{})
	assert.ErrorIs(t, err, boom)
}
