package blueprint

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coipond/internal/catalog"
	"coipond/internal/domain"
	models "coipond/internal/domain/models/blueprint"
	"coipond/internal/session"
)

// recordingIndex remembers the last query it served
type recordingIndex struct {
	indexName string
	query     models.IndexQuery
	result    *models.IndexResult
	err       error
}

func (r *recordingIndex) Search(ctx context.Context, indexName string, q models.IndexQuery) (*models.IndexResult, error) {
	r.indexName = indexName
	r.query = q
	if r.err != nil {
		return nil, r.err
	}
	if r.result != nil {
		return r.result, nil
	}
	return &models.IndexResult{Hits: []models.IndexedBlueprint{}}, nil
}

func TestIndexSelector_SelectsIndex(t *testing.T) {
	cat, err := catalog.Load()
	require.NoError(t, err)

	tests := []struct {
		name      string
		req       *models.SearchRequest
		wantIndex string
		wantQuery models.IndexQuery
	}{
		{
			name:      "nil request uses defaults",
			req:       nil,
			wantIndex: "blueprints_updated_desc",
			wantQuery: models.IndexQuery{HitsPerPage: 20},
		},
		{
			name:      "downloads descending",
			req:       &models.SearchRequest{SortField: models.SortDownloads, Direction: models.DirectionDesc, Page: 3},
			wantIndex: "blueprints_downloads_desc",
			wantQuery: models.IndexQuery{Page: 3, HitsPerPage: 20},
		},
		{
			name:      "views ascending with owner",
			req:       &models.SearchRequest{SortField: models.SortViews, Direction: models.DirectionAsc, OwnerFilter: "alice"},
			wantIndex: "blueprints_views_asc",
			wantQuery: models.IndexQuery{FacetFilter: "username:alice", HitsPerPage: 20},
		},
		{
			name:      "field only keeps default direction",
			req:       &models.SearchRequest{SortField: models.SortDownloads, Query: "  belts "},
			wantIndex: "blueprints_downloads_desc",
			wantQuery: models.IndexQuery{Query: "belts", HitsPerPage: 20},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			index := &recordingIndex{}
			s := NewIndexSelector(cat, index, testLogger())

			res, err := s.Search(context.Background(), nil, tt.req)
			require.NoError(t, err)
			assert.Equal(t, tt.wantIndex, index.indexName)
			assert.Equal(t, tt.wantIndex, res.Index)
			assert.Equal(t, tt.wantQuery, index.query)
		})
	}
}

func TestIndexSelector_DownloadsDescIsStable(t *testing.T) {
	cat, err := catalog.Load()
	require.NoError(t, err)
	index := &recordingIndex{}
	s := NewIndexSelector(cat, index, testLogger())

	for _, query := range []string{"", "a", "smelter", "ÿ"} {
		for page := 0; page < 3; page++ {
			_, err := s.Search(context.Background(), nil, &models.SearchRequest{
				SortField: models.SortDownloads, Direction: models.DirectionDesc, Query: query, Page: page,
			})
			require.NoError(t, err)
			assert.Equal(t, "blueprints_downloads_desc", index.indexName)
		}
	}
}

func TestIndexSelector_Errors(t *testing.T) {
	cat, err := catalog.Load()
	require.NoError(t, err)

	tests := []struct {
		name     string
		req      *models.SearchRequest
		indexErr error
		wantErr  error
	}{
		{name: "unknown field", req: &models.SearchRequest{SortField: "rating"}, wantErr: domain.ErrValidation},
		{name: "unknown direction", req: &models.SearchRequest{Direction: "sideways"}, wantErr: domain.ErrValidation},
		{name: "negative page", req: &models.SearchRequest{Page: -1}, wantErr: domain.ErrValidation},
		{name: "index down", req: &models.SearchRequest{}, indexErr: errors.New("timeout"), wantErr: domain.ErrExternalService},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewIndexSelector(cat, &recordingIndex{err: tt.indexErr}, testLogger())
			_, err := s.Search(context.Background(), session.New("s"), tt.req)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestIndexSelector_TombstoneFilter(t *testing.T) {
	cat, err := catalog.Load()
	require.NoError(t, err)

	index := &recordingIndex{result: &models.IndexResult{
		Hits: []models.IndexedBlueprint{
			{ObjectID: "a"}, {ObjectID: "b"}, {ObjectID: "c"},
		},
		TotalCount: 43,
		TotalPages: 3,
	}}
	s := NewIndexSelector(cat, index, testLogger())

	sess := session.New("s")
	sess.AddTombstone("b")

	res, err := s.Search(context.Background(), sess, &models.SearchRequest{Page: 1})
	require.NoError(t, err)
	require.Len(t, res.Hits, 2)
	assert.Equal(t, "a", res.Hits[0].ObjectID)
	assert.Equal(t, "c", res.Hits[1].ObjectID)
	assert.Equal(t, 43, res.TotalCount)
	assert.Equal(t, 3, res.TotalPages)
	assert.True(t, res.HasMore())
}
