package blueprint

import (
	"context"
	"errors"

	models "coipond/internal/domain/models/blueprint"
)

// ErrParse is wrapped by parsers when a blueprint string is malformed
var ErrParse = errors.New("could not parse blueprint string")

// Parser turns a blueprint string into a tree. Implementations are pure:
// the same input always yields the same tree or the same error.
type Parser interface {
	Parse(ctx context.Context, text string) (models.Tree, error)
}

// BlobStore holds screenshot images.
type BlobStore interface {
	// Put stores data under key and returns its public URL
	Put(ctx context.Context, key, contentType string, data []byte) (string, error)

	// Delete removes the object behind a URL returned by Put.
	// Returns an error wrapping domain.ErrNotFound if it is already gone.
	Delete(ctx context.Context, url string) error
}

// SearchIndex is the external search service. Each index name refers to a
// separately maintained copy of the data sorted by one (field, direction) pair.
// Index contents may lag behind the document store.
type SearchIndex interface {
	Search(ctx context.Context, indexName string, q models.IndexQuery) (*models.IndexResult, error)
}
