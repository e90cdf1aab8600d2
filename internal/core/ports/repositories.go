package ports

import (
	"context"

	"github.com/samirrijal/platekit/internal/core/domain"
)

// CollectionReader loads a feature collection from a source.
// Sources are file paths or "pg:<name>" references.
type CollectionReader interface {
	Load(ctx context.Context, source string) (*domain.FeatureCollection, error)
}

// CollectionWriter persists a feature collection to a target, replacing
// whatever was there.
type CollectionWriter interface {
	Write(ctx context.Context, fc *domain.FeatureCollection, target string) error
}

// CollectionStore reads and writes collections.
type CollectionStore interface {
	CollectionReader
	CollectionWriter
}

// SourceStamper reports a version stamp for a source, used to key caches.
// An empty stamp means the source cannot be versioned and must not be cached.
type SourceStamper interface {
	Stamp(ctx context.Context, source string) (string, error)
}

// CollectionRemover deletes a stored collection. Removing a target that
// does not exist is not an error.
type CollectionRemover interface {
	Delete(ctx context.Context, target string) error
}
