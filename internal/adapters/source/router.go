// Package source dispatches collection sources to the store that owns them.
package source

import (
	"context"
	"fmt"

	"github.com/samirrijal/platekit/internal/adapters/geojson"
	"github.com/samirrijal/platekit/internal/adapters/postgres"
	"github.com/samirrijal/platekit/internal/core/domain"
)

// Backend is a store that can also version and delete its sources.
type Backend interface {
	Load(ctx context.Context, source string) (*domain.FeatureCollection, error)
	Write(ctx context.Context, fc *domain.FeatureCollection, target string) error
	Stamp(ctx context.Context, source string) (string, error)
	Delete(ctx context.Context, target string) error
}

// Router implements ports.CollectionStore, ports.CollectionRemover and
// ports.SourceStamper by
// sending "pg:" sources to the database and everything else to files.
type Router struct {
	files    Backend
	database Backend
}

// NewRouter builds a router. database may be nil when no DSN is configured.
func NewRouter(files, database Backend) *Router {
	return &Router{files: files, database: database}
}

// NewFileRouter routes everything to GeoJSON files.
func NewFileRouter() *Router {
	return NewRouter(geojson.NewStore(), nil)
}

func (r *Router) backend(source string) (Backend, error) {
	if postgres.IsSource(source) {
		if r.database == nil {
			return nil, &domain.SourceError{Source: source, Err: fmt.Errorf("%w: database not configured", domain.ErrRead)}
		}
		return r.database, nil
	}
	if r.files == nil {
		return nil, &domain.SourceError{Source: source, Err: domain.ErrFormat}
	}
	return r.files, nil
}

func (r *Router) Load(ctx context.Context, source string) (*domain.FeatureCollection, error) {
	b, err := r.backend(source)
	if err != nil {
		return nil, err
	}
	return b.Load(ctx, source)
}

func (r *Router) Write(ctx context.Context, fc *domain.FeatureCollection, target string) error {
	b, err := r.backend(target)
	if err != nil {
		return err
	}
	return b.Write(ctx, fc, target)
}

func (r *Router) Stamp(ctx context.Context, source string) (string, error) {
	b, err := r.backend(source)
	if err != nil {
		return "", err
	}
	return b.Stamp(ctx, source)
}

func (r *Router) Delete(ctx context.Context, target string) error {
	b, err := r.backend(target)
	if err != nil {
		return err
	}
	return b.Delete(ctx, target)
}
