package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/samirrijal/platekit/internal/core/domain"
)

// Scheme prefixes collection names stored in postgres.
const Scheme = domain.DatabaseScheme

// IsSource reports whether source refers to a stored collection.
func IsSource(source string) bool {
	return strings.HasPrefix(source, Scheme)
}

// CollectionName strips the scheme from a source.
func CollectionName(source string) string {
	return strings.TrimPrefix(source, Scheme)
}

// CollectionRepo implements ports.CollectionStore on top of the
// collections and features tables.
type CollectionRepo struct {
	db *DB
}

func NewCollectionRepo(db *DB) *CollectionRepo {
	return &CollectionRepo{db: db}
}

// Load returns the features of a stored collection in insertion order.
func (r *CollectionRepo) Load(ctx context.Context, source string) (*domain.FeatureCollection, error) {
	name := CollectionName(source)
	var exists bool
	if err := r.db.Pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM collections WHERE name = $1)`, name,
	).Scan(&exists); err != nil {
		return nil, fmt.Errorf("lookup collection: %w", err)
	}
	if !exists {
		return nil, &domain.SourceError{Source: source, Err: fmt.Errorf("%w: no such collection", domain.ErrRead)}
	}

	rows, err := r.db.Pool.Query(ctx, `
		SELECT feature_id, name, feature_type, valid_begin, valid_end, properties, geometries
		FROM features WHERE collection = $1
		ORDER BY position
	`, name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	fc := &domain.FeatureCollection{Name: name, Features: []domain.Feature{}}
	for rows.Next() {
		var (
			f           domain.Feature
			ftype       string
			props, geom []byte
		)
		if err := rows.Scan(&f.ID, &f.Name, &ftype, &f.ValidTime.Begin, &f.ValidTime.End, &props, &geom); err != nil {
			return nil, err
		}
		f.Type = domain.FeatureType(ftype)
		if err := json.Unmarshal(props, &f.Properties); err != nil {
			return nil, &domain.SourceError{Source: source, Err: fmt.Errorf("%w: properties: %v", domain.ErrFormat, err)}
		}
		if err := json.Unmarshal(geom, &f.Geometries); err != nil {
			return nil, &domain.SourceError{Source: source, Err: fmt.Errorf("%w: geometries: %v", domain.ErrFormat, err)}
		}
		fc.Features = append(fc.Features, f)
	}
	return fc, rows.Err()
}

// Write replaces the stored collection in a single transaction.
func (r *CollectionRepo) Write(ctx context.Context, fc *domain.FeatureCollection, target string) error {
	name := CollectionName(target)
	if name == "" {
		return &domain.SourceError{Source: target, Err: fmt.Errorf("%w: empty collection name", domain.ErrFormat)}
	}

	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	batch := &pgx.Batch{}
	batch.Queue(`
		INSERT INTO collections (name, updated_at) VALUES ($1, now())
		ON CONFLICT (name) DO UPDATE SET updated_at = now()
	`, name)
	batch.Queue(`DELETE FROM features WHERE collection = $1`, name)
	for i, f := range fc.Features {
		props, err := json.Marshal(f.Properties)
		if err != nil {
			return fmt.Errorf("feature %s properties: %w", f.ID, err)
		}
		geom, err := json.Marshal(f.Geometries)
		if err != nil {
			return fmt.Errorf("feature %s geometries: %w", f.ID, err)
		}
		batch.Queue(`
			INSERT INTO features (collection, position, feature_id, name, feature_type, valid_begin, valid_end, properties, geometries)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`, name, i, f.ID, f.Name, string(f.Type), f.ValidTime.Begin, f.ValidTime.End, props, geom)
	}

	br := tx.SendBatch(ctx, batch)
	for i := 0; i < batch.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return fmt.Errorf("batch item %d: %w", i, err)
		}
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("batch close: %w", err)
	}
	return tx.Commit(ctx)
}

// Stamp returns the last update time of a stored collection.
func (r *CollectionRepo) Stamp(ctx context.Context, source string) (string, error) {
	var stamp string
	err := r.db.Pool.QueryRow(ctx,
		`SELECT to_char(updated_at, 'YYYYMMDDHH24MISSUS') FROM collections WHERE name = $1`,
		CollectionName(source),
	).Scan(&stamp)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", &domain.SourceError{Source: source, Err: fmt.Errorf("%w: no such collection", domain.ErrRead)}
	}
	return stamp, err
}

// List returns every stored collection with its feature count.
func (r *CollectionRepo) List(ctx context.Context) ([]domain.CollectionInfo, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT c.name, COUNT(f.position), c.updated_at
		FROM collections c
		LEFT JOIN features f ON f.collection = c.name
		GROUP BY c.name, c.updated_at
		ORDER BY c.name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.CollectionInfo
	for rows.Next() {
		var c domain.CollectionInfo
		if err := rows.Scan(&c.Name, &c.Features, &c.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Delete removes a stored collection and its features.
func (r *CollectionRepo) Delete(ctx context.Context, source string) error {
	_, err := r.db.Pool.Exec(ctx, `DELETE FROM collections WHERE name = $1`, CollectionName(source))
	return err
}
