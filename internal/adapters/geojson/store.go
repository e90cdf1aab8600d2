// Package geojson stores feature collections as GeoJSON files.
package geojson

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/samirrijal/platekit/internal/core/domain"
)

// Property keys with a fixed meaning in platekit GeoJSON files.
const (
	KeyFeatureType = "featureType"
	KeyFeatureID   = "featureId"
	KeyName        = "name"
	KeyValidTime   = "validTime"
)

// Extensions lists the file extensions the store accepts.
var Extensions = []string{".geojson", ".json"}

// Store implements ports.CollectionStore over the local filesystem.
type Store struct{}

// NewStore returns a file store.
func NewStore() *Store {
	return &Store{}
}

// Supports reports whether path has a GeoJSON extension.
func Supports(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range Extensions {
		if ext == e {
			return true
		}
	}
	return false
}

// Load reads and decodes a collection.
func (s *Store) Load(ctx context.Context, path string) (*domain.FeatureCollection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !Supports(path) {
		return nil, &domain.SourceError{Source: path, Err: domain.ErrFormat}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &domain.SourceError{Source: path, Err: fmt.Errorf("%w: %v", domain.ErrRead, err)}
	}
	fc, err := Decode(data)
	if err != nil {
		return nil, &domain.SourceError{Source: path, Err: err}
	}
	if fc.Name == "" {
		fc.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return fc, nil
}

// Write encodes fc to path, creating parent directories and replacing any
// existing file.
func (s *Store) Write(ctx context.Context, fc *domain.FeatureCollection, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !Supports(path) {
		return &domain.SourceError{Source: path, Err: domain.ErrFormat}
	}
	data, err := Encode(fc)
	if err != nil {
		return &domain.SourceError{Source: path, Err: err}
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}
	// write to a sibling temp file so readers never see a partial collection
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// Delete removes the file at path. A missing file is not an error.
func (s *Store) Delete(_ context.Context, path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete %s: %w", path, err)
	}
	return nil
}

// Stamp versions a file by modification time and size.
func (s *Store) Stamp(_ context.Context, path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", &domain.SourceError{Source: path, Err: fmt.Errorf("%w: %v", domain.ErrRead, err)}
		}
		return "", err
	}
	return strconv.FormatInt(info.ModTime().UnixNano(), 36) + "-" + strconv.FormatInt(info.Size(), 36), nil
}

// Decode parses a GeoJSON FeatureCollection.
func Decode(data []byte) (*domain.FeatureCollection, error) {
	gfc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrFormat, err)
	}
	fc := &domain.FeatureCollection{Features: make([]domain.Feature, 0, len(gfc.Features))}
	if name, ok := gfc.ExtraMembers[KeyName].(string); ok {
		fc.Name = name
	}
	for i, gf := range gfc.Features {
		f, err := decodeFeature(gf)
		if err != nil {
			return nil, fmt.Errorf("%w: feature %d: %v", domain.ErrFormat, i, err)
		}
		fc.Features = append(fc.Features, f)
	}
	return fc, nil
}

func decodeFeature(gf *geojson.Feature) (domain.Feature, error) {
	f := domain.Feature{ValidTime: domain.AlwaysValid()}

	keys := make([]string, 0, len(gf.Properties))
	for k := range gf.Properties {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		v := gf.Properties[k]
		switch k {
		case KeyFeatureType:
			s, ok := v.(string)
			if !ok {
				return f, fmt.Errorf("%s must be a string", k)
			}
			f.Type = domain.ParseFeatureType(s)
		case KeyFeatureID:
			f.ID = fmt.Sprint(v)
		case KeyName:
			f.Name = fmt.Sprint(v)
		case KeyValidTime:
			vt, err := domain.ParseValidTime(v)
			if err != nil {
				return f, err
			}
			f.ValidTime = vt
		default:
			f.Properties = append(f.Properties, domain.Property{Name: k, Value: v})
		}
	}
	if f.ID == "" && gf.ID != nil {
		f.ID = idString(gf.ID)
	}

	if gf.Geometry != nil {
		geoms, err := decodeGeometry(gf.Geometry)
		if err != nil {
			return f, err
		}
		f.Geometries = geoms
	}
	return f, nil
}

func idString(id any) string {
	switch t := id.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	}
	return fmt.Sprint(id)
}

func decodeGeometry(g orb.Geometry) ([]domain.Geometry, error) {
	switch t := g.(type) {
	case orb.Point:
		return []domain.Geometry{{Kind: domain.GeometryPoint, Points: []domain.GeoPoint{point(t)}}}, nil
	case orb.MultiPoint:
		return []domain.Geometry{{Kind: domain.GeometryMultiPoint, Points: points(t)}}, nil
	case orb.LineString:
		return []domain.Geometry{{Kind: domain.GeometryPolyline, Points: points(t)}}, nil
	case orb.MultiLineString:
		out := make([]domain.Geometry, 0, len(t))
		for _, ls := range t {
			out = append(out, domain.Geometry{Kind: domain.GeometryPolyline, Points: points(ls)})
		}
		return out, nil
	case orb.Polygon:
		return []domain.Geometry{polygon(t)}, nil
	case orb.MultiPolygon:
		out := make([]domain.Geometry, 0, len(t))
		for _, p := range t {
			out = append(out, polygon(p))
		}
		return out, nil
	case orb.Collection:
		var out []domain.Geometry
		for _, member := range t {
			geoms, err := decodeGeometry(member)
			if err != nil {
				return nil, err
			}
			out = append(out, geoms...)
		}
		return out, nil
	}
	return nil, fmt.Errorf("unsupported geometry %s", g.GeoJSONType())
}

func point(p orb.Point) domain.GeoPoint {
	return domain.GeoPoint{Lat: p.Lat(), Lon: p.Lon()}
}

func points[T ~[]orb.Point](ps T) []domain.GeoPoint {
	out := make([]domain.GeoPoint, len(ps))
	for i, p := range ps {
		out[i] = point(p)
	}
	return out
}

// polygon keeps the outer ring only, without the closing vertex.
func polygon(p orb.Polygon) domain.Geometry {
	g := domain.Geometry{Kind: domain.GeometryPolygon}
	if len(p) == 0 {
		return g
	}
	ring := p[0]
	if len(ring) > 1 && ring.Closed() {
		ring = ring[:len(ring)-1]
	}
	g.Points = points(ring)
	return g
}

// Encode renders fc as a GeoJSON FeatureCollection.
func Encode(fc *domain.FeatureCollection) ([]byte, error) {
	gfc := geojson.NewFeatureCollection()
	if fc != nil {
		if fc.Name != "" {
			gfc.ExtraMembers = geojson.Properties{KeyName: fc.Name}
		}
		for i := range fc.Features {
			gf, err := encodeFeature(&fc.Features[i])
			if err != nil {
				return nil, err
			}
			gfc.Append(gf)
		}
	}
	return gfc.MarshalJSON()
}

func encodeFeature(f *domain.Feature) (*geojson.Feature, error) {
	var geom orb.Geometry
	if len(f.Geometries) == 1 {
		g, err := encodeGeometry(f.Geometries[0])
		if err != nil {
			return nil, err
		}
		geom = g
	} else if len(f.Geometries) > 1 {
		coll := make(orb.Collection, 0, len(f.Geometries))
		for _, fg := range f.Geometries {
			g, err := encodeGeometry(fg)
			if err != nil {
				return nil, err
			}
			coll = append(coll, g)
		}
		geom = coll
	}

	gf := geojson.NewFeature(geom)
	if f.ID != "" {
		gf.ID = f.ID
	}
	for _, p := range f.Properties {
		gf.Properties[p.Name] = p.Value
	}
	if f.Type != "" {
		gf.Properties[KeyFeatureType] = string(f.Type)
	}
	if f.ID != "" {
		gf.Properties[KeyFeatureID] = f.ID
	}
	if f.Name != "" {
		gf.Properties[KeyName] = f.Name
	}
	gf.Properties[KeyValidTime] = []any{domain.AgeValue(f.ValidTime.Begin), domain.AgeValue(f.ValidTime.End)}
	return gf, nil
}

func encodeGeometry(g domain.Geometry) (orb.Geometry, error) {
	pts := make([]orb.Point, len(g.Points))
	for i, p := range g.Points {
		pts[i] = orb.Point{p.Lon, p.Lat}
	}
	switch g.Kind {
	case domain.GeometryPoint:
		if len(pts) != 1 {
			return nil, fmt.Errorf("point geometry with %d vertices", len(pts))
		}
		return pts[0], nil
	case domain.GeometryMultiPoint:
		return orb.MultiPoint(pts), nil
	case domain.GeometryPolyline:
		return orb.LineString(pts), nil
	case domain.GeometryPolygon:
		ring := orb.Ring(pts)
		if len(ring) > 0 && !ring.Closed() {
			ring = append(ring, ring[0])
		}
		return orb.Polygon{ring}, nil
	}
	return nil, fmt.Errorf("%w: geometry kind %s", domain.ErrFormat, g.Kind)
}
