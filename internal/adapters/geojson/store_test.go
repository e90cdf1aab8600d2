package geojson

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samirrijal/platekit/internal/core/domain"
)

const sampleCollection = `{
  "type": "FeatureCollection",
  "name": "sample",
  "features": [
    {
      "type": "Feature",
      "geometry": {"type": "LineString", "coordinates": [[110, -10], [115, -12]]},
      "properties": {
        "featureType": "gpml:Isochron",
        "featureId": "GPlates-aaa",
        "name": "Pacific isochron",
        "validTime": [60, "DF"],
        "reconstructionPlateId": 901,
        "conjugatePlateId": 801,
        "age": 60.5
      }
    },
    {
      "type": "Feature",
      "id": 7,
      "geometry": {"type": "GeometryCollection", "geometries": [
        {"type": "Point", "coordinates": [200, -50]},
        {"type": "Polygon", "coordinates": [[[0, 0], [10, 0], [10, 10], [0, 0]]]}
      ]},
      "properties": {"featureType": "MidOceanRidge", "validTime": ["DP", "10"]}
    }
  ]
}`

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeFile(t, "sample.geojson", sampleCollection)

	fc, err := NewStore().Load(context.Background(), path)
	require.NoError(t, err)
	require.Equal(t, 2, fc.Len())
	assert.Equal(t, "sample", fc.Name)

	iso := fc.Features[0]
	assert.Equal(t, "GPlates-aaa", iso.ID)
	assert.Equal(t, "Pacific isochron", iso.Name)
	assert.Equal(t, domain.FeatureIsochron, iso.Type)
	assert.Equal(t, 60.0, iso.ValidTime.Begin)
	assert.True(t, math.IsInf(iso.ValidTime.End, -1))
	rid, ok := iso.ReconstructionPlateID()
	require.True(t, ok)
	assert.Equal(t, 901, rid)
	cid, ok := iso.ConjugatePlateID()
	require.True(t, ok)
	assert.Equal(t, 801, cid)
	age, ok := iso.Property("age")
	require.True(t, ok)
	assert.Equal(t, 60.5, age)
	require.Len(t, iso.Geometries, 1)
	assert.Equal(t, domain.GeometryPolyline, iso.Geometries[0].Kind)
	assert.Equal(t, []domain.GeoPoint{{Lat: -10, Lon: 110}, {Lat: -12, Lon: 115}}, iso.Geometries[0].Points)

	mor := fc.Features[1]
	assert.Equal(t, "7", mor.ID)
	assert.Equal(t, domain.FeatureMidOceanRidge, mor.Type)
	assert.True(t, math.IsInf(mor.ValidTime.Begin, 1))
	assert.Equal(t, 10.0, mor.ValidTime.End)
	require.Len(t, mor.Geometries, 2)
	assert.Equal(t, domain.GeometryPoint, mor.Geometries[0].Kind)
	assert.Equal(t, domain.GeometryPolygon, mor.Geometries[1].Kind)
	assert.Len(t, mor.Geometries[1].Points, 3, "closing vertex dropped")
}

func TestLoadNameFallsBackToFileName(t *testing.T) {
	path := writeFile(t, "ridges.json", `{"type":"FeatureCollection","features":[]}`)
	fc, err := NewStore().Load(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "ridges", fc.Name)
	assert.Equal(t, 0, fc.Len())
}

func TestLoadErrors(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	_, err := store.Load(ctx, filepath.Join(t.TempDir(), "missing.geojson"))
	assert.ErrorIs(t, err, domain.ErrRead)
	var se *domain.SourceError
	assert.True(t, errors.As(err, &se))

	_, err = store.Load(ctx, writeFile(t, "data.gpmlz", "x"))
	assert.ErrorIs(t, err, domain.ErrFormat)

	_, err = store.Load(ctx, writeFile(t, "broken.geojson", "{not json"))
	assert.ErrorIs(t, err, domain.ErrFormat)

	_, err = store.Load(ctx, writeFile(t, "badtime.geojson",
		`{"type":"FeatureCollection","features":[{"type":"Feature","geometry":null,"properties":{"validTime":["soon",0]}}]}`))
	assert.ErrorIs(t, err, domain.ErrFormat)
}

func TestWriteRoundTrip(t *testing.T) {
	src := &domain.FeatureCollection{
		Name: "out",
		Features: []domain.Feature{
			{
				ID:        "F1",
				Name:      "ridge",
				Type:      domain.FeatureMidOceanRidge,
				ValidTime: domain.ValidTime{Begin: domain.DistantPast, End: 5},
				Properties: []domain.Property{
					{Name: domain.PropReconstructionPlateID, Value: 801.0},
				},
				Geometries: []domain.Geometry{
					{Kind: domain.GeometryPolygon, Points: []domain.GeoPoint{{Lat: 0, Lon: 0}, {Lat: 0, Lon: 10}, {Lat: 10, Lon: 10}}},
					{Kind: domain.GeometryMultiPoint, Points: []domain.GeoPoint{{Lat: 1, Lon: 2}, {Lat: 3, Lon: 4}}},
				},
			},
		},
	}

	path := filepath.Join(t.TempDir(), "nested", "dir", "out.geojson")
	store := NewStore()
	ctx := context.Background()
	require.NoError(t, store.Write(ctx, src, path))

	got, err := store.Load(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, src, got)

	// overwrite
	src.Features = src.Features[:0]
	require.NoError(t, store.Write(ctx, src, path))
	got, err = store.Load(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Len())

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestWriteRejectsUnknownExtension(t *testing.T) {
	err := NewStore().Write(context.Background(), &domain.FeatureCollection{}, filepath.Join(t.TempDir(), "out.shp"))
	assert.ErrorIs(t, err, domain.ErrFormat)
}

func TestStampChangesWithContent(t *testing.T) {
	path := writeFile(t, "a.geojson", `{"type":"FeatureCollection","features":[]}`)
	store := NewStore()
	s1, err := store.Stamp(context.Background(), path)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, []byte(sampleCollection), 0o644))
	s2, err := store.Stamp(context.Background(), path)
	require.NoError(t, err)
	assert.NotEqual(t, s1, s2)

	_, err = store.Stamp(context.Background(), filepath.Join(t.TempDir(), "nope.geojson"))
	assert.ErrorIs(t, err, domain.ErrRead)
}

func TestDelete(t *testing.T) {
	path := writeFile(t, "a.geojson", `{"type":"FeatureCollection","features":[]}`)
	store := NewStore()
	require.NoError(t, store.Delete(context.Background(), path))
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	// already gone
	assert.NoError(t, store.Delete(context.Background(), path))
}
