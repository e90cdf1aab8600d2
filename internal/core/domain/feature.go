package domain

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// DatabaseScheme prefixes sources and targets held in the database rather
// than in files.
const DatabaseScheme = "pg:"

// Property names with a fixed meaning.
const (
	PropReconstructionPlateID = "reconstructionPlateId"
	PropConjugatePlateID      = "conjugatePlateId"
)

// Sentinel ages for open-ended validity intervals, in Ma.
var (
	DistantPast   = math.Inf(1)
	DistantFuture = math.Inf(-1)
)

// Property is a named feature property. Value holds a scalar, an
// identifier or a nested structure decoded from the source file.
type Property struct {
	Name  string `json:"name"`
	Value any    `json:"value"`
}

// ValidTime is the interval over which a feature exists, in Ma.
// Begin is the older age, so Begin >= End.
type ValidTime struct {
	Begin float64 `json:"begin"`
	End   float64 `json:"end"`
}

// Geometry is one geometry attached to a feature.
type Geometry struct {
	Kind   GeometryKind `json:"kind"`
	Points []GeoPoint   `json:"points"`
}

// Feature is a reconstructable tectonic feature.
type Feature struct {
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	Type       FeatureType `json:"type"`
	ValidTime  ValidTime   `json:"valid_time"`
	Properties []Property  `json:"properties,omitempty"`
	Geometries []Geometry  `json:"geometries,omitempty"`
}

// Property returns the value of the first property called name.
func (f *Feature) Property(name string) (any, bool) {
	for _, p := range f.Properties {
		if p.Name == name {
			return p.Value, true
		}
	}
	return nil, false
}

// ReconstructionPlateID returns the feature's reconstruction plate id.
func (f *Feature) ReconstructionPlateID() (int, bool) {
	return f.plateID(PropReconstructionPlateID)
}

// ConjugatePlateID returns the feature's conjugate plate id.
func (f *Feature) ConjugatePlateID() (int, bool) {
	return f.plateID(PropConjugatePlateID)
}

func (f *Feature) plateID(name string) (int, bool) {
	v, ok := f.Property(name)
	if !ok {
		return 0, false
	}
	id, err := PlateID(v)
	if err != nil {
		return 0, false
	}
	return id, true
}

// Points flattens the vertices of every geometry, in order.
func (f *Feature) Points() []GeoPoint {
	var n int
	for _, g := range f.Geometries {
		n += len(g.Points)
	}
	pts := make([]GeoPoint, 0, n)
	for _, g := range f.Geometries {
		pts = append(pts, g.Points...)
	}
	return pts
}

// HasGeometry reports whether the feature carries a geometry whose kind
// name contains k's name, so PointOnSphere also matches MultiPointOnSphere.
func (f *Feature) HasGeometry(k GeometryKind) bool {
	name := k.String()
	for _, g := range f.Geometries {
		if strings.Contains(g.Kind.String(), name) {
			return true
		}
	}
	return false
}

// PlateID coerces a decoded property value into a plate id.
func PlateID(v any) (int, error) {
	switch t := v.(type) {
	case int:
		return t, nil
	case int32:
		return int(t), nil
	case int64:
		return int(t), nil
	case float64:
		if t != math.Trunc(t) {
			return 0, fmt.Errorf("plate id %v is not an integer", t)
		}
		return int(t), nil
	case string:
		return strconv.Atoi(t)
	}
	return 0, fmt.Errorf("plate id has unsupported type %T", v)
}

// FeatureCollection is an ordered set of features.
type FeatureCollection struct {
	Name     string    `json:"name,omitempty"`
	Features []Feature `json:"features"`
}

// Len returns the number of features.
func (c *FeatureCollection) Len() int {
	if c == nil {
		return 0
	}
	return len(c.Features)
}
