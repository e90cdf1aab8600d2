package domain

import (
	"fmt"
	"strings"
)

// FeatureType is the qualified GPlates feature type of a feature.
type FeatureType string

const (
	FeatureIsochron                   FeatureType = "gpml:Isochron"
	FeatureMidOceanRidge              FeatureType = "gpml:MidOceanRidge"
	FeaturePassiveContinentalBoundary FeatureType = "gpml:PassiveContinentalBoundary"
)

// AllCode selects every supported member of a type table.
const AllCode = "ALL"

var featureTypeCodes = map[string]FeatureType{
	"ISO": FeatureIsochron,
	"MOR": FeatureMidOceanRidge,
	"PCB": FeaturePassiveContinentalBoundary,
}

// SupportedFeatureTypes lists the feature types the type filter can select.
func SupportedFeatureTypes() []FeatureType {
	return []FeatureType{FeatureIsochron, FeatureMidOceanRidge, FeaturePassiveContinentalBoundary}
}

// ParseFeatureType accepts a short code (ISO, MOR, PCB), a bare type name
// (Isochron) or a qualified one (gpml:Isochron). Unqualified names get the
// gpml namespace.
func ParseFeatureType(s string) FeatureType {
	s = strings.TrimSpace(s)
	if ft, ok := featureTypeCodes[strings.ToUpper(s)]; ok {
		return ft
	}
	if s == "" || strings.Contains(s, ":") {
		return FeatureType(s)
	}
	return FeatureType("gpml:" + s)
}

// ResolveFeatureTypes expands short codes and ALL into a de-duplicated set,
// keeping first-seen order.
func ResolveFeatureTypes(codes []string) ([]FeatureType, error) {
	var out []FeatureType
	seen := make(map[FeatureType]bool)
	add := func(ft FeatureType) {
		if !seen[ft] {
			seen[ft] = true
			out = append(out, ft)
		}
	}
	for _, c := range codes {
		if strings.EqualFold(strings.TrimSpace(c), AllCode) {
			for _, ft := range SupportedFeatureTypes() {
				add(ft)
			}
			continue
		}
		ft := ParseFeatureType(c)
		if ft == "" {
			return nil, &ParamError{Param: "featureType", Value: c, Err: ErrUnknownParameter}
		}
		add(ft)
	}
	return out, nil
}

// ShortName drops the namespace prefix: gpml:Isochron -> Isochron.
func (t FeatureType) ShortName() string {
	if i := strings.IndexByte(string(t), ':'); i >= 0 {
		return string(t[i+1:])
	}
	return string(t)
}

// GeometryKind enumerates the geometry variants a feature may carry.
type GeometryKind int

const (
	GeometryUnknown GeometryKind = iota
	GeometryPoint
	GeometryMultiPoint
	GeometryPolyline
	GeometryPolygon
)

var geometryKindNames = map[GeometryKind]string{
	GeometryPoint:      "PointOnSphere",
	GeometryMultiPoint: "MultiPointOnSphere",
	GeometryPolyline:   "PolylineOnSphere",
	GeometryPolygon:    "PolygonOnSphere",
}

func (k GeometryKind) String() string {
	if n, ok := geometryKindNames[k]; ok {
		return n
	}
	return fmt.Sprintf("GeometryKind(%d)", int(k))
}

// SupportedGeometryKinds lists every concrete geometry kind.
func SupportedGeometryKinds() []GeometryKind {
	return []GeometryKind{GeometryPolyline, GeometryPolygon, GeometryPoint, GeometryMultiPoint}
}

// ParseGeometryKind resolves a geometry tag, case-insensitively, so that
// PolylineOnSphere and PolyLineOnSphere are the same kind. The "OnSphere"
// suffix is optional.
func ParseGeometryKind(s string) (GeometryKind, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	key = strings.TrimSuffix(key, "onsphere")
	switch key {
	case "point":
		return GeometryPoint, nil
	case "multipoint":
		return GeometryMultiPoint, nil
	case "polyline", "linestring":
		return GeometryPolyline, nil
	case "polygon":
		return GeometryPolygon, nil
	}
	return GeometryUnknown, &ParamError{Param: "geometryType", Value: s, Err: ErrUnknownParameter}
}

// ResolveGeometryKinds expands tags and ALL into a de-duplicated set.
func ResolveGeometryKinds(tags []string) ([]GeometryKind, error) {
	var out []GeometryKind
	seen := make(map[GeometryKind]bool)
	add := func(k GeometryKind) {
		if !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}
	for _, t := range tags {
		if strings.EqualFold(strings.TrimSpace(t), AllCode) {
			for _, k := range SupportedGeometryKinds() {
				add(k)
			}
			continue
		}
		k, err := ParseGeometryKind(t)
		if err != nil {
			return nil, err
		}
		add(k)
	}
	return out, nil
}
