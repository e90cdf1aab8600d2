package domain

import (
	"fmt"
)

// GeoPoint represents a geodetic coordinate on the unit sphere, in degrees.
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// BoundingBox is a geographic box given as [lonMin, lonMax, latMin, latMax].
// Longitudes run over [0, 360] and latitudes over [-90, 90].
type BoundingBox struct {
	LonMin float64 `json:"lon_min"`
	LonMax float64 `json:"lon_max"`
	LatMin float64 `json:"lat_min"`
	LatMax float64 `json:"lat_max"`
}

// NewBoundingBox builds a box from the four-value slice form used on the
// command line and in parameter files.
func NewBoundingBox(v []float64) (BoundingBox, error) {
	if len(v) != 4 {
		return BoundingBox{}, &ParamError{Param: "boundingBox", Value: v, Err: ErrInvalidCoordinate}
	}
	b := BoundingBox{LonMin: v[0], LonMax: v[1], LatMin: v[2], LatMax: v[3]}
	return b, b.Validate()
}

// Validate reports the first coordinate outside the valid range.
func (b BoundingBox) Validate() error {
	for _, lon := range []float64{b.LonMin, b.LonMax} {
		if !ValidLongitude(lon) {
			return &ParamError{Param: "boundingBox", Value: lon, Err: fmt.Errorf("%w: longitude", ErrInvalidCoordinate)}
		}
	}
	for _, lat := range []float64{b.LatMin, b.LatMax} {
		if !ValidLatitude(lat) {
			return &ParamError{Param: "boundingBox", Value: lat, Err: fmt.Errorf("%w: latitude", ErrInvalidCoordinate)}
		}
	}
	if b.LonMin > b.LonMax {
		return &ParamError{Param: "boundingBox", Value: b.Slice(), Err: fmt.Errorf("%w: lonMin > lonMax", ErrInvalidCoordinate)}
	}
	if b.LatMin > b.LatMax {
		return &ParamError{Param: "boundingBox", Value: b.Slice(), Err: fmt.Errorf("%w: latMin > latMax", ErrInvalidCoordinate)}
	}
	return nil
}

// Contains reports whether p lies inside the box, edges included.
// A negative longitude is also tried shifted into [0, 360).
func (b BoundingBox) Contains(p GeoPoint) bool {
	if p.Lat < b.LatMin || p.Lat > b.LatMax {
		return false
	}
	if p.Lon >= b.LonMin && p.Lon <= b.LonMax {
		return true
	}
	if p.Lon < 0 {
		lon := p.Lon + 360
		return lon >= b.LonMin && lon <= b.LonMax
	}
	return false
}

// Slice returns the box in [lonMin, lonMax, latMin, latMax] order.
func (b BoundingBox) Slice() []float64 {
	return []float64{b.LonMin, b.LonMax, b.LatMin, b.LatMax}
}

func (b BoundingBox) String() string {
	return fmt.Sprintf("%g/%g/%g/%g", b.LonMin, b.LonMax, b.LatMin, b.LatMax)
}

// ValidLongitude reports whether lon is a usable bounding-box longitude.
func ValidLongitude(lon float64) bool {
	return lon >= 0 && lon <= 360
}

// ValidLatitude reports whether lat is within [-90, 90].
func ValidLatitude(lat float64) bool {
	return lat >= -90 && lat <= 90
}
