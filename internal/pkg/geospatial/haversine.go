package geospatial

import (
	"math"

	"github.com/samirrijal/platekit/internal/core/domain"
)

// EarthRadiusKm is the mean Earth radius used by every distance helper.
const EarthRadiusKm = 6371.0

// Haversine calculates the great-circle distance in kilometres between two
// points given as longitude/latitude in degrees.
func Haversine(lon1, lat1, lon2, lat2 float64) float64 {
	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return EarthRadiusKm * c
}

// Bearing returns the initial great-circle bearing from the first point to
// the second, in degrees clockwise from north within [0, 360).
// For identical points the bearing is undefined and 0 is returned.
func Bearing(lon1, lat1, lon2, lat2 float64) float64 {
	if lon1 == lon2 && lat1 == lat2 {
		return 0
	}
	phi1, phi2 := toRad(lat1), toRad(lat2)
	dLon := toRad(lon2 - lon1)

	y := math.Sin(dLon) * math.Cos(phi2)
	x := math.Cos(phi1)*math.Sin(phi2) - math.Sin(phi1)*math.Cos(phi2)*math.Cos(dLon)
	if x == 0 && y == 0 {
		return 0
	}
	deg := math.Mod(toDeg(math.Atan2(y, x))+360, 360)
	if deg == 360 {
		return 0
	}
	return deg
}

// Leg is the great-circle relation between two points.
type Leg struct {
	DistanceKm float64 `json:"distance_km"`
	BearingDeg float64 `json:"bearing_deg"`
}

// GreatCircle returns distance and initial bearing from a to b.
func GreatCircle(a, b domain.GeoPoint) Leg {
	return Leg{
		DistanceKm: Haversine(a.Lon, a.Lat, b.Lon, b.Lat),
		BearingDeg: Bearing(a.Lon, a.Lat, b.Lon, b.Lat),
	}
}

// BoundingBoxAround returns a box enclosing a circle of radiusKm around a
// point, expressed in the [0, 360] longitude convention used by the
// bounding-box filter. The box is clamped at the poles and at 0/360.
func BoundingBoxAround(lat, lon, radiusKm float64) domain.BoundingBox {
	latDelta := toDeg(radiusKm / EarthRadiusKm)
	lonDelta := 180.0
	if c := math.Cos(toRad(lat)); c > 1e-12 {
		lonDelta = math.Min(180, latDelta/c)
	}

	if lon < 0 {
		lon += 360
	}
	return domain.BoundingBox{
		LonMin: math.Max(0, lon-lonDelta),
		LonMax: math.Min(360, lon+lonDelta),
		LatMin: math.Max(-90, lat-latDelta),
		LatMax: math.Min(90, lat+latDelta),
	}
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}

func toDeg(rad float64) float64 {
	return rad * 180 / math.Pi
}
