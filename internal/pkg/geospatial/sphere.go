package geospatial

import (
	"math"
	"math/rand"
	"time"

	"github.com/samirrijal/platekit/internal/core/domain"
)

// goldenAngle is the azimuthal step of the Fibonacci spiral, pi(3 - sqrt 5).
var goldenAngle = math.Pi * (3 - math.Sqrt(5))

// CartesianToGeodetic converts a vector to latitude/longitude in degrees.
// The vector need not be normalised; the zero vector maps to (0, 0).
func CartesianToGeodetic(x, y, z float64) domain.GeoPoint {
	r := math.Sqrt(x*x + y*y + z*z)
	if r == 0 {
		return domain.GeoPoint{}
	}
	return domain.GeoPoint{
		Lat: toDeg(math.Asin(z / r)),
		Lon: toDeg(math.Atan2(y, x)),
	}
}

// RandomPoints draws n independent points uniformly distributed over the
// sphere: a uniform azimuth and the arccosine of a uniform variable for the
// polar angle. Pass a seeded rng for reproducible output; a nil rng uses a
// time-seeded source.
func RandomPoints(n int, rng *rand.Rand) []domain.GeoPoint {
	if n <= 0 {
		return nil
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	pts := make([]domain.GeoPoint, n)
	for i := range pts {
		phi := 2 * math.Pi * rng.Float64()
		theta := math.Acos(2*rng.Float64() - 1)
		pts[i] = CartesianToGeodetic(
			math.Sin(theta)*math.Cos(phi),
			math.Sin(theta)*math.Sin(phi),
			math.Cos(theta),
		)
	}
	return pts
}

// UniformPoints places n points on a golden-angle spiral with evenly
// spaced heights along the polar axis. The output depends only on n.
func UniformPoints(n int) []domain.GeoPoint {
	if n <= 0 {
		return nil
	}
	pts := make([]domain.GeoPoint, n)
	step := 2 / float64(n)
	for i := range pts {
		z := 1 - step*(float64(i)+0.5)
		r := math.Sqrt(1 - z*z)
		phi := float64(i) * goldenAngle
		pts[i] = CartesianToGeodetic(r*math.Cos(phi), r*math.Sin(phi), z)
	}
	return pts
}
