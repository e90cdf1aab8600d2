package http

import (
	"fmt"
	"math/rand"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/platekit/internal/core/domain"
	"github.com/samirrijal/platekit/internal/pkg/geospatial"
)

// MaxSamplePoints caps GET /v1/geo/sample.
const MaxSamplePoints = 100000

// queryFloat reads a required float query parameter.
func queryFloat(c *fiber.Ctx, name string) (float64, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return 0, fmt.Errorf("%s is required", name)
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a number", name)
	}
	return v, nil
}

// queryPoint reads a latitude/longitude pair and checks its range.
func queryPoint(c *fiber.Ctx, latName, lonName string) (domain.GeoPoint, error) {
	lat, err := queryFloat(c, latName)
	if err != nil {
		return domain.GeoPoint{}, err
	}
	lon, err := queryFloat(c, lonName)
	if err != nil {
		return domain.GeoPoint{}, err
	}
	if !domain.ValidLatitude(lat) {
		return domain.GeoPoint{}, fmt.Errorf("%s must be between -90 and 90", latName)
	}
	if lon < -360 || lon > 360 {
		return domain.GeoPoint{}, fmt.Errorf("%s must be between -360 and 360", lonName)
	}
	return domain.GeoPoint{Lat: lat, Lon: lon}, nil
}

// DistanceHandler returns the great-circle distance and initial bearing
// between (lat1, lon1) and (lat2, lon2).
func DistanceHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		a, err := queryPoint(c, "lat1", "lon1")
		if err != nil {
			return errBadRequest(c, err.Error())
		}
		b, err := queryPoint(c, "lat2", "lon2")
		if err != nil {
			return errBadRequest(c, err.Error())
		}
		return c.JSON(fiber.Map{
			"from":        a,
			"to":          b,
			"distance_km": geospatial.Haversine(a.Lon, a.Lat, b.Lon, b.Lat),
			"bearing_deg": geospatial.Bearing(a.Lon, a.Lat, b.Lon, b.Lat),
		})
	}
}

// BoxHandler returns a bounding box around a point, ready to be used as a
// boundingBox filter parameter.
func BoxHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := queryPoint(c, "lat", "lon")
		if err != nil {
			return errBadRequest(c, err.Error())
		}
		radius, err := queryFloat(c, "radius_km")
		if err != nil {
			return errBadRequest(c, err.Error())
		}
		if radius <= 0 || radius > geospatial.EarthRadiusKm*3.15 {
			return errBadRequest(c, "radius_km must be positive and at most half the circumference")
		}
		box := geospatial.BoundingBoxAround(p.Lat, p.Lon, radius)
		return c.JSON(fiber.Map{
			"box":         box,
			"boundingBox": box.Slice(),
		})
	}
}

// SampleHandler generates points on the sphere. method is "uniform"
// (deterministic spiral, default) or "random"; a seed makes random
// sampling reproducible.
func SampleHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		n := c.QueryInt("n", 0)
		if n <= 0 || n > MaxSamplePoints {
			return errBadRequest(c, fmt.Sprintf("n must be between 1 and %d", MaxSamplePoints))
		}

		var pts []domain.GeoPoint
		switch method := strings.ToLower(c.Query("method", "uniform")); method {
		case "uniform":
			pts = geospatial.UniformPoints(n)
		case "random":
			var rng *rand.Rand
			if s := c.Query("seed"); s != "" {
				seed, err := strconv.ParseInt(s, 10, 64)
				if err != nil {
					return errBadRequest(c, "seed must be an integer")
				}
				rng = rand.New(rand.NewSource(seed))
			} else {
				c.Set("Cache-Control", "no-store")
			}
			pts = geospatial.RandomPoints(n, rng)
		default:
			return errBadRequest(c, "method must be uniform or random")
		}

		offset, limit := pageParams(c, 1000, 10000)
		total := len(pts)
		page := pts[min(offset, total):min(offset+limit, total)]

		pg := Pagination{Offset: offset, Limit: limit, Total: total}
		SetLinkHeaders(c, pg)
		return c.JSON(PaginatedResponse{Data: page, Pagination: pg})
	}
}

// NormalizeHandler folds a coordinate into the canonical ranges.
func NormalizeHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		lat, err := queryFloat(c, "lat")
		if err != nil {
			return errBadRequest(c, err.Error())
		}
		lon, err := queryFloat(c, "lon")
		if err != nil {
			return errBadRequest(c, err.Error())
		}
		return c.JSON(domain.GeoPoint{
			Lat: geospatial.NormalizeLat(lat),
			Lon: geospatial.NormalizeLon(lon),
		})
	}
}

// PrecisionHandler estimates the Fisher precision parameter from a95 and n.
func PrecisionHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		a95, err := queryFloat(c, "a95")
		if err != nil {
			return errBadRequest(c, err.Error())
		}
		if a95 <= 0 || a95 >= 180 {
			return errBadRequest(c, "a95 must be between 0 and 180 degrees")
		}
		n := c.QueryInt("n", 0)
		k, err := geospatial.PrecisionFromA95(a95, n)
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(fiber.Map{"a95": a95, "n": n, "k": k})
	}
}
