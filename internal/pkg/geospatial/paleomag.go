package geospatial

import (
	"errors"
	"fmt"
	"math"
)

// ErrTooFewSamples is returned when a statistic needs at least two samples.
var ErrTooFewSamples = errors.New("at least two samples are required")

// PrecisionFromA95 estimates the Fisher precision parameter k from the 95%
// confidence cone half-angle a95 (degrees) of n unit vectors.
//
// With fac = 20^(1/(n-1)) the resultant length is R = n(fac-1)/(fac-cos a95)
// and k = (n-1)/(n-R). For a fixed a95, k falls as n grows, following
// k ~ (140/a95)^2 / n.
func PrecisionFromA95(a95 float64, n int) (float64, error) {
	if n <= 1 {
		return 0, fmt.Errorf("precision parameter for n=%d: %w", n, ErrTooFewSamples)
	}
	N := float64(n)
	fac := math.Pow(20, 1/(N-1))
	r := N * (fac - 1) / (fac - math.Cos(toRad(a95)))
	return (N - 1) / (N - r), nil
}
