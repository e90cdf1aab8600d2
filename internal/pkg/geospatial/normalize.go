package geospatial

// NormalizeLon folds a longitude into [-180, 180] with a single wrap.
// Only one step of 360 is applied: 190 becomes -170, but 550 becomes 190.
func NormalizeLon(lon float64) float64 {
	switch {
	case lon > 180:
		return lon - 360
	case lon < -180:
		return lon + 360
	}
	return lon
}

// NormalizeLat folds a latitude into [-90, 90] with a single wrap of 180.
// Like NormalizeLon it applies one step only.
func NormalizeLat(lat float64) float64 {
	switch {
	case lat > 90:
		return lat - 180
	case lat < -90:
		return lat + 180
	}
	return lat
}
