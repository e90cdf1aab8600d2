// Command geotools evaluates the spherical and paleomagnetic kernels from
// the command line.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"
	"strconv"

	"github.com/spf13/pflag"

	"github.com/samirrijal/platekit/internal/core/domain"
	"github.com/samirrijal/platekit/internal/pkg/geospatial"
)

const usage = `geotools: spherical and paleomagnetic helpers

Usage:
  geotools distance LAT1 LON1 LAT2 LON2   great-circle distance (km) and initial bearing
  geotools bearing LAT1 LON1 LAT2 LON2    initial bearing in degrees
  geotools box LAT LON RADIUS_KM          bounding box for the boundingBox filter
  geotools precision A95 N                Fisher precision k from a95 and sample count
  geotools sample random|uniform N        points on the sphere (--seed for random)
  geotools normalize LAT LON              single-step coordinate wrap

Flags:
`

var errUsage = errors.New("usage")

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(argv []string, stdout, stderr io.Writer) int {
	fs := pflag.NewFlagSet("geotools", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	// Flags go before the command so negative coordinates parse as arguments.
	fs.SetInterspersed(false)
	asJSON := fs.Bool("json", false, "print results as JSON")
	seed := fs.Int64("seed", 0, "seed for random sampling; 0 draws a fresh sequence")
	fs.Usage = func() {
		fmt.Fprint(stderr, usage)
		fs.PrintDefaults()
	}
	if err := fs.Parse(argv); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		return 2
	}

	args := fs.Args()
	if len(args) == 0 {
		fs.Usage()
		return 2
	}

	result, text, err := evaluate(args[0], args[1:], *seed)
	if err != nil {
		fmt.Fprintln(stderr, "geotools:", err)
		if errors.Is(err, errUsage) {
			fs.Usage()
		}
		return 2
	}

	if *asJSON {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			fmt.Fprintln(stderr, "geotools:", err)
			return 1
		}
		return 0
	}
	fmt.Fprint(stdout, text)
	return 0
}

// evaluate runs one subcommand and returns its result both as a value for
// JSON output and as text.
func evaluate(cmd string, args []string, seed int64) (any, string, error) {
	switch cmd {
	case "distance", "bearing":
		v, err := floats(args, 4)
		if err != nil {
			return nil, "", err
		}
		a := domain.GeoPoint{Lat: v[0], Lon: v[1]}
		b := domain.GeoPoint{Lat: v[2], Lon: v[3]}
		leg := geospatial.GreatCircle(a, b)
		if cmd == "bearing" {
			return map[string]float64{"bearing_deg": leg.BearingDeg}, fmt.Sprintf("%.6f\n", leg.BearingDeg), nil
		}
		return leg, fmt.Sprintf("%.3f km, bearing %.3f\n", leg.DistanceKm, leg.BearingDeg), nil

	case "box":
		v, err := floats(args, 3)
		if err != nil {
			return nil, "", err
		}
		box := geospatial.BoundingBoxAround(v[0], v[1], v[2])
		return box, fmt.Sprintf("%g,%g,%g,%g\n", box.LonMin, box.LonMax, box.LatMin, box.LatMax), nil

	case "precision":
		if len(args) != 2 {
			return nil, "", fmt.Errorf("%w: precision takes A95 N", errUsage)
		}
		a95, err := strconv.ParseFloat(args[0], 64)
		if err != nil {
			return nil, "", fmt.Errorf("a95 %q: %w", args[0], err)
		}
		n, err := strconv.Atoi(args[1])
		if err != nil {
			return nil, "", fmt.Errorf("n %q: %w", args[1], err)
		}
		k, err := geospatial.PrecisionFromA95(a95, n)
		if err != nil {
			return nil, "", err
		}
		return map[string]any{"a95": a95, "n": n, "k": k}, fmt.Sprintf("%.4f\n", k), nil

	case "sample":
		if len(args) != 2 {
			return nil, "", fmt.Errorf("%w: sample takes random|uniform N", errUsage)
		}
		n, err := strconv.Atoi(args[1])
		if err != nil || n < 0 {
			return nil, "", fmt.Errorf("n %q must be a non-negative integer", args[1])
		}
		var pts []domain.GeoPoint
		switch args[0] {
		case "random":
			var rng *rand.Rand
			if seed != 0 {
				rng = rand.New(rand.NewSource(seed))
			}
			pts = geospatial.RandomPoints(n, rng)
		case "uniform":
			pts = geospatial.UniformPoints(n)
		default:
			return nil, "", fmt.Errorf("%w: unknown sampling %q", errUsage, args[0])
		}
		if pts == nil {
			pts = []domain.GeoPoint{}
		}
		var text []byte
		for _, p := range pts {
			text = fmt.Appendf(text, "%.6f %.6f\n", p.Lat, p.Lon)
		}
		return pts, string(text), nil

	case "normalize":
		v, err := floats(args, 2)
		if err != nil {
			return nil, "", err
		}
		p := domain.GeoPoint{Lat: geospatial.NormalizeLat(v[0]), Lon: geospatial.NormalizeLon(v[1])}
		return p, fmt.Sprintf("%g %g\n", p.Lat, p.Lon), nil
	}
	return nil, "", fmt.Errorf("%w: unknown command %q", errUsage, cmd)
}

func floats(args []string, n int) ([]float64, error) {
	if len(args) != n {
		return nil, fmt.Errorf("%w: want %d numbers, got %d", errUsage, n, len(args))
	}
	out := make([]float64, n)
	for i, a := range args {
		f, err := strconv.ParseFloat(a, 64)
		if err != nil {
			return nil, fmt.Errorf("argument %d %q: %w", i+1, a, err)
		}
		out[i] = f
	}
	return out, nil
}
