package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samirrijal/platekit/internal/core/domain"
)

func runTool(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var out, errOut bytes.Buffer
	code := run(args, &out, &errOut)
	return code, out.String(), errOut.String()
}

func TestDistance(t *testing.T) {
	code, out, _ := runTool(t, "--json", "distance", "0", "0", "0", "90")
	require.Equal(t, 0, code)

	var leg struct {
		DistanceKm float64 `json:"distance_km"`
		BearingDeg float64 `json:"bearing_deg"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &leg))
	assert.InDelta(t, 10007.54, leg.DistanceKm, 0.01)
	assert.InDelta(t, 90, leg.BearingDeg, 1e-9)
}

func TestBearingText(t *testing.T) {
	code, out, _ := runTool(t, "bearing", "10", "0", "-10", "0")
	require.Equal(t, 0, code)
	assert.Equal(t, "180.000000\n", out)
}

func TestPrecision(t *testing.T) {
	code, out, _ := runTool(t, "precision", "5", "10")
	require.Equal(t, 0, code)
	assert.True(t, strings.HasPrefix(out, "94."), out)

	code, _, stderr := runTool(t, "precision", "5", "1")
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr, "at least two samples")
}

func TestSample(t *testing.T) {
	code, out, _ := runTool(t, "sample", "uniform", "4")
	require.Equal(t, 0, code)
	assert.Len(t, strings.Split(strings.TrimSpace(out), "\n"), 4)

	_, a, _ := runTool(t, "--seed", "7", "--json", "sample", "random", "5")
	_, b, _ := runTool(t, "--seed", "7", "--json", "sample", "random", "5")
	assert.Equal(t, a, b)

	var pts []domain.GeoPoint
	require.NoError(t, json.Unmarshal([]byte(a), &pts))
	assert.Len(t, pts, 5)
}

func TestNormalize(t *testing.T) {
	code, out, _ := runTool(t, "normalize", "100", "190")
	require.Equal(t, 0, code)
	assert.Equal(t, "-80 -170\n", out)
}

func TestBox(t *testing.T) {
	code, out, _ := runTool(t, "--json", "box", "0", "-20", "111.19")
	require.Equal(t, 0, code)
	var box domain.BoundingBox
	require.NoError(t, json.Unmarshal([]byte(out), &box))
	assert.InDelta(t, 339, box.LonMin, 0.01)
	assert.InDelta(t, 341, box.LonMax, 0.01)
}

func TestUsageErrors(t *testing.T) {
	for _, args := range [][]string{
		{},
		{"teleport"},
		{"distance", "1", "2"},
		{"distance", "a", "b", "c", "d"},
		{"sample", "gaussian", "3"},
		{"--bogus"},
	} {
		code, _, _ := runTool(t, args...)
		assert.Equal(t, 2, code, "args %v", args)
	}
}
