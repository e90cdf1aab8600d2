package filter_test

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samirrijal/platekit/internal/core/domain"
	"github.com/samirrijal/platekit/internal/core/filter"
)

func TestParamsFromMap(t *testing.T) {
	p, err := filter.ParamsFromMap(map[string]any{
		"rPlateID":           []any{801, 701},
		"cplateid":           "101",
		"ageAppearWindow":    []any{"DP", 50},
		"ageDisappearWindow": []any{60.5, "DF"},
		"ageExistsWindow":    []any{100, 90},
		"boundingBox":        []any{100, 130, -90, 20},
		"featureType":        []any{"ISO", "MOR"},
		"geometryType":       "PolylineOnSphere",
		"featureID":          "GPlates-1234",
		"featureName":        []any{"pacific", "cocos"},
	})
	require.NoError(t, err)

	assert.Equal(t, []int{801, 701}, p.ReconstructionPlateIDs)
	assert.Equal(t, []int{101}, p.ConjugatePlateIDs)
	require.NotNil(t, p.AppearanceWindow)
	assert.True(t, math.IsInf(p.AppearanceWindow.Old, 1))
	assert.Equal(t, 50.0, p.AppearanceWindow.Young)
	require.NotNil(t, p.DisappearanceWindow)
	assert.True(t, math.IsInf(p.DisappearanceWindow.Young, -1))
	assert.Equal(t, filter.Window(100, 90), *p.ExistenceWindow)
	assert.Equal(t, &domain.BoundingBox{LonMin: 100, LonMax: 130, LatMin: -90, LatMax: 20}, p.BoundingBox)
	assert.Equal(t, []string{"ISO", "MOR"}, p.FeatureTypes)
	assert.Equal(t, []string{"PolylineOnSphere"}, p.GeometryTypes)
	assert.Equal(t, []string{"GPlates-1234"}, p.FeatureIDs)
	assert.Equal(t, []string{"pacific", "cocos"}, p.FeatureNames)
}

func TestParamsFromMap_Errors(t *testing.T) {
	tests := []struct {
		name string
		in   map[string]any
		want error
	}{
		{"unknown name", map[string]any{"plateColour": "red"}, domain.ErrUnknownParameter},
		{"sequence is not a stage param", map[string]any{"filterSequence": []any{1}}, domain.ErrUnknownParameter},
		{"inverted existence window", map[string]any{"ageExistsWindow": []any{90, 100}}, domain.ErrInvalidWindow},
		{"short window", map[string]any{"ageAppearWindow": []any{90}}, domain.ErrInvalidWindow},
		{"bad box longitude", map[string]any{"boundingBox": []any{0, 400, -90, 90}}, domain.ErrInvalidCoordinate},
		{"bad box latitude", map[string]any{"boundingBox": []any{0, 360, -91, 90}}, domain.ErrInvalidCoordinate},
		{"box too short", map[string]any{"boundingBox": []any{0, 360}}, domain.ErrInvalidCoordinate},
		{"plate id not a number", map[string]any{"rPlateID": []any{"abc"}}, domain.ErrInvalidValue},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := filter.ParamsFromMap(tc.in)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tc.want), "expected %v, got %v", tc.want, err)

			var pe *domain.ParamError
			assert.True(t, errors.As(err, &pe), "expected a ParamError, got %T", err)
		})
	}
}

func TestUnknownParameterNamesOffender(t *testing.T) {
	_, err := filter.ParamsFromMap(map[string]any{"plateColour": "red"})
	var pe *domain.ParamError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "plateColour", pe.Param)
}

func TestAgeWindowJSON(t *testing.T) {
	var w filter.AgeWindow
	require.NoError(t, json.Unmarshal([]byte(`["DP", 50]`), &w))
	assert.True(t, math.IsInf(w.Old, 1))
	assert.Equal(t, 50.0, w.Young)

	b, err := json.Marshal(w)
	require.NoError(t, err)
	assert.JSONEq(t, `["DP", 50]`, string(b))

	require.NoError(t, json.Unmarshal([]byte(`[10, "df"]`), &w))
	assert.True(t, math.IsInf(w.Young, -1))
	assert.Equal(t, "10 - DF Ma", w.String())

	assert.Error(t, json.Unmarshal([]byte(`[1, 2, 3]`), &w))
}

func TestParamsJSONRoundTripKeepsMarkers(t *testing.T) {
	in := `{"rPlateID":[801],"ageAppearWindow":["DP",50],"boundingBox":{"lon_min":0,"lon_max":360,"lat_min":-90,"lat_max":90}}`
	var p filter.Params
	require.NoError(t, json.Unmarshal([]byte(in), &p))
	require.NoError(t, p.Validate())
	require.NotNil(t, p.AppearanceWindow)
	assert.True(t, math.IsInf(p.AppearanceWindow.Old, 1))
}

func TestParseSequence(t *testing.T) {
	seq, err := filter.ParseSequence("1, 3,ageExistsWindow ,10")
	require.NoError(t, err)
	assert.Equal(t, []filter.StageKind{
		filter.StageReconstructionPlateID,
		filter.StageAppearanceWindow,
		filter.StageExistenceWindow,
		filter.StageFeatureName,
	}, seq)

	_, err = filter.ParseSequence("1,12")
	assert.ErrorIs(t, err, domain.ErrUnknownStage)

	_, err = filter.SequenceFromInts([]int{0})
	assert.ErrorIs(t, err, domain.ErrUnknownStage)
}

func TestStageKindNames(t *testing.T) {
	assert.Equal(t, "geographic bounding box", filter.StageBoundingBox.String())
	assert.Equal(t, "boundingBox", filter.StageBoundingBox.Param())
	assert.Equal(t, "stage(42)", filter.StageKind(42).String())
}
