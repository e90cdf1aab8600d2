package filter

import (
	"fmt"
	"sort"
	"strings"

	"github.com/mitchellh/mapstructure"

	"github.com/samirrijal/platekit/internal/core/domain"
)

// Parameter names, as accepted in parameter maps and files.
const (
	ParamInput                 = "inputFile"
	ParamOutput                = "outputFile"
	ParamSequence              = "filterSequence"
	ParamReconstructionPlateID = "rPlateID"
	ParamConjugatePlateID      = "cPlateID"
	ParamAppearanceWindow      = "ageAppearWindow"
	ParamDisappearanceWindow   = "ageDisappearWindow"
	ParamExistenceWindow       = "ageExistsWindow"
	ParamBoundingBox           = "boundingBox"
	ParamFeatureType           = "featureType"
	ParamGeometryType          = "geometryType"
	ParamFeatureID             = "featureID"
	ParamFeatureName           = "featureName"
)

// Params holds every stage parameter. Each field is optional; a stage
// fails at construction time if the field it reads is unset.
type Params struct {
	ReconstructionPlateIDs []int               `mapstructure:"rPlateID" json:"rPlateID,omitempty"`
	ConjugatePlateIDs      []int               `mapstructure:"cPlateID" json:"cPlateID,omitempty"`
	AppearanceWindow       *AgeWindow          `mapstructure:"-" json:"ageAppearWindow,omitempty"`
	DisappearanceWindow    *AgeWindow          `mapstructure:"-" json:"ageDisappearWindow,omitempty"`
	ExistenceWindow        *AgeWindow          `mapstructure:"-" json:"ageExistsWindow,omitempty"`
	BoundingBox            *domain.BoundingBox `mapstructure:"-" json:"boundingBox,omitempty"`
	FeatureTypes           []string            `mapstructure:"featureType" json:"featureType,omitempty"`
	GeometryTypes          []string            `mapstructure:"geometryType" json:"geometryType,omitempty"`
	FeatureIDs             []string            `mapstructure:"featureID" json:"featureID,omitempty"`
	FeatureNames           []string            `mapstructure:"featureName" json:"featureName,omitempty"`
}

var stageParamNames = []string{
	ParamReconstructionPlateID, ParamConjugatePlateID,
	ParamAppearanceWindow, ParamDisappearanceWindow, ParamExistenceWindow,
	ParamBoundingBox, ParamFeatureType, ParamGeometryType,
	ParamFeatureID, ParamFeatureName,
}

// StageParamNames lists the parameter names a Params value can carry.
func StageParamNames() []string {
	out := make([]string, len(stageParamNames))
	copy(out, stageParamNames)
	return out
}

func canonicalParam(name string) (string, bool) {
	for _, p := range stageParamNames {
		if strings.EqualFold(p, name) {
			return p, true
		}
	}
	return "", false
}

// ParamsFromMap decodes a loosely typed parameter map, as produced by a
// YAML/JSON file or viper. Keys match case-insensitively; any key that is
// not a stage parameter is rejected with ErrUnknownParameter. Single
// values are promoted to one-element lists.
func ParamsFromMap(m map[string]any) (Params, error) {
	var p Params
	rest := make(map[string]any, len(m))

	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		name, ok := canonicalParam(key)
		if !ok {
			return Params{}, &domain.ParamError{Param: key, Err: domain.ErrUnknownParameter}
		}
		v := m[key]
		switch name {
		case ParamAppearanceWindow, ParamDisappearanceWindow, ParamExistenceWindow:
			w, err := ParseAgeWindow(v)
			if err != nil {
				return Params{}, &domain.ParamError{Param: name, Value: v, Err: err}
			}
			switch name {
			case ParamAppearanceWindow:
				p.AppearanceWindow = &w
			case ParamDisappearanceWindow:
				p.DisappearanceWindow = &w
			default:
				p.ExistenceWindow = &w
			}
		case ParamBoundingBox:
			box, err := parseBox(v)
			if err != nil {
				return Params{}, err
			}
			p.BoundingBox = &box
		default:
			rest[name] = v
		}
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           &p,
	})
	if err != nil {
		return Params{}, fmt.Errorf("params decoder: %w", err)
	}
	if err := dec.Decode(rest); err != nil {
		return Params{}, &domain.ParamError{Param: "params", Value: rest, Err: fmt.Errorf("%w: %v", domain.ErrInvalidValue, err)}
	}
	if err := p.Validate(); err != nil {
		return Params{}, err
	}
	return p, nil
}

func parseBox(v any) (domain.BoundingBox, error) {
	var vals []float64
	switch t := v.(type) {
	case domain.BoundingBox:
		return t, t.Validate()
	case []float64:
		vals = t
	case []any:
		for _, e := range t {
			f, err := parseEdge(e)
			if err != nil {
				return domain.BoundingBox{}, &domain.ParamError{Param: ParamBoundingBox, Value: v, Err: domain.ErrInvalidCoordinate}
			}
			vals = append(vals, f)
		}
	case []int:
		for _, e := range t {
			vals = append(vals, float64(e))
		}
	case string:
		for _, e := range strings.Split(t, ",") {
			f, err := parseEdge(strings.TrimSpace(e))
			if err != nil {
				return domain.BoundingBox{}, &domain.ParamError{Param: ParamBoundingBox, Value: v, Err: domain.ErrInvalidCoordinate}
			}
			vals = append(vals, f)
		}
	default:
		return domain.BoundingBox{}, &domain.ParamError{Param: ParamBoundingBox, Value: v, Err: domain.ErrInvalidCoordinate}
	}
	return domain.NewBoundingBox(vals)
}

// Validate checks every parameter that is set, whether or not a stage will
// read it.
func (p Params) Validate() error {
	if w := p.ExistenceWindow; w != nil && w.Inverted() {
		return &domain.ParamError{
			Param: ParamExistenceWindow,
			Value: w.Young,
			Err:   fmt.Errorf("%w: end age older than begin age", domain.ErrInvalidWindow),
		}
	}
	if p.BoundingBox != nil {
		if err := p.BoundingBox.Validate(); err != nil {
			return err
		}
	}
	if _, err := domain.ResolveFeatureTypes(p.FeatureTypes); err != nil {
		return err
	}
	if _, err := domain.ResolveGeometryKinds(p.GeometryTypes); err != nil {
		return err
	}
	return nil
}

// has reports whether the parameter read by kind is present.
func (p Params) has(kind StageKind) bool {
	switch kind {
	case StageReconstructionPlateID:
		return len(p.ReconstructionPlateIDs) > 0
	case StageConjugatePlateID:
		return len(p.ConjugatePlateIDs) > 0
	case StageAppearanceWindow:
		return p.AppearanceWindow != nil
	case StageDisappearanceWindow:
		return p.DisappearanceWindow != nil
	case StageBoundingBox:
		return p.BoundingBox != nil
	case StageExistenceWindow:
		return p.ExistenceWindow != nil
	case StageFeatureType:
		return len(p.FeatureTypes) > 0
	case StageGeometryType:
		return len(p.GeometryTypes) > 0
	case StageFeatureID:
		return len(p.FeatureIDs) > 0
	case StageFeatureName:
		return len(p.FeatureNames) > 0
	}
	return false
}
