package filter

import (
	"fmt"
	"strings"

	"github.com/samirrijal/platekit/internal/core/domain"
)

// matcher is a compiled stage predicate. counts, when non-nil, receives
// per-tag match tallies for stages that report them.
type matcher func(f *domain.Feature, counts map[string]int) bool

// compile resolves a stage's parameters once and returns its predicate
// together with a description of the parameters for logging.
func compile(s Stage) (matcher, string, error) {
	p := s.Params
	if !s.Kind.Valid() {
		return nil, "", &domain.ParamError{Param: ParamSequence, Value: int(s.Kind), Err: domain.ErrUnknownStage}
	}
	if !p.has(s.Kind) {
		return nil, "", &domain.ParamError{Param: s.Kind.Param(), Err: fmt.Errorf("%w for stage %d (%s)", domain.ErrMissingParameter, int(s.Kind), s.Kind)}
	}

	switch s.Kind {
	case StageReconstructionPlateID:
		set := intSet(p.ReconstructionPlateIDs)
		return func(f *domain.Feature, _ map[string]int) bool {
			id, ok := f.ReconstructionPlateID()
			return ok && set[id]
		}, fmt.Sprint(p.ReconstructionPlateIDs), nil

	case StageConjugatePlateID:
		set := intSet(p.ConjugatePlateIDs)
		return func(f *domain.Feature, _ map[string]int) bool {
			id, ok := f.ConjugatePlateID()
			return ok && set[id]
		}, fmt.Sprint(p.ConjugatePlateIDs), nil

	case StageAppearanceWindow:
		w := *p.AppearanceWindow
		return func(f *domain.Feature, _ map[string]int) bool {
			return w.Contains(f.ValidTime.Begin)
		}, w.String(), nil

	case StageDisappearanceWindow:
		w := *p.DisappearanceWindow
		return func(f *domain.Feature, _ map[string]int) bool {
			return w.Contains(f.ValidTime.End)
		}, w.String(), nil

	case StageBoundingBox:
		box := *p.BoundingBox
		if err := box.Validate(); err != nil {
			return nil, "", err
		}
		return func(f *domain.Feature, _ map[string]int) bool {
			for _, g := range f.Geometries {
				if g.Kind != domain.GeometryPolyline {
					continue
				}
				for _, pt := range g.Points {
					if box.Contains(pt) {
						return true
					}
				}
			}
			return false
		}, box.String(), nil

	case StageExistenceWindow:
		w := *p.ExistenceWindow
		if w.Inverted() {
			return nil, "", &domain.ParamError{Param: ParamExistenceWindow, Value: w.Young, Err: domain.ErrInvalidWindow}
		}
		return func(f *domain.Feature, _ map[string]int) bool {
			return w.Overlaps(f.ValidTime)
		}, w.String(), nil

	case StageFeatureType:
		types, err := domain.ResolveFeatureTypes(p.FeatureTypes)
		if err != nil {
			return nil, "", err
		}
		return func(f *domain.Feature, counts map[string]int) bool {
			for _, t := range types {
				if f.Type == t {
					if counts != nil {
						counts[t.ShortName()]++
					}
					return true
				}
			}
			return false
		}, fmt.Sprint(typeNames(types)), nil

	case StageGeometryType:
		kinds, err := domain.ResolveGeometryKinds(p.GeometryTypes)
		if err != nil {
			return nil, "", err
		}
		return func(f *domain.Feature, counts map[string]int) bool {
			matched := false
			for _, k := range kinds {
				if f.HasGeometry(k) {
					matched = true
					if counts != nil {
						counts[k.String()]++
					}
				}
			}
			return matched
		}, fmt.Sprint(kinds), nil

	case StageFeatureID:
		ids := make(map[string]bool, len(p.FeatureIDs))
		for _, id := range p.FeatureIDs {
			ids[strings.ToLower(id)] = true
		}
		return func(f *domain.Feature, _ map[string]int) bool {
			return ids[strings.ToLower(f.ID)]
		}, fmt.Sprint(p.FeatureIDs), nil

	case StageFeatureName:
		needles := make([]string, len(p.FeatureNames))
		for i, n := range p.FeatureNames {
			needles[i] = strings.ToLower(n)
		}
		return func(f *domain.Feature, _ map[string]int) bool {
			name := strings.ToLower(f.Name)
			for _, n := range needles {
				if strings.Contains(name, n) {
					return true
				}
			}
			return false
		}, fmt.Sprint(p.FeatureNames), nil
	}
	return nil, "", &domain.ParamError{Param: ParamSequence, Value: int(s.Kind), Err: domain.ErrUnknownStage}
}

func intSet(ids []int) map[int]bool {
	set := make(map[int]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}

func typeNames(types []domain.FeatureType) []string {
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = t.ShortName()
	}
	return out
}
