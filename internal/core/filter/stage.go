package filter

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/samirrijal/platekit/internal/core/domain"
)

// StageKind identifies one of the ten filters. The numbering is the one
// used in filter sequences.
type StageKind int

const (
	StageReconstructionPlateID StageKind = iota + 1
	StageConjugatePlateID
	StageAppearanceWindow
	StageDisappearanceWindow
	StageBoundingBox
	StageExistenceWindow
	StageFeatureType
	StageGeometryType
	StageFeatureID
	StageFeatureName
)

type stageInfo struct {
	name  string // human label used in logs
	param string // parameter consumed by the stage
}

var stageTable = map[StageKind]stageInfo{
	StageReconstructionPlateID: {"reconstruction plate ID", ParamReconstructionPlateID},
	StageConjugatePlateID:      {"conjugate plate ID", ParamConjugatePlateID},
	StageAppearanceWindow:      {"age of appearance window", ParamAppearanceWindow},
	StageDisappearanceWindow:   {"age of disappearance window", ParamDisappearanceWindow},
	StageBoundingBox:           {"geographic bounding box", ParamBoundingBox},
	StageExistenceWindow:       {"age of existence window", ParamExistenceWindow},
	StageFeatureType:           {"feature type", ParamFeatureType},
	StageGeometryType:          {"geometry type", ParamGeometryType},
	StageFeatureID:             {"feature ID", ParamFeatureID},
	StageFeatureName:           {"feature name", ParamFeatureName},
}

func (k StageKind) String() string {
	if info, ok := stageTable[k]; ok {
		return info.name
	}
	return "stage(" + strconv.Itoa(int(k)) + ")"
}

// Param returns the name of the parameter the stage reads.
func (k StageKind) Param() string {
	return stageTable[k].param
}

// Valid reports whether k is one of the ten known stages.
func (k StageKind) Valid() bool {
	_, ok := stageTable[k]
	return ok
}

// ParseStageKind accepts a stage number ("3") or the name of the parameter
// the stage consumes ("ageAppearWindow"), case-insensitively.
func ParseStageKind(s string) (StageKind, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		k := StageKind(n)
		if !k.Valid() {
			return 0, &domain.ParamError{Param: ParamSequence, Value: s, Err: domain.ErrUnknownStage}
		}
		return k, nil
	}
	for k, info := range stageTable {
		if strings.EqualFold(info.param, s) {
			return k, nil
		}
	}
	return 0, &domain.ParamError{Param: ParamSequence, Value: s, Err: domain.ErrUnknownStage}
}

// ParseSequence parses a comma separated stage list such as "1,3,5".
func ParseSequence(s string) ([]StageKind, error) {
	var seq []StageKind
	for _, part := range strings.Split(s, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		k, err := ParseStageKind(part)
		if err != nil {
			return nil, err
		}
		seq = append(seq, k)
	}
	return seq, nil
}

// SequenceFromInts converts numeric stage identifiers.
func SequenceFromInts(ids []int) ([]StageKind, error) {
	seq := make([]StageKind, 0, len(ids))
	for _, id := range ids {
		k := StageKind(id)
		if !k.Valid() {
			return nil, &domain.ParamError{Param: ParamSequence, Value: id, Err: domain.ErrUnknownStage}
		}
		seq = append(seq, k)
	}
	return seq, nil
}

// Stage is one step of a pipeline: a kind plus the parameters it runs
// with. Only the field matching Kind is read.
type Stage struct {
	Kind   StageKind
	Params Params
}

func (s Stage) String() string {
	return fmt.Sprintf("%d. %s", int(s.Kind), s.Kind)
}

// SequenceFromValue converts a decoded sequence: a "1,3,5" string, a
// single number, or a list of numbers and stage names.
func SequenceFromValue(v any) ([]StageKind, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case string:
		return ParseSequence(t)
	case int:
		return SequenceFromInts([]int{t})
	case float64:
		if t != float64(int(t)) {
			return nil, &domain.ParamError{Param: ParamSequence, Value: t, Err: domain.ErrUnknownStage}
		}
		return SequenceFromInts([]int{int(t)})
	case []int:
		return SequenceFromInts(t)
	case []StageKind:
		return SequenceFromInts(kindsToInts(t))
	case []string:
		return ParseSequence(strings.Join(t, ","))
	case []any:
		seq := make([]StageKind, 0, len(t))
		for _, e := range t {
			ks, err := SequenceFromValue(e)
			if err != nil {
				return nil, err
			}
			seq = append(seq, ks...)
		}
		return seq, nil
	}
	return nil, &domain.ParamError{Param: ParamSequence, Value: v, Err: domain.ErrInvalidValue}
}

func kindsToInts(ks []StageKind) []int {
	out := make([]int, len(ks))
	for i, k := range ks {
		out[i] = int(k)
	}
	return out
}
