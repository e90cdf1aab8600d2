package filter

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/samirrijal/platekit/internal/core/domain"
)

// Markers for an open window edge.
const (
	MarkerDistantPast   = domain.MarkerDistantPast
	MarkerDistantFuture = domain.MarkerDistantFuture
)

// AgeWindow is an inclusive time window in Ma, written [old, young].
// An open old edge is +Inf (DP) and an open young edge is -Inf (DF).
type AgeWindow struct {
	Old   float64
	Young float64
}

// Window builds a closed window.
func Window(old, young float64) AgeWindow {
	return AgeWindow{Old: old, Young: young}
}

// Contains reports whether age lies inside the window, edges included.
func (w AgeWindow) Contains(age float64) bool {
	return age <= w.Old && age >= w.Young
}

// Overlaps reports whether a validity interval intersects the window.
// This covers a feature spanning the whole window, one inside it, and both
// partial overlaps.
func (w AgeWindow) Overlaps(t domain.ValidTime) bool {
	return t.Begin >= w.Young && t.End <= w.Old
}

// Inverted reports whether the young edge is older than the old edge.
func (w AgeWindow) Inverted() bool {
	return w.Young > w.Old
}

func (w AgeWindow) String() string {
	return domain.FormatAge(w.Old) + " - " + domain.FormatAge(w.Young) + " Ma"
}

// MarshalJSON writes [old, young], with open edges as DP/DF.
func (w AgeWindow) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{domain.AgeValue(w.Old), domain.AgeValue(w.Young)})
}

// UnmarshalJSON reads [old, young]; either edge may be a number, a numeric
// string or one of the DP/DF markers.
func (w *AgeWindow) UnmarshalJSON(b []byte) error {
	var raw []any
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("age window: %w", err)
	}
	parsed, err := ParseAgeWindow(raw)
	if err != nil {
		return err
	}
	*w = parsed
	return nil
}

// ParseAgeWindow converts the two-element forms accepted from parameter
// files, JSON bodies and command-line flags.
func ParseAgeWindow(v any) (AgeWindow, error) {
	var edges []any
	switch t := v.(type) {
	case AgeWindow:
		return t, nil
	case *AgeWindow:
		if t == nil {
			return AgeWindow{}, fmt.Errorf("%w: nil", domain.ErrInvalidWindow)
		}
		return *t, nil
	case []any:
		edges = t
	case []float64:
		for _, e := range t {
			edges = append(edges, e)
		}
	case []int:
		for _, e := range t {
			edges = append(edges, e)
		}
	case []string:
		for _, e := range t {
			edges = append(edges, e)
		}
	case string:
		for _, e := range strings.Split(t, ",") {
			edges = append(edges, strings.TrimSpace(e))
		}
	default:
		return AgeWindow{}, fmt.Errorf("%w: unsupported value %v", domain.ErrInvalidWindow, v)
	}
	if len(edges) != 2 {
		return AgeWindow{}, fmt.Errorf("%w: want [old, young], got %v", domain.ErrInvalidWindow, v)
	}
	old, err := parseEdge(edges[0])
	if err != nil {
		return AgeWindow{}, err
	}
	young, err := parseEdge(edges[1])
	if err != nil {
		return AgeWindow{}, err
	}
	return AgeWindow{Old: old, Young: young}, nil
}

func parseEdge(v any) (float64, error) {
	age, err := domain.ParseAge(v)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrInvalidWindow, err)
	}
	return age, nil
}
