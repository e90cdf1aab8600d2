package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Markers for an open-ended age.
const (
	MarkerDistantPast   = "DP"
	MarkerDistantFuture = "DF"
)

// ParseAge reads an age in Ma from a decoded value: a number, a numeric
// string, or one of the DP/DF markers (case-insensitive).
func ParseAge(v any) (float64, error) {
	switch t := v.(type) {
	case float64:
		return t, nil
	case float32:
		return float64(t), nil
	case int:
		return float64(t), nil
	case int64:
		return float64(t), nil
	case json.Number:
		return t.Float64()
	case string:
		s := strings.TrimSpace(t)
		switch strings.ToUpper(s) {
		case MarkerDistantPast:
			return DistantPast, nil
		case MarkerDistantFuture:
			return DistantFuture, nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("bad age %q", t)
		}
		return f, nil
	}
	return 0, fmt.Errorf("bad age %v", v)
}

// AgeValue is the inverse of ParseAge: infinite ages become markers.
func AgeValue(age float64) any {
	switch {
	case math.IsInf(age, 1):
		return MarkerDistantPast
	case math.IsInf(age, -1):
		return MarkerDistantFuture
	}
	return age
}

// FormatAge renders an age for logs and messages.
func FormatAge(age float64) string {
	if v, ok := AgeValue(age).(string); ok {
		return v
	}
	return strconv.FormatFloat(age, 'g', -1, 64)
}

// MarshalJSON writes [begin, end] with open ends as DP/DF.
func (t ValidTime) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{AgeValue(t.Begin), AgeValue(t.End)})
}

// UnmarshalJSON reads the form written by MarshalJSON.
func (t *ValidTime) UnmarshalJSON(b []byte) error {
	var raw []any
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("valid time: %w", err)
	}
	vt, err := ParseValidTime(raw)
	if err != nil {
		return err
	}
	*t = vt
	return nil
}

// ParseValidTime reads a [begin, end] pair.
func ParseValidTime(v any) (ValidTime, error) {
	pair, ok := v.([]any)
	if !ok || len(pair) != 2 {
		return ValidTime{}, fmt.Errorf("valid time: want [begin, end], got %v", v)
	}
	begin, err := ParseAge(pair[0])
	if err != nil {
		return ValidTime{}, fmt.Errorf("valid time begin: %w", err)
	}
	end, err := ParseAge(pair[1])
	if err != nil {
		return ValidTime{}, fmt.Errorf("valid time end: %w", err)
	}
	return ValidTime{Begin: begin, End: end}, nil
}

// AlwaysValid is the validity of a feature with no recorded time period.
func AlwaysValid() ValidTime {
	return ValidTime{Begin: DistantPast, End: DistantFuture}
}
