package usecases

import (
	"fmt"
	"strings"

	"github.com/samirrijal/platekit/internal/core/domain"
	"github.com/samirrijal/platekit/internal/core/filter"
)

// RequestFromMap builds a FilterRequest from a flat parameter map such as
// a parameter file or a JSON body. inputFile, outputFile and
// filterSequence are run settings; every other key must be a stage
// parameter.
func RequestFromMap(m map[string]any) (FilterRequest, error) {
	var req FilterRequest
	stage := make(map[string]any, len(m))

	for key, v := range m {
		switch {
		case strings.EqualFold(key, filter.ParamInput):
			s, err := stringValue(filter.ParamInput, v)
			if err != nil {
				return FilterRequest{}, err
			}
			req.Input = s
		case strings.EqualFold(key, filter.ParamOutput):
			s, err := stringValue(filter.ParamOutput, v)
			if err != nil {
				return FilterRequest{}, err
			}
			req.Output = s
		case strings.EqualFold(key, filter.ParamSequence):
			seq, err := filter.SequenceFromValue(v)
			if err != nil {
				return FilterRequest{}, err
			}
			req.Sequence = seq
		default:
			stage[key] = v
		}
	}

	params, err := filter.ParamsFromMap(stage)
	if err != nil {
		return FilterRequest{}, err
	}
	req.Params = params
	return req, nil
}

func stringValue(param string, v any) (string, error) {
	switch t := v.(type) {
	case nil:
		return "", nil
	case string:
		return strings.TrimSpace(t), nil
	}
	return "", &domain.ParamError{Param: param, Value: v, Err: fmt.Errorf("%w: want a string", domain.ErrInvalidValue)}
}
