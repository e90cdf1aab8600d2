package workflows

import (
	"context"
	"fmt"
	"log/slog"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"

	"github.com/samirrijal/platekit/internal/core/domain"
	"github.com/samirrijal/platekit/internal/core/filter"
	"github.com/samirrijal/platekit/internal/core/ports"
	"github.com/samirrijal/platekit/internal/core/usecases"
)

// Activity names, as registered from *FilterActivities.
const (
	ActivityRunFilter    = "RunFilter"
	ActivityDeleteOutput = "DeleteOutput"
)

// errTypeInvalidRequest marks failures that retrying cannot fix.
const errTypeInvalidRequest = "InvalidRequest"

// FilterActivities holds the activity implementations for batch filter runs.
type FilterActivities struct {
	Filter  *usecases.FilterService
	Outputs ports.CollectionRemover
	Logger  *slog.Logger
}

// RunFilter executes one run of a batch.
func (a *FilterActivities) RunFilter(ctx context.Context, spec RunSpec) (RunOutcome, error) {
	req, err := spec.Request()
	if err != nil {
		return RunOutcome{}, temporal.NewNonRetryableApplicationError(err.Error(), errTypeInvalidRequest, err)
	}

	res, err := a.Filter.Run(ctx, req)
	if err != nil {
		if domain.IsInputError(err) {
			return RunOutcome{}, temporal.NewNonRetryableApplicationError(err.Error(), errTypeInvalidRequest, err)
		}
		return RunOutcome{}, fmt.Errorf("run %s: %w", spec.Input, err)
	}

	out := RunOutcome{
		RunID:      res.RunID,
		Input:      res.Input,
		Output:     res.Output,
		InputSize:  res.InputSize,
		OutputSize: res.Collection.Len(),
		Written:    res.Written,
	}
	a.logger(ctx).Info("batch run finished",
		"run_id", out.RunID, "input", out.Input, "output", out.Output, "features", out.OutputSize)
	return out, nil
}

// DeleteOutput removes an output written by an earlier run (saga rollback).
func (a *FilterActivities) DeleteOutput(ctx context.Context, target string) error {
	if a.Outputs == nil {
		return temporal.NewNonRetryableApplicationError("no output store configured", errTypeInvalidRequest, nil)
	}
	if err := a.Outputs.Delete(ctx, target); err != nil {
		return fmt.Errorf("delete output %s: %w", target, err)
	}
	a.logger(ctx).Info("batch output rolled back", "target", target)
	return nil
}

func (a *FilterActivities) logger(ctx context.Context) *slog.Logger {
	l := a.Logger
	if l == nil {
		l = slog.Default()
	}
	if activity.IsActivity(ctx) {
		info := activity.GetInfo(ctx)
		l = l.With("workflow_id", info.WorkflowExecution.ID, "attempt", info.Attempt)
	}
	return l
}

// Request converts s into a filter request. Params use the same
// flat keys as parameter files.
func (s RunSpec) Request() (usecases.FilterRequest, error) {
	m := make(map[string]any, len(s.Params)+3)
	for k, v := range s.Params {
		m[k] = v
	}
	m[filter.ParamInput] = s.Input
	if s.Output != "" {
		m[filter.ParamOutput] = s.Output
	}
	seq := make([]any, len(s.Sequence))
	for i, k := range s.Sequence {
		seq[i] = k
	}
	m[filter.ParamSequence] = seq
	return usecases.RequestFromMap(m)
}
