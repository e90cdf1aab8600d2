package workflows

import (
	"fmt"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

// BatchWorkflowName is the registered name of BatchFilterWorkflow.
const BatchWorkflowName = "BatchFilterWorkflow"

// RunSpec is one filter run inside a batch.
type RunSpec struct {
	Input    string         `json:"inputFile"`
	Output   string         `json:"outputFile,omitempty"`
	Sequence []int          `json:"filterSequence"`
	Params   map[string]any `json:"params,omitempty"`
}

// BatchInput is the input for the batch workflow.
type BatchInput struct {
	Runs []RunSpec `json:"runs"`
	// Atomic rolls back every written output when any run fails. Rollback
	// deletes those outputs; a run that replaced an existing file or table
	// does not get the previous content back.
	Atomic bool `json:"atomic"`
	// RunTimeout bounds each run; zero uses five minutes.
	RunTimeout time.Duration `json:"run_timeout,omitempty"`
}

// RunOutcome is what one run of a batch produced.
type RunOutcome struct {
	RunID      string `json:"run_id,omitempty"`
	Input      string `json:"input"`
	Output     string `json:"output,omitempty"`
	InputSize  int    `json:"input_size"`
	OutputSize int    `json:"output_size"`
	Written    bool   `json:"written"`
	Error      string `json:"error,omitempty"`
}

// BatchResult summarises a batch. Outcomes are in the order of the input.
type BatchResult struct {
	Outcomes   []RunOutcome `json:"outcomes"`
	Failed     int          `json:"failed"`
	RolledBack []string     `json:"rolled_back,omitempty"`
}

// ErrTypeBatchFailed is the application error type of a failed atomic
// batch. The error details carry the BatchResult.
const ErrTypeBatchFailed = "BatchFailed"

// BatchFilterWorkflow runs every filter of a batch in parallel. A plain
// batch reports failures per run. An atomic batch fails as a whole and
// deletes the outputs its successful runs wrote (saga compensation).
func BatchFilterWorkflow(ctx workflow.Context, input BatchInput) (*BatchResult, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("Starting batch filter workflow", "runs", len(input.Runs), "atomic", input.Atomic)

	timeout := input.RunTimeout
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: timeout,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts:        3,
			NonRetryableErrorTypes: []string{errTypeInvalidRequest},
		},
	})

	futures := make([]workflow.Future, len(input.Runs))
	for i, spec := range input.Runs {
		futures[i] = workflow.ExecuteActivity(ctx, ActivityRunFilter, spec)
	}

	result := &BatchResult{Outcomes: make([]RunOutcome, len(input.Runs))}
	for i, f := range futures {
		var out RunOutcome
		if err := f.Get(ctx, &out); err != nil {
			out = RunOutcome{Input: input.Runs[i].Input, Output: input.Runs[i].Output, Error: err.Error()}
			result.Failed++
			logger.Warn("batch run failed", "input", out.Input, "error", err)
		}
		result.Outcomes[i] = out
	}

	if result.Failed == 0 || !input.Atomic {
		logger.Info("Batch filter workflow finished", "failed", result.Failed)
		return result, nil
	}

	// Compensate: remove what the successful runs wrote.
	for _, out := range result.Outcomes {
		if !out.Written {
			continue
		}
		if err := workflow.ExecuteActivity(ctx, ActivityDeleteOutput, out.Output).Get(ctx, nil); err != nil {
			logger.Error("rollback failed", "output", out.Output, "error", err)
			continue
		}
		result.RolledBack = append(result.RolledBack, out.Output)
	}
	msg := fmt.Sprintf("batch failed: %d of %d runs failed", result.Failed, len(input.Runs))
	return nil, temporal.NewNonRetryableApplicationError(msg, ErrTypeBatchFailed, nil, result)
}
