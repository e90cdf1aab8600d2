package workflows

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	enumspb "go.temporal.io/api/enums/v1"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

// BatchStatus reports the state of a submitted batch.
type BatchStatus struct {
	ID     string       `json:"id"`
	Status string       `json:"status"`
	Result *BatchResult `json:"result,omitempty"`
	Error  string       `json:"error,omitempty"`
}

// BatchClient submits batch workflows and reads their state.
type BatchClient struct {
	c         client.Client
	taskQueue string
}

// NewBatchClient creates a client that submits to taskQueue.
func NewBatchClient(c client.Client, taskQueue string) *BatchClient {
	return &BatchClient{c: c, taskQueue: taskQueue}
}

// StartBatch submits input and returns the workflow ID.
func (b *BatchClient) StartBatch(ctx context.Context, input BatchInput) (string, error) {
	run, err := b.c.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		ID:        "batch-" + uuid.NewString(),
		TaskQueue: b.taskQueue,
	}, BatchWorkflowName, input)
	if err != nil {
		return "", fmt.Errorf("start batch: %w", err)
	}
	return run.GetID(), nil
}

// BatchStatus describes the batch with the given workflow ID. Results are
// only fetched once the workflow has closed.
func (b *BatchClient) BatchStatus(ctx context.Context, id string) (*BatchStatus, error) {
	desc, err := b.c.DescribeWorkflowExecution(ctx, id, "")
	if err != nil {
		return nil, fmt.Errorf("describe batch %s: %w", id, err)
	}
	st := &BatchStatus{ID: id, Status: statusName(desc.GetWorkflowExecutionInfo().GetStatus())}

	switch st.Status {
	case "completed":
		var res BatchResult
		if err := b.c.GetWorkflow(ctx, id, "").Get(ctx, &res); err != nil {
			return nil, fmt.Errorf("batch %s result: %w", id, err)
		}
		st.Result = &res
	case "failed":
		err := b.c.GetWorkflow(ctx, id, "").Get(ctx, nil)
		if err == nil {
			break
		}
		st.Error = err.Error()
		var appErr *temporal.ApplicationError
		if errors.As(err, &appErr) && appErr.Type() == ErrTypeBatchFailed && appErr.HasDetails() {
			var res BatchResult
			if appErr.Details(&res) == nil {
				st.Result = &res
			}
		}
	}
	return st, nil
}

func statusName(s enumspb.WorkflowExecutionStatus) string {
	switch s {
	case enumspb.WORKFLOW_EXECUTION_STATUS_RUNNING:
		return "running"
	case enumspb.WORKFLOW_EXECUTION_STATUS_COMPLETED:
		return "completed"
	case enumspb.WORKFLOW_EXECUTION_STATUS_FAILED:
		return "failed"
	case enumspb.WORKFLOW_EXECUTION_STATUS_CANCELED:
		return "canceled"
	case enumspb.WORKFLOW_EXECUTION_STATUS_TERMINATED:
		return "terminated"
	case enumspb.WORKFLOW_EXECUTION_STATUS_TIMED_OUT:
		return "timed_out"
	case enumspb.WORKFLOW_EXECUTION_STATUS_CONTINUED_AS_NEW:
		return "continued_as_new"
	}
	return "unknown"
}

// Registrar is the registration surface shared by worker.Worker and the
// test environment.
type Registrar interface {
	RegisterWorkflowWithOptions(w interface{}, options workflow.RegisterOptions)
	RegisterActivity(a interface{})
}

// Register adds the batch workflow and its activities.
func Register(r Registrar, acts *FilterActivities) {
	r.RegisterWorkflowWithOptions(BatchFilterWorkflow, workflow.RegisterOptions{Name: BatchWorkflowName})
	r.RegisterActivity(acts)
}
