package workflows

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/testsuite"

	"github.com/samirrijal/platekit/internal/core/domain"
	"github.com/samirrijal/platekit/internal/core/usecases"
)

// memStore is an in-memory collection store shared by concurrent activities.
type memStore struct {
	mu      sync.Mutex
	data    map[string]*domain.FeatureCollection
	deleted []string
}

func newMemStore() *memStore {
	plate := func(id int) []domain.Property {
		return []domain.Property{{Name: domain.PropReconstructionPlateID, Value: id}}
	}
	return &memStore{data: map[string]*domain.FeatureCollection{
		"ridges.geojson": {Features: []domain.Feature{
			{ID: "R1", ValidTime: domain.AlwaysValid(), Properties: plate(801)},
			{ID: "R2", ValidTime: domain.AlwaysValid(), Properties: plate(901)},
		}},
	}}
}

func (m *memStore) Load(_ context.Context, source string) (*domain.FeatureCollection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fc, ok := m.data[source]
	if !ok {
		return nil, &domain.SourceError{Source: source, Err: domain.ErrRead}
	}
	return fc, nil
}

func (m *memStore) Write(_ context.Context, fc *domain.FeatureCollection, target string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[target] = fc
	return nil
}

func (m *memStore) Delete(_ context.Context, target string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, target)
	m.deleted = append(m.deleted, target)
	return nil
}

func (m *memStore) has(target string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.data[target]
	return ok
}

func newTestEnv(t *testing.T, store *memStore) *testsuite.TestWorkflowEnvironment {
	t.Helper()
	var suite testsuite.WorkflowTestSuite
	env := suite.NewTestWorkflowEnvironment()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	Register(env, &FilterActivities{
		Filter:  usecases.NewFilterService(store, store, nil, "", logger),
		Outputs: store,
		Logger:  logger,
	})
	return env
}

func pacificRun(output string) RunSpec {
	return RunSpec{
		Input:    "ridges.geojson",
		Output:   output,
		Sequence: []int{1},
		Params:   map[string]any{"rPlateID": []any{901}},
	}
}

func TestBatchFilterWorkflow_AllSucceed(t *testing.T) {
	store := newMemStore()
	env := newTestEnv(t, store)

	env.ExecuteWorkflow(BatchFilterWorkflow, BatchInput{Runs: []RunSpec{
		pacificRun("pacific.geojson"),
		{Input: "ridges.geojson", Sequence: []int{9}, Params: map[string]any{"featureID": "R1"}},
	}})

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var res BatchResult
	require.NoError(t, env.GetWorkflowResult(&res))
	require.Len(t, res.Outcomes, 2)
	assert.Zero(t, res.Failed)

	assert.Equal(t, 2, res.Outcomes[0].InputSize)
	assert.Equal(t, 1, res.Outcomes[0].OutputSize)
	assert.True(t, res.Outcomes[0].Written)
	assert.NotEmpty(t, res.Outcomes[0].RunID)
	assert.True(t, store.has("pacific.geojson"))

	// no output requested, nothing written
	assert.Equal(t, 1, res.Outcomes[1].OutputSize)
	assert.False(t, res.Outcomes[1].Written)
}

func TestBatchFilterWorkflow_PartialFailure(t *testing.T) {
	store := newMemStore()
	env := newTestEnv(t, store)

	env.ExecuteWorkflow(BatchFilterWorkflow, BatchInput{Runs: []RunSpec{
		pacificRun("pacific.geojson"),
		{Input: "missing.geojson", Output: "never.geojson", Sequence: []int{1}, Params: map[string]any{"rPlateID": []any{801}}},
	}})

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var res BatchResult
	require.NoError(t, env.GetWorkflowResult(&res))
	assert.Equal(t, 1, res.Failed)
	assert.Empty(t, res.Outcomes[0].Error)
	assert.Equal(t, "missing.geojson", res.Outcomes[1].Input)
	assert.Contains(t, res.Outcomes[1].Error, "cannot read feature collection")

	// without atomic the successful output stays
	assert.True(t, store.has("pacific.geojson"))
	assert.Empty(t, store.deleted)
}

func TestBatchFilterWorkflow_AtomicRollsBack(t *testing.T) {
	store := newMemStore()
	env := newTestEnv(t, store)

	env.ExecuteWorkflow(BatchFilterWorkflow, BatchInput{Atomic: true, Runs: []RunSpec{
		pacificRun("pacific.geojson"),
		{Input: "ridges.geojson", Output: "bad.geojson", Sequence: []int{42}},
	}})

	require.True(t, env.IsWorkflowCompleted())
	err := env.GetWorkflowError()
	require.Error(t, err)

	var appErr *temporal.ApplicationError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, ErrTypeBatchFailed, appErr.Type())

	var res BatchResult
	require.NoError(t, appErr.Details(&res))
	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, []string{"pacific.geojson"}, res.RolledBack)
	assert.Contains(t, res.Outcomes[1].Error, "unknown filter stage")

	assert.False(t, store.has("pacific.geojson"))
	assert.False(t, store.has("bad.geojson"))
	assert.Equal(t, []string{"pacific.geojson"}, store.deleted)
}

func TestRunSpecRequest(t *testing.T) {
	req, err := RunSpec{
		Input:    "in.geojson",
		Output:   "out.geojson",
		Sequence: []int{6, 5},
		Params: map[string]any{
			"ageExistsWindow": []any{"DP", 0.0},
			"boundingBox":     []any{0.0, 360.0, -90.0, 0.0},
		},
	}.Request()
	require.NoError(t, err)
	assert.Equal(t, "in.geojson", req.Input)
	assert.Equal(t, "out.geojson", req.Output)
	assert.Len(t, req.Sequence, 2)
	require.NotNil(t, req.Params.ExistenceWindow)
	require.NotNil(t, req.Params.BoundingBox)

	_, err = RunSpec{Input: "in.geojson", Params: map[string]any{"plateColour": 1}}.Request()
	assert.ErrorIs(t, err, domain.ErrUnknownParameter)
}
