package usecases_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/samirrijal/platekit/internal/core/domain"
	"github.com/samirrijal/platekit/internal/core/filter"
	"github.com/samirrijal/platekit/internal/core/usecases"
	"github.com/samirrijal/platekit/internal/pkg/logging"
)

// --- Mock CollectionStore ---

type mockStore struct {
	loadFn  func(ctx context.Context, source string) (*domain.FeatureCollection, error)
	writeFn func(ctx context.Context, fc *domain.FeatureCollection, target string) error
	loads   []string
	writes  []string
}

func (m *mockStore) Load(ctx context.Context, source string) (*domain.FeatureCollection, error) {
	m.loads = append(m.loads, source)
	if m.loadFn != nil {
		return m.loadFn(ctx, source)
	}
	return sampleCollection(), nil
}

func (m *mockStore) Write(ctx context.Context, fc *domain.FeatureCollection, target string) error {
	m.writes = append(m.writes, target)
	if m.writeFn != nil {
		return m.writeFn(ctx, fc, target)
	}
	return nil
}

// --- Mock EventPublisher ---

type mockPublisher struct {
	err    error
	events []*domain.FilterRunEvent
}

func (m *mockPublisher) PublishFilterRun(ctx context.Context, event *domain.FilterRunEvent) error {
	m.events = append(m.events, event)
	return m.err
}

func (m *mockPublisher) PublishBroadcast(ctx context.Context, data []byte) error { return nil }

func plate(id int) []domain.Property {
	return []domain.Property{{Name: domain.PropReconstructionPlateID, Value: id}}
}

func sampleCollection() *domain.FeatureCollection {
	return &domain.FeatureCollection{Name: "sample", Features: []domain.Feature{
		{ID: "A", Type: domain.FeatureIsochron, ValidTime: domain.ValidTime{Begin: 60, End: 0}, Properties: plate(901)},
		{ID: "B", Type: domain.FeatureMidOceanRidge, ValidTime: domain.ValidTime{Begin: 55, End: 40}, Properties: plate(801)},
		{ID: "C", Type: domain.FeatureIsochron, ValidTime: domain.ValidTime{Begin: 80, End: 70}, Properties: plate(801)},
	}}
}

func plateRequest(ids ...int) usecases.FilterRequest {
	return usecases.FilterRequest{
		Input:    "data/sample.geojson",
		Output:   "filtered.geojson",
		Sequence: []filter.StageKind{filter.StageReconstructionPlateID},
		Params:   filter.Params{ReconstructionPlateIDs: ids},
	}
}

func TestFilterService_WritesSurvivors(t *testing.T) {
	store := &mockStore{}
	pub := &mockPublisher{}
	svc := usecases.NewFilterService(store, store, pub, "output", nil)

	res, err := svc.Run(context.Background(), plateRequest(801))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Collection.Len() != 2 {
		t.Fatalf("expected 2 survivors, got %d", res.Collection.Len())
	}
	want := filepath.Join("output", "filtered.geojson")
	if len(store.writes) != 1 || store.writes[0] != want {
		t.Fatalf("expected one write to %s, got %v", want, store.writes)
	}
	if !res.Written || res.Output != want {
		t.Errorf("result not marked written: %+v", res)
	}
	if res.RunID == "" || res.InputSize != 3 || len(res.Stages) != 1 {
		t.Errorf("unexpected result %+v", res)
	}

	if len(pub.events) != 1 {
		t.Fatalf("expected one event, got %d", len(pub.events))
	}
	ev := pub.events[0]
	if ev.Status != domain.RunCompleted || ev.RunID != res.RunID || ev.OutputSize != 2 || ev.Output != want {
		t.Errorf("unexpected event %+v", ev)
	}
	if len(ev.Sequence) != 1 || ev.Sequence[0] != 1 {
		t.Errorf("unexpected event sequence %v", ev.Sequence)
	}
}

func TestFilterService_EmptyResultIsNotWritten(t *testing.T) {
	store := &mockStore{}
	pub := &mockPublisher{}
	svc := usecases.NewFilterService(store, store, pub, "output", nil)

	res, err := svc.Run(context.Background(), plateRequest(123))
	if err != nil {
		t.Fatalf("empty result must not be an error: %v", err)
	}
	if !res.Empty() || res.Written {
		t.Errorf("expected empty unwritten result, got %+v", res)
	}
	if len(store.writes) != 0 {
		t.Errorf("expected no write, got %v", store.writes)
	}
	if len(pub.events) != 1 || pub.events[0].Status != domain.RunEmpty {
		t.Errorf("expected an empty-run event, got %+v", pub.events)
	}
}

func TestFilterService_NoOutputMeansNoWrite(t *testing.T) {
	store := &mockStore{}
	svc := usecases.NewFilterService(store, store, nil, "output", nil)
	req := plateRequest(801)
	req.Output = ""

	res, err := svc.Run(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Collection.Len() != 2 || len(store.writes) != 0 {
		t.Errorf("unexpected run: %+v writes=%v", res, store.writes)
	}
}

func TestFilterService_RejectsBeforeIO(t *testing.T) {
	tests := []struct {
		name string
		req  usecases.FilterRequest
		want error
	}{
		{
			name: "missing input",
			req:  usecases.FilterRequest{Sequence: []filter.StageKind{filter.StageReconstructionPlateID}},
			want: domain.ErrMissingParameter,
		},
		{
			name: "stage without its parameter",
			req:  usecases.FilterRequest{Input: "a.geojson", Sequence: []filter.StageKind{filter.StageBoundingBox}},
			want: domain.ErrMissingParameter,
		},
		{
			name: "unknown stage",
			req:  usecases.FilterRequest{Input: "a.geojson", Sequence: []filter.StageKind{42}},
			want: domain.ErrUnknownStage,
		},
		{
			name: "inverted existence window",
			req: usecases.FilterRequest{
				Input:    "a.geojson",
				Sequence: []filter.StageKind{filter.StageExistenceWindow},
				Params:   filter.Params{ExistenceWindow: &filter.AgeWindow{Old: 10, Young: 50}},
			},
			want: domain.ErrInvalidWindow,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			store := &mockStore{}
			pub := &mockPublisher{}
			svc := usecases.NewFilterService(store, store, pub, "output", nil)

			_, err := svc.Run(context.Background(), tc.req)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			if len(store.loads) != 0 || len(store.writes) != 0 {
				t.Errorf("I/O happened before validation: loads=%v writes=%v", store.loads, store.writes)
			}
			if len(pub.events) != 0 {
				t.Errorf("rejected request must not publish, got %d events", len(pub.events))
			}
		})
	}
}

func TestFilterService_LoadFailure(t *testing.T) {
	store := &mockStore{loadFn: func(ctx context.Context, source string) (*domain.FeatureCollection, error) {
		return nil, &domain.SourceError{Source: source, Err: domain.ErrRead}
	}}
	pub := &mockPublisher{}
	svc := usecases.NewFilterService(store, store, pub, "output", nil)

	res, err := svc.Run(context.Background(), plateRequest(801))
	if !errors.Is(err, domain.ErrRead) {
		t.Fatalf("expected ErrRead, got %v", err)
	}
	if res != nil {
		t.Errorf("expected nil result, got %+v", res)
	}
	if len(pub.events) != 1 || pub.events[0].Status != domain.RunFailed || pub.events[0].Error == "" {
		t.Errorf("expected a failed-run event, got %+v", pub.events)
	}
}

func TestFilterService_WriteFailure(t *testing.T) {
	store := &mockStore{writeFn: func(ctx context.Context, fc *domain.FeatureCollection, target string) error {
		return errors.New("disk full")
	}}
	svc := usecases.NewFilterService(store, store, nil, "output", nil)
	if _, err := svc.Run(context.Background(), plateRequest(801)); err == nil {
		t.Fatal("expected write error")
	}
}

func TestFilterService_PublishFailureIsNotFatal(t *testing.T) {
	store := &mockStore{}
	pub := &mockPublisher{err: errors.New("nats down")}
	svc := usecases.NewFilterService(store, store, pub, "output", nil)

	if _, err := svc.Run(context.Background(), plateRequest(801)); err != nil {
		t.Fatalf("publish failure leaked: %v", err)
	}
}

func TestFilterService_ResolveOutput(t *testing.T) {
	svc := usecases.NewFilterService(nil, nil, nil, "output", nil)
	tests := map[string]string{
		"":                     "",
		"out.geojson":          filepath.Join("output", "out.geojson"),
		"results/out.geojson":  "results/out.geojson",
		"/abs/out.geojson":     "/abs/out.geojson",
		"pg:filtered_isochron": "pg:filtered_isochron",
	}
	for in, want := range tests {
		if got := svc.ResolveOutput(in); got != want {
			t.Errorf("ResolveOutput(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestRequestFromMap(t *testing.T) {
	req, err := usecases.RequestFromMap(map[string]any{
		"inputFile":       "data/isochrons.geojson",
		"outputFile":      "out.geojson",
		"filterSequence":  []any{1, "ageExistsWindow", 5.0},
		"rPlateID":        []any{801, "901"},
		"ageExistsWindow": []any{"DP", 10},
		"boundingBox":     "0,360,-90,0",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.Input != "data/isochrons.geojson" || req.Output != "out.geojson" {
		t.Errorf("unexpected paths %+v", req)
	}
	wantSeq := []filter.StageKind{filter.StageReconstructionPlateID, filter.StageExistenceWindow, filter.StageBoundingBox}
	if len(req.Sequence) != len(wantSeq) {
		t.Fatalf("unexpected sequence %v", req.Sequence)
	}
	for i := range wantSeq {
		if req.Sequence[i] != wantSeq[i] {
			t.Errorf("sequence[%d] = %v, want %v", i, req.Sequence[i], wantSeq[i])
		}
	}
	if len(req.Params.ReconstructionPlateIDs) != 2 || req.Params.ReconstructionPlateIDs[1] != 901 {
		t.Errorf("unexpected plate ids %v", req.Params.ReconstructionPlateIDs)
	}
	if req.Params.BoundingBox == nil || req.Params.BoundingBox.LatMax != 0 {
		t.Errorf("unexpected box %v", req.Params.BoundingBox)
	}
}

func TestRequestFromMap_Errors(t *testing.T) {
	tests := []struct {
		name string
		in   map[string]any
		want error
	}{
		{"unknown key", map[string]any{"inputFile": "a.geojson", "plateColour": "red"}, domain.ErrUnknownParameter},
		{"bad sequence", map[string]any{"filterSequence": "1,11"}, domain.ErrUnknownStage},
		{"non-string input", map[string]any{"inputFile": 12}, domain.ErrInvalidValue},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := usecases.RequestFromMap(tc.in)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestFilterService_CheckPaths(t *testing.T) {
	store := &mockStore{}
	unconfined := usecases.NewFilterService(store, store, nil, "output", nil)
	confined := unconfined.Confine("data")

	tests := []struct {
		name   string
		req    usecases.FilterRequest
		reject string
	}{
		{"bare output", usecases.FilterRequest{Input: "data/in.geojson", Output: "kept.geojson"}, ""},
		{"nested input", usecases.FilterRequest{Input: "data/2024/in.geojson"}, ""},
		{"output in output dir", usecases.FilterRequest{Input: "data/in.geojson", Output: "output/sub/kept.geojson"}, ""},
		{"database", usecases.FilterRequest{Input: "pg:plates", Output: "pg:kept"}, ""},
		{"relative output escape", usecases.FilterRequest{Input: "data/in.geojson", Output: "../../srv/data.geojson"}, filter.ParamOutput},
		{"absolute output", usecases.FilterRequest{Input: "data/in.geojson", Output: "/etc/platekit/config.json"}, filter.ParamOutput},
		{"output into data dir", usecases.FilterRequest{Input: "data/in.geojson", Output: "data/in.geojson"}, filter.ParamOutput},
		{"input outside data dir", usecases.FilterRequest{Input: "output/x.geojson"}, filter.ParamInput},
		{"input dot-dot", usecases.FilterRequest{Input: "data/../config.json"}, filter.ParamInput},
		{"input is the data dir", usecases.FilterRequest{Input: "data"}, filter.ParamInput},
		{"other scheme", usecases.FilterRequest{Input: "s3:plates"}, filter.ParamInput},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if err := unconfined.CheckPaths(tc.req); err != nil {
				t.Fatalf("unconfined service must accept any path, got %v", err)
			}
			err := confined.CheckPaths(tc.req)
			if tc.reject == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			var pe *domain.ParamError
			if !errors.As(err, &pe) || pe.Param != tc.reject || !errors.Is(err, domain.ErrInvalidValue) {
				t.Fatalf("expected invalid %s, got %v", tc.reject, err)
			}
		})
	}
}

func TestFilterService_ConfinedRunTouchesNothing(t *testing.T) {
	store := &mockStore{}
	svc := usecases.NewFilterService(store, store, nil, "output", nil).Confine("data")

	req := plateRequest(801)
	req.Output = "../escaped.geojson"
	if _, err := svc.Run(context.Background(), req); !errors.Is(err, domain.ErrInvalidValue) {
		t.Fatalf("expected invalid value, got %v", err)
	}
	if len(store.loads) != 0 || len(store.writes) != 0 {
		t.Errorf("expected no I/O, got loads=%v writes=%v", store.loads, store.writes)
	}
}

func TestFilterService_LogsThroughContextLogger(t *testing.T) {
	store := &mockStore{}
	svc := usecases.NewFilterService(store, store, nil, "output", slog.New(slog.NewTextHandler(io.Discard, nil)))

	var buf bytes.Buffer
	ctx := logging.WithContext(context.Background(), slog.New(slog.NewTextHandler(&buf, nil)).With("request_id", "req-1"))
	res, err := svc.Run(ctx, plateRequest(801))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "request_id=req-1") || !strings.Contains(out, "run_id="+res.RunID) {
		t.Errorf("run was not logged through the request logger:\n%s", out)
	}
}
