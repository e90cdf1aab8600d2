package usecases

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/samirrijal/platekit/internal/core/domain"
	"github.com/samirrijal/platekit/internal/core/filter"
	"github.com/samirrijal/platekit/internal/core/ports"
	"github.com/samirrijal/platekit/internal/pkg/logging"
	"github.com/samirrijal/platekit/internal/pkg/metrics"
	"github.com/samirrijal/platekit/internal/pkg/telemetry"
)

// FilterRequest is one pipeline run: where to read, where to write, which
// stages to apply and with which parameters.
type FilterRequest struct {
	Input    string             `json:"inputFile"`
	Output   string             `json:"outputFile,omitempty"`
	Sequence []filter.StageKind `json:"filterSequence"`
	Params   filter.Params      `json:"params"`
}

// FilterResult is what a run produced.
type FilterResult struct {
	RunID      string                    `json:"run_id"`
	Input      string                    `json:"input"`
	InputSize  int                       `json:"input_size"`
	Collection *domain.FeatureCollection `json:"collection,omitempty"`
	Stages     []filter.StageReport      `json:"stages"`
	Output     string                    `json:"output,omitempty"`
	Written    bool                      `json:"written"`
	Elapsed    time.Duration             `json:"elapsed"`
}

// Empty reports whether no feature survived the run.
func (r *FilterResult) Empty() bool {
	return r == nil || r.Collection.Len() == 0
}

// FilterService loads a collection, runs a filter pipeline over it and
// stores the survivors.
type FilterService struct {
	reader    ports.CollectionReader
	writer    ports.CollectionWriter
	events    ports.EventPublisher
	outputDir string
	// dataDir bounds file inputs when confined is set.
	dataDir   string
	confined  bool
	logger    *slog.Logger
	newID     func() string
	now       func() time.Time
}

// NewFilterService creates a new FilterService. events may be nil.
func NewFilterService(reader ports.CollectionReader, writer ports.CollectionWriter, events ports.EventPublisher, outputDir string, logger *slog.Logger) *FilterService {
	if logger == nil {
		logger = slog.Default()
	}
	return &FilterService{
		reader:    reader,
		writer:    writer,
		events:    events,
		outputDir: outputDir,
		logger:    logger,
		newID:     uuid.NewString,
		now:       time.Now,
	}
}

// ResolveOutput places a bare file name under the output directory.
// Paths with a directory component and database targets are kept.
func (s *FilterService) ResolveOutput(output string) string {
	if output == "" || s.outputDir == "" || strings.Contains(output, ":") || strings.ContainsAny(output, `/\`) {
		return output
	}
	return filepath.Join(s.outputDir, output)
}

// Confine returns a copy of s that only reads files under dataDir and only
// writes files under the output directory. Database sources are not
// affected. Services reachable by remote clients must be confined.
func (s *FilterService) Confine(dataDir string) *FilterService {
	c := *s
	c.dataDir = dataDir
	c.confined = true
	return &c
}

// CheckPaths rejects, with ErrInvalidValue, a file input or output that a
// confined service may not touch. Unconfined services accept any path.
func (s *FilterService) CheckPaths(req FilterRequest) error {
	if !s.confined {
		return nil
	}
	if !strings.HasPrefix(req.Input, domain.DatabaseScheme) && !within(s.dataDir, req.Input) {
		return &domain.ParamError{Param: filter.ParamInput, Value: req.Input, Err: domain.ErrInvalidValue}
	}
	out := s.ResolveOutput(req.Output)
	if out != "" && !strings.HasPrefix(out, domain.DatabaseScheme) && !within(s.outputDir, out) {
		return &domain.ParamError{Param: filter.ParamOutput, Value: req.Output, Err: domain.ErrInvalidValue}
	}
	return nil
}

// within reports whether path names a file strictly below root.
func within(root, path string) bool {
	if root == "" {
		return false
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return false
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(absRoot, absPath)
	if err != nil || rel == "." {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// Run executes req. Parameters and the stage sequence are checked before
// any I/O; an empty result is reported but never written.
func (s *FilterService) Run(ctx context.Context, req FilterRequest) (*FilterResult, error) {
	start := s.now()
	runID := s.newID()
	logger := logging.FromContext(ctx, s.logger).With("run_id", runID)

	if strings.TrimSpace(req.Input) == "" {
		return nil, &domain.ParamError{Param: filter.ParamInput, Err: domain.ErrMissingParameter}
	}
	if err := s.CheckPaths(req); err != nil {
		return nil, err
	}

	ctx, span := telemetry.Tracer().Start(ctx, telemetry.SpanFilterRun, trace.WithAttributes(
		attribute.String(telemetry.AttrRunID, runID),
		attribute.String(telemetry.AttrInput, req.Input),
		attribute.String(telemetry.AttrSequence, sequenceString(req.Sequence)),
	))
	defer span.End()

	pipe, err := filter.FromSequence(req.Sequence, req.Params,
		filter.WithLogger(logger),
		filter.WithObserver(func(rep filter.StageReport) {
			metrics.ObserveStage(rep.Name, rep.In, rep.Out, rep.Elapsed)
			span.AddEvent(telemetry.SpanFilterStage, trace.WithAttributes(
				attribute.String(telemetry.AttrStage, rep.Name),
				attribute.Int(telemetry.AttrFeaturesIn, rep.In),
				attribute.Int(telemetry.AttrFeaturesOut, rep.Out),
			))
		}),
	)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		metrics.FilterRuns.WithLabelValues(string(domain.RunFailed)).Inc()
		return nil, err
	}

	res := &FilterResult{RunID: runID, Input: req.Input, Output: s.ResolveOutput(req.Output)}
	if res.Output != "" {
		span.SetAttributes(attribute.String(telemetry.AttrOutput, res.Output))
	}

	err = s.execute(ctx, pipe, res)
	res.Elapsed = s.now().Sub(start)

	status := domain.RunCompleted
	switch {
	case err != nil:
		status = domain.RunFailed
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.ErrorContext(ctx, "filter run failed", "input", req.Input, "error", err)
	case res.Empty():
		status = domain.RunEmpty
		logger.InfoContext(ctx, "no features survived the filter, nothing written", "input", req.Input)
	default:
		logger.InfoContext(ctx, "filter run complete",
			"input", req.Input, "output", res.Output, "written", res.Written,
			"features", res.Collection.Len(), "elapsed", res.Elapsed)
	}
	metrics.FilterRuns.WithLabelValues(string(status)).Inc()
	metrics.FilterRunDuration.Observe(res.Elapsed.Seconds())
	s.publish(ctx, logger, runEvent(req, res, status, err, s.now()))

	if err != nil {
		return nil, err
	}
	return res, nil
}

func (s *FilterService) execute(ctx context.Context, pipe *filter.Pipeline, res *FilterResult) error {
	loadCtx, loadSpan := telemetry.Tracer().Start(ctx, telemetry.SpanFilterLoad)
	src, err := s.reader.Load(loadCtx, res.Input)
	loadSpan.End()
	if err != nil {
		return fmt.Errorf("load %s: %w", res.Input, err)
	}
	res.InputSize = src.Len()

	out, err := pipe.Run(ctx, src)
	if err != nil {
		return err
	}
	res.Collection = out.Collection
	res.Stages = out.Stages

	if res.Output == "" || out.Empty() {
		return nil
	}
	writeCtx, writeSpan := telemetry.Tracer().Start(ctx, telemetry.SpanFilterWrite)
	defer writeSpan.End()
	if err := s.writer.Write(writeCtx, out.Collection, res.Output); err != nil {
		return fmt.Errorf("write %s: %w", res.Output, err)
	}
	res.Written = true
	return nil
}

func (s *FilterService) publish(ctx context.Context, logger *slog.Logger, event *domain.FilterRunEvent) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishFilterRun(context.WithoutCancel(ctx), event); err != nil {
		metrics.EventsPublished.WithLabelValues("error").Inc()
		logger.WarnContext(ctx, "publish run event failed", "error", err)
		return
	}
	metrics.EventsPublished.WithLabelValues("ok").Inc()
}

func runEvent(req FilterRequest, res *FilterResult, status domain.RunStatus, runErr error, finished time.Time) *domain.FilterRunEvent {
	ev := &domain.FilterRunEvent{
		RunID:      res.RunID,
		Status:     status,
		Input:      req.Input,
		InputSize:  res.InputSize,
		OutputSize: res.Collection.Len(),
		Sequence:   make([]int, len(req.Sequence)),
		DurationMs: res.Elapsed.Milliseconds(),
		FinishedAt: finished.UTC(),
	}
	if res.Written {
		ev.Output = res.Output
	}
	for i, k := range req.Sequence {
		ev.Sequence[i] = int(k)
	}
	for _, st := range res.Stages {
		ev.Stages = append(ev.Stages, domain.StageSummary{
			Position: st.Position,
			Kind:     int(st.Kind),
			Name:     st.Name,
			In:       st.In,
			Out:      st.Out,
			Counts:   st.Counts,
		})
	}
	if runErr != nil {
		ev.Error = runErr.Error()
	}
	return ev
}

func sequenceString(seq []filter.StageKind) string {
	parts := make([]string, len(seq))
	for i, k := range seq {
		parts[i] = fmt.Sprint(int(k))
	}
	return strings.Join(parts, ",")
}
