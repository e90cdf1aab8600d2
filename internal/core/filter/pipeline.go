// Package filter narrows a feature collection through an ordered sequence
// of predicate stages. Each stage reads the previous stage's output and
// builds a new collection; the input is never modified.
package filter

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/samirrijal/platekit/internal/core/domain"
)

// StageReport describes one executed stage.
type StageReport struct {
	Position int            `json:"position"`
	Kind     StageKind      `json:"kind"`
	Name     string         `json:"name"`
	Params   string         `json:"params"`
	In       int            `json:"in"`
	Out      int            `json:"out"`
	Counts   map[string]int `json:"counts,omitempty"`
	Elapsed  time.Duration  `json:"elapsed"`
}

// Result is the collection surviving the last stage.
type Result struct {
	Collection *domain.FeatureCollection
	Stages     []StageReport
}

// Empty reports whether no feature survived.
func (r *Result) Empty() bool {
	return r == nil || r.Collection.Len() == 0
}

type compiledStage struct {
	Stage
	match  matcher
	params string
}

// Pipeline is a validated, ready-to-run stage sequence.
type Pipeline struct {
	stages   []compiledStage
	logger   *slog.Logger
	observer func(StageReport)
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger used for per-stage progress.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithObserver registers a callback invoked after every stage.
func WithObserver(fn func(StageReport)) Option {
	return func(p *Pipeline) { p.observer = fn }
}

// New compiles stages in order. Any invalid stage fails the whole
// pipeline before anything runs.
func New(stages []Stage, opts ...Option) (*Pipeline, error) {
	p := &Pipeline{logger: slog.Default()}
	for _, o := range opts {
		o(p)
	}
	for _, s := range stages {
		if err := p.Append(s); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// FromSequence builds a pipeline where every stage shares one Params value,
// the form used by parameter files and the command line.
func FromSequence(seq []StageKind, params Params, opts ...Option) (*Pipeline, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	stages := make([]Stage, len(seq))
	for i, k := range seq {
		stages[i] = Stage{Kind: k, Params: params}
	}
	return New(stages, opts...)
}

// Append adds a stage at the end. The same kind may appear any number of
// times; each occurrence runs with its own parameters.
func (p *Pipeline) Append(s Stage) error {
	m, desc, err := compile(s)
	if err != nil {
		return fmt.Errorf("stage %d: %w", len(p.stages)+1, err)
	}
	p.stages = append(p.stages, compiledStage{Stage: s, match: m, params: desc})
	return nil
}

// Len returns the number of stages.
func (p *Pipeline) Len() int { return len(p.stages) }

// Kinds returns the stage kinds in execution order.
func (p *Pipeline) Kinds() []StageKind {
	out := make([]StageKind, len(p.stages))
	for i, s := range p.stages {
		out[i] = s.Kind
	}
	return out
}

// Run folds the stages over src. With no stages the result is a copy of
// src. The context is checked between stages.
func (p *Pipeline) Run(ctx context.Context, src *domain.FeatureCollection) (*Result, error) {
	if src == nil {
		src = &domain.FeatureCollection{}
	}
	acc := &domain.FeatureCollection{Name: src.Name, Features: append([]domain.Feature(nil), src.Features...)}
	res := &Result{Stages: make([]StageReport, 0, len(p.stages))}

	for i, s := range p.stages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		start := time.Now()
		next, counts := s.apply(acc)
		rep := StageReport{
			Position: i + 1,
			Kind:     s.Kind,
			Name:     s.Kind.String(),
			Params:   s.params,
			In:       acc.Len(),
			Out:      next.Len(),
			Counts:   counts,
			Elapsed:  time.Since(start),
		}
		res.Stages = append(res.Stages, rep)

		attrs := []any{
			"position", rep.Position,
			"stage", int(rep.Kind),
			"filter", rep.Name,
			"params", rep.Params,
			"in", rep.In,
			"found", rep.Out,
		}
		for tag, n := range counts {
			attrs = append(attrs, "found_"+tag, n)
		}
		p.logger.InfoContext(ctx, "filter stage", attrs...)
		if p.observer != nil {
			p.observer(rep)
		}
		acc = next
	}

	res.Collection = acc
	return res, nil
}

func (s compiledStage) apply(in *domain.FeatureCollection) (*domain.FeatureCollection, map[string]int) {
	var counts map[string]int
	if s.Kind == StageFeatureType || s.Kind == StageGeometryType {
		counts = make(map[string]int)
	}
	out := &domain.FeatureCollection{Name: in.Name, Features: []domain.Feature{}}
	for i := range in.Features {
		f := &in.Features[i]
		if s.match(f, counts) {
			out.Features = append(out.Features, *f)
		}
	}
	return out, counts
}
