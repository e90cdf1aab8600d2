package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/samirrijal/platekit/internal/bootstrap"
	"github.com/samirrijal/platekit/internal/core/domain"
	"github.com/samirrijal/platekit/internal/core/usecases"
	"github.com/samirrijal/platekit/internal/pkg/config"
	"github.com/samirrijal/platekit/internal/pkg/logging"
)

// Exit codes.
const (
	exitOK    = 0
	exitRun   = 1
	exitUsage = 2
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdout))
}

func run(ctx context.Context, argv []string, stdout io.Writer) int {
	v := viper.New()
	opt, err := parseArgs(newFlagSet("platefilter"), v, argv)
	if errors.Is(err, pflag.ErrHelp) {
		return exitOK
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "platefilter:", err)
		return exitUsage
	}

	cfg, err := config.LoadFrom("platefilter", v)
	if err != nil {
		fmt.Fprintln(os.Stderr, "platefilter:", err)
		return exitUsage
	}
	logging.SetupStderr(cfg.Log.Level, cfg.Log.Format)

	var fileParams map[string]any
	if opt.ParamsFile != "" {
		if fileParams, err = readParamsFile(opt.ParamsFile); err != nil {
			slog.Error("parameter file unusable", "error", err)
			return exitUsage
		}
	}
	req, err := usecases.RequestFromMap(opt.requestMap(fileParams))
	if err != nil {
		slog.Error("invalid parameters", "error", err)
		return exitUsage
	}

	backends, err := bootstrap.Open(ctx, cfg, slog.Default())
	if err != nil {
		slog.Error("backends unavailable", "error", err)
		return exitRun
	}
	defer backends.Close()

	res, err := backends.FilterService().Run(ctx, req)
	if err != nil {
		slog.Error("filter run failed", "error", err)
		if domain.IsInputError(err) {
			return exitUsage
		}
		return exitRun
	}

	if opt.JSON {
		err = writeJSON(stdout, res)
	} else {
		err = writeText(stdout, res)
	}
	if err != nil {
		slog.Error("write summary", "error", err)
		return exitRun
	}
	return exitOK
}

type summary struct {
	RunID      string      `json:"run_id"`
	Input      string      `json:"input"`
	InputSize  int         `json:"input_size"`
	OutputSize int         `json:"output_size"`
	Output     string      `json:"output,omitempty"`
	Written    bool        `json:"written"`
	FeatureIDs []string    `json:"feature_ids"`
	Stages     []stageLine `json:"stages"`
	ElapsedMs  int64       `json:"elapsed_ms"`
}

type stageLine struct {
	Position int            `json:"position"`
	Kind     int            `json:"kind"`
	Name     string         `json:"name"`
	Params   string         `json:"params"`
	In       int            `json:"in"`
	Out      int            `json:"out"`
	Counts   map[string]int `json:"counts,omitempty"`
}

func summarize(res *usecases.FilterResult) summary {
	s := summary{
		RunID:      res.RunID,
		Input:      res.Input,
		InputSize:  res.InputSize,
		OutputSize: res.Collection.Len(),
		Written:    res.Written,
		FeatureIDs: []string{},
		ElapsedMs:  res.Elapsed.Milliseconds(),
	}
	if res.Written {
		s.Output = res.Output
	}
	if res.Collection != nil {
		for _, f := range res.Collection.Features {
			s.FeatureIDs = append(s.FeatureIDs, f.ID)
		}
	}
	for _, st := range res.Stages {
		s.Stages = append(s.Stages, stageLine{
			Position: st.Position,
			Kind:     int(st.Kind),
			Name:     st.Name,
			Params:   st.Params,
			In:       st.In,
			Out:      st.Out,
			Counts:   st.Counts,
		})
	}
	return s
}

func writeJSON(w io.Writer, res *usecases.FilterResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(summarize(res))
}

func writeText(w io.Writer, res *usecases.FilterResult) error {
	s := summarize(res)
	if _, err := fmt.Fprintf(w, "loaded %d features from %s\n", s.InputSize, s.Input); err != nil {
		return err
	}
	for _, st := range s.Stages {
		if _, err := fmt.Fprintf(w, "%2d. [%d] %-28s %s: %d -> %d\n", st.Position, st.Kind, st.Name, st.Params, st.In, st.Out); err != nil {
			return err
		}
	}
	var err error
	switch {
	case s.OutputSize == 0:
		_, err = fmt.Fprintln(w, "no features survived the filter, nothing written")
	case s.Written:
		_, err = fmt.Fprintf(w, "wrote %d features to %s\n", s.OutputSize, s.Output)
	default:
		_, err = fmt.Fprintf(w, "%d features survived (no output requested)\n", s.OutputSize)
	}
	return err
}
