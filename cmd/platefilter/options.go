package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/samirrijal/platekit/internal/core/filter"
)

// stageFlag binds a command-line flag to a stage parameter. List flags take
// comma separated values; the rest are passed through as one string.
type stageFlag struct {
	name  string
	param string
	list  bool
	usage string
}

var stageFlags = []stageFlag{
	{"rplate-id", filter.ParamReconstructionPlateID, true, "reconstruction plate ids (stage 1), e.g. 801,802"},
	{"cplate-id", filter.ParamConjugatePlateID, true, "conjugate plate ids (stage 2)"},
	{"appear-window", filter.ParamAppearanceWindow, false, "appearance age window old,young in Ma (stage 3), DP/DF allowed"},
	{"disappear-window", filter.ParamDisappearanceWindow, false, "disappearance age window old,young (stage 4)"},
	{"bbox", filter.ParamBoundingBox, false, "bounding box lonMin,lonMax,latMin,latMax (stage 5), longitudes 0-360"},
	{"exists-window", filter.ParamExistenceWindow, false, "existence age window old,young (stage 6)"},
	{"feature-type", filter.ParamFeatureType, true, "feature types (stage 7), ALL for every type"},
	{"geometry-type", filter.ParamGeometryType, true, "geometry types (stage 8), ALL for every type"},
	{"feature-id", filter.ParamFeatureID, true, "feature ids (stage 9)"},
	{"feature-name", filter.ParamFeatureName, true, "case-insensitive name fragments (stage 10)"},
}

type options struct {
	ParamsFile string
	Input      string
	Output     string
	Sequence   []int
	JSON       bool

	// Stage holds the stage parameters given on the command line.
	Stage map[string]any

	sequenceSet bool
}

func newFlagSet(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SortFlags = false
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `%s: filter tectonic feature collections

Usage of %s:
`, name, name)
		fs.PrintDefaults()
	}
	return fs
}

// parseArgs registers every flag on fs, parses argv and binds the
// configuration flags into v.
func parseArgs(fs *pflag.FlagSet, v *viper.Viper, argv []string) (options, error) {
	var opt options

	fs.StringVarP(&opt.ParamsFile, "params", "p", "", "parameter file (yaml, json or toml) with inputFile, filterSequence and stage parameters")
	fs.StringVarP(&opt.Input, "input", "i", "", "input collection: a .geojson file or pg:<name>")
	fs.StringVarP(&opt.Output, "output", "o", "", "output collection; a bare file name goes to the output directory")
	fs.IntSliceVarP(&opt.Sequence, "sequence", "s", nil, "stage numbers in the order they run, e.g. 1,3,5")
	fs.BoolVar(&opt.JSON, "json", false, "print the run summary as JSON")

	fs.String("config", "", "config file")
	fs.String("output-dir", "", "directory for bare output names")
	fs.String("log-level", "", "log level: debug, info, warn, error")
	fs.String("log-format", "", "log format: json or text")

	lists := make(map[string]*[]string)
	scalars := make(map[string]*string)
	for _, sf := range stageFlags {
		if sf.list {
			lists[sf.name] = fs.StringSlice(sf.name, nil, sf.usage)
		} else {
			scalars[sf.name] = fs.String(sf.name, "", sf.usage)
		}
	}

	if err := fs.Parse(argv); err != nil {
		return opt, err
	}
	if fs.NArg() > 0 {
		return opt, fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}

	for key, flag := range map[string]string{
		"config":            "config",
		"filter.output_dir": "output-dir",
		"log.level":         "log-level",
		"log.format":        "log-format",
	} {
		if err := v.BindPFlag(key, fs.Lookup(flag)); err != nil {
			return opt, fmt.Errorf("bind %s: %w", flag, err)
		}
	}

	opt.sequenceSet = fs.Changed("sequence")
	opt.Stage = make(map[string]any)
	for _, sf := range stageFlags {
		if !fs.Changed(sf.name) {
			continue
		}
		if sf.list {
			opt.Stage[sf.param] = *lists[sf.name]
		} else {
			opt.Stage[sf.param] = *scalars[sf.name]
		}
	}

	if opt.ParamsFile == "" && opt.Input == "" {
		return opt, fmt.Errorf("one of --params or --input is required")
	}
	return opt, nil
}

// readParamsFile loads a parameter file into a flat map. Keys come back
// lower-cased; parameter matching is case-insensitive.
func readParamsFile(path string) (map[string]any, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read params %s: %w", path, err)
	}
	return v.AllSettings(), nil
}

// requestMap merges the parameter file with command-line values, which win.
func (o options) requestMap(fileParams map[string]any) map[string]any {
	m := make(map[string]any, len(fileParams)+len(o.Stage)+3)
	for k, v := range fileParams {
		m[k] = v
	}
	override := func(param string, v any) {
		for k := range m {
			if strings.EqualFold(k, param) {
				delete(m, k)
			}
		}
		m[param] = v
	}
	if o.Input != "" {
		override(filter.ParamInput, o.Input)
	}
	if o.Output != "" {
		override(filter.ParamOutput, o.Output)
	}
	if o.sequenceSet {
		override(filter.ParamSequence, o.Sequence)
	}
	for param, v := range o.Stage {
		override(param, v)
	}
	return m
}
