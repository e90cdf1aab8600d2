package telemetry

// Span and attribute names used for instrumentation.
const (
	SpanFilterRun   = "filter.run"
	SpanFilterLoad  = "filter.load"
	SpanFilterStage = "filter.stage"
	SpanFilterWrite = "filter.write"

	AttrRunID       = "platekit.run_id"
	AttrInput       = "platekit.input"
	AttrOutput      = "platekit.output"
	AttrSequence    = "platekit.sequence"
	AttrStage       = "platekit.stage"
	AttrFeaturesIn  = "platekit.features_in"
	AttrFeaturesOut = "platekit.features_out"
)
