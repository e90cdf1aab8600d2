package domain

import (
	"time"
)

// RunStatus is the outcome of a filter run.
type RunStatus string

const (
	RunCompleted RunStatus = "completed"
	RunEmpty     RunStatus = "empty"
	RunFailed    RunStatus = "failed"
)

// StageSummary is the per-stage tally carried by run events.
type StageSummary struct {
	Position int            `json:"position"`
	Kind     int            `json:"kind"`
	Name     string         `json:"name"`
	In       int            `json:"in"`
	Out      int            `json:"out"`
	Counts   map[string]int `json:"counts,omitempty"`
}

// FilterRunEvent is published once a filter run finishes.
type FilterRunEvent struct {
	RunID      string         `json:"run_id"`
	Status     RunStatus      `json:"status"`
	Input      string         `json:"input"`
	Output     string         `json:"output,omitempty"`
	Sequence   []int          `json:"sequence"`
	InputSize  int            `json:"input_size"`
	OutputSize int            `json:"output_size"`
	Stages     []StageSummary `json:"stages,omitempty"`
	Error      string         `json:"error,omitempty"`
	DurationMs int64          `json:"duration_ms"`
	FinishedAt time.Time      `json:"finished_at"`
}

// CollectionInfo describes a stored collection.
type CollectionInfo struct {
	Name      string    `json:"name"`
	Features  int       `json:"features"`
	UpdatedAt time.Time `json:"updated_at"`
}
