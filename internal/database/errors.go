package database

import "errors"

var (
	// ErrRunNotFound is returned when a run ID does not exist.
	ErrRunNotFound = errors.New("run not found")

	// ErrNotEnoughRuns is returned when a comparison needs two completed runs.
	ErrNotEnoughRuns = errors.New("at least two completed runs are required")
)
