package database

import (
	"context"

	"github.com/nao1215/drugindex/internal/model"
)

// RunRecorder records bucket outcomes for one run as they happen.
// It satisfies crawler.Recorder.
type RunRecorder struct {
	db    *IndexDB
	runID int64
}

// Recorder returns a RunRecorder bound to runID.
func (idb *IndexDB) Recorder(runID int64) *RunRecorder {
	return &RunRecorder{db: idb, runID: runID}
}

// RunID returns the run the recorder writes to.
func (r *RunRecorder) RunID() int64 {
	return r.runID
}

// RecordOutcome stores one bucket outcome.
func (r *RunRecorder) RecordOutcome(ctx context.Context, o model.BucketOutcome) error {
	return r.db.RecordBucket(ctx, r.runID, o)
}
