package database

import (
	"context"
	"fmt"

	"github.com/nao1215/drugindex/internal/model"
)

// ChangeKind classifies how a bucket differs between two runs.
type ChangeKind string

const (
	// ChangeModified means both runs fetched the page and the hashes differ.
	ChangeModified ChangeKind = "modified"

	// ChangeAppeared means both runs attempted the bucket and only the newer one succeeded.
	ChangeAppeared ChangeKind = "appeared"

	// ChangeVanished means both runs attempted the bucket and only the older one succeeded.
	ChangeVanished ChangeKind = "vanished"
)

// BucketChange describes one bucket whose index page differs between runs.
type BucketChange struct {
	Bucket        model.Bucket
	Kind          ChangeKind
	PreviousHash  string
	CurrentHash   string
	PreviousCount int
	CurrentCount  int
}

// RunComparison lists the buckets that changed between two runs.
type RunComparison struct {
	PreviousRunID int64
	CurrentRunID  int64
	Changes       []BucketChange
}

// CompareRuns compares two runs bucket by bucket using page hashes.
// Only buckets attempted by both runs are compared, so a subset or
// interrupted run does not report the buckets it skipped. Buckets that
// failed in both runs, or whose hashes match, are not reported.
func (idb *IndexDB) CompareRuns(ctx context.Context, previousID, currentID int64) (*RunComparison, error) {
	prevAll, err := idb.attemptedBuckets(ctx, previousID)
	if err != nil {
		return nil, err
	}
	currAll, err := idb.attemptedBuckets(ctx, currentID)
	if err != nil {
		return nil, err
	}

	cmp := &RunComparison{
		PreviousRunID: previousID,
		CurrentRunID:  currentID,
		Changes:       make([]BucketChange, 0),
	}
	for _, b := range model.Buckets() {
		p, attemptedPrev := prevAll[b]
		c, attemptedCurr := currAll[b]
		if !attemptedPrev || !attemptedCurr {
			continue
		}
		inPrev := p.Status == model.StatusOK
		inCurr := c.Status == model.StatusOK
		switch {
		case inPrev && inCurr:
			if p.PageHash == c.PageHash {
				continue
			}
			cmp.Changes = append(cmp.Changes, BucketChange{
				Bucket:        b,
				Kind:          ChangeModified,
				PreviousHash:  p.PageHash,
				CurrentHash:   c.PageHash,
				PreviousCount: p.EntryCount,
				CurrentCount:  c.EntryCount,
			})
		case inCurr:
			cmp.Changes = append(cmp.Changes, BucketChange{
				Bucket:       b,
				Kind:         ChangeAppeared,
				CurrentHash:  c.PageHash,
				CurrentCount: c.EntryCount,
			})
		case inPrev:
			cmp.Changes = append(cmp.Changes, BucketChange{
				Bucket:        b,
				Kind:          ChangeVanished,
				PreviousHash:  p.PageHash,
				PreviousCount: p.EntryCount,
			})
		}
	}
	return cmp, nil
}

// ChangedBuckets compares the two most recent finished, non-denied runs.
func (idb *IndexDB) ChangedBuckets(ctx context.Context) (*RunComparison, error) {
	rows, err := idb.db.QueryContext(ctx, `
	SELECT id FROM runs
	WHERE finished_at != '' AND denied = 0
	ORDER BY id DESC
	LIMIT 2
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to find recent runs: %w", err)
	}
	defer rows.Close()

	ids := make([]int64, 0, 2)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan run id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) < 2 {
		return nil, ErrNotEnoughRuns
	}
	return idb.CompareRuns(ctx, ids[1], ids[0])
}

func (idb *IndexDB) attemptedBuckets(ctx context.Context, runID int64) (map[model.Bucket]BucketResult, error) {
	if _, err := idb.GetRun(ctx, runID); err != nil {
		return nil, err
	}
	results, err := idb.GetBucketResults(ctx, runID)
	if err != nil {
		return nil, err
	}
	attempted := make(map[model.Bucket]BucketResult, len(results))
	for _, r := range results {
		attempted[r.Bucket] = r
	}
	return attempted, nil
}
