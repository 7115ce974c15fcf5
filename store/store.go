// Package store keeps the job log: one record per comparison job, updated as the job
// moves through its states.
package store

import (
	"context"
	"sort"

	"github.com/jupark12/pdf-diff/models"
)

// Recorder persists job records. Recording the same job again replaces its record.
type Recorder interface {
	Record(ctx context.Context, rec models.JobRecord) error
	// List returns the records of one session, or of every session when sessionID is
	// empty, ordered by session and job id.
	List(ctx context.Context, sessionID string) ([]models.JobRecord, error)
}

// Discard records nothing.
type Discard struct{}

func (Discard) Record(context.Context, models.JobRecord) error { return nil }

func (Discard) List(context.Context, string) ([]models.JobRecord, error) {
	return []models.JobRecord{}, nil
}

func sortRecords(recs []models.JobRecord) {
	sort.Slice(recs, func(i, j int) bool {
		if recs[i].SessionID != recs[j].SessionID {
			return recs[i].SessionID < recs[j].SessionID
		}
		return recs[i].JobID < recs[j].JobID
	})
}
