// Package trail records who did what to which entity.
package trail

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/erazemk/assetnexus/internal/metrics"
	"github.com/erazemk/assetnexus/internal/model"
	"github.com/erazemk/assetnexus/internal/store"
)

// Recorder appends trail entries. Recording never fails the caller: a lost
// entry is logged and counted.
type Recorder struct {
	DB      *sql.DB
	Metrics *metrics.Metrics
}

// NewRecorder creates a Recorder writing to db.
func NewRecorder(db *sql.DB, m *metrics.Metrics) *Recorder {
	return &Recorder{DB: db, Metrics: m}
}

// Record appends one entry. It returns nothing on purpose.
func (r *Recorder) Record(ctx context.Context, e model.TrailEntry) {
	// The entry belongs to a change that already happened, so it is written
	// even if the request that caused it has been cancelled.
	ctx = context.WithoutCancel(ctx)

	if _, err := store.InsertTrail(ctx, r.DB, e); err != nil {
		slog.Error("recording trail entry failed",
			"action", e.Action,
			"entity", e.Entity,
			"ref", e.EntityRef.String(),
			"actor", e.ActorID,
			"error", err,
		)
		r.Metrics.TrailFailure()
	}
}

// List returns trail entries newest first.
func (r *Recorder) List(ctx context.Context, f store.TrailFilter) ([]model.TrailEntry, error) {
	return store.ListTrails(ctx, r.DB, f)
}

// CountUnreviewed returns the number of entries nobody has reviewed.
func (r *Recorder) CountUnreviewed(ctx context.Context) (int, error) {
	return store.CountUnreviewedTrails(ctx, r.DB)
}

// MarkReviewed stamps an entry as reviewed. Repeating it is harmless and
// keeps the first reviewer.
func (r *Recorder) MarkReviewed(ctx context.Context, id, reviewer int64) (*model.TrailEntry, error) {
	return store.MarkTrailReviewed(ctx, r.DB, id, reviewer)
}
