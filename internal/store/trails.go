package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/erazemk/assetnexus/internal/model"
)

// TrailFilter narrows ListTrails.
type TrailFilter struct {
	Entity     string
	EntityRef  *model.EntityRef
	Unreviewed bool
	Limit      int
}

// DefaultTrailLimit caps trail listings when no limit is given.
const DefaultTrailLimit = 200

const trailColumns = `id, actor_id, action, entity, entity_kind, entity_ref, details, origin,
	created_at, viewed_at, viewed_by FROM trails`

func scanTrail(row interface{ Scan(...any) error }) (*model.TrailEntry, error) {
	e := &model.TrailEntry{}
	var details, origin sql.NullString
	err := row.Scan(&e.ID, &e.ActorID, &e.Action, &e.Entity, &e.EntityRef.Kind, &e.EntityRef.Value,
		&details, &origin, &e.CreatedAt, &e.ViewedAt, &e.ViewedBy)
	if err != nil {
		return nil, err
	}
	e.Details = details.String
	e.Origin = origin.String
	return e, nil
}

// InsertTrail appends an entry to the audit trail. CreatedAt is stamped here
// when the caller leaves it zero.
func InsertTrail(ctx context.Context, q Querier, e model.TrailEntry) (*model.TrailEntry, error) {
	if e.Action == "" || e.Entity == "" {
		return nil, fmt.Errorf("%w: trail entry needs an action and an entity", ErrInvalidInput)
	}
	if e.EntityRef.Kind != model.EntityRefID && e.EntityRef.Kind != model.EntityRefLabel {
		return nil, fmt.Errorf("%w: unknown entity reference kind %q", ErrInvalidInput, e.EntityRef.Kind)
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now()
	}

	result, err := q.ExecContext(ctx,
		`INSERT INTO trails (actor_id, action, entity, entity_kind, entity_ref, details, origin, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ActorID, e.Action, e.Entity, string(e.EntityRef.Kind), e.EntityRef.Value,
		nullString(e.Details), nullString(e.Origin), e.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("recording trail entry: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting trail id: %w", err)
	}
	return GetTrail(ctx, q, id)
}

// GetTrail returns a trail entry by ID.
func GetTrail(ctx context.Context, q Querier, id int64) (*model.TrailEntry, error) {
	e, err := scanTrail(q.QueryRowContext(ctx, `SELECT `+trailColumns+` WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting trail entry: %w", err)
	}
	return e, nil
}

// ListTrails returns trail entries newest first.
func ListTrails(ctx context.Context, q Querier, f TrailFilter) ([]model.TrailEntry, error) {
	query := `SELECT ` + trailColumns + ` WHERE 1=1`
	var args []any

	if f.Entity != "" {
		query += ` AND entity = ?`
		args = append(args, f.Entity)
	}
	if f.EntityRef != nil {
		query += ` AND entity_kind = ? AND entity_ref = ?`
		args = append(args, string(f.EntityRef.Kind), f.EntityRef.Value)
	}
	if f.Unreviewed {
		query += ` AND viewed_at IS NULL`
	}

	limit := f.Limit
	if limit <= 0 {
		limit = DefaultTrailLimit
	}
	query += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing trail: %w", err)
	}
	defer rows.Close()

	var entries []model.TrailEntry
	for rows.Next() {
		e, err := scanTrail(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning trail entry: %w", err)
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

// CountUnreviewedTrails returns how many entries nobody has reviewed yet.
func CountUnreviewedTrails(ctx context.Context, q Querier) (int, error) {
	var count int
	err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM trails WHERE viewed_at IS NULL`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting unreviewed trail entries: %w", err)
	}
	return count, nil
}

// MarkTrailReviewed stamps the review marking on an entry. The first reviewer
// wins; marking an already reviewed entry changes nothing.
func MarkTrailReviewed(ctx context.Context, q Querier, id, reviewer int64) (*model.TrailEntry, error) {
	_, err := q.ExecContext(ctx,
		`UPDATE trails SET viewed_at = ?, viewed_by = ? WHERE id = ? AND viewed_at IS NULL`,
		now(), reviewer, id,
	)
	if err != nil {
		return nil, fmt.Errorf("marking trail entry reviewed: %w", err)
	}

	e, err := GetTrail(ctx, q, id)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, fmt.Errorf("%w: trail entry %d", ErrNotFound, id)
	}
	return e, nil
}
