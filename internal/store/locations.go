package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/erazemk/assetnexus/internal/model"
)

const locationColumns = `id, name, kind, status, created_at, created_by, updated_at, updated_by,
	deleted_at, deleted_by, deleted_reason FROM locations`

func scanLocation(row interface{ Scan(...any) error }) (*model.Location, error) {
	l := &model.Location{}
	var reason sql.NullString
	err := row.Scan(&l.ID, &l.Name, &l.Kind, &l.Status, &l.CreatedAt, &l.CreatedBy, &l.UpdatedAt,
		&l.UpdatedBy, &l.DeletedAt, &l.DeletedBy, &reason)
	if err != nil {
		return nil, err
	}
	l.DeletedReason = reason.String
	return l, nil
}

func validLocationKind(kind string) bool {
	return kind == model.LocationKindRoom || kind == model.LocationKindArea
}

// CreateLocation creates a new room or area.
func CreateLocation(ctx context.Context, q Querier, name, kind string, actor int64) (*model.Location, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: name required", ErrInvalidInput)
	}
	if !validLocationKind(kind) {
		return nil, fmt.Errorf("%w: unknown location kind %q", ErrInvalidInput, kind)
	}

	result, err := q.ExecContext(ctx,
		`INSERT INTO locations (name, kind, status, created_at, created_by) VALUES (?, ?, ?, ?, ?)`,
		name, kind, model.LocationStatusActive, now(), actor,
	)
	if isUniqueViolation(err) {
		return nil, fmt.Errorf("%w: %s %q already exists", ErrDuplicateKey, kind, name)
	}
	if err != nil {
		return nil, fmt.Errorf("creating location: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting location id: %w", err)
	}

	return GetLocation(ctx, q, id)
}

// GetLocation returns a location by ID, in any status.
func GetLocation(ctx context.Context, q Querier, id int64) (*model.Location, error) {
	l, err := scanLocation(q.QueryRowContext(ctx, `SELECT `+locationColumns+` WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting location: %w", err)
	}
	return l, nil
}

// ListLocations returns all active locations of a kind, or of every kind
// when kind is empty.
func ListLocations(ctx context.Context, q Querier, kind string) ([]model.Location, error) {
	query := `SELECT ` + locationColumns + ` WHERE status = ?`
	args := []any{model.LocationStatusActive}
	if kind != "" {
		query += ` AND kind = ?`
		args = append(args, kind)
	}
	query += ` ORDER BY name`

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing locations: %w", err)
	}
	defer rows.Close()

	var locations []model.Location
	for rows.Next() {
		l, err := scanLocation(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning location: %w", err)
		}
		locations = append(locations, *l)
	}
	return locations, rows.Err()
}

// RenameLocation changes an active location's name.
func RenameLocation(ctx context.Context, q Querier, id int64, name string, actor int64) (*model.Location, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: name required", ErrInvalidInput)
	}

	result, err := q.ExecContext(ctx,
		`UPDATE locations SET name = ?, updated_at = ?, updated_by = ? WHERE id = ? AND status = ?`,
		name, now(), actor, id, model.LocationStatusActive,
	)
	if isUniqueViolation(err) {
		return nil, fmt.Errorf("%w: location %q already exists", ErrDuplicateKey, name)
	}
	if err != nil {
		return nil, fmt.Errorf("updating location: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return nil, fmt.Errorf("%w: location %d", ErrNotFound, id)
	}
	return GetLocation(ctx, q, id)
}

// DeleteLocation soft-deletes a location. Fails while any item is actively
// placed there.
func DeleteLocation(ctx context.Context, q Querier, id int64, reason string, actor int64) error {
	loc, err := GetLocation(ctx, q, id)
	if err != nil {
		return err
	}
	if loc == nil || loc.Status != model.LocationStatusActive {
		return fmt.Errorf("%w: location %d", ErrNotFound, id)
	}

	table := model.LedgerAssignment.Table()
	if loc.Kind == model.LocationKindArea {
		table = model.LedgerIssuance.Table()
	}
	var count int
	err = q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM `+table+` WHERE location_id = ? AND status = ?`,
		id, model.LedgerStatusActive,
	).Scan(&count)
	if err != nil {
		return fmt.Errorf("checking location placements: %w", err)
	}
	if count > 0 {
		return fmt.Errorf("%w: %s still holds %d items", ErrInvalidTransition, loc.Kind, count)
	}

	t := now()
	_, err = q.ExecContext(ctx,
		`UPDATE locations SET status = ?, deleted_at = ?, deleted_by = ?, deleted_reason = ?,
		        updated_at = ?, updated_by = ?
		 WHERE id = ? AND status = ?`,
		model.LocationStatusDeleted, t, actor, nullString(reason), t, actor, id, model.LocationStatusActive,
	)
	if err != nil {
		return fmt.Errorf("deleting location: %w", err)
	}
	return nil
}
