package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/erazemk/assetnexus/internal/model"
)

// NewLedgerEntry holds the attributes of an assignment or issuance being
// recorded.
type NewLedgerEntry struct {
	Date       time.Time
	ItemID     int64
	LocationID int64
	Remarks    string
	Signature  string
}

// LedgerFilter narrows ListLedgerEntries.
type LedgerFilter struct {
	ItemID         int64
	LocationID     int64
	Status         string
	IncludeDeleted bool
}

// LedgerChange carries the optional values written alongside a status change.
type LedgerChange struct {
	Remarks   *string
	Signature *string
	Reason    string
}

// ledgerSources lists, per target status, the statuses an entry may be in
// before the change.
var ledgerSources = map[string][]string{
	model.LedgerStatusSurrendered: {model.LedgerStatusActive},
	model.LedgerStatusTransferred: {model.LedgerStatusActive},
	model.LedgerStatusDeleted: {
		model.LedgerStatusActive,
		model.LedgerStatusSurrendered,
		model.LedgerStatusTransferred,
	},
}

func ledgerColumns(kind model.LedgerKind) string {
	return `e.id, e.date, e.item_id, e.location_id, e.assigned_by, e.remarks, e.signature, e.status,
	        e.created_at, e.created_by, e.updated_at, e.updated_by, e.deleted_at, e.deleted_by,
	        e.deleted_reason, i.name, i.barcode, l.name
	 FROM ` + kind.Table() + ` e
	 JOIN items i ON i.id = e.item_id
	 JOIN locations l ON l.id = e.location_id`
}

func scanLedgerEntry(kind model.LedgerKind, row interface{ Scan(...any) error }) (*model.LedgerEntry, error) {
	e := &model.LedgerEntry{Kind: kind}
	var remarks, signature, reason sql.NullString
	err := row.Scan(&e.ID, &e.Date, &e.ItemID, &e.LocationID, &e.AssignedBy, &remarks, &signature,
		&e.Status, &e.CreatedAt, &e.CreatedBy, &e.UpdatedAt, &e.UpdatedBy, &e.DeletedAt, &e.DeletedBy,
		&reason, &e.ItemName, &e.ItemBarcode, &e.LocationName)
	if err != nil {
		return nil, err
	}
	e.Remarks = remarks.String
	e.Signature = signature.String
	e.DeletedReason = reason.String
	return e, nil
}

// CreateLedgerEntry records a new active assignment or issuance. The item must
// exist and not be deleted, and the location must be an active location of
// the kind the ledger points at. Whether the item is free to be placed is
// decided by the caller.
func CreateLedgerEntry(ctx context.Context, q Querier, kind model.LedgerKind, in NewLedgerEntry, actor int64) (*model.LedgerEntry, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: unknown ledger kind %q", ErrInvalidInput, kind)
	}

	item, err := GetItem(ctx, q, in.ItemID)
	if err != nil {
		return nil, err
	}
	if item == nil || item.Status == model.ItemStatusDeleted {
		return nil, fmt.Errorf("%w: item %d", ErrReferenceNotFound, in.ItemID)
	}

	loc, err := GetLocation(ctx, q, in.LocationID)
	if err != nil {
		return nil, err
	}
	if loc == nil || loc.Status != model.LocationStatusActive || loc.Kind != kind.LocationKind() {
		return nil, fmt.Errorf("%w: %s %d", ErrReferenceNotFound, kind.LocationKind(), in.LocationID)
	}

	date := in.Date
	if date.IsZero() {
		date = now()
	}

	result, err := q.ExecContext(ctx,
		`INSERT INTO `+kind.Table()+` (date, item_id, location_id, assigned_by, remarks, signature, status, created_at, created_by)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		date, in.ItemID, in.LocationID, actor, nullString(in.Remarks), nullString(in.Signature),
		model.LedgerStatusActive, now(), actor,
	)
	if isUniqueViolation(err) {
		return nil, fmt.Errorf("%w: item %d already has an active %s", ErrInvalidTransition, in.ItemID, kind)
	}
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", kind, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting %s id: %w", kind, err)
	}

	return GetLedgerEntry(ctx, q, kind, id)
}

// GetLedgerEntry returns an entry by ID, in any status.
func GetLedgerEntry(ctx context.Context, q Querier, kind model.LedgerKind, id int64) (*model.LedgerEntry, error) {
	e, err := scanLedgerEntry(kind, q.QueryRowContext(ctx,
		`SELECT `+ledgerColumns(kind)+` WHERE e.id = ?`, id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting %s: %w", kind, err)
	}
	return e, nil
}

// FindActiveLedgerEntry returns the active entry for an item, or nil.
func FindActiveLedgerEntry(ctx context.Context, q Querier, kind model.LedgerKind, itemID int64) (*model.LedgerEntry, error) {
	e, err := scanLedgerEntry(kind, q.QueryRowContext(ctx,
		`SELECT `+ledgerColumns(kind)+` WHERE e.item_id = ? AND e.status = ?
		 ORDER BY e.id DESC LIMIT 1`, itemID, model.LedgerStatusActive,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("finding active %s: %w", kind, err)
	}
	return e, nil
}

// ListLedgerEntries returns entries newest first. Deleted entries are left
// out unless the filter asks for them.
func ListLedgerEntries(ctx context.Context, q Querier, kind model.LedgerKind, f LedgerFilter) ([]model.LedgerEntry, error) {
	query := `SELECT ` + ledgerColumns(kind) + ` WHERE 1=1`
	var args []any

	if f.ItemID > 0 {
		query += ` AND e.item_id = ?`
		args = append(args, f.ItemID)
	}
	if f.LocationID > 0 {
		query += ` AND e.location_id = ?`
		args = append(args, f.LocationID)
	}
	if f.Status != "" {
		query += ` AND e.status = ?`
		args = append(args, f.Status)
	} else if !f.IncludeDeleted {
		query += ` AND e.status != ?`
		args = append(args, model.LedgerStatusDeleted)
	}
	query += ` ORDER BY e.id DESC`

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing %s entries: %w", kind, err)
	}
	defer rows.Close()

	var entries []model.LedgerEntry
	for rows.Next() {
		e, err := scanLedgerEntry(kind, rows)
		if err != nil {
			return nil, fmt.Errorf("scanning %s: %w", kind, err)
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

// SetLedgerStatus moves an entry to status, provided its current status
// allows it. Deleting stamps the deletion metadata.
func SetLedgerStatus(ctx context.Context, q Querier, kind model.LedgerKind, id int64, status string, actor int64, c LedgerChange) (*model.LedgerEntry, error) {
	sources, ok := ledgerSources[status]
	if !ok {
		return nil, fmt.Errorf("%w: unknown %s status %q", ErrInvalidInput, kind, status)
	}

	t := now()
	set := []string{"status = ?", "updated_at = ?", "updated_by = ?"}
	args := []any{status, t, actor}
	if c.Remarks != nil {
		set = append(set, "remarks = ?")
		args = append(args, nullString(*c.Remarks))
	}
	if c.Signature != nil {
		set = append(set, "signature = ?")
		args = append(args, nullString(*c.Signature))
	}
	if status == model.LedgerStatusDeleted {
		set = append(set, "deleted_at = ?", "deleted_by = ?", "deleted_reason = ?")
		args = append(args, t, actor, nullString(c.Reason))
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(sources)), ", ")
	args = append(args, id)
	for _, s := range sources {
		args = append(args, s)
	}

	result, err := q.ExecContext(ctx,
		`UPDATE `+kind.Table()+` SET `+strings.Join(set, ", ")+`
		 WHERE id = ? AND status IN (`+placeholders+`)`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("updating %s status: %w", kind, err)
	}

	if n, _ := result.RowsAffected(); n == 0 {
		current, err := GetLedgerEntry(ctx, q, kind, id)
		if err != nil {
			return nil, err
		}
		if current == nil {
			return nil, fmt.Errorf("%w: %s %d", ErrNotFound, kind, id)
		}
		return nil, fmt.Errorf("%w: %s %d is %s, can not become %s", ErrInvalidTransition, kind, id, current.Status, status)
	}

	return GetLedgerEntry(ctx, q, kind, id)
}

// HasActivePlacement reports whether the item has an active assignment or an
// active issuance.
func HasActivePlacement(ctx context.Context, q Querier, itemID int64) (bool, error) {
	var count int
	err := q.QueryRowContext(ctx,
		`SELECT (SELECT COUNT(*) FROM assignments WHERE item_id = ? AND status = ?)
		      + (SELECT COUNT(*) FROM issuances WHERE item_id = ? AND status = ?)`,
		itemID, model.LedgerStatusActive, itemID, model.LedgerStatusActive,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("checking active placements: %w", err)
	}
	return count > 0, nil
}
