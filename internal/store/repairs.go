package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/erazemk/assetnexus/internal/model"
)

// NewRepair holds the attributes of a reported breakage.
type NewRepair struct {
	Date       time.Time
	ItemID     int64
	Problem    string
	ReportedBy int64
}

// RepairFilter narrows ListRepairs.
type RepairFilter struct {
	ItemID         int64
	Status         string
	IncludeDeleted bool
}

const repairColumns = `r.id, r.date, r.item_id, r.problem, r.reported_by, r.diagnosis, r.checked_by,
	r.defect_reason, r.status, r.created_at, r.created_by, r.updated_at, r.updated_by,
	r.deleted_at, r.deleted_by, r.deleted_reason, i.name
	FROM repairs r JOIN items i ON i.id = r.item_id`

func scanRepair(row interface{ Scan(...any) error }) (*model.Repair, error) {
	r := &model.Repair{}
	var diagnosis, defect, reason sql.NullString
	err := row.Scan(&r.ID, &r.Date, &r.ItemID, &r.Problem, &r.ReportedBy, &diagnosis, &r.CheckedBy,
		&defect, &r.Status, &r.CreatedAt, &r.CreatedBy, &r.UpdatedAt, &r.UpdatedBy,
		&r.DeletedAt, &r.DeletedBy, &reason, &r.ItemName)
	if err != nil {
		return nil, err
	}
	r.Diagnosis = diagnosis.String
	r.DefectReason = defect.String
	r.DeletedReason = reason.String
	return r, nil
}

// CreateRepair records a new ongoing repair for an item that is not deleted.
func CreateRepair(ctx context.Context, q Querier, in NewRepair, actor int64) (*model.Repair, error) {
	if strings.TrimSpace(in.Problem) == "" {
		return nil, fmt.Errorf("%w: problem required", ErrInvalidInput)
	}

	item, err := GetItem(ctx, q, in.ItemID)
	if err != nil {
		return nil, err
	}
	if item == nil || item.Status == model.ItemStatusDeleted {
		return nil, fmt.Errorf("%w: item %d", ErrReferenceNotFound, in.ItemID)
	}

	reporter := in.ReportedBy
	if reporter == 0 {
		reporter = actor
	}
	date := in.Date
	if date.IsZero() {
		date = now()
	}

	result, err := q.ExecContext(ctx,
		`INSERT INTO repairs (date, item_id, problem, reported_by, status, created_at, created_by)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		date, in.ItemID, strings.TrimSpace(in.Problem), reporter, model.RepairStatusOngoing, now(), actor,
	)
	if isForeignKeyViolation(err) {
		return nil, fmt.Errorf("%w: reporter %d", ErrReferenceNotFound, reporter)
	}
	if err != nil {
		return nil, fmt.Errorf("creating repair: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting repair id: %w", err)
	}

	return GetRepair(ctx, q, id)
}

// GetRepair returns a repair by ID, in any status.
func GetRepair(ctx context.Context, q Querier, id int64) (*model.Repair, error) {
	r, err := scanRepair(q.QueryRowContext(ctx, `SELECT `+repairColumns+` WHERE r.id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting repair: %w", err)
	}
	return r, nil
}

// ListRepairs returns repairs newest first, leaving out deleted ones unless
// asked to include them.
func ListRepairs(ctx context.Context, q Querier, f RepairFilter) ([]model.Repair, error) {
	query := `SELECT ` + repairColumns + ` WHERE 1=1`
	var args []any

	if f.ItemID > 0 {
		query += ` AND r.item_id = ?`
		args = append(args, f.ItemID)
	}
	if f.Status != "" {
		query += ` AND r.status = ?`
		args = append(args, f.Status)
	} else if !f.IncludeDeleted {
		query += ` AND r.status != ?`
		args = append(args, model.RepairStatusDeleted)
	}
	query += ` ORDER BY r.id DESC`

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing repairs: %w", err)
	}
	defer rows.Close()

	var repairs []model.Repair
	for rows.Next() {
		r, err := scanRepair(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning repair: %w", err)
		}
		repairs = append(repairs, *r)
	}
	return repairs, rows.Err()
}

// CompleteRepair closes an ongoing repair as fixed. The checker defaults to
// the acting user.
func CompleteRepair(ctx context.Context, q Querier, id int64, diagnosis string, checkedBy *int64, actor int64) (*model.Repair, error) {
	checker := actor
	if checkedBy != nil && *checkedBy > 0 {
		checker = *checkedBy
	}
	return closeRepair(ctx, q, id, model.RepairStatusCompleted,
		`diagnosis = ?, checked_by = ?`, []any{nullString(diagnosis), checker}, actor)
}

// MarkRepairDefective closes an ongoing repair as beyond repair.
func MarkRepairDefective(ctx context.Context, q Querier, id int64, reason string, actor int64) (*model.Repair, error) {
	return closeRepair(ctx, q, id, model.RepairStatusDefective,
		`defect_reason = ?`, []any{nullString(reason)}, actor)
}

func closeRepair(ctx context.Context, q Querier, id int64, status, set string, setArgs []any, actor int64) (*model.Repair, error) {
	args := append([]any{status}, setArgs...)
	args = append(args, now(), actor, id, model.RepairStatusOngoing)

	result, err := q.ExecContext(ctx,
		`UPDATE repairs SET status = ?, `+set+`, updated_at = ?, updated_by = ?
		 WHERE id = ? AND status = ?`,
		args...,
	)
	if isForeignKeyViolation(err) {
		return nil, fmt.Errorf("%w: checking user", ErrReferenceNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("closing repair: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return nil, repairMiss(ctx, q, id, status)
	}
	return GetRepair(ctx, q, id)
}

// DeleteRepair soft-deletes a repair in any status other than deleted.
func DeleteRepair(ctx context.Context, q Querier, id int64, reason string, actor int64) (*model.Repair, error) {
	t := now()
	result, err := q.ExecContext(ctx,
		`UPDATE repairs SET status = ?, deleted_at = ?, deleted_by = ?, deleted_reason = ?,
		        updated_at = ?, updated_by = ?
		 WHERE id = ? AND status != ?`,
		model.RepairStatusDeleted, t, actor, nullString(reason), t, actor, id, model.RepairStatusDeleted,
	)
	if err != nil {
		return nil, fmt.Errorf("deleting repair: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return nil, fmt.Errorf("%w: repair %d", ErrNotFound, id)
	}
	return GetRepair(ctx, q, id)
}

func repairMiss(ctx context.Context, q Querier, id int64, target string) error {
	current, err := GetRepair(ctx, q, id)
	if err != nil {
		return err
	}
	if current == nil || current.Status == model.RepairStatusDeleted {
		return fmt.Errorf("%w: repair %d", ErrNotFound, id)
	}
	return fmt.Errorf("%w: repair %d is %s, can not become %s", ErrInvalidTransition, id, current.Status, target)
}

// HasOngoingRepair reports whether the item has a repair still in progress.
func HasOngoingRepair(ctx context.Context, q Querier, itemID int64) (bool, error) {
	var count int
	err := q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM repairs WHERE item_id = ? AND status = ?`,
		itemID, model.RepairStatusOngoing,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("checking ongoing repairs: %w", err)
	}
	return count > 0, nil
}

// LatestRepairStatus returns the status of the most recent non-deleted
// repair of an item, or "" if there is none.
func LatestRepairStatus(ctx context.Context, q Querier, itemID int64) (string, error) {
	var status string
	err := q.QueryRowContext(ctx,
		`SELECT status FROM repairs WHERE item_id = ? AND status != ? ORDER BY id DESC LIMIT 1`,
		itemID, model.RepairStatusDeleted,
	).Scan(&status)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("getting latest repair: %w", err)
	}
	return status, nil
}
