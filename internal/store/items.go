package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/erazemk/assetnexus/internal/model"
)

const itemColumns = `i.id, i.type_id, COALESCE(t.name, ''), i.name, i.brand, i.serial_no, i.barcode,
	i.details, i.photo IS NOT NULL, i.status, i.created_at, i.created_by, i.updated_at, i.updated_by,
	i.deleted_at, i.deleted_by, i.deleted_reason`

const itemFrom = ` FROM items i LEFT JOIN item_types t ON t.id = i.type_id`

// NewItem holds the attributes of an item being registered.
type NewItem struct {
	TypeID   int64  `json:"type_id"`
	Name     string `json:"name"`
	Brand    string `json:"brand"`
	SerialNo string `json:"serial_no"`
	Details  string `json:"details"`
}

// Validate checks that all required attributes are present.
func (n NewItem) Validate() error {
	var missing []string
	if n.TypeID <= 0 {
		missing = append(missing, "type_id")
	}
	if strings.TrimSpace(n.Name) == "" {
		missing = append(missing, "name")
	}
	if strings.TrimSpace(n.Brand) == "" {
		missing = append(missing, "brand")
	}
	if strings.TrimSpace(n.SerialNo) == "" {
		missing = append(missing, "serial_no")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s required", ErrInvalidInput, strings.Join(missing, ", "))
	}
	return nil
}

// ItemUpdate is a partial edit of an item. Nil fields are left unchanged.
type ItemUpdate struct {
	TypeID   *int64
	Name     *string
	Brand    *string
	SerialNo *string
	Details  *string
	Status   *string
}

// DecodeItemUpdate turns a JSON object into an ItemUpdate, rejecting any
// field that is not directly editable.
func DecodeItemUpdate(raw map[string]json.RawMessage) (ItemUpdate, error) {
	var u ItemUpdate
	for field, value := range raw {
		if !model.EditableItemFields[field] {
			return ItemUpdate{}, fmt.Errorf("%w: field %q can not be updated", ErrInvalidInput, field)
		}

		var err error
		switch field {
		case model.ItemFieldType:
			err = json.Unmarshal(value, &u.TypeID)
		case model.ItemFieldName:
			err = json.Unmarshal(value, &u.Name)
		case model.ItemFieldBrand:
			err = json.Unmarshal(value, &u.Brand)
		case model.ItemFieldSerialNo:
			err = json.Unmarshal(value, &u.SerialNo)
		case model.ItemFieldDetails:
			err = json.Unmarshal(value, &u.Details)
		case model.ItemFieldStatus:
			err = json.Unmarshal(value, &u.Status)
		}
		if err != nil {
			return ItemUpdate{}, fmt.Errorf("%w: field %q has the wrong type", ErrInvalidInput, field)
		}
	}
	return u, nil
}

func scanItem(row interface{ Scan(...any) error }) (*model.Item, error) {
	item := &model.Item{}
	var details, deletedReason sql.NullString
	err := row.Scan(&item.ID, &item.TypeID, &item.TypeName, &item.Name, &item.Brand, &item.SerialNo,
		&item.Barcode, &details, &item.HasPhoto, &item.Status, &item.CreatedAt, &item.CreatedBy,
		&item.UpdatedAt, &item.UpdatedBy, &item.DeletedAt, &item.DeletedBy, &deletedReason)
	if err != nil {
		return nil, err
	}
	item.Details = details.String
	item.DeletedReason = deletedReason.String
	return item, nil
}

// CreateItem registers a new item with the given barcode. The serial number
// must not be used by any other item, deleted ones included.
func CreateItem(ctx context.Context, q Querier, in NewItem, barcode string, actor int64) (*model.Item, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	exists, err := ItemTypeExists(ctx, q, in.TypeID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("%w: item type %d", ErrReferenceNotFound, in.TypeID)
	}

	result, err := q.ExecContext(ctx,
		`INSERT INTO items (type_id, name, brand, serial_no, barcode, details, status, created_at, created_by)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		in.TypeID, strings.TrimSpace(in.Name), strings.TrimSpace(in.Brand), strings.TrimSpace(in.SerialNo),
		barcode, nullString(in.Details), model.ItemStatusActive, now(), actor,
	)
	if isUniqueViolation(err) {
		if strings.Contains(err.Error(), "barcode") {
			return nil, fmt.Errorf("%w: barcode %s already in use", ErrDuplicateKey, barcode)
		}
		return nil, fmt.Errorf("%w: serial number %s already registered", ErrDuplicateKey, in.SerialNo)
	}
	if err != nil {
		return nil, fmt.Errorf("creating item: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting item id: %w", err)
	}

	return GetItem(ctx, q, id)
}

// GetItem returns an item by ID, including deleted items.
func GetItem(ctx context.Context, q Querier, id int64) (*model.Item, error) {
	item, err := scanItem(q.QueryRowContext(ctx,
		`SELECT `+itemColumns+itemFrom+` WHERE i.id = ?`, id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting item: %w", err)
	}
	return item, nil
}

// GetLiveItem returns an item that is not deleted, or ErrNotFound.
func GetLiveItem(ctx context.Context, q Querier, id int64) (*model.Item, error) {
	item, err := GetItem(ctx, q, id)
	if err != nil {
		return nil, err
	}
	if item == nil || item.Status == model.ItemStatusDeleted {
		return nil, fmt.Errorf("%w: item %d", ErrNotFound, id)
	}
	return item, nil
}

// ListItems returns all non-deleted items, optionally filtered by status.
func ListItems(ctx context.Context, q Querier, status string) ([]model.Item, error) {
	query := `SELECT ` + itemColumns + itemFrom + ` WHERE i.status != ?`
	args := []any{model.ItemStatusDeleted}
	if status != "" {
		query += ` AND i.status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY i.id DESC`

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing items: %w", err)
	}
	defer rows.Close()

	var items []model.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning item: %w", err)
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

// UpdateItemFields applies a partial edit to a live item. The status can not
// be changed this way: it is only accepted when it matches the stored value.
func UpdateItemFields(ctx context.Context, q Querier, id int64, u ItemUpdate, actor int64) (*model.Item, error) {
	item, err := GetLiveItem(ctx, q, id)
	if err != nil {
		return nil, err
	}

	if u.Status != nil && *u.Status != item.Status {
		return nil, fmt.Errorf("%w: status is changed by lifecycle operations only", ErrInvalidInput)
	}
	if u.TypeID != nil {
		exists, err := ItemTypeExists(ctx, q, *u.TypeID)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, fmt.Errorf("%w: item type %d", ErrReferenceNotFound, *u.TypeID)
		}
		item.TypeID = *u.TypeID
	}
	for _, f := range []struct {
		src *string
		dst *string
		req bool
	}{
		{u.Name, &item.Name, true},
		{u.Brand, &item.Brand, true},
		{u.SerialNo, &item.SerialNo, true},
		{u.Details, &item.Details, false},
	} {
		if f.src == nil {
			continue
		}
		v := strings.TrimSpace(*f.src)
		if f.req && v == "" {
			return nil, fmt.Errorf("%w: required field set to empty value", ErrInvalidInput)
		}
		*f.dst = v
	}

	_, err = q.ExecContext(ctx,
		`UPDATE items SET type_id = ?, name = ?, brand = ?, serial_no = ?, details = ?,
		        updated_at = ?, updated_by = ?
		 WHERE id = ? AND status != ?`,
		item.TypeID, item.Name, item.Brand, item.SerialNo, nullString(item.Details),
		now(), actor, id, model.ItemStatusDeleted,
	)
	if isUniqueViolation(err) {
		return nil, fmt.Errorf("%w: serial number %s already registered", ErrDuplicateKey, item.SerialNo)
	}
	if err != nil {
		return nil, fmt.Errorf("updating item: %w", err)
	}

	return GetItem(ctx, q, id)
}

// SetItemStatus moves a live item to status. It does not judge whether the
// transition makes sense; that is the caller's job.
func SetItemStatus(ctx context.Context, q Querier, id int64, status string, actor int64) error {
	result, err := q.ExecContext(ctx,
		`UPDATE items SET status = ?, updated_at = ?, updated_by = ?
		 WHERE id = ? AND status != ?`,
		status, now(), actor, id, model.ItemStatusDeleted,
	)
	if err != nil {
		return fmt.Errorf("setting item status: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: item %d", ErrNotFound, id)
	}
	return nil
}

// SoftDeleteItem marks an item deleted. Deletion is terminal.
func SoftDeleteItem(ctx context.Context, q Querier, id, actor int64, reason string) error {
	t := now()
	result, err := q.ExecContext(ctx,
		`UPDATE items SET status = ?, deleted_at = ?, deleted_by = ?, deleted_reason = ?,
		        updated_at = ?, updated_by = ?
		 WHERE id = ? AND status != ?`,
		model.ItemStatusDeleted, t, actor, nullString(reason), t, actor, id, model.ItemStatusDeleted,
	)
	if err != nil {
		return fmt.Errorf("deleting item: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: item %d", ErrNotFound, id)
	}
	return nil
}

// BarcodeExists reports whether any item, deleted or not, carries code.
func BarcodeExists(ctx context.Context, q Querier, code string) (bool, error) {
	var count int
	err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM items WHERE barcode = ?`, code).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("checking barcode: %w", err)
	}
	return count > 0, nil
}

// SetItemPhoto stores a processed JPEG photo for a live item.
func SetItemPhoto(ctx context.Context, q Querier, id int64, photo []byte, actor int64) error {
	result, err := q.ExecContext(ctx,
		`UPDATE items SET photo = ?, updated_at = ?, updated_by = ?
		 WHERE id = ? AND status != ?`,
		photo, now(), actor, id, model.ItemStatusDeleted,
	)
	if err != nil {
		return fmt.Errorf("setting item photo: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: item %d", ErrNotFound, id)
	}
	return nil
}

// GetItemPhoto returns a live item's photo, or nil if it has none or the
// item is deleted.
func GetItemPhoto(ctx context.Context, q Querier, id int64) ([]byte, error) {
	var photo []byte
	err := q.QueryRowContext(ctx,
		`SELECT photo FROM items WHERE id = ? AND status != ?`, id, model.ItemStatusDeleted,
	).Scan(&photo)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting item photo: %w", err)
	}
	return photo, nil
}

// GetItemHistory returns a live item with every assignment, issuance and
// repair that references it, in any status. The three ledgers are read
// concurrently.
func GetItemHistory(ctx context.Context, db *sql.DB, id int64) (*model.ItemHistory, error) {
	item, err := GetLiveItem(ctx, db, id)
	if err != nil {
		return nil, err
	}

	h := &model.ItemHistory{Item: item}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		h.Assignments, err = ListLedgerEntries(gctx, db, model.LedgerAssignment, LedgerFilter{ItemID: id, IncludeDeleted: true})
		return err
	})
	g.Go(func() error {
		var err error
		h.Issuances, err = ListLedgerEntries(gctx, db, model.LedgerIssuance, LedgerFilter{ItemID: id, IncludeDeleted: true})
		return err
	})
	g.Go(func() error {
		var err error
		h.Repairs, err = ListRepairs(gctx, db, RepairFilter{ItemID: id, IncludeDeleted: true})
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("getting item history: %w", err)
	}

	if h.Assignments == nil {
		h.Assignments = []model.LedgerEntry{}
	}
	if h.Issuances == nil {
		h.Issuances = []model.LedgerEntry{}
	}
	if h.Repairs == nil {
		h.Repairs = []model.Repair{}
	}
	return h, nil
}
