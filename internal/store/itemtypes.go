package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/erazemk/assetnexus/internal/model"
)

const itemTypeColumns = `id, name, description, created_at, created_by, updated_at, updated_by FROM item_types`

func scanItemType(row interface{ Scan(...any) error }) (*model.ItemType, error) {
	t := &model.ItemType{}
	var description sql.NullString
	if err := row.Scan(&t.ID, &t.Name, &description, &t.CreatedAt, &t.CreatedBy, &t.UpdatedAt, &t.UpdatedBy); err != nil {
		return nil, err
	}
	t.Description = description.String
	return t, nil
}

// CreateItemType creates a new item type with a unique name.
func CreateItemType(ctx context.Context, q Querier, name, description string, actor int64) (*model.ItemType, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: name required", ErrInvalidInput)
	}

	result, err := q.ExecContext(ctx,
		`INSERT INTO item_types (name, description, created_at, created_by) VALUES (?, ?, ?, ?)`,
		name, nullString(description), now(), actor,
	)
	if isUniqueViolation(err) {
		return nil, fmt.Errorf("%w: item type %q already exists", ErrDuplicateKey, name)
	}
	if err != nil {
		return nil, fmt.Errorf("creating item type: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting item type id: %w", err)
	}
	return GetItemType(ctx, q, id)
}

// GetItemType returns an item type by ID.
func GetItemType(ctx context.Context, q Querier, id int64) (*model.ItemType, error) {
	t, err := scanItemType(q.QueryRowContext(ctx, `SELECT `+itemTypeColumns+` WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting item type: %w", err)
	}
	return t, nil
}

// ItemTypeExists reports whether an item type with id exists.
func ItemTypeExists(ctx context.Context, q Querier, id int64) (bool, error) {
	var count int
	err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM item_types WHERE id = ?`, id).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("checking item type: %w", err)
	}
	return count > 0, nil
}

// ListItemTypes returns all item types ordered by name.
func ListItemTypes(ctx context.Context, q Querier) ([]model.ItemType, error) {
	rows, err := q.QueryContext(ctx, `SELECT `+itemTypeColumns+` ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("listing item types: %w", err)
	}
	defer rows.Close()

	var types []model.ItemType
	for rows.Next() {
		t, err := scanItemType(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning item type: %w", err)
		}
		types = append(types, *t)
	}
	return types, rows.Err()
}

// UpdateItemType renames an item type and replaces its description.
func UpdateItemType(ctx context.Context, q Querier, id int64, name, description string, actor int64) (*model.ItemType, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: name required", ErrInvalidInput)
	}

	result, err := q.ExecContext(ctx,
		`UPDATE item_types SET name = ?, description = ?, updated_at = ?, updated_by = ? WHERE id = ?`,
		name, nullString(description), now(), actor, id,
	)
	if isUniqueViolation(err) {
		return nil, fmt.Errorf("%w: item type %q already exists", ErrDuplicateKey, name)
	}
	if err != nil {
		return nil, fmt.Errorf("updating item type: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return nil, fmt.Errorf("%w: item type %d", ErrNotFound, id)
	}
	return GetItemType(ctx, q, id)
}

// DeleteItemType removes an item type. Fails while any item, deleted ones
// included, still refers to it.
func DeleteItemType(ctx context.Context, q Querier, id int64) error {
	usage, err := ItemTypeUsage(ctx, q, []int64{id})
	if err != nil {
		return err
	}
	if usage[id] {
		return fmt.Errorf("%w: item type %d is used by items", ErrInvalidTransition, id)
	}

	result, err := q.ExecContext(ctx, `DELETE FROM item_types WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting item type: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: item type %d", ErrNotFound, id)
	}
	return nil
}

// ItemTypeUsage reports, for each requested type, whether any item uses it.
// Every requested id appears in the result.
func ItemTypeUsage(ctx context.Context, q Querier, ids []int64) (map[int64]bool, error) {
	usage := make(map[int64]bool, len(ids))
	if len(ids) == 0 {
		return usage, nil
	}

	args := make([]any, len(ids))
	for i, id := range ids {
		usage[id] = false
		args[i] = id
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(ids)), ", ")

	rows, err := q.QueryContext(ctx,
		`SELECT DISTINCT type_id FROM items WHERE type_id IN (`+placeholders+`)`, args...,
	)
	if err != nil {
		return nil, fmt.Errorf("checking item type usage: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning item type usage: %w", err)
		}
		usage[id] = true
	}
	return usage, rows.Err()
}
