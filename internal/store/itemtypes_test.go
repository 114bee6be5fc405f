package store

import (
	"context"
	"errors"
	"testing"

	"github.com/erazemk/assetnexus/internal/db"
)

func TestItemTypeCRUD(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	actor := newActor(t, database)

	it, err := CreateItemType(ctx, database, "Printer", "Laser printers", actor)
	if err != nil {
		t.Fatalf("CreateItemType: %v", err)
	}
	if _, err := CreateItemType(ctx, database, "Printer", "", actor); !errors.Is(err, ErrDuplicateKey) {
		t.Errorf("expected ErrDuplicateKey, got %v", err)
	}

	updated, err := UpdateItemType(ctx, database, it.ID, "Printers", "", actor)
	if err != nil {
		t.Fatalf("UpdateItemType: %v", err)
	}
	if updated.Name != "Printers" || updated.Description != "" {
		t.Errorf("unexpected item type after update: %+v", updated)
	}

	types, _ := ListItemTypes(ctx, database)
	if len(types) != 1 {
		t.Errorf("expected 1 item type, got %d", len(types))
	}

	if err := DeleteItemType(ctx, database, it.ID); err != nil {
		t.Fatalf("DeleteItemType: %v", err)
	}
	if err := DeleteItemType(ctx, database, it.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestItemTypeUsage(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	actor := newActor(t, database)

	used := newItemType(t, database, actor, "Laptop")
	unused := newItemType(t, database, actor, "Chair")
	item := newTestItem(t, database, actor, used.ID, "80001")

	usage, err := ItemTypeUsage(ctx, database, []int64{used.ID, unused.ID, 999})
	if err != nil {
		t.Fatalf("ItemTypeUsage: %v", err)
	}
	if !usage[used.ID] || usage[unused.ID] {
		t.Errorf("unexpected usage map: %v", usage)
	}
	if _, ok := usage[999]; !ok {
		t.Error("expected every requested id in the usage map")
	}

	// Deleted items still hold on to their type.
	SoftDeleteItem(ctx, database, item.ID, actor, "")
	if err := DeleteItemType(ctx, database, used.ID); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition deleting a used type, got %v", err)
	}
}
