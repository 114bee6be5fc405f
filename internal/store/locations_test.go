package store

import (
	"context"
	"errors"
	"testing"

	"github.com/erazemk/assetnexus/internal/db"
	"github.com/erazemk/assetnexus/internal/model"
)

func TestLocationsByKind(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	actor := newActor(t, database)

	newLocation(t, database, actor, "Lab", model.LocationKindRoom)
	newLocation(t, database, actor, "Lab", model.LocationKindArea)

	if _, err := CreateLocation(ctx, database, "Lab", model.LocationKindRoom, actor); !errors.Is(err, ErrDuplicateKey) {
		t.Errorf("expected ErrDuplicateKey, got %v", err)
	}
	if _, err := CreateLocation(ctx, database, "Lab", "building", actor); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}

	rooms, _ := ListLocations(ctx, database, model.LocationKindRoom)
	if len(rooms) != 1 {
		t.Errorf("expected 1 room, got %d", len(rooms))
	}
	all, _ := ListLocations(ctx, database, "")
	if len(all) != 2 {
		t.Errorf("expected 2 locations, got %d", len(all))
	}
}

func TestRenameLocation(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	actor := newActor(t, database)

	room := newLocation(t, database, actor, "Room 1", model.LocationKindRoom)
	newLocation(t, database, actor, "Room 2", model.LocationKindRoom)

	got, err := RenameLocation(ctx, database, room.ID, "Room 10", actor)
	if err != nil {
		t.Fatalf("RenameLocation: %v", err)
	}
	if got.Name != "Room 10" {
		t.Errorf("expected new name, got %q", got.Name)
	}
	if _, err := RenameLocation(ctx, database, room.ID, "Room 2", actor); !errors.Is(err, ErrDuplicateKey) {
		t.Errorf("expected ErrDuplicateKey, got %v", err)
	}
}

func TestDeleteLocation(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	actor := newActor(t, database)
	laptops := newItemType(t, database, actor, "Laptop")

	room := newLocation(t, database, actor, "Server room", model.LocationKindRoom)
	item := newTestItem(t, database, actor, laptops.ID, "90001")
	entry, _ := CreateLedgerEntry(ctx, database, model.LedgerAssignment, NewLedgerEntry{ItemID: item.ID, LocationID: room.ID}, actor)

	if err := DeleteLocation(ctx, database, room.ID, "", actor); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition while occupied, got %v", err)
	}

	SetLedgerStatus(ctx, database, model.LedgerAssignment, entry.ID, model.LedgerStatusSurrendered, actor, LedgerChange{})
	if err := DeleteLocation(ctx, database, room.ID, "renovation", actor); err != nil {
		t.Fatalf("DeleteLocation: %v", err)
	}

	got, _ := GetLocation(ctx, database, room.ID)
	if got.Status != model.LocationStatusDeleted || got.DeletedReason != "renovation" {
		t.Errorf("unexpected location after delete: %+v", got)
	}
	if err := DeleteLocation(ctx, database, room.ID, "", actor); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound deleting twice, got %v", err)
	}

	// The name can be reused once the old room is gone.
	newLocation(t, database, actor, "Server room", model.LocationKindRoom)
}
