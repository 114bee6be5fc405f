package store

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/erazemk/assetnexus/internal/model"
)

// newActor creates a user to stamp audit columns with.
func newActor(t *testing.T, database *sql.DB) int64 {
	t.Helper()
	u, err := CreateUser(context.Background(), database, fmt.Sprintf("actor%d", nextSeq()), "hash", model.RoleAdmin)
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	return u.ID
}

func newItemType(t *testing.T, database *sql.DB, actor int64, name string) *model.ItemType {
	t.Helper()
	it, err := CreateItemType(context.Background(), database, name, "", actor)
	if err != nil {
		t.Fatalf("CreateItemType: %v", err)
	}
	return it
}

func newTestItem(t *testing.T, database *sql.DB, actor, typeID int64, serial string) *model.Item {
	t.Helper()
	item, err := CreateItem(context.Background(), database, NewItem{
		TypeID:   typeID,
		Name:     "Laptop",
		Brand:    "Dell",
		SerialNo: serial,
	}, "IT26"+serial, actor)
	if err != nil {
		t.Fatalf("CreateItem: %v", err)
	}
	return item
}

func newLocation(t *testing.T, database *sql.DB, actor int64, name, kind string) *model.Location {
	t.Helper()
	loc, err := CreateLocation(context.Background(), database, name, kind, actor)
	if err != nil {
		t.Fatalf("CreateLocation: %v", err)
	}
	return loc
}

var seq int

func nextSeq() int {
	seq++
	return seq
}
