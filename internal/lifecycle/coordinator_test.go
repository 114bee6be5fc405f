package lifecycle

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"sync"
	"testing"
	"time"

	"github.com/erazemk/assetnexus/internal/db"
	"github.com/erazemk/assetnexus/internal/metrics"
	"github.com/erazemk/assetnexus/internal/model"
	"github.com/erazemk/assetnexus/internal/store"
)

type fixture struct {
	t        *testing.T
	db       *sql.DB
	c        *Coordinator
	actor    Actor
	typeID   int64
	metrics  *metrics.Metrics
	serialNo int
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	database := db.NewTestDB(t)
	ctx := context.Background()

	u, err := store.CreateUser(ctx, database, "keeper", "hash", model.RoleAdmin)
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	it, err := store.CreateItemType(ctx, database, "Laptop", "", u.ID)
	if err != nil {
		t.Fatalf("CreateItemType: %v", err)
	}

	m := metrics.New()
	return &fixture{
		t:       t,
		db:      database,
		c:       New(database, Options{Metrics: m}),
		actor:   Actor{ID: u.ID, Origin: "127.0.0.1"},
		typeID:  it.ID,
		metrics: m,
	}
}

func (f *fixture) item(serial string) *model.Item {
	f.t.Helper()
	if serial == "" {
		f.serialNo++
		serial = fmt.Sprintf("SN-%d", f.serialNo)
	}
	item, err := f.c.CreateItem(context.Background(), f.actor, store.NewItem{
		TypeID: f.typeID, Name: "ThinkPad", Brand: "Lenovo", SerialNo: serial,
	})
	if err != nil {
		f.t.Fatalf("CreateItem: %v", err)
	}
	return item
}

func (f *fixture) location(name, kind string) *model.Location {
	f.t.Helper()
	loc, err := store.CreateLocation(context.Background(), f.db, name, kind, f.actor.ID)
	if err != nil {
		f.t.Fatalf("CreateLocation: %v", err)
	}
	return loc
}

func (f *fixture) place(kind model.LedgerKind, itemID, locationID int64) *model.LedgerEntry {
	f.t.Helper()
	e, err := f.c.CreatePlacement(context.Background(), f.actor, kind, store.NewLedgerEntry{ItemID: itemID, LocationID: locationID})
	if err != nil {
		f.t.Fatalf("CreatePlacement: %v", err)
	}
	return e
}

func (f *fixture) repair(itemID int64) *model.Repair {
	f.t.Helper()
	r, err := f.c.ReportRepair(context.Background(), f.actor, store.NewRepair{ItemID: itemID, Problem: "cracked screen"})
	if err != nil {
		f.t.Fatalf("ReportRepair: %v", err)
	}
	return r
}

func (f *fixture) status(itemID int64) string {
	f.t.Helper()
	item, err := store.GetItem(context.Background(), f.db, itemID)
	if err != nil || item == nil {
		f.t.Fatalf("GetItem %d: %v", itemID, err)
	}
	return item.Status
}

func (f *fixture) wantStatus(itemID int64, want string) {
	f.t.Helper()
	if got := f.status(itemID); got != want {
		f.t.Errorf("item %d: expected status %q, got %q", itemID, want, got)
	}
}

func (f *fixture) trailCount(entity string) int {
	f.t.Helper()
	entries, err := store.ListTrails(context.Background(), f.db, store.TrailFilter{Entity: entity})
	if err != nil {
		f.t.Fatalf("ListTrails: %v", err)
	}
	return len(entries)
}

func TestScenarioAssignAndSurrender(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r1 := f.location("R1", model.LocationKindRoom)

	item := f.item("X1")
	f.wantStatus(item.ID, model.ItemStatusActive)

	a := f.place(model.LedgerAssignment, item.ID, r1.ID)
	f.wantStatus(item.ID, model.ItemStatusAssigned)

	got, err := f.c.Surrender(ctx, f.actor, model.LedgerAssignment, a.ID, store.LedgerChange{})
	if err != nil {
		t.Fatalf("Surrender: %v", err)
	}
	if got.Status != model.LedgerStatusSurrendered {
		t.Errorf("expected surrendered, got %q", got.Status)
	}
	f.wantStatus(item.ID, model.ItemStatusActive)
}

func TestScenarioRepairWithoutAssignment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	item := f.item("")
	r := f.repair(item.ID)
	f.wantStatus(item.ID, model.ItemStatusDefective)

	if _, err := f.c.CompleteRepair(ctx, f.actor, r.ID, "replaced screen", nil); err != nil {
		t.Fatalf("CompleteRepair: %v", err)
	}
	f.wantStatus(item.ID, model.ItemStatusActive)
}

func TestScenarioRepairWhileAssigned(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r1 := f.location("R1", model.LocationKindRoom)

	item := f.item("")
	f.place(model.LedgerAssignment, item.ID, r1.ID)
	r := f.repair(item.ID)
	f.wantStatus(item.ID, model.ItemStatusDefective)

	done, err := f.c.CompleteRepair(ctx, f.actor, r.ID, "reseated cable", nil)
	if err != nil {
		t.Fatalf("CompleteRepair: %v", err)
	}
	if done.CheckedBy == nil || *done.CheckedBy != f.actor.ID {
		t.Errorf("expected checker to default to the actor, got %v", done.CheckedBy)
	}
	f.wantStatus(item.ID, model.ItemStatusAssigned)
}

func TestScenarioIssuanceTransfer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a1 := f.location("A1", model.LocationKindArea)
	a2 := f.location("A2", model.LocationKindArea)

	item := f.item("")
	old := f.place(model.LedgerIssuance, item.ID, a1.ID)
	f.wantStatus(item.ID, model.ItemStatusAssigned)

	remarks := "relocated"
	next, err := f.c.Transfer(ctx, f.actor, model.LedgerIssuance, old.ID, a2.ID, store.LedgerChange{Remarks: &remarks})
	if err != nil {
		t.Fatalf("Transfer: %v", err)
	}
	f.wantStatus(item.ID, model.ItemStatusAssigned)

	prev, _ := store.GetLedgerEntry(ctx, f.db, model.LedgerIssuance, old.ID)
	if prev.Status != model.LedgerStatusTransferred {
		t.Errorf("expected original issuance transferred, got %q", prev.Status)
	}
	if next.Status != model.LedgerStatusActive || next.LocationID != a2.ID || next.Remarks != "relocated" {
		t.Errorf("unexpected new issuance: %+v", next)
	}

	// Exactly the two rows, and one trail entry for the transfer, against the new record.
	all, _ := store.ListLedgerEntries(ctx, f.db, model.LedgerIssuance, store.LedgerFilter{ItemID: item.ID, IncludeDeleted: true})
	if len(all) != 2 {
		t.Errorf("expected 2 issuance rows, got %d", len(all))
	}
	entries, _ := store.ListTrails(ctx, f.db, store.TrailFilter{Entity: model.EntityIssuance})
	var transfers []model.TrailEntry
	for _, e := range entries {
		if e.Action == model.ActionTransfer {
			transfers = append(transfers, e)
		}
	}
	if len(transfers) != 1 {
		t.Fatalf("expected 1 transfer trail entry, got %d", len(transfers))
	}
	if id, _ := transfers[0].EntityRef.ID(); id != next.ID {
		t.Errorf("expected transfer logged against %d, got %v", next.ID, transfers[0].EntityRef)
	}
}

func TestTransferAssignmentAndTargets(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r1 := f.location("R1", model.LocationKindRoom)
	r2 := f.location("R2", model.LocationKindRoom)
	area := f.location("Yard", model.LocationKindArea)

	item := f.item("")
	a := f.place(model.LedgerAssignment, item.ID, r1.ID)

	if _, err := f.c.Transfer(ctx, f.actor, model.LedgerAssignment, a.ID, area.ID, store.LedgerChange{}); !errors.Is(err, store.ErrReferenceNotFound) {
		t.Errorf("expected ErrReferenceNotFound moving to an area, got %v", err)
	}
	// The failed transfer left nothing behind.
	still, _ := store.GetLedgerEntry(ctx, f.db, model.LedgerAssignment, a.ID)
	if still.Status != model.LedgerStatusActive {
		t.Errorf("expected assignment still active after failed transfer, got %q", still.Status)
	}

	if _, err := f.c.Transfer(ctx, f.actor, model.LedgerAssignment, a.ID, r1.ID, store.LedgerChange{}); !errors.Is(err, store.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput moving to the same room, got %v", err)
	}

	next, err := f.c.Transfer(ctx, f.actor, model.LedgerAssignment, a.ID, r2.ID, store.LedgerChange{})
	if err != nil {
		t.Fatalf("Transfer: %v", err)
	}
	if next.LocationID != r2.ID {
		t.Errorf("expected new room %d, got %d", r2.ID, next.LocationID)
	}

	if _, err := f.c.Transfer(ctx, f.actor, model.LedgerAssignment, a.ID, r1.ID, store.LedgerChange{}); !errors.Is(err, store.ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition transferring a transferred entry, got %v", err)
	}
}

func TestActivePlacementMeansAssigned(t *testing.T) {
	f := newFixture(t)
	room := f.location("R1", model.LocationKindRoom)
	area := f.location("A1", model.LocationKindArea)

	assigned := f.item("")
	f.place(model.LedgerAssignment, assigned.ID, room.ID)
	f.wantStatus(assigned.ID, model.ItemStatusAssigned)

	issued := f.item("")
	f.place(model.LedgerIssuance, issued.ID, area.ID)
	f.wantStatus(issued.ID, model.ItemStatusAssigned)
}

func TestSecondActivePlacementRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	room := f.location("R1", model.LocationKindRoom)
	other := f.location("R2", model.LocationKindRoom)
	area := f.location("A1", model.LocationKindArea)

	item := f.item("")
	f.place(model.LedgerAssignment, item.ID, room.ID)

	_, err := f.c.CreatePlacement(ctx, f.actor, model.LedgerAssignment, store.NewLedgerEntry{ItemID: item.ID, LocationID: other.ID})
	if !errors.Is(err, store.ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition for a second assignment, got %v", err)
	}
	_, err = f.c.CreatePlacement(ctx, f.actor, model.LedgerIssuance, store.NewLedgerEntry{ItemID: item.ID, LocationID: area.ID})
	if !errors.Is(err, store.ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition for an issuance of an assigned item, got %v", err)
	}

	active, _ := store.ListLedgerEntries(ctx, f.db, model.LedgerAssignment, store.LedgerFilter{ItemID: item.ID, Status: model.LedgerStatusActive})
	if len(active) != 1 {
		t.Errorf("expected exactly 1 active assignment, got %d", len(active))
	}
}

func TestPlacementOfDefectiveItemRejected(t *testing.T) {
	f := newFixture(t)
	room := f.location("R1", model.LocationKindRoom)

	item := f.item("")
	f.repair(item.ID)

	_, err := f.c.CreatePlacement(context.Background(), f.actor, model.LedgerAssignment, store.NewLedgerEntry{ItemID: item.ID, LocationID: room.ID})
	if !errors.Is(err, store.ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestPlacementRequiresActiveLocation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	room := f.location("R1", model.LocationKindRoom)
	store.DeleteLocation(ctx, f.db, room.ID, "", f.actor.ID)

	item := f.item("")
	_, err := f.c.CreatePlacement(ctx, f.actor, model.LedgerAssignment, store.NewLedgerEntry{ItemID: item.ID, LocationID: room.ID})
	if !errors.Is(err, store.ErrReferenceNotFound) {
		t.Errorf("expected ErrReferenceNotFound, got %v", err)
	}
	// Nothing was written: the item is still free.
	f.wantStatus(item.ID, model.ItemStatusActive)
}

func TestDeleteActivePlacementRestoresActive(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	area := f.location("A1", model.LocationKindArea)

	item := f.item("")
	e := f.place(model.LedgerIssuance, item.ID, area.ID)

	deleted, err := f.c.DeletePlacement(ctx, f.actor, model.LedgerIssuance, e.ID, "entered by mistake")
	if err != nil {
		t.Fatalf("DeletePlacement: %v", err)
	}
	if deleted.Status != model.LedgerStatusDeleted || deleted.DeletedReason != "entered by mistake" {
		t.Errorf("unexpected deleted entry: %+v", deleted)
	}
	f.wantStatus(item.ID, model.ItemStatusActive)

	if _, err := f.c.DeletePlacement(ctx, f.actor, model.LedgerIssuance, e.ID, ""); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound deleting twice, got %v", err)
	}
}

func TestDeleteClosedPlacementLeavesStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	room := f.location("R1", model.LocationKindRoom)
	other := f.location("R2", model.LocationKindRoom)

	item := f.item("")
	first := f.place(model.LedgerAssignment, item.ID, room.ID)
	f.c.Surrender(ctx, f.actor, model.LedgerAssignment, first.ID, store.LedgerChange{})
	f.place(model.LedgerAssignment, item.ID, other.ID)

	if _, err := f.c.DeletePlacement(ctx, f.actor, model.LedgerAssignment, first.ID, "old record"); err != nil {
		t.Fatalf("DeletePlacement: %v", err)
	}
	f.wantStatus(item.ID, model.ItemStatusAssigned)
}

func TestSurrenderKeepsDefectiveWhileRepairOngoing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	room := f.location("R1", model.LocationKindRoom)

	item := f.item("")
	a := f.place(model.LedgerAssignment, item.ID, room.ID)
	f.repair(item.ID)

	if _, err := f.c.Surrender(ctx, f.actor, model.LedgerAssignment, a.ID, store.LedgerChange{}); err != nil {
		t.Fatalf("Surrender: %v", err)
	}
	f.wantStatus(item.ID, model.ItemStatusDefective)

	if _, err := f.c.Surrender(ctx, f.actor, model.LedgerAssignment, a.ID, store.LedgerChange{}); !errors.Is(err, store.ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition surrendering twice, got %v", err)
	}
}

func TestMarkDefectiveAndDeleteRepair(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	room := f.location("R1", model.LocationKindRoom)

	item := f.item("")
	a := f.place(model.LedgerAssignment, item.ID, room.ID)
	r := f.repair(item.ID)

	if _, err := f.c.MarkRepairDefective(ctx, f.actor, r.ID, "motherboard dead"); err != nil {
		t.Fatalf("MarkRepairDefective: %v", err)
	}
	f.wantStatus(item.ID, model.ItemStatusDefective)

	// A surrender does not revive an item written off by its last repair.
	f.c.Surrender(ctx, f.actor, model.LedgerAssignment, a.ID, store.LedgerChange{})
	f.wantStatus(item.ID, model.ItemStatusDefective)

	if _, err := f.c.CompleteRepair(ctx, f.actor, r.ID, "", nil); !errors.Is(err, store.ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition completing a defective repair, got %v", err)
	}

	// Deleting a repair leaves the item's status alone.
	if _, err := f.c.DeleteRepair(ctx, f.actor, r.ID, "wrong item"); err != nil {
		t.Fatalf("DeleteRepair: %v", err)
	}
	f.wantStatus(item.ID, model.ItemStatusDefective)
}

func TestCompleteRepairWithAnotherOngoing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	item := f.item("")
	first := f.repair(item.ID)
	second := f.repair(item.ID)

	f.c.CompleteRepair(ctx, f.actor, first.ID, "", nil)
	f.wantStatus(item.ID, model.ItemStatusDefective)

	f.c.CompleteRepair(ctx, f.actor, second.ID, "", nil)
	f.wantStatus(item.ID, model.ItemStatusActive)
}

func TestDeletedItemIsTerminal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	room := f.location("R1", model.LocationKindRoom)

	item := f.item("")
	if err := f.c.DeleteItem(ctx, f.actor, item.ID, "scrapped"); err != nil {
		t.Fatalf("DeleteItem: %v", err)
	}

	if _, err := f.c.CreatePlacement(ctx, f.actor, model.LedgerAssignment, store.NewLedgerEntry{ItemID: item.ID, LocationID: room.ID}); !errors.Is(err, store.ErrReferenceNotFound) {
		t.Errorf("expected ErrReferenceNotFound placing a deleted item, got %v", err)
	}
	if _, err := f.c.ReportRepair(ctx, f.actor, store.NewRepair{ItemID: item.ID, Problem: "x"}); !errors.Is(err, store.ErrReferenceNotFound) {
		t.Errorf("expected ErrReferenceNotFound repairing a deleted item, got %v", err)
	}
	name := "renamed"
	if _, err := f.c.UpdateItem(ctx, f.actor, item.ID, store.ItemUpdate{Name: &name}); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound editing a deleted item, got %v", err)
	}
	if err := f.c.DeleteItem(ctx, f.actor, item.ID, ""); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound deleting twice, got %v", err)
	}
	f.wantStatus(item.ID, model.ItemStatusDeleted)
}

func TestDeletedItemKeepsRecordsClosed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	room := f.location("R1", model.LocationKindRoom)

	item := f.item("")
	a := f.place(model.LedgerAssignment, item.ID, room.ID)
	f.c.DeleteItem(ctx, f.actor, item.ID, "")

	// Surrendering the dangling assignment must not bring the item back.
	if _, err := f.c.Surrender(ctx, f.actor, model.LedgerAssignment, a.ID, store.LedgerChange{}); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	f.wantStatus(item.ID, model.ItemStatusDeleted)
	still, _ := store.GetLedgerEntry(ctx, f.db, model.LedgerAssignment, a.ID)
	if still.Status != model.LedgerStatusActive {
		t.Errorf("expected the rolled back surrender to leave the entry active, got %q", still.Status)
	}
}

func TestDeletePlacementOfDeletedItem(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	room := f.location("R1", model.LocationKindRoom)
	area := f.location("A1", model.LocationKindArea)

	for _, tc := range []struct {
		kind model.LedgerKind
		loc  int64
	}{
		{model.LedgerAssignment, room.ID},
		{model.LedgerIssuance, area.ID},
	} {
		item := f.item("")
		e := f.place(tc.kind, item.ID, tc.loc)
		if err := f.c.DeleteItem(ctx, f.actor, item.ID, "scrapped"); err != nil {
			t.Fatalf("DeleteItem: %v", err)
		}

		got, err := f.c.DeletePlacement(ctx, f.actor, tc.kind, e.ID, "item scrapped")
		if err != nil {
			t.Fatalf("DeletePlacement %s: %v", tc.kind, err)
		}
		if got.Status != model.LedgerStatusDeleted {
			t.Errorf("expected %s deleted, got %q", tc.kind, got.Status)
		}
		stored, _ := store.GetLedgerEntry(ctx, f.db, tc.kind, e.ID)
		if stored.Status != model.LedgerStatusDeleted || stored.DeletedReason != "item scrapped" {
			t.Errorf("expected stored %s deleted with reason, got %+v", tc.kind, stored)
		}
		f.wantStatus(item.ID, model.ItemStatusDeleted)
	}
}

func TestUpdateItemRejectsStatusChange(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	item := f.item("")
	same := model.ItemStatusActive
	name := "X1 Carbon"
	got, err := f.c.UpdateItem(ctx, f.actor, item.ID, store.ItemUpdate{Name: &name, Status: &same})
	if err != nil {
		t.Fatalf("UpdateItem: %v", err)
	}
	if got.Name != name {
		t.Errorf("expected name %q, got %q", name, got.Name)
	}

	changed := model.ItemStatusAssigned
	if _, err := f.c.UpdateItem(ctx, f.actor, item.ID, store.ItemUpdate{Status: &changed}); !errors.Is(err, store.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
	f.wantStatus(item.ID, model.ItemStatusActive)
}

func TestCreateItemDuplicateSerial(t *testing.T) {
	f := newFixture(t)

	f.item("DUP")
	_, err := f.c.CreateItem(context.Background(), f.actor, store.NewItem{
		TypeID: f.typeID, Name: "Other", Brand: "HP", SerialNo: "DUP",
	})
	if !errors.Is(err, store.ErrDuplicateKey) {
		t.Errorf("expected ErrDuplicateKey, got %v", err)
	}
}

func TestBarcodesUnique(t *testing.T) {
	f := newFixture(t)

	seen := map[string]bool{}
	for range 50 {
		item := f.item("")
		if seen[item.Barcode] {
			t.Fatalf("duplicate barcode %q", item.Barcode)
		}
		seen[item.Barcode] = true
	}
}

func TestSetPhoto(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	item := f.item("")

	img := image.NewRGBA(image.Rect(0, 0, 10, 10))
	img.Set(0, 0, color.Black)
	var buf bytes.Buffer
	png.Encode(&buf, img)

	if err := f.c.SetPhoto(ctx, f.actor, item.ID, &buf); err != nil {
		t.Fatalf("SetPhoto: %v", err)
	}
	data, _ := store.GetItemPhoto(ctx, f.db, item.ID)
	if len(data) < 2 || data[0] != 0xff || data[1] != 0xd8 {
		t.Error("expected a stored JPEG")
	}

	if err := f.c.SetPhoto(ctx, f.actor, item.ID, bytes.NewReader([]byte("GIF89a"))); !errors.Is(err, store.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestEveryOperationRecordsOneTrailEntry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	room := f.location("R1", model.LocationKindRoom)

	item := f.item("")
	a := f.place(model.LedgerAssignment, item.ID, room.ID)
	f.c.Surrender(ctx, f.actor, model.LedgerAssignment, a.ID, store.LedgerChange{})
	r := f.repair(item.ID)
	f.c.CompleteRepair(ctx, f.actor, r.ID, "", nil)

	if got := f.trailCount(model.EntityItem); got != 1 {
		t.Errorf("expected 1 item trail entry, got %d", got)
	}
	if got := f.trailCount(model.EntityAssignment); got != 2 {
		t.Errorf("expected 2 assignment trail entries, got %d", got)
	}
	if got := f.trailCount(model.EntityRepair); got != 2 {
		t.Errorf("expected 2 repair trail entries, got %d", got)
	}

	entries, _ := store.ListTrails(ctx, f.db, store.TrailFilter{})
	for _, e := range entries {
		if e.ActorID != f.actor.ID || e.Origin != f.actor.Origin {
			t.Errorf("unexpected actor on trail entry: %+v", e)
		}
	}

	// Failed operations leave no trace.
	before := len(entries)
	f.c.Surrender(ctx, f.actor, model.LedgerAssignment, a.ID, store.LedgerChange{})
	after, _ := store.ListTrails(ctx, f.db, store.TrailFilter{})
	if len(after) != before {
		t.Errorf("expected no trail entry for a failed operation, got %d new", len(after)-before)
	}
}

func TestOperationTimeout(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	room := f.location("R1", model.LocationKindRoom)
	item := f.item("")
	a := f.place(model.LedgerAssignment, item.ID, room.ID)

	c := New(f.db, Options{Timeout: 50 * time.Millisecond})

	// Hold the item's lock so the operation can not start in time.
	unlock, err := c.locks.acquire(ctx, item.ID)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	_, err = c.Surrender(ctx, f.actor, model.LedgerAssignment, a.ID, store.LedgerChange{})
	unlock()

	if !errors.Is(err, store.ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
	f.wantStatus(item.ID, model.ItemStatusAssigned)

	if _, err := c.Surrender(ctx, f.actor, model.LedgerAssignment, a.ID, store.LedgerChange{}); err != nil {
		t.Errorf("expected retry to succeed, got %v", err)
	}
}

func TestConcurrentPlacementsOnOneItem(t *testing.T) {
	f := newFixture(t)
	item := f.item("")

	const n = 8
	rooms := make([]*model.Location, n)
	for i := range rooms {
		rooms[i] = f.location(fmt.Sprintf("Room %d", i), model.LocationKindRoom)
	}

	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := range n {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.c.CreatePlacement(context.Background(), f.actor, model.LedgerAssignment,
				store.NewLedgerEntry{ItemID: item.ID, LocationID: rooms[i].ID})
		}(i)
	}
	wg.Wait()

	var ok int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case !errors.Is(err, store.ErrInvalidTransition):
			t.Errorf("unexpected error: %v", err)
		}
	}
	if ok != 1 {
		t.Errorf("expected exactly 1 successful placement, got %d", ok)
	}
	f.wantStatus(item.ID, model.ItemStatusAssigned)

	if got := f.c.locks.len(); got != 0 {
		t.Errorf("expected item locks to be released, %d left", got)
	}
}

func TestConcurrentItemsDoNotBlock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	room := f.location("R1", model.LocationKindRoom)
	busy := f.item("")
	free := f.item("")

	unlock, err := f.c.locks.acquire(ctx, busy.ID)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	defer unlock()

	// Another item proceeds while the first one's lock is held.
	if _, err := f.c.CreatePlacement(ctx, f.actor, model.LedgerAssignment, store.NewLedgerEntry{ItemID: free.ID, LocationID: room.ID}); err != nil {
		t.Fatalf("CreatePlacement: %v", err)
	}
}
