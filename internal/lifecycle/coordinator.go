// Package lifecycle applies every operation that changes an item's status,
// keeping items and their assignments, issuances and repairs consistent.
package lifecycle

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/erazemk/assetnexus/internal/barcode"
	"github.com/erazemk/assetnexus/internal/imaging"
	"github.com/erazemk/assetnexus/internal/metrics"
	"github.com/erazemk/assetnexus/internal/model"
	"github.com/erazemk/assetnexus/internal/store"
	"github.com/erazemk/assetnexus/internal/trail"
)

// DefaultTimeout bounds one operation, lock wait included.
const DefaultTimeout = 5 * time.Second

// Actor is the user on whose behalf an operation runs.
type Actor struct {
	ID int64
	// Origin is where the request came from, kept in the trail.
	Origin string
}

// Options configures a Coordinator. Zero values fall back to defaults.
type Options struct {
	Timeout         time.Duration
	BarcodeAttempts int
	Metrics         *metrics.Metrics
	Trail           *trail.Recorder
}

// Coordinator runs lifecycle operations. Each one is a single transaction,
// serialised per item and bounded by a timeout, followed by one trail entry.
type Coordinator struct {
	db       *sql.DB
	trail    *trail.Recorder
	metrics  *metrics.Metrics
	barcodes *barcode.Generator
	timeout  time.Duration
	locks    itemLocks
}

// New creates a Coordinator over db.
func New(db *sql.DB, opts Options) *Coordinator {
	c := &Coordinator{
		db:       db,
		trail:    opts.Trail,
		metrics:  opts.Metrics,
		barcodes: &barcode.Generator{MaxAttempts: opts.BarcodeAttempts},
		timeout:  opts.Timeout,
	}
	if c.timeout <= 0 {
		c.timeout = DefaultTimeout
	}
	if c.trail == nil {
		c.trail = trail.NewRecorder(db, opts.Metrics)
	}
	return c
}

// run executes fn in one transaction while holding the item's lock. itemID 0
// skips the lock. Running out of time yields store.ErrTimeout.
func (c *Coordinator) run(ctx context.Context, op string, itemID int64, fn func(ctx context.Context, tx *sql.Tx) error) (err error) {
	start := time.Now()
	defer func() { c.metrics.Observe(op, err, time.Since(start)) }()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if itemID > 0 {
		unlock, err := c.locks.acquire(ctx, itemID)
		if err != nil {
			return timeoutError(ctx, fmt.Errorf("waiting for item %d: %w", itemID, err))
		}
		defer unlock()
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return timeoutError(ctx, fmt.Errorf("beginning transaction: %w", err))
	}
	defer tx.Rollback()

	if err := fn(ctx, tx); err != nil {
		return timeoutError(ctx, err)
	}
	if err := tx.Commit(); err != nil {
		return timeoutError(ctx, fmt.Errorf("committing transaction: %w", err))
	}
	return nil
}

func timeoutError(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) && !errors.Is(err, store.ErrTimeout) {
		return fmt.Errorf("%w: %v", store.ErrTimeout, err)
	}
	return err
}

// record writes the trail entry of a committed operation.
func (c *Coordinator) record(ctx context.Context, actor Actor, action, entity string, id int64, details string) {
	slog.Info("lifecycle operation", "action", action, "entity", entity, "id", id, "actor", actor.ID)
	c.trail.Record(ctx, model.TrailEntry{
		ActorID:   actor.ID,
		Action:    action,
		Entity:    entity,
		EntityRef: model.RefID(id),
		Details:   details,
		Origin:    actor.Origin,
	})
}

// settle recomputes an item's status from its open records: an ongoing
// repair or a most recent repair marked defective keeps it defective, an
// active assignment or issuance keeps it assigned, otherwise it is active.
func settle(ctx context.Context, q store.Querier, itemID, actor int64) (string, error) {
	status := model.ItemStatusActive

	ongoing, err := store.HasOngoingRepair(ctx, q, itemID)
	if err != nil {
		return "", err
	}
	latest, err := store.LatestRepairStatus(ctx, q, itemID)
	if err != nil {
		return "", err
	}
	placed, err := store.HasActivePlacement(ctx, q, itemID)
	if err != nil {
		return "", err
	}

	switch {
	case ongoing, latest == model.RepairStatusDefective:
		status = model.ItemStatusDefective
	case placed:
		status = model.ItemStatusAssigned
	}

	if err := store.SetItemStatus(ctx, q, itemID, status, actor); err != nil {
		return "", err
	}
	return status, nil
}

// CreateItem registers an item under a freshly generated barcode.
func (c *Coordinator) CreateItem(ctx context.Context, actor Actor, in store.NewItem) (*model.Item, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	var item *model.Item
	err := c.run(ctx, "create_item", 0, func(ctx context.Context, tx *sql.Tx) error {
		code, err := c.barcodes.Next(ctx, func(ctx context.Context, code string) (bool, error) {
			return store.BarcodeExists(ctx, tx, code)
		})
		if err != nil {
			return err
		}
		item, err = store.CreateItem(ctx, tx, in, code, actor.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	c.record(ctx, actor, model.ActionCreate, model.EntityItem, item.ID, "barcode "+item.Barcode)
	return item, nil
}

// UpdateItem edits an item's descriptive fields.
func (c *Coordinator) UpdateItem(ctx context.Context, actor Actor, id int64, u store.ItemUpdate) (*model.Item, error) {
	var item *model.Item
	err := c.run(ctx, "update_item", id, func(ctx context.Context, tx *sql.Tx) error {
		var err error
		item, err = store.UpdateItemFields(ctx, tx, id, u, actor.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	c.record(ctx, actor, model.ActionUpdate, model.EntityItem, id, "")
	return item, nil
}

// DeleteItem soft-deletes an item. Nothing can happen to it afterwards.
func (c *Coordinator) DeleteItem(ctx context.Context, actor Actor, id int64, reason string) error {
	err := c.run(ctx, "delete_item", id, func(ctx context.Context, tx *sql.Tx) error {
		return store.SoftDeleteItem(ctx, tx, id, actor.ID, reason)
	})
	if err != nil {
		return err
	}

	c.record(ctx, actor, model.ActionDelete, model.EntityItem, id, reason)
	return nil
}

// SetPhoto processes an uploaded image and stores it as the item's photo.
func (c *Coordinator) SetPhoto(ctx context.Context, actor Actor, id int64, upload io.Reader) error {
	photo, err := imaging.ItemPhoto(upload)
	if err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidInput, err)
	}

	err = c.run(ctx, "set_item_photo", id, func(ctx context.Context, tx *sql.Tx) error {
		return store.SetItemPhoto(ctx, tx, id, photo.Data, actor.ID)
	})
	if err != nil {
		return err
	}

	c.record(ctx, actor, model.ActionUpdate, model.EntityItem, id,
		fmt.Sprintf("photo %dx%d", photo.Width, photo.Height))
	return nil
}

// CreatePlacement assigns an item to a room or issues it to an area. The
// item must be active, which also means it holds no other placement.
func (c *Coordinator) CreatePlacement(ctx context.Context, actor Actor, kind model.LedgerKind, in store.NewLedgerEntry) (*model.LedgerEntry, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: unknown ledger kind %q", store.ErrInvalidInput, kind)
	}

	var entry *model.LedgerEntry
	err := c.run(ctx, "create_"+string(kind), in.ItemID, func(ctx context.Context, tx *sql.Tx) error {
		item, err := store.GetItem(ctx, tx, in.ItemID)
		if err != nil {
			return err
		}
		if item == nil || item.Status == model.ItemStatusDeleted {
			return fmt.Errorf("%w: item %d", store.ErrReferenceNotFound, in.ItemID)
		}
		if item.Status != model.ItemStatusActive {
			return fmt.Errorf("%w: item %d is %s", store.ErrInvalidTransition, in.ItemID, item.Status)
		}

		placed, err := store.HasActivePlacement(ctx, tx, in.ItemID)
		if err != nil {
			return err
		}
		if placed {
			return fmt.Errorf("%w: item %d is already placed", store.ErrInvalidTransition, in.ItemID)
		}

		entry, err = store.CreateLedgerEntry(ctx, tx, kind, in, actor.ID)
		if err != nil {
			return err
		}
		return store.SetItemStatus(ctx, tx, in.ItemID, model.ItemStatusAssigned, actor.ID)
	})
	if err != nil {
		return nil, err
	}

	c.record(ctx, actor, model.ActionCreate, string(kind), entry.ID,
		fmt.Sprintf("item %d to %s %d", entry.ItemID, kind.LocationKind(), entry.LocationID))
	return entry, nil
}

// Surrender closes an active placement and settles the item's status.
func (c *Coordinator) Surrender(ctx context.Context, actor Actor, kind model.LedgerKind, id int64, change store.LedgerChange) (*model.LedgerEntry, error) {
	itemID, err := c.ledgerItem(ctx, kind, id)
	if err != nil {
		return nil, err
	}

	var entry *model.LedgerEntry
	err = c.run(ctx, "surrender_"+string(kind), itemID, func(ctx context.Context, tx *sql.Tx) error {
		var err error
		entry, err = store.SetLedgerStatus(ctx, tx, kind, id, model.LedgerStatusSurrendered, actor.ID, change)
		if err != nil {
			return err
		}
		_, err = settle(ctx, tx, itemID, actor.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	c.record(ctx, actor, model.ActionSurrender, string(kind), id, change.Reason)
	return entry, nil
}

// Transfer moves an item from an active placement to another location of
// the same kind. The old entry becomes transferred and a new active entry is
// returned. The item's status is untouched.
func (c *Coordinator) Transfer(ctx context.Context, actor Actor, kind model.LedgerKind, id, locationID int64, change store.LedgerChange) (*model.LedgerEntry, error) {
	itemID, err := c.ledgerItem(ctx, kind, id)
	if err != nil {
		return nil, err
	}

	var next *model.LedgerEntry
	err = c.run(ctx, "transfer_"+string(kind), itemID, func(ctx context.Context, tx *sql.Tx) error {
		old, err := store.GetLedgerEntry(ctx, tx, kind, id)
		if err != nil {
			return err
		}
		if old.Status != model.LedgerStatusActive {
			return fmt.Errorf("%w: %s %d is %s", store.ErrInvalidTransition, kind, id, old.Status)
		}
		if old.LocationID == locationID {
			return fmt.Errorf("%w: %s %d is already at %s %d", store.ErrInvalidInput, kind, id, kind.LocationKind(), locationID)
		}

		if _, err := store.SetLedgerStatus(ctx, tx, kind, id, model.LedgerStatusTransferred, actor.ID, store.LedgerChange{}); err != nil {
			return err
		}

		in := store.NewLedgerEntry{ItemID: old.ItemID, LocationID: locationID, Remarks: old.Remarks, Signature: old.Signature}
		if change.Remarks != nil {
			in.Remarks = *change.Remarks
		}
		if change.Signature != nil {
			in.Signature = *change.Signature
		}
		next, err = store.CreateLedgerEntry(ctx, tx, kind, in, actor.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	c.record(ctx, actor, model.ActionTransfer, string(kind), next.ID,
		fmt.Sprintf("from %s %d", kind, id))
	return next, nil
}

// DeletePlacement soft-deletes an assignment or issuance. Deleting the
// active one releases the item, unless the item is deleted already.
func (c *Coordinator) DeletePlacement(ctx context.Context, actor Actor, kind model.LedgerKind, id int64, reason string) (*model.LedgerEntry, error) {
	itemID, err := c.ledgerItem(ctx, kind, id)
	if err != nil {
		return nil, err
	}

	var entry *model.LedgerEntry
	err = c.run(ctx, "delete_"+string(kind), itemID, func(ctx context.Context, tx *sql.Tx) error {
		old, err := store.GetLedgerEntry(ctx, tx, kind, id)
		if err != nil {
			return err
		}
		if old.Status == model.LedgerStatusDeleted {
			return fmt.Errorf("%w: %s %d", store.ErrNotFound, kind, id)
		}

		entry, err = store.SetLedgerStatus(ctx, tx, kind, id, model.LedgerStatusDeleted, actor.ID, store.LedgerChange{Reason: reason})
		if err != nil {
			return err
		}
		if old.Status != model.LedgerStatusActive {
			return nil
		}

		// Deleted is terminal, there is nothing to settle.
		item, err := store.GetItem(ctx, tx, itemID)
		if err != nil {
			return err
		}
		if item == nil || item.Status == model.ItemStatusDeleted {
			return nil
		}
		_, err = settle(ctx, tx, itemID, actor.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	c.record(ctx, actor, model.ActionDelete, string(kind), id, reason)
	return entry, nil
}

// ledgerItem finds the item an entry belongs to. An entry never changes
// item, so this is safe to read before taking the item's lock.
func (c *Coordinator) ledgerItem(ctx context.Context, kind model.LedgerKind, id int64) (int64, error) {
	if !kind.Valid() {
		return 0, fmt.Errorf("%w: unknown ledger kind %q", store.ErrInvalidInput, kind)
	}
	e, err := store.GetLedgerEntry(ctx, c.db, kind, id)
	if err != nil {
		return 0, err
	}
	if e == nil {
		return 0, fmt.Errorf("%w: %s %d", store.ErrNotFound, kind, id)
	}
	return e.ItemID, nil
}

// ReportRepair opens a repair and marks the item defective.
func (c *Coordinator) ReportRepair(ctx context.Context, actor Actor, in store.NewRepair) (*model.Repair, error) {
	var r *model.Repair
	err := c.run(ctx, "report_repair", in.ItemID, func(ctx context.Context, tx *sql.Tx) error {
		var err error
		r, err = store.CreateRepair(ctx, tx, in, actor.ID)
		if err != nil {
			return err
		}
		return store.SetItemStatus(ctx, tx, in.ItemID, model.ItemStatusDefective, actor.ID)
	})
	if err != nil {
		return nil, err
	}

	c.record(ctx, actor, model.ActionCreate, model.EntityRepair, r.ID, r.Problem)
	return r, nil
}

// CompleteRepair closes an ongoing repair as fixed and settles the item.
func (c *Coordinator) CompleteRepair(ctx context.Context, actor Actor, id int64, diagnosis string, checkedBy *int64) (*model.Repair, error) {
	itemID, err := c.repairItem(ctx, id)
	if err != nil {
		return nil, err
	}

	var r *model.Repair
	err = c.run(ctx, "complete_repair", itemID, func(ctx context.Context, tx *sql.Tx) error {
		var err error
		r, err = store.CompleteRepair(ctx, tx, id, diagnosis, checkedBy, actor.ID)
		if err != nil {
			return err
		}
		_, err = settle(ctx, tx, itemID, actor.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	c.record(ctx, actor, model.ActionComplete, model.EntityRepair, id, diagnosis)
	return r, nil
}

// MarkRepairDefective closes an ongoing repair as beyond repair. The item
// stays defective.
func (c *Coordinator) MarkRepairDefective(ctx context.Context, actor Actor, id int64, reason string) (*model.Repair, error) {
	itemID, err := c.repairItem(ctx, id)
	if err != nil {
		return nil, err
	}

	var r *model.Repair
	err = c.run(ctx, "mark_repair_defective", itemID, func(ctx context.Context, tx *sql.Tx) error {
		var err error
		r, err = store.MarkRepairDefective(ctx, tx, id, reason, actor.ID)
		if err != nil {
			return err
		}
		return store.SetItemStatus(ctx, tx, itemID, model.ItemStatusDefective, actor.ID)
	})
	if err != nil {
		return nil, err
	}

	c.record(ctx, actor, model.ActionDefective, model.EntityRepair, id, reason)
	return r, nil
}

// DeleteRepair soft-deletes a repair record. The item's status is left as
// it is.
func (c *Coordinator) DeleteRepair(ctx context.Context, actor Actor, id int64, reason string) (*model.Repair, error) {
	itemID, err := c.repairItem(ctx, id)
	if err != nil {
		return nil, err
	}

	var r *model.Repair
	err = c.run(ctx, "delete_repair", itemID, func(ctx context.Context, tx *sql.Tx) error {
		var err error
		r, err = store.DeleteRepair(ctx, tx, id, reason, actor.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	c.record(ctx, actor, model.ActionDelete, model.EntityRepair, id, reason)
	return r, nil
}

func (c *Coordinator) repairItem(ctx context.Context, id int64) (int64, error) {
	r, err := store.GetRepair(ctx, c.db, id)
	if err != nil {
		return 0, err
	}
	if r == nil {
		return 0, fmt.Errorf("%w: repair %d", store.ErrNotFound, id)
	}
	return r.ItemID, nil
}
