package api

import (
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/erazemk/assetnexus/internal/lifecycle"
	"github.com/erazemk/assetnexus/internal/model"
	"github.com/erazemk/assetnexus/internal/store"
)

// PlacementsHandler handles assignment or issuance endpoints, depending on
// Kind.
type PlacementsHandler struct {
	DB    *sql.DB
	Coord *lifecycle.Coordinator
	Kind  model.LedgerKind
}

type createPlacementRequest struct {
	ItemID     int64  `json:"item_id"`
	LocationID int64  `json:"location_id"`
	Date       string `json:"date"`
	Remarks    string `json:"remarks"`
	Signature  string `json:"signature"`
}

type placementStatusRequest struct {
	Status        string  `json:"status"`
	Reason        string  `json:"reason"`
	NewLocationID int64   `json:"new_location_id"`
	NewRoomID     int64   `json:"new_room_id"`
	Remarks       *string `json:"remarks"`
	Signature     *string `json:"signature"`
}

// parseDate accepts an RFC 3339 timestamp or a plain date. Empty means zero.
func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: invalid date %q", store.ErrInvalidInput, s)
	}
	return t, nil
}

// List handles GET /api/{kind}. Deleted entries are included with ?all=1.
func (h *PlacementsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := store.LedgerFilter{
		Status:         q.Get("status"),
		IncludeDeleted: q.Get("all") == "1",
	}

	var err error
	if f.ItemID, err = queryID(r, "item_id"); err != nil {
		writeError(w, r, err)
		return
	}
	if f.LocationID, err = queryID(r, "location_id"); err != nil {
		writeError(w, r, err)
		return
	}

	entries, err := store.ListLedgerEntries(r.Context(), h.DB, h.Kind, f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if entries == nil {
		entries = []model.LedgerEntry{}
	}
	jsonResponse(w, http.StatusOK, entries)
}

// Get handles GET /api/{kind}/{id}.
func (h *PlacementsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	entry, err := store.GetLedgerEntry(r.Context(), h.DB, h.Kind, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if entry == nil {
		jsonError(w, http.StatusNotFound, string(h.Kind)+" not found")
		return
	}
	jsonResponse(w, http.StatusOK, entry)
}

// Create handles POST /api/{kind}.
func (h *PlacementsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createPlacementRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ItemID <= 0 || req.LocationID <= 0 {
		jsonError(w, http.StatusBadRequest, "item_id and location_id required")
		return
	}

	date, err := parseDate(req.Date)
	if err != nil {
		writeError(w, r, err)
		return
	}

	entry, err := h.Coord.CreatePlacement(r.Context(), actorOf(r), h.Kind, store.NewLedgerEntry{
		Date:       date,
		ItemID:     req.ItemID,
		LocationID: req.LocationID,
		Remarks:    req.Remarks,
		Signature:  req.Signature,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusCreated, entry)
}

// SetStatus handles PUT /api/{kind}/{id}/status. A transfer answers with the
// new entry.
func (h *PlacementsHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req placementStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	change := store.LedgerChange{
		Remarks:   req.Remarks,
		Signature: req.Signature,
		Reason:    req.Reason,
	}
	ctx, actor := r.Context(), actorOf(r)

	var entry *model.LedgerEntry
	switch req.Status {
	case model.LedgerStatusSurrendered:
		entry, err = h.Coord.Surrender(ctx, actor, h.Kind, id, change)
	case model.LedgerStatusTransferred:
		target := req.NewLocationID
		if target == 0 {
			target = req.NewRoomID
		}
		if target <= 0 {
			jsonError(w, http.StatusBadRequest, "new_location_id required for a transfer")
			return
		}
		entry, err = h.Coord.Transfer(ctx, actor, h.Kind, id, target, change)
	case model.LedgerStatusDeleted:
		entry, err = h.Coord.DeletePlacement(ctx, actor, h.Kind, id, req.Reason)
	default:
		jsonError(w, http.StatusBadRequest, fmt.Sprintf("unsupported status %q", req.Status))
		return
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, entry)
}

// Delete handles DELETE /api/{kind}/{id}.
func (h *PlacementsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	reason, err := decodeReason(r)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	entry, err := h.Coord.DeletePlacement(r.Context(), actorOf(r), h.Kind, id, reason)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, entry)
}
