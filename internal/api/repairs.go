package api

import (
	"database/sql"
	"net/http"

	"github.com/erazemk/assetnexus/internal/lifecycle"
	"github.com/erazemk/assetnexus/internal/model"
	"github.com/erazemk/assetnexus/internal/store"
)

// RepairsHandler handles repair endpoints.
type RepairsHandler struct {
	DB    *sql.DB
	Coord *lifecycle.Coordinator
}

type createRepairRequest struct {
	ItemID     int64  `json:"item_id"`
	Problem    string `json:"problem"`
	Date       string `json:"date"`
	ReportedBy int64  `json:"reported_by"`
}

type completeRepairRequest struct {
	Diagnosis string `json:"diagnosis"`
	CheckedBy *int64 `json:"checked_by"`
}

// List handles GET /api/repairs.
func (h *RepairsHandler) List(w http.ResponseWriter, r *http.Request) {
	f := store.RepairFilter{
		Status:         r.URL.Query().Get("status"),
		IncludeDeleted: r.URL.Query().Get("all") == "1",
	}
	var err error
	if f.ItemID, err = queryID(r, "item_id"); err != nil {
		writeError(w, r, err)
		return
	}

	repairs, err := store.ListRepairs(r.Context(), h.DB, f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if repairs == nil {
		repairs = []model.Repair{}
	}
	jsonResponse(w, http.StatusOK, repairs)
}

// Get handles GET /api/repairs/{id}.
func (h *RepairsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	repair, err := store.GetRepair(r.Context(), h.DB, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if repair == nil {
		jsonError(w, http.StatusNotFound, "repair not found")
		return
	}
	jsonResponse(w, http.StatusOK, repair)
}

// Create handles POST /api/repairs.
func (h *RepairsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createRepairRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ItemID <= 0 {
		jsonError(w, http.StatusBadRequest, "item_id required")
		return
	}

	date, err := parseDate(req.Date)
	if err != nil {
		writeError(w, r, err)
		return
	}

	repair, err := h.Coord.ReportRepair(r.Context(), actorOf(r), store.NewRepair{
		Date:       date,
		ItemID:     req.ItemID,
		Problem:    req.Problem,
		ReportedBy: req.ReportedBy,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusCreated, repair)
}

// Complete handles PUT /api/repairs/{id}/complete.
func (h *RepairsHandler) Complete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req completeRepairRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	repair, err := h.Coord.CompleteRepair(r.Context(), actorOf(r), id, req.Diagnosis, req.CheckedBy)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, repair)
}

// MarkDefective handles PUT /api/repairs/{id}/defective.
func (h *RepairsHandler) MarkDefective(w http.ResponseWriter, r *http.Request) {
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

	repair, err := h.Coord.MarkRepairDefective(r.Context(), actorOf(r), id, reason)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, repair)
}

// Delete handles DELETE /api/repairs/{id}.
func (h *RepairsHandler) Delete(w http.ResponseWriter, r *http.Request) {
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

	repair, err := h.Coord.DeleteRepair(r.Context(), actorOf(r), id, reason)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, repair)
}
