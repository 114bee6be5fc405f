package api

import (
	"net/http"
	"strconv"

	"github.com/erazemk/assetnexus/internal/model"
	"github.com/erazemk/assetnexus/internal/store"
	"github.com/erazemk/assetnexus/internal/trail"
)

// TrailsHandler handles audit trail endpoints.
type TrailsHandler struct {
	Trail *trail.Recorder
}

// List handles GET /api/trails. Supported filters: entity, entity_id,
// unreviewed=1 and limit.
func (h *TrailsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := store.TrailFilter{
		Entity:     q.Get("entity"),
		Unreviewed: q.Get("unreviewed") == "1",
	}

	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit <= 0 {
			jsonError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		f.Limit = limit
	}

	entityID, err := queryID(r, "entity_id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if entityID > 0 {
		ref := model.RefID(entityID)
		f.EntityRef = &ref
	}

	entries, err := h.Trail.List(r.Context(), f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if entries == nil {
		entries = []model.TrailEntry{}
	}
	jsonResponse(w, http.StatusOK, entries)
}

// CountUnreviewed handles GET /api/trails/unreviewed/count.
func (h *TrailsHandler) CountUnreviewed(w http.ResponseWriter, r *http.Request) {
	count, err := h.Trail.CountUnreviewed(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]int{"count": count})
}

// MarkReviewed handles PUT /api/trails/{id}/reviewed.
func (h *TrailsHandler) MarkReviewed(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	entry, err := h.Trail.MarkReviewed(r.Context(), id, actorOf(r).ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, entry)
}
