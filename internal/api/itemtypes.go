package api

import (
	"database/sql"
	"net/http"
	"strconv"

	"github.com/erazemk/assetnexus/internal/model"
	"github.com/erazemk/assetnexus/internal/store"
)

// ItemTypesHandler handles item type endpoints.
type ItemTypesHandler struct {
	DB *sql.DB
}

type itemTypeRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type bulkUsageRequest struct {
	IDs []int64 `json:"ids"`
}

// List handles GET /api/item-types.
func (h *ItemTypesHandler) List(w http.ResponseWriter, r *http.Request) {
	types, err := store.ListItemTypes(r.Context(), h.DB)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if types == nil {
		types = []model.ItemType{}
	}
	jsonResponse(w, http.StatusOK, types)
}

// Create handles POST /api/item-types.
func (h *ItemTypesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req itemTypeRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	t, err := store.CreateItemType(r.Context(), h.DB, req.Name, req.Description, actorOf(r).ID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	noteTrail(r, model.RefID(t.ID), t.Name)
	jsonResponse(w, http.StatusCreated, t)
}

// Update handles PUT /api/item-types/{id}.
func (h *ItemTypesHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req itemTypeRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	t, err := store.UpdateItemType(r.Context(), h.DB, id, req.Name, req.Description, actorOf(r).ID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	noteTrail(r, model.RefID(t.ID), t.Name)
	jsonResponse(w, http.StatusOK, t)
}

// Delete handles DELETE /api/item-types/{id}.
func (h *ItemTypesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := store.DeleteItemType(r.Context(), h.DB, id); err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]string{"message": "item type deleted"})
}

// Usage handles GET /api/item-types/{id}/usage.
func (h *ItemTypesHandler) Usage(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	exists, err := store.ItemTypeExists(r.Context(), h.DB, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !exists {
		jsonError(w, http.StatusNotFound, "item type not found")
		return
	}

	usage, err := store.ItemTypeUsage(r.Context(), h.DB, []int64{id})
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]bool{"in_use": usage[id]})
}

// BulkUsage handles POST /api/item-types/usage/bulk. The answer maps every
// requested id to whether any item uses it.
func (h *ItemTypesHandler) BulkUsage(w http.ResponseWriter, r *http.Request) {
	var req bulkUsageRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	usage, err := store.ItemTypeUsage(r.Context(), h.DB, req.IDs)
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := make(map[string]bool, len(usage))
	for id, used := range usage {
		out[strconv.FormatInt(id, 10)] = used
	}
	jsonResponse(w, http.StatusOK, out)
}
