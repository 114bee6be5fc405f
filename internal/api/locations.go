package api

import (
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/erazemk/assetnexus/internal/model"
	"github.com/erazemk/assetnexus/internal/store"
)

// LocationsHandler handles room or area endpoints, depending on Kind.
type LocationsHandler struct {
	DB   *sql.DB
	Kind string
}

type locationRequest struct {
	Name string `json:"name"`
}

// List handles GET /api/{rooms,areas}.
func (h *LocationsHandler) List(w http.ResponseWriter, r *http.Request) {
	locations, err := store.ListLocations(r.Context(), h.DB, h.Kind)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if locations == nil {
		locations = []model.Location{}
	}
	jsonResponse(w, http.StatusOK, locations)
}

// Get handles GET /api/{rooms,areas}/{id}.
func (h *LocationsHandler) Get(w http.ResponseWriter, r *http.Request) {
	loc, ok := h.lookup(w, r)
	if !ok {
		return
	}
	jsonResponse(w, http.StatusOK, loc)
}

// Create handles POST /api/{rooms,areas}.
func (h *LocationsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req locationRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	loc, err := store.CreateLocation(r.Context(), h.DB, req.Name, h.Kind, actorOf(r).ID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	noteTrail(r, model.RefID(loc.ID), loc.Name)
	slog.Info("location created", "user", GetClaims(r.Context()).Username, "kind", loc.Kind, "name", loc.Name)
	jsonResponse(w, http.StatusCreated, loc)
}

// Rename handles PUT /api/{rooms,areas}/{id}.
func (h *LocationsHandler) Rename(w http.ResponseWriter, r *http.Request) {
	current, ok := h.lookup(w, r)
	if !ok {
		return
	}

	var req locationRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	loc, err := store.RenameLocation(r.Context(), h.DB, current.ID, req.Name, actorOf(r).ID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	noteTrail(r, model.RefID(loc.ID), fmt.Sprintf("%s -> %s", current.Name, loc.Name))
	jsonResponse(w, http.StatusOK, loc)
}

// Delete handles DELETE /api/{rooms,areas}/{id}.
func (h *LocationsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	loc, ok := h.lookup(w, r)
	if !ok {
		return
	}

	reason, err := decodeReason(r)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := store.DeleteLocation(r.Context(), h.DB, loc.ID, reason, actorOf(r).ID); err != nil {
		writeError(w, r, err)
		return
	}

	noteTrail(r, model.RefID(loc.ID), reason)
	slog.Info("location deleted", "user", GetClaims(r.Context()).Username, "kind", loc.Kind, "name", loc.Name)
	jsonResponse(w, http.StatusOK, map[string]string{"message": h.Kind + " deleted"})
}

// lookup loads the active location named by the path, answering 404 when it
// is missing, deleted or of the other kind.
func (h *LocationsHandler) lookup(w http.ResponseWriter, r *http.Request) (*model.Location, bool) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return nil, false
	}

	loc, err := store.GetLocation(r.Context(), h.DB, id)
	if err != nil {
		writeError(w, r, err)
		return nil, false
	}
	if loc == nil || loc.Kind != h.Kind || loc.Status != model.LocationStatusActive {
		jsonError(w, http.StatusNotFound, h.Kind+" not found")
		return nil, false
	}
	return loc, true
}
