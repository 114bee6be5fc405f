package api

import (
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/erazemk/assetnexus/internal/imaging"
	"github.com/erazemk/assetnexus/internal/lifecycle"
	"github.com/erazemk/assetnexus/internal/model"
	"github.com/erazemk/assetnexus/internal/store"
)

// ItemsHandler handles item endpoints.
type ItemsHandler struct {
	DB    *sql.DB
	Coord *lifecycle.Coordinator
}

type reasonRequest struct {
	Reason string `json:"reason"`
}

// decodeReason reads an optional {"reason": ...} body.
func decodeReason(r *http.Request) (string, error) {
	var req reasonRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimSpace(req.Reason), nil
}

// List handles GET /api/items.
func (h *ItemsHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := store.ListItems(r.Context(), h.DB, r.URL.Query().Get("status"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if items == nil {
		items = []model.Item{}
	}
	jsonResponse(w, http.StatusOK, items)
}

// Create handles POST /api/items. The barcode is assigned by the server.
func (h *ItemsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req store.NewItem
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	item, err := h.Coord.CreateItem(r.Context(), actorOf(r), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusCreated, item)
}

// Get handles GET /api/items/{id}.
func (h *ItemsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	item, err := store.GetLiveItem(r.Context(), h.DB, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, item)
}

// Update handles PUT /api/items/{id}. Only the fields present in the body
// change.
func (h *ItemsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var raw map[string]json.RawMessage
	if err := decodeJSON(r, &raw); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	update, err := store.DecodeItemUpdate(raw)
	if err != nil {
		writeError(w, r, err)
		return
	}

	item, err := h.Coord.UpdateItem(r.Context(), actorOf(r), id, update)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, item)
}

// Delete handles DELETE /api/items/{id}.
func (h *ItemsHandler) Delete(w http.ResponseWriter, r *http.Request) {
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

	if err := h.Coord.DeleteItem(r.Context(), actorOf(r), id, reason); err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]string{"message": "item deleted"})
}

// UploadPhoto handles PUT /api/items/{id}/photo. The image is sent either
// as the "photo" field of a multipart form or as the raw request body.
func (h *ItemsHandler) UploadPhoto(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, imaging.MaxUploadBytes+1<<20)

	var upload io.Reader = r.Body
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(imaging.MaxUploadBytes); err != nil {
			jsonError(w, http.StatusBadRequest, "file too large or invalid multipart form")
			return
		}
		file, _, err := r.FormFile("photo")
		if err != nil {
			jsonError(w, http.StatusBadRequest, "photo file required")
			return
		}
		defer file.Close()
		upload = file
	}

	if err := h.Coord.SetPhoto(r.Context(), actorOf(r), id, upload); err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]string{"message": "photo uploaded"})
}

// GetPhoto handles GET /api/items/{id}/photo.
func (h *ItemsHandler) GetPhoto(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	data, err := store.GetItemPhoto(r.Context(), h.DB, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if data == nil {
		jsonError(w, http.StatusNotFound, "no photo")
		return
	}

	w.Header().Set("Content-Type", imaging.ContentType)
	w.Header().Set("Cache-Control", "private, max-age=3600")
	if _, err := w.Write(data); err != nil {
		slog.Warn("writing photo", "item", id, "error", err)
	}
}

// History handles GET /api/items/{id}/history.
func (h *ItemsHandler) History(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	history, err := store.GetItemHistory(r.Context(), h.DB, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, history)
}
