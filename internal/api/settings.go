package api

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/erazemk/assetnexus/internal/model"
	"github.com/erazemk/assetnexus/internal/store"
)

// SettingsHandler handles application settings.
type SettingsHandler struct {
	DB *sql.DB
}

type settingsRequest struct {
	AppName     string `json:"app_name"`
	CompanyName string `json:"company_name"`
	LogoURL     string `json:"logo_url"`
}

// Get handles GET /api/settings. It needs no authentication so the login
// screen can show the branding.
func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	s, err := store.GetSettings(r.Context(), h.DB)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, s)
}

// Update handles PUT /api/settings.
func (h *SettingsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req settingsRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	s, err := store.UpdateSettings(r.Context(), h.DB, req.AppName, req.CompanyName, req.LogoURL, actorOf(r).ID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	noteTrail(r, model.RefLabel(model.EntitySettings), s.AppName)
	slog.Info("settings updated", "user", GetClaims(r.Context()).Username, "app_name", s.AppName)
	jsonResponse(w, http.StatusOK, s)
}
