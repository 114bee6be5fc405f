package api

import (
	"context"
	"database/sql"
	"net/http"
	"time"
)

// HealthHandler reports whether the database answers.
type HealthHandler struct {
	DB *sql.DB
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.DB.PingContext(ctx); err != nil {
		jsonError(w, http.StatusServiceUnavailable, "database unavailable")
		return
	}
	jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}
