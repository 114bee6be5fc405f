package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/erazemk/assetnexus/internal/store"
)

// jsonResponse writes a JSON response with the given status code.
func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("error encoding response", "error", err)
		}
	}
}

// jsonError writes a JSON error response.
func jsonError(w http.ResponseWriter, status int, message string) {
	jsonResponse(w, status, map[string]string{"error": message})
}

// decodeJSON decodes a JSON request body into the given target.
func decodeJSON(r *http.Request, target any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(target)
}

// pathID parses the {id} path value.
func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid id %q", store.ErrInvalidInput, r.PathValue("id"))
	}
	return id, nil
}

// queryID parses an optional numeric query parameter. Missing means 0.
func queryID(r *http.Request, name string) (int64, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return 0, nil
	}
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil || id < 0 {
		return 0, fmt.Errorf("%w: invalid %s %q", store.ErrInvalidInput, name, v)
	}
	return id, nil
}

// errorStatus maps an error to the HTTP status reported for it.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, store.ErrNotFound), errors.Is(err, store.ErrReferenceNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrDuplicateKey), errors.Is(err, store.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, store.ErrTimeout), errors.Is(err, store.ErrGenerationExhausted):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// writeError answers with the status matching err. Domain errors carry a
// message meant for the client; anything else is logged and hidden behind a
// generic message.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := errorStatus(err)
	switch status {
	case http.StatusInternalServerError:
		slog.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", RequestID(r.Context()),
			"error", err,
		)
		jsonError(w, status, "internal error")
		return
	case http.StatusServiceUnavailable:
		slog.Warn("request not completed, retryable", "path", r.URL.Path, "error", err)
		w.Header().Set("Retry-After", "1")
	}
	jsonError(w, status, err.Error())
}
