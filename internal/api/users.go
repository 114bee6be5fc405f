package api

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/erazemk/assetnexus/internal/auth"
	"github.com/erazemk/assetnexus/internal/model"
	"github.com/erazemk/assetnexus/internal/store"
)

// UsersHandler handles user management endpoints (admin only).
type UsersHandler struct {
	DB *sql.DB
}

type createUserRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type updateUserRequest struct {
	Role     string `json:"role"`
	Password string `json:"password"`
}

// List handles GET /api/users.
func (h *UsersHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := store.ListUsers(r.Context(), h.DB)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if users == nil {
		users = []model.User{}
	}
	jsonResponse(w, http.StatusOK, users)
}

// Create handles POST /api/users.
func (h *UsersHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Username == "" || req.Password == "" || req.Role == "" {
		jsonError(w, http.StatusBadRequest, "username, password, and role required")
		return
	}
	if !model.ValidRole(req.Role) {
		jsonError(w, http.StatusBadRequest, "invalid role")
		return
	}
	if err := model.ValidatePassword(req.Password); err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}

	user, err := store.CreateUser(r.Context(), h.DB, req.Username, hash, req.Role)
	if err != nil {
		writeError(w, r, err)
		return
	}

	noteTrail(r, model.RefID(user.ID), user.Username)
	slog.Info("user created", "user", GetClaims(r.Context()).Username, "created", user.Username, "role", user.Role)
	jsonResponse(w, http.StatusCreated, user)
}

// Get handles GET /api/users/{id}.
func (h *UsersHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	user, err := store.GetUser(r.Context(), h.DB, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if user == nil || user.DeletedAt != nil {
		jsonError(w, http.StatusNotFound, "user not found")
		return
	}
	jsonResponse(w, http.StatusOK, user)
}

// Update handles PUT /api/users/{id}: a role change, a password reset, or
// both.
func (h *UsersHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req updateUserRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Role == "" && req.Password == "" {
		jsonError(w, http.StatusBadRequest, "role or password required")
		return
	}

	ctx := r.Context()
	if req.Role != "" {
		if !model.ValidRole(req.Role) {
			jsonError(w, http.StatusBadRequest, "invalid role")
			return
		}
		if req.Role != model.RoleAdmin && h.isLastAdmin(w, r, id) {
			return
		}
		if err := store.UpdateUserRole(ctx, h.DB, id, req.Role); err != nil {
			writeError(w, r, err)
			return
		}
	}

	if req.Password != "" {
		if err := model.ValidatePassword(req.Password); err != nil {
			jsonError(w, http.StatusBadRequest, err.Error())
			return
		}
		hash, err := auth.HashPassword(req.Password)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if err := store.UpdateUserPassword(ctx, h.DB, id, hash); err != nil {
			writeError(w, r, err)
			return
		}
	}

	user, err := store.GetUser(ctx, h.DB, id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	slog.Info("user updated", "user", GetClaims(ctx).Username, "target", user.Username, "role", user.Role)
	jsonResponse(w, http.StatusOK, user)
}

// Delete handles DELETE /api/users/{id}.
func (h *UsersHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	claims := GetClaims(r.Context())
	if claims.UserID == id {
		jsonError(w, http.StatusConflict, "cannot delete yourself")
		return
	}
	if h.isLastAdmin(w, r, id) {
		return
	}

	if err := store.DeleteUser(r.Context(), h.DB, id); err != nil {
		writeError(w, r, err)
		return
	}

	slog.Info("user deleted", "user", claims.Username, "target_id", id)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "user deleted"})
}

// isLastAdmin answers 409 and returns true when id is the only live admin.
func (h *UsersHandler) isLastAdmin(w http.ResponseWriter, r *http.Request, id int64) bool {
	user, err := store.GetUser(r.Context(), h.DB, id)
	if err != nil {
		writeError(w, r, err)
		return true
	}
	if user == nil || user.Role != model.RoleAdmin || user.DeletedAt != nil {
		return false
	}

	admins, err := store.CountAdmins(r.Context(), h.DB)
	if err != nil {
		writeError(w, r, err)
		return true
	}
	if admins <= 1 {
		jsonError(w, http.StatusConflict, "cannot remove the last admin")
		return true
	}
	return false
}
