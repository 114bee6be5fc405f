package api

import (
	"database/sql"
	"net/http"

	"github.com/erazemk/assetnexus/internal/auth"
	"github.com/erazemk/assetnexus/internal/lifecycle"
	"github.com/erazemk/assetnexus/internal/metrics"
	"github.com/erazemk/assetnexus/internal/model"
	"github.com/erazemk/assetnexus/internal/trail"
)

// Deps holds what the API handlers need.
type Deps struct {
	DB          *sql.DB
	Coordinator *lifecycle.Coordinator
	Tokens      *auth.Tokens
	Trail       *trail.Recorder
	Metrics     *metrics.Metrics
}

// NewRouter creates the HTTP handler serving the JSON API, metrics and the
// health check.
func NewRouter(d Deps) http.Handler {
	if d.Trail == nil {
		d.Trail = trail.NewRecorder(d.DB, d.Metrics)
	}
	mux := http.NewServeMux()

	authMW := AuthMiddleware(d.Tokens, d.DB)
	requireAdmin := RequireRole(model.RoleAdmin)
	requireManager := RequireRole(model.RoleManager)
	audited := func(entity string) func(http.Handler) http.Handler {
		return TrailMiddleware(d.Trail, entity)
	}

	// Public.
	authH := &AuthHandler{DB: d.DB, Tokens: d.Tokens}
	mux.HandleFunc("POST /api/auth/login", authH.Login)

	settingsH := &SettingsHandler{DB: d.DB}
	mux.HandleFunc("GET /api/settings", settingsH.Get)
	mux.Handle("PUT /api/settings",
		authMW(requireAdmin(audited(model.EntitySettings)(http.HandlerFunc(settingsH.Update)))))

	mux.Handle("GET /healthz", &HealthHandler{DB: d.DB})
	mux.Handle("GET /metrics", d.Metrics.Handler())

	// Auth.
	mux.Handle("POST /api/auth/logout", authMW(http.HandlerFunc(authH.Logout)))
	mux.Handle("PUT /api/auth/password", authMW(http.HandlerFunc(authH.ChangePassword)))

	// Users.
	usersH := &UsersHandler{DB: d.DB}
	userMW := func(h http.HandlerFunc) http.Handler {
		return authMW(requireAdmin(audited(model.EntityUser)(h)))
	}
	mux.Handle("GET /api/users", authMW(requireAdmin(http.HandlerFunc(usersH.List))))
	mux.Handle("POST /api/users", userMW(usersH.Create))
	mux.Handle("GET /api/users/{id}", authMW(requireAdmin(http.HandlerFunc(usersH.Get))))
	mux.Handle("PUT /api/users/{id}", userMW(usersH.Update))
	mux.Handle("DELETE /api/users/{id}", userMW(usersH.Delete))

	// Items. The coordinator records their trail entries.
	itemsH := &ItemsHandler{DB: d.DB, Coord: d.Coordinator}
	mux.Handle("GET /api/items", authMW(http.HandlerFunc(itemsH.List)))
	mux.Handle("POST /api/items", authMW(requireManager(http.HandlerFunc(itemsH.Create))))
	mux.Handle("GET /api/items/{id}", authMW(http.HandlerFunc(itemsH.Get)))
	mux.Handle("PUT /api/items/{id}", authMW(requireManager(http.HandlerFunc(itemsH.Update))))
	mux.Handle("DELETE /api/items/{id}", authMW(requireManager(http.HandlerFunc(itemsH.Delete))))
	mux.Handle("GET /api/items/{id}/history", authMW(http.HandlerFunc(itemsH.History)))
	mux.Handle("GET /api/items/{id}/photo", authMW(http.HandlerFunc(itemsH.GetPhoto)))
	mux.Handle("PUT /api/items/{id}/photo", authMW(requireManager(http.HandlerFunc(itemsH.UploadPhoto))))

	// Assignments and issuances.
	for _, kind := range []model.LedgerKind{model.LedgerAssignment, model.LedgerIssuance} {
		h := &PlacementsHandler{DB: d.DB, Coord: d.Coordinator, Kind: kind}
		base := "/api/" + kind.Table()
		mux.Handle("GET "+base, authMW(http.HandlerFunc(h.List)))
		mux.Handle("POST "+base, authMW(http.HandlerFunc(h.Create)))
		mux.Handle("GET "+base+"/{id}", authMW(http.HandlerFunc(h.Get)))
		mux.Handle("PUT "+base+"/{id}/status", authMW(http.HandlerFunc(h.SetStatus)))
		mux.Handle("DELETE "+base+"/{id}", authMW(http.HandlerFunc(h.Delete)))
	}

	// Repairs.
	repairsH := &RepairsHandler{DB: d.DB, Coord: d.Coordinator}
	mux.Handle("GET /api/repairs", authMW(http.HandlerFunc(repairsH.List)))
	mux.Handle("POST /api/repairs", authMW(http.HandlerFunc(repairsH.Create)))
	mux.Handle("GET /api/repairs/{id}", authMW(http.HandlerFunc(repairsH.Get)))
	mux.Handle("PUT /api/repairs/{id}/complete", authMW(http.HandlerFunc(repairsH.Complete)))
	mux.Handle("PUT /api/repairs/{id}/defective", authMW(http.HandlerFunc(repairsH.MarkDefective)))
	mux.Handle("DELETE /api/repairs/{id}", authMW(http.HandlerFunc(repairsH.Delete)))

	// Rooms and areas.
	for _, loc := range []struct{ path, kind, entity string }{
		{"/api/rooms", model.LocationKindRoom, model.EntityRoom},
		{"/api/areas", model.LocationKindArea, model.EntityArea},
	} {
		h := &LocationsHandler{DB: d.DB, Kind: loc.kind}
		write := func(fn http.HandlerFunc) http.Handler {
			return authMW(requireManager(audited(loc.entity)(fn)))
		}
		mux.Handle("GET "+loc.path, authMW(http.HandlerFunc(h.List)))
		mux.Handle("POST "+loc.path, write(h.Create))
		mux.Handle("GET "+loc.path+"/{id}", authMW(http.HandlerFunc(h.Get)))
		mux.Handle("PUT "+loc.path+"/{id}", write(h.Rename))
		mux.Handle("DELETE "+loc.path+"/{id}", write(h.Delete))
	}

	// Item types.
	typesH := &ItemTypesHandler{DB: d.DB}
	typeMW := func(h http.HandlerFunc) http.Handler {
		return authMW(requireManager(audited(model.EntityItemType)(h)))
	}
	mux.Handle("GET /api/item-types", authMW(http.HandlerFunc(typesH.List)))
	mux.Handle("POST /api/item-types", typeMW(typesH.Create))
	mux.Handle("PUT /api/item-types/{id}", typeMW(typesH.Update))
	mux.Handle("DELETE /api/item-types/{id}", typeMW(typesH.Delete))
	mux.Handle("GET /api/item-types/{id}/usage", authMW(http.HandlerFunc(typesH.Usage)))
	mux.Handle("POST /api/item-types/usage/bulk", authMW(http.HandlerFunc(typesH.BulkUsage)))

	// Trails.
	trailsH := &TrailsHandler{Trail: d.Trail}
	mux.Handle("GET /api/trails", authMW(requireManager(http.HandlerFunc(trailsH.List))))
	mux.Handle("GET /api/trails/unreviewed/count", authMW(requireManager(http.HandlerFunc(trailsH.CountUnreviewed))))
	mux.Handle("PUT /api/trails/{id}/reviewed", authMW(requireManager(http.HandlerFunc(trailsH.MarkReviewed))))

	return LoggingMiddleware(d.Metrics, mux)
}
