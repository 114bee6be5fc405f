package api

import (
	"context"
	"database/sql"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/erazemk/assetnexus/internal/auth"
	"github.com/erazemk/assetnexus/internal/lifecycle"
	"github.com/erazemk/assetnexus/internal/metrics"
	"github.com/erazemk/assetnexus/internal/model"
	"github.com/erazemk/assetnexus/internal/store"
	"github.com/erazemk/assetnexus/internal/trail"
)

type contextKey string

const (
	claimsKey    contextKey = "claims"
	requestIDKey contextKey = "request_id"
	trailNoteKey contextKey = "trail_note"
)

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = "X-Request-ID"

// AuthMiddleware validates the bearer token, rejects revoked tokens and adds
// the claims to the context.
func AuthMiddleware(tokens *auth.Tokens, db *sql.DB) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				jsonError(w, http.StatusUnauthorized, "missing or invalid authorization header")
				return
			}

			claims, err := tokens.Verify(strings.TrimPrefix(header, "Bearer "))
			if err != nil {
				jsonError(w, http.StatusUnauthorized, "invalid token")
				return
			}

			revoked, err := store.IsTokenRevoked(r.Context(), db, claims.ID)
			if err != nil {
				writeError(w, r, err)
				return
			}
			if revoked {
				jsonError(w, http.StatusUnauthorized, "token revoked")
				return
			}

			ctx := context.WithValue(r.Context(), claimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole returns middleware that checks if the user has at least the given role.
func RequireRole(minimum string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := GetClaims(r.Context())
			if claims == nil {
				jsonError(w, http.StatusUnauthorized, "not authenticated")
				return
			}
			if !model.RoleAtLeast(claims.Role, minimum) {
				jsonError(w, http.StatusForbidden, "insufficient permissions")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// GetClaims retrieves the JWT claims from the context.
func GetClaims(ctx context.Context) *auth.Claims {
	claims, _ := ctx.Value(claimsKey).(*auth.Claims)
	return claims
}

// RequestID returns the id LoggingMiddleware assigned to the request.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// actorOf returns the authenticated actor of a request.
func actorOf(r *http.Request) lifecycle.Actor {
	a := lifecycle.Actor{Origin: clientAddr(r)}
	if claims := GetClaims(r.Context()); claims != nil {
		a.ID = claims.UserID
	}
	return a
}

func clientAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// statusRecorder wraps http.ResponseWriter to capture the status code.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// LoggingMiddleware assigns a request id and logs each request with method,
// path, status and duration. Requests are also counted in m.
func LoggingMiddleware(m *metrics.Metrics, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		id := r.Header.Get(RequestIDHeader)
		if id == "" || len(id) > 64 {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		r = r.WithContext(context.WithValue(r.Context(), requestIDKey, id))

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		m.HTTPRequest(r.Method, rec.status)
		slog.Info("http request",
			"method", r.Method,
			"path", r.URL.RequestURI(),
			"status", rec.status,
			"duration", time.Since(start).Round(time.Millisecond),
			"request_id", id,
		)
	})
}

// trailNote lets a handler name the entity a request touched, for requests
// whose path does not carry it (creations).
type trailNote struct {
	ref     *model.EntityRef
	details string
}

// noteTrail records which entity the current request affected.
func noteTrail(r *http.Request, ref model.EntityRef, details string) {
	if n, ok := r.Context().Value(trailNoteKey).(*trailNote); ok {
		n.ref = &ref
		n.details = details
	}
}

var methodActions = map[string]string{
	http.MethodPost:   model.ActionCreate,
	http.MethodPut:    model.ActionUpdate,
	http.MethodDelete: model.ActionDelete,
}

// TrailMiddleware records one trail entry, labelled with entity, for every
// successful mutating request.
func TrailMiddleware(rec *trail.Recorder, entity string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			action, mutating := methodActions[r.Method]
			if !mutating {
				next.ServeHTTP(w, r)
				return
			}

			note := &trailNote{}
			sr := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sr, r.WithContext(context.WithValue(r.Context(), trailNoteKey, note)))
			if sr.status >= http.StatusMultipleChoices {
				return
			}

			ref := model.RefLabel(r.URL.Path)
			if note.ref != nil {
				ref = *note.ref
			} else if id, err := pathID(r); err == nil {
				ref = model.RefID(id)
			}

			actor := actorOf(r)
			rec.Record(r.Context(), model.TrailEntry{
				ActorID:   actor.ID,
				Action:    action,
				Entity:    entity,
				EntityRef: ref,
				Details:   note.details,
				Origin:    actor.Origin,
			})
		})
	}
}
