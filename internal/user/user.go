// Package user implements the minimal user API: users are display names, not
// accounts. A client creates one on first run, caches the returned id and
// session token locally, and re-onboards if the stored id no longer exists.
package user

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/framenote/framenote/internal/database"
	"github.com/framenote/framenote/internal/httputil"
	"github.com/framenote/framenote/internal/validate"
	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
)

type contextKey string

const userIDKey contextKey = "userID"

type Handler struct {
	db        database.DBTX
	jwtSecret string
}

func NewHandler(db database.DBTX, jwtSecret string) *Handler {
	return &Handler{db: db, jwtSecret: jwtSecret}
}

type createRequest struct {
	Name string `json:"name"`
}

type userResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	CreatedAt   string `json:"createdAt"`
	AccessToken string `json:"accessToken,omitempty"`
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		httputil.WriteError(w, http.StatusBadRequest, "name is required")
		return
	}
	if msg := validate.UserName(req.Name); msg != "" {
		httputil.WriteError(w, http.StatusBadRequest, msg)
		return
	}

	var id string
	var createdAt time.Time
	err := h.db.QueryRow(r.Context(),
		`INSERT INTO users (name) VALUES ($1) RETURNING id, created_at`,
		req.Name,
	).Scan(&id, &createdAt)
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "could not create user")
		return
	}

	token, err := GenerateSessionToken(h.jwtSecret, id)
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "could not issue session token")
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, userResponse{
		ID:          id,
		Name:        req.Name,
		CreatedAt:   createdAt.Format(time.RFC3339),
		AccessToken: token,
	})
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var name string
	var createdAt time.Time
	err := h.db.QueryRow(r.Context(),
		`SELECT name, created_at FROM users WHERE id = $1`,
		id,
	).Scan(&name, &createdAt)
	if err == pgx.ErrNoRows {
		httputil.WriteError(w, http.StatusNotFound, "user not found")
		return
	}
	if err != nil {
		// Scan errors from malformed uuids land here too; a missing or
		// garbage id means re-onboarding either way.
		httputil.WriteError(w, http.StatusNotFound, "user not found")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, userResponse{
		ID:        id,
		Name:      name,
		CreatedAt: createdAt.Format(time.RFC3339),
	})
}

// RequireSession guards endpoints that act on behalf of a user (archive
// management). The annotation CRUD itself stays token-free, matching the
// trust model of the client: userId travels in the request body.
func (h *Handler) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			httputil.WriteError(w, http.StatusUnauthorized, "authorization header required")
			return
		}
		tokenStr, found := strings.CutPrefix(authHeader, "Bearer ")
		if !found {
			httputil.WriteError(w, http.StatusUnauthorized, "invalid authorization header format")
			return
		}
		claims, err := ValidateSessionToken(h.jwtSecret, tokenStr)
		if err != nil {
			httputil.WriteError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		ctx := context.WithValue(r.Context(), userIDKey, claims.UserID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// UserIDFromContext returns the session user id set by RequireSession.
func UserIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(userIDKey).(string); ok {
		return v
	}
	return ""
}
