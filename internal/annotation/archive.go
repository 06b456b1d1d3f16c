package annotation

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/framenote/framenote/internal/httputil"
	"github.com/framenote/framenote/internal/identity"
	"github.com/framenote/framenote/internal/user"
	"github.com/framenote/framenote/internal/validate"
	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"golang.org/x/crypto/bcrypt"
)

// archiveLinkExpiry bounds the presigned download URL, not the archive
// itself; a fresh link is minted on every fetch.
const archiveLinkExpiry = 15 * time.Minute

type createArchiveRequest struct {
	Password string `json:"password"`
}

type archiveResponse struct {
	ShareToken string `json:"shareToken"`
	URL        string `json:"url"`
	CreatedAt  string `json:"createdAt"`
}

type archiveDownloadResponse struct {
	VideoHash   string `json:"videoHash"`
	DownloadURL string `json:"downloadUrl"`
	CreatedAt   string `json:"createdAt"`
}

// CreateArchive snapshots the current export document for a video into
// object storage and returns a shareable token. Requires a session token;
// the snapshot is attributed to the session user. An optional password gates
// later downloads.
func (h *Handler) CreateArchive(w http.ResponseWriter, r *http.Request) {
	userID := user.UserIDFromContext(r.Context())
	videoID := chi.URLParam(r, "videoId")
	if !identity.Valid(videoID) {
		httputil.WriteError(w, http.StatusBadRequest, "invalid video hash")
		return
	}
	if h.storage == nil {
		httputil.WriteError(w, http.StatusNotFound, "archives are not enabled")
		return
	}

	var req createArchiveRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}
	if len(req.Password) > validate.MaxArchivePasswordLen {
		httputil.WriteError(w, http.StatusBadRequest, "password is too long")
		return
	}

	doc, err := h.buildExport(r.Context(), videoID)
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "could not export annotations")
		return
	}
	body, err := json.Marshal(doc)
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "could not encode export")
		return
	}

	token, err := generateShareToken()
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "could not create share token")
		return
	}
	fileKey := fmt.Sprintf("archives/%s/%s.json", videoID, token)

	if err := h.storage.PutObject(r.Context(), fileKey, body, "application/json"); err != nil {
		slog.Error("archive: upload failed", "video_hash", videoID, "error", err)
		httputil.WriteError(w, http.StatusInternalServerError, "could not store archive")
		return
	}

	var passwordArg *string
	if req.Password != "" {
		hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			httputil.WriteError(w, http.StatusInternalServerError, "could not hash password")
			return
		}
		s := string(hashed)
		passwordArg = &s
	}

	var createdAt time.Time
	err = h.db.QueryRow(r.Context(),
		`INSERT INTO export_archives (video_hash, user_id, share_token, password, file_key)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING created_at`,
		videoID, userID, token, passwordArg, fileKey,
	).Scan(&createdAt)
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "could not save archive")
		return
	}

	slog.Info("archive: created", "video_hash", videoID, "share_token", token)
	httputil.WriteJSON(w, http.StatusCreated, archiveResponse{
		ShareToken: token,
		URL:        h.baseURL + "/api/archives/" + token,
		CreatedAt:  createdAt.Format(time.RFC3339),
	})
}

// GetArchive resolves a share token to a presigned download URL for the
// archived export document. Password-protected archives take the password in
// the X-Archive-Password header.
func (h *Handler) GetArchive(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	if h.storage == nil {
		httputil.WriteError(w, http.StatusNotFound, "archives are not enabled")
		return
	}

	var videoHash, fileKey string
	var password *string
	var createdAt time.Time
	err := h.db.QueryRow(r.Context(),
		`SELECT video_hash, password, file_key, created_at FROM export_archives WHERE share_token = $1`,
		token,
	).Scan(&videoHash, &password, &fileKey, &createdAt)
	if errors.Is(err, pgx.ErrNoRows) {
		httputil.WriteError(w, http.StatusNotFound, "archive not found")
		return
	}
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "could not look up archive")
		return
	}

	if password != nil {
		supplied := r.Header.Get("X-Archive-Password")
		if supplied == "" {
			httputil.WriteError(w, http.StatusForbidden, "password required")
			return
		}
		if bcrypt.CompareHashAndPassword([]byte(*password), []byte(supplied)) != nil {
			httputil.WriteError(w, http.StatusForbidden, "wrong password")
			return
		}
	}

	url, err := h.storage.PresignGet(r.Context(), fileKey, archiveLinkExpiry)
	if err != nil {
		slog.Error("archive: presign failed", "share_token", token, "error", err)
		httputil.WriteError(w, http.StatusInternalServerError, "could not generate download link")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, archiveDownloadResponse{
		VideoHash:   videoHash,
		DownloadURL: url,
		CreatedAt:   createdAt.Format(time.RFC3339),
	})
}
