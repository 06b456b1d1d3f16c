package annotation

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/framenote/framenote/internal/httputil"
	"github.com/framenote/framenote/internal/identity"
	"github.com/framenote/framenote/internal/validate"
	"github.com/go-chi/chi/v5"
)

// ExportVersion is the format version stamped on export documents.
const ExportVersion = 1

// ExportDocument is the portable annotation file: everything needed to carry
// a video's annotations to another machine, minus the video itself, which is
// re-identified there by its content hash.
type ExportDocument struct {
	ExportVersion int                `json:"exportVersion"`
	ExportedAt    time.Time          `json:"exportedAt"`
	VideoHash     string             `json:"videoHash"`
	Annotations   []ExportAnnotation `json:"annotations"`
}

// ExportAnnotation flattens an annotation for the export file. Author
// collapses to a display name and threading is not carried: on import every
// entry lands as a top-level annotation attributed to the importing user.
type ExportAnnotation struct {
	Timestamp   string           `json:"timestamp"`
	StartTime   float64          `json:"startTime"`
	EndTime     float64          `json:"endTime"`
	Author      string           `json:"author"`
	Text        string           `json:"text"`
	Kind        Kind             `json:"kind"`
	Drawing     *json.RawMessage `json:"drawingPayload,omitempty"`
	Attachments []Attachment     `json:"attachments"`
	CreatedAt   time.Time        `json:"createdAt"`
}

type importRequest struct {
	VideoHash   string             `json:"videoHash"`
	UserID      string             `json:"userId"`
	Annotations []ExportAnnotation `json:"annotations"`
}

type importResponse struct {
	Imported int `json:"imported"`
}

// Export serves the portable document for a video.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	videoID := chi.URLParam(r, "videoId")
	if !identity.Valid(videoID) {
		httputil.WriteError(w, http.StatusBadRequest, "invalid video hash")
		return
	}

	doc, err := h.buildExport(r.Context(), videoID)
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "could not export annotations")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, doc)
}

// Import inserts the annotations of an export document under the importing
// user's identity. The client is responsible for warning (and getting
// confirmation) when the document's videoHash differs from the loaded video;
// the server trusts the target hash it is given.
func (h *Handler) Import(w http.ResponseWriter, r *http.Request) {
	var req importRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !identity.Valid(req.VideoHash) {
		httputil.WriteError(w, http.StatusBadRequest, "invalid video hash")
		return
	}
	if req.UserID == "" {
		httputil.WriteError(w, http.StatusBadRequest, "userId is required")
		return
	}

	var userName string
	if err := h.db.QueryRow(r.Context(), `SELECT name FROM users WHERE id = $1`, req.UserID).Scan(&userName); err != nil {
		httputil.WriteError(w, http.StatusNotFound, "user not found")
		return
	}

	imported := 0
	for _, entry := range req.Annotations {
		if msg := validate.TimeRange(entry.StartTime, entry.EndTime); msg != "" {
			httputil.WriteError(w, http.StatusBadRequest, msg)
			return
		}
		if !ValidKind(entry.Kind) {
			httputil.WriteError(w, http.StatusBadRequest, "kind must be comment or drawing")
			return
		}

		var drawingArg any
		if entry.Drawing != nil {
			drawingArg = []byte(*entry.Drawing)
		}

		var id string
		err := h.db.QueryRow(r.Context(),
			`INSERT INTO annotations (video_hash, user_id, start_seconds, end_seconds, body, kind, drawing_payload)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)
			 RETURNING id`,
			req.VideoHash, req.UserID, entry.StartTime, entry.EndTime, entry.Text, string(entry.Kind), drawingArg,
		).Scan(&id)
		if err != nil {
			httputil.WriteError(w, http.StatusInternalServerError, "could not import annotations")
			return
		}

		for i, att := range entry.Attachments {
			if _, err := h.db.Exec(r.Context(),
				`INSERT INTO annotation_attachments (annotation_id, type, name, payload, position)
				 VALUES ($1, $2, $3, $4, $5)`,
				id, string(att.Type), att.Name, att.Payload, i,
			); err != nil {
				httputil.WriteError(w, http.StatusInternalServerError, "could not import attachments")
				return
			}
		}
		imported++
	}

	httputil.WriteJSON(w, http.StatusOK, importResponse{Imported: imported})
}

func (h *Handler) buildExport(ctx context.Context, videoID string) (ExportDocument, error) {
	annotations, err := h.queryAnnotations(ctx, videoID)
	if err != nil {
		return ExportDocument{}, err
	}

	doc := ExportDocument{
		ExportVersion: ExportVersion,
		ExportedAt:    time.Now().UTC(),
		VideoHash:     videoID,
		Annotations:   []ExportAnnotation{},
	}
	for _, a := range annotations {
		entry := ExportAnnotation{
			Timestamp:   a.TimestampLabel(),
			StartTime:   a.Range.Start,
			EndTime:     a.Range.End,
			Author:      a.Author.Name,
			Text:        a.Text,
			Kind:        a.Kind,
			Attachments: a.Attachments,
			CreatedAt:   a.CreatedAt,
		}
		if a.Drawing != nil {
			raw, err := json.Marshal(a.Drawing)
			if err != nil {
				return ExportDocument{}, err
			}
			msg := json.RawMessage(raw)
			entry.Drawing = &msg
		}
		doc.Annotations = append(doc.Annotations, entry)
	}
	return doc, nil
}
