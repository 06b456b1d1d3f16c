package annotation

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/framenote/framenote/internal/httputil"
	"github.com/framenote/framenote/internal/identity"
	"github.com/framenote/framenote/internal/overlay"
	"github.com/framenote/framenote/internal/timeline"
	"github.com/framenote/framenote/internal/validate"
	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
)

type createRequest struct {
	VideoID     string            `json:"videoId"`
	UserID      string            `json:"userId"`
	Range       timeline.Range    `json:"range"`
	Text        string            `json:"text"`
	Kind        Kind              `json:"kind"`
	Drawing     *json.RawMessage  `json:"drawingPayload"`
	Attachments []attachmentInput `json:"attachments"`
	ParentID    string            `json:"parentId"`
}

type attachmentInput struct {
	Type    AttachmentType `json:"type"`
	Name    string         `json:"name"`
	Payload string         `json:"payload"`
}

type updateRequest struct {
	Range *timeline.Range `json:"range"`
	Text  *string         `json:"text"`
}

// ListByVideo returns every annotation for a video hash, ordered by range
// start. An unknown hash is an empty list, not an error: a freshly loaded
// video simply has no annotations yet.
func (h *Handler) ListByVideo(w http.ResponseWriter, r *http.Request) {
	videoID := chi.URLParam(r, "videoId")
	if !identity.Valid(videoID) {
		httputil.WriteError(w, http.StatusBadRequest, "invalid video hash")
		return
	}

	annotations, err := h.queryAnnotations(r.Context(), videoID)
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "could not fetch annotations")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, annotations)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.Text = strings.TrimSpace(req.Text)

	if !identity.Valid(req.VideoID) {
		httputil.WriteError(w, http.StatusBadRequest, "invalid video hash")
		return
	}
	if req.UserID == "" {
		httputil.WriteError(w, http.StatusBadRequest, "userId is required")
		return
	}
	if !ValidKind(req.Kind) {
		httputil.WriteError(w, http.StatusBadRequest, "kind must be comment or drawing")
		return
	}
	if msg := validate.TimeRange(req.Range.Start, req.Range.End); msg != "" {
		httputil.WriteError(w, http.StatusBadRequest, msg)
		return
	}
	if msg := validate.AnnotationText(req.Text); msg != "" {
		httputil.WriteError(w, http.StatusBadRequest, msg)
		return
	}
	if msg := validateContent(req); msg != "" {
		httputil.WriteError(w, http.StatusBadRequest, msg)
		return
	}
	if msg := validateAttachments(req.Attachments); msg != "" {
		httputil.WriteError(w, http.StatusBadRequest, msg)
		return
	}

	var authorName string
	err := h.db.QueryRow(r.Context(), `SELECT name FROM users WHERE id = $1`, req.UserID).Scan(&authorName)
	if err != nil {
		httputil.WriteError(w, http.StatusNotFound, "user not found")
		return
	}

	if req.ParentID != "" {
		var parentVideo string
		var grandparent *string
		err := h.db.QueryRow(r.Context(),
			`SELECT video_hash, parent_id FROM annotations WHERE id = $1`,
			req.ParentID,
		).Scan(&parentVideo, &grandparent)
		if err != nil {
			httputil.WriteError(w, http.StatusNotFound, "parent annotation not found")
			return
		}
		if parentVideo != req.VideoID {
			httputil.WriteError(w, http.StatusBadRequest, "parent annotation belongs to a different video")
			return
		}
		if grandparent != nil {
			// Threading is one level deep. Nested replies are rejected at
			// the boundary rather than silently flattened.
			httputil.WriteError(w, http.StatusBadRequest, "replies to replies are not allowed")
			return
		}
	}

	var drawingArg any
	if req.Drawing != nil {
		drawingArg = []byte(*req.Drawing)
	}
	var parentArg *string
	if req.ParentID != "" {
		parentArg = &req.ParentID
	}

	var id string
	var createdAt time.Time
	err = h.db.QueryRow(r.Context(),
		`INSERT INTO annotations (video_hash, user_id, start_seconds, end_seconds, body, kind, drawing_payload, parent_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id, created_at`,
		req.VideoID, req.UserID, req.Range.Start, req.Range.End, req.Text, string(req.Kind), drawingArg, parentArg,
	).Scan(&id, &createdAt)
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "could not save annotation")
		return
	}

	attachments := make([]Attachment, 0, len(req.Attachments))
	for i, att := range req.Attachments {
		var attID string
		err := h.db.QueryRow(r.Context(),
			`INSERT INTO annotation_attachments (annotation_id, type, name, payload, position)
			 VALUES ($1, $2, $3, $4, $5) RETURNING id`,
			id, string(att.Type), att.Name, att.Payload, i,
		).Scan(&attID)
		if err != nil {
			httputil.WriteError(w, http.StatusInternalServerError, "could not save attachment")
			return
		}
		attachments = append(attachments, Attachment{ID: attID, Type: att.Type, Name: att.Name, Payload: att.Payload})
	}

	created := Annotation{
		ID:          id,
		VideoID:     req.VideoID,
		Range:       req.Range,
		Author:      Author{ID: req.UserID, Name: authorName},
		Text:        req.Text,
		Kind:        req.Kind,
		Attachments: attachments,
		CreatedAt:   createdAt,
		ParentID:    req.ParentID,
	}
	if req.Drawing != nil {
		var doc overlay.Document
		if err := json.Unmarshal(*req.Drawing, &doc); err == nil {
			created.Drawing = &doc
		}
	}

	httputil.WriteJSON(w, http.StatusCreated, created)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Range == nil && req.Text == nil {
		httputil.WriteError(w, http.StatusBadRequest, "nothing to update")
		return
	}
	if req.Range != nil {
		if msg := validate.TimeRange(req.Range.Start, req.Range.End); msg != "" {
			httputil.WriteError(w, http.StatusBadRequest, msg)
			return
		}
	}
	if req.Text != nil {
		trimmed := strings.TrimSpace(*req.Text)
		req.Text = &trimmed
		if msg := validate.AnnotationText(trimmed); msg != "" {
			httputil.WriteError(w, http.StatusBadRequest, msg)
			return
		}
	}

	var startArg, endArg *float64
	if req.Range != nil {
		startArg, endArg = &req.Range.Start, &req.Range.End
	}

	var videoID string
	err := h.db.QueryRow(r.Context(),
		`UPDATE annotations
		 SET start_seconds = COALESCE($1, start_seconds),
		     end_seconds = COALESCE($2, end_seconds),
		     body = COALESCE($3, body)
		 WHERE id = $4
		 RETURNING video_hash`,
		startArg, endArg, req.Text, id,
	).Scan(&videoID)
	if errors.Is(err, pgx.ErrNoRows) {
		httputil.WriteError(w, http.StatusNotFound, "annotation not found")
		return
	}
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "could not update annotation")
		return
	}

	updated, err := h.queryAnnotation(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "could not fetch updated annotation")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, updated)
}

// Delete removes one annotation; replies go with it via the parent_id
// foreign key cascade.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	tag, err := h.db.Exec(r.Context(), `DELETE FROM annotations WHERE id = $1`, id)
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "could not delete annotation")
		return
	}
	if tag.RowsAffected() == 0 {
		httputil.WriteError(w, http.StatusNotFound, "annotation not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteByVideo clears every annotation for a video hash.
func (h *Handler) DeleteByVideo(w http.ResponseWriter, r *http.Request) {
	videoID := chi.URLParam(r, "videoId")
	if !identity.Valid(videoID) {
		httputil.WriteError(w, http.StatusBadRequest, "invalid video hash")
		return
	}

	if _, err := h.db.Exec(r.Context(), `DELETE FROM annotations WHERE video_hash = $1`, videoID); err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "could not delete annotations")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// validateContent enforces the submission invariant: exactly one of text,
// attachments, or a drawing payload.
func validateContent(req createRequest) string {
	present := 0
	if req.Text != "" {
		present++
	}
	if len(req.Attachments) > 0 {
		present++
	}
	if req.Drawing != nil {
		present++
	}
	switch {
	case present == 0:
		return "annotation needs text, attachments, or a drawing"
	case present > 1:
		return "annotation must carry exactly one of text, attachments, or a drawing"
	}
	if req.Kind == KindDrawing && req.Drawing == nil {
		return "drawing annotation needs a drawing payload"
	}
	if req.Kind == KindComment && req.Drawing != nil {
		return "comment annotation cannot carry a drawing payload"
	}
	return ""
}

func validateAttachments(attachments []attachmentInput) string {
	if len(attachments) > validate.MaxAttachmentsPerNote {
		return "too many attachments"
	}
	for _, att := range attachments {
		if att.Type != AttachmentImage && att.Type != AttachmentFile {
			return "attachment type must be image or file"
		}
		if msg := validate.AttachmentName(att.Name); msg != "" {
			return msg
		}
		if decodedDataURISize(att.Payload) > validate.MaxAttachmentBytes {
			return "attachment is too large"
		}
	}
	return ""
}

// decodedDataURISize estimates the decoded byte size of a base64 data URI
// without decoding it.
func decodedDataURISize(payload string) int {
	idx := strings.Index(payload, ",")
	if idx >= 0 {
		payload = payload[idx+1:]
	}
	return base64.StdEncoding.DecodedLen(len(payload))
}

// queryAnnotations loads the full annotation set for a video with authors and
// attachments resolved, in range-start order.
func (h *Handler) queryAnnotations(ctx context.Context, videoID string) ([]Annotation, error) {
	rows, err := h.db.Query(ctx,
		`SELECT a.id, a.user_id, u.name, a.start_seconds, a.end_seconds, a.body, a.kind, a.drawing_payload, a.parent_id, a.created_at
		 FROM annotations a JOIN users u ON u.id = a.user_id
		 WHERE a.video_hash = $1
		 ORDER BY a.start_seconds ASC, a.created_at ASC`,
		videoID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	annotations := []Annotation{}
	index := map[string]int{}
	for rows.Next() {
		a, err := scanAnnotation(rows, videoID)
		if err != nil {
			return nil, err
		}
		index[a.ID] = len(annotations)
		annotations = append(annotations, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	attRows, err := h.db.Query(ctx,
		`SELECT att.annotation_id, att.id, att.type, att.name, att.payload
		 FROM annotation_attachments att JOIN annotations a ON a.id = att.annotation_id
		 WHERE a.video_hash = $1
		 ORDER BY att.annotation_id, att.position ASC`,
		videoID,
	)
	if err != nil {
		return nil, err
	}
	defer attRows.Close()

	for attRows.Next() {
		var annotationID string
		var att Attachment
		var attType string
		if err := attRows.Scan(&annotationID, &att.ID, &attType, &att.Name, &att.Payload); err != nil {
			return nil, err
		}
		att.Type = AttachmentType(attType)
		if i, ok := index[annotationID]; ok {
			annotations[i].Attachments = append(annotations[i].Attachments, att)
		}
	}
	return annotations, attRows.Err()
}

func (h *Handler) queryAnnotation(ctx context.Context, id string) (Annotation, error) {
	row := h.db.QueryRow(ctx,
		`SELECT a.id, a.user_id, u.name, a.start_seconds, a.end_seconds, a.body, a.kind, a.drawing_payload, a.parent_id, a.created_at, a.video_hash
		 FROM annotations a JOIN users u ON u.id = a.user_id
		 WHERE a.id = $1`,
		id,
	)

	var a Annotation
	var authorID, authorName, kind string
	var drawing []byte
	var parentID *string
	if err := row.Scan(&a.ID, &authorID, &authorName, &a.Range.Start, &a.Range.End, &a.Text, &kind, &drawing, &parentID, &a.CreatedAt, &a.VideoID); err != nil {
		return Annotation{}, err
	}
	finishAnnotation(&a, authorID, authorName, kind, drawing, parentID)

	attRows, err := h.db.Query(ctx,
		`SELECT id, type, name, payload FROM annotation_attachments WHERE annotation_id = $1 ORDER BY position ASC`,
		id,
	)
	if err != nil {
		return Annotation{}, err
	}
	defer attRows.Close()
	for attRows.Next() {
		var att Attachment
		var attType string
		if err := attRows.Scan(&att.ID, &attType, &att.Name, &att.Payload); err != nil {
			return Annotation{}, err
		}
		att.Type = AttachmentType(attType)
		a.Attachments = append(a.Attachments, att)
	}
	return a, attRows.Err()
}

func scanAnnotation(rows pgx.Rows, videoID string) (Annotation, error) {
	var a Annotation
	var authorID, authorName, kind string
	var drawing []byte
	var parentID *string
	if err := rows.Scan(&a.ID, &authorID, &authorName, &a.Range.Start, &a.Range.End, &a.Text, &kind, &drawing, &parentID, &a.CreatedAt); err != nil {
		return Annotation{}, err
	}
	a.VideoID = videoID
	finishAnnotation(&a, authorID, authorName, kind, drawing, parentID)
	return a, nil
}

func finishAnnotation(a *Annotation, authorID, authorName, kind string, drawing []byte, parentID *string) {
	a.Author = Author{ID: authorID, Name: authorName}
	a.Kind = Kind(kind)
	if parentID != nil {
		a.ParentID = *parentID
	}
	if len(drawing) > 0 {
		var doc overlay.Document
		if err := json.Unmarshal(drawing, &doc); err == nil {
			a.Drawing = &doc
		}
	}
	if a.Attachments == nil {
		a.Attachments = []Attachment{}
	}
}
