package editor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/framenote/framenote/internal/annotation"
	"github.com/framenote/framenote/internal/apiclient"
	"github.com/framenote/framenote/internal/identity"
	"github.com/framenote/framenote/internal/notify"
	"github.com/framenote/framenote/internal/overlay"
	"github.com/framenote/framenote/internal/timeline"
	"github.com/google/uuid"
)

var (
	// ErrNoVideo is returned by operations that need a loaded video.
	ErrNoVideo = errors.New("no video loaded")
	// ErrEmptySubmission is returned when a comment has neither text nor
	// attachments.
	ErrEmptySubmission = errors.New("empty submission")
	// ErrHashMismatch is returned by ImportDocument when the document was
	// exported from a different video and the caller has not confirmed the
	// import. Not fatal: retry with confirm once the user agrees.
	ErrHashMismatch = errors.New("export document is for a different video")
)

// API is the slice of the annotation service the engine calls. Satisfied by
// *apiclient.Client.
type API interface {
	ListAnnotations(ctx context.Context, videoID string) ([]annotation.Annotation, error)
	CreateAnnotation(ctx context.Context, req apiclient.CreateAnnotationRequest) (annotation.Annotation, error)
	UpdateAnnotation(ctx context.Context, id string, req apiclient.UpdateAnnotationRequest) (annotation.Annotation, error)
	DeleteAnnotation(ctx context.Context, id string) error
	DeleteVideoAnnotations(ctx context.Context, videoID string) error
	Import(ctx context.Context, videoHash, userID string, entries []annotation.ExportAnnotation) (int, error)
}

// Controller owns the session state and serializes every mutation under one
// mutex. The lock is never held across a network call: mutations apply
// locally first, then sync to the API, then reconcile ids.
type Controller struct {
	mu          sync.Mutex
	state       State
	store       *annotation.Store
	interaction *timeline.Interaction
	resolver    *overlay.Resolver

	api      API
	surface  Surface
	notifier Notifier

	userID   string
	userName string
}

// NewController wires the engine. The surface starts locked: nothing is
// drawable until the user enters drawing mode.
func NewController(api API, surface Surface, notifier Notifier) *Controller {
	surface.Locked()
	if notifier == nil {
		notifier = notify.Log{}
	}
	return &Controller{
		api:         api,
		surface:     surface,
		notifier:    notifier,
		store:       annotation.NewStore(""),
		interaction: timeline.NewInteraction(timeline.NewGeometry(0)),
		resolver:    overlay.NewResolver(),
	}
}

// SetUser installs the session identity mutations are attributed to.
func (c *Controller) SetUser(id, name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.userID, c.userName = id, name
}

// State returns a snapshot of the session state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Annotations returns the working set in range-start order.
func (c *Controller) Annotations() []annotation.Annotation {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store.All()
}

// Threads returns the threaded view of the working set.
func (c *Controller) Threads() []annotation.Thread {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store.Threads()
}

// LoadVideo identifies the file by content and makes it the session video.
// A hashing failure aborts the load: no state changes, no video. The
// annotation fetch runs in the background; its result is dropped if another
// video is loaded before it lands.
func (c *Controller) LoadVideo(ctx context.Context, path string, duration float64) (string, error) {
	hash, err := identity.FromFile(path)
	if err != nil {
		return "", fmt.Errorf("identify video: %w", err)
	}

	c.mu.Lock()
	c.state = c.state.WithVideo(hash, duration)
	c.store = annotation.NewStore(hash)
	c.interaction = timeline.NewInteraction(timeline.NewGeometry(duration))
	c.resolver = overlay.NewResolver()
	c.surface.Locked()
	c.mu.Unlock()

	go c.RefreshAnnotations(context.WithoutCancel(ctx), hash)
	return hash, nil
}

// RefreshAnnotations fetches the annotation set for videoID and installs it
// if videoID is still the loaded video. Results for a superseded video are
// discarded: a slow fetch for the previous file must not clobber the
// current session.
func (c *Controller) RefreshAnnotations(ctx context.Context, videoID string) {
	list, err := c.api.ListAnnotations(ctx, videoID)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.VideoID != videoID {
		slog.Debug("editor: dropping stale annotation fetch", "video_hash", videoID)
		return
	}
	if err != nil {
		slog.Error("editor: annotation fetch failed", "video_hash", videoID, "error", err)
		c.notifier.Error("could not load annotations")
		return
	}
	if err := c.store.Replace(list); err != nil {
		c.notifier.Error("could not load annotations")
		return
	}
	c.resolver.Invalidate()
}

// TimeUpdate advances the playhead and returns the drawing document to
// composite at t, or nil. Backward jumps (seeks) are fine: resolution is
// stateless in time. During zoomed playback the window follows the playhead
// whenever it would leave the visible range.
func (c *Controller) TimeUpdate(t float64) *overlay.Document {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.state = c.state.WithTime(t)

	geom := c.interaction.Geometry()
	if geom.ZoomLevel > 1 {
		if start, end := geom.Window(); t < start || t > end {
			c.interaction.SetGeometry(geom.Recentered(t))
		}
	}

	return c.resolver.Resolve(t, c.state.ActiveID, c.store.DrawingEntries(), c.state.DrawingMode)
}

// Overlay recomputes the drawing document for the current state without
// advancing time.
func (c *Controller) Overlay() *overlay.Document {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.resolver.Resolve(c.state.CurrentTime, c.state.ActiveID, c.store.DrawingEntries(), c.state.DrawingMode)
}

// PointerDown begins a timeline drag. Ignored while drawing: the canvas
// owns the pointer then.
func (c *Controller) PointerDown(fraction float64, target timeline.HitTarget) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.DrawingMode {
		return
	}
	c.interaction.PointerDown(fraction, target, c.state.Selection)
}

func (c *Controller) PointerMove(fraction float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.interaction.PointerMove(fraction)
}

// PointerUp commits the drag: the playhead moves to the commit seek, and a
// committed range replaces the selection and drops any explicit annotation
// selection.
func (c *Controller) PointerUp(fraction float64) (timeline.Commit, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	commit, ok := c.interaction.PointerUp(fraction)
	if !ok {
		return timeline.Commit{}, false
	}
	c.state = c.state.WithTime(commit.Seek)
	if commit.Selection != nil {
		c.state = c.state.WithSelection(commit.Selection).Deselected()
	}
	return commit, true
}

// Wheel steps the zoom level, re-centered on the playhead.
func (c *Controller) Wheel(delta int) timeline.Geometry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.interaction.Wheel(delta, c.state.CurrentTime)
}

// SetTool switches tools, abandoning any in-flight drag.
func (c *Controller) SetTool(tool Tool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.interaction.Cancel()
	c.state = c.state.WithTool(tool)
	if !c.state.DrawingMode {
		c.surface.Locked()
	}
}

// EnterDrawingMode hands the canvas to freehand input.
func (c *Controller) EnterDrawingMode() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.interaction.Cancel()
	c.state = c.state.EnterDrawing()
	c.surface.Editable()
}

// ExitDrawingMode returns the canvas to read-only playback without saving
// anything; SubmitDrawing is the save path.
func (c *Controller) ExitDrawingMode() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = c.state.ExitDrawing()
	c.surface.Locked()
}

// SelectAnnotation makes id the explicit selection driving overlay
// resolution, leaving drawing mode if needed.
func (c *Controller) SelectAnnotation(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.store.Get(id); !ok {
		return
	}
	if c.state.DrawingMode {
		c.surface.Locked()
	}
	c.state = c.state.WithActive(id)
}

func (c *Controller) Deselect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = c.state.Deselected()
}

// SubmitComment creates a comment annotation over the current selection (or
// a point at the playhead), optimistically and without rollback: the local
// working set keeps the annotation even if the save fails, and the failure
// is surfaced through the notifier. The returned annotation carries the
// server id on success and the provisional id on failure.
func (c *Controller) SubmitComment(ctx context.Context, text string, attachments []annotation.Attachment) (annotation.Annotation, error) {
	return c.submit(ctx, annotation.KindComment, text, attachments, nil, "")
}

// SubmitReply threads a comment under parentID.
func (c *Controller) SubmitReply(ctx context.Context, parentID, text string) (annotation.Annotation, error) {
	return c.submit(ctx, annotation.KindComment, text, nil, nil, parentID)
}

// SubmitDrawing saves the canvas content as a drawing annotation and leaves
// drawing mode.
func (c *Controller) SubmitDrawing(ctx context.Context, doc overlay.Document) (annotation.Annotation, error) {
	c.mu.Lock()
	if c.state.DrawingMode {
		c.state = c.state.ExitDrawing()
		c.surface.Locked()
	}
	c.mu.Unlock()
	return c.submit(ctx, annotation.KindDrawing, "", nil, &doc, "")
}

func (c *Controller) submit(ctx context.Context, kind annotation.Kind, text string, attachments []annotation.Attachment, drawing *overlay.Document, parentID string) (annotation.Annotation, error) {
	c.mu.Lock()
	if c.state.VideoID == "" {
		c.mu.Unlock()
		return annotation.Annotation{}, ErrNoVideo
	}

	local := annotation.Annotation{
		ID:          uuid.NewString(),
		VideoID:     c.state.VideoID,
		Range:       c.submissionRange(parentID),
		Author:      annotation.Author{ID: c.userID, Name: c.userName},
		Text:        text,
		Kind:        kind,
		Drawing:     drawing,
		Attachments: attachments,
		CreatedAt:   time.Now(),
		ParentID:    parentID,
	}
	if !local.HasContent() {
		c.mu.Unlock()
		return annotation.Annotation{}, ErrEmptySubmission
	}
	if err := c.store.Add(local); err != nil {
		c.mu.Unlock()
		return annotation.Annotation{}, err
	}
	c.resolver.Invalidate()
	c.mu.Unlock()

	req := apiclient.CreateAnnotationRequest{
		VideoID:     local.VideoID,
		UserID:      local.Author.ID,
		Range:       local.Range,
		Text:        local.Text,
		Kind:        local.Kind,
		Attachments: local.Attachments,
		ParentID:    local.ParentID,
	}
	if drawing != nil {
		encoded, err := json.Marshal(drawing)
		if err != nil {
			return local, fmt.Errorf("encode drawing: %w", err)
		}
		raw := json.RawMessage(encoded)
		req.Drawing = &raw
	}

	created, err := c.api.CreateAnnotation(ctx, req)
	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		slog.Error("editor: annotation save failed", "video_hash", local.VideoID, "error", err)
		c.notifier.Error("could not save annotation")
		return local, nil
	}

	if renameErr := c.store.Rename(local.ID, created.ID); renameErr == nil {
		_ = c.store.Update(created.ID, func(a *annotation.Annotation) {
			a.CreatedAt = created.CreatedAt
			a.Author = created.Author
			a.Attachments = created.Attachments
		})
		if c.state.ActiveID == local.ID {
			c.state = c.state.WithActive(created.ID)
		}
	}
	c.resolver.Invalidate()
	local.ID = created.ID
	local.CreatedAt = created.CreatedAt
	return local, nil
}

// submissionRange picks the range for a new annotation: a reply inherits
// its parent's range, otherwise the current selection, otherwise a point at
// the playhead.
func (c *Controller) submissionRange(parentID string) timeline.Range {
	if parentID != "" {
		if parent, ok := c.store.Get(parentID); ok {
			return parent.Range
		}
	}
	if c.state.Selection != nil {
		return *c.state.Selection
	}
	return timeline.Range{Start: c.state.CurrentTime, End: c.state.CurrentTime}
}

// EditAnnotation patches an annotation's range and/or text, optimistically.
func (c *Controller) EditAnnotation(ctx context.Context, id string, rng *timeline.Range, text *string) error {
	c.mu.Lock()
	err := c.store.Update(id, func(a *annotation.Annotation) {
		if rng != nil {
			a.Range = *rng
		}
		if text != nil {
			a.Text = *text
		}
	})
	if err != nil {
		c.mu.Unlock()
		return err
	}
	c.resolver.Invalidate()
	c.mu.Unlock()

	if _, err := c.api.UpdateAnnotation(ctx, id, apiclient.UpdateAnnotationRequest{Range: rng, Text: text}); err != nil {
		slog.Error("editor: annotation update failed", "annotation_id", id, "error", err)
		c.notifier.Error("could not update annotation")
	}
	return nil
}

// DeleteAnnotation removes an annotation (and, for a parent, its replies)
// from the working set, then from the server.
func (c *Controller) DeleteAnnotation(ctx context.Context, id string) error {
	c.mu.Lock()
	if err := c.store.Remove(id); err != nil {
		c.mu.Unlock()
		return err
	}
	if c.state.ActiveID == id {
		c.state = c.state.Deselected()
	}
	c.resolver.Invalidate()
	c.mu.Unlock()

	if err := c.api.DeleteAnnotation(ctx, id); err != nil {
		slog.Error("editor: annotation delete failed", "annotation_id", id, "error", err)
		c.notifier.Error("could not delete annotation")
	}
	return nil
}

// ClearAnnotations empties the working set locally and server-side.
func (c *Controller) ClearAnnotations(ctx context.Context) error {
	c.mu.Lock()
	if c.state.VideoID == "" {
		c.mu.Unlock()
		return ErrNoVideo
	}
	videoID := c.state.VideoID
	c.store.Clear()
	c.state = c.state.Deselected()
	c.resolver.Invalidate()
	c.mu.Unlock()

	if err := c.api.DeleteVideoAnnotations(ctx, videoID); err != nil {
		slog.Error("editor: clear failed", "video_hash", videoID, "error", err)
		c.notifier.Error("could not clear annotations")
	}
	return nil
}

// ImportDocument pushes an export document onto the loaded video. When the
// document was exported from a different video, the import stops with
// ErrHashMismatch until the caller confirms; the user decides whether the
// annotations still apply. Imported annotations belong to the session user.
func (c *Controller) ImportDocument(ctx context.Context, doc annotation.ExportDocument, confirmMismatch bool) (int, error) {
	c.mu.Lock()
	videoID := c.state.VideoID
	userID := c.userID
	c.mu.Unlock()

	if videoID == "" {
		return 0, ErrNoVideo
	}
	if doc.VideoHash != videoID && !confirmMismatch {
		return 0, ErrHashMismatch
	}

	imported, err := c.api.Import(ctx, videoID, userID, doc.Annotations)
	if err != nil {
		return 0, fmt.Errorf("import annotations: %w", err)
	}

	c.RefreshAnnotations(ctx, videoID)
	c.notifier.Info(fmt.Sprintf("imported %d annotations", imported))
	return imported, nil
}
