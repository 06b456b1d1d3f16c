// Package annotation holds the annotation domain model, the in-memory
// working set for one loaded video, and the HTTP handlers of the annotation
// API.
package annotation

import (
	"fmt"
	"time"

	"github.com/framenote/framenote/internal/overlay"
	"github.com/framenote/framenote/internal/timeline"
)

// Kind distinguishes plain comments from freehand drawings.
type Kind string

const (
	KindComment Kind = "comment"
	KindDrawing Kind = "drawing"
)

// ValidKind reports whether k is a known annotation kind.
func ValidKind(k Kind) bool {
	return k == KindComment || k == KindDrawing
}

// AttachmentType is the coarse classification of an attachment.
type AttachmentType string

const (
	AttachmentImage AttachmentType = "image"
	AttachmentFile  AttachmentType = "file"
)

// Attachment is an inline file carried by an annotation. Payload is a base64
// data URI; attachments are owned by their annotation and never referenced
// independently.
type Attachment struct {
	ID      string         `json:"id"`
	Type    AttachmentType `json:"type"`
	Name    string         `json:"name"`
	Payload string         `json:"payload"`
}

// Author is the user reference embedded in annotation responses.
type Author struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Annotation is a time-ranged comment or drawing attached to a video. The
// video itself is identified purely by its content hash (VideoID); no video
// bytes are ever stored server-side.
type Annotation struct {
	ID          string            `json:"id"`
	VideoID     string            `json:"videoId"`
	Range       timeline.Range    `json:"range"`
	Author      Author            `json:"author"`
	Text        string            `json:"text"`
	Kind        Kind              `json:"kind"`
	Drawing     *overlay.Document `json:"drawingPayload,omitempty"`
	Attachments []Attachment      `json:"attachments"`
	CreatedAt   time.Time         `json:"createdAt"`
	ParentID    string            `json:"parentId,omitempty"`
}

// IsReply reports whether the annotation is a threaded reply.
func (a Annotation) IsReply() bool {
	return a.ParentID != ""
}

// HasContent reports whether the annotation carries at least one of text,
// attachments, or a drawing. An annotation with none of them is an invalid
// submission.
func (a Annotation) HasContent() bool {
	return a.Text != "" || len(a.Attachments) > 0 || a.Drawing != nil
}

// TimestampLabel renders the range the way the UI and export files display
// it: "M:SS" for a point, "M:SS - M:SS" for a span.
func (a Annotation) TimestampLabel() string {
	if a.Range.IsPoint() {
		return formatTimestamp(a.Range.Start)
	}
	return formatTimestamp(a.Range.Start) + " - " + formatTimestamp(a.Range.End)
}

func formatTimestamp(seconds float64) string {
	total := int(seconds)
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}
