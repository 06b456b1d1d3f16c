package validate

import "fmt"

// Text field length limits — single source of truth for backend and clients.
const (
	MaxUserNameLength       = 100
	MaxAnnotationTextLength = 5000
	MaxAttachmentNameLength = 255
	MaxAttachmentBytes      = 2 * 1024 * 1024
	MaxAttachmentsPerNote   = 10
	MaxArchivePasswordLen   = 72 // bcrypt input ceiling
)

func checkLen(value string, max int, field string) string {
	if len(value) > max {
		return fmt.Sprintf("%s must be %d characters or fewer", field, max)
	}
	return ""
}

func UserName(s string) string       { return checkLen(s, MaxUserNameLength, "name") }
func AnnotationText(s string) string { return checkLen(s, MaxAnnotationTextLength, "comment") }
func AttachmentName(s string) string { return checkLen(s, MaxAttachmentNameLength, "attachment name") }

// TimeRange validates a start/end pair against the range invariant
// 0 <= start <= end. Duration is not known server-side (the video never
// reaches the server), so the upper bound is enforced client-side only.
func TimeRange(start, end float64) string {
	if start < 0 {
		return "start time cannot be negative"
	}
	if end < start {
		return "end time cannot be before start time"
	}
	return ""
}

// FieldLimits returns the limits map served by /api/limits so clients can
// mirror validation without hardcoding.
func FieldLimits() map[string]int {
	return map[string]int{
		"userName":       MaxUserNameLength,
		"annotationText": MaxAnnotationTextLength,
		"attachmentName": MaxAttachmentNameLength,
		"attachmentSize": MaxAttachmentBytes,
		"attachments":    MaxAttachmentsPerNote,
	}
}
