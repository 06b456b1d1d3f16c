// Package overlay decides which freehand drawing(s) are composited onto the
// video at a given playback instant, and models the serialized vector
// documents those drawings live in.
package overlay

import "encoding/json"

// Document is a serialized vector-graphics document: an ordered list of
// opaque drawn objects (strokes, shapes) plus whatever versioning the
// producing canvas library stamped on it. Objects are carried as raw JSON so
// a round trip through the server preserves the original structure exactly.
type Document struct {
	Version string            `json:"version,omitempty"`
	Objects []json.RawMessage `json:"objects"`
}

// Merge builds a synthetic document concatenating the object lists of docs in
// order. Inputs are not mutated; the result shares their object slices' raw
// bytes but owns its own list.
func Merge(docs []*Document) *Document {
	merged := &Document{}
	for _, d := range docs {
		if d == nil {
			continue
		}
		if merged.Version == "" {
			merged.Version = d.Version
		}
		merged.Objects = append(merged.Objects, d.Objects...)
	}
	return merged
}
