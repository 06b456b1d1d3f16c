package annotation

import (
	"errors"
	"sort"

	"github.com/framenote/framenote/internal/overlay"
)

var (
	// ErrNotFound is returned for operations on an id not in the store.
	ErrNotFound = errors.New("annotation not found")
	// ErrWrongVideo is returned when an annotation for another video is
	// pushed into the store.
	ErrWrongVideo = errors.New("annotation belongs to a different video")
	// ErrNestedReply is returned when a reply targets another reply.
	// Threading is a single level deep; nesting is rejected, not flattened.
	ErrNestedReply = errors.New("replies to replies are not allowed")
	// ErrUnknownParent is returned when a reply references a parent that is
	// not in the store.
	ErrUnknownParent = errors.New("parent annotation not found")
)

// Thread is one top-level annotation with its replies, already ordered for
// display.
type Thread struct {
	Parent  Annotation
	Replies []Annotation
}

// Store is the in-memory working set of annotations for the one currently
// loaded video. It is discarded and rebuilt whenever the loaded video (and
// thus its content hash) changes. The flat list is always kept sorted by
// range start ascending, stable for ties, so iteration order matches the
// timeline and the resolver's merge order is deterministic.
//
// Not safe for concurrent use; the owning editor session serializes access.
type Store struct {
	videoID string
	items   []Annotation
}

// NewStore returns an empty working set bound to videoID.
func NewStore(videoID string) *Store {
	return &Store{videoID: videoID}
}

// VideoID returns the content hash the store is bound to.
func (s *Store) VideoID() string {
	return s.videoID
}

// Len returns the number of annotations, replies included.
func (s *Store) Len() int {
	return len(s.items)
}

// Replace swaps in a freshly fetched annotation set, typically right after a
// video load. The input is copied and sorted; annotations for other videos
// are rejected wholesale.
func (s *Store) Replace(items []Annotation) error {
	for _, a := range items {
		if a.VideoID != s.videoID {
			return ErrWrongVideo
		}
	}
	s.items = append(s.items[:0:0], items...)
	s.sort()
	return nil
}

// Add inserts one annotation, keeping sort order. Replies must reference an
// existing top-level annotation in the same store.
func (s *Store) Add(a Annotation) error {
	if a.VideoID != s.videoID {
		return ErrWrongVideo
	}
	if a.IsReply() {
		parent, ok := s.find(a.ParentID)
		if !ok {
			return ErrUnknownParent
		}
		if parent.IsReply() {
			return ErrNestedReply
		}
	}
	s.items = append(s.items, a)
	s.sort()
	return nil
}

// Update applies changed fields to the annotation with the given id and
// re-sorts (a range edit can move it along the timeline).
func (s *Store) Update(id string, mutate func(*Annotation)) error {
	for i := range s.items {
		if s.items[i].ID == id {
			mutate(&s.items[i])
			s.sort()
			return nil
		}
	}
	return ErrNotFound
}

// Rename swaps an annotation's id, used when a provisional client-side id is
// replaced by the server-assigned one.
func (s *Store) Rename(oldID, newID string) error {
	if err := s.Update(oldID, func(a *Annotation) { a.ID = newID }); err != nil {
		return err
	}
	for i := range s.items {
		if s.items[i].ParentID == oldID {
			s.items[i].ParentID = newID
		}
	}
	return nil
}

// Remove deletes an annotation. Deleting a top-level annotation cascades to
// its replies, mirroring the server's foreign-key behavior.
func (s *Store) Remove(id string) error {
	if _, ok := s.find(id); !ok {
		return ErrNotFound
	}
	kept := s.items[:0]
	for _, a := range s.items {
		if a.ID == id || a.ParentID == id {
			continue
		}
		kept = append(kept, a)
	}
	s.items = kept
	return nil
}

// Clear drops every annotation, the local counterpart of the server's
// delete-all-for-video operation.
func (s *Store) Clear() {
	s.items = s.items[:0]
}

// Get returns the annotation with the given id.
func (s *Store) Get(id string) (Annotation, bool) {
	return s.find(id)
}

// All returns the flat sorted list. The slice is shared; callers must not
// mutate it.
func (s *Store) All() []Annotation {
	return s.items
}

// TopLevel returns the annotations with no parent, in start order.
func (s *Store) TopLevel() []Annotation {
	var top []Annotation
	for _, a := range s.items {
		if !a.IsReply() {
			top = append(top, a)
		}
	}
	return top
}

// Replies returns the direct replies of parentID in creation order.
func (s *Store) Replies(parentID string) []Annotation {
	var replies []Annotation
	for _, a := range s.items {
		if a.ParentID == parentID {
			replies = append(replies, a)
		}
	}
	sort.SliceStable(replies, func(i, j int) bool {
		return replies[i].CreatedAt.Before(replies[j].CreatedAt)
	})
	return replies
}

// Threads groups the working set for display: top-level annotations in start
// order, each with its replies in creation order.
func (s *Store) Threads() []Thread {
	var threads []Thread
	for _, a := range s.TopLevel() {
		threads = append(threads, Thread{Parent: a, Replies: s.Replies(a.ID)})
	}
	return threads
}

// DrawingEntries projects the drawing-bearing annotations into the resolver's
// input shape, preserving store order.
func (s *Store) DrawingEntries() []overlay.Entry {
	var entries []overlay.Entry
	for _, a := range s.items {
		if a.Drawing == nil {
			continue
		}
		entries = append(entries, overlay.Entry{ID: a.ID, Range: a.Range, Doc: a.Drawing})
	}
	return entries
}

func (s *Store) find(id string) (Annotation, bool) {
	for _, a := range s.items {
		if a.ID == id {
			return a, true
		}
	}
	return Annotation{}, false
}

func (s *Store) sort() {
	sort.SliceStable(s.items, func(i, j int) bool {
		return s.items[i].Range.Start < s.items[j].Range.Start
	})
}
