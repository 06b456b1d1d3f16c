package overlay

import (
	"sort"
	"strings"

	"github.com/framenote/framenote/internal/timeline"
)

// Tolerance widens every range check to absorb media-element currentTime
// jitter: a drawing whose range ends at 8.0s is still shown at 8.09s.
const Tolerance = 0.1

// Entry is one drawing-bearing annotation as seen by the resolver.
type Entry struct {
	ID    string
	Range timeline.Range
	Doc   *Document
}

// Resolver maps playback time to the drawing document to composite. It
// memoizes on the identity set of contributing entries, so consecutive time
// updates inside the same annotation ranges return the same *Document pointer
// and the render layer never reloads an unchanged document frame after frame.
// Time may jump backward (seek); every call recomputes purely from its
// arguments.
//
// Not safe for concurrent use; it belongs to the single editor session that
// owns the canvas.
type Resolver struct {
	cacheKey string
	cached   *Document
}

// NewResolver returns a resolver with an empty memo.
func NewResolver() *Resolver {
	return &Resolver{}
}

// Resolve returns the document to composite at currentTime, or nil when the
// canvas should stay empty.
//
//   - drawingMode active: always nil — the canvas is reserved for fresh input.
//   - activeID set: that annotation's document, but only while currentTime is
//     inside its range (± Tolerance); nil otherwise.
//   - no selection: every entry covering currentTime contributes; one match
//     returns its document verbatim, several merge into one synthetic
//     document in the given (store) order.
func (r *Resolver) Resolve(currentTime float64, activeID string, entries []Entry, drawingMode bool) *Document {
	if drawingMode {
		// Deliberately not cached: leaving drawing mode must re-resolve.
		return nil
	}

	if activeID != "" {
		for _, e := range entries {
			if e.ID != activeID {
				continue
			}
			if e.Doc != nil && e.Range.Contains(currentTime, Tolerance) {
				return r.memoize("active:"+e.ID, []Entry{e})
			}
			return r.invalidate()
		}
		return r.invalidate()
	}

	var visible []Entry
	for _, e := range entries {
		if e.Doc != nil && e.Range.Contains(currentTime, Tolerance) {
			visible = append(visible, e)
		}
	}
	if len(visible) == 0 {
		return r.invalidate()
	}
	return r.memoize(signature(visible), visible)
}

// Invalidate drops the memo, forcing the next Resolve to rebuild. Call it
// when a visible annotation's drawing payload is edited in place (the id set
// alone cannot see that change).
func (r *Resolver) Invalidate() {
	r.invalidate()
}

func (r *Resolver) memoize(key string, visible []Entry) *Document {
	if key == r.cacheKey && r.cached != nil {
		return r.cached
	}
	r.cacheKey = key
	if len(visible) == 1 {
		// Single match: hand back the original document untouched.
		r.cached = visible[0].Doc
	} else {
		docs := make([]*Document, len(visible))
		for i, e := range visible {
			docs[i] = e.Doc
		}
		r.cached = Merge(docs)
	}
	return r.cached
}

func (r *Resolver) invalidate() *Document {
	r.cacheKey = ""
	r.cached = nil
	return nil
}

// signature derives a stable cache key from the ids of the contributing
// entries, order-independent.
func signature(visible []Entry) string {
	ids := make([]string, len(visible))
	for i, e := range visible {
		ids[i] = e.ID
	}
	sort.Strings(ids)
	return strings.Join(ids, "\x00")
}
