package timeline

// DragState is the phase of a pointer interaction with the track.
type DragState int

const (
	// Idle means no button is held.
	Idle DragState = iota
	// Creating is a fresh drag from empty track.
	Creating
	// ExtendingStart is a drag on the left handle of an existing selection.
	ExtendingStart
	// ExtendingEnd is a drag on the right handle.
	ExtendingEnd
)

func (s DragState) String() string {
	switch s {
	case Idle:
		return "idle"
	case Creating:
		return "creating"
	case ExtendingStart:
		return "extendingStart"
	case ExtendingEnd:
		return "extendingEnd"
	}
	return "unknown"
}

// HitTarget identifies what was under the pointer on pointer-down.
type HitTarget int

const (
	// HitTrack is the bare track (or a region with no selection handle).
	HitTrack HitTarget = iota
	// HitStartHandle is the left edge handle of the current selection.
	HitStartHandle
	// HitEndHandle is the right edge handle of the current selection.
	HitEndHandle
)

const (
	// clickThreshold separates a click (seek) from a drag (range creation).
	// A release within 0.1s of the anchor is a seek.
	clickThreshold = 0.1
	// minHandleGap keeps a resized range from collapsing: the moving edge
	// always stays at least 0.05s away from the fixed edge.
	minHandleGap = 0.05
)

// Commit is the outcome of a released drag. Seek is always meaningful;
// Selection is non-nil only when the drag produced or reshaped a range.
type Commit struct {
	Seek      float64
	Selection *Range
}

// Interaction is the drag state machine for one timeline track. Zero value is
// unusable; construct with NewInteraction. All methods take and return plain
// values derived from the current Geometry, so the caller decides when zoom
// or duration changes take effect (pointer positions arrive as fractions of
// the rendered track width).
type Interaction struct {
	geom  Geometry
	state DragState

	anchor      float64 // drag origin in seconds (Creating)
	fixedEdge   float64 // the edge not being moved (Extending*)
	provisional Range
}

// NewInteraction returns an idle state machine over geom.
func NewInteraction(geom Geometry) *Interaction {
	return &Interaction{geom: geom}
}

// SetGeometry swaps the coordinate mapping (zoom or duration changed). An
// in-flight drag keeps its anchor times; only the fraction mapping moves.
func (in *Interaction) SetGeometry(geom Geometry) {
	in.geom = geom
}

// Geometry returns the current coordinate mapping.
func (in *Interaction) Geometry() Geometry {
	return in.geom
}

// State reports the current drag phase.
func (in *Interaction) State() DragState {
	return in.state
}

// Provisional returns the uncommitted range being dragged out, valid only
// while State() != Idle.
func (in *Interaction) Provisional() Range {
	return in.provisional
}

// PointerDown starts a drag. fraction is the pointer position across the
// track; target says whether a selection handle was grabbed. selection is the
// current committed SelectionRange, consulted only for handle grabs. With a
// zero-duration video every interaction is a no-op.
func (in *Interaction) PointerDown(fraction float64, target HitTarget, selection *Range) {
	if in.geom.VisibleDuration() == 0 {
		return
	}
	t := in.geom.FromFraction(fraction)

	switch {
	case target == HitStartHandle && selection != nil:
		in.state = ExtendingStart
		in.fixedEdge = selection.End
		in.provisional = *selection
	case target == HitEndHandle && selection != nil:
		in.state = ExtendingEnd
		in.fixedEdge = selection.Start
		in.provisional = *selection
	default:
		in.state = Creating
		in.anchor = t
		in.provisional = Range{Start: t, End: t}
	}
}

// PointerMove updates the provisional range. Repeated moves with the same
// position are idempotent. No-op while idle.
func (in *Interaction) PointerMove(fraction float64) {
	t := in.geom.FromFraction(fraction)

	switch in.state {
	case Creating:
		in.provisional = Range{Start: min(in.anchor, t), End: max(in.anchor, t)}
	case ExtendingStart:
		newStart := min(t, in.fixedEdge-minHandleGap)
		if newStart < 0 {
			newStart = 0
		}
		in.provisional = Range{Start: newStart, End: in.fixedEdge}
	case ExtendingEnd:
		newEnd := max(t, in.fixedEdge+minHandleGap)
		if newEnd > in.geom.Duration {
			newEnd = in.geom.Duration
		}
		in.provisional = Range{Start: in.fixedEdge, End: newEnd}
	}
}

// PointerUp commits the drag and returns to idle. This is the only commit
// point:
//
//   - a Creating release within clickThreshold of the anchor is a plain seek
//     to the release position and leaves any existing selection untouched;
//   - a Creating release further away commits the dragged range and seeks to
//     its start;
//   - an Extending* release commits the resized range and seeks to its
//     (possibly updated) start.
//
// The second return is false when no drag was in progress.
func (in *Interaction) PointerUp(fraction float64) (Commit, bool) {
	if in.state == Idle {
		return Commit{}, false
	}
	in.PointerMove(fraction)
	t := in.geom.FromFraction(fraction)

	state := in.state
	provisional := in.provisional
	in.state = Idle
	in.provisional = Range{}

	if state == Creating {
		if abs(t-in.anchor) < clickThreshold {
			return Commit{Seek: t}, true
		}
		r := provisional.Clamp(in.geom.Duration)
		return Commit{Seek: r.Start, Selection: &r}, true
	}

	r := provisional.Clamp(in.geom.Duration)
	return Commit{Seek: r.Start, Selection: &r}, true
}

// Cancel abandons any in-flight drag without committing, e.g. when the user
// switches tools mid-drag.
func (in *Interaction) Cancel() {
	in.state = Idle
	in.provisional = Range{}
}

// Wheel applies a modifier-wheel zoom step. delta > 0 zooms in, delta < 0
// zooms out; the window is re-centered on playhead either way. Returns the
// updated geometry, which is also installed on the state machine.
func (in *Interaction) Wheel(delta int, playhead float64) Geometry {
	switch {
	case delta > 0:
		in.geom = in.geom.StepIn(playhead)
	case delta < 0:
		in.geom = in.geom.StepOut(playhead)
	}
	return in.geom
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
