// Package timeline holds the pure time/coordinate model behind the scrubber:
// zoom-window geometry and the pointer-drag state machine that turns track
// interactions into seeks and time-range selections.
package timeline

// ZoomLevels is the fixed geometric zoom sequence. Level 1 shows the whole
// video; level 16 shows a sixteenth of it.
var ZoomLevels = []float64{1, 2, 4, 8, 16}

// Range is a time span in seconds with Start <= End. A point range
// (Start == End) renders as a marker rather than a span.
type Range struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Contains reports whether t falls inside the range, widened by tolerance on
// both sides. Media elements report currentTime with jitter, so visibility
// checks pass a small tolerance instead of comparing exactly.
func (r Range) Contains(t, tolerance float64) bool {
	return t >= r.Start-tolerance && t <= r.End+tolerance
}

// IsPoint reports whether the range has zero width.
func (r Range) IsPoint() bool {
	return r.Start == r.End
}

// Clamp returns the range restricted to [0, duration].
func (r Range) Clamp(duration float64) Range {
	return Range{
		Start: clamp(r.Start, 0, duration),
		End:   clamp(r.End, 0, duration),
	}
}

// Geometry converts between seconds and normalized track fractions for one
// zoom window. It is a value: derive a new Geometry when duration or zoom
// changes.
type Geometry struct {
	Duration   float64
	ZoomLevel  float64
	ZoomCenter float64
}

// NewGeometry returns an unzoomed geometry for a video of the given duration.
func NewGeometry(duration float64) Geometry {
	return Geometry{Duration: duration, ZoomLevel: 1}
}

// VisibleDuration is the width in seconds of the current zoom window.
func (g Geometry) VisibleDuration() float64 {
	if g.Duration <= 0 || g.ZoomLevel < 1 {
		return 0
	}
	return g.Duration / g.ZoomLevel
}

// Window returns the visible [start, end] of the timeline. The window always
// has width Duration/ZoomLevel and never extends past either end of the
// content: a center too close to an edge slides the window inward instead of
// shrinking it.
func (g Geometry) Window() (start, end float64) {
	visible := g.VisibleDuration()
	if visible == 0 {
		return 0, 0
	}
	start = g.ZoomCenter - visible/2
	if start < 0 {
		start = 0
	}
	if start+visible > g.Duration {
		start = g.Duration - visible
	}
	return start, start + visible
}

// ToFraction maps a time to its fraction of the visible track. visible is
// false when t lies outside the zoom window; callers must hide the element
// rather than draw it at a clamped position.
func (g Geometry) ToFraction(t float64) (fraction float64, visible bool) {
	visibleDur := g.VisibleDuration()
	if visibleDur == 0 {
		return 0, false
	}
	start, end := g.Window()
	if t < start || t > end {
		return 0, false
	}
	return (t - start) / visibleDur, true
}

// FromFraction maps a pointer position (0..1 across the visible track) back
// to seconds, clamped to [0, Duration].
func (g Geometry) FromFraction(f float64) float64 {
	visibleDur := g.VisibleDuration()
	if visibleDur == 0 {
		return 0
	}
	start, _ := g.Window()
	return clamp(start+f*visibleDur, 0, g.Duration)
}

// StepIn returns a geometry zoomed one level further in, re-centered on
// center (normally the current playback time). At maximum zoom it returns the
// receiver re-centered.
func (g Geometry) StepIn(center float64) Geometry {
	return g.withLevel(nextLevel(g.ZoomLevel, +1), center)
}

// StepOut is the inverse of StepIn.
func (g Geometry) StepOut(center float64) Geometry {
	return g.withLevel(nextLevel(g.ZoomLevel, -1), center)
}

// Recentered moves the zoom window onto center without changing the level.
// Used during zoomed playback when the playhead runs off the visible edge.
func (g Geometry) Recentered(center float64) Geometry {
	g.ZoomCenter = center
	return g
}

func (g Geometry) withLevel(level, center float64) Geometry {
	g.ZoomLevel = level
	g.ZoomCenter = center
	return g
}

func nextLevel(current float64, direction int) float64 {
	idx := 0
	for i, l := range ZoomLevels {
		if l == current {
			idx = i
			break
		}
	}
	idx += direction
	if idx < 0 {
		idx = 0
	}
	if idx > len(ZoomLevels)-1 {
		idx = len(ZoomLevels) - 1
	}
	return ZoomLevels[idx]
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
