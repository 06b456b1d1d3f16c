// Package editor is the orchestration engine behind a review session: one
// loaded video, its annotation working set, the timeline interaction state,
// and the drawing overlay. It connects the pure pieces (identity, timeline,
// overlay, annotation store) to the HTTP API through optimistic mutations.
package editor

import (
	"github.com/framenote/framenote/internal/timeline"
)

// Tool is the active editing tool.
type Tool int

const (
	ToolSelect Tool = iota
	ToolComment
	ToolPen
)

func (t Tool) String() string {
	switch t {
	case ToolSelect:
		return "select"
	case ToolComment:
		return "comment"
	case ToolPen:
		return "pen"
	default:
		return "unknown"
	}
}

// State is the session state as one immutable value. Transitions return a
// new State; cross-field invariants (drawing mode excludes an explicit
// selection) hold by construction because only transitions build new values.
type State struct {
	VideoID     string
	Duration    float64
	CurrentTime float64
	Tool        Tool
	DrawingMode bool
	ActiveID    string
	Selection   *timeline.Range
}

// WithVideo resets the session onto a freshly identified video. Everything
// transient (time, tool, selection, mode) starts over.
func (s State) WithVideo(videoID string, duration float64) State {
	return State{VideoID: videoID, Duration: duration}
}

func (s State) WithTime(t float64) State {
	s.CurrentTime = t
	return s
}

// WithTool switches the active tool. Leaving the pen also leaves drawing
// mode.
func (s State) WithTool(tool Tool) State {
	s.Tool = tool
	if tool != ToolPen {
		s.DrawingMode = false
	}
	return s
}

// EnterDrawing switches the canvas to freehand input. An explicit annotation
// selection cannot coexist with drawing mode, so it is dropped.
func (s State) EnterDrawing() State {
	s.Tool = ToolPen
	s.DrawingMode = true
	s.ActiveID = ""
	return s
}

func (s State) ExitDrawing() State {
	s.DrawingMode = false
	return s
}

// WithActive selects an annotation. Selecting while drawing leaves drawing
// mode first.
func (s State) WithActive(id string) State {
	s.ActiveID = id
	s.DrawingMode = false
	return s
}

func (s State) Deselected() State {
	s.ActiveID = ""
	return s
}

func (s State) WithSelection(r *timeline.Range) State {
	s.Selection = r
	return s
}

// Surface is the capability the drawing canvas exposes to the engine:
// either the user can draw on it, or it is locked for read-only playback.
// Exactly one of the two is active at any instant.
type Surface interface {
	Editable()
	Locked()
}

// Notifier receives the user-visible outcomes the engine does not express
// as return values: failed background fetches and failed optimistic
// mutations. Notifications are expected to block the user (alert/modal),
// never to be dropped silently.
type Notifier interface {
	Info(message string)
	Error(message string)
}
