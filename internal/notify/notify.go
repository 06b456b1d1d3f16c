// Package notify provides user-facing notification sinks for the editor
// session. Frontends plug their own implementation in; Multi fans a message
// out to several sinks, and Log is the fallback when no frontend is wired.
package notify

import "log/slog"

// Notifier receives user-facing messages about background work, such as a
// save that failed after an optimistic local apply.
type Notifier interface {
	Info(message string)
	Error(message string)
}

// Multi fans every message out to all registered notifiers.
type Multi struct {
	notifiers []Notifier
}

// NewMulti creates a notifier that delegates to all provided notifiers.
func NewMulti(notifiers ...Notifier) *Multi {
	return &Multi{notifiers: notifiers}
}

func (m *Multi) Info(message string) {
	for _, n := range m.notifiers {
		n.Info(message)
	}
}

func (m *Multi) Error(message string) {
	for _, n := range m.notifiers {
		n.Error(message)
	}
}

// Log writes notifications to the default slog logger.
type Log struct{}

func (Log) Info(message string)  { slog.Info("notify: " + message) }
func (Log) Error(message string) { slog.Error("notify: " + message) }
