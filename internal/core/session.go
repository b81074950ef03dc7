package core

import (
	"time"

	"github.com/filmgrain/groupwatch/internal/domain"
)

// LogEntry is one line of the room's chat/system feed. System entries are
// synthesized locally (join notices, "You have paused the video", ...).
type LogEntry struct {
	Username string    `json:"username,omitempty"`
	Message  string    `json:"message"`
	System   bool      `json:"system,omitempty"`
	At       time.Time `json:"at"`
}

// Session is the per-client session state while a room is open. It has no
// server-side counterpart: when the last member leaves, the room is gone.
// Owned exclusively by the Coordinator; read through accessors only.
type Session struct {
	RoomKey   domain.RoomKey
	Connected bool
	// IsLeader is always recomputed from the roster, never set directly.
	IsLeader bool
	Log      []LogEntry
}

func (s *Session) reset() {
	*s = Session{}
}

func (s *Session) append(e LogEntry) {
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	s.Log = append(s.Log, e)
}

// Active reports whether a room is currently open.
func (s Session) Active() bool {
	return s.Connected && s.RoomKey != ""
}
