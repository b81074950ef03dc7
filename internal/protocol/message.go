// Package protocol defines the wire-level messages exchanged between
// GroupWatch clients over the shared broadcast channel.
package protocol

import "encoding/json"

// Action discriminates the message union.
type Action string

const (
	// Player-state notifications any member may broadcast about its own
	// local player.
	ActionPlaying   Action = "playing"
	ActionBuffering Action = "buffering"
	ActionSkipped   Action = "skipped"

	// Chat.
	ActionSays Action = "says"

	// Catch-up handshake.
	ActionRequestSync Action = "request-sync"
	ActionSync        Action = "sync"

	// Position-only drift correction; never changes play state.
	ActionInform Action = "inform"

	// Ordering and administrative commands only the leader may send.
	ActionNext        Action = "next"
	ActionDisplayInfo Action = "displayInfo"
	ActionLeader      Action = "leader"
	ActionNextHolder  Action = "nextHolder"

	// Courtesy announcement on entering a room; membership truth always
	// comes from presence, never from this.
	ActionJoin Action = "join"
)

// UpNext points at the item queued after the current one.
type UpNext struct {
	ContentID string `json:"contentId"`
	Location  string `json:"location"`
	Title     string `json:"title,omitempty"`
}

// Message is the tagged union every shout carries. Data holds the
// action-specific scalar: a bool for playing (play vs pause) and sync
// (resume vs stay paused), a string for says/displayInfo/leader/
// nextHolder, unused otherwise. PlayData is a position in seconds.
type Message struct {
	Action   Action   `json:"action"`
	Username string   `json:"username"`
	Data     any      `json:"data,omitempty"`
	PlayData *float64 `json:"playData,omitempty"`
	UpNext   *UpNext  `json:"upNext,omitempty"`
}

// Encode marshals the message for a shout frame.
func (m Message) Encode() ([]byte, error) {
	return json.Marshal(m)
}

// Decode parses a shout frame.
func Decode(data []byte) (Message, error) {
	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		return Message{}, err
	}
	return m, nil
}

// Position returns the playData field, or fallback when absent.
func (m Message) Position(fallback float64) float64 {
	if m.PlayData == nil {
		return fallback
	}
	return *m.PlayData
}

// BoolData reads Data as a bool; JSON numbers and absent values map to
// false so a malformed frame degrades to "paused" rather than an error.
func (m Message) BoolData() bool {
	b, ok := m.Data.(bool)
	return ok && b
}

// StringData reads Data as a string, empty when it is anything else.
func (m Message) StringData() string {
	s, _ := m.Data.(string)
	return s
}

// Pos is a convenience for building messages with a position payload.
func Pos(v float64) *float64 { return &v }
