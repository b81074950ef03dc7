package protocol

import "encoding/json"

// Channel-level events carried between client and relay. Shout and
// whisper flow both ways; presence events flow relay to client only.
const (
	EventShout         = "shout"
	EventWhisper       = "whisper"
	EventMemberJoined  = "member_joined"
	EventMemberLeft    = "member_left"
	EventPresenceState = "presence_state"
)

// Frame is the envelope on the websocket between a client and the relay.
type Frame struct {
	Event string `json:"event"`
	// Ref targets a single connection for whisper frames.
	Ref     string          `json:"ref,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// NewFrame marshals payload into a frame envelope.
func NewFrame(event, ref string, payload any) (Frame, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Frame{}, err
	}
	return Frame{Event: event, Ref: ref, Payload: raw}, nil
}
