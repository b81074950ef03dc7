package core

import (
	"context"

	"github.com/filmgrain/groupwatch/internal/domain"
	"github.com/filmgrain/groupwatch/internal/protocol"
)

// Transport abstracts the pub/sub channel with presence tracking.
// Owned by the adapter; the adapter must Close() underlying resources
// on Disconnect. Delivery is best effort: frames may be lost and no
// ordering holds across peers.
type Transport interface {
	Connect(ctx context.Context, topic string, id domain.Identity) error
	Disconnect(topic string) error

	// Shout broadcasts to every member of the connected topic.
	Shout(msg protocol.Message) error
	// Whisper sends a payload to a single connection ref.
	Whisper(targetRef string, payload any) error

	// Events delivers presence and broadcast events in transport order.
	// The channel closes when the transport disconnects.
	Events() <-chan Event
}

// Event is the typed union of everything a transport can report.
// Exactly one field is non-zero.
type Event struct {
	Joined    *domain.Member
	Left      *domain.Member
	Snapshot  []domain.Member
	Broadcast *protocol.Message
}

// Player is the local media player the coordinator drives. Position and
// Paused are read when answering sync requests; the Apply* calls mirror
// remote peers' commands onto the local playback. Apply* runs under the
// coordinator's lock and must not call back into the coordinator's
// OnLocal* hooks.
type Player interface {
	ApplyRemotePlay(position float64)
	ApplyRemotePause()
	ApplyRemoteSeek(position float64)
	ApplyRemoteNext(location string)

	Position() float64
	Paused() bool
}

// Authorizer answers whether an account may open or enter a GroupWatch
// room. Guests and incognito accounts are refused upstream of any
// transport contact.
type Authorizer interface {
	CanGroupWatch(id domain.Identity) bool
}

// Associator binds a freshly generated room key to the media's playback
// token server-side, so joiners can resolve what to play.
type Associator interface {
	Associate(ctx context.Context, mediaAuthToken string, key domain.RoomKey) error
}

// Notifier receives user-visible lines (chat and system notices). The UI
// layer implements it; NopNotifier is used when none is attached. Notify
// may run under the coordinator's lock and must not call back into it.
type Notifier interface {
	Notify(entry LogEntry)
}

// NopNotifier drops every notification.
type NopNotifier struct{}

func (NopNotifier) Notify(LogEntry) {}
