// Package relay is a reference implementation of the pub/sub-with-
// presence collaborator the protocol core consumes: topics keyed by room
// key, shout fan-out, whisper, and presence diffs reconciled by periodic
// full snapshots. It is a dumb pipe; all playback authority lives in the
// clients.
package relay

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/filmgrain/groupwatch/internal/domain"
	"github.com/filmgrain/groupwatch/internal/protocol"
)

// conn is one attached websocket with its buffered outbound queue.
type conn struct {
	member domain.Member
	send   chan []byte
}

// trySend drops on a full queue; a slow consumer heals through the next
// presence snapshot and sync rather than stalling the room.
func (c *conn) trySend(data []byte) bool {
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

// Room is a threadsafe set of connections on one topic.
type Room struct {
	key domain.RoomKey

	mu     sync.RWMutex
	byRef  map[string]*conn
	byUser map[string]string // identifier -> active conn ref
}

func NewRoom(key domain.RoomKey) *Room {
	return &Room{
		key:    key,
		byRef:  make(map[string]*conn),
		byUser: make(map[string]string),
	}
}

func (r *Room) Key() domain.RoomKey { return r.key }

// Attach registers a connection. A second connection for an identifier
// supersedes the first: the member record carries the previous ref so
// clients can tell a reconnect from a fresh join.
func (r *Room) Attach(ref string, id domain.Identity, sendBuf int) domain.Member {
	member := domain.Member{
		Identifier:    id.Identifier,
		Username:      id.Username,
		ConnRef:       ref,
		JoinedAt:      time.Now().UnixMilli(),
		PresenceLabel: "online",
	}

	r.mu.Lock()
	if prevRef, ok := r.byUser[id.Identifier]; ok {
		member.PrevConnRef = prevRef
		if prev, live := r.byRef[prevRef]; live {
			// Keep the original join position across a reconnect.
			member.JoinedAt = prev.member.JoinedAt
			close(prev.send)
			delete(r.byRef, prevRef)
		}
	}
	r.byRef[ref] = &conn{member: member, send: make(chan []byte, sendBuf)}
	r.byUser[id.Identifier] = ref
	r.mu.Unlock()

	log.Info().Str("module", "relay.room").Str("room", string(r.key)).
		Str("identifier", id.Identifier).Str("ref", ref).Msg("member attached")
	return member
}

// Detach removes a connection. A stale ref (already superseded by a
// reconnect) detaches nothing.
func (r *Room) Detach(ref string) (domain.Member, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.byRef[ref]
	if !ok {
		return domain.Member{}, false
	}
	delete(r.byRef, ref)
	if r.byUser[c.member.Identifier] == ref {
		delete(r.byUser, c.member.Identifier)
	}
	close(c.send)
	return c.member, true
}

// Queue returns the outbound queue for a connection ref.
func (r *Room) Queue(ref string) (<-chan []byte, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.byRef[ref]
	if !ok {
		return nil, false
	}
	return c.send, true
}

// Broadcast fans a frame out to every member except the sender.
func (r *Room) Broadcast(fromRef string, frame protocol.Frame) {
	data, err := json.Marshal(frame)
	if err != nil {
		return
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	dropped := 0
	for ref, c := range r.byRef {
		if ref == fromRef {
			continue
		}
		if !c.trySend(data) {
			dropped++
		}
	}
	if dropped > 0 {
		log.Warn().Str("module", "relay.room").Str("room", string(r.key)).Int("dropped", dropped).Msg("slow consumers dropped frame")
	}
}

// Whisper sends a frame to one connection ref.
func (r *Room) Whisper(targetRef string, frame protocol.Frame) bool {
	data, err := json.Marshal(frame)
	if err != nil {
		return false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.byRef[targetRef]
	if !ok {
		return false
	}
	return c.trySend(data)
}

// Snapshot returns the full presence state of the room.
func (r *Room) Snapshot() []domain.Member {
	r.mu.RLock()
	defer r.mu.RUnlock()
	members := make([]domain.Member, 0, len(r.byRef))
	for _, c := range r.byRef {
		members = append(members, c.member)
	}
	return members
}

// MemberCount reports how many connections are attached.
func (r *Room) MemberCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byRef)
}
