package relay

import (
	"errors"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/filmgrain/groupwatch/internal/domain"
)

var (
	ErrRoomNotFound        = errors.New("room not found")
	ErrAssociationMissing  = errors.New("no media associated with room")
	ErrAlreadyAssociated   = errors.New("room already associated")
	ErrEmptyAssociationKey = errors.New("empty room key or media token")
)

// Manager owns the topics and the room-key to media-token associations.
// Rooms are ephemeral: the last detach garbage-collects both the topic
// and its association.
type Manager struct {
	mu     sync.RWMutex
	rooms  map[domain.RoomKey]*Room
	assocs map[domain.RoomKey]string
}

func NewManager() *Manager {
	return &Manager{
		rooms:  make(map[domain.RoomKey]*Room),
		assocs: make(map[domain.RoomKey]string),
	}
}

// GetOrCreate returns the topic for a room key, creating it on first use.
func (m *Manager) GetOrCreate(key domain.RoomKey) *Room {
	m.mu.RLock()
	room, ok := m.rooms[key]
	m.mu.RUnlock()
	if ok {
		return room
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if room, ok = m.rooms[key]; !ok {
		room = NewRoom(key)
		m.rooms[key] = room
		log.Info().Str("module", "relay.manager").Str("room", string(key)).Msg("room created")
	}
	return room
}

// Get returns an existing topic.
func (m *Manager) Get(key domain.RoomKey) (*Room, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	room, ok := m.rooms[key]
	return room, ok
}

// Associate binds a media playback token to a room key. First write
// wins; the creator calls this exactly once before connecting.
func (m *Manager) Associate(key domain.RoomKey, mediaToken string) error {
	if key == "" || mediaToken == "" {
		return ErrEmptyAssociationKey
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.assocs[key]; ok {
		return ErrAlreadyAssociated
	}
	m.assocs[key] = mediaToken
	log.Info().Str("module", "relay.manager").Str("room", string(key)).Msg("media associated")
	return nil
}

// Resolve returns the media token a room was associated with.
func (m *Manager) Resolve(key domain.RoomKey) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	mediaToken, ok := m.assocs[key]
	if !ok {
		return "", ErrAssociationMissing
	}
	return mediaToken, nil
}

// Cleanup drops a topic once it is empty. Safe to call after every
// detach; a room that picked up members between checks survives.
func (m *Manager) Cleanup(room *Room) {
	if room == nil || room.MemberCount() > 0 {
		return
	}
	key := room.Key()
	m.mu.Lock()
	defer m.mu.Unlock()
	if current, ok := m.rooms[key]; ok && current == room && current.MemberCount() == 0 {
		delete(m.rooms, key)
		delete(m.assocs, key)
		log.Info().Str("module", "relay.manager").Str("room", string(key)).Msg("room cleaned up")
	}
}

// RoomInfo is a read-only listing entry for the rooms endpoint.
type RoomInfo struct {
	Key         domain.RoomKey `json:"key"`
	MemberCount int            `json:"memberCount"`
}

// List snapshots the live topics.
func (m *Manager) List() []RoomInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]RoomInfo, 0, len(m.rooms))
	for key, room := range m.rooms {
		out = append(out, RoomInfo{Key: key, MemberCount: room.MemberCount()})
	}
	return out
}
