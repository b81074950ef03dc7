package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/filmgrain/groupwatch/internal/domain"
)

var (
	// ErrNotAuthorized refuses guests and incognito accounts before any
	// transport contact, so no presence leaks for disallowed accounts.
	ErrNotAuthorized = errors.New("account not allowed to use GroupWatch")
	// ErrTransportUnavailable wraps a failed channel connect.
	ErrTransportUnavailable = errors.New("transport unavailable")
	// ErrAssociationFailed wraps a failed room-association call.
	ErrAssociationFailed = errors.New("room association failed")
	// ErrAlreadyInRoom refuses opening a second session over a live one.
	ErrAlreadyInRoom = errors.New("already in a room")
)

// Lifecycle opens and closes sessions: room key generation, the one-time
// association call, transport connect/disconnect, and session teardown.
type Lifecycle struct {
	mu    sync.Mutex
	id    domain.Identity
	auth  Authorizer
	assoc Associator
	tr    Transport
	coord *Coordinator
	notif Notifier

	topic string
}

func NewLifecycle(id domain.Identity, auth Authorizer, assoc Associator, tr Transport, coord *Coordinator, notif Notifier) *Lifecycle {
	if notif == nil {
		notif = NopNotifier{}
	}
	return &Lifecycle{id: id, auth: auth, assoc: assoc, tr: tr, coord: coord, notif: notif}
}

// CreateRoom generates a fresh room key, associates it with the media's
// playback token, then connects. Association failures abort before any
// transport contact so no orphaned channel is left behind.
func (l *Lifecycle) CreateRoom(ctx context.Context, mediaAuthToken string) (domain.RoomKey, error) {
	if !l.auth.CanGroupWatch(l.id) {
		return "", ErrNotAuthorized
	}
	l.mu.Lock()
	if l.topic != "" {
		l.mu.Unlock()
		return "", ErrAlreadyInRoom
	}
	l.mu.Unlock()

	key := newRoomKey()
	if err := l.assoc.Associate(ctx, mediaAuthToken, key); err != nil {
		return "", fmt.Errorf("%w: %w", ErrAssociationFailed, err)
	}
	if err := l.open(ctx, key); err != nil {
		return "", err
	}
	return key, nil
}

// JoinRoom connects to an existing room. No key generation and no
// association call; the room's media was bound by its creator.
func (l *Lifecycle) JoinRoom(ctx context.Context, key domain.RoomKey) error {
	if !l.auth.CanGroupWatch(l.id) {
		return ErrNotAuthorized
	}
	l.mu.Lock()
	if l.topic != "" {
		l.mu.Unlock()
		return ErrAlreadyInRoom
	}
	l.mu.Unlock()

	if err := l.open(ctx, key); err != nil {
		return err
	}
	// A joiner starts as follower and asks the leader for a catch-up.
	// Best effort: an unanswered request just means "slightly out of
	// sync" until the next inform.
	l.coord.RequestSync()
	return nil
}

// LeaveRoom tears the session down. The coordinator closes first, so no
// send reaches the transport after this returns and late events drop as
// stale.
func (l *Lifecycle) LeaveRoom() {
	l.mu.Lock()
	topic := l.topic
	l.topic = ""
	l.mu.Unlock()
	if topic == "" {
		return
	}

	l.coord.Close()
	if err := l.tr.Disconnect(topic); err != nil {
		log.Warn().Err(err).Str("module", "core.lifecycle").Str("room", topic).Msg("disconnect failed")
	}
	l.notif.Notify(LogEntry{Message: "You left the room", System: true})
	log.Info().Str("module", "core.lifecycle").Str("room", topic).Msg("left room")
}

func (l *Lifecycle) open(ctx context.Context, key domain.RoomKey) error {
	if err := l.tr.Connect(ctx, string(key), l.id); err != nil {
		return fmt.Errorf("%w: %w", ErrTransportUnavailable, err)
	}
	l.mu.Lock()
	l.topic = string(key)
	l.mu.Unlock()

	l.coord.Open(key)
	go l.coord.Run(l.tr.Events())
	return nil
}

// newRoomKey returns a short opaque key naming the transport topic.
func newRoomKey() domain.RoomKey {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return domain.RoomKey(raw[:12])
}
