package core

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/filmgrain/groupwatch/internal/domain"
	"github.com/filmgrain/groupwatch/internal/protocol"
)

// RoomMeta is administrative metadata announced over the channel
// (displayInfo/leader/nextHolder). Informational only: it never feeds
// back into membership or derived leadership.
type RoomMeta struct {
	DisplayTitle    string
	AnnouncedLeader string
	NextHolder      string
}

// Coordinator owns the session state and keeps the local player
// convergent with the room. It derives leadership from the roster on
// every membership change, gates ordering-affecting sends on it, answers
// catch-up requests when leader, and applies remote commands to the
// local player. All mutations go through its methods under one mutex,
// mirroring the one-logical-thread model the protocol assumes.
type Coordinator struct {
	mu        sync.Mutex
	id        domain.Identity
	transport Transport
	player    Player
	notif     Notifier

	session   Session
	roster    *Roster
	upNext    *protocol.UpNext
	meta      RoomMeta
	wasLeader bool
}

func NewCoordinator(id domain.Identity, transport Transport, player Player, notif Notifier) *Coordinator {
	if notif == nil {
		notif = NopNotifier{}
	}
	c := &Coordinator{
		id:        id,
		transport: transport,
		player:    player,
		notif:     notif,
	}
	c.roster = NewRoster(id.Identifier, notif, c.HandleMembershipChange)
	return c
}

// Roster exposes the membership tracker so the transport event loop can
// feed presence into it.
func (c *Coordinator) Roster() *Roster { return c.roster }

// Open marks the session live on the given room. Called by the lifecycle
// manager once the transport connect succeeded.
func (c *Coordinator) Open(key domain.RoomKey) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.session.reset()
	c.session.RoomKey = key
	c.session.Connected = true
	c.wasLeader = false
	c.upNext = nil
	c.meta = RoomMeta{}
	log.Info().Str("module", "core.coordinator").Str("room", string(key)).Msg("session opened")
}

// Close tears the session down. After it returns no further send reaches
// the transport and late-arriving events are dropped as stale.
func (c *Coordinator) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.session.Connected {
		return
	}
	key := c.session.RoomKey
	c.session.reset()
	c.wasLeader = false
	log.Info().Str("module", "core.coordinator").Str("room", string(key)).Msg("session closed")
}

// Session returns a copy of the current session state.
func (c *Coordinator) Session() Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.session
	s.Log = append([]LogEntry(nil), c.session.Log...)
	return s
}

// Meta returns the latest announced room metadata.
func (c *Coordinator) Meta() RoomMeta {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.meta
}

// UpNext returns the currently adopted up-next pointer, nil when none.
func (c *Coordinator) UpNext() *protocol.UpNext {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.upNext == nil {
		return nil
	}
	cp := *c.upNext
	return &cp
}

// SetUpNext records what plays after the current item. Leader-owned
// state; broadcast to the room through the next sync.
func (c *Coordinator) SetUpNext(n *protocol.UpNext) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.upNext = n
}

// Run consumes transport events until the channel closes. The lifecycle
// manager starts it in its own goroutine per connection.
func (c *Coordinator) Run(events <-chan Event) {
	for ev := range events {
		switch {
		case ev.Joined != nil:
			c.roster.HandleJoin(*ev.Joined)
		case ev.Left != nil:
			c.roster.HandleLeave(*ev.Left)
		case ev.Snapshot != nil:
			c.roster.HandleSnapshot(ev.Snapshot)
		case ev.Broadcast != nil:
			c.Route(*ev.Broadcast)
		}
	}
	log.Debug().Str("module", "core.coordinator").Msg("event stream closed")
}

// HandleMembershipChange recomputes leadership from the new roster view.
// IsLeader is derived here and nowhere else. A member that just became
// leader proactively shouts a sync so followers need not ask.
func (c *Coordinator) HandleMembershipChange(members []domain.Member) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.session.Connected {
		return
	}
	leader, ok := Elect(members)
	isLeader := ok && leader == c.id.Identifier
	became := isLeader && !c.wasLeader
	c.session.IsLeader = isLeader
	c.wasLeader = isLeader

	if became {
		log.Info().Str("module", "core.coordinator").Str("identifier", c.id.Identifier).Msg("became leader")
		c.shoutSyncLocked()
	}
}

// IsLeader reports the current derived leadership.
func (c *Coordinator) IsLeader() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session.IsLeader
}

// RequestSync asks the room's leader for a catch-up. Best effort: no
// timeout, no retry. An unanswered request leaves the player where it is.
func (c *Coordinator) RequestSync() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.session.Connected || c.session.IsLeader {
		return
	}
	c.shout(protocol.Message{Action: protocol.ActionRequestSync, Username: c.id.Username})
}

// SendLocalAction broadcasts a protocol message reflecting a local event
// and appends the matching human-readable log line. Ordering-affecting
// actions are silently dropped unless the local member is leader. The
// mutex is held from the liveness check through the shout, so a send
// racing a Close never reaches the transport after Close returned.
func (c *Coordinator) SendLocalAction(msg protocol.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.session.Connected {
		return
	}
	if leaderGated(msg.Action) && !c.session.IsLeader {
		log.Debug().Str("module", "core.coordinator").Str("action", string(msg.Action)).Msg("dropped non-leader send")
		return
	}

	msg.Username = c.id.Username
	c.shout(msg)
	if line, chat := localActionLine(msg); line != "" {
		entry := LogEntry{Message: line, System: !chat}
		if chat {
			entry.Username = c.id.Username
		}
		c.session.append(entry)
		c.notif.Notify(entry)
	}
}

// Player event hooks, wired to the local player's play/pause/seek/buffer
// callbacks.

func (c *Coordinator) OnLocalPlay(position float64) {
	c.SendLocalAction(protocol.Message{Action: protocol.ActionPlaying, Data: true, PlayData: protocol.Pos(position)})
}

func (c *Coordinator) OnLocalPause(position float64) {
	c.SendLocalAction(protocol.Message{Action: protocol.ActionPlaying, Data: false, PlayData: protocol.Pos(position)})
}

func (c *Coordinator) OnLocalSeek(position float64) {
	c.SendLocalAction(protocol.Message{Action: protocol.ActionSkipped, PlayData: protocol.Pos(position)})
}

func (c *Coordinator) OnLocalBufferStart() {
	c.SendLocalAction(protocol.Message{Action: protocol.ActionBuffering, Data: true})
}

func (c *Coordinator) OnLocalBufferEnd() {
	c.SendLocalAction(protocol.Message{Action: protocol.ActionBuffering, Data: false})
}

// SendChat broadcasts a chat line.
func (c *Coordinator) SendChat(text string) {
	c.SendLocalAction(protocol.Message{Action: protocol.ActionSays, Data: text})
}

// SendNext advances the room to the up-next item. Leader only.
func (c *Coordinator) SendNext() {
	c.mu.Lock()
	next := c.upNext
	c.mu.Unlock()
	if next == nil {
		return
	}
	c.SendLocalAction(protocol.Message{Action: protocol.ActionNext, UpNext: next})
}

// Inform nudges followers' positions without touching play state. Driven
// by the heartbeat, leader only.
func (c *Coordinator) Inform() {
	c.SendLocalAction(protocol.Message{Action: protocol.ActionInform, PlayData: protocol.Pos(c.player.Position())})
}

// shoutSyncLocked broadcasts the authoritative state: current position,
// play/pause, and the up-next pointer. Caller holds c.mu.
func (c *Coordinator) shoutSyncLocked() {
	c.shout(protocol.Message{
		Action:   protocol.ActionSync,
		Username: c.id.Username,
		Data:     !c.player.Paused(),
		PlayData: protocol.Pos(c.player.Position()),
		UpNext:   c.upNext,
	})
}

func (c *Coordinator) shout(msg protocol.Message) {
	if err := c.transport.Shout(msg); err != nil {
		// Fire and forget: lost frames heal through sync/request-sync.
		log.Warn().Err(err).Str("module", "core.coordinator").Str("action", string(msg.Action)).Msg("shout failed")
	}
}

func leaderGated(a protocol.Action) bool {
	switch a {
	case protocol.ActionNext, protocol.ActionSync, protocol.ActionInform,
		protocol.ActionDisplayInfo, protocol.ActionLeader, protocol.ActionNextHolder:
		return true
	}
	return false
}

func localActionLine(msg protocol.Message) (line string, chat bool) {
	switch msg.Action {
	case protocol.ActionPlaying:
		if msg.BoolData() {
			return "You have resumed the video", false
		}
		return "You have paused the video", false
	case protocol.ActionSkipped:
		return fmt.Sprintf("You have skipped to %.0fs", msg.Position(0)), false
	case protocol.ActionSays:
		return msg.StringData(), true
	case protocol.ActionNext:
		return "You have started the next video", false
	}
	return "", false
}
