package core

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/filmgrain/groupwatch/internal/protocol"
)

// Route applies one inbound protocol message. The mutex is held from
// the liveness check through the player mutation, so a message racing a
// Close either applies fully before teardown or is dropped as stale,
// never applied to a torn-down player. The receive side trusts the
// sender: membership is access-controlled upstream, so
// playing/skipped/sync apply unconditionally.
func (c *Coordinator) Route(msg protocol.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.session.Connected {
		log.Debug().Str("module", "core.router").Str("action", string(msg.Action)).Msg("stale message dropped")
		return
	}

	switch msg.Action {
	case protocol.ActionPlaying:
		c.applyPlayingLocked(msg)
	case protocol.ActionBuffering:
		c.applyBufferingLocked(msg)
	case protocol.ActionSkipped:
		c.player.ApplyRemoteSeek(msg.Position(c.player.Position()))
		c.systemNoticeLocked(fmt.Sprintf("%s skipped to %.0fs", msg.Username, msg.Position(0)))
	case protocol.ActionSays:
		c.appendChatLocked(msg.Username, msg.StringData())
	case protocol.ActionNext:
		c.applyNextLocked(msg)
	case protocol.ActionRequestSync:
		if c.session.IsLeader {
			c.shoutSyncLocked()
		}
	case protocol.ActionSync:
		c.applySyncLocked(msg)
	case protocol.ActionInform:
		// Drift correction: position only, play state untouched.
		if msg.PlayData != nil {
			c.player.ApplyRemoteSeek(*msg.PlayData)
		}
	case protocol.ActionDisplayInfo:
		c.meta.DisplayTitle = msg.StringData()
	case protocol.ActionLeader:
		c.meta.AnnouncedLeader = msg.Username
	case protocol.ActionNextHolder:
		c.meta.NextHolder = msg.StringData()
	case protocol.ActionJoin:
		// Membership truth comes from presence, not announcements.
		log.Debug().Str("module", "core.router").Str("username", msg.Username).Msg("join announcement")
	default:
		log.Warn().Str("module", "core.router").Str("action", string(msg.Action)).Msg("unknown action")
	}
}

func (c *Coordinator) applyPlayingLocked(msg protocol.Message) {
	if msg.BoolData() {
		c.player.ApplyRemotePlay(msg.Position(c.player.Position()))
		c.systemNoticeLocked(fmt.Sprintf("%s resumed the video", msg.Username))
		return
	}
	if msg.PlayData != nil {
		c.player.ApplyRemoteSeek(*msg.PlayData)
	}
	c.player.ApplyRemotePause()
	c.systemNoticeLocked(fmt.Sprintf("%s paused the video", msg.Username))
}

func (c *Coordinator) applyBufferingLocked(msg protocol.Message) {
	if !msg.BoolData() {
		c.systemNoticeLocked(fmt.Sprintf("%s is back", msg.Username))
		return
	}
	c.player.ApplyRemotePause()
	c.systemNoticeLocked(fmt.Sprintf("%s is reconnecting", msg.Username))
}

func (c *Coordinator) applyNextLocked(msg protocol.Message) {
	location := msg.StringData()
	if msg.UpNext != nil {
		location = msg.UpNext.Location
	}
	c.player.ApplyRemoteNext(location)
	c.upNext = nil
	c.systemNoticeLocked(fmt.Sprintf("%s started the next video", msg.Username))
}

// applySyncLocked adopts the leader's authoritative state. Seek then
// play state then up-next; applying the same sync twice lands on the
// same position.
func (c *Coordinator) applySyncLocked(msg protocol.Message) {
	pos := msg.Position(c.player.Position())
	if msg.BoolData() {
		c.player.ApplyRemotePlay(pos)
	} else {
		c.player.ApplyRemoteSeek(pos)
		c.player.ApplyRemotePause()
	}
	c.upNext = msg.UpNext
}

func (c *Coordinator) appendChatLocked(username, text string) {
	entry := LogEntry{Username: username, Message: text}
	c.session.append(entry)
	c.notif.Notify(entry)
}

func (c *Coordinator) systemNoticeLocked(line string) {
	entry := LogEntry{Message: line, System: true}
	c.session.append(entry)
	c.notif.Notify(entry)
}
