package relay

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/filmgrain/groupwatch/internal/domain"
	"github.com/filmgrain/groupwatch/internal/protocol"
)

func testIdentity(identifier, username string) domain.Identity {
	return domain.Identity{Identifier: identifier, Username: username}
}

func TestRoomAttachDetach(t *testing.T) {
	t.Run("attach registers a member", func(t *testing.T) {
		room := NewRoom("room1")
		m := room.Attach("ref-1", testIdentity("a", "Ana"), 4)

		assert.Equal(t, "a", m.Identifier)
		assert.Equal(t, "ref-1", m.ConnRef)
		assert.Empty(t, m.PrevConnRef)
		assert.NotZero(t, m.JoinedAt)
		assert.Equal(t, 1, room.MemberCount())
	})

	t.Run("reconnect supersedes and keeps join position", func(t *testing.T) {
		room := NewRoom("room1")
		first := room.Attach("ref-1", testIdentity("a", "Ana"), 4)
		second := room.Attach("ref-2", testIdentity("a", "Ana"), 4)

		assert.Equal(t, "ref-1", second.PrevConnRef)
		assert.Equal(t, first.JoinedAt, second.JoinedAt)
		assert.Equal(t, 1, room.MemberCount())

		// The superseded ref is gone.
		_, ok := room.Queue("ref-1")
		assert.False(t, ok)
	})

	t.Run("stale detach after reconnect removes nothing", func(t *testing.T) {
		room := NewRoom("room1")
		room.Attach("ref-1", testIdentity("a", "Ana"), 4)
		room.Attach("ref-2", testIdentity("a", "Ana"), 4)

		_, ok := room.Detach("ref-1")
		assert.False(t, ok)
		assert.Equal(t, 1, room.MemberCount())
	})

	t.Run("detach removes the member", func(t *testing.T) {
		room := NewRoom("room1")
		room.Attach("ref-1", testIdentity("a", "Ana"), 4)

		left, ok := room.Detach("ref-1")
		require.True(t, ok)
		assert.Equal(t, "a", left.Identifier)
		assert.Equal(t, 0, room.MemberCount())
	})
}

func TestRoomBroadcast(t *testing.T) {
	room := NewRoom("room1")
	room.Attach("ref-a", testIdentity("a", "Ana"), 4)
	room.Attach("ref-b", testIdentity("b", "Ben"), 4)

	frame, err := protocol.NewFrame(protocol.EventShout, "", protocol.Message{Action: protocol.ActionSays, Username: "Ana", Data: "hi"})
	require.NoError(t, err)
	room.Broadcast("ref-a", frame)

	queueA, _ := room.Queue("ref-a")
	queueB, _ := room.Queue("ref-b")
	assert.Empty(t, queueA, "sender must not receive its own shout")
	assert.Len(t, queueB, 1)
}

func TestRoomWhisper(t *testing.T) {
	room := NewRoom("room1")
	room.Attach("ref-a", testIdentity("a", "Ana"), 4)
	room.Attach("ref-b", testIdentity("b", "Ben"), 4)

	frame, err := protocol.NewFrame(protocol.EventWhisper, "ref-b", map[string]string{"hello": "ben"})
	require.NoError(t, err)

	assert.True(t, room.Whisper("ref-b", frame))
	assert.False(t, room.Whisper("ref-gone", frame))

	queueA, _ := room.Queue("ref-a")
	queueB, _ := room.Queue("ref-b")
	assert.Empty(t, queueA)
	assert.Len(t, queueB, 1)
}

func TestRoomSnapshot(t *testing.T) {
	room := NewRoom("room1")
	room.Attach("ref-a", testIdentity("a", "Ana"), 4)
	room.Attach("ref-b", testIdentity("b", "Ben"), 4)

	snapshot := room.Snapshot()
	assert.Len(t, snapshot, 2)

	ids := map[string]bool{}
	for _, m := range snapshot {
		ids[m.Identifier] = true
	}
	assert.True(t, ids["a"] && ids["b"])
}

func TestRoomBackpressure(t *testing.T) {
	room := NewRoom("room1")
	room.Attach("ref-a", testIdentity("a", "Ana"), 1)
	room.Attach("ref-b", testIdentity("b", "Ben"), 1)

	frame, err := protocol.NewFrame(protocol.EventShout, "", protocol.Message{Action: protocol.ActionSays, Data: "x"})
	require.NoError(t, err)

	// Second frame overflows b's queue of one and is dropped, not blocked.
	room.Broadcast("ref-a", frame)
	room.Broadcast("ref-a", frame)

	queueB, _ := room.Queue("ref-b")
	assert.Len(t, queueB, 1)
}
