package core_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/filmgrain/groupwatch/internal/core"
	"github.com/filmgrain/groupwatch/internal/domain"
)

func TestRosterSnapshot(t *testing.T) {
	t.Run("snapshot replaces the whole view", func(t *testing.T) {
		var views [][]domain.Member
		r := core.NewRoster("me", nil, func(m []domain.Member) { views = append(views, m) })

		r.HandleSnapshot([]domain.Member{member("a", "Ana", 1), member("b", "Ben", 2)})
		r.HandleSnapshot([]domain.Member{member("c", "Cid", 3)})

		got := r.Members()
		require.Len(t, got, 1)
		assert.Equal(t, "c", got[0].Identifier)
		assert.Len(t, views, 2)
	})

	t.Run("join and leave events never touch membership", func(t *testing.T) {
		var views [][]domain.Member
		r := core.NewRoster("me", nil, func(m []domain.Member) { views = append(views, m) })

		r.HandleJoin(member("a", "Ana", 1))
		assert.Empty(t, r.Members())
		assert.Empty(t, views)

		r.HandleSnapshot([]domain.Member{member("a", "Ana", 1), member("b", "Ben", 2)})
		r.HandleLeave(member("b", "Ben", 2))
		assert.Len(t, r.Members(), 2)
		assert.Len(t, views, 1)
	})

	t.Run("duplicate identifiers resolve to newest join", func(t *testing.T) {
		r := core.NewRoster("me", nil, nil)
		old := member("a", "Ana", 10)
		fresh := member("a", "Ana", 20)
		fresh.ConnRef = "ref-a-2"

		r.HandleSnapshot([]domain.Member{old, fresh})

		got := r.Members()
		require.Len(t, got, 1)
		assert.Equal(t, "ref-a-2", got[0].ConnRef)
		assert.Equal(t, int64(20), got[0].JoinedAt)
	})

	t.Run("snapshot can silently drop the leader", func(t *testing.T) {
		var last []domain.Member
		r := core.NewRoster("me", nil, func(m []domain.Member) { last = m })
		r.HandleSnapshot([]domain.Member{member("a", "Ana", 1), member("b", "Ben", 2)})
		// No leave event observed for a; snapshot is still the truth.
		r.HandleSnapshot([]domain.Member{member("b", "Ben", 2)})

		leader, ok := core.Elect(last)
		require.True(t, ok)
		assert.Equal(t, "b", leader)
	})
}

func TestRosterNotices(t *testing.T) {
	t.Run("join and leave produce notices", func(t *testing.T) {
		notif := &recordingNotifier{}
		r := core.NewRoster("me", notif, nil)

		a := member("a", "Ana", 1)
		r.HandleJoin(a)
		r.HandleLeave(a)

		entries := notif.Entries()
		require.Len(t, entries, 2)
		assert.Equal(t, "Ana has joined", entries[0].Message)
		assert.True(t, entries[0].System)
		assert.Equal(t, "Ana has left", entries[1].Message)
	})

	t.Run("reconnect join is silent", func(t *testing.T) {
		notif := &recordingNotifier{}
		r := core.NewRoster("me", notif, nil)

		again := member("a", "Ana", 5)
		again.PrevConnRef = "ref-old"
		r.HandleJoin(again)

		assert.Empty(t, notif.Entries())
	})

	t.Run("local member's own join is silent", func(t *testing.T) {
		notif := &recordingNotifier{}
		r := core.NewRoster("me", notif, nil)

		r.HandleJoin(member("me", "Me", 1))

		assert.Empty(t, notif.Entries())
	})

	t.Run("repeat join for known identifier is silent", func(t *testing.T) {
		notif := &recordingNotifier{}
		r := core.NewRoster("me", notif, nil)

		r.HandleJoin(member("a", "Ana", 1))
		r.HandleJoin(member("a", "Ana", 2))

		require.Len(t, notif.Entries(), 1)
	})

	t.Run("join diff for a member already in the view is silent", func(t *testing.T) {
		notif := &recordingNotifier{}
		r := core.NewRoster("me", notif, nil)

		r.HandleSnapshot([]domain.Member{member("a", "Ana", 1)})
		r.HandleJoin(member("a", "Ana", 1))

		assert.Empty(t, notif.Entries())
	})
}

func TestRosterStaleLeave(t *testing.T) {
	// A leave for a superseded connection must not evict the newer one.
	notif := &recordingNotifier{}
	r := core.NewRoster("me", notif, nil)

	fresh := member("a", "Ana", 20)
	fresh.ConnRef = "ref-a-2"
	r.HandleSnapshot([]domain.Member{fresh})

	stale := member("a", "Ana", 10) // ConnRef "ref-a"
	r.HandleLeave(stale)

	require.Len(t, r.Members(), 1)
	assert.Empty(t, notif.Entries())
}
