package relay

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManagerRooms(t *testing.T) {
	t.Run("get or create is idempotent", func(t *testing.T) {
		m := NewManager()
		room := m.GetOrCreate("room1")
		assert.Same(t, room, m.GetOrCreate("room1"))

		got, ok := m.Get("room1")
		require.True(t, ok)
		assert.Same(t, room, got)
	})

	t.Run("cleanup drops empty rooms and their associations", func(t *testing.T) {
		m := NewManager()
		room := m.GetOrCreate("room1")
		require.NoError(t, m.Associate("room1", "media-tok"))

		m.Cleanup(room)

		_, ok := m.Get("room1")
		assert.False(t, ok)
		_, err := m.Resolve("room1")
		assert.ErrorIs(t, err, ErrAssociationMissing)
	})

	t.Run("cleanup spares occupied rooms", func(t *testing.T) {
		m := NewManager()
		room := m.GetOrCreate("room1")
		room.Attach("ref-1", testIdentity("a", "Ana"), 4)

		m.Cleanup(room)

		_, ok := m.Get("room1")
		assert.True(t, ok)
	})

	t.Run("list reports member counts", func(t *testing.T) {
		m := NewManager()
		m.GetOrCreate("room1").Attach("ref-1", testIdentity("a", "Ana"), 4)
		m.GetOrCreate("room2")

		infos := m.List()
		require.Len(t, infos, 2)
		counts := map[string]int{}
		for _, info := range infos {
			counts[string(info.Key)] = info.MemberCount
		}
		assert.Equal(t, 1, counts["room1"])
		assert.Equal(t, 0, counts["room2"])
	})
}

func TestManagerAssociations(t *testing.T) {
	t.Run("resolve returns the bound token", func(t *testing.T) {
		m := NewManager()
		require.NoError(t, m.Associate("room1", "media-tok"))

		mediaToken, err := m.Resolve("room1")
		require.NoError(t, err)
		assert.Equal(t, "media-tok", mediaToken)
	})

	t.Run("first association wins", func(t *testing.T) {
		m := NewManager()
		require.NoError(t, m.Associate("room1", "media-tok"))
		assert.ErrorIs(t, m.Associate("room1", "other"), ErrAlreadyAssociated)

		mediaToken, _ := m.Resolve("room1")
		assert.Equal(t, "media-tok", mediaToken)
	})

	t.Run("empty inputs rejected", func(t *testing.T) {
		m := NewManager()
		assert.ErrorIs(t, m.Associate("", "tok"), ErrEmptyAssociationKey)
		assert.ErrorIs(t, m.Associate("room1", ""), ErrEmptyAssociationKey)
	})

	t.Run("unknown room does not resolve", func(t *testing.T) {
		m := NewManager()
		_, err := m.Resolve("nope")
		assert.ErrorIs(t, err, ErrAssociationMissing)
	})
}
