package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sunnyrelay/sunnyrelay/pkg/types"
)

// testDatabase runs the behavior every Database implementation must share.
func testDatabase(t *testing.T, db Database, prefix string) {
	ctx := context.Background()
	now := time.Now().Truncate(time.Second).UTC()

	t.Run("EnsureObject Idempotent", func(t *testing.T) {
		obj := types.StateObject{
			ID:   prefix + "total_consumption",
			Name: "total consumption",
			Type: types.StateTypeNumber,
			Role: types.StateRoleState,
			Read: true,
		}
		require.NoError(t, db.EnsureObject(ctx, obj))
		require.NoError(t, db.EnsureObject(ctx, obj))
	})

	t.Run("Missing State", func(t *testing.T) {
		_, err := db.GetState(ctx, prefix+"does_not_exist")
		assert.ErrorIs(t, err, ErrStateNotFound)
	})

	t.Run("Set And Get", func(t *testing.T) {
		require.NoError(t, db.SetState(ctx, prefix+"total_consumption", types.State{Val: 100.0, Ack: true, TS: now}))
		require.NoError(t, db.SetState(ctx, prefix+"last_update", types.State{Val: "2024-01-01T00:00:00", Ack: true, TS: now}))

		s, err := db.GetState(ctx, prefix+"total_consumption")
		require.NoError(t, err)
		assert.Equal(t, 100.0, s.Val)
		assert.True(t, s.Ack)
		assert.True(t, now.Equal(s.TS))

		// overwrite
		require.NoError(t, db.SetState(ctx, prefix+"total_consumption", types.State{Val: 120.0, Ack: true, TS: now}))
		s, err = db.GetState(ctx, prefix+"total_consumption")
		require.NoError(t, err)
		assert.Equal(t, 120.0, s.Val)
	})

	t.Run("List", func(t *testing.T) {
		require.NoError(t, db.SetState(ctx, "other.0.value", types.State{Val: 1.0, Ack: true, TS: now}))

		entries, err := db.ListStates(ctx, prefix)
		require.NoError(t, err)
		require.Len(t, entries, 2)
		assert.Equal(t, prefix+"last_update", entries[0].ID)
		assert.Equal(t, "2024-01-01T00:00:00", entries[0].Val)
		assert.Equal(t, prefix+"total_consumption", entries[1].ID)
	})
}

func TestMemory(t *testing.T) {
	m := NewMemory()
	testDatabase(t, m, "sunnyportal.0.")

	t.Run("Object Kept", func(t *testing.T) {
		ctx := context.Background()
		require.NoError(t, m.EnsureObject(ctx, types.StateObject{ID: "a", Name: "first"}))
		require.NoError(t, m.EnsureObject(ctx, types.StateObject{ID: "a", Name: "second"}))
		obj, ok := m.GetObject("a")
		require.True(t, ok)
		assert.Equal(t, "first", obj.Name)
	})

	require.NoError(t, m.Close())
}
