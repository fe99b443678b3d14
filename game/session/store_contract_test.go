package session

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wricardo/chopsticks/game/engine"
)

func newStoredSession(t *testing.T, id string) *Session {
	t.Helper()
	game, err := engine.NewGame(id, "alice", player1Opens)
	require.NoError(t, err)
	require.True(t, game.Join("bob"))

	now := time.Now().UTC().Truncate(time.Millisecond)
	return &Session{ID: id, Game: game, CreatedAt: now, UpdatedAt: now}
}

// runStoreContract checks the behaviour every Store implementation shares
func runStoreContract(t *testing.T, store Store) {
	ctx := context.Background()

	t.Run("Save and Load", func(t *testing.T) {
		sess := newStoredSession(t, "contract-1")
		require.NoError(t, sess.Game.Attack("alice", engine.Left, engine.Right))
		require.NoError(t, store.Save(ctx, sess))

		loaded, err := store.Load(ctx, "contract-1")
		require.NoError(t, err)
		assert.Equal(t, sess.ID, loaded.ID)
		assert.Equal(t, sess.Game, loaded.Game)
		assert.True(t, sess.CreatedAt.Equal(loaded.CreatedAt))
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "contract-missing")
		assert.ErrorIs(t, err, ErrSessionNotFound)
	})

	t.Run("Exists", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, newStoredSession(t, "contract-2")))

		ok, err := store.Exists(ctx, "contract-2")
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = store.Exists(ctx, "contract-missing")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("ListAll", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, newStoredSession(t, "contract-3")))

		ids, err := store.ListAll(ctx)
		require.NoError(t, err)
		assert.Contains(t, ids, "contract-1")
		assert.Contains(t, ids, "contract-3")
		assert.IsIncreasing(t, ids)
	})

	t.Run("Record Too Large", func(t *testing.T) {
		sess := newStoredSession(t, "contract-big")
		sess.Game.Player1.ID = strings.Repeat("x", DefaultMaxRecordSize)

		err := store.Save(ctx, sess)
		assert.True(t, errors.Is(err, ErrRecordTooLarge), "expected ErrRecordTooLarge, got %v", err)

		ok, err := store.Exists(ctx, "contract-big")
		require.NoError(t, err)
		assert.False(t, ok, "rejected record must not be stored")
	})

	t.Run("Invalid ID", func(t *testing.T) {
		sess := newStoredSession(t, "contract-4")
		sess.ID = "../escape"
		assert.ErrorIs(t, store.Save(ctx, sess), ErrInvalidSessionID)
	})
}
