package session

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_Contract(t *testing.T) {
	runStoreContract(t, NewMemoryStore(0))
}

func TestMemoryStore_StoresCopies(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(0)

	sess := newStoredSession(t, "mem1")
	require.NoError(t, store.Save(ctx, sess))

	sess.Game.Player1.Left = 3
	loaded, err := store.Load(ctx, "mem1")
	require.NoError(t, err)
	assert.Equal(t, 1, loaded.Game.Player1.Left)
}

func TestMemoryStore_CustomLimit(t *testing.T) {
	store := NewMemoryStore(64)
	err := store.Save(context.Background(), newStoredSession(t, "mem2"))
	assert.ErrorIs(t, err, ErrRecordTooLarge)
}
