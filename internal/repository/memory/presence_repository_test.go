package memory

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOnlinePresenceLifecycle(t *testing.T) {
	store := NewPresenceRepository(time.Minute, time.Minute)
	ctx := context.Background()
	userID := uuid.New()

	online, err := store.IsOnline(ctx, userID)
	require.NoError(t, err)
	assert.False(t, online)

	require.NoError(t, store.SetOnline(ctx, userID, "conn-1"))

	online, err = store.IsOnline(ctx, userID)
	require.NoError(t, err)
	assert.True(t, online)

	users, err := store.ListOnline(ctx)
	require.NoError(t, err)
	assert.Contains(t, users, userID)

	require.NoError(t, store.SetOffline(ctx, userID))

	online, err = store.IsOnline(ctx, userID)
	require.NoError(t, err)
	assert.False(t, online)
}

func TestOnlinePresenceExpires(t *testing.T) {
	store := NewPresenceRepository(80*time.Millisecond, time.Minute)
	ctx := context.Background()
	userID := uuid.New()

	require.NoError(t, store.SetOnline(ctx, userID, "conn-1"))

	time.Sleep(150 * time.Millisecond)

	online, err := store.IsOnline(ctx, userID)
	require.NoError(t, err)
	assert.False(t, online, "record should expire without a refresh")

	users, err := store.ListOnline(ctx)
	require.NoError(t, err)
	assert.NotContains(t, users, userID)
}

func TestRefreshOnlineExtendsTTL(t *testing.T) {
	store := NewPresenceRepository(120*time.Millisecond, time.Minute)
	ctx := context.Background()
	userID := uuid.New()

	require.NoError(t, store.SetOnline(ctx, userID, "conn-1"))

	// Keep refreshing past the original TTL.
	for i := 0; i < 3; i++ {
		time.Sleep(60 * time.Millisecond)
		require.NoError(t, store.RefreshOnline(ctx, userID))
	}

	online, err := store.IsOnline(ctx, userID)
	require.NoError(t, err)
	assert.True(t, online)
}

func TestRefreshOnlineAfterExpiryIsNoOp(t *testing.T) {
	store := NewPresenceRepository(50*time.Millisecond, time.Minute)
	ctx := context.Background()
	userID := uuid.New()

	require.NoError(t, store.SetOnline(ctx, userID, "conn-1"))
	time.Sleep(120 * time.Millisecond)

	// The record is gone; refresh must not resurrect it.
	require.NoError(t, store.RefreshOnline(ctx, userID))

	online, err := store.IsOnline(ctx, userID)
	require.NoError(t, err)
	assert.False(t, online)
}

func TestTypingLifecycle(t *testing.T) {
	store := NewPresenceRepository(time.Minute, time.Minute)
	ctx := context.Background()
	conversationID := uuid.New()
	userID := uuid.New()

	require.NoError(t, store.SetTyping(ctx, conversationID, userID))

	users, err := store.ListTyping(ctx, conversationID)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{userID}, users)

	// Another conversation sees nothing.
	users, err = store.ListTyping(ctx, uuid.New())
	require.NoError(t, err)
	assert.Empty(t, users)

	require.NoError(t, store.ClearTyping(ctx, conversationID, userID))

	users, err = store.ListTyping(ctx, conversationID)
	require.NoError(t, err)
	assert.Empty(t, users)
}

func TestTypingExpires(t *testing.T) {
	store := NewPresenceRepository(time.Minute, 60*time.Millisecond)
	ctx := context.Background()
	conversationID := uuid.New()
	userID := uuid.New()

	require.NoError(t, store.SetTyping(ctx, conversationID, userID))

	time.Sleep(120 * time.Millisecond)

	// A stale typing flag clears itself even if typing:stop never arrived.
	users, err := store.ListTyping(ctx, conversationID)
	require.NoError(t, err)
	assert.Empty(t, users)
}
