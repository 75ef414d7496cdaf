package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupStore(t *testing.T, ttl time.Duration) (*Store, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return NewStore(client, ttl), mr
}

func TestCreateAndGet(t *testing.T) {
	store, _ := setupStore(t, time.Hour)
	ctx := context.Background()

	sess, err := store.Create(ctx, "user-1", "student")
	require.NoError(t, err)
	require.NotEmpty(t, sess.ID)

	got, err := store.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, "user-1", got.UserID)
	assert.Equal(t, "student", got.Role)
}

func TestGetMissing(t *testing.T) {
	store, _ := setupStore(t, time.Hour)

	_, err := store.Get(context.Background(), "no-such-session")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDelete(t *testing.T) {
	store, _ := setupStore(t, time.Hour)
	ctx := context.Background()

	sess, err := store.Create(ctx, "user-1", "student")
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, sess.ID))

	_, err = store.Get(ctx, sess.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	// deleting an already-gone session is a no-op
	assert.NoError(t, store.Delete(ctx, sess.ID))
}

func TestDeleteAllForUser(t *testing.T) {
	store, _ := setupStore(t, time.Hour)
	ctx := context.Background()

	first, err := store.Create(ctx, "user-1", "student")
	require.NoError(t, err)
	second, err := store.Create(ctx, "user-1", "student")
	require.NoError(t, err)
	other, err := store.Create(ctx, "user-2", "admin")
	require.NoError(t, err)

	require.NoError(t, store.DeleteAllForUser(ctx, "user-1"))

	_, err = store.Get(ctx, first.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = store.Get(ctx, second.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	// other users are untouched
	_, err = store.Get(ctx, other.ID)
	assert.NoError(t, err)
}

func TestSessionExpiry(t *testing.T) {
	store, mr := setupStore(t, time.Minute)
	ctx := context.Background()

	sess, err := store.Create(ctx, "user-1", "student")
	require.NoError(t, err)

	mr.FastForward(2 * time.Minute)

	_, err = store.Get(ctx, sess.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}
