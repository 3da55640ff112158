package revocation

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewRedisStore(client, 16*time.Minute), mr
}

func TestRedisStore_BumpAndRevoked(t *testing.T) {
	t.Parallel()

	s, mr := newTestStore(t)
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	revoked, err := s.Revoked(ctx, 7, now.Add(-time.Minute))
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, s.Bump(ctx, 7))
	assert.Equal(t, 16*time.Minute, mr.TTL("session_epoch:7"))

	revoked, err = s.Revoked(ctx, 7, now.Add(-time.Minute))
	require.NoError(t, err)
	assert.True(t, revoked)

	revoked, err = s.Revoked(ctx, 7, now)
	require.NoError(t, err)
	assert.True(t, revoked)

	revoked, err = s.Revoked(ctx, 7, now.Add(time.Second))
	require.NoError(t, err)
	assert.False(t, revoked)

	revoked, err = s.Revoked(ctx, 8, now.Add(-time.Minute))
	require.NoError(t, err)
	assert.False(t, revoked)
}

// Epochs have one second resolution. A token minted later in the same second
// as a bump, such as a re-login right after a role change, is still revoked;
// the next second is not.
func TestRedisStore_SameSecondAsBumpIsRevoked(t *testing.T) {
	t.Parallel()

	s, _ := newTestStore(t)
	ctx := context.Background()
	bumpedAt := time.Date(2025, 3, 1, 12, 0, 0, 250*int(time.Millisecond), time.UTC)
	s.now = func() time.Time { return bumpedAt }
	require.NoError(t, s.Bump(ctx, 3))

	tests := []struct {
		name     string
		issuedAt time.Time
		revoked  bool
	}{
		{name: "before bump", issuedAt: bumpedAt.Add(-200 * time.Millisecond), revoked: true},
		{name: "at bump", issuedAt: bumpedAt, revoked: true},
		{name: "after bump same second", issuedAt: bumpedAt.Add(700 * time.Millisecond), revoked: true},
		{name: "next second", issuedAt: bumpedAt.Add(750 * time.Millisecond), revoked: false},
	}
	for _, tt := range tests {
		revoked, err := s.Revoked(ctx, 3, tt.issuedAt)
		require.NoError(t, err, tt.name)
		assert.Equal(t, tt.revoked, revoked, tt.name)
	}
}

func TestRedisStore_ErrorsSurface(t *testing.T) {
	t.Parallel()

	s, mr := newTestStore(t)
	mr.Close()

	_, err := s.Revoked(context.Background(), 1, time.Now())
	assert.Error(t, err)
	assert.Error(t, s.Bump(context.Background(), 1))
}

func TestNewRedisClient(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	client, err := NewRedisClient(context.Background(), "redis://"+mr.Addr()+"/0")
	require.NoError(t, err)
	require.NoError(t, client.Close())

	_, err = NewRedisClient(context.Background(), "::not a url")
	assert.Error(t, err)
}

func TestNop(t *testing.T) {
	t.Parallel()

	var s EpochStore = Nop{}
	require.NoError(t, s.Bump(context.Background(), 1))
	revoked, err := s.Revoked(context.Background(), 1, time.Time{})
	require.NoError(t, err)
	assert.False(t, revoked)
}
