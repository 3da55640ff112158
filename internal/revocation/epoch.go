package revocation

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// EpochStore records, per identity, the moment from which earlier access
// tokens stop being honoured.
type EpochStore interface {
	Bump(ctx context.Context, userID uint) error
	Revoked(ctx context.Context, userID uint, issuedAt time.Time) (bool, error)
}

type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
	now    func() time.Time
}

// NewRedisStore keeps each epoch for ttl, which must cover the access token
// lifetime.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{
		client: client,
		ttl:    ttl,
		prefix: "session_epoch:",
		now:    time.Now,
	}
}

// NewRedisClient parses url and checks the connection.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis: parse url: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis: ping: %w", err)
	}
	return client, nil
}

func (s *RedisStore) key(userID uint) string {
	return s.prefix + strconv.FormatUint(uint64(userID), 10)
}

func (s *RedisStore) Bump(ctx context.Context, userID uint) error {
	epoch := s.now().Unix()
	if err := s.client.Set(ctx, s.key(userID), epoch, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis: bump epoch: %w", err)
	}
	return nil
}

// Revoked reports whether a token issued at issuedAt predates the identity's
// epoch. Tokens issued within the epoch second are also revoked.
func (s *RedisStore) Revoked(ctx context.Context, userID uint, issuedAt time.Time) (bool, error) {
	v, err := s.client.Get(ctx, s.key(userID)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("redis: read epoch: %w", err)
	}
	return issuedAt.Unix() <= v, nil
}

// Nop never revokes. Used when Redis is not configured.
type Nop struct{}

func (Nop) Bump(context.Context, uint) error { return nil }

func (Nop) Revoked(context.Context, uint, time.Time) (bool, error) { return false, nil }
