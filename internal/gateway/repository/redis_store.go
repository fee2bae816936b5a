package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/Falconext/pos-web-sub003/internal/common/clock"
	"github.com/Falconext/pos-web-sub003/internal/common/constants"
	"github.com/Falconext/pos-web-sub003/internal/gateway/domain"
)

const (
	redisFieldAccess    = "access_token"
	redisFieldRefresh   = "refresh_token"
	redisFieldUpdatedAt = "updated_at"
)

// compareAndSwapScript replaces the hash only while its refresh_token equals
// ARGV[1]. An empty ARGV[2] leaves the key deleted.
var compareAndSwapScript = redis.NewScript(`
local cur = redis.call('HGET', KEYS[1], 'refresh_token') or ''
if cur ~= ARGV[1] then
	return 0
end
redis.call('DEL', KEYS[1])
if ARGV[2] ~= '' then
	redis.call('HSET', KEYS[1], 'access_token', ARGV[2], 'refresh_token', ARGV[3], 'updated_at', ARGV[4])
	if tonumber(ARGV[5]) > 0 then
		redis.call('PEXPIRE', KEYS[1], ARGV[5])
	end
end
return 1
`)

// RedisStore keeps the pair in a hash keyed by terminal id. A ttl of zero
// keeps the key until it is cleared.
type RedisStore struct {
	client redis.Cmdable
	key    string
	ttl    time.Duration
	clock  clock.Clock
}

func NewRedisStore(client redis.Cmdable, terminalID string, ttl time.Duration, clock clock.Clock) *RedisStore {
	return &RedisStore{
		client: client,
		key:    constants.RedisCredentialsPrefix + terminalID,
		ttl:    ttl,
		clock:  clock,
	}
}

func (s *RedisStore) Get(ctx context.Context) (domain.CredentialPair, error) {
	fields, err := s.client.HGetAll(ctx, s.key).Result()
	if err != nil {
		return domain.CredentialPair{}, fmt.Errorf("failed to read credentials from redis: %w", err)
	}
	return domain.CredentialPair{
		AccessToken:  fields[redisFieldAccess],
		RefreshToken: fields[redisFieldRefresh],
	}, nil
}

func (s *RedisStore) Set(ctx context.Context, pair domain.CredentialPair) error {
	if err := pair.Validate(); err != nil {
		return err
	}

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.key)
		pipe.HSet(ctx, s.key,
			redisFieldAccess, pair.AccessToken,
			redisFieldRefresh, pair.RefreshToken,
			redisFieldUpdatedAt, s.clock.Now().UTC().Format(time.RFC3339),
		)
		if s.ttl > 0 {
			pipe.Expire(ctx, s.key, s.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to write credentials to redis: %w", err)
	}
	return nil
}

func (s *RedisStore) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("failed to clear credentials in redis: %w", err)
	}
	return nil
}

func (s *RedisStore) CompareAndSwap(ctx context.Context, refreshToken string, next domain.CredentialPair) (bool, error) {
	if !next.IsEmpty() {
		if err := next.Validate(); err != nil {
			return false, err
		}
	}

	swapped, err := compareAndSwapScript.Run(ctx, s.client, []string{s.key},
		refreshToken,
		next.AccessToken,
		next.RefreshToken,
		s.clock.Now().UTC().Format(time.RFC3339),
		s.ttl.Milliseconds(),
	).Int()
	if err != nil {
		return false, fmt.Errorf("failed to swap credentials in redis: %w", err)
	}
	return swapped == 1, nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
