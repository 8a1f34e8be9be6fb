package storage

import (
	"context"
	"time"

	redis2 "github.com/Kesh3805/job-portal/service/storage/redis"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// presence key: jb:presence:<user>
// Value is the gateway id; the TTL bounds how long a crashed gateway can
// leave a user looking online.
func presenceKey(user string) string { return "jb:presence:" + user }

// PresenceOnline marks the user online and renews the TTL. Best-effort
// mirror of the in-process registry; callers swallow the error.
func PresenceOnline(ctx context.Context, user, gatewayID string, ttl time.Duration) error {
	rdb, ok := redis2.TryGetRedis()
	if !ok {
		return errors.New("redis not initialized")
	}
	return rdb.Set(ctx, presenceKey(user), gatewayID, ttl).Err()
}

// PresenceOffline removes the presence key.
func PresenceOffline(ctx context.Context, user string) error {
	rdb, ok := redis2.TryGetRedis()
	if !ok {
		return errors.New("redis not initialized")
	}
	return rdb.Del(ctx, presenceKey(user)).Err()
}

// PresenceLookup reports whether the mirror considers the user online.
func PresenceLookup(ctx context.Context, user string) (gatewayID string, online bool, err error) {
	rdb, ok := redis2.TryGetRedis()
	if !ok {
		return "", false, errors.New("redis not initialized")
	}
	val, err := rdb.Get(ctx, presenceKey(user)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}
