package lock

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Locker provides coarse single-flight locks over Redis, used to keep
// periodic jobs from running concurrently across worker replicas. The TTL
// bounds how long a crashed holder can block the next run.
type Locker struct {
	Client *redis.Client
	Prefix string
}

// releaseScript deletes the key only when it still holds the caller's token,
// so a holder whose lock expired cannot release a successor's lock.
var releaseScript = redis.NewScript(
	`if redis.call('get', KEYS[1]) == ARGV[1] then return redis.call('del', KEYS[1]) else return 0 end`,
)

// Acquire takes the named lock for at most ttl. When ok is true the caller
// must invoke release when done.
func (l *Locker) Acquire(ctx context.Context, name string, ttl time.Duration) (release func(), ok bool, err error) {
	key := l.key(name)
	token := uuid.NewString()
	ok, err = l.Client.SetNX(ctx, key, token, ttl).Result()
	if err != nil || !ok {
		return nil, false, err
	}
	release = func() {
		_ = releaseScript.Run(context.WithoutCancel(ctx), l.Client, []string{key}, token).Err()
	}
	return release, true, nil
}

func (l *Locker) key(name string) string {
	prefix := l.Prefix
	if prefix == "" {
		prefix = "lock"
	}
	return prefix + ":" + name
}
