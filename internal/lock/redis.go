package lock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// releaseScript deletes the key only while it still carries our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`)

// Redis is a lease based Locker shared by every API instance. A lease expires after TTL
// even when its holder dies.
type Redis struct {
	rdb    *redis.Client
	log    logrus.FieldLogger
	prefix string
	ttl    time.Duration
	retry  time.Duration
}

type RedisOption func(*Redis)

func WithTTL(d time.Duration) RedisOption         { return func(r *Redis) { r.ttl = d } }
func WithRetry(d time.Duration) RedisOption       { return func(r *Redis) { r.retry = d } }
func WithPrefix(p string) RedisOption             { return func(r *Redis) { r.prefix = p } }
func WithLogger(l logrus.FieldLogger) RedisOption { return func(r *Redis) { r.log = l } }

func NewRedis(rdb *redis.Client, opts ...RedisOption) *Redis {
	r := &Redis{
		rdb:    rdb,
		log:    logrus.StandardLogger(),
		prefix: "tapbook:lock:",
		ttl:    10 * time.Second,
		retry:  25 * time.Millisecond,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

func (r *Redis) Acquire(ctx context.Context, keys ...string) (func(), error) {
	keys = normalize(keys)
	token := uuid.NewString()
	held := make([]string, 0, len(keys))

	unlock := func() {
		// release must run even when the request context is already cancelled
		rctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		for i := len(held) - 1; i >= 0; i-- {
			if err := releaseScript.Run(rctx, r.rdb, []string{held[i]}, token).Err(); err != nil {
				r.log.WithError(err).WithField("key", held[i]).Warn("lock release failed")
			}
		}
	}

	for _, k := range keys {
		key := r.prefix + k
		if err := r.acquireOne(ctx, key, token); err != nil {
			unlock()
			return nil, err
		}
		held = append(held, key)
	}

	var once sync.Once
	return func() { once.Do(unlock) }, nil
}

func (r *Redis) acquireOne(ctx context.Context, key, token string) error {
	ticker := time.NewTicker(r.retry)
	defer ticker.Stop()
	for {
		ok, err := r.rdb.SetNX(ctx, key, token, r.ttl).Result()
		if err != nil {
			if ctx.Err() != nil {
				return fmt.Errorf("%w: %s: %v", ErrNotAcquired, key, ctx.Err())
			}
			return fmt.Errorf("acquire %s: %w", key, err)
		}
		if ok {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %s: %v", ErrNotAcquired, key, ctx.Err())
		case <-ticker.C:
		}
	}
}
