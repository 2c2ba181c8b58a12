package lock

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/agentstation/harvester/pkg/constants"
	"github.com/agentstation/harvester/pkg/errors"
	"github.com/agentstation/harvester/pkg/records"
)

const keyPrefix = "harvester:lock:"

// releaseScript deletes the key only while it still carries our token, so an
// expired lock re-acquired by another run is left alone.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Redis is a Locker shared by every process talking to one Redis server.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
	token  func() string
}

// RedisOption configures a Redis locker.
type RedisOption func(*Redis)

// WithTTL sets how long a lock lives if its holder never releases it.
func WithTTL(ttl time.Duration) RedisOption {
	return func(r *Redis) {
		if ttl > 0 {
			r.ttl = ttl
		}
	}
}

// NewRedis wraps an existing client.
func NewRedis(client *redis.Client, opts ...RedisOption) *Redis {
	r := &Redis{
		client: client,
		ttl:    constants.LockTTL,
		token:  records.NewID,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// DialRedis connects to the server at url (redis://host:port/db) and checks
// it answers.
func DialRedis(ctx context.Context, url string, opts ...RedisOption) (*Redis, error) {
	options, err := redis.ParseURL(url)
	if err != nil {
		return nil, errors.NewConfigError("lock", "parse redis URL", err)
	}
	client := redis.NewClient(options)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.NewConfigError("lock", "redis ping failed", err)
	}
	return NewRedis(client, opts...), nil
}

// Acquire implements Locker with SET NX PX.
func (r *Redis) Acquire(ctx context.Context, key string) (Release, error) {
	token := r.token()
	ok, err := r.client.SetNX(ctx, keyPrefix+key, token, r.ttl).Result()
	if err != nil {
		return nil, errors.NewLockError(key, err)
	}
	if !ok {
		return nil, errors.NewLockError(key, nil)
	}
	return func(ctx context.Context) error {
		if err := releaseScript.Run(ctx, r.client, []string{keyPrefix + key}, token).Err(); err != nil && !errors.Is(err, redis.Nil) {
			return errors.NewLockError(key, err)
		}
		return nil
	}, nil
}

// Close closes the underlying client.
func (r *Redis) Close() error {
	return r.client.Close()
}
