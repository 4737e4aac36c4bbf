package lock

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const defaultRetryInterval = 25 * time.Millisecond

// releaseScript deletes the key only while it still carries our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
    return redis.call("DEL", KEYS[1])
end
return 0
`)

var _ MintLocker = (*RedisMintLocker)(nil)

// RedisMintLocker holds per-mint locks in Redis with SET NX PX so that
// several API instances serialise on the same mint. Locks expire after ttl.
type RedisMintLocker struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	retry  time.Duration
}

// NewRedisMintLocker returns a locker writing keys under prefix.
func NewRedisMintLocker(client *redis.Client, prefix string, ttl time.Duration) *RedisMintLocker {
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &RedisMintLocker{client: client, prefix: prefix, ttl: ttl, retry: defaultRetryInterval}
}

func (l *RedisMintLocker) Acquire(ctx context.Context, mint string) (Handle, error) {
	mint = strings.TrimSpace(mint)
	if mint == "" {
		return nil, ErrEmptyKey
	}
	if l.client == nil {
		return nil, errors.New("lock: redis client not configured")
	}

	key := l.key(mint)
	token := uuid.NewString()
	ticker := time.NewTicker(l.retry)
	defer ticker.Stop()

	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, err
		}
		if ok {
			return &redisHandle{client: l.client, key: key, token: token}, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (l *RedisMintLocker) key(mint string) string {
	if l.prefix == "" {
		return "lock:" + mint
	}
	return l.prefix + ":lock:" + mint
}

type redisHandle struct {
	client *redis.Client
	key    string
	token  string
	once   sync.Once
	err    error
}

func (h *redisHandle) Unlock(ctx context.Context) error {
	h.once.Do(func() {
		h.err = releaseScript.Run(ctx, h.client, []string{h.key}, h.token).Err()
	})
	return h.err
}
