package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ErrLockHeld is returned by TryAcquire when another holder owns the lock.
var ErrLockHeld = errors.New("lock held by another process")

// releaseScript deletes the key only when the caller still owns it.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// Lock is a single-holder lease stored as SET key token NX PX ttl.
type Lock struct {
	client redis.Cmdable
	key    string
	logger *zap.Logger
}

// NewLock creates a lock on key.
func NewLock(client redis.Cmdable, key string, logger *zap.Logger) *Lock {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Lock{client: client, key: key, logger: logger}
}

// TryAcquire takes the lease for ttl. It returns a release func on success and
// ErrLockHeld when someone else holds it.
func (l *Lock) TryAcquire(ctx context.Context, ttl time.Duration) (release func(), err error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, l.key, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire %s: %w", l.key, err)
	}
	if !ok {
		return nil, ErrLockHeld
	}
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := releaseScript.Run(ctx, l.client, []string{l.key}, token).Err(); err != nil {
			l.logger.Warn("lock release failed", zap.String("key", l.key), zap.Error(err))
		}
	}, nil
}
