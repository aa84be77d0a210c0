package aggregator

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
)

// Lease is the per-partition mutual exclusion primitive. TryAcquire never
// blocks: a held lease means another worker owns the partition and the
// caller should skip it until the next cycle.
type Lease interface {
	TryAcquire(ctx context.Context, key string, ttl time.Duration) (token string, ok bool, err error)
	Release(ctx context.Context, key, token string) error
}

// localLease is the in-process default, sufficient for a single aggregator
// instance. TTL expiry guards against a worker abandoned mid-partition.
type localLease struct {
	mu   sync.Mutex
	held map[string]localGrant
}

type localGrant struct {
	token     string
	expiresAt time.Time
}

func NewLocalLease() Lease {
	return &localLease{held: make(map[string]localGrant)}
}

func (l *localLease) TryAcquire(_ context.Context, key string, ttl time.Duration) (string, bool, error) {
	if key == "" {
		return "", false, errors.New("lease key is empty")
	}
	if ttl <= 0 {
		return "", false, errors.New("lease ttl must be positive")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	now := time.Now()
	if grant, ok := l.held[key]; ok && now.Before(grant.expiresAt) {
		return "", false, nil
	}
	token := uuid.NewString()
	l.held[key] = localGrant{token: token, expiresAt: now.Add(ttl)}
	return token, true, nil
}

func (l *localLease) Release(_ context.Context, key, token string) error {
	if key == "" || token == "" {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if grant, ok := l.held[key]; ok && grant.token == token {
		delete(l.held, key)
	}
	return nil
}

const leaseReleaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`

// redisLease backs the lease with Redis SETNX so multiple aggregator
// instances can share the partition space.
type redisLease struct {
	client *redis.Client
	script *redis.Script
}

func NewRedisLease(client *redis.Client) Lease {
	if client == nil {
		return nil
	}
	return &redisLease{
		client: client,
		script: redis.NewScript(leaseReleaseScript),
	}
}

func (l *redisLease) TryAcquire(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	if key == "" {
		return "", false, errors.New("lease key is empty")
	}
	if ttl <= 0 {
		return "", false, errors.New("lease ttl must be positive")
	}
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, "aggregator:lease:"+key, token, ttl).Result()
	if err != nil {
		return "", false, err
	}
	return token, ok, nil
}

func (l *redisLease) Release(ctx context.Context, key, token string) error {
	if key == "" || token == "" {
		return nil
	}
	return l.script.Run(ctx, l.client, []string{"aggregator:lease:" + key}, token).Err()
}
