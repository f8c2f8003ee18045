package lock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"zone-coverage-backend/internal/domain"
	"zone-coverage-backend/pkg/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the key only while it still holds our token, so a
// writer whose lock expired cannot release a lock taken over by someone else.
var releaseScript = redis.NewScript(`
	if redis.call('GET', KEYS[1]) == ARGV[1] then
		return redis.call('DEL', KEYS[1])
	end
	return 0
`)

// extendScript pushes the expiry out only while the key still holds our token.
var extendScript = redis.NewScript(`
	if redis.call('GET', KEYS[1]) == ARGV[1] then
		return redis.call('PEXPIRE', KEYS[1], ARGV[2])
	end
	return 0
`)

const retryInterval = 25 * time.Millisecond

// RedisLocker serializes writers of a zone across processes with SET NX PX.
// While a lock is held it is renewed every ttl/3, so a write that outlives
// the ttl keeps its lock; the ttl only bounds how long a crashed holder
// blocks the zone.
type RedisLocker struct {
	client *redis.Client
	ttl    time.Duration
	wait   time.Duration
	prefix string
}

func NewRedisLocker(client *redis.Client, ttl, wait time.Duration) *RedisLocker {
	return &RedisLocker{client: client, ttl: ttl, wait: wait, prefix: "zone-lock:"}
}

func (l *RedisLocker) key(zoneID int32) string {
	return fmt.Sprintf("%s%d", l.prefix, zoneID)
}

func (l *RedisLocker) Lock(ctx context.Context, zoneID int32) (func(), error) {
	key := l.key(zoneID)
	token := uuid.NewString()
	deadline := time.Now().Add(l.wait)

	for {
		acquired, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire %s: %w", key, err)
		}
		if acquired {
			break
		}
		if !time.Now().Before(deadline) {
			return nil, fmt.Errorf("zone %d: %w", zoneID, domain.ErrZoneLocked)
		}

		t := time.NewTimer(retryInterval)
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
			return nil, ctx.Err()
		}
	}

	stop := make(chan struct{})
	renewed := make(chan struct{})
	go l.renew(context.WithoutCancel(ctx), zoneID, key, token, stop, renewed)

	var once sync.Once
	return func() {
		once.Do(func() {
			close(stop)
			<-renewed
			// The request context may already be cancelled; release anyway.
			rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
			defer cancel()
			if err := releaseScript.Run(rctx, l.client, []string{key}, token).Err(); err != nil {
				logger.WithZone(ctx, zoneID).Warn().Err(err).Str("key", key).Msg("Failed to release zone lock")
			}
		})
	}, nil
}

// renew extends the lock until stop is closed or the lock is found taken over.
func (l *RedisLocker) renew(ctx context.Context, zoneID int32, key, token string, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(max(l.ttl/3, time.Millisecond))
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}

		rctx, cancel := context.WithTimeout(ctx, l.ttl/3+time.Second)
		n, err := extendScript.Run(rctx, l.client, []string{key}, token, l.ttl.Milliseconds()).Int64()
		cancel()
		switch {
		case err != nil:
			logger.WithZone(ctx, zoneID).Warn().Err(err).Str("key", key).Msg("Failed to renew zone lock")
		case n == 0:
			logger.WithZone(ctx, zoneID).Error().Str("key", key).Msg("Zone lock lost before release")
			return
		}
	}
}

var _ domain.ZoneLocker = (*RedisLocker)(nil)

// NewRedisClient builds a client from config values and checks the connection.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	pctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("unable to ping redis at %s: %w", addr, err)
	}
	return client, nil
}
