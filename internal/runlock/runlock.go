package runlock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrNotAcquired 表示锁已被其他进程持有。
var ErrNotAcquired = errors.New("run lock held by another process")

const keyPrefix = "crew-radar:run:"

// Locker 抽象跨进程的运行锁。
type Locker interface {
	// Acquire 获取名为 name 的锁，返回释放函数。
	Acquire(ctx context.Context, name string) (release func(context.Context) error, err error)
}

// release 只删除自己持有的锁，避免误删过期后被他人重新获取的锁。
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker 基于 SET NX PX 实现的 Redis 锁。
type RedisLocker struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewRedisLocker 使用已有客户端创建锁，ttl<=0 时默认 30 分钟。
func NewRedisLocker(client redis.UniversalClient, ttl time.Duration) *RedisLocker {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &RedisLocker{client: client, ttl: ttl}
}

// Dial 解析 redisURL 并验证连通性。
func Dial(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("redis parse url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}

// Acquire 实现 Locker。
func (l *RedisLocker) Acquire(ctx context.Context, name string) (func(context.Context) error, error) {
	key := keyPrefix + name
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire %s: %w", key, err)
	}
	if !ok {
		return nil, ErrNotAcquired
	}
	release := func(ctx context.Context) error {
		if err := releaseScript.Run(ctx, l.client, []string{key}, token).Err(); err != nil {
			return fmt.Errorf("release %s: %w", key, err)
		}
		return nil
	}
	return release, nil
}

// Noop 总是成功获取锁，单进程部署时使用。
type Noop struct{}

// Acquire 实现 Locker。
func (Noop) Acquire(context.Context, string) (func(context.Context) error, error) {
	return func(context.Context) error { return nil }, nil
}
