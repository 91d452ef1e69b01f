// Package cache хранит в Redis счётчики неудачных попыток входа.
package cache

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// LoginAttempts — контракт учёта неудачных попыток входа по email.
type LoginAttempts interface {
	// Locked сообщает, заблокирован ли вход, и сколько осталось до разблокировки.
	Locked(ctx context.Context, email string) (bool, time.Duration, error)
	// Fail учитывает неудачную попытку и возвращает текущее их число в окне.
	Fail(ctx context.Context, email string) (int64, error)
	// Reset сбрасывает счётчик после успешного входа или смены пароля.
	Reset(ctx context.Context, email string) error
	// Ping проверяет доступность Redis.
	Ping(ctx context.Context) error
	// Close закрывает клиент Redis.
	Close() error
}

type redisAttempts struct {
	rdb    *redis.Client
	prefix string
	limit  int64
	window time.Duration
}

// NewRedisAttempts создаёт счётчик из URL (например, redis://:pass@host:6379/0).
// После limit неудачных попыток вход блокируется до истечения окна window,
// отсчитываемого от первой неудачи.
func NewRedisAttempts(ctx context.Context, redisURL string, limit int64, window time.Duration) (LoginAttempts, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	rdb := redis.NewClient(opt)

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, err
	}

	return &redisAttempts{rdb: rdb, prefix: "portal:login:", limit: limit, window: window}, nil
}

func (c *redisAttempts) key(email string) string {
	return c.prefix + strings.ToLower(strings.TrimSpace(email))
}

func (c *redisAttempts) Locked(ctx context.Context, email string) (bool, time.Duration, error) {
	n, err := c.rdb.Get(ctx, c.key(email)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, 0, nil
		}
		return false, 0, err
	}

	if n < c.limit {
		return false, 0, nil
	}

	ttl, err := c.rdb.TTL(ctx, c.key(email)).Result()
	if err != nil {
		return false, 0, err
	}
	if ttl < 0 {
		// Счётчик без срока жизни заблокировал бы вход навсегда.
		if err := c.rdb.Expire(ctx, c.key(email), c.window).Err(); err != nil {
			return false, 0, err
		}
		ttl = c.window
	}

	return true, ttl, nil
}

// Fail создаёт счётчик вместе со сроком жизни (SET NX EX) и увеличивает его
// в одной транзакции MULTI/EXEC, так что окно стартует с первой неудачи.
func (c *redisAttempts) Fail(ctx context.Context, email string) (int64, error) {
	key := c.key(email)

	var incr *redis.IntCmd
	_, err := c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SetNX(ctx, key, 0, c.window)
		incr = pipe.Incr(ctx, key)
		return nil
	})
	if err != nil {
		return 0, err
	}

	return incr.Val(), nil
}

func (c *redisAttempts) Reset(ctx context.Context, email string) error {
	return c.rdb.Del(ctx, c.key(email)).Err()
}

func (c *redisAttempts) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

func (c *redisAttempts) Close() error {
	return c.rdb.Close()
}
