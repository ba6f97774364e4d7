package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "moviebot:ratelimit:"

type RedisOptions struct {
	Addr        string
	Password    string
	DB          int
	PingTimeout time.Duration
}

// NewRedisClient opens a client and fails fast when the server does not answer a ping.
func NewRedisClient(ctx context.Context, opts RedisOptions) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	timeout := opts.PingTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis unavailable at %s: %w", opts.Addr, err)
	}
	return client, nil
}

// Redis is a fixed window counter shared by every bot replica.
type Redis struct {
	client *redis.Client
	limit  int64
	window time.Duration
	now    func() time.Time
}

func NewRedis(client *redis.Client, limit int, window time.Duration) *Redis {
	if limit < 1 {
		limit = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &Redis{client: client, limit: int64(limit), window: window, now: time.Now}
}

func (r *Redis) Allow(ctx context.Context, userID int64) (bool, error) {
	key := windowKey(userID, r.now(), r.window)

	pipe := r.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, r.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("rate limit %d: %w", userID, err)
	}
	return incr.Val() <= r.limit, nil
}

func windowKey(userID int64, now time.Time, window time.Duration) string {
	slot := now.UnixNano() / int64(window)
	return keyPrefix + strconv.FormatInt(userID, 10) + ":" + strconv.FormatInt(slot, 10)
}
