package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisClient is the subset of Redis commands the store uses.
type RedisClient interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

// RedisConn is a live go-redis connection satisfying RedisClient. Callers
// own it and must Close it on shutdown.
type RedisConn struct {
	cli *redis.Client
}

// NewRedisClient connects to Redis and pings it. rawURL is either a
// redis:// URL or a host:port address.
func NewRedisClient(ctx context.Context, rawURL, password string, db int) (*RedisConn, error) {
	opts := &redis.Options{Addr: rawURL, Password: password, DB: db}
	if strings.HasPrefix(rawURL, "redis://") || strings.HasPrefix(rawURL, "rediss://") {
		parsed, err := redis.ParseURL(rawURL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		if password != "" {
			parsed.Password = password
		}
		if db != 0 {
			parsed.DB = db
		}
		opts = parsed
	}

	c := redis.NewClient(opts)
	if err := c.Ping(ctx).Err(); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &RedisConn{cli: c}, nil
}

func (c *RedisConn) Get(ctx context.Context, key string) (string, error) {
	return c.cli.Get(ctx, key).Result()
}

func (c *RedisConn) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	return c.cli.Set(ctx, key, value, expiration).Err()
}

func (c *RedisConn) Del(ctx context.Context, keys ...string) error {
	return c.cli.Del(ctx, keys...).Err()
}

// Close releases the underlying connection pool.
func (c *RedisConn) Close() error { return c.cli.Close() }

// Redis stores sessions as JSON under donate_session:<user_id>.
type Redis struct {
	client RedisClient
	ttl    time.Duration
	now    func() time.Time
}

// NewRedis constructs a Redis store. A zero ttl stores keys without expiry.
func NewRedis(client RedisClient, ttl time.Duration) *Redis {
	return &Redis{client: client, ttl: ttl, now: time.Now}
}

// State implements Store.
func (r *Redis) State(ctx context.Context, userID int64) (Session, bool, error) {
	if r == nil || r.client == nil {
		return Session{}, false, errors.New("redis session store is not initialized")
	}
	if err := validate(ctx, userID); err != nil {
		return Session{}, false, err
	}

	raw, err := r.client.Get(ctx, Key(userID))
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Session{}, false, nil
		}
		return Session{}, false, fmt.Errorf("get session: %w", err)
	}

	var s Session
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return Session{}, false, fmt.Errorf("decode session: %w", err)
	}

	return s, true, nil
}

// Next implements Store.
func (r *Redis) Next(ctx context.Context, userID int64, s Session) error {
	if r == nil || r.client == nil {
		return errors.New("redis session store is not initialized")
	}
	if err := validate(ctx, userID); err != nil {
		return err
	}

	if s.UpdatedAt.IsZero() {
		s.UpdatedAt = r.now().UTC()
	}

	payload, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	if err := r.client.Set(ctx, Key(userID), payload, r.ttl); err != nil {
		return fmt.Errorf("set session: %w", err)
	}
	return nil
}

// End implements Store.
func (r *Redis) End(ctx context.Context, userID int64) error {
	if r == nil || r.client == nil {
		return errors.New("redis session store is not initialized")
	}
	if err := validate(ctx, userID); err != nil {
		return err
	}

	if err := r.client.Del(ctx, Key(userID)); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}
