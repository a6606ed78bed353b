package redisclient

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// StringTable holds commands on string values.
type StringTable struct {
	x executor
}

// Nop validates db and sends nothing.
func (t *StringTable) Nop(_ context.Context, db int) error {
	return checkDB(db)
}

// Set stores value at key. A zero ttl keeps the key forever.
func (t *StringTable) Set(ctx context.Context, db int, key, value string, ttl time.Duration) error {
	if err := checkKey(db, key); err != nil {
		return err
	}
	return t.x.exec(ctx, db, "set", func(c redis.Cmdable) error {
		return c.Set(ctx, key, value, ttl).Err()
	})
}

// Get returns the value at key or ErrNotFound.
func (t *StringTable) Get(ctx context.Context, db int, key string) (string, error) {
	if err := checkKey(db, key); err != nil {
		return "", err
	}

	var v string
	err := t.x.query(ctx, db, "get", func(c redis.Cmdable) error {
		var err error
		v, err = c.Get(ctx, key).Result()
		return err
	})
	return v, notFound(err)
}

// IncrBy adds n to the integer at key and returns the new value. In a
// pipeline the command is queued and 0 is returned.
func (t *StringTable) IncrBy(ctx context.Context, db int, key string, n int64) (int64, error) {
	if err := checkKey(db, key); err != nil {
		return 0, err
	}

	var v int64
	err := t.x.exec(ctx, db, "incrby", func(c redis.Cmdable) error {
		var err error
		v, err = c.IncrBy(ctx, key, n).Result()
		return err
	})
	return v, err
}
