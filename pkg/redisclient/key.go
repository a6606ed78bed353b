package redisclient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// NoExpiry is returned by TTL for keys without a timeout.
const NoExpiry time.Duration = -1

// KeyTable holds commands that apply to keys of any type.
type KeyTable struct {
	x executor
}

// Del removes key. Removing a missing key is not an error.
func (t *KeyTable) Del(ctx context.Context, db int, key string) error {
	if err := checkKey(db, key); err != nil {
		return err
	}
	return t.x.exec(ctx, db, "del", func(c redis.Cmdable) error {
		return c.Del(ctx, key).Err()
	})
}

// Exists reports whether key is present.
func (t *KeyTable) Exists(ctx context.Context, db int, key string) (bool, error) {
	if err := checkKey(db, key); err != nil {
		return false, err
	}

	var n int64
	err := t.x.query(ctx, db, "exists", func(c redis.Cmdable) error {
		var err error
		n, err = c.Exists(ctx, key).Result()
		return err
	})
	return n > 0, err
}

// Expire sets a timeout on key. Redis keeps second precision; shorter
// durations are rounded up to one second.
func (t *KeyTable) Expire(ctx context.Context, db int, key string, ttl time.Duration) error {
	if err := checkKey(db, key); err != nil {
		return err
	}
	if ttl <= 0 {
		return fmt.Errorf("%w: non-positive ttl %s", ErrInvalidArgument, ttl)
	}
	return t.x.exec(ctx, db, "expire", func(c redis.Cmdable) error {
		return c.Expire(ctx, key, ttl).Err()
	})
}

// Persist removes the timeout from key.
func (t *KeyTable) Persist(ctx context.Context, db int, key string) error {
	if err := checkKey(db, key); err != nil {
		return err
	}
	return t.x.exec(ctx, db, "persist", func(c redis.Cmdable) error {
		return c.Persist(ctx, key).Err()
	})
}

// TTL returns the remaining time to live of key, NoExpiry when it has no
// timeout, or ErrNotFound when the key does not exist.
func (t *KeyTable) TTL(ctx context.Context, db int, key string) (time.Duration, error) {
	if err := checkKey(db, key); err != nil {
		return 0, err
	}

	var ttl time.Duration
	err := t.x.query(ctx, db, "ttl", func(c redis.Cmdable) error {
		var err error
		ttl, err = c.TTL(ctx, key).Result()
		return err
	})
	switch {
	case err != nil:
		return 0, err
	case ttl == -2:
		return 0, ErrNotFound
	case ttl == -1:
		return NoExpiry, nil
	}
	return ttl, nil
}

func notFound(err error) error {
	if errors.Is(err, redis.Nil) {
		return ErrNotFound
	}
	return err
}
