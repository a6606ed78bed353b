package redisclient

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ListTable holds list commands.
type ListTable struct {
	x executor
}

// LPush prepends values to the list at key.
func (t *ListTable) LPush(ctx context.Context, db int, key string, values ...string) error {
	if err := checkMembers(db, key, values); err != nil {
		return err
	}
	return t.x.exec(ctx, db, "lpush", func(c redis.Cmdable) error {
		return c.LPush(ctx, key, toArgs(values)...).Err()
	})
}

// RPush appends values to the list at key.
func (t *ListTable) RPush(ctx context.Context, db int, key string, values ...string) error {
	if err := checkMembers(db, key, values); err != nil {
		return err
	}
	return t.x.exec(ctx, db, "rpush", func(c redis.Cmdable) error {
		return c.RPush(ctx, key, toArgs(values)...).Err()
	})
}

// LPop removes and returns the first element, or ErrNotFound when the list
// is empty.
func (t *ListTable) LPop(ctx context.Context, db int, key string) (string, error) {
	return t.pop(ctx, db, key, "lpop", func(c redis.Cmdable) *redis.StringCmd {
		return c.LPop(ctx, key)
	})
}

// RPop removes and returns the last element, or ErrNotFound when the list
// is empty.
func (t *ListTable) RPop(ctx context.Context, db int, key string) (string, error) {
	return t.pop(ctx, db, key, "rpop", func(c redis.Cmdable) *redis.StringCmd {
		return c.RPop(ctx, key)
	})
}

func (t *ListTable) pop(ctx context.Context, db int, key, name string, cmd func(redis.Cmdable) *redis.StringCmd) (string, error) {
	if err := checkKey(db, key); err != nil {
		return "", err
	}

	var v string
	err := t.x.query(ctx, db, name, func(c redis.Cmdable) error {
		var err error
		v, err = cmd(c).Result()
		return err
	})
	return v, notFound(err)
}

// BLPop is LPop that waits up to timeout for an element. A zero timeout
// blocks indefinitely. ErrNotFound is returned on timeout.
func (t *ListTable) BLPop(ctx context.Context, db int, key string, timeout time.Duration) (string, error) {
	return t.bpop(ctx, db, key, timeout, "blpop", func(c redis.Cmdable) *redis.StringSliceCmd {
		return c.BLPop(ctx, timeout, key)
	})
}

// BRPop is RPop that waits up to timeout for an element. A zero timeout
// blocks indefinitely. ErrNotFound is returned on timeout.
func (t *ListTable) BRPop(ctx context.Context, db int, key string, timeout time.Duration) (string, error) {
	return t.bpop(ctx, db, key, timeout, "brpop", func(c redis.Cmdable) *redis.StringSliceCmd {
		return c.BRPop(ctx, timeout, key)
	})
}

func (t *ListTable) bpop(ctx context.Context, db int, key string, timeout time.Duration, name string, cmd func(redis.Cmdable) *redis.StringSliceCmd) (string, error) {
	if err := checkKey(db, key); err != nil {
		return "", err
	}
	if timeout < 0 {
		return "", fmt.Errorf("%w: negative timeout %s", ErrInvalidArgument, timeout)
	}

	var reply []string
	err := t.x.query(ctx, db, name, func(c redis.Cmdable) error {
		var err error
		reply, err = cmd(c).Result()
		return err
	})
	if err != nil {
		return "", notFound(err)
	}
	// The reply is [key, element].
	if len(reply) != 2 {
		return "", fmt.Errorf("%w: %s returned %d values", ErrUnexpectedReply, name, len(reply))
	}
	return reply[1], nil
}

// LLen returns the length of the list at key.
func (t *ListTable) LLen(ctx context.Context, db int, key string) (int64, error) {
	if err := checkKey(db, key); err != nil {
		return 0, err
	}

	var n int64
	err := t.x.query(ctx, db, "llen", func(c redis.Cmdable) error {
		var err error
		n, err = c.LLen(ctx, key).Result()
		return err
	})
	return n, err
}

// LRange returns the elements between start and stop inclusive. Negative
// indexes count from the tail.
func (t *ListTable) LRange(ctx context.Context, db int, key string, start, stop int64) ([]string, error) {
	if err := checkKey(db, key); err != nil {
		return nil, err
	}

	var out []string
	err := t.x.query(ctx, db, "lrange", func(c redis.Cmdable) error {
		var err error
		out, err = c.LRange(ctx, key, start, stop).Result()
		return err
	})
	return out, err
}

// LRem removes up to count occurrences of value (all when count is 0,
// from the tail when negative) and returns how many were removed. In a
// pipeline the command is queued and 0 is returned.
func (t *ListTable) LRem(ctx context.Context, db int, key string, count int64, value string) (int64, error) {
	if err := checkKey(db, key); err != nil {
		return 0, err
	}
	if err := checkNotEmpty("value", value); err != nil {
		return 0, err
	}

	var n int64
	err := t.x.exec(ctx, db, "lrem", func(c redis.Cmdable) error {
		var err error
		n, err = c.LRem(ctx, key, count, value).Result()
		return err
	})
	return n, err
}

// LTrim keeps only the elements between start and stop inclusive.
func (t *ListTable) LTrim(ctx context.Context, db int, key string, start, stop int64) error {
	if err := checkKey(db, key); err != nil {
		return err
	}
	return t.x.exec(ctx, db, "ltrim", func(c redis.Cmdable) error {
		return c.LTrim(ctx, key, start, stop).Err()
	})
}
