package redisclient

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// SetTable holds set commands.
type SetTable struct {
	x executor
}

// SAdd adds members to the set at key.
func (t *SetTable) SAdd(ctx context.Context, db int, key string, members ...string) error {
	if err := checkMembers(db, key, members); err != nil {
		return err
	}
	return t.x.exec(ctx, db, "sadd", func(c redis.Cmdable) error {
		return c.SAdd(ctx, key, toArgs(members)...).Err()
	})
}

// SRem removes members from the set at key.
func (t *SetTable) SRem(ctx context.Context, db int, key string, members ...string) error {
	if err := checkMembers(db, key, members); err != nil {
		return err
	}
	return t.x.exec(ctx, db, "srem", func(c redis.Cmdable) error {
		return c.SRem(ctx, key, toArgs(members)...).Err()
	})
}

// SIsMember reports whether member is in the set at key.
func (t *SetTable) SIsMember(ctx context.Context, db int, key, member string) (bool, error) {
	if err := checkKey(db, key); err != nil {
		return false, err
	}
	if err := checkNotEmpty("member", member); err != nil {
		return false, err
	}

	var ok bool
	err := t.x.query(ctx, db, "sismember", func(c redis.Cmdable) error {
		var err error
		ok, err = c.SIsMember(ctx, key, member).Result()
		return err
	})
	return ok, err
}

// SMembers returns every member of the set at key.
func (t *SetTable) SMembers(ctx context.Context, db int, key string) ([]string, error) {
	if err := checkKey(db, key); err != nil {
		return nil, err
	}

	var out []string
	err := t.x.query(ctx, db, "smembers", func(c redis.Cmdable) error {
		var err error
		out, err = c.SMembers(ctx, key).Result()
		return err
	})
	return out, err
}

// SScan iterates the whole set and returns the members matching pattern
// ("" matches all). count is a per-page hint to the server. Members are
// returned once even if the server repeats them across pages.
func (t *SetTable) SScan(ctx context.Context, db int, key, pattern string, count int64) ([]string, error) {
	if err := checkKey(db, key); err != nil {
		return nil, err
	}

	var out []string
	err := t.x.query(ctx, db, "sscan", func(c redis.Cmdable) error {
		out = out[:0]
		seen := make(map[string]struct{})
		var cursor uint64
		for {
			page, next, err := c.SScan(ctx, key, cursor, pattern, count).Result()
			if err != nil {
				return err
			}
			for _, m := range page {
				if _, dup := seen[m]; dup {
					continue
				}
				seen[m] = struct{}{}
				out = append(out, m)
			}
			if next == 0 {
				return nil
			}
			cursor = next
		}
	})
	return out, err
}
