package redisclient

import (
	"context"
	"fmt"
	"math"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// ScoredMember is a sorted set member with its score.
type ScoredMember struct {
	Member string  `json:"member"`
	Score  float64 `json:"score"`
}

// SortedSetTable holds sorted set commands. Score bounds may be
// math.Inf(-1) and math.Inf(1).
type SortedSetTable struct {
	x executor
}

func formatScore(f float64) string {
	switch {
	case math.IsInf(f, 1):
		return "+inf"
	case math.IsInf(f, -1):
		return "-inf"
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func checkScore(f float64) error {
	if math.IsNaN(f) {
		return fmt.Errorf("%w: NaN score", ErrInvalidArgument)
	}
	return nil
}

func checkRange(min, max float64) error {
	if err := checkScore(min); err != nil {
		return err
	}
	return checkScore(max)
}

// ZAdd adds member with score, or updates its score.
func (t *SortedSetTable) ZAdd(ctx context.Context, db int, key string, score float64, member string) error {
	if err := checkKey(db, key); err != nil {
		return err
	}
	if err := checkNotEmpty("member", member); err != nil {
		return err
	}
	if err := checkScore(score); err != nil {
		return err
	}
	return t.x.exec(ctx, db, "zadd", func(c redis.Cmdable) error {
		return c.ZAdd(ctx, key, redis.Z{Score: score, Member: member}).Err()
	})
}

// ZIncrBy adds increment to the score of member.
func (t *SortedSetTable) ZIncrBy(ctx context.Context, db int, key string, increment float64, member string) error {
	if err := checkKey(db, key); err != nil {
		return err
	}
	if err := checkNotEmpty("member", member); err != nil {
		return err
	}
	if err := checkScore(increment); err != nil {
		return err
	}
	return t.x.exec(ctx, db, "zincrby", func(c redis.Cmdable) error {
		return c.ZIncrBy(ctx, key, increment, member).Err()
	})
}

// ZRem removes members from the sorted set.
func (t *SortedSetTable) ZRem(ctx context.Context, db int, key string, members ...string) error {
	if err := checkMembers(db, key, members); err != nil {
		return err
	}
	return t.x.exec(ctx, db, "zrem", func(c redis.Cmdable) error {
		return c.ZRem(ctx, key, toArgs(members)...).Err()
	})
}

// ZCount returns how many members have a score in [min, max].
func (t *SortedSetTable) ZCount(ctx context.Context, db int, key string, min, max float64) (int64, error) {
	if err := checkKey(db, key); err != nil {
		return 0, err
	}
	if err := checkRange(min, max); err != nil {
		return 0, err
	}

	var n int64
	err := t.x.query(ctx, db, "zcount", func(c redis.Cmdable) error {
		var err error
		n, err = c.ZCount(ctx, key, formatScore(min), formatScore(max)).Result()
		return err
	})
	return n, err
}

// ZRange returns members by rank, lowest score first.
func (t *SortedSetTable) ZRange(ctx context.Context, db int, key string, start, stop int64) ([]string, error) {
	if err := checkKey(db, key); err != nil {
		return nil, err
	}

	var out []string
	err := t.x.query(ctx, db, "zrange", func(c redis.Cmdable) error {
		var err error
		out, err = c.ZRange(ctx, key, start, stop).Result()
		return err
	})
	return out, err
}

// ZRangeWithScores is ZRange with scores.
func (t *SortedSetTable) ZRangeWithScores(ctx context.Context, db int, key string, start, stop int64) ([]ScoredMember, error) {
	if err := checkKey(db, key); err != nil {
		return nil, err
	}

	var zs []redis.Z
	err := t.x.query(ctx, db, "zrange", func(c redis.Cmdable) error {
		var err error
		zs, err = c.ZRangeWithScores(ctx, key, start, stop).Result()
		return err
	})
	if err != nil {
		return nil, err
	}
	return scored(zs)
}

// ZRangeByScore returns members with a score in [min, max], lowest first.
func (t *SortedSetTable) ZRangeByScore(ctx context.Context, db int, key string, min, max float64) ([]string, error) {
	if err := checkKey(db, key); err != nil {
		return nil, err
	}
	if err := checkRange(min, max); err != nil {
		return nil, err
	}

	var out []string
	err := t.x.query(ctx, db, "zrangebyscore", func(c redis.Cmdable) error {
		var err error
		out, err = c.ZRangeByScore(ctx, key, &redis.ZRangeBy{
			Min: formatScore(min),
			Max: formatScore(max),
		}).Result()
		return err
	})
	return out, err
}

// ZRangeByScoreWithScores is ZRangeByScore with scores.
func (t *SortedSetTable) ZRangeByScoreWithScores(ctx context.Context, db int, key string, min, max float64) ([]ScoredMember, error) {
	if err := checkKey(db, key); err != nil {
		return nil, err
	}
	if err := checkRange(min, max); err != nil {
		return nil, err
	}

	var zs []redis.Z
	err := t.x.query(ctx, db, "zrangebyscore", func(c redis.Cmdable) error {
		var err error
		zs, err = c.ZRangeByScoreWithScores(ctx, key, &redis.ZRangeBy{
			Min: formatScore(min),
			Max: formatScore(max),
		}).Result()
		return err
	})
	if err != nil {
		return nil, err
	}
	return scored(zs)
}

// ZScore returns the score of member or ErrNotFound.
func (t *SortedSetTable) ZScore(ctx context.Context, db int, key, member string) (float64, error) {
	if err := checkKey(db, key); err != nil {
		return 0, err
	}
	if err := checkNotEmpty("member", member); err != nil {
		return 0, err
	}

	var score float64
	err := t.x.query(ctx, db, "zscore", func(c redis.Cmdable) error {
		var err error
		score, err = c.ZScore(ctx, key, member).Result()
		return err
	})
	return score, notFound(err)
}

// ZScan iterates the whole sorted set and returns the members matching
// pattern ("" matches all) with their scores. count is a per-page hint.
func (t *SortedSetTable) ZScan(ctx context.Context, db int, key, pattern string, count int64) ([]ScoredMember, error) {
	if err := checkKey(db, key); err != nil {
		return nil, err
	}

	var pairs []string
	err := t.x.query(ctx, db, "zscan", func(c redis.Cmdable) error {
		pairs = pairs[:0]
		var cursor uint64
		for {
			page, next, err := c.ZScan(ctx, key, cursor, pattern, count).Result()
			if err != nil {
				return err
			}
			pairs = append(pairs, page...)
			if next == 0 {
				return nil
			}
			cursor = next
		}
	})
	if err != nil {
		return nil, err
	}
	if len(pairs)%2 != 0 {
		return nil, fmt.Errorf("%w: zscan returned %d values", ErrUnexpectedReply, len(pairs))
	}

	out := make([]ScoredMember, 0, len(pairs)/2)
	index := make(map[string]int, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		score, err := strconv.ParseFloat(pairs[i+1], 64)
		if err != nil {
			return nil, fmt.Errorf("%w: zscan score %q: %v", ErrUnexpectedReply, pairs[i+1], err)
		}
		if j, dup := index[pairs[i]]; dup {
			out[j].Score = score
			continue
		}
		index[pairs[i]] = len(out)
		out = append(out, ScoredMember{Member: pairs[i], Score: score})
	}
	return out, nil
}

func scored(zs []redis.Z) ([]ScoredMember, error) {
	out := make([]ScoredMember, len(zs))
	for i, z := range zs {
		member, ok := z.Member.(string)
		if !ok {
			return nil, fmt.Errorf("%w: sorted set member %T", ErrUnexpectedReply, z.Member)
		}
		out[i] = ScoredMember{Member: member, Score: z.Score}
	}
	return out, nil
}
