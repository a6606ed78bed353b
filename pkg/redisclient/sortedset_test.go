package redisclient

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSortedSetTable(t *testing.T) {
	t.Parallel()

	client, mr := newTestClient(t)
	ctx := context.Background()

	require.NoError(t, client.SortedSet.ZAdd(ctx, 0, "board", 10, "alice"))
	require.NoError(t, client.SortedSet.ZAdd(ctx, 0, "board", 2.5, "bob"))
	require.NoError(t, client.SortedSet.ZAdd(ctx, 0, "board", 7, "carol"))
	require.NoError(t, client.SortedSet.ZIncrBy(ctx, 0, "board", 1.5, "bob"))

	score, err := mr.ZScore("board", "bob")
	require.NoError(t, err)
	assert.Equal(t, 4.0, score)

	score, err = client.SortedSet.ZScore(ctx, 0, "board", "carol")
	require.NoError(t, err)
	assert.Equal(t, 7.0, score)

	_, err = client.SortedSet.ZScore(ctx, 0, "board", "dave")
	assert.ErrorIs(t, err, ErrNotFound)

	n, err := client.SortedSet.ZCount(ctx, 0, "board", 4, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	n, err = client.SortedSet.ZCount(ctx, 0, "board", math.Inf(-1), math.Inf(1))
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	members, err := client.SortedSet.ZRange(ctx, 0, "board", 0, -1)
	require.NoError(t, err)
	assert.Equal(t, []string{"bob", "carol", "alice"}, members)

	scored, err := client.SortedSet.ZRangeWithScores(ctx, 0, "board", 0, 1)
	require.NoError(t, err)
	assert.Equal(t, []ScoredMember{{Member: "bob", Score: 4}, {Member: "carol", Score: 7}}, scored)

	members, err = client.SortedSet.ZRangeByScore(ctx, 0, "board", 5, math.Inf(1))
	require.NoError(t, err)
	assert.Equal(t, []string{"carol", "alice"}, members)

	scored, err = client.SortedSet.ZRangeByScoreWithScores(ctx, 0, "board", math.Inf(-1), 7)
	require.NoError(t, err)
	assert.Equal(t, []ScoredMember{{Member: "bob", Score: 4}, {Member: "carol", Score: 7}}, scored)

	require.NoError(t, client.SortedSet.ZRem(ctx, 0, "board", "bob"))
	set, err := mr.SortedSet("board")
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"alice": 10, "carol": 7}, set)
}

func TestSortedSetTable_ZScan(t *testing.T) {
	t.Parallel()

	client, mr := newTestClient(t)
	ctx := context.Background()

	for i, m := range []string{"a1", "a2", "b1"} {
		_, err := mr.ZAdd("z", float64(i)+0.5, m)
		require.NoError(t, err)
	}

	got, err := client.SortedSet.ZScan(ctx, 0, "z", "a*", 1)
	require.NoError(t, err)
	assert.ElementsMatch(t, []ScoredMember{{Member: "a1", Score: 0.5}, {Member: "a2", Score: 1.5}}, got)
}

func TestSortedSetTable_Validation(t *testing.T) {
	t.Parallel()

	client, _ := newTestClient(t)
	ctx := context.Background()

	assert.ErrorIs(t, client.SortedSet.ZAdd(ctx, 0, "z", math.NaN(), "m"), ErrInvalidArgument)
	assert.ErrorIs(t, client.SortedSet.ZAdd(ctx, 0, "z", 1, ""), ErrInvalidArgument)
	assert.ErrorIs(t, client.SortedSet.ZRem(ctx, 0, "z"), ErrInvalidArgument)
	assert.ErrorIs(t, client.SortedSet.ZRem(ctx, 0, "z", ""), ErrInvalidArgument)
	assert.ErrorIs(t, client.SortedSet.ZRem(ctx, 0, "z", "m", ""), ErrInvalidArgument)
	_, err := client.SortedSet.ZCount(ctx, 0, "z", math.NaN(), 1)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestFormatScore(t *testing.T) {
	assert.Equal(t, "+inf", formatScore(math.Inf(1)))
	assert.Equal(t, "-inf", formatScore(math.Inf(-1)))
	assert.Equal(t, "2.5", formatScore(2.5))
	assert.Equal(t, "-3", formatScore(-3))
}
