package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"redisclient-go/internal/models"
	"redisclient-go/pkg/redisclient"
)

const testDB = 3

func newTestRepository(t *testing.T) (*AccountRepository, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client, err := redisclient.New(mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	repo := NewAccountRepository(client, testDB, 10, nil)
	clock := time.Unix(1_700_000_000, 0)
	repo.now = func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}
	return repo, mr
}

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool     { return &b }

func TestAccountRepository_Create(t *testing.T) {
	repo, mr := newTestRepository(t)
	ctx := context.Background()
	db := mr.DB(testDB)

	acct, err := repo.Create(ctx, models.CreateAccountRequest{Username: "alice", Email: "alice@example.com"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), acct.ID)
	assert.True(t, acct.Active)
	assert.Equal(t, int64(1_700_000_060), acct.CreatedAt)

	assert.Equal(t, "alice", db.HGet(AccountKey(1), "username"))
	assert.Equal(t, "1", db.HGet(AccountKey(1), "active"))
	taken, err := db.IsMember(UsernamesKey(), "alice")
	require.NoError(t, err)
	assert.True(t, taken)
	score, err := db.ZScore(AccountsKey(), "1")
	require.NoError(t, err)
	assert.Equal(t, float64(1_700_000_060), score)

	got, err := repo.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, acct, got)

	_, err = repo.Create(ctx, models.CreateAccountRequest{Username: "alice"})
	assert.ErrorIs(t, err, ErrUsernameTaken)

	_, err = repo.Create(ctx, models.CreateAccountRequest{Username: ""})
	assert.ErrorIs(t, err, ErrInvalidUsername)
	_, err = repo.Create(ctx, models.CreateAccountRequest{Username: "a-username-that-is-far-too-long-to-keep"})
	assert.ErrorIs(t, err, ErrInvalidUsername)

	bob, err := repo.Create(ctx, models.CreateAccountRequest{Username: "bob"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), bob.ID)
	assert.Empty(t, db.HGet(AccountKey(2), "email"), "empty email is not stored")

	_, err = repo.Get(ctx, 99)
	assert.ErrorIs(t, err, ErrAccountNotFound)
}

func TestAccountRepository_Update(t *testing.T) {
	repo, mr := newTestRepository(t)
	ctx := context.Background()

	acct, err := repo.Create(ctx, models.CreateAccountRequest{Username: "carol", Email: "old@example.com"})
	require.NoError(t, err)

	updated, err := repo.Update(ctx, acct.ID, models.UpdateAccountRequest{
		Email:  strPtr("new@example.com"),
		Active: boolPtr(false),
	})
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", updated.Email)
	assert.False(t, updated.Active)
	assert.Equal(t, "carol", updated.Username)

	updated, err = repo.Update(ctx, acct.ID, models.UpdateAccountRequest{Email: strPtr("")})
	require.NoError(t, err)
	assert.Empty(t, updated.Email)
	assert.Empty(t, mr.DB(testDB).HGet(AccountKey(acct.ID), "email"))

	unchanged, err := repo.Update(ctx, acct.ID, models.UpdateAccountRequest{})
	require.NoError(t, err)
	assert.Equal(t, updated, unchanged)

	_, err = repo.Update(ctx, 42, models.UpdateAccountRequest{Active: boolPtr(true)})
	assert.ErrorIs(t, err, ErrAccountNotFound)
}

func TestAccountRepository_PromoteVIP(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()

	dave, err := repo.Create(ctx, models.CreateAccountRequest{Username: "dave"})
	require.NoError(t, err)
	erin, err := repo.Create(ctx, models.CreateAccountRequest{Username: "erin"})
	require.NoError(t, err)
	_, err = repo.Create(ctx, models.CreateAccountRequest{Username: "frank"})
	require.NoError(t, err)

	level, err := repo.PromoteVIP(ctx, dave.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, level)
	level, err = repo.PromoteVIP(ctx, dave.ID, 3)
	require.NoError(t, err)
	assert.Equal(t, 5, level)
	_, err = repo.PromoteVIP(ctx, erin.ID, 1)
	require.NoError(t, err)

	total, vip, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Equal(t, int64(2), vip)

	top, err := repo.TopVIP(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []redisclient.ScoredMember{{Member: "1", Score: 5}}, top)

	top, err = repo.TopVIP(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, top, 2)

	_, err = repo.PromoteVIP(ctx, dave.ID, 0)
	assert.ErrorIs(t, err, ErrInvalidLevels)
	_, err = repo.PromoteVIP(ctx, 77, 1)
	assert.ErrorIs(t, err, ErrAccountNotFound)
}

func TestAccountRepository_Delete(t *testing.T) {
	repo, mr := newTestRepository(t)
	ctx := context.Background()
	db := mr.DB(testDB)

	acct, err := repo.Create(ctx, models.CreateAccountRequest{Username: "gina"})
	require.NoError(t, err)
	_, err = repo.PromoteVIP(ctx, acct.ID, 1)
	require.NoError(t, err)

	require.NoError(t, repo.Delete(ctx, acct.ID))

	assert.False(t, db.Exists(AccountKey(acct.ID)))
	assert.False(t, db.Exists(EventsKey(acct.ID)))
	taken, err := repo.UsernameTaken(ctx, "gina")
	require.NoError(t, err)
	assert.False(t, taken)

	total, vip, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Zero(t, vip)

	assert.ErrorIs(t, repo.Delete(ctx, acct.ID), ErrAccountNotFound)

	_, err = repo.Create(ctx, models.CreateAccountRequest{Username: "gina"})
	assert.NoError(t, err, "username is free again")
}

func TestAccountRepository_List(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()

	var created []*models.Account
	for _, name := range []string{"h1", "h2", "h3"} {
		acct, err := repo.Create(ctx, models.CreateAccountRequest{Username: name})
		require.NoError(t, err)
		created = append(created, acct)
	}

	list, err := repo.List(ctx, 0, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), list.Total)
	require.Len(t, list.Accounts, 2)
	assert.Equal(t, "h1", list.Accounts[0].Username)
	assert.Equal(t, "h2", list.Accounts[1].Username)

	list, err = repo.List(ctx, 2, 10)
	require.NoError(t, err)
	require.Len(t, list.Accounts, 1)
	assert.Equal(t, "h3", list.Accounts[0].Username)

	list, err = repo.List(ctx, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, list.Accounts)
	assert.Equal(t, int64(3), list.Total)

	between, err := repo.CreatedBetween(ctx, created[1].Created(), created[2].Created())
	require.NoError(t, err)
	require.Len(t, between, 2)
	assert.Equal(t, "h2", between[0].Username)
	assert.Equal(t, "h3", between[1].Username)
}

func TestAccountRepository_Events(t *testing.T) {
	repo, mr := newTestRepository(t)
	ctx := context.Background()

	acct, err := repo.Create(ctx, models.CreateAccountRequest{Username: "ivan"})
	require.NoError(t, err)
	_, err = repo.Update(ctx, acct.ID, models.UpdateAccountRequest{Active: boolPtr(false)})
	require.NoError(t, err)
	_, err = repo.PromoteVIP(ctx, acct.ID, 1)
	require.NoError(t, err)

	// Unparseable entries are skipped.
	mr.DB(testDB).Lpush(EventsKey(acct.ID), "garbage")

	events, err := repo.Events(ctx, acct.ID)
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, "promoted", events[0].Event)
	assert.Equal(t, "updated", events[1].Event)
	assert.Equal(t, "created", events[2].Event)
	assert.Equal(t, acct.CreatedAt, events[2].At)

	_, err = repo.Events(ctx, 1000)
	assert.ErrorIs(t, err, ErrAccountNotFound)
}

func TestAccountRepository_Sessions(t *testing.T) {
	repo, mr := newTestRepository(t)
	ctx := context.Background()

	acct, err := repo.Create(ctx, models.CreateAccountRequest{Username: "judy"})
	require.NoError(t, err)

	token, err := repo.OpenSession(ctx, acct.ID, time.Hour)
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	id, ttl, err := repo.Session(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, acct.ID, id)
	assert.Equal(t, time.Hour, ttl)

	require.NoError(t, repo.RefreshSession(ctx, token, 0))
	_, ttl, err = repo.Session(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, redisclient.NoExpiry, ttl)

	require.NoError(t, repo.RefreshSession(ctx, token, time.Minute))
	mr.FastForward(2 * time.Minute)

	_, _, err = repo.Session(ctx, token)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.ErrorIs(t, repo.RefreshSession(ctx, token, time.Minute), ErrSessionNotFound)

	other, err := repo.OpenSession(ctx, acct.ID, 0)
	require.NoError(t, err)
	require.NoError(t, repo.CloseSession(ctx, other))
	require.NoError(t, repo.CloseSession(ctx, other))
	_, _, err = repo.Session(ctx, other)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	_, err = repo.OpenSession(ctx, 555, time.Hour)
	assert.ErrorIs(t, err, ErrAccountNotFound)
}

func TestAccountRepository_EventsTrimmed(t *testing.T) {
	repo, mr := newTestRepository(t)
	ctx := context.Background()

	acct, err := repo.Create(ctx, models.CreateAccountRequest{Username: "kate"})
	require.NoError(t, err)
	for i := 0; i < 12; i++ {
		_, err = repo.Update(ctx, acct.ID, models.UpdateAccountRequest{Active: boolPtr(i%2 == 0)})
		require.NoError(t, err)
	}

	stored, err := mr.DB(testDB).List(EventsKey(acct.ID))
	require.NoError(t, err)
	assert.Len(t, stored, 10, "only the newest events are kept")

	events, err := repo.Events(ctx, acct.ID)
	require.NoError(t, err)
	require.Len(t, events, 10)
	for _, e := range events {
		assert.Equal(t, "updated", e.Event)
	}
}
