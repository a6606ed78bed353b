package redisclient

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyTable(t *testing.T) {
	t.Parallel()

	client, mr := newTestClient(t)
	ctx := context.Background()

	require.NoError(t, mr.DB(1).Set("session", "abc"))

	ok, err := client.Key.Exists(ctx, 1, "session")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = client.Key.Exists(ctx, 0, "session")
	require.NoError(t, err)
	assert.False(t, ok)

	ttl, err := client.Key.TTL(ctx, 1, "session")
	require.NoError(t, err)
	assert.Equal(t, NoExpiry, ttl)

	require.NoError(t, client.Key.Expire(ctx, 1, "session", time.Minute))
	assert.Equal(t, time.Minute, mr.DB(1).TTL("session"))

	ttl, err = client.Key.TTL(ctx, 1, "session")
	require.NoError(t, err)
	assert.Equal(t, time.Minute, ttl)

	require.NoError(t, client.Key.Persist(ctx, 1, "session"))
	assert.Equal(t, time.Duration(0), mr.DB(1).TTL("session"))

	require.NoError(t, client.Key.Del(ctx, 1, "session"))
	assert.False(t, mr.DB(1).Exists("session"))
	require.NoError(t, client.Key.Del(ctx, 1, "session"))

	_, err = client.Key.TTL(ctx, 1, "session")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestKeyTable_Validation(t *testing.T) {
	t.Parallel()

	client, _ := newTestClient(t)
	ctx := context.Background()

	tests := []struct {
		name string
		fn   func() error
	}{
		{name: "del empty key", fn: func() error { return client.Key.Del(ctx, 0, "") }},
		{name: "exists negative db", fn: func() error { _, err := client.Key.Exists(ctx, -2, "k"); return err }},
		{name: "expire zero ttl", fn: func() error { return client.Key.Expire(ctx, 0, "k", 0) }},
		{name: "ttl empty key", fn: func() error { _, err := client.Key.TTL(ctx, 0, ""); return err }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.fn(), ErrInvalidArgument)
		})
	}

	// Validation happens before any connection is made.
	assert.Equal(t, -1, client.DB())
}
