package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOptions(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		addr    string
		db      int
		wantErr bool
	}{
		{name: "positional", args: []string{"127.0.0.1", "6379"}, addr: "127.0.0.1:6379"},
		{name: "db flag", args: []string{"-n", "3", "localhost", "6380"}, addr: "localhost:6380", db: 3},
		{name: "long db flag", args: []string{"--db=5", "::1", "6379"}, addr: "[::1]:6379", db: 5},
		{name: "missing port", args: []string{"localhost"}, wantErr: true},
		{name: "bad port", args: []string{"localhost", "http"}, wantErr: true},
		{name: "unknown flag", args: []string{"--nope", "localhost", "6379"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			opts, err := parseOptions(tt.args, &out)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.addr, opts.addr)
			assert.Equal(t, tt.db, opts.db)
		})
	}
}

func TestRun(t *testing.T) {
	mr := miniredis.RunT(t)

	var out bytes.Buffer
	err := run(context.Background(), []string{"--db", "2", "--log-level", "error", mr.Host(), mr.Port()}, &out)
	require.NoError(t, err, out.String())

	got := out.String()
	for _, want := range []string{
		"TEST KEY",
		"key `set' exists: true",
		"String.Nop: success",
		"counter: 42",
		"\"member1\" in set: true",
		"SortedSet.ZCount: 2",
		"SortedSet.ZScore member2: 101.5",
		"List.LPop: a, List.BRPop: c",
		"username: halberdholder",
		"password: 123445",
		"vip: 2",
		"password present after HDel: false",
		"queued 3 commands",
		"pipelined set has 2 members",
	} {
		assert.Contains(t, got, want)
	}

	assert.Empty(t, mr.DB(2).Keys(), "demo cleans up after itself")
}
