package hashdesc

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type account struct {
	ID       int64   `redis:"id"`
	Username string  `redis:"username,maxlen=8"`
	Password string  `redis:"-"`
	VIP      uint8   `redis:"vip"`
	Balance  float64 `redis:"balance"`
	Active   bool    `redis:"active"`
	note     string  `redis:"note"`
	Comment  string
}

func TestDescribe(t *testing.T) {
	table, err := Of(&account{})
	require.NoError(t, err)

	assert.Equal(t, []string{"id", "username", "vip", "balance", "active"}, table.Names())
	assert.Equal(t, 5, table.Len())

	f, ok := table.Lookup("username")
	require.True(t, ok)
	assert.Equal(t, String, f.Kind)
	assert.Equal(t, 8, f.MaxLen)
	assert.Equal(t, 1, f.Index)

	_, ok = table.Lookup("password")
	assert.False(t, ok)

	fields := table.Fields()
	require.Len(t, fields, 5)
	assert.Equal(t, "id", fields[0].Name)
	assert.Equal(t, "active", fields[4].Name)
	fields[0].Name = "changed"
	assert.Equal(t, "id", table.Fields()[0].Name, "Fields returns a copy")

	again, err := Describe(reflect.TypeOf(account{}))
	require.NoError(t, err)
	assert.Same(t, table, again)
}

func TestDescribeErrors(t *testing.T) {
	tests := []struct {
		name string
		v    interface{}
		err  error
	}{
		{name: "not a struct", v: 42, err: ErrNotStruct},
		{name: "nil", v: nil, err: ErrNotStruct},
		{name: "no mapped fields", v: struct{ A string }{}, err: ErrNoFields},
		{
			name: "duplicate",
			v: struct {
				A string `redis:"a"`
				B string `redis:"a"`
			}{},
			err: ErrDuplicateField,
		},
		{
			name: "unsupported kind",
			v: struct {
				A []string `redis:"a"`
			}{},
			err: ErrUnsupportedKind,
		},
		{
			name: "bad maxlen",
			v: struct {
				A string `redis:"a,maxlen=x"`
			}{},
			err: ErrInvalidTag,
		},
		{
			name: "maxlen on int",
			v: struct {
				A int `redis:"a,maxlen=3"`
			}{},
			err: ErrInvalidTag,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Of(tt.v)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestEncode(t *testing.T) {
	table, err := Of(account{})
	require.NoError(t, err)

	a := account{ID: 7, Username: "averyverylongname", VIP: 2, Balance: 1.5, Active: true}

	args, err := table.Encode(a)
	require.NoError(t, err)
	assert.Equal(t, []interface{}{
		"id", "7",
		"username", "averyver",
		"vip", "2",
		"balance", "1.5",
		"active", "1",
	}, args)

	args, err = table.Encode(&a, "vip", "id")
	require.NoError(t, err)
	assert.Equal(t, []interface{}{"vip", "2", "id", "7"}, args)

	t.Run("empty strings are skipped", func(t *testing.T) {
		args, err := table.Encode(account{}, "username")
		require.NoError(t, err)
		assert.Empty(t, args)
	})

	t.Run("unknown field", func(t *testing.T) {
		_, err := table.Encode(a, "password")
		assert.ErrorIs(t, err, ErrUnknownField)
	})

	t.Run("wrong type", func(t *testing.T) {
		_, err := table.Encode(struct{}{})
		assert.ErrorIs(t, err, ErrInvalidTarget)
	})
}

func TestDecode(t *testing.T) {
	table, err := Of(account{})
	require.NoError(t, err)

	var a account
	err = table.Decode(&a, map[string]string{
		"id":       "42",
		"username": "truncated-name",
		"vip":      "3",
		"balance":  "",
		"active":   "1",
		"password": "ignored",
	})
	require.NoError(t, err)
	assert.Equal(t, account{ID: 42, Username: "truncate", VIP: 3, Active: true}, a)

	t.Run("bad number", func(t *testing.T) {
		var a account
		err := table.Decode(&a, map[string]string{"id": "abc"})
		assert.ErrorIs(t, err, ErrDecode)
	})

	t.Run("non pointer target", func(t *testing.T) {
		err := table.Decode(account{}, map[string]string{"id": "1"})
		assert.ErrorIs(t, err, ErrInvalidTarget)
	})

	t.Run("nil pointer target", func(t *testing.T) {
		var a *account
		err := table.Decode(a, map[string]string{"id": "1"})
		assert.ErrorIs(t, err, ErrInvalidTarget)
	})
}

func TestZero(t *testing.T) {
	table, err := Of(account{})
	require.NoError(t, err)

	a := account{ID: 1, Username: "bob", Password: "secret", VIP: 1, Active: true}
	require.NoError(t, table.Zero(&a, "username", "vip"))
	assert.Equal(t, account{ID: 1, Password: "secret", Active: true}, a)

	require.NoError(t, table.Zero(&a))
	assert.Equal(t, account{Password: "secret"}, a)

	assert.ErrorIs(t, table.Zero(&a, "nope"), ErrUnknownField)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "ab", truncate("abc", 2))
	assert.Equal(t, "h", truncate("hé", 2))
	assert.Equal(t, "abc", truncate("abc", 0))
}
