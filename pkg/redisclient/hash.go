package redisclient

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"redisclient-go/pkg/hashdesc"
)

// HashTable reads and writes structs described by hashdesc tags as Redis
// hashes. Every method taking a struct uses the table of its type; the
// field arguments are hash field names, not Go field names.
type HashTable struct {
	x executor
}

func describe(v interface{}) (*hashdesc.Table, error) {
	table, err := hashdesc.Of(v)
	if err != nil {
		return nil, errors.Join(ErrInvalidArgument, err)
	}
	return table, nil
}

// HSet writes one field of data. An empty string value is skipped without
// contacting the server.
func (t *HashTable) HSet(ctx context.Context, db int, key string, data interface{}, field string) error {
	if err := checkKey(db, key); err != nil {
		return err
	}
	if err := checkNotEmpty("field", field); err != nil {
		return err
	}
	table, err := describe(data)
	if err != nil {
		return err
	}

	args, err := table.Encode(data, field)
	if err != nil {
		return err
	}
	if len(args) == 0 {
		return nil
	}
	return t.x.exec(ctx, db, "hset", func(c redis.Cmdable) error {
		return c.HSet(ctx, key, args...).Err()
	})
}

// HSetValue writes a raw string to field.
func (t *HashTable) HSetValue(ctx context.Context, db int, key, field, value string) error {
	if err := checkKey(db, key); err != nil {
		return err
	}
	if err := checkNotEmpty("field", field); err != nil {
		return err
	}
	if err := checkNotEmpty("value", value); err != nil {
		return err
	}
	return t.x.exec(ctx, db, "hset", func(c redis.Cmdable) error {
		return c.HSet(ctx, key, field, value).Err()
	})
}

// HMSet writes the listed fields of data in one command. Empty strings are
// skipped; ErrNoFields is returned when nothing is left to write.
func (t *HashTable) HMSet(ctx context.Context, db int, key string, data interface{}, fields ...string) error {
	if err := checkKey(db, key); err != nil {
		return err
	}
	if len(fields) == 0 {
		return fmt.Errorf("%w: no fields requested", ErrNoFields)
	}
	return t.write(ctx, db, key, data, fields)
}

// HSetAll writes every mapped field of data. Empty strings are skipped.
func (t *HashTable) HSetAll(ctx context.Context, db int, key string, data interface{}) error {
	if err := checkKey(db, key); err != nil {
		return err
	}
	return t.write(ctx, db, key, data, nil)
}

func (t *HashTable) write(ctx context.Context, db int, key string, data interface{}, fields []string) error {
	table, err := describe(data)
	if err != nil {
		return err
	}

	args, err := table.Encode(data, fields...)
	if err != nil {
		return err
	}
	if len(args) == 0 {
		return ErrNoFields
	}
	return t.x.exec(ctx, db, "hmset", func(c redis.Cmdable) error {
		return c.HSet(ctx, key, args...).Err()
	})
}

// HGet reads one field into dst, a pointer to a described struct. The field
// is zeroed first, so it stays zero when ErrNotFound is returned.
func (t *HashTable) HGet(ctx context.Context, db int, key string, dst interface{}, field string) error {
	if err := checkKey(db, key); err != nil {
		return err
	}
	if err := checkNotEmpty("field", field); err != nil {
		return err
	}
	table, err := describe(dst)
	if err != nil {
		return err
	}
	if err := table.Zero(dst, field); err != nil {
		return err
	}

	var v string
	err = t.x.query(ctx, db, "hget", func(c redis.Cmdable) error {
		var err error
		v, err = c.HGet(ctx, key, field).Result()
		return err
	})
	if err != nil {
		return notFound(err)
	}
	return table.Decode(dst, map[string]string{field: v})
}

// HGetValue returns the raw string in field.
func (t *HashTable) HGetValue(ctx context.Context, db int, key, field string) (string, error) {
	if err := checkKey(db, key); err != nil {
		return "", err
	}
	if err := checkNotEmpty("field", field); err != nil {
		return "", err
	}

	var v string
	err := t.x.query(ctx, db, "hget", func(c redis.Cmdable) error {
		var err error
		v, err = c.HGet(ctx, key, field).Result()
		return err
	})
	return v, notFound(err)
}

// HMGet reads the listed fields into dst. Missing fields are left zero;
// ErrNotFound is returned only when none of them exist.
func (t *HashTable) HMGet(ctx context.Context, db int, key string, dst interface{}, fields ...string) error {
	if err := checkKey(db, key); err != nil {
		return err
	}
	if len(fields) == 0 {
		return fmt.Errorf("%w: no fields requested", ErrNoFields)
	}
	return t.read(ctx, db, key, dst, fields)
}

// HGetAll reads every mapped field into dst. Fields missing from the hash
// are left zero; ErrNotFound is returned when the hash has none of them.
func (t *HashTable) HGetAll(ctx context.Context, db int, key string, dst interface{}) error {
	if err := checkKey(db, key); err != nil {
		return err
	}
	return t.read(ctx, db, key, dst, nil)
}

func (t *HashTable) read(ctx context.Context, db int, key string, dst interface{}, fields []string) error {
	table, err := describe(dst)
	if err != nil {
		return err
	}
	if len(fields) == 0 {
		fields = table.Names()
	}
	if err := table.Zero(dst, fields...); err != nil {
		return err
	}

	var reply []interface{}
	err = t.x.query(ctx, db, "hmget", func(c redis.Cmdable) error {
		var err error
		reply, err = c.HMGet(ctx, key, fields...).Result()
		return err
	})
	if err != nil {
		return err
	}
	if len(reply) != len(fields) {
		return fmt.Errorf("%w: hmget returned %d values for %d fields", ErrUnexpectedReply, len(reply), len(fields))
	}

	values := make(map[string]string, len(fields))
	for i, v := range reply {
		switch v := v.(type) {
		case nil:
		case string:
			values[fields[i]] = v
		default:
			return fmt.Errorf("%w: hmget value %T for field %q", ErrUnexpectedReply, v, fields[i])
		}
	}
	if len(values) == 0 {
		return ErrNotFound
	}
	return table.Decode(dst, values)
}

// HDel removes field from the hash.
func (t *HashTable) HDel(ctx context.Context, db int, key, field string) error {
	if err := checkKey(db, key); err != nil {
		return err
	}
	if err := checkNotEmpty("field", field); err != nil {
		return err
	}
	return t.x.exec(ctx, db, "hdel", func(c redis.Cmdable) error {
		return c.HDel(ctx, key, field).Err()
	})
}

// HExists reports whether field is present in the hash.
func (t *HashTable) HExists(ctx context.Context, db int, key, field string) (bool, error) {
	if err := checkKey(db, key); err != nil {
		return false, err
	}
	if err := checkNotEmpty("field", field); err != nil {
		return false, err
	}

	var ok bool
	err := t.x.query(ctx, db, "hexists", func(c redis.Cmdable) error {
		var err error
		ok, err = c.HExists(ctx, key, field).Result()
		return err
	})
	return ok, err
}

// HIncrBy adds n to the integer in field.
func (t *HashTable) HIncrBy(ctx context.Context, db int, key, field string, n int64) error {
	if err := checkKey(db, key); err != nil {
		return err
	}
	if err := checkNotEmpty("field", field); err != nil {
		return err
	}
	return t.x.exec(ctx, db, "hincrby", func(c redis.Cmdable) error {
		return c.HIncrBy(ctx, key, field, n).Err()
	})
}
