package redisclient

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// Tables groups the per-type command tables. Client and Pipeline both
// embed it, so the same calls work in single-command and pipeline mode.
type Tables struct {
	Key       *KeyTable
	String    *StringTable
	Hash      *HashTable
	List      *ListTable
	Set       *SetTable
	SortedSet *SortedSetTable
}

func newTables(x executor) Tables {
	return Tables{
		Key:       &KeyTable{x: x},
		String:    &StringTable{x: x},
		Hash:      &HashTable{x: x},
		List:      &ListTable{x: x},
		Set:       &SetTable{x: x},
		SortedSet: &SortedSetTable{x: x},
	}
}

// executor dispatches a command built against a redis.Cmdable. exec is used
// for commands that change data and may be queued; query for commands whose
// reply the caller needs, which a pipeline cannot provide.
type executor interface {
	exec(ctx context.Context, db int, name string, fn func(redis.Cmdable) error) error
	query(ctx context.Context, db int, name string, fn func(redis.Cmdable) error) error
}

// Client owns one logical Redis connection. Commands from concurrent
// goroutines are serialized; a Pipeline holds the connection exclusively
// until it is executed or discarded.
type Client struct {
	Tables

	rdb     *redis.Client
	opts    *options
	logger  *zap.Logger
	metrics *Metrics

	sem    *semaphore.Weighted
	conn   *redis.Conn // guarded by sem
	db     atomic.Int64
	closed atomic.Bool
}

// New creates a client for the server at addr ("host:port"). No connection
// is made until the first command.
func New(addr string, opts ...Option) (*Client, error) {
	if addr == "" {
		return nil, ErrEmptyAddress
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	return newClient(&redis.Options{Addr: addr}, o), nil
}

// Open parses a redis:// or rediss:// URL and connects, retrying according
// to WithRetry. The database in the URL becomes the default unless WithDB
// overrides it.
//
// Example:
//
//	client, err := redisclient.Open(ctx, "redis://localhost:6379/2",
//	    redisclient.WithRetry(5, time.Second),
//	    redisclient.WithLogger(logger),
//	)
func Open(ctx context.Context, url string, opts ...Option) (*Client, error) {
	if url == "" {
		return nil, ErrEmptyAddress
	}
	if !strings.HasPrefix(url, "redis://") && !strings.HasPrefix(url, "rediss://") {
		return nil, ErrFailedToParseURL
	}

	redisOpts, err := redis.ParseURL(url)
	if err != nil {
		return nil, errors.Join(ErrFailedToParseURL, err)
	}

	o := defaultOptions()
	o.db = redisOpts.DB
	o.username = redisOpts.Username
	o.password = redisOpts.Password
	for _, opt := range opts {
		opt(o)
	}
	redisOpts.DB = 0

	c := newClient(redisOpts, o)
	if err := c.open(ctx); err != nil {
		_ = c.Close()
		return nil, err
	}
	return c, nil
}

func newClient(redisOpts *redis.Options, o *options) *Client {
	redisOpts.Username = o.username
	redisOpts.Password = o.password
	redisOpts.DialTimeout = o.dialTimeout
	redisOpts.ReadTimeout = o.readTimeout
	redisOpts.WriteTimeout = o.writeTimeout
	// Reconnects are handled here so the selected database can be restored.
	redisOpts.MaxRetries = -1
	redisOpts.PoolSize = 2

	logger := o.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	rdb := redis.NewClient(redisOpts)
	if o.metrics != nil {
		rdb.AddHook(o.metrics.hook())
	}

	c := &Client{
		rdb:     rdb,
		opts:    o,
		logger:  logger,
		metrics: o.metrics,
		sem:     semaphore.NewWeighted(1),
	}
	c.db.Store(-1)
	c.Tables = newTables(single{c})
	return c
}

func (c *Client) open(ctx context.Context) error {
	attempts := max(c.opts.retryAttempts, 1)

	var err error
	for i := 0; i < attempts; i++ {
		if err = c.Connect(ctx, c.opts.db); err == nil {
			return nil
		}
		if !errors.Is(err, ErrConnectionFailed) {
			return err
		}

		c.logger.Warn("redis connection attempt failed",
			zap.Int("attempt", i+1),
			zap.Int("max_attempts", attempts),
			zap.Error(err),
		)
		if i == attempts-1 {
			break
		}
		if waitErr := wait(ctx, time.Duration(i+1)*c.opts.retryInterval); waitErr != nil {
			return errors.Join(ErrConnectionFailed, waitErr)
		}
	}
	return err
}

// Connect makes one attempt to connect and select db. It is a no-op when
// the connection is up and db is already selected.
func (c *Client) Connect(ctx context.Context, db int) error {
	if err := checkDB(db); err != nil {
		return err
	}
	if err := c.lock(ctx); err != nil {
		return err
	}
	defer c.unlock()

	return c.connect(ctx, db)
}

// ConnectBlocking retries Connect every reconnect interval until it
// succeeds, ctx ends, or the server rejects the database index.
func (c *Client) ConnectBlocking(ctx context.Context, db int) error {
	if err := checkDB(db); err != nil {
		return err
	}

	b := backoff.WithContext(backoff.NewConstantBackOff(c.opts.reconnectInterval), ctx)
	return backoff.RetryNotify(func() error {
		err := c.Connect(ctx, db)
		if err == nil || errors.Is(err, ErrConnectionFailed) {
			return err
		}
		return backoff.Permanent(err)
	}, b, func(err error, next time.Duration) {
		c.logger.Warn("redis connect failed, retrying",
			zap.Int("db", db),
			zap.Duration("retry_in", next),
			zap.Error(err),
		)
	})
}

// Select switches the connection to database db.
func (c *Client) Select(ctx context.Context, db int) error {
	return c.Connect(ctx, db)
}

// DB returns the database index selected on the live connection, or -1
// when there is no connection.
func (c *Client) DB() int {
	return int(c.db.Load())
}

// Ping checks the server on the default database.
func (c *Client) Ping(ctx context.Context) error {
	return c.run(ctx, c.opts.db, "ping", func(r redis.Cmdable) error {
		return r.Ping(ctx).Err()
	})
}

// Close releases the connection. It waits for an in-flight command or an
// open Pipeline to finish.
func (c *Client) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	_ = c.sem.Acquire(context.Background(), 1)
	defer c.sem.Release(1)

	c.drop()
	return c.rdb.Close()
}

func (c *Client) lock(ctx context.Context) error {
	if c.closed.Load() {
		return ErrClientClosed
	}
	if err := c.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	if c.closed.Load() {
		c.sem.Release(1)
		return ErrClientClosed
	}
	return nil
}

func (c *Client) unlock() {
	c.sem.Release(1)
}

// connect requires the lock.
func (c *Client) connect(ctx context.Context, db int) error {
	if c.conn == nil {
		c.conn = c.rdb.Conn()
		if c.metrics != nil {
			// Hooks on the parent client only see dials.
			c.conn.AddHook(c.metrics.hook())
		}
		c.db.Store(-1)
	}
	if c.DB() == db {
		return nil
	}

	if err := c.conn.Select(ctx, db).Err(); err != nil {
		c.drop()
		if isReplyError(err) {
			return errors.Join(ErrSelectFailed, err)
		}
		return errors.Join(ErrConnectionFailed, err)
	}
	c.db.Store(int64(db))
	return nil
}

// drop requires the lock.
func (c *Client) drop() {
	if c.conn == nil {
		return
	}
	_ = c.conn.Close()
	c.conn = nil
	c.db.Store(-1)
}

// run executes fn on the connection selected to db. A transport failure
// drops the connection; the command is then retried once on a fresh one.
func (c *Client) run(ctx context.Context, db int, name string, fn func(redis.Cmdable) error) error {
	if err := c.lock(ctx); err != nil {
		return err
	}
	defer c.unlock()

	err := c.attempt(ctx, db, name, fn)
	if !c.retryable(ctx, err) {
		return err
	}

	c.logger.Info("redis reconnecting",
		zap.String("command", name),
		zap.Int("db", db),
		zap.Error(err),
	)
	c.metrics.reconnected()
	return c.attempt(ctx, db, name, fn)
}

func (c *Client) attempt(ctx context.Context, db int, name string, fn func(redis.Cmdable) error) error {
	if err := c.connect(ctx, db); err != nil {
		return err
	}

	c.logger.Debug("redis command", zap.String("command", name), zap.Int("db", db))
	err := fn(c.conn)
	if err != nil && !isReplyError(err) {
		c.logger.Warn("redis command failed, dropping connection",
			zap.String("command", name),
			zap.Int("db", db),
			zap.Error(err),
		)
		c.drop()
	}
	return err
}

func (c *Client) retryable(ctx context.Context, err error) bool {
	if err == nil || isReplyError(err) || ctx.Err() != nil || c.closed.Load() {
		return false
	}
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

type single struct {
	c *Client
}

func (s single) exec(ctx context.Context, db int, name string, fn func(redis.Cmdable) error) error {
	return s.c.run(ctx, db, name, fn)
}

func (s single) query(ctx context.Context, db int, name string, fn func(redis.Cmdable) error) error {
	return s.c.run(ctx, db, name, fn)
}

func wait(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
