package redisclient

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Pipeline queues write commands and sends them in one round trip on Exec.
// While a Pipeline is open it holds the client's connection; other callers
// block until Exec or Discard. The lock is not reentrant: a command issued
// through the Client instead of the Pipeline from the same goroutine waits
// until its context ends.
//
// All queued commands must target one database. The first command
// connects and selects it; later commands for another database fail with
// ErrDBMismatch unless Select is queued first. Commands that return data
// fail with ErrPipelineUnsupported.
type Pipeline struct {
	Tables

	c        *Client
	pipe     redis.Pipeliner
	db       int
	selected bool
	closed   bool
}

// Pipeline enters pipeline mode, waiting for the connection if it is busy.
func (c *Client) Pipeline(ctx context.Context) (*Pipeline, error) {
	if err := c.lock(ctx); err != nil {
		return nil, err
	}

	p := &Pipeline{c: c, db: -1}
	p.Tables = newTables(p)
	return p, nil
}

// Pipelined runs fn on a new pipeline and executes it. If fn fails the
// queued commands are discarded. fn must issue commands through p; calling
// the tables of c inside fn blocks until ctx ends.
func (c *Client) Pipelined(ctx context.Context, fn func(*Pipeline) error) error {
	p, err := c.Pipeline(ctx)
	if err != nil {
		return err
	}
	if err := fn(p); err != nil {
		p.Discard()
		return err
	}
	return p.Exec(ctx)
}

// Len returns the number of queued commands.
func (p *Pipeline) Len() int {
	if p.pipe == nil {
		return 0
	}
	return p.pipe.Len()
}

// Select switches the pipeline to database db. Before any command is
// queued the switch happens immediately; afterwards a SELECT is queued.
func (p *Pipeline) Select(ctx context.Context, db int) error {
	if p.closed {
		return ErrPipelineClosed
	}
	if err := checkDB(db); err != nil {
		return err
	}
	if p.db == db {
		return nil
	}
	if p.Len() == 0 {
		return p.start(ctx, db)
	}

	p.c.logger.Debug("redis command",
		zap.String("command", "select"),
		zap.Int("db", db),
		zap.Bool("pipeline", true),
	)
	p.pipe.Select(ctx, db)
	p.db = db
	p.selected = true
	return nil
}

// Exec sends the queued commands and leaves pipeline mode. Replies that are
// errors are joined into the returned error; nil replies are not errors.
func (p *Pipeline) Exec(ctx context.Context) error {
	if p.closed {
		return ErrPipelineClosed
	}
	defer p.release()

	n := p.Len()
	if n == 0 {
		return nil
	}
	p.c.metrics.pipelineSize(n)

	cmds, err := p.pipe.Exec(ctx)
	if err != nil && !isReplyError(err) {
		p.c.logger.Warn("redis pipeline failed, dropping connection",
			zap.Int("commands", n),
			zap.Error(err),
		)
		p.c.drop()
		return errors.Join(ErrPipelineExec, err)
	}

	var errs []error
	for _, cmd := range cmds {
		if cerr := cmd.Err(); cerr != nil && !errors.Is(cerr, redis.Nil) {
			errs = append(errs, fmt.Errorf("%s: %w", cmd.Name(), cerr))
		}
	}

	if p.selected && len(errs) > 0 {
		// A failed SELECT leaves the connection's database unknown.
		p.c.db.Store(-1)
	} else {
		p.c.db.Store(int64(p.db))
	}

	if len(errs) > 0 {
		return errors.Join(append([]error{ErrPipelineExec}, errs...)...)
	}
	return nil
}

// Discard drops the queued commands and leaves pipeline mode. It is safe
// to call more than once.
func (p *Pipeline) Discard() {
	if p.closed {
		return
	}
	if p.pipe != nil {
		p.pipe.Discard()
	}
	p.release()
}

func (p *Pipeline) release() {
	p.closed = true
	p.pipe = nil
	p.c.unlock()
}

func (p *Pipeline) start(ctx context.Context, db int) error {
	if err := p.c.connect(ctx, db); err != nil {
		return err
	}
	p.pipe = p.c.conn.Pipeline()
	p.db = db
	return nil
}

func (p *Pipeline) exec(ctx context.Context, db int, name string, fn func(redis.Cmdable) error) error {
	if p.closed {
		return ErrPipelineClosed
	}

	switch {
	case p.pipe == nil:
		if err := p.start(ctx, db); err != nil {
			return err
		}
	case db != p.db:
		return fmt.Errorf("%w: pipeline on db %d, command %s on db %d", ErrDBMismatch, p.db, name, db)
	}

	p.c.logger.Debug("redis command",
		zap.String("command", name),
		zap.Int("db", db),
		zap.Bool("pipeline", true),
	)
	return fn(p.pipe)
}

func (p *Pipeline) query(_ context.Context, _ int, name string, _ func(redis.Cmdable) error) error {
	if p.closed {
		return ErrPipelineClosed
	}
	return fmt.Errorf("%w: %s", ErrPipelineUnsupported, name)
}
