// Command demo walks through every command table against a live server:
//
//	demo [flags] <redis_server_ip> <redis_server_port>
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net"
	"os"
	"os/signal"
	"strconv"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"redisclient-go/pkg/logger"
	"redisclient-go/pkg/redisclient"
)

const prog = "demo"

type options struct {
	addr      string
	db        int
	logLevel  string
	logFormat string
	timeout   time.Duration
}

// demoAccount is the hash layout used by the hash section.
type demoAccount struct {
	ID       int64  `redis:"id"`
	Username string `redis:"username,maxlen=32"`
	Password string `redis:"password,maxlen=32"`
	VIP      int    `redis:"vip"`
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", prog, err)
		os.Exit(1)
	}
}

func parseOptions(args []string, out io.Writer) (*options, error) {
	var opts options

	fs := pflag.NewFlagSet(prog, pflag.ContinueOnError)
	fs.SetOutput(out)
	fs.Usage = func() {
		fmt.Fprintf(out, "usage: %s [flags] <redis_server_ip> <redis_server_port>\n\n", prog)
		fs.PrintDefaults()
	}
	fs.IntVarP(&opts.db, "db", "n", 0, "database index to run the demo in")
	fs.StringVar(&opts.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	fs.StringVar(&opts.logFormat, "log-format", "console", "log format (json or console)")
	fs.DurationVar(&opts.timeout, "timeout", 30*time.Second, "overall time limit")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() != 2 {
		fs.Usage()
		return nil, errors.New("expected server ip and port")
	}
	if _, err := strconv.ParseUint(fs.Arg(1), 10, 16); err != nil {
		return nil, fmt.Errorf("invalid port %q", fs.Arg(1))
	}

	opts.addr = net.JoinHostPort(fs.Arg(0), fs.Arg(1))
	return &opts, nil
}

func run(ctx context.Context, args []string, out io.Writer) error {
	opts, err := parseOptions(args, out)
	if err != nil {
		return err
	}

	log, err := logger.New(opts.logLevel, opts.logFormat)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, cancel := context.WithTimeout(ctx, opts.timeout)
	defer cancel()

	client, err := redisclient.New(opts.addr,
		redisclient.WithDB(opts.db),
		redisclient.WithLogger(log),
	)
	if err != nil {
		return err
	}
	defer client.Close()

	if err := client.ConnectBlocking(ctx, opts.db); err != nil {
		return fmt.Errorf("connect to %s: %w", opts.addr, err)
	}
	log.Info("connected", zap.String("addr", opts.addr), zap.Int("db", opts.db))

	d := &demo{c: client, db: opts.db, out: out}
	for _, section := range []struct {
		name string
		fn   func(context.Context) error
	}{
		{"KEY", d.keys},
		{"STRING", d.strings},
		{"SET", d.sets},
		{"SORTEDSET", d.sortedSets},
		{"LIST", d.lists},
		{"HASH", d.hashes},
		{"PIPELINE", d.pipeline},
	} {
		d.printf("===============TEST %s===============\n", section.name)
		if err := section.fn(ctx); err != nil {
			return fmt.Errorf("%s: %w", section.name, err)
		}
		d.printf("\n")
	}
	return nil
}

type demo struct {
	c   *redisclient.Client
	db  int
	out io.Writer
}

func (d *demo) printf(format string, args ...interface{}) {
	fmt.Fprintf(d.out, format, args...)
}

func (d *demo) keys(ctx context.Context) error {
	if err := d.c.Set.SAdd(ctx, d.db, "set", "member1"); err != nil {
		return err
	}
	ok, err := d.c.Key.Exists(ctx, d.db, "set")
	if err != nil {
		return err
	}
	d.printf("key `set' exists: %t\n", ok)

	if err := d.c.Key.Expire(ctx, d.db, "set", 10*time.Second); err != nil {
		return err
	}
	ttl, err := d.c.Key.TTL(ctx, d.db, "set")
	if err != nil {
		return err
	}
	d.printf("key `set' ttl: %s\n", ttl)

	if err := d.c.Key.Persist(ctx, d.db, "set"); err != nil {
		return err
	}
	return d.c.Key.Del(ctx, d.db, "set")
}

func (d *demo) strings(ctx context.Context) error {
	if err := d.c.String.Nop(ctx, d.db); err != nil {
		return err
	}
	d.printf("String.Nop: success\n")

	if err := d.c.String.Set(ctx, d.db, "counter", "41", 0); err != nil {
		return err
	}
	n, err := d.c.String.IncrBy(ctx, d.db, "counter", 1)
	if err != nil {
		return err
	}
	v, err := d.c.String.Get(ctx, d.db, "counter")
	if err != nil {
		return err
	}
	d.printf("counter: %d (stored %q)\n", n, v)
	return d.c.Key.Del(ctx, d.db, "counter")
}

func (d *demo) sets(ctx context.Context) error {
	if err := d.c.Set.SAdd(ctx, d.db, "set", "member1", "member2"); err != nil {
		return err
	}
	ok, err := d.c.Set.SIsMember(ctx, d.db, "set", "member1")
	if err != nil {
		return err
	}
	d.printf("\"member1\" in set: %t\n", ok)

	members, err := d.c.Set.SMembers(ctx, d.db, "set")
	if err != nil {
		return err
	}
	d.printf("Set.SMembers\n")
	for _, m := range members {
		d.printf("\t%s\n", m)
	}

	members, err = d.c.Set.SScan(ctx, d.db, "set", "member*", 100)
	if err != nil {
		return err
	}
	d.printf("Set.SScan\n")
	for _, m := range members {
		d.printf("\t%s\n", m)
	}
	return d.c.Set.SRem(ctx, d.db, "set", "member1", "member2")
}

func (d *demo) sortedSets(ctx context.Context) error {
	if err := d.c.SortedSet.ZAdd(ctx, d.db, "sortedset", 100, "member1"); err != nil {
		return err
	}
	if err := d.c.SortedSet.ZAdd(ctx, d.db, "sortedset", 101, "member2"); err != nil {
		return err
	}
	if err := d.c.SortedSet.ZIncrBy(ctx, d.db, "sortedset", 0.5, "member2"); err != nil {
		return err
	}

	n, err := d.c.SortedSet.ZCount(ctx, d.db, "sortedset", math.Inf(-1), math.Inf(1))
	if err != nil {
		return err
	}
	d.printf("SortedSet.ZCount: %d\n", n)

	score, err := d.c.SortedSet.ZScore(ctx, d.db, "sortedset", "member2")
	if err != nil {
		return err
	}
	d.printf("SortedSet.ZScore member2: %g\n", score)

	byRank, err := d.c.SortedSet.ZRangeWithScores(ctx, d.db, "sortedset", 0, -1)
	if err != nil {
		return err
	}
	d.printf("SortedSet.ZRangeWithScores\n")
	for _, m := range byRank {
		d.printf("\t%s %g\n", m.Member, m.Score)
	}

	byScore, err := d.c.SortedSet.ZRangeByScore(ctx, d.db, "sortedset", 101, math.Inf(1))
	if err != nil {
		return err
	}
	d.printf("SortedSet.ZRangeByScore [101, +inf): %v\n", byScore)

	scanned, err := d.c.SortedSet.ZScan(ctx, d.db, "sortedset", "*", 100)
	if err != nil {
		return err
	}
	d.printf("SortedSet.ZScan: %d members\n", len(scanned))

	return d.c.SortedSet.ZRem(ctx, d.db, "sortedset", "member1", "member2")
}

func (d *demo) lists(ctx context.Context) error {
	if err := d.c.List.RPush(ctx, d.db, "list", "b", "c"); err != nil {
		return err
	}
	if err := d.c.List.LPush(ctx, d.db, "list", "a"); err != nil {
		return err
	}
	n, err := d.c.List.LLen(ctx, d.db, "list")
	if err != nil {
		return err
	}
	items, err := d.c.List.LRange(ctx, d.db, "list", 0, -1)
	if err != nil {
		return err
	}
	d.printf("List.LRange (%d): %v\n", n, items)

	head, err := d.c.List.LPop(ctx, d.db, "list")
	if err != nil {
		return err
	}
	tail, err := d.c.List.BRPop(ctx, d.db, "list", time.Second)
	if err != nil {
		return err
	}
	d.printf("List.LPop: %s, List.BRPop: %s\n", head, tail)

	if _, err := d.c.List.LRem(ctx, d.db, "list", 0, "b"); err != nil {
		return err
	}
	if _, err := d.c.List.RPop(ctx, d.db, "list"); !errors.Is(err, redisclient.ErrNotFound) {
		return fmt.Errorf("expected empty list, got %v", err)
	}
	d.printf("list drained\n")
	return nil
}

func (d *demo) hashes(ctx context.Context) error {
	const key = "1001_00000001"
	var account demoAccount

	if err := d.c.Hash.HSet(ctx, d.db, key, &account, "id"); err != nil {
		return err
	}
	account.Username = "halberdholder"
	if err := d.c.Hash.HSetAll(ctx, d.db, key, &account); err != nil {
		return err
	}
	account.Password = "123445"
	if err := d.c.Hash.HMSet(ctx, d.db, key, &account, "username", "password"); err != nil {
		return err
	}
	if err := d.c.Hash.HSetValue(ctx, d.db, key, "password", account.Password); err != nil {
		return err
	}
	if err := d.c.Hash.HIncrBy(ctx, d.db, key, "vip", 2); err != nil {
		return err
	}

	account = demoAccount{}
	if err := d.c.Hash.HGetAll(ctx, d.db, key, &account); err != nil {
		return err
	}
	d.printf("Hash.HGetAll\n")
	d.printf("\tid: %d\n", account.ID)
	d.printf("\tusername: %s\n", account.Username)
	d.printf("\tpassword: %s\n", account.Password)
	d.printf("\tvip: %d\n", account.VIP)

	if err := d.c.Hash.HDel(ctx, d.db, key, "password"); err != nil {
		return err
	}
	ok, err := d.c.Hash.HExists(ctx, d.db, key, "password")
	if err != nil {
		return err
	}
	d.printf("password present after HDel: %t\n", ok)

	if err := d.c.Hash.HMGet(ctx, d.db, key, &account, "username", "vip"); err != nil {
		return err
	}
	name, err := d.c.Hash.HGetValue(ctx, d.db, key, "username")
	if err != nil {
		return err
	}
	d.printf("Hash.HGetValue username: %s\n", name)

	if err := d.c.Hash.HGet(ctx, d.db, key, &account, "password"); !errors.Is(err, redisclient.ErrNotFound) {
		return fmt.Errorf("expected missing password, got %v", err)
	}
	return d.c.Key.Del(ctx, d.db, key)
}

func (d *demo) pipeline(ctx context.Context) error {
	err := d.c.Pipelined(ctx, func(p *redisclient.Pipeline) error {
		if err := p.String.Set(ctx, d.db, "pipelined", "1", time.Minute); err != nil {
			return err
		}
		if err := p.Set.SAdd(ctx, d.db, "pipelined:set", "a", "b"); err != nil {
			return err
		}
		if err := p.SortedSet.ZAdd(ctx, d.db, "pipelined:zset", 1, "a"); err != nil {
			return err
		}
		d.printf("queued %d commands\n", p.Len())
		return nil
	})
	if err != nil {
		return err
	}

	members, err := d.c.Set.SMembers(ctx, d.db, "pipelined:set")
	if err != nil {
		return err
	}
	d.printf("pipelined set has %d members\n", len(members))

	return d.c.Pipelined(ctx, func(p *redisclient.Pipeline) error {
		for _, key := range []string{"pipelined", "pipelined:set", "pipelined:zset"} {
			if err := p.Key.Del(ctx, d.db, key); err != nil {
				return err
			}
		}
		return nil
	})
}
