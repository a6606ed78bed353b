// Package redisclient is a thin command layer over [github.com/redis/go-redis/v9]
// that keeps one connection per Client and tracks which database is
// selected on it.
//
// Commands are grouped by data type into tables (Key, String, Hash, List,
// Set, SortedSet). Every command names its database explicitly; the client
// issues SELECT only when the index changes.
//
// # Connection handling
//
// New never dials. The first command connects and selects its database.
// When a command fails for any reason other than an error reply from the
// server, the connection is closed and the command is retried once on a
// fresh connection. Context cancellation is never retried.
//
// ConnectBlocking retries until the server is reachable, which suits
// long-running workers started before Redis.
//
// # Hashes
//
// The Hash table maps structs onto hashes using the tags understood by
// [redisclient-go/pkg/hashdesc]:
//
//	type Account struct {
//	    ID       int64  `redis:"id"`
//	    Username string `redis:"username,maxlen=32"`
//	    VIP      int    `redis:"vip"`
//	}
//
//	err := client.Hash.HSetAll(ctx, 0, "account:1", &acct)
//	err = client.Hash.HMGet(ctx, 0, "account:1", &acct, "username", "vip")
//
// # Pipelines
//
// A Pipeline owns the connection until Exec or Discard and exposes the same
// tables. Only commands that change data can be queued:
//
//	err := client.Pipelined(ctx, func(p *redisclient.Pipeline) error {
//	    if err := p.Hash.HSetAll(ctx, 0, key, &acct); err != nil {
//	        return err
//	    }
//	    return p.Set.SAdd(ctx, 0, "usernames", acct.Username)
//	})
//
// # Metrics
//
// NewMetrics registers Prometheus collectors; pass them with WithMetrics.
package redisclient
