package redisclient

import (
	"context"
	"errors"
)

// Healthcheck returns a closure that pings the server, for health endpoints
// and periodic probes.
func Healthcheck(client *Client) func(context.Context) error {
	return func(ctx context.Context) error {
		if client == nil {
			return ErrHealthcheckFailed
		}
		if err := client.Ping(ctx); err != nil {
			return errors.Join(ErrHealthcheckFailed, err)
		}
		return nil
	}
}
