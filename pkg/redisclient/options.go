package redisclient

import (
	"time"

	"go.uber.org/zap"
)

// Option configures a Client.
type Option func(*options)

type options struct {
	username          string
	password          string
	db                int
	dialTimeout       time.Duration
	readTimeout       time.Duration
	writeTimeout      time.Duration
	retryAttempts     int
	retryInterval     time.Duration
	reconnectInterval time.Duration
	logger            *zap.Logger
	metrics           *Metrics
}

func defaultOptions() *options {
	return &options{
		dialTimeout:       5 * time.Second,
		readTimeout:       3 * time.Second,
		writeTimeout:      3 * time.Second,
		retryAttempts:     3,
		retryInterval:     time.Second,
		reconnectInterval: time.Second,
	}
}

// WithCredentials sets the AUTH username and password. Leave username empty
// for servers without ACLs.
func WithCredentials(username, password string) Option {
	return func(o *options) {
		o.username = username
		o.password = password
	}
}

// WithDB sets the database index used by Ping and Open.
// Default: 0
func WithDB(db int) Option {
	return func(o *options) {
		o.db = db
	}
}

// WithDialTimeout sets the timeout for establishing a connection.
// Default: 5 seconds
func WithDialTimeout(d time.Duration) Option {
	return func(o *options) {
		o.dialTimeout = d
	}
}

// WithReadTimeout sets the socket read timeout.
// Default: 3 seconds
func WithReadTimeout(d time.Duration) Option {
	return func(o *options) {
		o.readTimeout = d
	}
}

// WithWriteTimeout sets the socket write timeout.
// Default: 3 seconds
func WithWriteTimeout(d time.Duration) Option {
	return func(o *options) {
		o.writeTimeout = d
	}
}

// WithRetry configures how Open retries the initial connection.
// Default: 3 attempts, 1 second base interval with linear backoff.
func WithRetry(attempts int, interval time.Duration) Option {
	return func(o *options) {
		o.retryAttempts = attempts
		o.retryInterval = interval
	}
}

// WithReconnectInterval sets the pause between attempts in ConnectBlocking.
// Default: 1 second
func WithReconnectInterval(d time.Duration) Option {
	return func(o *options) {
		o.reconnectInterval = d
	}
}

// WithLogger sets the logger. Commands are logged at debug level.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithMetrics attaches Prometheus collectors created by NewMetrics.
func WithMetrics(m *Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}
