package redisclient

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
)

// Metrics holds the Prometheus collectors for a Client. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	commands     *prometheus.CounterVec
	duration     *prometheus.HistogramVec
	pipelines    *prometheus.CounterVec
	pipelineCmds prometheus.Histogram
	dials        *prometheus.CounterVec
	reconnects   prometheus.Counter
}

// NewMetrics registers the client collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		commands: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "redisclient_commands_total",
				Help: "Total Redis commands by command name and outcome",
			},
			[]string{"command", "status"},
		),
		duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "redisclient_command_duration_seconds",
				Help:    "Redis command round trip in seconds",
				Buckets: []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"command"},
		),
		pipelines: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "redisclient_pipelines_total",
				Help: "Total pipeline executions by outcome",
			},
			[]string{"status"},
		),
		pipelineCmds: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "redisclient_pipeline_size",
				Help:    "Commands sent per pipeline execution",
				Buckets: prometheus.ExponentialBuckets(1, 2, 8),
			},
		),
		dials: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "redisclient_dials_total",
				Help: "Total connection attempts by outcome",
			},
			[]string{"status"},
		),
		reconnects: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "redisclient_reconnects_total",
				Help: "Total commands retried on a fresh connection",
			},
		),
	}
}

func (m *Metrics) reconnected() {
	if m == nil {
		return
	}
	m.reconnects.Inc()
}

func (m *Metrics) pipelineSize(n int) {
	if m == nil {
		return
	}
	m.pipelineCmds.Observe(float64(n))
}

func (m *Metrics) hook() redis.Hook {
	return metricsHook{m: m}
}

// status labels a command outcome. Nil replies are a normal result.
func status(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, redis.Nil):
		return "nil"
	case isReplyError(err):
		return "error"
	default:
		return "transport_error"
	}
}

type metricsHook struct {
	m *Metrics
}

func (h metricsHook) DialHook(next redis.DialHook) redis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		conn, err := next(ctx, network, addr)
		if err != nil {
			h.m.dials.WithLabelValues("error").Inc()
		} else {
			h.m.dials.WithLabelValues("ok").Inc()
		}
		return conn, err
	}
}

func (h metricsHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		start := time.Now()
		err := next(ctx, cmd)
		h.m.duration.WithLabelValues(cmd.Name()).Observe(time.Since(start).Seconds())
		h.m.commands.WithLabelValues(cmd.Name(), status(cmd.Err())).Inc()
		return err
	}
}

func (h metricsHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		err := next(ctx, cmds)
		for _, cmd := range cmds {
			h.m.commands.WithLabelValues(cmd.Name(), status(cmd.Err())).Inc()
		}
		if err != nil && !isReplyError(err) {
			h.m.pipelines.WithLabelValues("error").Inc()
		} else {
			h.m.pipelines.WithLabelValues("ok").Inc()
		}
		return err
	}
}
