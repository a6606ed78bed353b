package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"redisclient-go/internal/api"
	"redisclient-go/internal/config"
	store "redisclient-go/internal/datastore/redis"
	"redisclient-go/pkg/logger"
	"redisclient-go/pkg/redisclient"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to setup logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("Starting account service",
		zap.String("environment", cfg.Environment),
	)

	opts := []redisclient.Option{
		redisclient.WithDialTimeout(cfg.RedisDialTimeout),
		redisclient.WithReadTimeout(cfg.RedisReadTimeout),
		redisclient.WithWriteTimeout(cfg.RedisWriteTimeout),
		redisclient.WithRetry(cfg.RedisConnectRetries, cfg.RedisConnectInterval),
		redisclient.WithReconnectInterval(cfg.RedisConnectInterval),
		redisclient.WithLogger(log.Named("redis")),
		redisclient.WithMetrics(redisclient.NewMetrics(prometheus.DefaultRegisterer)),
	}
	if cfg.RedisDB >= 0 {
		opts = append(opts, redisclient.WithDB(cfg.RedisDB))
	}

	redisClient, err := redisclient.Open(ctx, cfg.RedisURL, opts...)
	if err != nil {
		log.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			log.Error("Error closing Redis connection", zap.Error(err))
		}
	}()
	log.Info("Connected to Redis", zap.Int("db", redisClient.DB()))

	accounts := store.NewAccountRepository(redisClient, redisClient.DB(), cfg.AccountEventsLimit, log.Named("accounts"))
	router := api.NewRouter(accounts, redisClient, log)

	httpServer := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	// Separate minimal mux so the metrics port exposes nothing else.
	var metricsServer *http.Server
	if cfg.ServesMetricsSeparately() {
		metricsMux := http.NewServeMux()
		metricsMux.Handle("/metrics", promhttp.Handler())
		metricsMux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"status":"ok"}`))
		})
		metricsServer = &http.Server{
			Addr:    ":" + cfg.MetricsPort,
			Handler: metricsMux,
		}
	}

	go runHealthChecks(ctx, redisClient, redisClient.DB(), cfg.HealthCheckInterval, log)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Info("Starting HTTP server", zap.String("port", cfg.HTTPPort))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	if metricsServer != nil {
		go func() {
			log.Info("Starting metrics server", zap.String("port", cfg.MetricsPort))
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error("Metrics server failed", zap.Error(err))
			}
		}()
	}

	<-quit
	log.Info("Shutdown signal received, initiating graceful shutdown...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", zap.Error(err))
	} else {
		log.Info("HTTP server shut down gracefully")
	}

	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			log.Error("Metrics server shutdown error", zap.Error(err))
		}
	}

	log.Info("Account service shutdown complete")
}

// runHealthChecks pings Redis every interval. After a failed ping it
// reconnects to db in the background so the next request does not pay for
// the dial.
func runHealthChecks(ctx context.Context, client *redisclient.Client, db int, interval time.Duration, log *zap.Logger) {
	check := redisclient.Healthcheck(client)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := check(ctx); err != nil {
				log.Warn("Redis health check failed", zap.Error(err))
				if err := client.ConnectBlocking(ctx, db); err != nil && ctx.Err() == nil {
					log.Error("Redis reconnect failed", zap.Error(err))
				}
			}
		}
	}
}
