/**
 * @description
 * This is the main entry point for the assignment-service. It loads configuration,
 * connects to PostgreSQL, optionally connects to Redis for the candidate lock,
 * wires the rule engine and claim dispatcher to the RabbitMQ assignment queue, and
 * serves the health, metrics and queue diagnostics routes.
 *
 * @dependencies
 * - github.com/jackc/pgx/v5: PostgreSQL driver.
 * - github.com/redis/go-redis/v9, github.com/bsm/redislock: optional candidate lock.
 * - github.com/joho/godotenv: local .env loading.
 * - internal/api, internal/app, internal/config, internal/metrics, internal/store.
 * - pkg/notifierclient, pkg/rabbitmq.
 */

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bsm/redislock"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jaldanatrf/assignment-service/internal/api"
	"github.com/jaldanatrf/assignment-service/internal/app"
	"github.com/jaldanatrf/assignment-service/internal/config"
	"github.com/jaldanatrf/assignment-service/internal/metrics"
	"github.com/jaldanatrf/assignment-service/internal/store"
	"github.com/jaldanatrf/assignment-service/pkg/notifierclient"
	"github.com/jaldanatrf/assignment-service/pkg/rabbitmq"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

func main() {
	// Load .env for local development; in containers the environment is authoritative.
	if err := godotenv.Load(); err != nil {
		logrus.WithField("component", "bootstrap").Debug("no .env file found; using process environment")
	}

	cfg, err := config.LoadConfig(".")
	if err != nil {
		logrus.WithField("component", "bootstrap").WithError(err).Fatal("config load failed")
	}
	logger := config.NewLogger(cfg)
	bootLog := logger.WithField("component", "bootstrap")

	if cfg.DatabaseURL == "" {
		bootLog.Fatal("database url must be configured (DATABASE_URL)")
	}
	if cfg.RabbitMQURL == "" {
		bootLog.Fatal("rabbitmq url must be configured (RABBITMQ_URL)")
	}
	if cfg.InternalAPIKey == "" {
		bootLog.Warn("internal api key not configured; queue diagnostics routes are unauthenticated")
	}

	bootLog.WithField("port", cfg.ServerPort).Info("starting assignment-service")

	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		bootLog.WithError(err).Fatal("database url parse failed")
	}
	poolConfig.MaxConns = 20
	poolConfig.MinConns = 2
	poolConfig.MaxConnLifetime = 30 * time.Minute
	poolConfig.MaxConnIdleTime = 5 * time.Minute
	// Disable prepared statement caching to prevent conflicts behind poolers
	poolConfig.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol

	dbpool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		bootLog.WithError(err).Fatal("database connection failed")
	}
	defer dbpool.Close()
	bootLog.Info("database connected")

	repository := store.NewPostgresRepository(dbpool)

	var locker app.CandidateLocker = app.NoopLocker{}
	if cfg.RedisURL == "" {
		bootLog.Info("redis url not set; candidate lock disabled")
	} else {
		redisOptions, parseErr := redis.ParseURL(cfg.RedisURL)
		if parseErr != nil {
			bootLog.WithError(parseErr).Warn("redis url parse failed; candidate lock disabled")
		} else {
			redisClient := redis.NewClient(redisOptions)
			pingCtx, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
			pingErr := redisClient.Ping(pingCtx).Err()
			cancelPing()
			if pingErr != nil {
				bootLog.WithError(pingErr).Warn("redis ping failed; candidate lock disabled")
				redisClient.Close()
			} else {
				defer redisClient.Close()
				locker = app.NewRedisCandidateLocker(redislock.New(redisClient), cfg.AssignmentLockPrefix, cfg.AssignmentLockTTL(), logger)
				bootLog.Info("redis connected; candidate lock enabled")
			}
		}
	}

	processor := app.NewRuleProcessor(repository, repository, repository, repository, logger)
	dispatcher := app.NewClaimDispatcher(
		processor,
		app.NewLeastLoadSelector(repository),
		app.NewAssignmentWriter(repository, logger),
		logger,
		app.WithNotifier(repository, notifierclient.NewClient(cfg.NotifierTimeout())),
		app.WithCandidateLocker(locker),
	)

	consumer, err := rabbitmq.NewConsumer(rabbitmq.ConsumerConfig{
		URL:                  cfg.RabbitMQURL,
		Queue:                cfg.AssignmentQueue,
		Exchange:             cfg.AssignmentExchange,
		RoutingKey:           cfg.AssignmentRoutingKey,
		MaxReconnectAttempts: cfg.ReconnectMaxAttempts,
		ReconnectDelay:       cfg.ReconnectDelay(),
	}, dispatcher.HandleMessage, logger)
	if err != nil {
		bootLog.WithError(err).Fatal("rabbitmq consumer init failed")
	}
	if err := consumer.Start(context.Background()); err != nil {
		bootLog.WithError(err).Fatal("rabbitmq consumer start failed")
	}
	metrics.RegisterConsumerStatus(consumer.IsConnected, consumer.ReconnectAttempts)

	router := api.NewRouter(api.NewHandler(consumer, logger), cfg.InternalAPIKey)
	serverAddr := fmt.Sprintf(":%s", cfg.ServerPort)
	server := &http.Server{
		Addr:              serverAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	httpLog := logger.WithField("component", "http")
	go func() {
		httpLog.WithField("addr", serverAddr).Info("server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			httpLog.WithError(err).Fatal("server stopped unexpectedly")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	httpLog.Info("shutdown started")

	// Stop consuming first so the in-flight claim finishes before the pool closes.
	consumer.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		httpLog.WithError(err).Error("shutdown failed")
	}

	httpLog.Info("shutdown complete")
}
