package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/config"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/notification"
	"github.com/spec-kit/helpdesk/internal/observability"
	"github.com/spec-kit/helpdesk/internal/persistence"
	"github.com/spec-kit/helpdesk/internal/repository"
	"github.com/spec-kit/helpdesk/internal/triage"
)

// The triage worker consumes ticket-created events from RabbitMQ and runs the
// classification, assignment, and notification pipeline for each one.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	if cfg.RabbitMQ.DSN == "" {
		logger.Fatal("RABBITMQ_DSN is required for the triage worker")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	var stepLog triage.StepLog
	if err := redis.Ping(ctx); err != nil {
		logger.Warn("redis unavailable, using in-memory step log", zap.Error(err))
		stepLog = triage.NewMemoryStepLog()
	} else {
		stepLog = triage.NewRedisStepLog(redis.Client, cfg.Triage.StepLogTTL())
	}

	var mailer notification.Mailer
	if cfg.SMTP.Host != "" {
		smtp, err := notification.NewSMTPMailer(cfg.SMTP)
		if err != nil {
			logger.Fatal("failed to init smtp mailer", zap.Error(err))
		}
		mailer = smtp
	} else {
		mailer = notification.NewLogMailer(logger)
	}

	pool := pg.PoolHandle()
	pipeline := triage.NewPipeline(cfg.Triage, cfg.App.BaseURL, triage.Dependencies{
		Tickets:    repository.NewTicketRepository(pool),
		Users:      repository.NewUserRepository(pool),
		Classifier: triage.NewLLMClassifier(cfg.Classifier, logger),
		Mailer:     mailer,
		StepLog:    stepLog,
		Logger:     logger,
		Metrics:    observability.NewMetrics(),
	})

	conn, err := amqp.Dial(cfg.RabbitMQ.DSN)
	if err != nil {
		logger.Fatal("failed to connect rabbitmq", zap.Error(err))
	}
	defer conn.Close()

	consumer, err := events.NewConsumer(conn, cfg.RabbitMQ.Queue, logger)
	if err != nil {
		logger.Fatal("failed to init consumer", zap.Error(err))
	}
	defer consumer.Close()

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		logger.Info("shutting down", zap.String("signal", sig.String()))
		cancel()
	}()

	logger.Info("triage worker started", zap.String("queue", cfg.RabbitMQ.Queue))
	if err := consumer.Run(ctx, pipeline.HandleTicketCreated); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal("consumer stopped", zap.Error(err))
	}
}
