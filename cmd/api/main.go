package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/helpdesk/internal/api/http"
	"github.com/spec-kit/helpdesk/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/config"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/notification"
	"github.com/spec-kit/helpdesk/internal/observability"
	"github.com/spec-kit/helpdesk/internal/persistence"
	"github.com/spec-kit/helpdesk/internal/repository"
	"github.com/spec-kit/helpdesk/internal/service"
	"github.com/spec-kit/helpdesk/internal/triage"
)

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

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	metrics := observability.NewMetrics()

	pool := pg.PoolHandle()
	userRepo := repository.NewUserRepository(pool)
	ticketRepo := repository.NewTicketRepository(pool)
	commentRepo := repository.NewCommentRepository(pool)
	resetRepo := repository.NewPasswordResetRepository(pool)

	publisher, cleanup, err := buildPublisher(cfg, logger, metrics, userRepo, ticketRepo, redis)
	if err != nil {
		logger.Fatal("failed to init event publisher", zap.Error(err))
	}
	defer cleanup()

	authService := service.NewAuthService(*cfg, service.AuthDependencies{
		UserRepo:          userRepo,
		PasswordResetRepo: resetRepo,
	})
	userService := service.NewUserService(userRepo, cfg.Auth.BcryptCost)
	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:  ticketRepo,
		CommentRepo: commentRepo,
		UserRepo:    userRepo,
		Publisher:   publisher,
		Logger:      logger,
	})
	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), userRepo)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(pool, redis),
		Users:          handlers.NewUsersHandler(authService, userService),
		Tickets:        handlers.NewTicketsHandler(ticketService),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

// buildPublisher picks the event transport. With a broker DSN the API only
// publishes; without one the triage pipeline runs in-process on create.
func buildPublisher(
	cfg *config.Config,
	logger *zap.Logger,
	metrics *observability.Metrics,
	userRepo repository.UserRepository,
	ticketRepo repository.TicketRepository,
	redis *persistence.Redis,
) (events.Publisher, func(), error) {
	if cfg.RabbitMQ.DSN != "" {
		conn, err := amqp.Dial(cfg.RabbitMQ.DSN)
		if err != nil {
			return nil, nil, err
		}
		publisher, err := events.NewAMQPPublisher(conn, cfg.RabbitMQ.Queue)
		if err != nil {
			conn.Close()
			return nil, nil, err
		}
		logger.Info("publishing ticket events to rabbitmq", zap.String("queue", cfg.RabbitMQ.Queue))
		return publisher, func() {
			publisher.Close()
			_ = conn.Close()
		}, nil
	}

	var stepLog triage.StepLog
	if err := redis.Ping(context.Background()); err != nil {
		logger.Warn("redis unavailable, using in-memory step log", zap.Error(err))
		stepLog = triage.NewMemoryStepLog()
	} else {
		stepLog = triage.NewRedisStepLog(redis.Client, cfg.Triage.StepLogTTL())
	}

	var mailer notification.Mailer
	if cfg.SMTP.Host != "" {
		smtp, err := notification.NewSMTPMailer(cfg.SMTP)
		if err != nil {
			return nil, nil, err
		}
		mailer = smtp
	} else {
		mailer = notification.NewLogMailer(logger)
	}

	pipeline := triage.NewPipeline(cfg.Triage, cfg.App.BaseURL, triage.Dependencies{
		Tickets:    ticketRepo,
		Users:      userRepo,
		Classifier: triage.NewLLMClassifier(cfg.Classifier, logger),
		Mailer:     mailer,
		StepLog:    stepLog,
		Logger:     logger,
		Metrics:    metrics,
	})
	logger.Info("no broker configured, running triage in-process")
	return events.NewInProcessPublisher(pipeline.HandleTicketCreated, logger), func() {}, nil
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
