package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/helpdesk-service/internal/api/http"
	"github.com/spec-kit/helpdesk-service/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/clock"
	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/limiter"
	"github.com/spec-kit/helpdesk-service/internal/notify"
	"github.com/spec-kit/helpdesk-service/internal/observability"
	"github.com/spec-kit/helpdesk-service/internal/persistence"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	"github.com/spec-kit/helpdesk-service/internal/service"
	"github.com/spec-kit/helpdesk-service/internal/sso"
	"github.com/spec-kit/helpdesk-service/internal/worker"
)

func main() {
	var envFile string
	var migrateOnly bool

	flagSet := pflag.NewFlagSet("helpdesk-api", pflag.ContinueOnError)
	flagSet.StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	flagSet.BoolVar(&migrateOnly, "migrate", false, "apply ticket history migrations and exit")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		log.Fatalf("invalid flags: %v", err)
	}

	cfg, err := config.Load(envFile)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	if err := run(cfg, logger, migrateOnly); err != nil {
		logger.Fatal("service stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger, migrateOnly bool) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	historyStore, err := persistence.OpenHistoryStore(ctx, cfg.Postgres, logger)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer historyStore.Close()

	if cfg.Postgres.RunMigrations || migrateOnly {
		if err := historyStore.Migrate(ctx, cfg.Postgres.MigrationsDir, logger); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
	}
	if migrateOnly {
		return nil
	}

	connectCtx, connectCancel := context.WithTimeout(ctx, cfg.Mongo.ConnectTimeout()+time.Second)
	mongoStore, err := persistence.NewMongo(connectCtx, cfg.Mongo, logger)
	connectCancel()
	if err != nil {
		return fmt.Errorf("connect mongo: %w", err)
	}
	defer mongoStore.Close(context.Background())

	redisStore := persistence.NewRedis(cfg.Redis, logger)
	defer redisStore.Close()

	metrics := observability.NewMetrics("helpdesk")
	dispatcher := events.NewInMemoryDispatcher(logger)
	if len(cfg.Kafka.Brokers) > 0 {
		sink := events.NewKafkaSink(events.NewKafkaWriter(cfg.Kafka.Brokers, cfg.Kafka.Topic, logger))
		defer sink.Close() //nolint:errcheck
		worker.StartEventForwarder(dispatcher, sink.Handle, logger)
	}

	ticketRepo := repository.NewTicketRepository(mongoStore.Collection(cfg.Mongo.TicketCollection))
	var historyRepo repository.TicketHistoryRepository
	if historyStore.Enabled() {
		historyRepo = repository.NewTicketHistoryRepository(historyStore.Pool())
	}

	if cfg.Telegram.BotToken == "" {
		logger.Warn("TELEGRAM_BOT_TOKEN not provided; telegram notifications disabled")
	}
	if cfg.WhatsApp.GatewayURL == "" {
		logger.Warn("WHATSAPP_GATEWAY_URL not provided; whatsapp notifications disabled")
	}
	notifier := notify.NewNotifier(
		notify.NewTelegramTransport(cfg.Telegram.BotToken, cfg.Telegram.APIEndpoint, &http.Client{Timeout: cfg.Telegram.Timeout()}),
		notify.NewWhatsAppTransport(cfg.WhatsApp.GatewayURL, cfg.WhatsApp.Timeout()),
	)
	notifications := service.NewNotificationService(notifier, logger, metrics)

	gateway, err := sso.NewGateway(sso.Config{Endpoints: cfg.SSO.URLs, AttemptTimeout: cfg.SSO.AttemptTimeout()}, logger)
	if err != nil {
		return err
	}
	tokens, err := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL())
	if err != nil {
		return err
	}

	systemClock := clock.NewSystem()
	authService := service.NewAuthService(service.AuthDependencies{
		Provider: gateway,
		Tokens:   tokens,
		Limiter:  limiter.NewFixedWindow(redisStore.Client, "helpdesk:login:", cfg.Auth.LoginAttemptLimit, cfg.Auth.LoginWindow()),
		Logger:   logger,
		Metrics:  metrics,
	})
	statusService := service.NewStatusService(service.StatusDependencies{
		TicketRepo:  ticketRepo,
		HistoryRepo: historyRepo,
		Dispatcher:  dispatcher,
		Notifier:    notifications,
		Clock:       systemClock,
		Metrics:     metrics,
		Logger:      logger,
	})
	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:  ticketRepo,
		HistoryRepo: historyRepo,
		Dispatcher:  dispatcher,
		Notifier:    notifications,
		Clock:       systemClock,
		Logger:      logger,
	})
	assignmentService := service.NewAssignmentService(service.AssignmentDependencies{
		TicketRepo:  ticketRepo,
		HistoryRepo: historyRepo,
		Dispatcher:  dispatcher,
		Clock:       systemClock,
		Logger:      logger,
	})

	app := httptransport.NewApp(cfg.App.Name, httptransport.MiddlewareConfig{
		Logger:      logger,
		Metrics:     metrics,
		Timeout:     cfg.App.RequestTimeout(),
		CORSOrigins: cfg.App.CORSOrigins,
	}, httptransport.RouteConfig{
		Health: handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version,
			handlers.DependencyCheck{Name: "mongo", Pinger: mongoStore},
			handlers.DependencyCheck{Name: "postgres", Pinger: historyStore},
			handlers.DependencyCheck{Name: "redis", Pinger: redisStore, Optional: true},
		),
		Auth:           handlers.NewAuthHandler(authService),
		Tickets:        handlers.NewTicketsHandler(ticketService, statusService, assignmentService),
		AuthMiddleware: auth.NewAuthMiddleware(tokens),
		Metrics:        metrics,
	})

	listenErr := make(chan error, 1)
	go func() {
		logger.Info("http server listening", zap.String("addr", cfg.App.Addr()))
		listenErr <- app.Listen(cfg.App.Addr())
	}()

	select {
	case err := <-listenErr:
		return fmt.Errorf("fiber listen: %w", err)
	case sig := <-shutdownSignal():
		logger.Info("shutting down", zap.String("signal", sig.String()))
	}
	return app.ShutdownWithTimeout(10 * time.Second)
}

func shutdownSignal() <-chan os.Signal {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	return sigCh
}
