package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/account-service/internal/api/http"
	"github.com/spec-kit/account-service/internal/api/http/handlers"
	"github.com/spec-kit/account-service/internal/auth"
	"github.com/spec-kit/account-service/internal/config"
	"github.com/spec-kit/account-service/internal/identity"
	"github.com/spec-kit/account-service/internal/mail"
	"github.com/spec-kit/account-service/internal/observability"
	"github.com/spec-kit/account-service/internal/persistence"
	"github.com/spec-kit/account-service/internal/repository"
	"github.com/spec-kit/account-service/internal/service"
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
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), cfg.Postgres.MigrationsDir, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()

	pool := pg.PoolHandle()
	store := identity.NewManager(identity.ManagerDependencies{
		Accounts: repository.NewAccountRepository(pool),
		Roles:    repository.NewRoleRepository(pool),
		Profiles: repository.NewProfileRepository(pool),
		Actions:  repository.NewActionTokenRepository(redis.Client),
	}, identity.Options{
		BcryptCost:     cfg.Auth.BcryptCost,
		ActionTokenTTL: cfg.Auth.ActionTokenTTL(),
	})

	mailer, err := newDispatcher(cfg.Mail, logger)
	if err != nil {
		logger.Fatal("failed to init mail dispatcher", zap.Error(err))
	}

	tokens := auth.NewTokenIssuer(cfg.Auth)
	sessions := service.NewSessionService(*cfg, service.SessionDependencies{
		Store:  store,
		Tokens: tokens,
		Mailer: mailer,
		Logger: logger,
	})

	metrics := observability.NewMetrics()
	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  cfg.App.RequestTimeout(),
		WriteTimeout: cfg.App.RequestTimeout(),
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:                 handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis, metrics),
		Account:                handlers.NewAccountHandler(sessions),
		AuthMiddleware:         auth.NewAuthMiddleware(tokens),
		AllowAdminRegistration: cfg.Auth.AllowAdminRegistration,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Warn("shutdown", zap.Error(err))
	}
}

func newDispatcher(cfg config.MailConfig, logger *zap.Logger) (mail.Dispatcher, error) {
	if cfg.SMTPHost == "" {
		logger.Warn("MAIL_SMTP_HOST not set; action emails are logged, not sent")
		return mail.NewLogDispatcher(logger), nil
	}
	renderer, err := mail.NewRenderer(cfg.TemplatePath, cfg.FromName)
	if err != nil {
		return nil, err
	}
	return mail.NewSMTPDispatcher(cfg, renderer, logger)
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
