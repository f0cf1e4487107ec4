package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	"github.com/parley-chat/parley/internal/accounts"
	"github.com/parley-chat/parley/internal/app"
	"github.com/parley-chat/parley/internal/applications"
	"github.com/parley-chat/parley/internal/auth"
	"github.com/parley-chat/parley/internal/authz"
	"github.com/parley-chat/parley/internal/companies"
	"github.com/parley-chat/parley/internal/contacts"
	"github.com/parley-chat/parley/internal/conversations"
	"github.com/parley-chat/parley/internal/observability"
	"github.com/parley-chat/parley/internal/platform/cache"
	"github.com/parley-chat/parley/internal/platform/db"
	"github.com/parley-chat/parley/internal/rbac"
	"github.com/parley-chat/parley/internal/webhooks"
	"github.com/parley-chat/parley/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	if err := rbac.VerifyTable(); err != nil {
		logger.Error("verify permission table", slog.Any("error", err))
		os.Exit(1)
	}

	pool, err := db.New(ctx, cfg.PGDSN, cfg.PGMaxConns)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB}
	jobsClient, err := jobs.NewClient(redisOpts)
	if err != nil {
		logger.Error("init jobs client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobsClient.Close(); err != nil {
			logger.Warn("jobs client close", slog.Any("error", err))
		}
	}()

	accountsRepo := accounts.NewRepository(pool)
	accountsService := accounts.NewService(accountsRepo)

	applicationsRepo := applications.NewRepository(pool)
	applicationsService := applications.NewService(applicationsRepo)

	issuer := auth.NewIssuer(cfg.TokenSecret, cfg.TokenIssuer, cfg.TokenTTL, cfg.RefreshTTL)
	revoker := auth.NewRedisRevoker(redisClient)
	authService := auth.NewService(logger, accountsRepo, applicationsService, issuer, revoker, jobsClient, auth.Config{
		AllowUnverified: cfg.AuthAllowUnverified,
	})
	metrics := observability.NewMetrics()
	authHandler := auth.NewHandler(logger, authService, metrics)
	authMiddleware := auth.NewMiddleware(logger, authService, metrics)

	rbacMiddleware := rbac.Middleware{Logger: logger}

	conversationsRepo := conversations.NewRepository(pool)
	contactsRepo := contacts.NewRepository(pool)
	resolver := authz.NewResolver(logger, conversationsRepo, contactsRepo)

	conversationsService := conversations.NewService(logger, conversationsRepo, resolver)
	contactsService := contacts.NewService(logger, contactsRepo, resolver)

	companiesRepo := companies.NewRepository(pool)
	companiesService := companies.NewService(companiesRepo)

	webhooksRepo := webhooks.NewRepository(pool)
	webhooksService := webhooks.NewService(webhooksRepo)

	inspector := asynq.NewInspector(redisOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	router := app.NewRouter(app.RouterParams{
		Logger:               logger,
		Config:               cfg,
		AuthHandler:          authHandler,
		AuthMiddleware:       authMiddleware,
		AccountsHandler:      accounts.NewHandler(logger, accountsService, rbacMiddleware),
		ApplicationsHandler:  applications.NewHandler(logger, applicationsService, rbacMiddleware),
		CompaniesHandler:     companies.NewHandler(logger, companiesService, rbacMiddleware),
		ContactsHandler:      contacts.NewHandler(logger, contactsService),
		ConversationsHandler: conversations.NewHandler(logger, conversationsService),
		WebhooksHandler:      webhooks.NewHandler(logger, webhooksService, rbacMiddleware),
		JobsHandler:          jobs.NewHandler(inspector, logger),
		Pool:                 pool,
		Metrics:              metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		logger.Error("server", slog.Any("error", err))
		os.Exit(1)
	}
}
