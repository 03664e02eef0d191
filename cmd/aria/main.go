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

	"github.com/aria-id/aria-id/internal/account"
	"github.com/aria-id/aria-id/internal/app"
	"github.com/aria-id/aria-id/internal/identity"
	"github.com/aria-id/aria-id/internal/mailer"
	"github.com/aria-id/aria-id/internal/observability"
	"github.com/aria-id/aria-id/internal/platform/cache"
	"github.com/aria-id/aria-id/internal/platform/db"
	"github.com/aria-id/aria-id/internal/signin"
	"github.com/aria-id/aria-id/internal/vercode"
	"github.com/aria-id/aria-id/jobs"
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

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		// The throttle fails open and the mail queue degrades to logging,
		// so a missing redis is survivable in development.
		logger.Warn("connect redis", slog.Any("error", err))
		redisClient = nil
	}
	defer func() {
		if redisClient == nil {
			return
		}
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sender := mailer.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPFrom, nil)

	userRepo := identity.NewRepository(pool)
	hasher := identity.NewBcryptHasher(0)
	authService := identity.NewService(userRepo, hasher, identity.LinkPolicy(cfg.LinkPolicy), logger)

	codeRepo := vercode.NewRepository(pool)
	limiter := vercode.NewResendLimiter(redisClient, cfg.CodeResendWindow)
	codeEngine := vercode.NewEngine(codeRepo, userRepo, sender, limiter, cfg.CodeTTL, logger)

	var welcome account.WelcomeQueue
	var jobsClient *jobs.Client
	if redisClient != nil {
		jobsClient, err = jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
		if err != nil {
			logger.Warn("init job client", slog.Any("error", err))
		} else {
			welcome = jobsClient
			defer func() {
				if err := jobsClient.Close(); err != nil {
					logger.Warn("job client close", slog.Any("error", err))
				}
			}()
		}
	}

	accountService := account.NewService(codeEngine, userRepo, hasher, welcome, logger)
	accountHandler := account.NewHandler(logger, codeEngine, accountService)

	enricher := signin.NewEnricher([]byte(cfg.AuthSecret), cfg.SessionMaxAge, cfg.SessionUpdateAge)
	signInHandler := signin.NewHandler(logger, authService, enricher, cfg.BaseURL)

	metrics := observability.NewMetrics()

	router := app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         cfg,
		AccountHandler: accountHandler,
		SignInHandler:  signInHandler,
		Metrics:        metrics,
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
		logger.Error("server exit", slog.Any("error", err))
		os.Exit(1)
	}
}
