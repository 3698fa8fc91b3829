package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	sentryecho "github.com/getsentry/sentry-go/echo"
	"github.com/hibiken/asynq"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"closetapi/config"
	"closetapi/controllers"
	"closetapi/dbhelper"
	"closetapi/logging"
	"closetapi/metrics"
	"closetapi/services"
	"closetapi/stylist"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	logging.Setup(cfg.Log)

	err = sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.SentryDSN,
		Environment:      cfg.Env,
		Release:          cfg.Release,
		TracesSampleRate: 1.0,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("sentry.Init")
	}
	defer sentry.Flush(2 * time.Second)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := dbhelper.SetupDB(cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("setup db")
	}

	awsService, err := services.NewAWSService(ctx, cfg.R2)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize AWS provider: S3")
	}
	urlCache, err := services.NewURLCacheService(awsService, cfg.R2.URLCacheTTL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize URL cache service")
	}

	chat, err := services.NewOpenAIChatService(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL, cfg.Stylist.Model, nil)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize chat completion client")
	}

	asynqClient := asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.BrokerAddress})
	defer asynqClient.Close()

	reg := metrics.NewRegistry("closetapi")
	e := controllers.SetupServer(controllers.ServerDeps{
		JWTSecret:  cfg.JWTSecret,
		Clothes:    dbhelper.NewClothesStore(db),
		PushTokens: dbhelper.NewPushTokenStore(db),
		AWSService: awsService,
		URLCache:   urlCache,
		Tasks:      asynqClient,
		Stylist:    stylist.NewOrchestrator(chat, stylist.WithTimeout(cfg.Stylist.Timeout), stylist.WithMetrics(reg)),
		Sessions:   stylist.NewStore(cfg.Stylist.SessionTTL),
		Metrics:    reg,
	})
	e.Use(middleware.RateLimiter(middleware.NewRateLimiterMemoryStore(rate.Limit(cfg.RateLimit))))
	e.Use(middleware.Recover())
	e.Use(sentryecho.New(sentryecho.Options{Repanic: true}))

	go func() {
		log.Info().Str("address", cfg.Address).Msg("api listening")
		if err := e.Start(cfg.Address); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server stopped")
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown")
	}
}
