package main

import (
	"context"
	"time"

	firebase "firebase.google.com/go/v4"
	"github.com/getsentry/sentry-go"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog/log"

	"closetapi/config"
	"closetapi/dbhelper"
	"closetapi/logging"
	"closetapi/metrics"
	"closetapi/services"
	"closetapi/tasks"
)

func runScheduler(redis asynq.RedisClientOpt) {
	scheduler := asynq.NewScheduler(redis, &asynq.SchedulerOpts{LogLevel: asynq.InfoLevel})

	entryID, err := scheduler.Register(tasks.RequeueCron, tasks.NewRequeueStaleTask(), asynq.Queue(tasks.QueueGenerate))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to register stale clothing requeue")
	}
	log.Info().Str("entry", entryID).Str("cron", tasks.RequeueCron).Msg("Registered stale clothing requeue")

	if err := scheduler.Run(); err != nil {
		log.Fatal().Err(err).Msg("Scheduler failed")
	}
}

func backgroundRemover(cfg config.BackgroundRemovalConfig) services.BackgroundRemover {
	if cfg.URL == "" {
		log.Info().Float64("blur_sigma", cfg.BlurSigma).Msg("[Queue] No background removal endpoint, whitening locally")
		whitener := services.DefaultBackgroundWhitener()
		whitener.BlurSigma = cfg.BlurSigma
		return whitener
	}
	return services.NewHTTPBackgroundRemover(cfg.URL, cfg.APIKey)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	logging.Setup(cfg.Log)

	if err := sentry.Init(sentry.ClientOptions{Dsn: cfg.SentryDSN, Environment: cfg.Env, Release: cfg.Release}); err != nil {
		log.Fatal().Err(err).Msg("sentry.Init")
	}
	defer sentry.Flush(2 * time.Second)

	ctx := context.Background()
	db, err := dbhelper.SetupDB(cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("setup db")
	}
	clothes := dbhelper.NewClothesStore(db)

	awsService, err := services.NewAWSService(ctx, cfg.R2)
	if err != nil {
		log.Fatal().Err(err).Msg("[Queue] Failed to initialize AWS provider: S3")
	}
	classifier, err := services.NewGoogleGarmentClassifier(ctx, cfg.Google.APIKey, cfg.Google.ClassifierModel)
	if err != nil {
		log.Fatal().Err(err).Msg("[Queue] Failed to initialize garment classifier")
	}
	app, err := firebase.NewApp(ctx, nil)
	if err != nil {
		log.Fatal().Err(err).Msg("error initializing firebase app")
	}
	notifier, err := services.NewFirebaseNotifier(ctx, app, dbhelper.NewPushTokenStore(db))
	if err != nil {
		log.Fatal().Err(err).Msg("error initializing firebase messaging")
	}

	downloads := retryablehttp.NewClient()
	downloads.RetryMax = 2
	downloads.Logger = nil

	redis := asynq.RedisClientOpt{Addr: cfg.BrokerAddress}
	asynqClient := asynq.NewClient(redis)
	defer asynqClient.Close()

	mux := asynq.NewServeMux()
	processor := &tasks.ClothingProcessor{
		Clothes:    clothes,
		Storage:    awsService,
		Background: backgroundRemover(cfg.BackgroundRemoval),
		Classifier: classifier,
		Notifier:   notifier,
		Metrics:    metrics.NewRegistry("closetapi-worker"),
		HTTPClient: downloads.StandardClient(),
	}
	processor.Register(mux)
	requeuer := &tasks.StaleRequeuer{Clothes: clothes, Tasks: asynqClient, MaxAge: 30 * time.Minute}
	requeuer.Register(mux)

	srv := asynq.NewServer(redis, asynq.Config{
		Concurrency: 10,
		Queues:      map[string]int{tasks.QueueGenerate: 7},
	})

	go runScheduler(redis)
	if err := srv.Run(mux); err != nil {
		log.Fatal().Err(err).Msg("worker stopped")
	}
}
