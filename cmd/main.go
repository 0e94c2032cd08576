package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/hibiken/asynq"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/looking-sharp/Media-Management-Microservice/internal/cache"
	"github.com/looking-sharp/Media-Management-Microservice/internal/config"
	"github.com/looking-sharp/Media-Management-Microservice/internal/handlers"
	"github.com/looking-sharp/Media-Management-Microservice/internal/httpclient"
	"github.com/looking-sharp/Media-Management-Microservice/internal/metrics"
	"github.com/looking-sharp/Media-Management-Microservice/internal/repository"
	"github.com/looking-sharp/Media-Management-Microservice/internal/scheduler"
	service "github.com/looking-sharp/Media-Management-Microservice/internal/services"
	"github.com/looking-sharp/Media-Management-Microservice/internal/storage"
	"github.com/looking-sharp/Media-Management-Microservice/internal/utils"
)

func main() {
	// load config
	cfg, err := config.Load("config/config.yaml")
	if err != nil {
		panic(err)
	}
	dev := cfg.App.Env == "development"

	// logger
	logger, _ := utils.NewLogger(dev)
	defer func() { _ = logger.Sync() }()

	// Mongo
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	mc, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.Mongo.URI))
	if err != nil {
		logger.Fatalf("mongo connect: %v", err)
	}
	col := mc.Database(cfg.Mongo.Database).Collection(cfg.Mongo.Collection)
	repo := repository.NewMediaRepo(col)
	if err := repo.EnsureIndexes(ctx); err != nil {
		logger.Fatalf("ensure indexes: %v", err)
	}

	// S3 store
	store, err := storage.NewS3Store(context.Background(), cfg.AWS.Region, cfg.AWS.Bucket, cfg.AWS.Endpoint, cfg.S3.PublicBaseURL)
	if err != nil {
		logger.Fatalf("s3 init: %v", err)
	}

	// signed-url cache; optional, the service runs without it
	var linkCache service.Cache
	if rc, err := cache.NewRedis(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB); err != nil {
		logger.Warnf("redis unavailable, link cache disabled: %v", err)
	} else {
		linkCache = rc
		defer rc.Close()
	}

	// backend fetch client for the retrieval proxy
	fetch := httpclient.NewClient(httpclient.ClientConfig{
		Timeout:         cfg.FetchTimeout,
		RetryMaxElapsed: cfg.FetchRetryMax,
		MaxIdleConns:    32,
		IdleConnTimeout: 90 * time.Second,
	})

	// expiry scheduling (asynq over redis)
	redisOpt := asynq.RedisClientOpt{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB}
	var sched service.Scheduler
	var enq *scheduler.Scheduler
	if cfg.Lifecycle.DeleteAfterDays > 0 {
		enq = scheduler.New(redisOpt)
		sched = enq
		defer enq.Close()
	}

	// service
	msvc := service.NewMediaService(repo, store, fetch, linkCache, sched, logger, service.Options{
		SizeCeiling:  cfg.Upload.MaxEncodedBytes,
		PublicRead:   cfg.S3.PublicRead,
		PresignTTL:   cfg.PresignTTL,
		LinkCacheTTL: cfg.SignedCacheTTL,
		DeleteAfter:  cfg.DeleteAfter,
	})

	// reaper worker for scheduled expiry
	var reaper *scheduler.Reaper
	if cfg.Lifecycle.DeleteAfterDays > 0 {
		reaper = scheduler.NewReaper(redisOpt, cfg.Lifecycle.ReapConcurrency, msvc, logger)
		if err := reaper.Start(); err != nil {
			logger.Fatalf("reaper start: %v", err)
		}
	}

	// fiber app & routes
	app := fiber.New(fiber.Config{
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		BodyLimit:    int(cfg.Upload.MaxFileBytes) + 1<<20,
	})
	app.Use(recover.New())

	h := handlers.NewHandler(msvc, logger, cfg.Upload.MaxFileBytes)
	app.Post("/upload", h.Upload)
	app.Get("/access/:shortId", h.Access)
	app.Get("/access-link/:shortId", h.AccessLink)
	app.Post("/delete/:shortId", h.Delete)
	app.Get("/health", h.Health)
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))

	// start server
	go func() {
		addr := fmt.Sprintf(":%d", cfg.App.Port)
		logger.Infof("starting media service on %s", addr)
		if err := app.Listen(addr); err != nil {
			logger.Fatalf("listen failed: %v", err)
		}
	}()

	// graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit
	logger.Info("shutdown requested")
	timeoutCtx, cancel2 := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel2()

	_ = app.Shutdown()
	if reaper != nil {
		reaper.Shutdown()
	}
	_ = mc.Disconnect(timeoutCtx)
	logger.Info("shutdown completed")
}
