package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"msfiles/cache"
	"msfiles/config"
	"msfiles/converter"
	"msfiles/correlator"
	"msfiles/database"
	"msfiles/handlers"
	"msfiles/kafka"
	"msfiles/middleware"
	"msfiles/pool"
	"msfiles/repository"
	"msfiles/service"
	"msfiles/storage"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	cfg := config.Load()

	logger.Info("Upload service starting", zap.String("port", cfg.Port))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pg, err := database.ConnectPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("Failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	repo := repository.NewPostgresRepo(pg)

	redisCache, err := database.ConnectCache(cfg.RedisAddr)
	if err != nil {
		logger.Fatal("Failed to connect redis", zap.Error(err))
	}
	defer redisCache.Close()

	gateway, err := storage.NewGateway(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to init object store gateway", zap.Error(err))
	}

	publisher, err := kafka.NewPublisher(cfg.Brokers(), cfg.TopicPrefix)
	if err != nil {
		logger.Fatal("Failed to init kafka producer", zap.Error(err))
	}
	defer publisher.Close()

	consumer, err := kafka.NewConsumer(cfg.Brokers(), cfg.KafkaGroupID)
	if err != nil {
		logger.Fatal("Failed to init kafka consumer", zap.Error(err))
	}
	defer consumer.Close()

	thumbSpecs, err := converter.ParseThumbnailSpecs(cfg.ThumbnailSizes)
	if err != nil {
		logger.Fatal("Invalid thumbnail configuration", zap.Error(err))
	}

	imageConv := converter.NewImageConverter(logger)
	videoConv := converter.NewVideoConverter(logger)
	thumbnailer := converter.NewThumbnailer(thumbSpecs, imageConv, logger)

	tagRemover := storage.NewTagRemover(gateway, logger)
	tagRemover.Start(ctx)

	cleanup := service.NewCleanup(logger)
	cleanup.Start(ctx)

	corr := correlator.New(repo, logger)

	go func() {
		err := consumer.Consume(ctx, cfg.ConfirmationTopic, func(ctx context.Context, msg *kafka.Confirmation) {
			corr.Confirm(ctx, msg.UID)
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Confirmation consumer stopped", zap.Error(err))
		}
	}()

	workers := pool.NewWorkerPool(cfg.WorkerCount)

	svc := service.NewUploadService(ctx, service.Deps{
		Repo:        repo,
		Store:       gateway,
		Tags:        tagRemover,
		Publisher:   publisher,
		ImageConv:   imageConv,
		Thumbnailer: thumbnailer,
		VideoConv:   videoConv,
		StatusCache: cache.NewStatusCache(redisCache),
		Waiter:      corr,
		Pool:        workers,
		Cleanup:     cleanup,
		Bounds: service.WaitBounds{
			File:  cfg.FileWaitBound,
			Video: cfg.VideoWaitBound,
		},
		Logger: logger,
	})

	// Tasks left inProgress by a previous run lost their pipelines.
	if err := svc.SweepOrphanedTasks(ctx); err != nil {
		logger.Fatal("Failed to sweep orphaned tasks", zap.Error(err))
	}

	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	handler := handlers.NewUploadHandler(svc, cfg.TempDir, cfg.MaxFileSize, logger)
	handler.Register(mux)

	server := &http.Server{
		Addr: ":" + cfg.Port,
		Handler: middleware.TraceID(
			middleware.Recovery(logger)(
				middleware.Logging(logger)(mux),
			),
		),
	}

	go func() {
		logger.Info("Server started", zap.String("address", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown failed", zap.Error(err))
	}

	workers.Wait()
	tagRemover.Wait()
	cleanup.Wait()

	logger.Info("Stopped")
	os.Exit(0)
}
