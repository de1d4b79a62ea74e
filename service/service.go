// Package service is the upload-task orchestration core: it owns task
// lifecycle, dispatches type-specific derivation pipelines, drives the
// two-phase object store writes and emits lifecycle events.
package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"msfiles/converter"
	"msfiles/kafka"
	"msfiles/models"
	"msfiles/pool"
	"msfiles/repository"
	"msfiles/storage"
)

// ObjectStore is the gateway surface the pipelines need.
type ObjectStore interface {
	Bucket() string
	Save(ctx context.Context, filepath string, opts storage.SaveOptions) (*storage.PutResult, error)
	Delete(ctx context.Context, batch storage.Batch) error
	URL(ctx context.Context, objectname, bucket string) (string, error)
}

// TagScheduler commits artifacts by scheduling temporary tag removal.
type TagScheduler interface {
	Schedule(req storage.TagRemoveRequest)
}

type ImageConverter interface {
	Convert(inputPath string, opts converter.ConvertImageOptions) (string, error)
	ImageSize(path string) (models.Size, error)
}

type Thumbnailer interface {
	Make(inputPath string, source models.Size) ([]converter.Thumbnail, error)
}

type VideoConverter interface {
	Convert(ctx context.Context, inputPath string, opts converter.ConvertVideoOptions) (string, error)
	Frame(ctx context.Context, inputPath string) (string, error)
	VideoSize(ctx context.Context, inputPath string) (models.Size, error)
}

// StatusCache mirrors task status for cheap polling. Optional.
type StatusCache interface {
	Get(ctx context.Context, taskID int64) (models.TaskStatus, error)
	Set(ctx context.Context, taskID int64, status models.TaskStatus) error
}

// Waiter blocks a synchronous caller until the task is acknowledged.
type Waiter interface {
	Wait(ctx context.Context, taskID int64, bound time.Duration) (*models.Task, error)
}

// WaitBounds are the synchronous-wait limits per upload kind.
type WaitBounds struct {
	File  time.Duration
	Video time.Duration
}

func DefaultWaitBounds() WaitBounds {
	return WaitBounds{File: 30 * time.Second, Video: 60 * time.Second}
}

func (b WaitBounds) For(action models.FileAction) time.Duration {
	if action == models.ActionUploadVideo {
		return b.Video
	}
	return b.File
}

// settleDelay lets artifact events reach consumers before task_completed.
const settleDelay = time.Second

type UploadService struct {
	repo        repository.Repository
	store       ObjectStore
	tags        TagScheduler
	publisher   kafka.Publisher
	imageConv   ImageConverter
	thumbnailer Thumbnailer
	videoConv   VideoConverter
	statusCache StatusCache
	waiter      Waiter
	pool        *pool.WorkerPool
	cleanup     *Cleanup
	bounds      WaitBounds
	settle      time.Duration
	logger      *zap.Logger

	// procCtx outlives inbound requests: a synchronous caller's timeout
	// must never cancel the pipeline.
	procCtx context.Context
}

type Deps struct {
	Repo        repository.Repository
	Store       ObjectStore
	Tags        TagScheduler
	Publisher   kafka.Publisher
	ImageConv   ImageConverter
	Thumbnailer Thumbnailer
	VideoConv   VideoConverter
	StatusCache StatusCache
	Waiter      Waiter
	Pool        *pool.WorkerPool
	Cleanup     *Cleanup
	Bounds      WaitBounds
	Logger      *zap.Logger
}

func NewUploadService(procCtx context.Context, deps Deps) *UploadService {
	bounds := deps.Bounds
	if bounds.File == 0 || bounds.Video == 0 {
		bounds = DefaultWaitBounds()
	}

	return &UploadService{
		repo:        deps.Repo,
		store:       deps.Store,
		tags:        deps.Tags,
		publisher:   deps.Publisher,
		imageConv:   deps.ImageConv,
		thumbnailer: deps.Thumbnailer,
		videoConv:   deps.VideoConv,
		statusCache: deps.StatusCache,
		waiter:      deps.Waiter,
		pool:        deps.Pool,
		cleanup:     deps.Cleanup,
		bounds:      bounds,
		settle:      settleDelay,
		logger:      deps.Logger,
		procCtx:     procCtx,
	}
}

func (s *UploadService) cacheStatus(ctx context.Context, taskID int64, status models.TaskStatus) {
	if s.statusCache == nil {
		return
	}
	if err := s.statusCache.Set(ctx, taskID, status); err != nil {
		s.logger.Warn("Failed to cache task status",
			zap.Int64("task_id", taskID),
			zap.Error(err),
		)
	}
}

func (s *UploadService) publish(ctx context.Context, event, key string, payload any) {
	if err := s.publisher.Publish(ctx, event, key, payload); err != nil {
		s.logger.Error("Failed to publish event",
			zap.String("event", event),
			zap.Error(err),
		)
	}
}
