package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"msfiles/kafka"
	"msfiles/models"
	"msfiles/repository"
)

// UploadOptions carries the caller's processing options. Convert defaults
// to true: derivation is the service's purpose, raw passthrough is the
// explicit opt-out.
type UploadOptions struct {
	Quality int           `json:"quality,omitempty"`
	Width   int           `json:"width,omitempty"`
	Height  int           `json:"height,omitempty"`
	Ext     string        `json:"ext,omitempty"`
	Convert *bool         `json:"convert,omitempty"`
	Sizes   []models.Size `json:"sizes,omitempty"`

	// Synchronous blocks the caller until an external consumer
	// acknowledges the task, bounded by the per-action wait limit.
	Synchronous bool `json:"synchronous,omitempty"`
}

func (o UploadOptions) convertEnabled() bool {
	return o.Convert == nil || *o.Convert
}

// UploadRequest is the validated start-request handed in by the inbound
// layer. Dir/Filename locate the staged source file on local disk.
type UploadRequest struct {
	Originalname string
	Dir          string
	Filename     string
	Action       models.FileAction
	Options      UploadOptions
	TaskUID      string
	Bucket       string
}

// Upload creates the task, emits task_start and dispatches the derivation
// pipeline. Asynchronous callers get the fresh task snapshot immediately;
// synchronous callers block on the correlator.
func (s *UploadService) Upload(ctx context.Context, req UploadRequest) (*models.Task, error) {
	params, err := json.Marshal(req.Options)
	if err != nil {
		return nil, fmt.Errorf("marshal task parameters: %w", err)
	}

	bucket := req.Bucket
	if bucket == "" {
		bucket = s.store.Bucket()
	}

	task, err := s.repo.CreateTask(ctx, repository.CreateTaskParams{
		Action:       req.Action,
		Originalname: req.Originalname,
		Bucket:       bucket,
		UID:          req.TaskUID,
		Parameters:   string(params),
	})
	if err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}

	s.logger.Info("Task created",
		zap.Int64("task_id", task.ID),
		zap.String("uid", task.UID),
		zap.String("action", string(task.Action)),
		zap.String("originalname", task.Originalname),
	)

	s.cacheStatus(ctx, task.ID, task.Status)

	s.publish(ctx, kafka.EventTaskStart, task.UID, kafka.TaskStartEvent{
		TaskID:    task.ID,
		UID:       task.UID,
		Action:    task.Action,
		Status:    task.Status,
		CreatedAt: task.CreatedAt,
	})

	s.pool.Submit(s.procCtx, func(procCtx context.Context) {
		s.runPipeline(procCtx, task, req)
	})

	if !req.Options.Synchronous || s.waiter == nil {
		return task, nil
	}

	confirmed, err := s.waiter.Wait(ctx, task.ID, s.bounds.For(task.Action))
	if err != nil {
		return nil, err
	}

	return confirmed, nil
}

func (s *UploadService) runPipeline(ctx context.Context, task *models.Task, req UploadRequest) {
	var err error

	switch task.Action {
	case models.ActionUploadImage:
		err = s.processImage(ctx, task, req)
	case models.ActionUploadVideo:
		err = s.processVideo(ctx, task, req)
	default:
		err = s.processFile(ctx, task, req)
	}

	if err != nil {
		s.logger.Error("Upload pipeline failed",
			zap.Int64("task_id", task.ID),
			zap.String("originalname", req.Originalname),
			zap.Error(err),
		)
		return
	}

	s.logger.Info("Upload pipeline finished",
		zap.Int64("task_id", task.ID),
		zap.String("originalname", req.Originalname),
	)
}

// TaskStatus answers status polls from the cache first, then the ledger.
func (s *UploadService) TaskStatus(ctx context.Context, taskID int64) (*models.Task, error) {
	if s.statusCache != nil {
		if status, err := s.statusCache.Get(ctx, taskID); err == nil {
			return &models.Task{ID: taskID, Status: status}, nil
		}
	}

	task, err := s.repo.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}

	s.cacheStatus(ctx, task.ID, task.Status)

	return task, nil
}

// SweepOrphanedTasks marks every task left inProgress by a previous run as
// failed. Their pipelines were in-memory and did not survive the restart.
func (s *UploadService) SweepOrphanedTasks(ctx context.Context) error {
	count, err := s.repo.SweepOrphanedTasks(ctx)
	if err != nil {
		return fmt.Errorf("sweep orphaned tasks: %w", err)
	}

	if count > 0 {
		s.logger.Warn("Swept interrupted tasks", zap.Int64("count", count))
	}

	return nil
}

// IsNotFound reports whether err means a missing task.
func IsNotFound(err error) bool {
	return errors.Is(err, repository.ErrTaskNotFound)
}
