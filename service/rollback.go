package service

import (
	"context"

	"go.uber.org/zap"

	"msfiles/kafka"
	"msfiles/models"
	"msfiles/storage"
)

// fail rolls back a broken attempt: the task is marked failed, every
// artifact persisted so far is deleted best-effort, the working directory
// is scheduled for removal and exactly one task_error is published. The
// triggering error is always returned so rollback can never mask it.
func (s *UploadService) fail(ctx context.Context, a *attempt, cause error) error {
	s.logger.Warn("Rolling back upload attempt",
		zap.Int64("task_id", a.task.ID),
		zap.Int("artifacts", len(a.objects)),
		zap.Error(cause),
	)

	task, err := s.repo.MarkError(ctx, a.task.ID, cause.Error())
	if err != nil {
		s.logger.Error("Failed to mark task as failed",
			zap.Int64("task_id", a.task.ID),
			zap.Error(err),
		)
		failed := *a.task
		failed.Status = models.StatusError
		task = &failed
	}

	s.cacheStatus(ctx, a.task.ID, task.Status)

	if len(a.objects) > 0 {
		batch := storage.Batch{Bucket: a.bucket, Objectnames: append([]string(nil), a.objects...)}
		if err := s.store.Delete(ctx, batch); err != nil {
			s.logger.Error("Failed to delete partial artifacts",
				zap.Int64("task_id", a.task.ID),
				zap.Strings("objectnames", a.objects),
				zap.Error(err),
			)
		}
		if err := s.repo.DeleteArtifacts(ctx, a.task.ID, a.objects); err != nil {
			s.logger.Error("Failed to delete artifact records",
				zap.Int64("task_id", a.task.ID),
				zap.Error(err),
			)
		}
	}

	if s.cleanup != nil {
		s.cleanup.Schedule(a.dir)
	}

	var message string
	if task.ErrorMessage != nil {
		message = *task.ErrorMessage
	} else {
		message = cause.Error()
	}

	s.publish(ctx, kafka.EventTaskError, task.UID, kafka.TaskErrorEvent{
		TaskID:  task.ID,
		UID:     task.UID,
		Action:  task.Action,
		Status:  task.Status,
		Message: message,
	})

	return cause
}
